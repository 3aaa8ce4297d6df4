package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo data into the configured store",
	Long: `Load the demo catalog, accounts and drivers. Only useful with
storage.driver=sqlite; the memory store is seeded by serve itself.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.seed(cmd.Context())
	if err != nil {
		return err
	}
	if res.Skipped {
		fmt.Fprintln(cmd.OutOrStdout(), "store already holds data, nothing seeded")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users, %d drivers, %d partners, %d vehicles, %d categories, %d parts\n",
		res.Users, res.Drivers, res.Partners, res.Vehicles, res.Categories, res.Parts)
	return nil
}
