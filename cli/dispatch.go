package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Run one dispatch round against the configured store",
	RunE:  runDispatch,
}

func init() {
	rootCmd.AddCommand(dispatchCmd)
}

func runDispatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	assignments, err := a.dispatcher.Run(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(assignments) == 0 {
		fmt.Fprintln(out, "no orders dispatched")
		return nil
	}
	for _, as := range assignments {
		fmt.Fprintf(out, "order %d -> driver %d (%.2f km, earnings %s)\n",
			as.OrderID, as.DriverID, as.DistanceKm, as.Earnings.StringFixed(2))
	}
	return nil
}
