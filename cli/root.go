// Package cli is the shophand command line: serve, seed and dispatch.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"shophand/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "shophand",
	Short: "ShopHand - auto parts delivery marketplace API",
	Long: `ShopHand serves the parts catalog, checkout, order lifecycle and
driver dispatch API.

Configuration comes from config.yaml (./ or ./deploy/) and SHOPHAND_*
environment variables, e.g. SHOPHAND_STORAGE_DRIVER=sqlite.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config.yaml)")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
