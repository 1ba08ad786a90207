package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/transition-map/initiative-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "initiative-cli",
	Short: "Initiative ingestion and enrichment pipeline",
	Long:  "Pulls points of interest from OpenStreetMap via Overpass, normalizes them into initiative records, deduplicates by proximity, and enriches stored records with social links from their websites.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
