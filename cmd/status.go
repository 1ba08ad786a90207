package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/transition-map/initiative-cli/internal/initiative"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored record counts per category and the enrichment backlog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		counts, err := store.CountByCategory(ctx)
		if err != nil {
			return err
		}
		backlog, err := store.CountEnrichable(ctx)
		if err != nil {
			return err
		}

		total := 0
		for _, cat := range initiative.Categories() {
			n := counts[cat.String()]
			total += n
			fmt.Printf("%-20s %d\n", cat.String(), n)
		}
		fmt.Printf("%-20s %d\n", "total", total)
		fmt.Printf("%-20s %d\n", "enrichable", backlog)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
