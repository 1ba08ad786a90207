package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/transition-map/initiative-cli/internal/enrich"
	"github.com/transition-map/initiative-cli/internal/pace"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Discover social links for stored initiatives",
	Long: `Select stored initiatives that have a website but no social links yet,
scrape each website once for profile URLs, and write discovered links back.

With --dry-run the would-be updates are logged and storage is never
touched.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		dryRun, _ := cmd.Flags().GetBool("dry-run")
		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			limit = cfg.Enrich.Limit
		}

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		extractor := enrich.NewExtractor(enrich.ExtractorOptions{
			Timeout:   time.Duration(cfg.Enrich.TimeoutSecs) * time.Second,
			UserAgent: cfg.Enrich.UserAgent,
		})

		pacer := pace.New(map[pace.Class]time.Duration{
			pace.Website: cfg.Pacing.WebsiteInterval(),
		})

		orch := enrich.NewOrchestrator(store, extractor, pacer, dryRun)

		zap.L().Info("starting enrich", zap.Int("limit", limit), zap.Bool("dry_run", dryRun))

		result, err := orch.Run(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "enrich")
		}
		fmt.Printf("processed=%d updated=%d failed=%d\n", result.Processed, result.Updated, result.Failed)
		return nil
	},
}

func init() {
	enrichCmd.Flags().Bool("dry-run", false, "log would-be updates without touching storage")
	enrichCmd.Flags().Int("limit", 0, "maximum records to process (default from config)")
	rootCmd.AddCommand(enrichCmd)
}
