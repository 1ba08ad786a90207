package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/transition-map/initiative-cli/internal/ingest"
	"github.com/transition-map/initiative-cli/internal/initiative"
	"github.com/transition-map/initiative-cli/internal/pace"
	"github.com/transition-map/initiative-cli/pkg/overpass"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <category|all>",
	Short: "Fetch points of interest and store new initiatives",
	Long: `Fetch nodes for one category (or all) from the Overpass API inside a
bounding box, normalize them into initiative records, and write the ones
that do not already exist nearby.

Exits zero even when individual records fail; exits non-zero only when the
source was unavailable for every requested category.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		categories, err := parseCategoryArg(args[0])
		if err != nil {
			return err
		}

		opts, err := parseIngestOpts(cmd, categories)
		if err != nil {
			return err
		}

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		predicates, err := loadPredicates()
		if err != nil {
			return err
		}

		source := overpass.NewClient(
			overpass.WithBaseURL(cfg.Overpass.BaseURL),
			overpass.WithTimeout(time.Duration(cfg.Overpass.TimeoutSecs)*time.Second),
			overpass.WithUserAgent(cfg.Overpass.UserAgent),
		)

		pacer := pace.New(map[pace.Class]time.Duration{
			pace.Overpass: cfg.Pacing.OverpassInterval(),
		})

		runner := ingest.NewRunner(source, store, pacer, predicates)

		zap.L().Info("starting ingest",
			zap.Int("categories", len(opts.Categories)),
			zap.Bool("skip_duplicates", opts.SkipDuplicates),
			zap.Float64("dedup_radius_m", opts.DedupRadiusM),
		)

		result, err := runner.Run(ctx, opts)
		if result != nil {
			fmt.Printf("inserted=%d skipped-duplicate=%d skipped-nameless=%d failed=%d\n",
				result.Inserted, result.SkippedDuplicate, result.SkippedNameless, result.Failed)
		}
		if err != nil {
			return eris.Wrap(err, "ingest")
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().Bool("skip-duplicates", true, "suppress records within the dedup radius of a stored one")
	ingestCmd.Flags().Float64("dedup-radius-m", 0, "proximity dedup radius in meters (default from config)")
	ingestCmd.Flags().Bool("allow-nameless", false, "synthesize a display name for nodes without a name tag instead of skipping them")
	ingestCmd.Flags().String("bbox", "", "bounding box west,south,east,north in degrees (default from config)")
	rootCmd.AddCommand(ingestCmd)
}

// parseCategoryArg resolves the positional argument into categories.
func parseCategoryArg(arg string) ([]initiative.Category, error) {
	if arg == "all" {
		return initiative.Categories(), nil
	}
	c, err := initiative.ParseCategory(arg)
	if err != nil {
		return nil, err
	}
	return []initiative.Category{c}, nil
}

// parseIngestOpts assembles run options from flags with config fallbacks.
func parseIngestOpts(cmd *cobra.Command, categories []initiative.Category) (ingest.Options, error) {
	skipDup, _ := cmd.Flags().GetBool("skip-duplicates")
	radius, _ := cmd.Flags().GetFloat64("dedup-radius-m")
	allowNameless, _ := cmd.Flags().GetBool("allow-nameless")
	bboxStr, _ := cmd.Flags().GetString("bbox")

	if radius <= 0 {
		radius = cfg.Ingest.DedupRadiusM
	}
	if !allowNameless {
		allowNameless = cfg.Ingest.AllowNameless
	}

	bbox := overpass.BBox{
		West:  cfg.Ingest.BBoxWest,
		South: cfg.Ingest.BBoxSouth,
		East:  cfg.Ingest.BBoxEast,
		North: cfg.Ingest.BBoxNorth,
	}
	if bboxStr != "" {
		parsed, err := parseBBox(bboxStr)
		if err != nil {
			return ingest.Options{}, err
		}
		bbox = parsed
	}

	return ingest.Options{
		Categories:     categories,
		BBox:           bbox,
		SkipDuplicates: skipDup,
		DedupRadiusM:   radius,
		AllowNameless:  allowNameless,
	}, nil
}

// parseBBox parses "west,south,east,north".
func parseBBox(s string) (overpass.BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return overpass.BBox{}, eris.Errorf("bbox must be west,south,east,north, got %q", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return overpass.BBox{}, eris.Wrapf(err, "bbox component %d", i+1)
		}
		vals[i] = v
	}
	bbox := overpass.BBox{West: vals[0], South: vals[1], East: vals[2], North: vals[3]}
	return bbox, bbox.Validate()
}

// loadPredicates returns the category predicate table, with operator
// overrides applied when a file is configured.
func loadPredicates() (map[string]string, error) {
	if cfg.Overpass.PredicatesFile == "" {
		return overpass.DefaultPredicates(), nil
	}
	return overpass.LoadPredicates(cfg.Overpass.PredicatesFile)
}
