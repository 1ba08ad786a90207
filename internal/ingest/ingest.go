// Package ingest drives the sequential fetch → normalize → dedup → write
// pipeline over the configured categories.
package ingest

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/transition-map/initiative-cli/internal/enrich"
	"github.com/transition-map/initiative-cli/internal/initiative"
	"github.com/transition-map/initiative-cli/internal/pace"
	"github.com/transition-map/initiative-cli/pkg/overpass"
)

// Options configures one ingestion run.
type Options struct {
	Categories     []initiative.Category
	BBox           overpass.BBox
	SkipDuplicates bool
	DedupRadiusM   float64
	AllowNameless  bool
}

// Result summarizes one ingestion run across all requested categories.
type Result struct {
	Inserted         int
	SkippedDuplicate int
	SkippedNameless  int
	Failed           int
	// FailedCategories lists categories whose source fetch failed outright.
	FailedCategories []string
}

// Counts flattens the result for the run log.
func (r *Result) Counts() map[string]int {
	return map[string]int{
		"inserted":          r.Inserted,
		"skipped_duplicate": r.SkippedDuplicate,
		"skipped_nameless":  r.SkippedNameless,
		"failed":            r.Failed,
		"failed_categories": len(r.FailedCategories),
	}
}

// Runner wires the source client, store, and pacer into one sequential
// worker. Categories are processed in order, never in parallel, so the
// pacer's per-source intervals hold.
type Runner struct {
	source     overpass.Client
	store      initiative.Store
	pacer      *pace.Pacer
	predicates map[string]string
}

// NewRunner creates a Runner.
func NewRunner(source overpass.Client, store initiative.Store, pacer *pace.Pacer, predicates map[string]string) *Runner {
	return &Runner{
		source:     source,
		store:      store,
		pacer:      pacer,
		predicates: predicates,
	}
}

// Run executes one ingestion pass. A category whose source fetch fails is
// recorded and the run continues; Run returns an error only when every
// requested category failed at the source.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	log := zap.L().With(zap.String("component", "ingest.runner"))

	if err := opts.BBox.Validate(); err != nil {
		return nil, err
	}
	if len(opts.Categories) == 0 {
		return nil, eris.New("ingest: no categories requested")
	}

	runID := uuid.New().String()
	if err := r.store.StartRun(ctx, runID, "ingest"); err != nil {
		// Run log is best-effort; the pipeline itself still runs.
		log.Warn("failed to record run start", zap.Error(err))
	}

	writer := NewWriter(r.store)
	var gate Gate
	if opts.SkipDuplicates {
		gate = NewDeduplicator(r.store, opts.DedupRadiusM).Gate()
	}

	result := &Result{}

	for _, category := range opts.Categories {
		if ctx.Err() != nil {
			break
		}

		cLog := log.With(zap.String("category", category.String()))

		predicate, ok := r.predicates[category.String()]
		if !ok {
			cLog.Warn("no source predicate configured, skipping")
			result.FailedCategories = append(result.FailedCategories, category.String())
			continue
		}

		if err := r.pacer.Wait(ctx, pace.Overpass); err != nil {
			break
		}

		nodes, err := r.source.FetchNodes(ctx, predicate, opts.BBox)
		if err != nil {
			cLog.Error("source fetch failed", zap.Error(err))
			result.FailedCategories = append(result.FailedCategories, category.String())
			continue
		}
		cLog.Info("fetched nodes", zap.Int("count", len(nodes)))

		candidates := make([]*initiative.Initiative, 0, len(nodes))
		for _, node := range nodes {
			in, ok := initiative.Normalize(node, category, initiative.NormalizeOptions{
				AllowNameless: opts.AllowNameless,
			})
			if !ok {
				result.SkippedNameless++
				continue
			}
			// Contact tags are only available here, before the raw node is
			// discarded; later enrichment only sees the stored record.
			if links := enrich.FromTags(node.Tags); len(links) > 0 {
				in.SocialLinks = links
			}
			candidates = append(candidates, in)
		}

		batch := writer.WriteBatch(ctx, candidates, gate)
		result.Inserted += batch.Inserted
		result.SkippedDuplicate += batch.Skipped
		result.Failed += len(batch.Failures)

		cLog.Info("category complete",
			zap.Int("inserted", batch.Inserted),
			zap.Int("skipped_duplicate", batch.Skipped),
			zap.Int("failed", len(batch.Failures)),
		)
	}

	if len(result.FailedCategories) == len(opts.Categories) {
		if err := r.store.FailRun(ctx, runID, "all categories failed at source"); err != nil {
			log.Warn("failed to record run failure", zap.Error(err))
		}
		return result, eris.Errorf("ingest: all %d categories failed at source", len(opts.Categories))
	}

	if err := r.store.CompleteRun(ctx, runID, result.Counts()); err != nil {
		log.Warn("failed to record run completion", zap.Error(err))
	}

	log.Info("ingest run complete",
		zap.String("run_id", runID),
		zap.Int("inserted", result.Inserted),
		zap.Int("skipped_duplicate", result.SkippedDuplicate),
		zap.Int("skipped_nameless", result.SkippedNameless),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}
