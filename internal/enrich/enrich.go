package enrich

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/transition-map/initiative-cli/internal/initiative"
	"github.com/transition-map/initiative-cli/internal/pace"
)

// Eligible is the enrichment eligibility predicate: the record has a
// website to scrape and no social link yet. A record with any link at all
// counts as already processed; partially filled records are not re-checked.
func Eligible(in *initiative.Initiative) bool {
	return in.Website != "" && len(in.SocialLinks) == 0
}

// Result summarizes one enrichment run.
type Result struct {
	Processed int
	Updated   int
	Failed    int
}

// Counts flattens the result for the run log.
func (r *Result) Counts() map[string]int {
	return map[string]int{
		"processed": r.Processed,
		"updated":   r.Updated,
		"failed":    r.Failed,
	}
}

// Orchestrator selects eligible records, runs the extractor against each,
// and writes discovered links back. Records are handled sequentially with
// pacing between website fetches.
type Orchestrator struct {
	store     initiative.Store
	extractor *Extractor
	pacer     *pace.Pacer
	dryRun    bool
}

// NewOrchestrator creates an Orchestrator. With dryRun set, would-be
// updates are logged and the store is never mutated.
func NewOrchestrator(store initiative.Store, extractor *Extractor, pacer *pace.Pacer, dryRun bool) *Orchestrator {
	return &Orchestrator{
		store:     store,
		extractor: extractor,
		pacer:     pacer,
		dryRun:    dryRun,
	}
}

// Run enriches up to limit pending records. Per-record failures are
// counted and processing continues; only a failure to query the store at
// all is returned as an error.
func (o *Orchestrator) Run(ctx context.Context, limit int) (*Result, error) {
	log := zap.L().With(zap.String("component", "enrich.orchestrator"), zap.Bool("dry_run", o.dryRun))

	if limit <= 0 {
		limit = 100
	}

	pending, err := o.store.ListEnrichable(ctx, limit)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: list pending")
	}
	log.Info("selected records", zap.Int("count", len(pending)))

	runID := uuid.New().String()
	if !o.dryRun {
		if err := o.store.StartRun(ctx, runID, "enrich"); err != nil {
			log.Warn("failed to record run start", zap.Error(err))
		}
	}

	result := &Result{}

	for i := range pending {
		in := &pending[i]
		if ctx.Err() != nil {
			break
		}
		if !Eligible(in) {
			continue
		}
		result.Processed++

		rLog := log.With(zap.Int64("id", in.ID), zap.String("website", in.Website))

		if err := o.pacer.Wait(ctx, pace.Website); err != nil {
			break
		}

		links := o.extractor.FromWebsite(ctx, in.Website)
		if len(links) == 0 {
			rLog.Debug("no links found")
			continue
		}

		if o.dryRun {
			rLog.Info("would update social links", zap.Any("links", links))
			continue
		}

		if err := o.store.UpdateSocialLinks(ctx, in.ID, links); err != nil {
			rLog.Warn("update failed", zap.Error(err))
			result.Failed++
			continue
		}
		rLog.Info("social links updated", zap.Int("platforms", len(links)))
		result.Updated++
	}

	if !o.dryRun {
		if err := o.store.CompleteRun(ctx, runID, result.Counts()); err != nil {
			log.Warn("failed to record run completion", zap.Error(err))
		}
	}

	log.Info("enrich run complete",
		zap.Int("processed", result.Processed),
		zap.Int("updated", result.Updated),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}
