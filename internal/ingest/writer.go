package ingest

import (
	"context"

	"go.uber.org/zap"

	"github.com/transition-map/initiative-cli/internal/initiative"
)

// Gate decides per record, immediately before its write, whether it should
// be inserted. Returning false skips the record without error.
type Gate func(ctx context.Context, in *initiative.Initiative) (bool, error)

// Failure records one record that could not be written, with its reason.
type Failure struct {
	Initiative *initiative.Initiative
	Err        error
}

// BatchResult aggregates the outcome of one batch write.
type BatchResult struct {
	Inserted int
	Skipped  int
	Failures []Failure
}

// Writer persists normalized records one at a time. A single record's
// failure does not abort the batch; it is accumulated and the writer moves
// on. Each insert is its own unit of work, so records already written stay
// written on cancellation.
type Writer struct {
	store initiative.Store
}

// NewWriter creates a Writer.
func NewWriter(store initiative.Store) *Writer {
	return &Writer{store: store}
}

// WriteBatch inserts the records in order. gate may be nil to admit all.
// Gate errors count as that record's failure; processing continues with the
// next record.
func (w *Writer) WriteBatch(ctx context.Context, items []*initiative.Initiative, gate Gate) BatchResult {
	log := zap.L().With(zap.String("component", "ingest.writer"))
	var result BatchResult

	for _, in := range items {
		if ctx.Err() != nil {
			// Cooperative cancellation: no new writes, no rollback of
			// records already inserted.
			break
		}

		if gate != nil {
			ok, err := gate(ctx, in)
			if err != nil {
				log.Warn("write gate failed",
					zap.Int64("source_id", in.SourceID),
					zap.Error(err),
				)
				result.Failures = append(result.Failures, Failure{Initiative: in, Err: err})
				continue
			}
			if !ok {
				result.Skipped++
				continue
			}
		}

		if _, err := w.store.Insert(ctx, in); err != nil {
			log.Warn("insert failed",
				zap.Int64("source_id", in.SourceID),
				zap.String("name", in.Name),
				zap.Error(err),
			)
			result.Failures = append(result.Failures, Failure{Initiative: in, Err: err})
			continue
		}
		result.Inserted++
	}

	return result
}
