package initiative

import (
	"context"

	"github.com/rotisserie/eris"
)

// Storage sentinel errors, checked with eris.Is.
var (
	// ErrNotFound is returned by updates targeting a missing record.
	ErrNotFound = eris.New("initiative: not found")
	// ErrConstraint marks per-record constraint violations (duplicate
	// source id, out-of-range coordinates). Never retried.
	ErrConstraint = eris.New("initiative: constraint violation")
)

// Store is the persistence contract the pipeline consumes. The relational
// engine behind it (PostGIS or SQLite) owns transactional semantics; every
// call is its own unit of work.
type Store interface {
	// Insert persists a new record and fills in its storage-assigned ID.
	Insert(ctx context.Context, in *Initiative) (int64, error)

	// UpdateSocialLinks overwrites only the social_links field.
	UpdateSocialLinks(ctx context.Context, id int64, links map[string]string) error

	// CountNear returns how many records exist within radiusMeters of the
	// given point.
	CountNear(ctx context.Context, lon, lat float64, radiusMeters float64) (int, error)

	// ListEnrichable returns up to limit records with a website and no
	// social links yet, in storage order.
	ListEnrichable(ctx context.Context, limit int) ([]Initiative, error)

	// ListByCategory returns up to limit records for a category.
	ListByCategory(ctx context.Context, category Category, limit int) ([]Initiative, error)

	// CountByCategory returns record counts keyed by category name.
	CountByCategory(ctx context.Context) (map[string]int, error)

	// CountEnrichable returns the enrichment backlog size.
	CountEnrichable(ctx context.Context) (int, error)

	// StartRun records the beginning of an ingest or enrich run.
	StartRun(ctx context.Context, runID, kind string) error

	// CompleteRun records a finished run with its summary counts.
	CompleteRun(ctx context.Context, runID string, counts map[string]int) error

	// FailRun records a run that could not complete.
	FailRun(ctx context.Context, runID, message string) error

	// Migrate applies the store schema.
	Migrate(ctx context.Context) error

	// Close releases the underlying connections.
	Close() error
}
