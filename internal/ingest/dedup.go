package ingest

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/transition-map/initiative-cli/internal/initiative"
)

// DefaultDedupRadiusMeters absorbs GPS and source jitter for the same
// physical location without suppressing genuinely distinct neighbors.
// Tunable via config; this is a default, not a requirement.
const DefaultDedupRadiusMeters = 50.0

// Deduplicator suppresses inserts near an already-stored location. The
// check is advisory: it prevents new duplicates and never merges or updates
// pre-existing ones.
type Deduplicator struct {
	store        initiative.Store
	radiusMeters float64
}

// NewDeduplicator creates a Deduplicator with the given radius in meters.
func NewDeduplicator(store initiative.Store, radiusMeters float64) *Deduplicator {
	if radiusMeters <= 0 {
		radiusMeters = DefaultDedupRadiusMeters
	}
	return &Deduplicator{store: store, radiusMeters: radiusMeters}
}

// IsDuplicate reports whether any stored record lies within the radius of
// the given point.
func (d *Deduplicator) IsDuplicate(ctx context.Context, lon, lat float64) (bool, error) {
	count, err := d.store.CountNear(ctx, lon, lat, d.radiusMeters)
	if err != nil {
		return false, eris.Wrap(err, "ingest: proximity check")
	}
	return count > 0, nil
}

// Gate adapts the duplicate check into a write gate, invoked once per
// candidate immediately before its insert.
func (d *Deduplicator) Gate() Gate {
	return func(ctx context.Context, in *initiative.Initiative) (bool, error) {
		dup, err := d.IsDuplicate(ctx, in.Longitude, in.Latitude)
		if err != nil {
			return false, err
		}
		return !dup, nil
	}
}
