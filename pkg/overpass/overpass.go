// Package overpass queries the Overpass API for raw OpenStreetMap nodes
// inside a bounding box.
package overpass

import (
	"github.com/rotisserie/eris"
)

// Sentinel errors callers check with eris.Is to decide whether to retry or
// skip a category.
var (
	// ErrSourceUnavailable covers non-2xx responses and transport failures.
	ErrSourceUnavailable = eris.New("overpass: source unavailable")
	// ErrSourceTimeout covers request deadline expiry.
	ErrSourceTimeout = eris.New("overpass: source timeout")
)

// Node is a single raw point returned by the source: an identifier,
// coordinates, and a flat tag map. It is read-only input; the pipeline
// never mutates it.
type Node struct {
	ID   int64             `json:"id"`
	Lat  float64           `json:"lat"`
	Lon  float64           `json:"lon"`
	Tags map[string]string `json:"tags"`
}

// BBox is a bounding box in WGS84 degrees.
type BBox struct {
	West  float64
	South float64
	East  float64
	North float64
}

// Validate checks ordering and degree bounds.
func (b BBox) Validate() error {
	if b.West >= b.East {
		return eris.Errorf("overpass: bbox west (%v) must be < east (%v)", b.West, b.East)
	}
	if b.South >= b.North {
		return eris.Errorf("overpass: bbox south (%v) must be < north (%v)", b.South, b.North)
	}
	if b.West < -180 || b.East > 180 || b.South < -90 || b.North > 90 {
		return eris.Errorf("overpass: bbox out of WGS84 range: (%v,%v,%v,%v)", b.West, b.South, b.East, b.North)
	}
	return nil
}
