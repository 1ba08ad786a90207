package ingest

import (
	"context"
	"math"

	"github.com/transition-map/initiative-cli/internal/initiative"
	"github.com/transition-map/initiative-cli/pkg/overpass"
)

// mockStore implements initiative.Store for testing. CountNear answers
// against the records inserted so far, so dedup behaves like a real store.
type mockStore struct {
	inserted      []*initiative.Initiative
	insertErrFor  map[int64]error
	countNearErr  error
	startedRuns   []string
	completedRuns []string
	failedRuns    []string
	nextID        int64
}

func (m *mockStore) Insert(_ context.Context, in *initiative.Initiative) (int64, error) {
	if err := m.insertErrFor[in.SourceID]; err != nil {
		return 0, err
	}
	m.nextID++
	in.ID = m.nextID
	m.inserted = append(m.inserted, in)
	return in.ID, nil
}

func (m *mockStore) UpdateSocialLinks(_ context.Context, _ int64, _ map[string]string) error {
	return nil
}

func (m *mockStore) CountNear(_ context.Context, lon, lat float64, radiusMeters float64) (int, error) {
	if m.countNearErr != nil {
		return 0, m.countNearErr
	}
	count := 0
	for _, in := range m.inserted {
		if approxMeters(lon, lat, in.Longitude, in.Latitude) <= radiusMeters {
			count++
		}
	}
	return count, nil
}

// approxMeters is an equirectangular distance, close enough at test scale.
func approxMeters(lon1, lat1, lon2, lat2 float64) float64 {
	const metersPerDegree = 111320.0
	dLat := (lat2 - lat1) * metersPerDegree
	dLon := (lon2 - lon1) * metersPerDegree * math.Cos(lat1*math.Pi/180)
	return math.Sqrt(dLat*dLat + dLon*dLon)
}

func (m *mockStore) ListEnrichable(_ context.Context, _ int) ([]initiative.Initiative, error) {
	return nil, nil
}

func (m *mockStore) ListByCategory(_ context.Context, _ initiative.Category, _ int) ([]initiative.Initiative, error) {
	return nil, nil
}

func (m *mockStore) CountByCategory(_ context.Context) (map[string]int, error) {
	return nil, nil
}

func (m *mockStore) CountEnrichable(_ context.Context) (int, error) {
	return 0, nil
}

func (m *mockStore) StartRun(_ context.Context, runID, _ string) error {
	m.startedRuns = append(m.startedRuns, runID)
	return nil
}

func (m *mockStore) CompleteRun(_ context.Context, runID string, _ map[string]int) error {
	m.completedRuns = append(m.completedRuns, runID)
	return nil
}

func (m *mockStore) FailRun(_ context.Context, runID, _ string) error {
	m.failedRuns = append(m.failedRuns, runID)
	return nil
}

func (m *mockStore) Migrate(_ context.Context) error { return nil }

func (m *mockStore) Close() error { return nil }

// mockSource implements overpass.Client, keyed by predicate.
type mockSource struct {
	nodes    map[string][]overpass.Node
	errFor   map[string]error
	fetched  []string
	lastBBox overpass.BBox
}

func (m *mockSource) FetchNodes(_ context.Context, predicate string, bbox overpass.BBox) ([]overpass.Node, error) {
	m.fetched = append(m.fetched, predicate)
	m.lastBBox = bbox
	if err := m.errFor[predicate]; err != nil {
		return nil, err
	}
	return m.nodes[predicate], nil
}
