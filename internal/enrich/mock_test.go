package enrich

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/transition-map/initiative-cli/internal/initiative"
)

// mockStore implements initiative.Store for testing.
type mockStore struct {
	enrichable    []initiative.Initiative
	listErr       error
	updateErr     error
	updatedLinks  map[int64]map[string]string
	startedRuns   []string
	completedRuns []string
	failedRuns    []string
}

func (m *mockStore) Insert(_ context.Context, _ *initiative.Initiative) (int64, error) {
	return 0, eris.New("not implemented")
}

func (m *mockStore) UpdateSocialLinks(_ context.Context, id int64, links map[string]string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if m.updatedLinks == nil {
		m.updatedLinks = make(map[int64]map[string]string)
	}
	m.updatedLinks[id] = links
	return nil
}

func (m *mockStore) CountNear(_ context.Context, _, _ float64, _ float64) (int, error) {
	return 0, nil
}

func (m *mockStore) ListEnrichable(_ context.Context, limit int) ([]initiative.Initiative, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	if limit < len(m.enrichable) {
		return m.enrichable[:limit], nil
	}
	return m.enrichable, nil
}

func (m *mockStore) ListByCategory(_ context.Context, _ initiative.Category, _ int) ([]initiative.Initiative, error) {
	return nil, nil
}

func (m *mockStore) CountByCategory(_ context.Context) (map[string]int, error) {
	return nil, nil
}

func (m *mockStore) CountEnrichable(_ context.Context) (int, error) {
	return len(m.enrichable), nil
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
