package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/transition-map/initiative-cli/internal/initiative"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// mockStore implements initiative.Store for testing.
type mockStore struct {
	byCategory map[initiative.Category][]initiative.Initiative
	listErr    error
	gotLimits  []int
}

func (m *mockStore) Insert(_ context.Context, _ *initiative.Initiative) (int64, error) {
	return 0, eris.New("not implemented")
}

func (m *mockStore) UpdateSocialLinks(_ context.Context, _ int64, _ map[string]string) error {
	return nil
}

func (m *mockStore) CountNear(_ context.Context, _, _ float64, _ float64) (int, error) {
	return 0, nil
}

func (m *mockStore) ListEnrichable(_ context.Context, _ int) ([]initiative.Initiative, error) {
	return nil, nil
}

func (m *mockStore) ListByCategory(_ context.Context, category initiative.Category, limit int) ([]initiative.Initiative, error) {
	m.gotLimits = append(m.gotLimits, limit)
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.byCategory[category], nil
}

func (m *mockStore) CountByCategory(_ context.Context) (map[string]int, error) { return nil, nil }

func (m *mockStore) CountEnrichable(_ context.Context) (int, error) { return 0, nil }

func (m *mockStore) StartRun(_ context.Context, _, _ string) error { return nil }

func (m *mockStore) CompleteRun(_ context.Context, _ string, _ map[string]int) error { return nil }

func (m *mockStore) FailRun(_ context.Context, _, _ string) error { return nil }

func (m *mockStore) Migrate(_ context.Context) error { return nil }

func (m *mockStore) Close() error { return nil }

type featureCollection struct {
	Type     string `json:"type"`
	Features []struct {
		Type     string `json:"type"`
		ID       string `json:"id"`
		Geometry struct {
			Type        string    `json:"type"`
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]any `json:"properties"`
	} `json:"features"`
}

func TestHealthz(t *testing.T) {
	srv := New(&mockStore{})
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestInitiatives_CategoryFilter(t *testing.T) {
	store := &mockStore{byCategory: map[initiative.Category][]initiative.Initiative{
		initiative.OrganicShop: {{
			ID:        7,
			Name:      "Biocoop Bastille",
			Category:  initiative.OrganicShop,
			Website:   "https://biocoop.example",
			Longitude: 2.3522,
			Latitude:  48.8566,
			Verified:  true,
			SocialLinks: map[string]string{
				"facebook": "https://www.facebook.com/biocoop",
			},
		}},
	}}
	srv := New(store)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/initiatives?category=organic_shop", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))

	var fc featureCollection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)

	f := fc.Features[0]
	assert.Equal(t, "7", f.ID)
	assert.Equal(t, "Point", f.Geometry.Type)
	require.Len(t, f.Geometry.Coordinates, 2)
	assert.Equal(t, 2.3522, f.Geometry.Coordinates[0])
	assert.Equal(t, 48.8566, f.Geometry.Coordinates[1])
	assert.Equal(t, "Biocoop Bastille", f.Properties["name"])
	assert.Equal(t, "organic_shop", f.Properties["category"])
	assert.Equal(t, true, f.Properties["verified"])
	assert.Equal(t, "https://biocoop.example", f.Properties["website"])
	assert.NotContains(t, f.Properties, "address")

	// Only the requested category is queried.
	assert.Len(t, store.gotLimits, 1)
}

func TestInitiatives_AllCategories(t *testing.T) {
	store := &mockStore{}
	srv := New(store)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/initiatives", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, store.gotLimits, len(initiative.Categories()))
	assert.Equal(t, defaultLimit, store.gotLimits[0])
}

func TestInitiatives_LimitCapped(t *testing.T) {
	store := &mockStore{}
	srv := New(store)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/initiatives?category=farm_shop&limit=99999", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, store.gotLimits, 1)
	assert.Equal(t, maxLimit, store.gotLimits[0])
}

func TestInitiatives_BadRequests(t *testing.T) {
	srv := New(&mockStore{})

	for _, path := range []string{
		"/api/initiatives?category=bowling_alley",
		"/api/initiatives?limit=abc",
		"/api/initiatives?limit=-1",
	} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestInitiatives_StorageUnavailable(t *testing.T) {
	store := &mockStore{listErr: eris.New("connection refused")}
	srv := New(store)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/initiatives?category=organic_shop", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
