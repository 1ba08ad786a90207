// Package server exposes stored initiatives as a read-only GeoJSON API for
// the map front-end, which lives outside this repo.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/transition-map/initiative-cli/internal/initiative"
)

const (
	defaultLimit = 500
	maxLimit     = 2000
)

// Server serves the read-only API.
type Server struct {
	store  initiative.Store
	router chi.Router
}

// New builds the router.
func New(store initiative.Store) *Server {
	s := &Server{store: store}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/initiatives", s.handleInitiatives)

	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleInitiatives returns a GeoJSON FeatureCollection, optionally
// filtered by ?category=, capped by ?limit=.
func (s *Server) handleInitiatives(w http.ResponseWriter, r *http.Request) {
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, `{"error":"invalid limit"}`, http.StatusBadRequest)
			return
		}
		limit = min(n, maxLimit)
	}

	var categories []initiative.Category
	if raw := r.URL.Query().Get("category"); raw != "" {
		c, err := initiative.ParseCategory(raw)
		if err != nil {
			http.Error(w, `{"error":"unknown category"}`, http.StatusBadRequest)
			return
		}
		categories = []initiative.Category{c}
	} else {
		categories = initiative.Categories()
	}

	fc := &geojson.FeatureCollection{}
	for _, category := range categories {
		items, err := s.store.ListByCategory(r.Context(), category, limit)
		if err != nil {
			zap.L().Error("list initiatives failed",
				zap.String("category", category.String()),
				zap.Error(err),
			)
			http.Error(w, `{"error":"storage unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		for i := range items {
			fc.Features = append(fc.Features, toFeature(&items[i]))
		}
	}

	w.Header().Set("Content-Type", "application/geo+json")
	if err := json.NewEncoder(w).Encode(fc); err != nil {
		zap.L().Debug("encode feature collection failed", zap.Error(err))
	}
}

// toFeature converts a stored record into a GeoJSON point feature.
func toFeature(in *initiative.Initiative) *geojson.Feature {
	props := map[string]any{
		"name":     in.Name,
		"category": in.Category.String(),
		"verified": in.Verified,
	}
	if in.Address != "" {
		props["address"] = in.Address
	}
	if in.Website != "" {
		props["website"] = in.Website
	}
	if in.Phone != "" {
		props["phone"] = in.Phone
	}
	if in.OpeningHours != "" {
		props["opening_hours"] = in.OpeningHours
	}
	if len(in.SocialLinks) > 0 {
		props["social_links"] = in.SocialLinks
	}
	return &geojson.Feature{
		ID:         strconv.FormatInt(in.ID, 10),
		Geometry:   geom.NewPointFlat(geom.XY, []float64{in.Longitude, in.Latitude}).SetSRID(4326),
		Properties: props,
	}
}
