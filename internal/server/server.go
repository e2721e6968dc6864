// Package server exposes persisted analysis results over a read-only HTTP
// API. It serves what the store holds; it never triggers new analyses.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/urbancanopy/canopy-cli/internal/spots"
	"github.com/urbancanopy/canopy-cli/internal/store"
)

// Store is the persistence surface the API reads from.
type Store interface {
	GetRun(ctx context.Context, runID string) (*store.Run, error)
	LatestRun(ctx context.Context, location string) (*store.Run, error)
	ListRuns(ctx context.Context, location string, limit int) ([]store.Run, error)
	SpotsForRun(ctx context.Context, runID string) ([]spots.Spot, error)
}

// Server is the results API.
type Server struct {
	store Store
}

// New builds a Server over a store.
func New(st Store) *Server {
	return &Server{store: st}
}

// Router assembles the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{runID}", s.handleGetRun)
		r.Get("/runs/{runID}/spots", s.handleRunSpots)
		r.Get("/locations/{slug}/latest", s.handleLatestRun)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(r.Context(), r.URL.Query().Get("location"), limit)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleRunSpots(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	sp, err := s.store.SpotsForRun(r.Context(), runID)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if sp == nil {
		sp = []spots.Spot{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"run_id": runID, "spots": sp})
}

func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.LatestRun(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "no runs for location")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	zap.L().Error("server: request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
