// Package api serves the operator-facing HTTP surface: health, metrics,
// and read-only views of seasons and the leaderboard.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"tickerbot/internal/game"
	"tickerbot/internal/metrics"
)

type Server struct {
	svc *game.Service
	log *slog.Logger
	mux *chi.Mux
}

func New(svc *game.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{svc: svc, log: logger, mux: chi.NewRouter()}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/seasons", s.handleSeasons)
		r.Get("/leaderboard/{season}", s.handleLeaderboard)
	})
}

func (s *Server) handleSeasons(w http.ResponseWriter, r *http.Request) {
	seasons, err := s.svc.Seasons(r.Context())
	if err != nil {
		s.log.Error("list seasons failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"seasons": seasons})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	season := chi.URLParam(r, "season")
	rows, err := s.svc.Leaderboard(r.Context(), season, 0)
	if err != nil {
		if errors.Is(err, game.ErrSeasonNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "season not found"})
			return
		}
		s.log.Error("leaderboard failed", "season", season, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"season": season, "rows": rows})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
