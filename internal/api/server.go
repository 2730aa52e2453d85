// Package api serves a small JSON control surface for a scheduled pipeline:
// health, status, on-demand runs and the recent run log.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/IshaanNene/NewsCatcher/internal/config"
	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// Controller triggers runs. engine.Scheduler implements it.
type Controller interface {
	Trigger(ctx context.Context, reason string) bool
	Running() bool
	Skipped() int64
}

// RunLister reads the run log.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]*types.ScrapeRun, error)
}

// maxRunLookup bounds the scan used to find a single run by id.
const maxRunLookup = 100

// Server provides the control API.
type Server struct {
	mux    *http.ServeMux
	port   int
	logger *slog.Logger

	ctrl  Controller
	runs  RunLister
	stats func() map[string]int64

	// base is the parent context of runs triggered over HTTP.
	base context.Context
	wg   sync.WaitGroup
}

// NewServer creates a new API server. stats may be nil.
func NewServer(port int, ctrl Controller, runs RunLister, stats func() map[string]int64, logger *slog.Logger) *Server {
	s := &Server{
		mux:    http.NewServeMux(),
		port:   port,
		logger: logger.With("component", "api_server"),
		ctrl:   ctrl,
		runs:   runs,
		stats:  stats,
		base:   context.Background(),
	}

	s.registerRoutes()
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves the API in the background. Runs triggered over HTTP are
// cancelled with ctx.
func (s *Server) Start(ctx context.Context) *http.Server {
	s.base = ctx
	addr := fmt.Sprintf(":%d", s.port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.logger.Info("API server starting", "addr", addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return srv
}

// Wait blocks until every run triggered over HTTP has returned.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)

	s.mux.HandleFunc("POST /api/runs", s.handleTrigger)
	s.mux.HandleFunc("GET /api/runs", s.handleListRuns)
	s.mux.HandleFunc("GET /api/runs/{id}", s.handleGetRun)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": config.Version,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"running": s.ctrl.Running(),
		"skipped": s.ctrl.Skipped(),
		"stats":   s.snapshot(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.snapshot())
}

func (s *Server) snapshot() map[string]int64 {
	if s.stats == nil {
		return map[string]int64{}
	}
	return s.stats()
}

// handleTrigger starts a run in the background. A run already in progress
// is reported as a conflict rather than queued.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if s.ctrl.Running() {
		s.jsonResponse(w, http.StatusConflict, map[string]string{"error": "a run is already in progress"})
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.ctrl.Trigger(s.base, "api")
	}()
	s.jsonResponse(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("list runs failed", "error", err)
		s.jsonResponse(w, http.StatusInternalServerError, map[string]string{"error": "cannot read run log"})
		return
	}
	if runs == nil {
		runs = []*types.ScrapeRun{}
	}
	s.jsonResponse(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	runs, err := s.runs.ListRuns(r.Context(), maxRunLookup)
	if err != nil {
		s.logger.Error("list runs failed", "error", err)
		s.jsonResponse(w, http.StatusInternalServerError, map[string]string{"error": "cannot read run log"})
		return
	}
	for _, run := range runs {
		if run.ID == id {
			s.jsonResponse(w, http.StatusOK, run)
			return
		}
	}
	s.jsonResponse(w, http.StatusNotFound, map[string]string{"error": "run not found"})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
