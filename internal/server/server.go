// Package server exposes the HTTP control plane: submit runs, resume
// failed ones, and inspect state. Run execution happens on detached
// goroutines; handlers only touch the store and the runner's entry
// points.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fixwright/fixwright/internal/runner"
	"github.com/fixwright/fixwright/internal/storage"
	"github.com/fixwright/fixwright/internal/types"
)

// Server routes control-plane requests to the runner and store.
type Server struct {
	runner       *runner.Runner
	store        *storage.Store
	defaultRetry int
}

// New builds a server. defaultRetry fills in requests that omit a
// retry limit.
func New(r *runner.Runner, store *storage.Store, defaultRetry int) *Server {
	if defaultRetry < 1 {
		defaultRetry = 5
	}
	return &Server{runner: r, store: store, defaultRetry: defaultRetry}
}

// Router assembles the chi router with the standard middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Route("/api/runs", func(r chi.Router) {
		r.Post("/", s.handleCreateRun)
		r.Get("/", s.handleListRuns)
		r.Get("/{runID}", s.handleGetRun)
		r.Post("/{runID}/resume", s.handleResumeRun)
	})
	return r
}

// ListenAndServe blocks serving the control plane until ctx is
// canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req types.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.RetryLimit == 0 {
		req.RetryLimit = s.defaultRetry
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	runID, err := s.runner.StartRun(req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	// The request context dies with the response; runs outlive it.
	go s.runner.ExecuteRun(context.Background(), runID, req)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id": runID,
		"status": string(types.RunQueued),
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.ListRunIDs()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"run_ids": ids})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	state, err := s.store.GetRun(runID)
	if errors.Is(err, storage.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleResumeRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	state, err := s.store.GetRun(runID)
	if errors.Is(err, storage.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if state.Status == types.RunRunning {
		writeError(w, http.StatusConflict, fmt.Errorf("run %s is already running", runID))
		return
	}

	go func() {
		if err := s.runner.Resume(context.Background(), runID); err != nil {
			log.Printf("resume %s: %v", runID, err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id": runID,
		"status": string(types.RunQueued),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
