package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/concurrent-sentiment/internal/logging"
	"github.com/JakeFAU/concurrent-sentiment/internal/metrics"
	"github.com/JakeFAU/concurrent-sentiment/internal/monitor"
)

const (
	defaultRunLimit = 50
	maxRunLimit     = 1000
)

// RunLister returns recorded run summaries, most recent first. Job filtering
// happens before the limit.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]monitor.Summary, error)
	ListJobRuns(ctx context.Context, jobID string, limit int) ([]monitor.Summary, error)
}

// Server wires the status routes.
type Server struct {
	router chi.Router
	runs   RunLister
	logger *zap.Logger
	ready  atomic.Bool
}

// NewServer constructs a Server. It reports not-ready until SetReady(true).
func NewServer(runs RunLister, logger *zap.Logger) *Server {
	s := &Server{runs: runs, logger: logging.OrNop(logger)}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metricsMiddleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Route("/v1/runs", func(r chi.Router) {
		r.Get("/", s.listRuns)
		r.Get("/{job_id}", s.listJobRuns)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetReady flips the readiness probe.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status server started", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("status server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown status server: %w", err)
	}
	return nil
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, ok := s.fetchRuns(w, r, func(ctx context.Context, limit int) ([]monitor.Summary, error) {
		return s.runs.ListRuns(ctx, limit)
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) listJobRuns(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	runs, ok := s.fetchRuns(w, r, func(ctx context.Context, limit int) ([]monitor.Summary, error) {
		return s.runs.ListJobRuns(ctx, jobID, limit)
	})
	if !ok {
		return
	}
	if len(runs) == 0 {
		writeError(w, http.StatusNotFound, "no runs recorded for job")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job_id": jobID, "runs": runs})
}

func (s *Server) fetchRuns(
	w http.ResponseWriter,
	r *http.Request,
	list func(ctx context.Context, limit int) ([]monitor.Summary, error),
) ([]monitor.Summary, bool) {
	if s.runs == nil {
		writeError(w, http.StatusServiceUnavailable, "run history is not configured")
		return nil, false
	}
	limit := defaultRunLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRunLimit {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxRunLimit))
			return nil, false
		}
		limit = n
	}
	runs, err := list(r.Context(), limit)
	if err != nil {
		s.logger.Error("list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "cannot list runs")
		return nil, false
	}
	if runs == nil {
		runs = []monitor.Summary{}
	}
	return runs, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
