// Package server exposes profiler snapshots over HTTP: JSON for ad-hoc
// reads, Prometheus text for scraping, and a health probe that fails once
// telemetry is unavailable.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/agbru/optix/internal/errors"
	"github.com/agbru/optix/internal/logging"
	"github.com/agbru/optix/internal/profiler"
)

// Profiler is the part of profiler.SystemProfiler the server uses.
type Profiler interface {
	SnapshotContext(ctx context.Context) (profiler.Snapshot, error)
	State() profiler.State
}

// TypeLister lists the constructible types of the loaded module.
type TypeLister interface {
	Types() []string
}

// Config holds listener settings.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig listens on localhost only.
func DefaultConfig() Config {
	return Config{
		Addr:            "127.0.0.1:9464",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Server is the HTTP exporter.
type Server struct {
	cfg      Config
	profiler Profiler
	types    TypeLister
	metrics  *Metrics
	security SecurityConfig
	logger   logging.Logger
	router   chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l logging.Logger) Option { return func(s *Server) { s.logger = l } }

// WithMetrics shares a Metrics instance, typically one also wired as the
// profiler's observer.
func WithMetrics(m *Metrics) Option { return func(s *Server) { s.metrics = m } }

// WithSecurityConfig replaces DefaultSecurityConfig.
func WithSecurityConfig(c SecurityConfig) Option { return func(s *Server) { s.security = c } }

// New builds a Server over p. types may be nil.
func New(p Profiler, types TypeLister, cfg Config, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		profiler: p,
		types:    types,
		security: DefaultSecurityConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	if s.logger == nil {
		s.logger = logging.NewDefaultLogger()
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)

	wrap := func(h http.HandlerFunc) http.HandlerFunc {
		return SecurityMiddleware(s.security, s.metricsMiddleware(h))
	}
	r.MethodNotAllowed(wrap(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}))
	r.NotFound(wrap(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	}))

	r.Get("/snapshot", wrap(s.handleSnapshot))
	r.Get("/healthz", wrap(s.handleHealth))
	r.Get("/types", wrap(s.handleTypes))
	r.Handle("/metrics", wrap(s.handleMetrics))
	return r
}

// statusRecorder captures the response code for request metrics.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) metricsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.metrics.IncrementActiveRequests()
		defer s.metrics.DecrementActiveRequests()

		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next(rec, r)
		s.metrics.ObserveRequest(r.Method, rec.code)
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.profiler.SnapshotContext(r.Context())
	if err != nil {
		s.logger.Error("snapshot failed", err, logging.String("request_id", middleware.GetReqID(r.Context())))
		writeError(w, snapshotStatus(err), err.Error())
		return
	}
	body := snap.Map()
	body["seq"] = snap.Seq
	body["taken_at"] = snap.TakenAt
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	state := s.profiler.State()
	code := http.StatusOK
	status := "ok"
	if state != profiler.StateReady {
		code = http.StatusServiceUnavailable
		status = "unavailable"
	}
	writeJSON(w, code, map[string]string{"status": status, "state": state.String()})
}

func (s *Server) handleTypes(w http.ResponseWriter, _ *http.Request) {
	types := []string{}
	if s.types != nil {
		types = s.types.Types()
	}
	writeJSON(w, http.StatusOK, map[string][]string{"types": types})
}

// handleMetrics serves Prometheus text. A fresh snapshot is taken per scrape
// when a profiler is attached, so the gauges track the scrape interval.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.logger.Debug("metrics method rejected", logging.String("method", r.Method))
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.profiler != nil {
		// Outcome reaches the gauges through the profiler observer.
		_, _ = s.profiler.SnapshotContext(r.Context())
	}
	s.metrics.WritePrometheus(w, r)
}

func snapshotStatus(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrTelemetryUnavailable), errors.Is(err, apperrors.ErrProfilerClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// Run listens on cfg.Addr and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return apperrors.NewConfigError("listen on %s: %v", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully within
// cfg.ShutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("exporter listening", logging.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("exporter shutting down")
		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
