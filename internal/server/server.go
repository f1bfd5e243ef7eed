// Package server exposes direct invocation and status views over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samvad-hq/samvad-profile-enricher/internal/batch"
	"github.com/samvad-hq/samvad-profile-enricher/internal/enrich"
	"github.com/samvad-hq/samvad-profile-enricher/internal/logger"
)

// MaxBodyBytes bounds a direct invocation body.
const MaxBodyBytes = 1 << 20

const (
	statusTimeout   = 60 * time.Second
	shutdownTimeout = 15 * time.Second
)

// DirectHandler runs a direct invocation body.
type DirectHandler interface {
	HandleDirect(ctx context.Context, body []byte) batch.DirectResponse
}

// StatusReporter serves the provider and error views.
type StatusReporter interface {
	ProviderStatus(ctx context.Context) enrich.ProviderStatus
	ErrorSummary() enrich.ErrorSummary
}

// HTTPObserver records served requests.
type HTTPObserver interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

// Options wires optional collaborators.
type Options struct {
	Addr     string
	Gatherer prometheus.Gatherer
	Observer HTTPObserver
}

// Server holds the dependencies for the HTTP surface.
type Server struct {
	direct DirectHandler
	status StatusReporter
	opts   Options
	router http.Handler
	log    logger.Logger
}

// New builds a Server and its router.
func New(direct DirectHandler, status StatusReporter, opts Options, log logger.Logger) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{direct: direct, status: status, opts: opts, log: logger.Ensure(log)}
	s.router = s.setupRouter()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/process", s.handleProcess)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(statusTimeout))
			r.Get("/providers/status", s.handleProviderStatus)
			r.Get("/errors/summary", s.handleErrorSummary)
		})
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.InfoObj("http server listening", "http", map[string]any{"addr": s.opts.Addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.log.InfoObj("http server shutting down", "http", map[string]any{"reason": ctx.Err().Error()})
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		s.respondWithError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	s.respondWithJSON(w, http.StatusOK, s.direct.HandleDirect(r.Context(), body))
}

func (s *Server) handleProviderStatus(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, s.status.ProviderStatus(r.Context()))
}

func (s *Server) handleErrorSummary(w http.ResponseWriter, _ *http.Request) {
	s.respondWithJSON(w, http.StatusOK, s.status.ErrorSummary())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		if s.opts.Observer != nil {
			s.opts.Observer.ObserveHTTP(r.Method, route, status, elapsed)
		}
		s.log.DebugObj("http request", "http", map[string]any{
			"method":     r.Method,
			"route":      route,
			"status":     status,
			"request_id": middleware.GetReqID(r.Context()),
			"elapsed_ms": elapsed.Milliseconds(),
		})
	})
}
