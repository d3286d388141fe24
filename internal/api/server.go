package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/star/orbitd/internal/auth"
	"github.com/star/orbitd/internal/ephemeris"
	"github.com/star/orbitd/internal/health"
	"github.com/star/orbitd/internal/httputil"
	"github.com/star/orbitd/internal/metrics"
	"github.com/star/orbitd/internal/propagation"
	"github.com/star/orbitd/internal/tle"
)

// RefreshFunc triggers a TLE refresh from the upstream source. It is injected
// by the caller so the server does not own fetch scheduling.
type RefreshFunc func(ctx context.Context) error

// Options configures the HTTP server.
type Options struct {
	Addr       string
	Auth       auth.Config
	TrustProxy bool
	Refresh    RefreshFunc
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	store      *tle.Store
	prop       *propagation.Propagator
	eph        *ephemeris.Cache
	refresh    RefreshFunc
	trustProxy bool
}

// NewServer creates a configured HTTP server.
func NewServer(opts Options, store *tle.Store, prop *propagation.Propagator, eph *ephemeris.Cache, logger *slog.Logger) *Server {
	s := &Server{
		logger:     logger,
		store:      store,
		prop:       prop,
		eph:        eph,
		refresh:    opts.Refresh,
		trustProxy: opts.TrustProxy,
	}

	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(func() bool { return store.Get() != nil }))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/v1/satellites", s.satellitesHandler)
	mux.HandleFunc("GET /api/v1/state/{norad_id}", s.stateHandler)
	mux.HandleFunc("GET /api/v1/tle/metadata", s.metadataHandler)
	mux.HandleFunc("POST /api/v1/tle/fetch", s.fetchHandler)
	mux.HandleFunc("GET /api/v1/keyframes/latest", s.keyframeLatestHandler)
	mux.HandleFunc("GET /api/v1/keyframes/at", s.keyframeAtHandler)
	mux.HandleFunc("GET /api/v1/cache/stats", s.cacheStatsHandler)

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(opts.Auth)(handler)
	handler = loggingMiddleware(logger, opts.TrustProxy)(handler)
	handler = metrics.Middleware(handler)

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
			)
		})
	}
}
