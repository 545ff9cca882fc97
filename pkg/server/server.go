package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"

	"mercator-hq/quota/pkg/config"
	"mercator-hq/quota/pkg/quota"
	"mercator-hq/quota/pkg/quota/middleware"
	"mercator-hq/quota/pkg/telemetry/health"
	"mercator-hq/quota/pkg/telemetry/metrics"
)

// ErrAlreadyRunning is returned by Start on a running server.
var ErrAlreadyRunning = errors.New("server is already running")

// VersionPath serves build information when Deps.Version is set.
const VersionPath = "/version"

// SummaryEngine is the read side of the quota engine used by the summary
// endpoint.
type SummaryEngine interface {
	LowestDailySummary(n int) []quota.SummaryEntry
	Tracked() map[quota.Window]int
}

// Deps holds the components the server routes to. Engine and Limiter are
// required; the rest are optional.
type Deps struct {
	Engine    SummaryEngine
	Limiter   *middleware.Limiter
	Collector *metrics.Collector
	Health    *health.Checker
	Logger    *slog.Logger
	Version   http.Handler

	// Upstream overrides the reverse proxy. Tests use it to avoid a network
	// upstream.
	Upstream http.Handler
}

// Server is the quotad HTTP gateway.
type Server struct {
	config    *config.ServerConfig
	telemetry *config.TelemetryConfig
	deps      Deps
	upstream  *url.URL
	logger    *slog.Logger

	httpServer   *http.Server
	listener     net.Listener
	shutdownChan chan struct{}
	stopOnce     sync.Once
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New creates a server. It fails if the upstream URL cannot be parsed or a
// required dependency is missing.
func New(cfg *config.ServerConfig, telemetry *config.TelemetryConfig, deps Deps) (*Server, error) {
	if deps.Engine == nil {
		return nil, errors.New("server: engine is required")
	}
	if deps.Limiter == nil {
		return nil, errors.New("server: limiter is required")
	}

	upstream, err := url.Parse(cfg.Upstream)
	if err != nil {
		return nil, fmt.Errorf("server: invalid upstream %q: %w", cfg.Upstream, err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		config:       cfg,
		telemetry:    telemetry,
		deps:         deps,
		upstream:     upstream,
		logger:       logger.With("component", "server"),
		shutdownChan: make(chan struct{}),
	}, nil
}

// Start listens on the configured address and serves until ctx is
// cancelled or Stop is called, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is like Start but accepts connections on ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		ln.Close()
		return ErrAlreadyRunning
	}
	s.isRunning = true
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	httpServer := s.httpServer
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting quota gateway",
			"address", ln.Addr().String(),
			"upstream", s.upstream.Redacted(),
		)
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case <-s.shutdownChan:
		s.logger.Info("shutdown requested")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.markStopped()
		return err
	}
}

// Stop asks a running Start or Serve to shut down.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.shutdownChan)
	})
}

// Addr returns the listening address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Shutdown gracefully shuts down the server, waiting up to the configured
// shutdown timeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		running, httpServer := s.isRunning, s.httpServer
		s.mu.RUnlock()
		if !running {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.markStopped()
		s.logger.Info("quota gateway stopped")
	})

	return shutdownErr
}

func (s *Server) markStopped() {
	s.mu.Lock()
	s.isRunning = false
	s.mu.Unlock()
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	if s.telemetry != nil && s.telemetry.Metrics.Enabled && s.deps.Collector != nil {
		mux.Handle(s.telemetry.Metrics.Path, s.deps.Collector.Handler())
	}
	if s.telemetry != nil && s.telemetry.Health.Enabled && s.deps.Health != nil {
		mux.Handle(s.telemetry.Health.LivenessPath, s.deps.Health.LivenessHandler())
		mux.Handle(s.telemetry.Health.ReadinessPath, s.deps.Health.ReadinessHandler())
	}
	if s.deps.Version != nil {
		mux.Handle(VersionPath, s.deps.Version)
	}

	summary := newSummaryHandler(s.deps.Engine, s.config.SummaryMaxEntries)
	mux.Handle(s.config.SummaryPath, s.instrument(metrics.RouteSummary, summary))

	upstream := s.deps.Upstream
	if upstream == nil {
		upstream = newUpstreamProxy(s.upstream, s.deps.Collector, s.logger)
	}
	mux.Handle("/", s.instrument(metrics.RouteProxy, s.deps.Limiter.Middleware(upstream)))

	var handler http.Handler = mux
	handler = middleware.Logging(s.logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(s.logger)(handler)

	return handler
}

func (s *Server) instrument(route string, next http.Handler) http.Handler {
	if s.deps.Collector == nil {
		return next
	}
	return s.deps.Collector.InstrumentHandler(route, next)
}
