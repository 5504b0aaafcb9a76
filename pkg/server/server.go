package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"mercator-hq/mercury/pkg/cache"
	"mercator-hq/mercury/pkg/config"
	"mercator-hq/mercury/pkg/ratelimit"
	"mercator-hq/mercury/pkg/redirect"
	"mercator-hq/mercury/pkg/server/middleware"
	"mercator-hq/mercury/pkg/telemetry/health"
	"mercator-hq/mercury/pkg/telemetry/metrics"
)

// Dependencies are the wired components the server serves. Limiter,
// Sellers, Aggregator, Health, and MetricsEndpoint may be nil when the
// corresponding feature is disabled.
type Dependencies struct {
	Resolver        *redirect.Resolver
	Limiter         *ratelimit.Limiter
	Sellers         *cache.SellerLookups
	Aggregator      *metrics.Aggregator
	Health          *health.Checker
	MetricsEndpoint http.Handler
}

// Server is the HTTP redirect front end.
type Server struct {
	config       *config.Config
	deps         Dependencies
	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates the redirect server.
func NewServer(cfg *config.Config, deps Dependencies) *Server {
	return &Server{
		config:       cfg,
		deps:         deps,
		shutdownChan: make(chan struct{}),
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	handler := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           s.config.Server.ListenAddress,
		Handler:        handler,
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting redirect server",
			"address", s.config.Server.ListenAddress,
			"metrics_path", s.config.Telemetry.Metrics.Path,
		)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		slog.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown",
			"timeout", s.config.Server.ShutdownTimeout.String(),
		)

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		// Flush in-memory metric series before the process exits.
		if s.deps.Aggregator != nil {
			s.deps.Aggregator.Persist(shutdownCtx)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("redirect server stopped")
	})

	return shutdownErr
}

// setupRoutes configures HTTP routes and the middleware chain. The
// metrics endpoint and health probes bypass rate limiting: operators
// must be able to scrape a saturated instance.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	if s.deps.MetricsEndpoint != nil {
		mux.Handle(s.config.Telemetry.Metrics.Path, s.deps.MetricsEndpoint)
	}
	checker := s.deps.Health
	if checker == nil {
		checker = health.New(0)
	}
	mux.Handle("/healthz", checker.LivenessHandler())
	mux.Handle("/readyz", checker.ReadinessHandler())

	var redirectHandler http.Handler = NewRedirectHandler(
		s.deps.Resolver,
		s.deps.Sellers,
		s.deps.Aggregator,
		slog.Default(),
	)
	if s.deps.Limiter != nil {
		redirectHandler = middleware.RateLimit(s.deps.Limiter, s.deps.Aggregator)(redirectHandler)
	}
	mux.Handle("/", redirectHandler)

	var handler http.Handler = mux
	handler = middleware.Logging(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(handler)

	return handler
}
