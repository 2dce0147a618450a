package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"reloadr-hq/reloadr/pkg/config"
	"reloadr-hq/reloadr/pkg/telemetry/health"
	"reloadr-hq/reloadr/pkg/telemetry/metrics"
)

// ShutdownTimeout bounds the graceful shutdown of the server.
const ShutdownTimeout = 5 * time.Second

// Server serves the telemetry endpoints of a reloadr process: Prometheus
// metrics and the health probes.
type Server struct {
	config     config.TelemetryConfig
	collector  *metrics.Collector
	checker    *health.Checker
	info       health.VersionInfo
	logger     *slog.Logger
	httpServer *http.Server

	mu        sync.RWMutex
	isRunning bool
	addr      net.Addr
}

// NewServer creates a telemetry server. Metrics are served when enabled in
// cfg and health endpoints when cfg.Health is enabled.
func NewServer(cfg config.TelemetryConfig, collector *metrics.Collector, checker *health.Checker, info health.VersionInfo, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:    cfg,
		collector: collector,
		checker:   checker,
		info:      info,
		logger:    logger.With("component", "server"),
	}
}

// Enabled reports whether any endpoint is configured.
func (s *Server) Enabled() bool {
	return s.config.Metrics.Enabled || s.config.Health.Enabled
}

// Start listens on the metrics listen address and serves until ctx is done,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.Metrics.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.Metrics.ListenAddress, err)
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.addr = ln.Addr()
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("Telemetry server started",
			"address", ln.Addr().String(),
			"metrics", s.config.Metrics.Enabled,
			"health", s.config.Health.Enabled,
		)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		return s.shutdown()
	case err := <-errChan:
		s.shutdown()
		return err
	}
}

// Addr returns the address the server listens on, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *Server) shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return nil
	}
	s.isRunning = false

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.logger.Info("Telemetry server stopped")
	return nil
}

// Handler returns the HTTP handler with every enabled endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.config.Metrics.Enabled && s.collector != nil {
		mux.Handle(s.config.Metrics.Path, s.collector.Handler())
	}
	if s.config.Health.Enabled && s.checker != nil {
		health.Mount(mux, s.checker, s.config.Health, s.info)
	}
	return s.recovery(mux)
}

// recovery turns a panicking handler into a 500 response.
func (s *Server) recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("Panic in telemetry handler", "path", r.URL.Path, "panic", rec)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
