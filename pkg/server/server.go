package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"mercator-hq/uidthrottle/pkg/config"
	"mercator-hq/uidthrottle/pkg/telemetry/health"
	"mercator-hq/uidthrottle/pkg/telemetry/metrics"
	"mercator-hq/uidthrottle/pkg/telemetry/tracing"
)

// BuildInfo is served on /version.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Routes holds the handlers mounted by the server. Nil entries are skipped.
type Routes struct {
	Control http.Handler
	Health  *health.Checker
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer
	Build   BuildInfo
}

// Server is the admin HTTP server.
type Server struct {
	config *config.Config
	routes Routes
	logger *slog.Logger

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	running    bool
}

// NewServer creates an admin server. Nothing listens until Start.
func NewServer(cfg *config.Config, routes Routes, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config: cfg,
		routes: routes,
		logger: logger.With("component", "server"),
	}
}

// Start listens on server.listen_address and serves until ctx is cancelled,
// then shuts down gracefully within server.shutdown_timeout.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener. With server.tls enabled the
// listener is wrapped in TLS and the certificate is reloaded until ctx is
// cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if tlsCfg := &s.config.Server.TLS; tlsCfg.Enabled {
		reloader := NewCertificateReloader(tlsCfg.CertFile, tlsCfg.KeyFile, tlsCfg.ReloadInterval, s.logger)
		if err := reloader.Load(); err != nil {
			ln.Close()
			return fmt.Errorf("failed to load TLS certificate: %w", err)
		}
		go reloader.Watch(ctx)
		ln = tls.NewListener(ln, NewTLSConfig(tlsCfg, reloader))
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		ln.Close()
		return errors.New("server is already running")
	}
	s.running = true
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}
	srv := s.httpServer
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("admin server listening",
			"address", ln.Addr().String(),
			"tls", s.config.Server.TLS.Enabled,
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("initiating graceful shutdown", "timeout", s.config.Server.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.logger.Info("admin server stopped")
	return nil
}

// Addr returns the bound address while the server is running.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// IsRunning reports whether Serve is active.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	collector := s.routes.Metrics

	mount := func(route, path string, h http.Handler) {
		mux.Handle(path, collector.InstrumentHandler(route, h))
	}

	if s.routes.Control != nil && s.config.Control.HTTP.Enabled {
		mount("control", s.config.Control.HTTP.Path, s.routes.Control)
	}
	if collector != nil && s.config.Telemetry.Metrics.Enabled {
		mux.Handle(s.config.Telemetry.Metrics.Path, collector.Handler())
	}
	if s.routes.Health != nil && s.config.Telemetry.Health.Enabled {
		mount("liveness", s.config.Telemetry.Health.LivenessPath, s.routes.Health.LivenessHandler())
		mount("readiness", s.config.Telemetry.Health.ReadinessPath, s.routes.Health.ReadinessHandler())
	}
	b := s.routes.Build
	mount("version", "/version", health.VersionHandler(b.Version, b.Commit, b.BuildTime))

	var handler http.Handler = mux
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RecoveryMiddleware(s.logger)(handler)
	handler = s.routes.Tracer.HTTPMiddleware(handler)
	handler = RequestIDMiddleware(handler)
	return handler
}
