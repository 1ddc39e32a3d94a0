package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
)

// ErrNoHandler is returned when a server is started without WithHandler.
var ErrNoHandler = errors.New("httpserver: handler is required (use WithHandler)")

// Server wraps http.Server with graceful shutdown on SIGTERM/SIGINT or
// context cancellation, and lifecycle logging.
type Server struct {
	httpServer *http.Server
	config     Config
	logger     zerolog.Logger
}

// New creates a Server. The configured observability middleware runs
// outermost in this order: tracing, metrics, logging, rate limit, then the
// middleware given to WithMiddleware.
//
//	srv := httpserver.New(
//	    httpserver.WithServiceName("rainlogger-mock"),
//	    httpserver.WithAddr(":3000"),
//	    httpserver.WithLogging(httpserver.LoggerConfig{Logger: logger}),
//	    httpserver.WithHandler(router),
//	)
func New(opts ...Option) *Server {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = "http-server"
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	logger = logger.With().Str("service", cfg.ServiceName).Logger()

	var middlewares []Middleware

	if cfg.TracingConfig != nil {
		tracingCfg := *cfg.TracingConfig
		tracingCfg.serviceName = cfg.ServiceName
		middlewares = append(middlewares, Tracing(tracingCfg))
	}

	if cfg.MetricsConfig != nil {
		metricsCfg := *cfg.MetricsConfig
		metricsCfg.serviceName = cfg.ServiceName
		metrics, err := NewMetrics(metricsCfg)
		if err != nil {
			logger.Warn().Err(err).Msg("metrics disabled")
		} else {
			middlewares = append(middlewares, metrics.Middleware())
		}
	}

	if cfg.LoggerConfig != nil {
		loggerCfg := *cfg.LoggerConfig
		loggerCfg.serviceName = cfg.ServiceName
		middlewares = append(middlewares, Logger(loggerCfg))
	}

	if cfg.RateLimitConfig != nil {
		middlewares = append(middlewares, RateLimit(*cfg.RateLimitConfig))
	}

	if cfg.HealthHandler != nil {
		*cfg.HealthHandler = NewHealthHandler(
			WithHealthServiceName(cfg.ServiceName),
			WithVersion(cfg.HealthVersion),
		)
	}

	middlewares = append(middlewares, cfg.Middleware...)

	handler := cfg.Handler
	if handler != nil && len(middlewares) > 0 {
		handler = Chain(middlewares...)(handler)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			MaxHeaderBytes:    cfg.MaxHeaderBytes,
			TLSConfig:         cfg.TLSConfig,
		},
		config: cfg,
		logger: logger,
	}
}

// ListenAndServe listens on the configured address and blocks until
// shutdown. A clean shutdown returns nil.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.config.Handler == nil {
		return ErrNoHandler
	}
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("httpserver: listen %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// ListenAndServeTLS is ListenAndServe over TLS.
func (s *Server) ListenAndServeTLS(ctx context.Context, certFile, keyFile string) error {
	if s.config.Handler == nil {
		return ErrNoHandler
	}
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("httpserver: listen %s: %w", s.httpServer.Addr, err)
	}
	return s.serve(ctx, ln, func() error {
		return s.httpServer.ServeTLS(ln, certFile, keyFile)
	})
}

// Serve accepts connections on ln until ctx is cancelled or a shutdown
// signal arrives. The listener is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.config.Handler == nil {
		_ = ln.Close()
		return ErrNoHandler
	}
	return s.serve(ctx, ln, func() error {
		return s.httpServer.Serve(ln)
	})
}

func (s *Server) serve(ctx context.Context, ln net.Listener, run func() error) error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(signals)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().
			Str("addr", ln.Addr().String()).
			Bool("tls", s.httpServer.TLSConfig != nil).
			Msg("server starting")

		err := run()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.logger.Error().Err(err).Msg("server error")
			return err
		}
		return nil
	case sig := <-signals:
		s.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case <-ctx.Done():
		s.logger.Info().Err(ctx.Err()).Msg("context cancelled, shutting down")
	}

	return s.shutdown(context.WithoutCancel(ctx))
}

func (s *Server) shutdown(ctx context.Context) error {
	s.logger.Info().Dur("timeout", s.config.ShutdownTimeout).Msg("starting graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("graceful shutdown failed, forcing close")
		if closeErr := s.httpServer.Close(); closeErr != nil {
			s.logger.Error().Err(closeErr).Msg("force close failed")
		}
		return err
	}

	s.logger.Info().Msg("server stopped gracefully")
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// ServiceName returns the configured service name.
func (s *Server) ServiceName() string {
	return s.config.ServiceName
}
