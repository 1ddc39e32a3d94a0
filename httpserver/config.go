package httpserver

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Config holds the HTTP server configuration.
//
// Start from DefaultConfig or DevelopmentConfig and override fields:
//
//	cfg := httpserver.DefaultConfig()
//	cfg.Addr = ":3000"
type Config struct {
	// Addr is the TCP address to listen on (default ":8080").
	Addr string

	// ServiceName is used by metrics, tracing, logs and health replies.
	ServiceName string

	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	// TLSConfig switches the server to HTTPS when set.
	TLSConfig *tls.Config

	// Logger receives lifecycle events. Request logs use LoggerConfig.
	Logger zerolog.Logger

	// Middleware wraps Handler, after the built-in middleware.
	Middleware []Middleware

	// Handler is required; set it with WithHandler.
	Handler http.Handler

	// ShutdownTimeout bounds the wait for in-flight requests on shutdown.
	ShutdownTimeout time.Duration

	TracingConfig   *TracingConfig
	MetricsConfig   *MetricsConfig
	LoggerConfig    *LoggerConfig
	RateLimitConfig *RateLimitConfig

	// HealthHandler is populated by WithHealth.
	HealthHandler **HealthHandler
	HealthVersion string
}

// DefaultConfig returns timeouts suitable for a long-running server.
//
//   - ReadTimeout: 15s
//   - WriteTimeout: 15s
//   - IdleTimeout: 60s
//   - ShutdownTimeout: 10s
func DefaultConfig() Config {
	return Config{
		Addr:              ":8080",
		ServiceName:       "http-server",
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
		ShutdownTimeout:   10 * time.Second,
	}
}

// DevelopmentConfig drops read/write timeouts (breakpoints and slow-reply
// simulations stay usable) and shuts down quickly.
//
//   - ReadTimeout: 0 (unlimited)
//   - WriteTimeout: 0 (unlimited)
//   - IdleTimeout: 120s
//   - ShutdownTimeout: 3s
func DevelopmentConfig() Config {
	return Config{
		Addr:            ":8080",
		ServiceName:     "http-server",
		IdleTimeout:     120 * time.Second,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: 3 * time.Second,
	}
}
