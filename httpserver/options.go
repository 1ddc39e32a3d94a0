package httpserver

import (
	"net/http"

	"github.com/rs/zerolog"
)

// Option configures the server.
type Option func(*Config)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(c *Config) {
		*c = cfg
	}
}

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(c *Config) {
		c.Addr = addr
	}
}

// WithServiceName sets the service name. It is passed on to tracing,
// metrics, request logs and health replies.
func WithServiceName(name string) Option {
	return func(c *Config) {
		c.ServiceName = name
	}
}

// WithHandler sets the HTTP handler. Required.
func WithHandler(h http.Handler) Option {
	return func(c *Config) {
		c.Handler = h
	}
}

// WithLogger sets the lifecycle logger. For per-request logs use WithLogging.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithMiddleware appends middleware. The first one given is outermost.
func WithMiddleware(ms ...Middleware) Option {
	return func(c *Config) {
		c.Middleware = append(c.Middleware, ms...)
	}
}

// WithTracing enables the OpenTelemetry tracing middleware.
func WithTracing(cfg TracingConfig) Option {
	return func(c *Config) {
		c.TracingConfig = &cfg
	}
}

// WithMetrics enables the OpenTelemetry metrics middleware.
func WithMetrics(cfg MetricsConfig) Option {
	return func(c *Config) {
		c.MetricsConfig = &cfg
	}
}

// WithLogging enables request logging.
func WithLogging(cfg LoggerConfig) Option {
	return func(c *Config) {
		c.LoggerConfig = &cfg
	}
}

// WithRateLimit enables a server-wide rate limit. For per-route limits use
// the RateLimit middleware on the route.
func WithRateLimit(cfg RateLimitConfig) Option {
	return func(c *Config) {
		c.RateLimitConfig = &cfg
	}
}

// WithHealth creates a HealthHandler carrying the server's service name and
// stores it in *handler once New runs:
//
//	var health *httpserver.HealthHandler
//	srv := httpserver.New(httpserver.WithHealth(&health, "1.0.0"), ...)
//	health.AddReadinessCheck("store", store.Ping)
func WithHealth(handler **HealthHandler, version string) Option {
	return func(c *Config) {
		c.HealthVersion = version
		c.HealthHandler = handler
	}
}
