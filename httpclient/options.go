package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	// scope is the instrumentation scope name for OpenTelemetry.
	scope = "github.com/kroma-labs/rainlogger-go/httpclient"
)

// =============================================================================
// Config - HTTP Transport Configuration
// =============================================================================

// Config holds the connection-level settings of the underlying
// http.Transport. Request-level resilience (timeouts, retries) lives in
// RetryPolicy instead.
//
// Example:
//
//	cfg := httpclient.DefaultConfig()
//	cfg.MaxIdleConnsPerHost = 4
//
//	client := httpclient.New(
//	    httpclient.WithConfig(cfg),
//	    httpclient.WithServiceName("rainlogger-cli"),
//	)
type Config struct {
	// MaxIdleConns caps idle keep-alive connections across all hosts.
	// Default: 20
	MaxIdleConns int

	// MaxIdleConnsPerHost caps idle keep-alive connections per host. The
	// rainlogger talks to two hosts (auth and rainlogger APIs), so a small
	// pool is enough.
	// Default: 10
	MaxIdleConnsPerHost int

	// MaxConnsPerHost limits idle plus active connections per host.
	// Zero means unlimited.
	// Default: 20
	MaxConnsPerHost int

	// IdleConnTimeout is how long an idle connection stays in the pool.
	// Default: 90s
	IdleConnTimeout time.Duration

	// TLSHandshakeTimeout bounds the TLS handshake.
	// Default: 10s
	TLSHandshakeTimeout time.Duration

	// ExpectContinueTimeout is the wait for "100 Continue" after sending
	// "Expect: 100-continue".
	// Default: 1s
	ExpectContinueTimeout time.Duration

	// ResponseHeaderTimeout bounds the wait for response headers after the
	// request is written. Zero defers to the per-attempt timeout.
	// Default: 0
	ResponseHeaderTimeout time.Duration

	// DialTimeout bounds TCP connection establishment.
	// Default: 5s
	DialTimeout time.Duration

	// KeepAlive is the TCP keep-alive probe interval.
	// Default: 30s
	KeepAlive time.Duration

	// DisableKeepAlives forces a new connection per request.
	// Default: false
	DisableKeepAlives bool

	// DisableCompression disables transparent gzip.
	// Default: true
	DisableCompression bool

	// ForceHTTP2 attempts HTTP/2 when a custom dialer or TLS config is set.
	// Default: false
	ForceHTTP2 bool
}

// DefaultConfig returns connection settings sized for a CLI or small
// service talking to a couple of JSON APIs.
func DefaultConfig() Config {
	return Config{
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 0,
		DialTimeout:           5 * time.Second,
		KeepAlive:             30 * time.Second,
		DisableKeepAlives:     false,
		DisableCompression:    true,
		ForceHTTP2:            false,
	}
}

// LowLatencyConfig returns settings that fail fast on slow connects and
// slow response headers.
//
// Best for:
//   - Interactive commands where a user is waiting
//   - Health probes
func LowLatencyConfig() Config {
	cfg := DefaultConfig()
	cfg.TLSHandshakeTimeout = 5 * time.Second
	cfg.ResponseHeaderTimeout = 5 * time.Second
	cfg.DialTimeout = 2 * time.Second
	cfg.KeepAlive = 15 * time.Second
	return cfg
}

// =============================================================================
// Internal Configuration
// =============================================================================

// internalConfig holds all client configuration.
type internalConfig struct {
	httpConfig Config

	// === Request defaults ===

	// BaseURL is used when a call passes an empty base URL.
	BaseURL string

	// DefaultHeaders are applied to every request, after the content type
	// and authorization headers and before the caller's headers.
	DefaultHeaders http.Header

	// TokenStore supplies the bearer token. Nil means no Authorization.
	TokenStore TokenStore

	// RetryPolicy is the default per-call policy.
	RetryPolicy RetryPolicy

	// OnRetry is called before each retry wait.
	OnRetry func(RetryEvent)

	// RequestInterceptors run on every attempt, after headers are built.
	RequestInterceptors []RequestInterceptor

	// === Logging ===

	// Logger receives retry warnings and, in debug mode, request and
	// response lines. Default: zerolog.Nop()
	Logger zerolog.Logger

	// Debug enables request/response logging at debug level.
	Debug bool

	// GenerateCurl attaches an equivalent cURL command to each response.
	GenerateCurl bool

	// === Resilience layers ===

	// BreakerConfig enables the circuit breaker transport when set.
	BreakerConfig *BreakerConfig

	// RateLimit enables the client-side rate limiter when set.
	RateLimit *RateLimitConfig

	// MockTransport replaces the network transport (tests only).
	MockTransport *MockTransport

	// === OpenTelemetry ===

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Metrics        *metrics

	// Propagators inject trace context into outgoing headers.
	// Default: TraceContext + Baggage
	Propagators propagation.TextMapPropagator

	// ServiceName is added as "http.client.name" to spans and metrics.
	ServiceName string

	// EnableNetworkTrace records DNS/connect/TLS timing. Default: true
	EnableNetworkTrace bool

	// === Transport ===

	TLSConfig            *tls.Config
	ProxyURL             *url.URL
	ProxyFromEnvironment bool
}

// newConfig creates a new internal config with defaults and applies options.
func newConfig(opts ...Option) *internalConfig {
	cfg := &internalConfig{
		httpConfig:     DefaultConfig(),
		RetryPolicy:    DefaultRetryPolicy(),
		Logger:         zerolog.Nop(),
		TracerProvider: otel.GetTracerProvider(),
		MeterProvider:  otel.GetMeterProvider(),

		EnableNetworkTrace:   true,
		ProxyFromEnvironment: true,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Propagators == nil {
		cfg.Propagators = propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		)
	}

	cfg.Tracer = cfg.TracerProvider.Tracer(scope)
	cfg.Meter = cfg.MeterProvider.Meter(scope)

	// Metrics stay nil on error; every record method is nil-safe.
	cfg.Metrics, _ = newMetrics(cfg.Meter)

	return cfg
}

// buildTransport creates an http.Transport from the configuration.
func (cfg *internalConfig) buildTransport() *http.Transport {
	hc := cfg.httpConfig

	dialer := &net.Dialer{
		Timeout:   hc.DialTimeout,
		KeepAlive: hc.KeepAlive,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          hc.MaxIdleConns,
		MaxIdleConnsPerHost:   hc.MaxIdleConnsPerHost,
		MaxConnsPerHost:       hc.MaxConnsPerHost,
		IdleConnTimeout:       hc.IdleConnTimeout,
		TLSHandshakeTimeout:   hc.TLSHandshakeTimeout,
		ResponseHeaderTimeout: hc.ResponseHeaderTimeout,
		ExpectContinueTimeout: hc.ExpectContinueTimeout,
		DisableKeepAlives:     hc.DisableKeepAlives,
		DisableCompression:    hc.DisableCompression,
		TLSClientConfig:       cfg.TLSConfig,
		ForceAttemptHTTP2:     hc.ForceHTTP2,
	}

	if cfg.ProxyURL != nil {
		transport.Proxy = http.ProxyURL(cfg.ProxyURL)
	} else if cfg.ProxyFromEnvironment {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return transport
}

// baseAttributes returns common attributes for all spans and metrics.
func (cfg *internalConfig) baseAttributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 1)
	if cfg.ServiceName != "" {
		attrs = append(attrs, attribute.String("http.client.name", cfg.ServiceName))
	}
	return attrs
}

// =============================================================================
// Options - Functional Options for Client Configuration
// =============================================================================

// Option configures the HTTP client.
type Option func(*internalConfig)

// WithConfig sets the HTTP transport configuration.
// Use DefaultConfig() or LowLatencyConfig() as a starting point.
func WithConfig(c Config) Option {
	return func(cfg *internalConfig) {
		cfg.httpConfig = c
	}
}

// WithBaseURL sets the base URL used when a call passes an empty one.
//
// Example:
//
//	client := httpclient.New(httpclient.WithBaseURL("https://api.example.com"))
//	user, err := httpclient.Get[User](ctx, client, "", "/v1/users/me", nil)
func WithBaseURL(baseURL string) Option {
	return func(cfg *internalConfig) {
		cfg.BaseURL = baseURL
	}
}

// WithDefaultHeader adds a header sent with every request.
func WithDefaultHeader(key, value string) Option {
	return func(cfg *internalConfig) {
		if cfg.DefaultHeaders == nil {
			cfg.DefaultHeaders = make(http.Header)
		}
		cfg.DefaultHeaders.Set(key, value)
	}
}

// WithTokenStore sets the store the client reads bearer tokens from.
// The token is read once per call, when headers are built.
func WithTokenStore(store TokenStore) Option {
	return func(cfg *internalConfig) {
		cfg.TokenStore = store
	}
}

// WithRetryPolicy sets the client's default retry policy.
// Individual calls can still override fields with request options.
//
// Example:
//
//	client := httpclient.New(
//	    httpclient.WithRetryPolicy(httpclient.PersistentRetryPolicy()),
//	)
func WithRetryPolicy(p RetryPolicy) Option {
	return func(cfg *internalConfig) {
		cfg.RetryPolicy = p
	}
}

// WithOnRetry registers a callback invoked before every retry wait.
func WithOnRetry(fn func(RetryEvent)) Option {
	return func(cfg *internalConfig) {
		cfg.OnRetry = fn
	}
}

// WithRequestInterceptor adds an interceptor run on every attempt.
// Interceptors run in the order they are added.
func WithRequestInterceptor(i RequestInterceptor) Option {
	return func(cfg *internalConfig) {
		cfg.RequestInterceptors = append(cfg.RequestInterceptors, i)
	}
}

// WithLogger sets the logger for retry warnings and debug output.
//
// Example:
//
//	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
//	client := httpclient.New(httpclient.WithLogger(logger))
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *internalConfig) {
		cfg.Logger = logger
	}
}

// WithDebug enables request/response logging at debug level.
func WithDebug() Option {
	return func(cfg *internalConfig) {
		cfg.Debug = true
	}
}

// WithGenerateCurl attaches an equivalent cURL command to every response,
// available through Response.CurlCommand. In debug mode it is also logged.
func WithGenerateCurl() Option {
	return func(cfg *internalConfig) {
		cfg.GenerateCurl = true
	}
}

// WithBreakerConfig enables the circuit breaker transport.
//
// Example - local breaker:
//
//	client := httpclient.New(
//	    httpclient.WithBreakerConfig(httpclient.DefaultBreakerConfig()),
//	)
//
// Example - breaker state shared through Redis:
//
//	rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{"localhost:6379"}})
//	client := httpclient.New(
//	    httpclient.WithBreakerConfig(httpclient.DistributedBreakerConfig(httpclient.NewRedisStore(rdb))),
//	)
func WithBreakerConfig(bc BreakerConfig) Option {
	return func(cfg *internalConfig) {
		cfg.BreakerConfig = &bc
	}
}

// WithRateLimit enables client-side rate limiting.
func WithRateLimit(rl RateLimitConfig) Option {
	return func(cfg *internalConfig) {
		cfg.RateLimit = &rl
	}
}

// WithServiceName sets an identifier for this client in traces and metrics
// ("http.client.name"). It also names the circuit breaker.
func WithServiceName(name string) Option {
	return func(cfg *internalConfig) {
		cfg.ServiceName = name
	}
}

// WithTracerProvider sets a custom OpenTelemetry TracerProvider.
// If not called, the global provider from otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *internalConfig) {
		cfg.TracerProvider = tp
	}
}

// WithMeterProvider sets a custom OpenTelemetry MeterProvider.
// If not called, the global provider from otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *internalConfig) {
		cfg.MeterProvider = mp
	}
}

// WithPropagators sets the propagators used to inject trace context.
func WithPropagators(p propagation.TextMapPropagator) Option {
	return func(cfg *internalConfig) {
		cfg.Propagators = p
	}
}

// WithDisableNetworkTrace turns off DNS/connect/TLS timing collection.
func WithDisableNetworkTrace() Option {
	return func(cfg *internalConfig) {
		cfg.EnableNetworkTrace = false
	}
}

// WithTLSConfig sets a custom TLS configuration.
func WithTLSConfig(tlsCfg *tls.Config) Option {
	return func(cfg *internalConfig) {
		cfg.TLSConfig = tlsCfg
	}
}

// WithProxyURL routes all requests through the given proxy. It takes
// precedence over the proxy environment variables.
func WithProxyURL(proxyURL *url.URL) Option {
	return func(cfg *internalConfig) {
		cfg.ProxyURL = proxyURL
		cfg.ProxyFromEnvironment = false
	}
}
