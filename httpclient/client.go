package httpclient

import (
	"net/http"
)

// Client is a JSON-over-HTTP client with per-attempt timeouts, retry with
// doubling backoff, error normalization and OpenTelemetry instrumentation.
//
// A Client is safe for concurrent use. Apart from the connection pool and
// the optional circuit breaker and rate limiter, calls share no mutable
// state; the token store is only read.
//
// Create a Client using New():
//
//	client := httpclient.New(
//	    httpclient.WithTokenStore(store),
//	    httpclient.WithServiceName("rainlogger-cli"),
//	)
//
//	logs, err := httpclient.Get[Envelope](ctx, client, baseURL, "/v1/rainlogger/rainlog/filters", params)
type Client struct {
	// httpClient is the underlying HTTP client with transport chain.
	httpClient *http.Client

	// config holds all client configuration.
	config *internalConfig
}

// New creates a Client.
//
// The transport chain, innermost first:
//   - http.Transport (or the MockTransport in tests)
//   - rate limiter, when WithRateLimit is set
//   - circuit breaker, when WithBreakerConfig is set
//   - OpenTelemetry tracing and metrics
//
// Retries are not a transport layer: they run around the whole attempt,
// including reading the body, so they can classify the normalized error.
func New(opts ...Option) *Client {
	cfg := newConfig(opts...)

	var base http.RoundTripper
	if cfg.MockTransport != nil {
		base = cfg.MockTransport
	} else {
		base = cfg.buildTransport()
	}

	return newClient(base, cfg)
}

// NewWithTransport creates a Client on top of a custom base transport.
// The resilience layers and instrumentation are still wrapped around it.
//
// Example:
//
//	client := httpclient.NewWithTransport(http.DefaultTransport,
//	    httpclient.WithServiceName("rainlogger-cli"),
//	)
func NewWithTransport(base http.RoundTripper, opts ...Option) *Client {
	return newClient(base, newConfig(opts...))
}

func newClient(base http.RoundTripper, cfg *internalConfig) *Client {
	limited := newRateLimitTransport(base, cfg.RateLimit)
	withBreaker := newCircuitBreakerTransport(limited, cfg)
	instrumented := newOtelTransport(withBreaker, cfg)

	return &Client{
		// No client-wide timeout: every attempt carries its own deadline.
		httpClient: &http.Client{Transport: instrumented},
		config:     cfg,
	}
}

// HTTP returns the underlying *http.Client for callers that need to issue
// raw requests through the same instrumented transport chain.
func (c *Client) HTTP() *http.Client {
	return c.httpClient
}

// Request creates a new RequestBuilder for the given operation name.
//
// The operation name shows up in retry logs, debug logs and retry events.
//
// Example:
//
//	resp, err := client.Request("CreateRainLog").
//	    BaseURL(baseURL).
//	    Path("/v1/rainlogger/rainlog").
//	    Body(entry).
//	    Post(ctx)
func (c *Client) Request(operationName string) *RequestBuilder {
	return &RequestBuilder{
		client:        c,
		operationName: operationName,
		headers:       make(http.Header),
		pathParams:    make(map[string]string),
		policy:        c.config.RetryPolicy,
	}
}
