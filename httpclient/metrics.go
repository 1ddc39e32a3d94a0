package httpclient

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metrics holds the metric instruments for HTTP client operations.
// All record methods are nil-safe so a failed registration only loses data.
type metrics struct {
	// === Per-attempt metrics (recorded by otelTransport) ===

	// requestDuration measures each attempt in seconds.
	requestDuration metric.Float64Histogram

	// requestBodySize measures request bodies in bytes.
	requestBodySize metric.Int64Histogram

	// responseBodySize measures response bodies in bytes, when known.
	responseBodySize metric.Int64Histogram

	// activeRequests tracks in-flight attempts.
	activeRequests metric.Int64UpDownCounter

	// requestErrors counts transport failures by error.type.
	requestErrors metric.Int64Counter

	// === Network timing ===

	dnsDuration        metric.Float64Histogram
	connectionDuration metric.Float64Histogram
	tlsDuration        metric.Float64Histogram
	ttfb               metric.Float64Histogram

	// === Retry metrics (recorded by the retry loop) ===

	// retryAttempts counts retries, not first attempts.
	retryAttempts metric.Int64Counter

	// retryExhausted counts calls that failed after at least one retry.
	retryExhausted metric.Int64Counter

	// retryDuration measures the whole call, waits included, for calls
	// that retried.
	retryDuration metric.Float64Histogram

	// === Circuit breaker ===

	// breakerRequests counts attempts by breaker outcome
	// (success, failure, rejected).
	breakerRequests metric.Int64Counter

	// breakerState reports the breaker state (0 closed, 1 half-open, 2 open).
	breakerState metric.Int64Gauge
}

// newMetrics creates and registers metric instruments.
func newMetrics(meter metric.Meter) (*metrics, error) {
	m := &metrics{}
	var err error

	latencyBuckets := metric.WithExplicitBucketBoundaries(
		0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
	)
	sizeBuckets := metric.WithExplicitBucketBoundaries(
		0, 100, 1024, 10*1024, 100*1024, 1024*1024,
	)
	networkBuckets := metric.WithExplicitBucketBoundaries(
		0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
	)

	if m.requestDuration, err = meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("Duration of HTTP client attempts in seconds"),
		metric.WithUnit("s"),
		latencyBuckets,
	); err != nil {
		return nil, err
	}

	if m.requestBodySize, err = meter.Int64Histogram(
		"http.client.request.body.size",
		metric.WithDescription("Size of HTTP client request bodies in bytes"),
		metric.WithUnit("By"),
		sizeBuckets,
	); err != nil {
		return nil, err
	}

	if m.responseBodySize, err = meter.Int64Histogram(
		"http.client.response.body.size",
		metric.WithDescription("Size of HTTP client response bodies in bytes"),
		metric.WithUnit("By"),
		sizeBuckets,
	); err != nil {
		return nil, err
	}

	if m.activeRequests, err = meter.Int64UpDownCounter(
		"http.client.active_requests",
		metric.WithDescription("Number of in-flight HTTP client attempts"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}

	if m.requestErrors, err = meter.Int64Counter(
		"http.client.request.error",
		metric.WithDescription("Number of HTTP client transport errors"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}

	if m.dnsDuration, err = meter.Float64Histogram(
		"http.client.dns.duration",
		metric.WithDescription("DNS lookup duration in seconds"),
		metric.WithUnit("s"),
		networkBuckets,
	); err != nil {
		return nil, err
	}

	if m.connectionDuration, err = meter.Float64Histogram(
		"http.client.connection.duration",
		metric.WithDescription("Time to establish a TCP connection in seconds"),
		metric.WithUnit("s"),
		networkBuckets,
	); err != nil {
		return nil, err
	}

	if m.tlsDuration, err = meter.Float64Histogram(
		"http.client.tls.duration",
		metric.WithDescription("TLS handshake duration in seconds"),
		metric.WithUnit("s"),
		networkBuckets,
	); err != nil {
		return nil, err
	}

	if m.ttfb, err = meter.Float64Histogram(
		"http.client.ttfb",
		metric.WithDescription("Time to first response byte in seconds"),
		metric.WithUnit("s"),
		latencyBuckets,
	); err != nil {
		return nil, err
	}

	if m.retryAttempts, err = meter.Int64Counter(
		"http.client.retry.attempts",
		metric.WithDescription("Number of HTTP client retries"),
		metric.WithUnit("{attempt}"),
	); err != nil {
		return nil, err
	}

	if m.retryExhausted, err = meter.Int64Counter(
		"http.client.retry.exhausted",
		metric.WithDescription("Number of calls that failed after retrying"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}

	if m.retryDuration, err = meter.Float64Histogram(
		"http.client.retry.duration",
		metric.WithDescription("Total duration of retried calls in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120),
	); err != nil {
		return nil, err
	}

	if m.breakerRequests, err = meter.Int64Counter(
		"http.client.breaker.requests",
		metric.WithDescription("Number of attempts by circuit breaker outcome"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}

	if m.breakerState, err = meter.Int64Gauge(
		"http.client.breaker.state",
		metric.WithDescription("Circuit breaker state: 0 closed, 1 half-open, 2 open"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// recordRequestDuration records the duration of one attempt.
func (m *metrics) recordRequestDuration(
	ctx context.Context,
	duration time.Duration,
	attrs []attribute.KeyValue,
) {
	if m == nil || m.requestDuration == nil {
		return
	}
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// recordRequestBodySize records the size of a request body.
func (m *metrics) recordRequestBodySize(ctx context.Context, size int64, attrs []attribute.KeyValue) {
	if m == nil || m.requestBodySize == nil {
		return
	}
	m.requestBodySize.Record(ctx, size, metric.WithAttributes(attrs...))
}

// recordResponseBodySize records the size of a response body.
func (m *metrics) recordResponseBodySize(ctx context.Context, size int64, attrs []attribute.KeyValue) {
	if m == nil || m.responseBodySize == nil {
		return
	}
	m.responseBodySize.Record(ctx, size, metric.WithAttributes(attrs...))
}

func (m *metrics) recordActiveRequestStart(ctx context.Context, attrs []attribute.KeyValue) {
	if m == nil || m.activeRequests == nil {
		return
	}
	m.activeRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metrics) recordActiveRequestEnd(ctx context.Context, attrs []attribute.KeyValue) {
	if m == nil || m.activeRequests == nil {
		return
	}
	m.activeRequests.Add(ctx, -1, metric.WithAttributes(attrs...))
}

// recordError records a transport error.
func (m *metrics) recordError(ctx context.Context, errorType string, attrs []attribute.KeyValue) {
	if m == nil || m.requestErrors == nil {
		return
	}
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, attrs...)
	allAttrs = append(allAttrs, attribute.String("error.type", errorType))
	m.requestErrors.Add(ctx, 1, metric.WithAttributes(allAttrs...))
}

func (m *metrics) recordDNSDuration(ctx context.Context, d time.Duration, attrs []attribute.KeyValue) {
	if m == nil || m.dnsDuration == nil {
		return
	}
	m.dnsDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}

func (m *metrics) recordConnectionDuration(ctx context.Context, d time.Duration, attrs []attribute.KeyValue) {
	if m == nil || m.connectionDuration == nil {
		return
	}
	m.connectionDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}

func (m *metrics) recordTLSDuration(ctx context.Context, d time.Duration, attrs []attribute.KeyValue) {
	if m == nil || m.tlsDuration == nil {
		return
	}
	m.tlsDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}

func (m *metrics) recordTTFB(ctx context.Context, d time.Duration, attrs []attribute.KeyValue) {
	if m == nil || m.ttfb == nil {
		return
	}
	m.ttfb.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}

// recordRetryAttempt records a retry.
func (m *metrics) recordRetryAttempt(ctx context.Context, attrs []attribute.KeyValue, attempt int) {
	if m == nil || m.retryAttempts == nil {
		return
	}
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, attrs...)
	allAttrs = append(allAttrs, attribute.Int("retry.attempt", attempt))
	m.retryAttempts.Add(ctx, 1, metric.WithAttributes(allAttrs...))
}

// recordRetryExhausted records a call that failed after retrying.
func (m *metrics) recordRetryExhausted(ctx context.Context, attrs []attribute.KeyValue) {
	if m == nil || m.retryExhausted == nil {
		return
	}
	m.retryExhausted.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// recordRetryDuration records the total duration of a retried call.
func (m *metrics) recordRetryDuration(ctx context.Context, attrs []attribute.KeyValue, d time.Duration) {
	if m == nil || m.retryDuration == nil {
		return
	}
	m.retryDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}

// recordBreakerRequest records an attempt's outcome at the circuit breaker.
func (m *metrics) recordBreakerRequest(ctx context.Context, name, result string) {
	if m == nil || m.breakerRequests == nil {
		return
	}
	m.breakerRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("breaker.name", name),
		attribute.String("breaker.result", result),
	))
}

// recordBreakerState records a circuit breaker state transition.
func (m *metrics) recordBreakerState(ctx context.Context, name string, state int64) {
	if m == nil || m.breakerState == nil {
		return
	}
	m.breakerState.Record(ctx, state, metric.WithAttributes(
		attribute.String("breaker.name", name),
	))
}
