package httpserver

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records OpenTelemetry server metrics.
type Metrics struct {
	serviceName     string
	skipPaths       map[string]bool
	requestDuration metric.Float64Histogram
	activeRequests  metric.Int64UpDownCounter
	requestTotal    metric.Int64Counter
	responseSize    metric.Int64Histogram
}

// MetricsConfig configures the OpenTelemetry metrics middleware.
type MetricsConfig struct {
	// MeterProvider defaults to otel.GetMeterProvider().
	MeterProvider metric.MeterProvider

	// serviceName is set internally by the server.
	serviceName string

	// SkipPaths are not recorded.
	SkipPaths []string

	// DurationBuckets in seconds.
	// Default: [0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10]
	DurationBuckets []float64
}

var defaultDurationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// NewMetrics creates the instruments.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = otel.GetMeterProvider()
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = defaultDurationBuckets
	}

	meter := cfg.MeterProvider.Meter(instrumentationName)

	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(cfg.DurationBuckets...),
	)
	if err != nil {
		return nil, err
	}

	activeRequests, err := meter.Int64UpDownCounter(
		"http.server.active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"http.server.request.total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	responseSize, err := meter.Int64Histogram(
		"http.server.response.size",
		metric.WithDescription("Size of HTTP response bodies in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}

	return &Metrics{
		serviceName:     cfg.serviceName,
		skipPaths:       skip,
		requestDuration: requestDuration,
		activeRequests:  activeRequests,
		requestTotal:    requestTotal,
		responseSize:    responseSize,
	}, nil
}

// Middleware returns middleware that records the instruments.
func (m *Metrics) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.skipPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ctx := r.Context()

			attrs := []attribute.KeyValue{
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
			}
			if m.serviceName != "" {
				attrs = append(attrs, attribute.String("service.name", m.serviceName))
			}

			m.activeRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
			defer m.activeRequests.Add(ctx, -1, metric.WithAttributes(attrs...))

			wrapped := wrapResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			withStatus := metric.WithAttributes(append(attrs,
				attribute.Int("http.response.status_code", wrapped.Status()))...)

			m.requestDuration.Record(ctx, time.Since(start).Seconds(), withStatus)
			m.responseSize.Record(ctx, int64(wrapped.BytesWritten()), withStatus)
			m.requestTotal.Add(ctx, 1, withStatus)
		})
	}
}
