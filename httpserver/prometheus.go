package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouteFunc names the route of a request for metric labels. Using the
// route pattern instead of the raw path keeps label cardinality bounded.
type RouteFunc func(r *http.Request) string

// PrometheusMetrics records request metrics into its own registry and
// serves them in the Prometheus text format.
type PrometheusMetrics struct {
	registry *prometheus.Registry
	route    RouteFunc

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
}

// NewPrometheusMetrics creates a registry with Go runtime and process
// collectors plus the HTTP request metrics, prefixed with namespace.
// A nil route labels requests by URL path.
func NewPrometheusMetrics(namespace string, route RouteFunc) *PrometheusMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if route == nil {
		route = func(r *http.Request) string { return r.URL.Path }
	}

	factory := promauto.With(reg)
	return &PrometheusMetrics{
		registry: reg,
		route:    route,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   defaultDurationBuckets,
			},
			[]string{"method", "route"},
		),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests being served",
		}),
	}
}

// Registerer lets callers add their own collectors to the registry.
func (p *PrometheusMetrics) Registerer() prometheus.Registerer {
	return p.registry
}

// Gatherer exposes the registry for tests and custom handlers.
func (p *PrometheusMetrics) Gatherer() prometheus.Gatherer {
	return p.registry
}

// Handler serves the registry on /metrics.
func (p *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Middleware returns middleware that records the request metrics.
func (p *PrometheusMetrics) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			p.inFlight.Inc()
			defer p.inFlight.Dec()

			wrapped := wrapResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			// The route is resolved after routing so pattern-based RouteFuncs see it.
			route := p.route(r)
			p.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.Status())).Inc()
			p.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}
