package httpserver

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/kroma-labs/rainlogger-go/httpserver"

// TracingConfig configures the tracing middleware.
type TracingConfig struct {
	// TracerProvider defaults to otel.GetTracerProvider().
	TracerProvider trace.TracerProvider

	// Propagator defaults to otel.GetTextMapPropagator().
	Propagator propagation.TextMapPropagator

	// serviceName is set internally by the server.
	serviceName string

	// SkipPaths are not traced.
	SkipPaths []string

	// SpanNameFormatter defaults to "HTTP {method} {path}".
	SpanNameFormatter func(r *http.Request) string
}

// Tracing returns middleware that starts a server span per request.
//
// The incoming W3C trace context is extracted first, so a span started by
// the request client's transport becomes the parent of the server span.
// 5xx replies mark the span as an error.
func Tracing(cfg TracingConfig) Middleware {
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.Propagator == nil {
		cfg.Propagator = otel.GetTextMapPropagator()
	}
	if cfg.SpanNameFormatter == nil {
		cfg.SpanNameFormatter = func(r *http.Request) string {
			return "HTTP " + r.Method + " " + r.URL.Path
		}
	}

	tracer := cfg.TracerProvider.Tracer(instrumentationName)

	skipPaths := make(map[string]bool, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skipPaths[path] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			ctx := cfg.Propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			attrs := []attribute.KeyValue{
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.URLPath(r.URL.Path),
				semconv.ServerAddress(r.Host),
				semconv.UserAgentOriginal(r.UserAgent()),
				semconv.ClientAddress(r.RemoteAddr),
			}
			if cfg.serviceName != "" {
				attrs = append(attrs, semconv.ServiceName(cfg.serviceName))
			}

			ctx, span := tracer.Start(ctx, cfg.SpanNameFormatter(r),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...),
			)
			defer span.End()

			if requestID := RequestIDFromContext(ctx); requestID != "" {
				span.SetAttributes(attribute.String("request.id", requestID))
			}

			wrapped := wrapResponseWriter(w)
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			status := wrapped.Status()
			span.SetAttributes(semconv.HTTPResponseStatusCode(status))
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
		})
	}
}
