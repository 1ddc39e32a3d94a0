package httpclient

import (
	"fmt"
	"net/http"
	"net/http/httptrace"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var _ http.RoundTripper = (*otelTransport)(nil)

// otelTransport wraps an http.RoundTripper with a client span and metrics
// per attempt. Retries therefore show up as sibling spans under the
// caller's span, each annotated with its own outcome.
type otelTransport struct {
	base http.RoundTripper
	cfg  *internalConfig
}

// newOtelTransport creates a new instrumented transport.
func newOtelTransport(base http.RoundTripper, cfg *internalConfig) *otelTransport {
	return &otelTransport{base: base, cfg: cfg}
}

// RoundTrip implements http.RoundTripper.
func (t *otelTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	ctx, span := t.cfg.Tracer.Start(req.Context(), "HTTP "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(t.requestAttributes(req)...),
	)
	defer span.End()

	// Clone before mutating headers: the caller reuses its header set
	// across attempts.
	req = req.Clone(ctx)
	t.cfg.Propagators.Inject(ctx, propagation.HeaderCarrier(req.Header))

	baseAttrs := t.cfg.baseAttributes()
	t.cfg.Metrics.recordActiveRequestStart(ctx, baseAttrs)
	defer t.cfg.Metrics.recordActiveRequestEnd(ctx, baseAttrs)

	if req.ContentLength > 0 {
		t.cfg.Metrics.recordRequestBodySize(ctx, req.ContentLength, baseAttrs)
	}

	var nt *networkTrace
	if t.cfg.EnableNetworkTrace {
		nt = &networkTrace{}
		req = req.WithContext(httptrace.WithClientTrace(ctx, nt.clientTrace()))
	}

	resp, err := t.base.RoundTrip(req)
	duration := time.Since(start)

	if nt != nil {
		nt.addTraceEvents(span)
		nt.recordTimingMetrics(ctx, t.cfg.Metrics, baseAttrs)
	}

	if err != nil {
		errorType := classifyError(err)
		setSpanError(span, err, errorType)
		t.cfg.Metrics.recordError(ctx, errorType, baseAttrs)
		t.cfg.Metrics.recordRequestDuration(ctx, duration,
			append(t.serverAttributes(req), attribute.String("error.type", errorType)))
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.ContentLength > 0 {
		span.SetAttributes(attribute.Int64("http.response.body.size", resp.ContentLength))
		t.cfg.Metrics.recordResponseBodySize(ctx, resp.ContentLength, baseAttrs)
	}

	metricAttrs := append(t.serverAttributes(req),
		attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode >= 400 {
		errorType := strconv.Itoa(resp.StatusCode)
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", resp.StatusCode))
		span.SetAttributes(attribute.String("error.type", errorType))
		metricAttrs = append(metricAttrs, attribute.String("error.type", errorType))
	}

	t.cfg.Metrics.recordRequestDuration(ctx, duration, metricAttrs)

	return resp, nil
}

// requestAttributes returns span attributes for the request.
func (t *otelTransport) requestAttributes(req *http.Request) []attribute.KeyValue {
	attrs := t.serverAttributes(req)

	if req.URL != nil {
		attrs = append(attrs,
			attribute.String("url.full", redactedURL(req)),
			attribute.String("url.scheme", req.URL.Scheme),
		)
	}
	if req.ContentLength > 0 {
		attrs = append(attrs, attribute.Int64("http.request.body.size", req.ContentLength))
	}
	if ua := req.UserAgent(); ua != "" {
		attrs = append(attrs, attribute.String("user_agent.original", ua))
	}

	return attrs
}

// serverAttributes returns the low-cardinality attributes shared by spans
// and metrics: client name, method, server address and port.
func (t *otelTransport) serverAttributes(req *http.Request) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 6)
	attrs = append(attrs, t.cfg.baseAttributes()...)
	attrs = append(attrs, attribute.String("http.request.method", req.Method))

	if req.URL == nil {
		return attrs
	}

	if host := req.URL.Hostname(); host != "" {
		attrs = append(attrs, attribute.String("server.address", host))
	}

	if port := req.URL.Port(); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			attrs = append(attrs, attribute.Int("server.port", p))
		}
	} else {
		switch req.URL.Scheme {
		case "http":
			attrs = append(attrs, attribute.Int("server.port", 80))
		case "https":
			attrs = append(attrs, attribute.Int("server.port", 443))
		}
	}

	return attrs
}

// redactedURL drops user info so credentials never end up in spans.
func redactedURL(req *http.Request) string {
	if req.URL.User == nil {
		return req.URL.String()
	}
	u := *req.URL
	u.User = nil
	return u.String()
}
