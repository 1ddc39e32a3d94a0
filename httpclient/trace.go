package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http/httptrace"
	"strings"
	"syscall"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Error type classifications for the error.type attribute.
const (
	ErrorTypeTimeout           = "timeout"
	ErrorTypeConnectionRefused = "connection_refused"
	ErrorTypeConnectionReset   = "connection_reset"
	ErrorTypeDNSError          = "dns_error"
	ErrorTypeTLSError          = "tls_error"
	ErrorTypeCancelled         = "cancelled"
	ErrorTypeCircuitOpen       = "circuit_open"
	ErrorTypeRateLimited       = "rate_limited"
	ErrorTypeEOF               = "eof"
	ErrorTypeUnknown           = "unknown"
)

// networkTrace collects connection timing for one attempt.
type networkTrace struct {
	dnsStart, dnsDone         time.Time
	connectStart, connectDone time.Time
	tlsStart, tlsDone         time.Time
	wroteRequest, firstByte   time.Time

	connReused bool
	remoteAddr string
}

// clientTrace returns an httptrace.ClientTrace that fills nt.
func (nt *networkTrace) clientTrace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			nt.connReused = info.Reused
			if info.Conn != nil && info.Conn.RemoteAddr() != nil {
				nt.remoteAddr = info.Conn.RemoteAddr().String()
			}
		},
		DNSStart:          func(httptrace.DNSStartInfo) { nt.dnsStart = time.Now() },
		DNSDone:           func(httptrace.DNSDoneInfo) { nt.dnsDone = time.Now() },
		ConnectStart:      func(_, _ string) { nt.connectStart = time.Now() },
		ConnectDone:       func(_, _ string, _ error) { nt.connectDone = time.Now() },
		TLSHandshakeStart: func() { nt.tlsStart = time.Now() },
		TLSHandshakeDone:  func(tls.ConnectionState, error) { nt.tlsDone = time.Now() },
		WroteRequest:      func(httptrace.WroteRequestInfo) { nt.wroteRequest = time.Now() },
		GotFirstResponseByte: func() {
			nt.firstByte = time.Now()
		},
	}
}

// addTraceEvents adds span events for the phases that happened.
func (nt *networkTrace) addTraceEvents(span trace.Span) {
	if !span.IsRecording() {
		return
	}

	if phase, ok := durationOf(nt.dnsStart, nt.dnsDone); ok {
		span.AddEvent("dns.done", trace.WithTimestamp(nt.dnsDone),
			trace.WithAttributes(attribute.Int64("dns.duration_ms", phase.Milliseconds())))
	}
	if phase, ok := durationOf(nt.connectStart, nt.connectDone); ok {
		span.AddEvent("connect.done", trace.WithTimestamp(nt.connectDone),
			trace.WithAttributes(attribute.Int64("connect.duration_ms", phase.Milliseconds())))
	}
	if phase, ok := durationOf(nt.tlsStart, nt.tlsDone); ok {
		span.AddEvent("tls.done", trace.WithTimestamp(nt.tlsDone),
			trace.WithAttributes(attribute.Int64("tls.duration_ms", phase.Milliseconds())))
	}

	span.SetAttributes(attribute.Bool("connection.reused", nt.connReused))
	if nt.remoteAddr != "" {
		span.SetAttributes(attribute.String("network.peer.address", nt.remoteAddr))
	}

	if phase, ok := durationOf(nt.wroteRequest, nt.firstByte); ok {
		span.AddEvent("got_first_response_byte", trace.WithTimestamp(nt.firstByte),
			trace.WithAttributes(attribute.Int64("ttfb_ms", phase.Milliseconds())))
	}
}

// recordTimingMetrics records the phase durations that happened.
func (nt *networkTrace) recordTimingMetrics(ctx context.Context, m *metrics, attrs []attribute.KeyValue) {
	if m == nil {
		return
	}
	if d, ok := durationOf(nt.dnsStart, nt.dnsDone); ok {
		m.recordDNSDuration(ctx, d, attrs)
	}
	if d, ok := durationOf(nt.connectStart, nt.connectDone); ok {
		m.recordConnectionDuration(ctx, d, attrs)
	}
	if d, ok := durationOf(nt.tlsStart, nt.tlsDone); ok {
		m.recordTLSDuration(ctx, d, attrs)
	}
	if d, ok := durationOf(nt.wroteRequest, nt.firstByte); ok {
		m.recordTTFB(ctx, d, attrs)
	}
}

func durationOf(start, end time.Time) (time.Duration, bool) {
	if start.IsZero() || end.IsZero() {
		return 0, false
	}
	return end.Sub(start), true
}

// classifyError returns an error.type classification for a transport error.
func classifyError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, context.Canceled):
		return ErrorTypeCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeTimeout
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return ErrorTypeCircuitOpen
	case errors.Is(err, ErrRateLimited):
		return ErrorTypeRateLimited
	case errors.Is(err, syscall.ECONNREFUSED):
		return ErrorTypeConnectionRefused
	case errors.Is(err, syscall.ECONNRESET):
		return ErrorTypeConnectionReset
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return ErrorTypeEOF
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTypeTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrorTypeDNSError
	}

	var certErr *tls.CertificateVerificationError
	var recordErr tls.RecordHeaderError
	if errors.As(err, &certErr) || errors.As(err, &recordErr) {
		return ErrorTypeTLSError
	}

	// Fallback for wrapped errors from third-party transports.
	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "timeout"):
		return ErrorTypeTimeout
	case strings.Contains(errStr, "connection refused"):
		return ErrorTypeConnectionRefused
	case strings.Contains(errStr, "connection reset"):
		return ErrorTypeConnectionReset
	case strings.Contains(errStr, "no such host"):
		return ErrorTypeDNSError
	case strings.Contains(errStr, "x509"), strings.Contains(errStr, "tls"):
		return ErrorTypeTLSError
	}

	return ErrorTypeUnknown
}

// setSpanError records an error on the span with proper status and attributes.
func setSpanError(span trace.Span, err error, errorType string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if errorType != "" {
		span.SetAttributes(attribute.String("error.type", errorType))
	}
}
