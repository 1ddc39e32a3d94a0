package httpclient

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures client-level rate limiting.
// Each attempt, including retries, takes one token.
type RateLimitConfig struct {
	// RequestsPerSecond is the maximum sustained request rate.
	RequestsPerSecond float64

	// Burst is the maximum number of requests allowed in a burst.
	Burst int

	// WaitOnLimit determines behavior when the limit is hit.
	// If true, attempts wait for a token within their own timeout.
	// If false, attempts fail immediately with ErrRateLimited.
	WaitOnLimit bool
}

// DefaultRateLimitConfig returns 10 requests per second with a burst of 5,
// waiting for tokens.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 10,
		Burst:             5,
		WaitOnLimit:       true,
	}
}

// ErrRateLimited is returned when an attempt is rejected by the limiter.
// The client surfaces it as a status-0 APIError.
var ErrRateLimited = errors.New("rate limit exceeded")

// rateLimitTransport implements http.RoundTripper with rate limiting.
type rateLimitTransport struct {
	next    http.RoundTripper
	limiter *rate.Limiter
	wait    bool
}

// newRateLimitTransport wraps next, or returns it unchanged when cfg is nil
// or disables limiting.
func newRateLimitTransport(next http.RoundTripper, cfg *RateLimitConfig) http.RoundTripper {
	if cfg == nil || cfg.RequestsPerSecond <= 0 {
		return next
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &rateLimitTransport{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		wait:    cfg.WaitOnLimit,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if !t.wait {
		if !t.limiter.Allow() {
			return nil, ErrRateLimited
		}
		return t.next.RoundTrip(req)
	}

	if err := t.limiter.Wait(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		// Wait fails fast when the deadline is closer than the next token.
		return nil, ErrRateLimited
	}

	return t.next.RoundTrip(req)
}
