package httpclient

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// retry runs fn until it succeeds, fails with a non-retryable error, or
// the policy's attempts are used up. Waits follow a DoublingBackOff of
// policy.RetryDelay. The returned error is always an *APIError; on
// exhaustion it is the last attempt's error.
//
// Cancelling ctx stops the loop, including a pending wait.
func (c *Client) retry(
	ctx context.Context,
	operation string,
	policy RetryPolicy,
	fn func() (*Response, error),
) (*Response, error) {
	cfg := c.config
	classify := policy.classifier()
	span := trace.SpanFromContext(ctx)

	var (
		attempts  int
		startTime = time.Now()
	)

	resp, err := backoff.Retry(ctx, func() (*Response, error) {
		attempts++

		resp, err := fn()
		if err == nil {
			return resp, nil
		}

		apiErr := normalizeError(err)
		if !classify(apiErr) {
			return nil, backoff.Permanent(apiErr)
		}
		return nil, apiErr
	},
		backoff.WithBackOff(NewDoublingBackOff(policy.RetryDelay)),
		backoff.WithMaxTries(policy.maxAttempts()),
		// The attempt count is the only bound; the library default caps
		// the whole loop at 15 minutes.
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.notifyRetry(ctx, span, RetryEvent{
				Operation: operation,
				Attempt:   attempts,
				Delay:     next,
				Err:       normalizeError(err),
			})
		}),
	)

	if attempts > 1 {
		if span.IsRecording() {
			span.SetAttributes(
				attribute.Int("http.retry_count", attempts-1),
				attribute.Bool("http.retry_success", err == nil),
			)
		}
		if err != nil {
			cfg.Metrics.recordRetryExhausted(ctx, cfg.baseAttributes())
		}
		cfg.Metrics.recordRetryDuration(ctx, cfg.baseAttributes(), time.Since(startTime))
	}

	if err != nil {
		return nil, normalizeError(err)
	}

	resp.attempts = attempts
	return resp, nil
}

// notifyRetry reports a retry to the span, metrics, logger and callback.
func (c *Client) notifyRetry(ctx context.Context, span trace.Span, ev RetryEvent) {
	cfg := c.config

	if span.IsRecording() {
		span.AddEvent("http.retry", trace.WithAttributes(
			attribute.Int("retry.attempt", ev.Attempt),
			attribute.Int64("retry.delay_ms", ev.Delay.Milliseconds()),
			attribute.Int("retry.status", ev.Err.Status),
			attribute.String("retry.reason", retryReason(ev.Err)),
		))
	}

	cfg.Metrics.recordRetryAttempt(ctx, cfg.baseAttributes(), ev.Attempt)

	cfg.Logger.Warn().
		Str("operation", ev.Operation).
		Int("attempt", ev.Attempt).
		Int("status", ev.Err.Status).
		Dur("delay", ev.Delay).
		Err(ev.Err).
		Msg("retrying request")

	if cfg.OnRetry != nil {
		cfg.OnRetry(ev)
	}
}

// retryReason returns a short label for why an attempt is being retried.
func retryReason(err *APIError) string {
	if err.IsTransport() {
		if err.IsTimeout() {
			return ErrorTypeTimeout
		}
		if reason := classifyError(err.Unwrap()); reason != "" {
			return reason
		}
		return ErrorTypeUnknown
	}
	return statusText(err.Status)
}
