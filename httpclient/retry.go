package httpclient

import (
	"time"
)

// RetryPolicy holds the per-call resilience knobs: the per-attempt timeout,
// the number of retries and the base delay of the doubling backoff.
//
// A client carries a default policy (see WithRetryPolicy) and every call may
// override individual fields with request options:
//
//	logs, err := httpclient.Get[[]RainLog](ctx, client, baseURL, "/rainlog/filters", params,
//	    httpclient.WithRetries(3),
//	    httpclient.WithRetryDelay(2*time.Second),
//	)
//
// With Retries=3 and RetryDelay=2s a call makes at most four attempts,
// waiting 2s, 4s and 8s between them.
type RetryPolicy struct {
	// Timeout bounds each individual attempt, from sending the request to
	// reading the last byte of the response body. It does not bound the
	// call as a whole: a call with retries may take up to
	// (Retries+1)*Timeout plus the backoff waits.
	// A non-positive value disables the per-attempt timeout.
	// Default: 30s
	Timeout time.Duration

	// Retries is the number of additional attempts made after a retryable
	// failure. The initial attempt is not counted.
	// Default: 0 (retries are opt-in)
	Retries int

	// RetryDelay is the base backoff delay. The wait before retry i
	// (0-based) is RetryDelay * 2^i.
	// Default: 1s
	RetryDelay time.Duration

	// Classifier decides whether a failed attempt is retried.
	// Default: DefaultClassifier
	Classifier RetryClassifier
}

// Default values for RetryPolicy.
const (
	// DefaultTimeout is the default per-attempt timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRetries is the default number of retries.
	DefaultRetries = 0

	// DefaultRetryDelay is the default base backoff delay.
	DefaultRetryDelay = time.Second
)

// DefaultRetryPolicy returns the policy applied when neither the client nor
// the call overrides anything: 30s per attempt, a single attempt, 1s base
// delay should retries be enabled.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Timeout:    DefaultTimeout,
		Retries:    DefaultRetries,
		RetryDelay: DefaultRetryDelay,
		Classifier: DefaultClassifier,
	}
}

// PersistentRetryPolicy returns the policy used for read-heavy filter
// queries: three retries starting at 2s (2s, 4s, 8s).
func PersistentRetryPolicy() RetryPolicy {
	p := DefaultRetryPolicy()
	p.Retries = 3
	p.RetryDelay = 2 * time.Second
	return p
}

// NoRetryPolicy returns a policy that makes exactly one attempt.
func NoRetryPolicy() RetryPolicy {
	p := DefaultRetryPolicy()
	p.Retries = 0
	return p
}

// maxAttempts returns the total number of attempts allowed by the policy.
func (p RetryPolicy) maxAttempts() uint {
	if p.Retries <= 0 {
		return 1
	}
	return uint(p.Retries) + 1
}

// classifier returns the configured classifier or the default one.
func (p RetryPolicy) classifier() RetryClassifier {
	if p.Classifier == nil {
		return DefaultClassifier
	}
	return p.Classifier
}

// RetryEvent describes a retry that is about to happen.
type RetryEvent struct {
	// Operation is the request's operation name.
	Operation string

	// Attempt is the 1-based number of the attempt that just failed.
	Attempt int

	// Delay is how long the client waits before the next attempt.
	Delay time.Duration

	// Err is the failure of the attempt that just finished.
	Err *APIError
}
