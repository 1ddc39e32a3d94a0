package httpclient

import (
	"net/http"
)

// RetryClassifier determines if a failed attempt should be retried.
// Return true to retry (attempts permitting), false to stop immediately.
//
// The classifier sees the normalized error, so it can branch on the HTTP
// status or on transport failures (Status == 0):
//
//	policy := httpclient.DefaultRetryPolicy()
//	policy.Classifier = func(err *httpclient.APIError) bool {
//	    // never retry rate limiting, let the caller back off
//	    if err.Status == http.StatusTooManyRequests {
//	        return false
//	    }
//	    return httpclient.DefaultClassifier(err)
//	}
type RetryClassifier func(err *APIError) bool

// TransientStatuses lists the HTTP statuses the default classifier retries.
var TransientStatuses = []int{
	http.StatusRequestTimeout,      // 408
	http.StatusTooManyRequests,     // 429
	http.StatusInternalServerError, // 500
	http.StatusBadGateway,          // 502
	http.StatusServiceUnavailable,  // 503
	http.StatusGatewayTimeout,      // 504
}

// IsTransientStatus reports whether status is one of TransientStatuses.
func IsTransientStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// DefaultClassifier retries transport failures and transient statuses.
//
// Retries on:
//   - Status 0: anything that failed before an HTTP response arrived
//     (connection refused, DNS failure, per-attempt timeout, malformed URL)
//   - 408, 429, 500, 502, 503, 504
//
// Does NOT retry on any other status, in particular 400, 401, 403 and 404.
//
// Caller cancellation is not a classifier concern: once the caller's
// context is done the retry loop stops regardless of the verdict here.
func DefaultClassifier(err *APIError) bool {
	if err == nil {
		return false
	}
	if err.Status == StatusTransport {
		return true
	}
	return IsTransientStatus(err.Status)
}

// NeverRetryClassifier returns a classifier that never retries.
func NeverRetryClassifier() RetryClassifier {
	return func(_ *APIError) bool {
		return false
	}
}

// StatusCodeClassifier returns a classifier that retries on the given
// statuses. Transport failures are always retried.
//
// Example:
//
//	// Only retry gateway errors
//	classifier := httpclient.StatusCodeClassifier(502, 503, 504)
func StatusCodeClassifier(codes ...int) RetryClassifier {
	codeSet := make(map[int]struct{}, len(codes))
	for _, code := range codes {
		codeSet[code] = struct{}{}
	}

	return func(err *APIError) bool {
		if err == nil {
			return false
		}
		if err.Status == StatusTransport {
			return true
		}
		_, ok := codeSet[err.Status]
		return ok
	}
}
