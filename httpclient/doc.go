// Package httpclient provides a resilient JSON-over-HTTP client with
// per-attempt timeouts, retry with doubling backoff, normalized errors and
// OpenTelemetry instrumentation.
//
// # Features
//
//   - Generic verb functions that decode replies into a declared type
//   - One error shape for every failure: *APIError{Message, Status, Data}
//   - Per-attempt timeout (default 30s) released as soon as the attempt ends
//   - Opt-in retries (default 0) on transport failures and 408, 429, 500,
//     502, 503, 504, waiting RetryDelay * 2^i before retry i
//   - Bearer token read from an injected TokenStore
//   - OpenTelemetry span per attempt, retry events, request/retry metrics
//   - Optional circuit breaker (local or Redis-backed) and rate limiter
//   - MockTransport for tests
//
// # Quick Start
//
//	client := httpclient.New(
//	    httpclient.WithTokenStore(store),
//	    httpclient.WithServiceName("rainlogger-cli"),
//	)
//
//	type loginReply struct {
//	    Status string `json:"status"`
//	    Token  string `json:"token"`
//	}
//	reply, err := httpclient.Post[loginReply](ctx, client, authURL, "/v1/users/login", creds)
//
// GET takes query parameters; POST, PUT and PATCH take an optional body;
// DELETE takes neither. Do accepts any method and a complete URL.
//
// # Responses
//
// A 2xx reply is decoded into T. Replies with status 204, with
// "Content-Length: 0", with an empty body, or with a Content-Type other
// than application/json yield the zero value of T and no error.
//
// A non-2xx reply becomes an *APIError whose Message is the body's
// "message" field, or "Request failed with status <code>" when there is
// none, and whose Data is the parsed body.
//
// # Retries
//
// Retries are opt-in per client (WithRetryPolicy) or per call:
//
//	logs, err := httpclient.Get[[]RainLog](ctx, client, baseURL, path, params,
//	    httpclient.WithRetries(3),
//	    httpclient.WithRetryDelay(2*time.Second),
//	)
//
// Failures that never produced a response (Status 0) are always considered
// retryable: connection errors, DNS errors, per-attempt timeouts, and
// malformed URLs alike. Other statuses are retried only when transient.
// The error of the last attempt is returned unchanged.
//
// Cancelling the caller's context ends the call at once, including any
// backoff wait, with a Status 0 error.
//
// # Headers
//
// Every request carries "Content-Type: application/json" and, when the
// token store has a token, "Authorization: Bearer <token>". Caller headers
// are applied last and win; an empty caller value removes the header.
//
// # Debugging
//
// WithDebug logs each attempt through the configured zerolog logger, and
// WithGenerateCurl attaches an equivalent cURL command (credentials masked)
// to each Response:
//
//	client := httpclient.New(
//	    httpclient.WithLogger(logger),
//	    httpclient.WithDebug(),
//	    httpclient.WithGenerateCurl(),
//	)
package httpclient
