package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// StatusTransport is the status carried by errors that never produced an
// HTTP response (connection failure, DNS failure, timeout, cancellation).
const StatusTransport = 0

// APIError is the single error shape returned by the request functions.
//
// Status is the HTTP status code returned by the server, or
// StatusTransport (0) when the exchange failed before a response arrived.
// Data holds the parsed JSON error body when the server sent one.
//
// Example:
//
//	_, err := httpclient.Get[User](ctx, client, baseURL, "/users/1", nil)
//	if apiErr, ok := httpclient.AsAPIError(err); ok && apiErr.Status == http.StatusNotFound {
//	    // handle missing user
//	}
type APIError struct {
	// Message is a human-readable description of the failure.
	Message string

	// Status is the HTTP status code, or 0 for transport failures.
	Status int

	// Data is the decoded response body of a failed request, if any.
	Data any

	// cause is the underlying error for transport failures.
	cause error
}

// NewAPIError creates an APIError for an HTTP-level failure.
func NewAPIError(message string, status int, data any) *APIError {
	return &APIError{Message: message, Status: status, Data: data}
}

// newTransportError creates a status-0 APIError wrapping the cause.
func newTransportError(message string, cause error) *APIError {
	return &APIError{Message: message, Status: StatusTransport, cause: cause}
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Unwrap returns the underlying transport error, if any.
func (e *APIError) Unwrap() error {
	return e.cause
}

// IsTransport reports whether the failure happened before an HTTP response
// was received.
func (e *APIError) IsTransport() bool {
	return e.Status == StatusTransport
}

// IsTimeout reports whether the failure was caused by a deadline.
func (e *APIError) IsTimeout() bool {
	return errors.Is(e.cause, context.DeadlineExceeded)
}

// AsAPIError extracts an *APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Status == status
}

// statusMessage is the fallback message for a failed response without a
// usable "message" field.
func statusMessage(status int) string {
	return fmt.Sprintf("Request failed with status %d", status)
}

// normalizeError converts any error into an *APIError. Errors that are not
// already APIErrors are transport failures.
func normalizeError(err error) *APIError {
	if err == nil {
		return nil
	}
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return newTransportError("request timed out", err)
	case errors.Is(err, context.Canceled):
		return newTransportError("request canceled", err)
	}
	return newTransportError(err.Error(), err)
}

// statusText returns a short label for log lines.
func statusText(status int) string {
	if status == StatusTransport {
		return "transport"
	}
	return http.StatusText(status)
}

// IsRetryable reports whether err is a failure the default classifier
// would retry: a transport failure or a transient HTTP status.
func IsRetryable(err error) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return err != nil
	}
	return DefaultClassifier(apiErr)
}
