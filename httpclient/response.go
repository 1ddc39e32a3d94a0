package httpclient

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// Response is a fully read HTTP response.
//
// The body is read inside the attempt that produced it, before the
// attempt's timeout is released, so a Response never holds an open stream.
//
// Example usage:
//
//	resp, err := client.Request("IsLoggedIn").
//	    BaseURL(authURL).
//	    Path("/v1/users/isloggedin").
//	    Get(ctx)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(resp.StatusCode, resp.String())
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Status is the status line text, e.g. "200 OK".
	Status string

	// Header holds the response headers.
	Header http.Header

	// ContentLength as reported by the transport; -1 when unknown.
	ContentLength int64

	// body is the complete response body.
	body []byte

	// duration is the time spent in the successful attempt.
	duration time.Duration

	// attempts is the number of attempts the call needed.
	attempts int

	// curlCommand is the equivalent cURL command for this request.
	// Only populated if WithGenerateCurl was set on the client.
	curlCommand string
}

// Bytes returns the response body.
func (r *Response) Bytes() []byte {
	return r.body
}

// String returns the response body as a string.
func (r *Response) String() string {
	return string(r.body)
}

// IsSuccess returns true if the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsError returns true if the status code is 4xx or 5xx.
func (r *Response) IsError() bool {
	return r.StatusCode >= 400
}

// IsEmpty reports whether the response carries no JSON payload:
// status 204, an explicit "Content-Length: 0", an empty body, or a
// Content-Type that is not application/json.
func (r *Response) IsEmpty() bool {
	if r.StatusCode == http.StatusNoContent {
		return true
	}
	if r.Header.Get("Content-Length") == "0" || len(r.body) == 0 {
		return true
	}
	return !isJSONContentType(r.Header.Get("Content-Type"))
}

// Decode unmarshals the JSON body into v. A decode failure is reported as
// an *APIError carrying the response status.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.body, v); err != nil {
		return &APIError{
			Message: fmt.Sprintf("failed to decode response body: %v", err),
			Status:  r.StatusCode,
			cause:   err,
		}
	}
	return nil
}

// Duration returns the time spent in the attempt that produced this response.
func (r *Response) Duration() time.Duration {
	return r.duration
}

// Attempts returns how many attempts the call needed, 1 when the first
// attempt succeeded.
func (r *Response) Attempts() int {
	return r.attempts
}

// CurlCommand returns the equivalent cURL command for the request.
// Returns an empty string unless WithGenerateCurl was set on the client.
func (r *Response) CurlCommand() string {
	return r.curlCommand
}

// apiError builds the normalized error for a non-2xx response.
//
// The message is the body's "message" field when it is a string, even an
// empty one,
// otherwise "Request failed with status <code>". Data is the parsed JSON
// body, or nil when the body is not JSON.
func (r *Response) apiError() *APIError {
	var data any
	if len(r.body) > 0 {
		if err := json.Unmarshal(r.body, &data); err != nil {
			data = nil
		}
	}

	message := statusMessage(r.StatusCode)
	if obj, ok := data.(map[string]any); ok {
		if m, ok := obj["message"].(string); ok {
			message = m
		}
	}

	return NewAPIError(message, r.StatusCode, data)
}

func isJSONContentType(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "application/json")
}
