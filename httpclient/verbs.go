package httpclient

import (
	"context"
	"net/http"
	"time"
)

// RequestOption adjusts a single call made through the generic functions.
type RequestOption func(*RequestBuilder)

// WithTimeout overrides the per-attempt timeout for one call.
func WithTimeout(d time.Duration) RequestOption {
	return func(rb *RequestBuilder) {
		rb.Timeout(d)
	}
}

// WithRetries overrides the number of retries for one call.
func WithRetries(n int) RequestOption {
	return func(rb *RequestBuilder) {
		rb.Retries(n)
	}
}

// WithRetryDelay overrides the base backoff delay for one call.
func WithRetryDelay(d time.Duration) RequestOption {
	return func(rb *RequestBuilder) {
		rb.RetryDelay(d)
	}
}

// WithPolicy replaces the whole retry policy for one call.
func WithPolicy(p RetryPolicy) RequestOption {
	return func(rb *RequestBuilder) {
		rb.Policy(p)
	}
}

// WithHeader sets one header for one call. An empty value removes it.
func WithHeader(key, value string) RequestOption {
	return func(rb *RequestBuilder) {
		rb.Header(key, value)
	}
}

// WithHeaders sets several headers for one call.
func WithHeaders(headers map[string]string) RequestOption {
	return func(rb *RequestBuilder) {
		rb.Headers(headers)
	}
}

// WithOperation names the call in logs and retry events. The default name
// is the method followed by the path.
func WithOperation(name string) RequestOption {
	return func(rb *RequestBuilder) {
		rb.operationName = name
	}
}

// Get performs a GET on baseURL+path and decodes the JSON reply into T.
// params, when non-empty, are URL-encoded into the query string.
//
// Example:
//
//	type envelope struct {
//	    Status string    `json:"status"`
//	    Data   []RainLog `json:"data"`
//	}
//	out, err := httpclient.Get[envelope](ctx, client, baseURL, "/v1/rainlogger/rainlog/filters",
//	    map[string]string{"location": "Castraz"},
//	    httpclient.WithRetries(3),
//	)
func Get[T any](
	ctx context.Context,
	c *Client,
	baseURL, path string,
	params map[string]string,
	opts ...RequestOption,
) (T, error) {
	rb := c.Request(http.MethodGet + " " + path).
		BaseURL(baseURL).
		Path(path).
		Queries(params)
	return send[T](ctx, rb, http.MethodGet, opts)
}

// Post performs a POST with an optional JSON body and decodes the reply.
func Post[T any](
	ctx context.Context,
	c *Client,
	baseURL, path string,
	body any,
	opts ...RequestOption,
) (T, error) {
	return withBody[T](ctx, c, http.MethodPost, baseURL, path, body, opts)
}

// Put performs a PUT with an optional JSON body and decodes the reply.
func Put[T any](
	ctx context.Context,
	c *Client,
	baseURL, path string,
	body any,
	opts ...RequestOption,
) (T, error) {
	return withBody[T](ctx, c, http.MethodPut, baseURL, path, body, opts)
}

// Patch performs a PATCH with an optional JSON body and decodes the reply.
func Patch[T any](
	ctx context.Context,
	c *Client,
	baseURL, path string,
	body any,
	opts ...RequestOption,
) (T, error) {
	return withBody[T](ctx, c, http.MethodPatch, baseURL, path, body, opts)
}

// Delete performs a DELETE without a body and decodes the reply.
func Delete[T any](
	ctx context.Context,
	c *Client,
	baseURL, path string,
	opts ...RequestOption,
) (T, error) {
	rb := c.Request(http.MethodDelete + " " + path).
		BaseURL(baseURL).
		Path(path)
	return send[T](ctx, rb, http.MethodDelete, opts)
}

// Do performs a request against a complete URL with any method.
// The verb functions are thin wrappers over the same machinery.
func Do[T any](
	ctx context.Context,
	c *Client,
	method, rawURL string,
	body any,
	opts ...RequestOption,
) (T, error) {
	rb := c.Request(method + " " + rawURL).
		URL(rawURL).
		Body(body)
	return send[T](ctx, rb, method, opts)
}

// DecodeJSON decodes a successful response into T. Empty responses (see
// Response.IsEmpty) yield the zero value of T.
func DecodeJSON[T any](resp *Response) (T, error) {
	var out T
	if resp == nil || resp.IsEmpty() {
		return out, nil
	}
	if err := resp.Decode(&out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func withBody[T any](
	ctx context.Context,
	c *Client,
	method, baseURL, path string,
	body any,
	opts []RequestOption,
) (T, error) {
	rb := c.Request(method + " " + path).
		BaseURL(baseURL).
		Path(path).
		Body(body)
	return send[T](ctx, rb, method, opts)
}

func send[T any](ctx context.Context, rb *RequestBuilder, method string, opts []RequestOption) (T, error) {
	for _, opt := range opts {
		opt(rb)
	}

	resp, err := rb.Send(ctx, method)
	if err != nil {
		var zero T
		return zero, err
	}
	return DecodeJSON[T](resp)
}
