package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// RequestBuilder provides a fluent API for building one logical call.
//
// Create a RequestBuilder using Client.Request():
//
//	resp, err := client.Request("UpdateRainLog").
//	    BaseURL(rainloggerURL).
//	    Path("/v1/rainlogger/rainlog/{id}").
//	    PathParam("id", id).
//	    Body(update).
//	    Retries(2).
//	    Patch(ctx)
//
// The generic Get/Post/Put/Patch/Delete/Do functions are built on top of it
// and are the usual entry point for JSON APIs.
type RequestBuilder struct {
	client        *Client
	operationName string
	baseURL       string
	rawURL        string
	path          string
	pathParams    map[string]string
	queryParams   url.Values
	headers       http.Header
	body          any
	policy        RetryPolicy
}

// BaseURL sets the base URL for this call. The target is the base URL
// followed by the path, joined verbatim. An empty base URL falls back to
// the client's WithBaseURL value.
func (rb *RequestBuilder) BaseURL(baseURL string) *RequestBuilder {
	rb.baseURL = baseURL
	return rb
}

// URL sets the complete target URL, bypassing base URL and path.
// Query parameters are still appended.
func (rb *RequestBuilder) URL(rawURL string) *RequestBuilder {
	rb.rawURL = rawURL
	return rb
}

// Path sets the request path appended to the base URL.
// Supports path parameters using {param} syntax.
func (rb *RequestBuilder) Path(path string) *RequestBuilder {
	rb.path = path
	return rb
}

// PathParam sets a path parameter value, escaped with url.PathEscape.
func (rb *RequestBuilder) PathParam(key, value string) *RequestBuilder {
	rb.pathParams[key] = value
	return rb
}

// Query sets a query parameter.
func (rb *RequestBuilder) Query(key, value string) *RequestBuilder {
	if rb.queryParams == nil {
		rb.queryParams = make(url.Values)
	}
	rb.queryParams.Set(key, value)
	return rb
}

// Queries sets multiple query parameters. A nil or empty map adds nothing,
// so no "?" is appended to the URL.
func (rb *RequestBuilder) Queries(params map[string]string) *RequestBuilder {
	for k, v := range params {
		rb.Query(k, v)
	}
	return rb
}

// Header sets a request header, overriding the client's defaults
// (including Content-Type and Authorization). An empty value removes the
// header from the request.
func (rb *RequestBuilder) Header(key, value string) *RequestBuilder {
	rb.headers.Set(key, value)
	return rb
}

// Headers sets multiple request headers. See Header.
func (rb *RequestBuilder) Headers(headers map[string]string) *RequestBuilder {
	for k, v := range headers {
		rb.headers.Set(k, v)
	}
	return rb
}

// Body sets the request body. Values are JSON-encoded, except []byte and
// json.RawMessage which are sent as-is. A nil body sends no body.
func (rb *RequestBuilder) Body(v any) *RequestBuilder {
	rb.body = v
	return rb
}

// Timeout overrides the per-attempt timeout.
func (rb *RequestBuilder) Timeout(d time.Duration) *RequestBuilder {
	rb.policy.Timeout = d
	return rb
}

// Retries overrides the number of retries.
func (rb *RequestBuilder) Retries(n int) *RequestBuilder {
	rb.policy.Retries = n
	return rb
}

// RetryDelay overrides the base backoff delay.
func (rb *RequestBuilder) RetryDelay(d time.Duration) *RequestBuilder {
	rb.policy.RetryDelay = d
	return rb
}

// Policy replaces the whole retry policy for this call.
func (rb *RequestBuilder) Policy(p RetryPolicy) *RequestBuilder {
	rb.policy = p
	return rb
}

// Get executes a GET request.
func (rb *RequestBuilder) Get(ctx context.Context) (*Response, error) {
	return rb.Send(ctx, http.MethodGet)
}

// Post executes a POST request.
func (rb *RequestBuilder) Post(ctx context.Context) (*Response, error) {
	return rb.Send(ctx, http.MethodPost)
}

// Put executes a PUT request.
func (rb *RequestBuilder) Put(ctx context.Context) (*Response, error) {
	return rb.Send(ctx, http.MethodPut)
}

// Patch executes a PATCH request.
func (rb *RequestBuilder) Patch(ctx context.Context) (*Response, error) {
	return rb.Send(ctx, http.MethodPatch)
}

// Delete executes a DELETE request.
func (rb *RequestBuilder) Delete(ctx context.Context) (*Response, error) {
	return rb.Send(ctx, http.MethodDelete)
}

// Send executes the call with the given method.
//
// On success the returned Response holds the fully read body of a 2xx
// reply. Every failure is an *APIError: non-2xx replies carry their status
// and parsed body, failures without a reply carry status 0.
func (rb *RequestBuilder) Send(ctx context.Context, method string) (*Response, error) {
	target := rb.buildURL()

	payload, err := rb.encodeBody()
	if err != nil {
		return nil, err
	}

	headers := rb.buildHeaders()

	return rb.client.retry(ctx, rb.operationName, rb.policy, func() (*Response, error) {
		return rb.attempt(ctx, method, target, payload, headers)
	})
}

// attempt performs a single exchange under its own timeout. The timer is
// released when the attempt returns, after the body has been read.
func (rb *RequestBuilder) attempt(
	ctx context.Context,
	method, target string,
	payload []byte,
	headers http.Header,
) (*Response, error) {
	cfg := rb.client.config
	timeout := rb.policy.Timeout

	attemptCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, target, body)
	if err != nil {
		return nil, newTransportError(fmt.Sprintf("invalid request: %v", err), err)
	}
	req.Header = headers.Clone()

	for _, interceptor := range cfg.RequestInterceptors {
		if err := interceptor(req); err != nil {
			return nil, newTransportError(fmt.Sprintf("request interceptor: %v", err), err)
		}
	}

	var curl string
	if cfg.GenerateCurl {
		curl = generateCurlCommand(req, payload)
	}
	if cfg.Debug {
		logRequest(cfg.Logger, rb.operationName, req, curl)
	}

	start := time.Now()

	httpResp, err := rb.client.httpClient.Do(req)
	if err != nil {
		return nil, attemptError(ctx, attemptCtx, timeout, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, attemptError(ctx, attemptCtx, timeout, err)
	}

	resp := &Response{
		StatusCode:    httpResp.StatusCode,
		Status:        httpResp.Status,
		Header:        httpResp.Header,
		ContentLength: httpResp.ContentLength,
		body:          data,
		duration:      time.Since(start),
		curlCommand:   curl,
	}

	if cfg.Debug {
		logResponse(cfg.Logger, rb.operationName, resp)
	}

	if !resp.IsSuccess() {
		return resp, resp.apiError()
	}
	return resp, nil
}

// attemptError normalizes a failed exchange into a status-0 APIError,
// distinguishing the per-attempt timeout from the caller's own context.
func attemptError(callerCtx, attemptCtx context.Context, timeout time.Duration, err error) *APIError {
	if callerCtx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return newTransportError(fmt.Sprintf("request timed out after %s", timeout), err)
	}
	return normalizeError(err)
}

// buildURL joins base URL and path verbatim and appends the query string.
func (rb *RequestBuilder) buildURL() string {
	target := rb.rawURL
	if target == "" {
		base := rb.baseURL
		if base == "" {
			base = rb.client.config.BaseURL
		}

		path := rb.path
		for k, v := range rb.pathParams {
			path = strings.ReplaceAll(path, "{"+k+"}", url.PathEscape(v))
		}
		target = base + path
	}

	if len(rb.queryParams) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + rb.queryParams.Encode()
	}

	return target
}

// buildHeaders assembles the headers shared by every attempt of the call.
//
// Precedence, lowest first: Content-Type, Authorization from the token
// store, client default headers, caller headers.
func (rb *RequestBuilder) buildHeaders() http.Header {
	cfg := rb.client.config

	h := make(http.Header)
	h.Set("Content-Type", "application/json")

	if cfg.TokenStore != nil {
		if token, ok := cfg.TokenStore.Token(); ok && token != "" {
			h.Set("Authorization", "Bearer "+token)
		}
	}

	for k, v := range cfg.DefaultHeaders {
		h[k] = append([]string(nil), v...)
	}

	for k, v := range rb.headers {
		if len(v) == 0 || (len(v) == 1 && v[0] == "") {
			h.Del(k)
			continue
		}
		h[k] = append([]string(nil), v...)
	}

	return h
}

// encodeBody serializes the body once so every attempt sends the same
// bytes. An encoding failure is final: no attempt is made.
func (rb *RequestBuilder) encodeBody() ([]byte, error) {
	switch body := rb.body.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return body, nil
	case []byte:
		return body, nil
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, newTransportError(fmt.Sprintf("failed to encode request body: %v", err), err)
		}
		return data, nil
	}
}
