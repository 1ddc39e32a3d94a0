package httpclient

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
)

// MockTransport provides a configurable http.RoundTripper for testing.
// It allows stubbing responses and verifying requests. Stubs are matched
// in the order they were added; the first match wins.
//
// Stubbed responses carry "Content-Type: application/json" unless the
// stub says otherwise, so JSON bodies decode like a real API's would.
//
// Example:
//
//	mock := httpclient.NewMockTransport().
//	    StubPath("/v1/users/isloggedin", http.StatusOK, `{"status":"success"}`)
//	client := httpclient.New(httpclient.WithMockTransport(mock))
type MockTransport struct {
	mu          sync.RWMutex
	stubs       []stub
	defaultResp *stubbedResponse
	defaultErr  error
	requests    []*http.Request
	bodies      [][]byte
	requestHook func(*http.Request)
}

type stub struct {
	matcher  func(*http.Request) bool
	response *stubbedResponse
	err      error
	// remaining limits how often the stub matches; negative is unlimited.
	remaining int
}

type stubbedResponse struct {
	statusCode int
	header     http.Header
	body       []byte
}

// NewMockTransport creates a new MockTransport for testing.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// StubResponse stubs all unmatched requests to return the given response.
func (m *MockTransport) StubResponse(statusCode int, body string) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultResp = newStubbedResponse(statusCode, "application/json", body)
	return m
}

// StubError stubs all unmatched requests to fail with err.
func (m *MockTransport) StubError(err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultErr = err
	return m
}

// StubPath stubs requests to path.
func (m *MockTransport) StubPath(path string, statusCode int, body string) *MockTransport {
	return m.StubFunc(func(req *http.Request) bool {
		return req.URL.Path == path
	}, statusCode, body)
}

// StubMethod stubs requests with the given method.
func (m *MockTransport) StubMethod(method string, statusCode int, body string) *MockTransport {
	return m.StubFunc(func(req *http.Request) bool {
		return req.Method == method
	}, statusCode, body)
}

// StubFunc stubs requests matching the predicate.
func (m *MockTransport) StubFunc(
	matcher func(*http.Request) bool,
	statusCode int,
	body string,
) *MockTransport {
	return m.addStub(stub{
		matcher:   matcher,
		response:  newStubbedResponse(statusCode, "application/json", body),
		remaining: -1,
	})
}

// StubContentType stubs requests to path with an explicit content type.
func (m *MockTransport) StubContentType(
	path string,
	statusCode int,
	contentType, body string,
) *MockTransport {
	return m.addStub(stub{
		matcher:   func(req *http.Request) bool { return req.URL.Path == path },
		response:  newStubbedResponse(statusCode, contentType, body),
		remaining: -1,
	})
}

// StubOnce stubs the next request to path only. Chain several StubOnce
// calls to script a sequence, e.g. two 503s followed by a 200.
func (m *MockTransport) StubOnce(path string, statusCode int, body string) *MockTransport {
	return m.addStub(stub{
		matcher:   func(req *http.Request) bool { return req.URL.Path == path },
		response:  newStubbedResponse(statusCode, "application/json", body),
		remaining: 1,
	})
}

// StubFuncError stubs requests matching the predicate to fail with err.
func (m *MockTransport) StubFuncError(matcher func(*http.Request) bool, err error) *MockTransport {
	return m.addStub(stub{matcher: matcher, err: err, remaining: -1})
}

// OnRequest sets a hook that is called for each request.
func (m *MockTransport) OnRequest(fn func(*http.Request)) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestHook = fn
	return m
}

func (m *MockTransport) addStub(s stub) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stubs = append(m.stubs, s)
	return m
}

// RoundTrip implements http.RoundTripper.
func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		_ = req.Body.Close()
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.bodies = append(m.bodies, body)
	hook := m.requestHook

	var matched *stub
	for i := range m.stubs {
		s := &m.stubs[i]
		if s.remaining == 0 || !s.matcher(req) {
			continue
		}
		if s.remaining > 0 {
			s.remaining--
		}
		matched = s
		break
	}

	resp, err := m.defaultResp, m.defaultErr
	if matched != nil {
		resp, err = matched.response, matched.err
	}
	m.mu.Unlock()

	if hook != nil {
		hook(req)
	}

	if err := req.Context().Err(); err != nil {
		return nil, err
	}

	if err != nil {
		return nil, err
	}
	if resp != nil {
		return resp.build(req), nil
	}

	return nil, errors.New("no stub found for request: " + req.Method + " " + req.URL.String())
}

// Requests returns all requests made through this transport.
func (m *MockTransport) Requests() []*http.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*http.Request{}, m.requests...)
}

// RequestBodies returns the bodies of all requests, in order.
func (m *MockTransport) RequestBodies() [][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([][]byte{}, m.bodies...)
}

// RequestCount returns the number of requests made.
func (m *MockTransport) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// LastRequest returns the most recent request, or nil if none.
func (m *MockTransport) LastRequest() *http.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

// Reset clears all recorded requests and stubs.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.bodies = nil
	m.stubs = nil
	m.defaultResp = nil
	m.defaultErr = nil
	m.requestHook = nil
}

func newStubbedResponse(statusCode int, contentType, body string) *stubbedResponse {
	header := make(http.Header)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	header.Set("Content-Length", strconv.Itoa(len(body)))
	return &stubbedResponse{statusCode: statusCode, header: header, body: []byte(body)}
}

// build returns a fresh *http.Response so a stub can be served repeatedly.
func (s *stubbedResponse) build(req *http.Request) *http.Response {
	return &http.Response{
		Status:        strconv.Itoa(s.statusCode) + " " + http.StatusText(s.statusCode),
		StatusCode:    s.statusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        s.header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(s.body)),
		ContentLength: int64(len(s.body)),
		Request:       req,
	}
}

// WithMockTransport replaces the network transport with mock. The
// resilience layers and instrumentation still wrap it.
func WithMockTransport(mock *MockTransport) Option {
	return func(cfg *internalConfig) {
		cfg.MockTransport = mock
	}
}
