package httpclient

import (
	"net/http"

	"github.com/stretchr/testify/mock"
)

// mockCircuitBreaker is a testify mock of CircuitBreaker. A Return value
// of type func(func() (*http.Response, error)) (*http.Response, error)
// is invoked with the wrapped request, so tests can let the call through.
type mockCircuitBreaker struct {
	mock.Mock
}

func (m *mockCircuitBreaker) Execute(req func() (*http.Response, error)) (*http.Response, error) {
	ret := m.Called(req)

	if rf, ok := ret.Get(0).(func(func() (*http.Response, error)) (*http.Response, error)); ok {
		return rf(req)
	}

	var resp *http.Response
	if r, ok := ret.Get(0).(*http.Response); ok {
		resp = r
	}
	return resp, ret.Error(1)
}

// passThrough lets the breaker mock run the wrapped request.
func passThrough(req func() (*http.Response, error)) (*http.Response, error) {
	return req()
}

// mockRoundTripper is a testify mock of RoundTripper.
type mockRoundTripper struct {
	mock.Mock
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ret := m.Called(req)

	var resp *http.Response
	if r, ok := ret.Get(0).(*http.Response); ok {
		resp = r
	}
	return resp, ret.Error(1)
}

var (
	_ CircuitBreaker = (*mockCircuitBreaker)(nil)
	_ RoundTripper   = (*mockRoundTripper)(nil)
)
