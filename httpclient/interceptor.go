package httpclient

import (
	"net/http"

	"github.com/google/uuid"
)

// RequestInterceptor modifies an attempt's request before it is sent.
// Interceptors run on every attempt, after the call's headers are set, in
// the order they were added. An interceptor error fails the attempt as a
// transport failure.
//
// Common use cases:
//   - Request correlation ids
//   - User-Agent
//   - API keys for services that do not use bearer tokens
type RequestInterceptor func(req *http.Request) error

// AuthBearerFuncInterceptor adds a bearer token obtained from tokenFunc on
// every attempt. Use it when the token can change between attempts; the
// TokenStore is read only once per call.
func AuthBearerFuncInterceptor(tokenFunc func() (string, error)) RequestInterceptor {
	return func(req *http.Request) error {
		token, err := tokenFunc()
		if err != nil {
			return err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return nil
	}
}

// APIKeyInterceptor adds a static API key header.
func APIKeyInterceptor(headerName, apiKey string) RequestInterceptor {
	return func(req *http.Request) error {
		req.Header.Set(headerName, apiKey)
		return nil
	}
}

// RequestIDInterceptor sets headerName to a fresh UUID on every attempt,
// unless the caller already set one.
func RequestIDInterceptor(headerName string) RequestInterceptor {
	return func(req *http.Request) error {
		if req.Header.Get(headerName) == "" {
			req.Header.Set(headerName, uuid.NewString())
		}
		return nil
	}
}

// UserAgentInterceptor sets the User-Agent header.
func UserAgentInterceptor(userAgent string) RequestInterceptor {
	return func(req *http.Request) error {
		req.Header.Set("User-Agent", userAgent)
		return nil
	}
}
