package httpclient

import "net/http"

// RoundTripper represents an HTTP round tripper for testing.
type RoundTripper interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

// TokenStore is the read side of a session credential store.
//
// The client only ever reads from it. Writers (login, logout) live with
// whoever owns the session; see the tokenstore package for implementations.
type TokenStore interface {
	// Token returns the current bearer token and whether one is present.
	Token() (string, bool)
}

// TokenStoreFunc adapts an ordinary function to a TokenStore.
type TokenStoreFunc func() (string, bool)

// Token implements TokenStore.
func (f TokenStoreFunc) Token() (string, bool) {
	return f()
}
