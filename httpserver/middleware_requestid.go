package httpserver

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader is the header key for request IDs.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLength bounds forwarded IDs so a client cannot inflate logs.
const maxRequestIDLength = 128

type requestIDKey struct{}

// RequestID returns middleware that forwards the caller's X-Request-ID or
// generates a UUID v4. The ID is echoed in the response header and stored
// in the request context.
//
// The request client sends one ID per attempt, so retries of the same call
// show up as separate IDs in server logs.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if !validRequestID(id) {
				id = uuid.NewString()
			}

			w.Header().Set(RequestIDHeader, id)
			ctx := context.WithValue(r.Context(), requestIDKey{}, id)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFromContext returns the request ID, or "" if none is present.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if c := id[i]; c < 0x21 || c > 0x7e {
			return false
		}
	}
	return true
}
