package httpserver

import (
	"net/http"

	"github.com/rs/zerolog"
)

// Middleware is a function that wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain composes multiple middleware into a single middleware.
//
// The first middleware is the outermost (runs first on request, last on
// response):
//
//	handler := httpserver.Chain(
//	    httpserver.Recovery(logger),
//	    httpserver.RequestID(),
//	    httpserver.Logger(cfg),
//	)(router)
func Chain(middlewares ...Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// DefaultMiddleware returns the stack every rainlogger server runs:
// Recovery, RequestID and request logging, in that order.
func DefaultMiddleware(logger zerolog.Logger, skipPaths ...string) Middleware {
	return Chain(
		Recovery(logger),
		RequestID(),
		Logger(LoggerConfig{Logger: logger, SkipPaths: skipPaths}),
	)
}
