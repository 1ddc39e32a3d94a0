package httpserver

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"
)

// Recovery returns middleware that turns a handler panic into a 500 error
// envelope and logs the panic with its stack.
//
// http.ErrAbortHandler is re-panicked so the server can abort the
// connection as usual.
func Recovery(logger zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error().
					Interface("panic", rec).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("request_id", RequestIDFromContext(r.Context())).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")

				WriteError(w, http.StatusInternalServerError, "Something went very wrong!")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
