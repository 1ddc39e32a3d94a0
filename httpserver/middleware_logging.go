package httpserver

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// LoggerConfig configures the logging middleware.
type LoggerConfig struct {
	Logger zerolog.Logger

	// serviceName is set internally by the server.
	serviceName string

	// SkipPaths are not logged. Useful for health and metrics endpoints.
	SkipPaths []string

	// LogRequestBody logs up to MaxBodyLogSize bytes of the request body.
	// The Authorization header is never logged.
	LogRequestBody bool

	// LogResponseBody logs up to MaxBodyLogSize bytes of the response body.
	LogResponseBody bool

	// MaxBodyLogSize limits logged bodies (default: 4KB).
	MaxBodyLogSize int
}

const defaultMaxBodyLogSize = 4 * 1024

// Logger returns middleware that logs one line per request.
//
// The line carries method, path, status, duration, bytes, remote address
// and request ID. 4xx replies log at warn level and 5xx at error level.
// A request-scoped logger carrying the request ID is stored in the context;
// handlers reach it with zerolog.Ctx and fields they add to it appear on
// the completion line.
func Logger(cfg LoggerConfig) Middleware {
	skipPaths := make(map[string]bool, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skipPaths[path] = true
	}

	maxBodySize := cfg.MaxBodyLogSize
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxBodyLogSize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqCtx := cfg.Logger.With()
			if id := RequestIDFromContext(r.Context()); id != "" {
				reqCtx = reqCtx.Str("request_id", id)
			}
			reqLogger := reqCtx.Logger()
			r = r.WithContext(reqLogger.WithContext(r.Context()))

			if skipPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			var requestBody []byte
			if cfg.LogRequestBody && r.Body != nil {
				data, _ := io.ReadAll(r.Body)
				_ = r.Body.Close()
				r.Body = io.NopCloser(bytes.NewReader(data))
				requestBody = data[:min(len(data), maxBodySize)]
			}

			wrapped := wrapResponseWriter(w)
			if cfg.LogResponseBody {
				wrapped.captureBody(maxBodySize)
			}

			next.ServeHTTP(wrapped, r)

			// Handlers may have added fields (user_id) to the request logger.
			logger := zerolog.Ctx(r.Context())
			status := wrapped.Status()
			event := logger.Info()
			switch {
			case status >= http.StatusInternalServerError:
				event = logger.Error()
			case status >= http.StatusBadRequest:
				event = logger.Warn()
			}

			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Dur("duration", time.Since(start)).
				Int("bytes", wrapped.BytesWritten()).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent())

			if cfg.serviceName != "" {
				event.Str("service", cfg.serviceName)
			}
			if len(requestBody) > 0 {
				event.Bytes("request_body", requestBody)
			}
			if wrapped.body != nil && wrapped.body.Len() > 0 {
				event.Bytes("response_body", wrapped.body.Bytes())
			}

			event.Msg("request completed")
		})
	}
}
