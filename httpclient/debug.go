package httpclient

import (
	"net/http"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// redactedHeaders are masked in cURL commands and debug logs.
var redactedHeaders = map[string]struct{}{
	"Authorization": {},
	"Cookie":        {},
}

// generateCurlCommand creates a cURL command equivalent for the given request.
// The bearer token is masked so the command can be pasted into a ticket.
//
// Example output:
//
//	curl -X POST 'https://api.example.com/v1/rainlogger/rainlog' \
//	  -H 'Authorization: Bearer ***' \
//	  -H 'Content-Type: application/json' \
//	  -d '{"measurement":12.5}'
func generateCurlCommand(req *http.Request, body []byte) string {
	parts := []string{"curl"}

	if req.Method != http.MethodGet {
		parts = append(parts, "-X", req.Method)
	}

	parts = append(parts, shellQuote(req.URL.String()))

	headerKeys := make([]string, 0, len(req.Header))
	for k := range req.Header {
		headerKeys = append(headerKeys, k)
	}
	sort.Strings(headerKeys)

	for _, k := range headerKeys {
		for _, v := range req.Header[k] {
			parts = append(parts, "-H", shellQuote(k+": "+maskHeader(k, v)))
		}
	}

	if len(body) > 0 {
		parts = append(parts, "-d", shellQuote(string(body)))
	}

	return strings.Join(parts, " ")
}

// shellQuote wraps s in single quotes, escaping embedded single quotes.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// maskHeader hides credentials while keeping the auth scheme visible.
func maskHeader(key, value string) string {
	if _, ok := redactedHeaders[http.CanonicalHeaderKey(key)]; !ok {
		return value
	}
	if scheme, _, found := strings.Cut(value, " "); found {
		return scheme + " ***"
	}
	return "***"
}

// logRequest logs the outgoing attempt at debug level.
func logRequest(logger zerolog.Logger, operation string, req *http.Request, curl string) {
	event := logger.Debug().
		Str("operation", operation).
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Bool("authorized", req.Header.Get("Authorization") != "")
	if curl != "" {
		event = event.Str("curl", curl)
	}
	event.Msg("HTTP request")
}

// logResponse logs the received response at debug level.
func logResponse(logger zerolog.Logger, operation string, resp *Response) {
	logger.Debug().
		Str("operation", operation).
		Int("status", resp.StatusCode).
		Str("status_text", resp.Status).
		Dur("duration", resp.duration).
		Int("body_bytes", len(resp.body)).
		Msg("HTTP response")
}
