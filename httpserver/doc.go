// Package httpserver is the HTTP server used by the rainlogger mock
// backend: graceful shutdown, the middleware chain, and the JSON envelope
// the rainlogger API replies with.
//
// # Quick Start
//
//	srv := httpserver.New(
//	    httpserver.WithServiceName("rainlogger-mock"),
//	    httpserver.WithAddr(":3000"),
//	    httpserver.WithHandler(router),
//	)
//	if err := srv.ListenAndServe(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// The service name set with WithServiceName reaches tracing, metrics,
// request logs and health replies.
//
// # Replies
//
// Handlers reply with the rainlogger envelope:
//
//	httpserver.WriteSuccess(w, http.StatusCreated, "Rainlog added successfully", data)
//	httpserver.WriteError(w, http.StatusBadRequest, "Measurement must be non-negative.")
//
// which encode as {"status":"success","message":...,"data":...} and
// {"status":"fail","message":...}. 5xx errors carry status "error".
//
// # Middleware
//
//   - Recovery: turns panics into 500 replies
//   - RequestID: reads or generates X-Request-ID
//   - Logger: one zerolog line per request, request-scoped logger in ctx
//   - Tracing, Metrics: OpenTelemetry server spans and instruments
//   - PrometheusMetrics: request counters scraped from /metrics
//   - BearerAuth, RequireRole: JWT session checks
//   - RateLimit: token bucket per key, in memory or in Redis
//
// # Health
//
//	var health *httpserver.HealthHandler
//	srv := httpserver.New(httpserver.WithHealth(&health, "1.0.0"), ...)
//	r.Handle("/ping", health.PingHandler())
//	r.Handle("/readyz", health.ReadyHandler())
package httpserver
