package httpserver

import (
	"context"
	"maps"
	"net/http"
	"os"
	"slices"
	"sync"
	"time"
)

// HealthCheck checks one dependency. It returns nil when healthy.
type HealthCheck func(ctx context.Context) error

// CheckResult is the outcome of one check.
type CheckResult struct {
	Status              string `json:"status"`
	Latency             string `json:"latency"`
	Message             string `json:"message,omitempty"`
	LastChecked         string `json:"last_checked"`
	ConsecutiveSuccess  int    `json:"consecutive_successes,omitempty"`
	ConsecutiveFailures int    `json:"consecutive_failures,omitempty"`
}

// HealthReport is the data of a health reply.
type HealthReport struct {
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime,omitempty"`
	Hostname  string                 `json:"hostname,omitempty"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

type checkState struct {
	check               HealthCheck
	consecutiveSuccess  int
	consecutiveFailures int
}

// HealthHandler serves /ping, /livez and /readyz.
//
//	health.AddReadinessCheck("store", store.Ping)
//	r.Handle("/ping", health.PingHandler())
//	r.Handle("/livez", health.LiveHandler())
//	r.Handle("/readyz", health.ReadyHandler())
type HealthHandler struct {
	serviceName  string
	version      string
	startTime    time.Time
	hostname     string
	checkTimeout time.Duration

	mu              sync.Mutex
	livenessChecks  map[string]*checkState
	readinessChecks map[string]*checkState
}

// HealthOption configures the HealthHandler.
type HealthOption func(*HealthHandler)

// WithHealthServiceName sets the service reported by health replies.
func WithHealthServiceName(name string) HealthOption {
	return func(h *HealthHandler) {
		h.serviceName = name
	}
}

// WithVersion sets the version reported by health replies.
func WithVersion(version string) HealthOption {
	return func(h *HealthHandler) {
		h.version = version
	}
}

// WithCheckTimeout bounds each check (default 2s).
func WithCheckTimeout(d time.Duration) HealthOption {
	return func(h *HealthHandler) {
		h.checkTimeout = d
	}
}

// NewHealthHandler creates a HealthHandler. Servers built with WithHealth
// create one with their service name.
func NewHealthHandler(opts ...HealthOption) *HealthHandler {
	hostname, _ := os.Hostname()

	h := &HealthHandler{
		serviceName:     "unknown",
		version:         "0.0.0",
		startTime:       time.Now(),
		hostname:        hostname,
		checkTimeout:    2 * time.Second,
		livenessChecks:  make(map[string]*checkState),
		readinessChecks: make(map[string]*checkState),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AddLivenessCheck registers a check for /livez.
func (h *HealthHandler) AddLivenessCheck(name string, check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.livenessChecks[name] = &checkState{check: check}
}

// AddReadinessCheck registers a check for /readyz.
func (h *HealthHandler) AddReadinessCheck(name string, check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readinessChecks[name] = &checkState{check: check}
}

// PingHandler always answers 200 {"status":"success","message":"pong"}.
func (h *HealthHandler) PingHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, Envelope[any]{Status: StatusSuccess, Message: "pong"})
	})
}

// LiveHandler answers 200 when every liveness check passes, 503 otherwise.
func (h *HealthHandler) LiveHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.serveChecks(w, r, h.livenessChecks)
	})
}

// ReadyHandler answers 200 when every readiness check passes, 503 otherwise.
func (h *HealthHandler) ReadyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.serveChecks(w, r, h.readinessChecks)
	})
}

func (h *HealthHandler) serveChecks(w http.ResponseWriter, r *http.Request, checks map[string]*checkState) {
	now := time.Now()

	h.mu.Lock()
	defer h.mu.Unlock()

	results := make(map[string]CheckResult, len(checks))
	healthy := true

	for _, name := range slices.Sorted(maps.Keys(checks)) {
		state := checks[name]

		ctx, cancel := context.WithTimeout(r.Context(), h.checkTimeout)
		start := time.Now()
		err := state.check(ctx)
		latency := time.Since(start)
		cancel()

		result := CheckResult{
			Latency:     latency.String(),
			LastChecked: now.Format(time.RFC3339),
		}
		if err != nil {
			healthy = false
			state.consecutiveFailures++
			state.consecutiveSuccess = 0
			result.Status = "fail"
			result.Message = err.Error()
			result.ConsecutiveFailures = state.consecutiveFailures
		} else {
			state.consecutiveSuccess++
			state.consecutiveFailures = 0
			result.Status = "ok"
			result.ConsecutiveSuccess = state.consecutiveSuccess
		}
		results[name] = result
	}

	report := HealthReport{
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Hostname:  h.hostname,
		Timestamp: now.Format(time.RFC3339),
		Checks:    results,
	}

	if !healthy {
		WriteJSON(w, http.StatusServiceUnavailable, Envelope[HealthReport]{
			Status:  StatusError,
			Message: "one or more checks failed",
			Data:    report,
		})
		return
	}
	WriteSuccess(w, http.StatusOK, "all checks passed", report)
}
