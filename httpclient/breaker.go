package httpclient

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"
	gobreakerredis "github.com/sony/gobreaker/v2/redis"
)

// NewRedisStore creates a SharedDataStore backed by Redis so several
// processes share one breaker state.
//
// Usage:
//
//	rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{"localhost:6379"}})
//	store := httpclient.NewRedisStore(rdb)
func NewRedisStore(client redis.UniversalClient) gobreaker.SharedDataStore {
	return gobreakerredis.NewStoreFromClient(client)
}

// CircuitBreaker is the subset of the gobreaker API the transport needs.
type CircuitBreaker interface {
	Execute(req func() (*http.Response, error)) (*http.Response, error)
}

// BreakerClassifier determines if an attempt counts as a failure for the
// breaker. Return true for failures that indicate the server is unhealthy.
type BreakerClassifier func(resp *http.Response, err error) bool

// BreakerConfig holds the configuration for the circuit breaker.
//
// Concepts:
//   - Closed: normal state, attempts go through.
//   - Open: attempts are rejected immediately with a status-0 error.
//   - Half-Open: a limited number of probe attempts go through.
//
// Rejections are transport failures, so the retry loop retries them with
// the usual backoff; a breaker Timeout shorter than the backoff lets the
// later retries probe the half-open breaker.
type BreakerConfig struct {
	// MaxRequests is the number of probes allowed while half-open.
	// If 0, one probe is allowed.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state after which the
	// counts are cleared. If 0, counts are never cleared while closed.
	Interval time.Duration

	// Timeout is how long the breaker stays open before half-opening.
	// If 0, gobreaker's default of 60s applies.
	Timeout time.Duration

	// FailureThreshold is the minimum number of requests in the current
	// interval before the breaker may trip.
	FailureThreshold uint32

	// FailureRatio trips the breaker when failures/requests reaches it.
	FailureRatio float64

	// ConsecutiveFailures trips the breaker after that many failures in a
	// row. If 0, this rule is disabled.
	ConsecutiveFailures uint32

	// Store shares breaker state across processes. If nil, the breaker is
	// local to the client.
	Store gobreaker.SharedDataStore

	// Classifier decides which attempts count as failures.
	// Default: DefaultBreakerClassifier
	Classifier BreakerClassifier

	// OnStateChange is called when the breaker changes state.
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultBreakerConfig returns a local breaker that trips after 5
// consecutive failures, or at 50% failures over at least 10 attempts, and
// probes again after 10s.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         1,
		Interval:            30 * time.Second,
		Timeout:             10 * time.Second,
		FailureThreshold:    10,
		FailureRatio:        0.5,
		ConsecutiveFailures: 5,
		Classifier:          DefaultBreakerClassifier,
	}
}

// DistributedBreakerConfig returns DefaultBreakerConfig backed by store.
func DistributedBreakerConfig(store gobreaker.SharedDataStore) BreakerConfig {
	cfg := DefaultBreakerConfig()
	cfg.Store = store
	return cfg
}

// DefaultBreakerClassifier counts transport errors and 5xx responses as
// failures. Caller cancellation and 4xx responses (including 429) are not
// the server's fault and do not count.
func DefaultBreakerClassifier(resp *http.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled)
	}
	return resp != nil && resp.StatusCode >= http.StatusInternalServerError
}
