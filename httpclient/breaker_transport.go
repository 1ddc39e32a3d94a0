package httpclient

import (
	"context"
	"errors"
	"net/http"

	"github.com/sony/gobreaker/v2"
)

// circuitBreakerTransport is a RoundTripper that wraps attempts in a
// circuit breaker.
type circuitBreakerTransport struct {
	breaker    CircuitBreaker
	next       http.RoundTripper
	classifier BreakerClassifier
	cfg        *internalConfig
	name       string
}

// errSyntheticFailure tells the breaker that an attempt failed (e.g. a 500)
// even though RoundTrip itself returned no error. It never reaches callers.
var errSyntheticFailure = errors.New("synthetic failure")

// RoundTrip implements http.RoundTripper.
func (t *circuitBreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	resp, err := t.breaker.Execute(func() (*http.Response, error) {
		resp, err := t.next.RoundTrip(req) //nolint:bodyclose // returned to caller

		if t.classifier(resp, err) {
			if err != nil {
				return resp, err
			}
			return resp, errSyntheticFailure
		}
		return resp, err
	})

	switch {
	case err == nil:
		t.cfg.Metrics.recordBreakerRequest(ctx, t.name, "success")
		return resp, nil
	case errors.Is(err, errSyntheticFailure):
		t.cfg.Metrics.recordBreakerRequest(ctx, t.name, "failure")
		return resp, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		t.cfg.Metrics.recordBreakerRequest(ctx, t.name, "rejected")
		return nil, err
	default:
		t.cfg.Metrics.recordBreakerRequest(ctx, t.name, "failure")
		return nil, err
	}
}

// newCircuitBreakerTransport creates a new circuit breaker transport, or
// returns next unchanged when no breaker is configured.
func newCircuitBreakerTransport(next http.RoundTripper, cfg *internalConfig) http.RoundTripper {
	if cfg.BreakerConfig == nil {
		return next
	}
	bc := *cfg.BreakerConfig

	name := cfg.ServiceName
	if name == "" {
		name = "rainlogger-http-client"
	}

	classifier := bc.Classifier
	if classifier == nil {
		classifier = DefaultBreakerClassifier
	}

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if bc.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= bc.ConsecutiveFailures {
				return true
			}
			if counts.Requests < bc.FailureThreshold {
				return false
			}
			if bc.FailureRatio > 0 && counts.Requests > 0 {
				ratio := float64(counts.TotalFailures) / float64(counts.Requests)
				return ratio >= bc.FailureRatio
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			cfg.Metrics.recordBreakerState(context.Background(), name, int64(to))
			cfg.Logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
			if bc.OnStateChange != nil {
				bc.OnStateChange(name, from, to)
			}
		},
	}

	var cb CircuitBreaker = gobreaker.NewCircuitBreaker[*http.Response](st)

	if bc.Store != nil {
		dcb, err := gobreaker.NewDistributedCircuitBreaker[*http.Response](bc.Store, st)
		if err != nil {
			// Keep the local breaker: per-process protection beats none.
			cfg.Logger.Error().Err(err).Str("breaker", name).
				Msg("distributed circuit breaker unavailable, using local breaker")
		} else {
			cb = dcb
		}
	}

	return &circuitBreakerTransport{
		breaker:    cb,
		next:       next,
		classifier: classifier,
		cfg:        cfg,
		name:       name,
	}
}
