package httpclient

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()

	assert.InEpsilon(t, 10.0, cfg.RequestsPerSecond, 0.001)
	assert.Equal(t, 5, cfg.Burst)
	assert.True(t, cfg.WaitOnLimit)
}

func TestNewRateLimitTransport(t *testing.T) {
	next := NewMockTransport()

	tests := []struct {
		name        string
		cfg         *RateLimitConfig
		wantWrapped bool
	}{
		{
			name:        "given nil config, then returns next",
			cfg:         nil,
			wantWrapped: false,
		},
		{
			name:        "given zero rate, then returns next",
			cfg:         &RateLimitConfig{RequestsPerSecond: 0},
			wantWrapped: false,
		},
		{
			name:        "given a rate, then wraps next",
			cfg:         &RateLimitConfig{RequestsPerSecond: 5, Burst: 1},
			wantWrapped: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newRateLimitTransport(next, tt.cfg)
			_, wrapped := got.(*rateLimitTransport)
			assert.Equal(t, tt.wantWrapped, wrapped)
		})
	}
}

func TestRateLimitTransport_NoWait(t *testing.T) {
	mt := NewMockTransport().StubResponse(http.StatusOK, `{}`)
	rt := newRateLimitTransport(mt, &RateLimitConfig{
		RequestsPerSecond: 0.001,
		Burst:             1,
		WaitOnLimit:       false,
	})

	req, err := http.NewRequest(http.MethodGet, "http://api.test/v1/test", nil)
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = rt.RoundTrip(req)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 1, mt.RequestCount())
}

func TestRateLimitTransport_WaitHonorsDeadline(t *testing.T) {
	mt := NewMockTransport().StubResponse(http.StatusOK, `{}`)
	rt := newRateLimitTransport(mt, &RateLimitConfig{
		RequestsPerSecond: 0.001,
		Burst:             1,
		WaitOnLimit:       true,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://api.test/v1/test", nil)
	require.NoError(t, err)

	_, err = rt.RoundTrip(req)
	require.NoError(t, err)

	_, err = rt.RoundTrip(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestRateLimit_ClientSurfacesStatusZero(t *testing.T) {
	mt := NewMockTransport().StubResponse(http.StatusOK, `{"data":"ok"}`)
	client := New(
		WithMockTransport(mt),
		WithRateLimit(RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}),
	)
	ctx := context.Background()

	got, err := Get[testPayload](ctx, client, "http://api.test", "/v1/test", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", got.Data)

	_, err = Get[testPayload](ctx, client, "http://api.test", "/v1/test", nil)
	require.Error(t, err)
	assert.True(t, IsStatus(err, StatusTransport))
	assert.ErrorIs(t, err, ErrRateLimited)
}
