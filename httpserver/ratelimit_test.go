package httpserver_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/kroma-labs/rainlogger-go/httpserver"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func fire(handler http.Handler, n int, remoteAddr string) []int {
	codes := make([]int, 0, n)
	for range n {
		req := httptest.NewRequest(http.MethodPost, "/v1/users/login", nil)
		req.RemoteAddr = remoteAddr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	return codes
}

func TestRateLimit_InMemory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		burst int
		fire  int
		want  []int
	}{
		{
			name:  "given requests within burst, then all pass",
			burst: 3,
			fire:  3,
			want:  []int{200, 200, 200},
		},
		{
			name:  "given requests beyond burst, then extra requests get 429",
			burst: 2,
			fire:  4,
			want:  []int{200, 200, 429, 429},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// A near-zero rate keeps the bucket from refilling mid-test.
			handler := httpserver.RateLimit(httpserver.RateLimitConfig{
				Limit: rate.Limit(0.001),
				Burst: tt.burst,
			})(okHandler())

			assert.Equal(t, tt.want, fire(handler, tt.fire, "10.0.0.1:1234"))
		})
	}
}

func TestRateLimit_RejectionReply(t *testing.T) {
	t.Parallel()

	handler := httpserver.RateLimit(httpserver.RateLimitConfig{
		Limit: rate.Limit(0.5),
		Burst: 1,
	})(okHandler())

	_ = fire(handler, 1, "10.0.0.1:1234")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"status":"fail","message":"Too many requests, please try again later."}`, rec.Body.String())
}

func TestRateLimitByIP(t *testing.T) {
	t.Parallel()

	handler := httpserver.RateLimitByIP(rate.Limit(0.001), 1)(okHandler())

	assert.Equal(t, []int{200, 429}, fire(handler, 2, "10.0.0.1:1234"))
	assert.Equal(t, []int{200}, fire(handler, 1, "10.0.0.2:1234"), "other clients keep their own bucket")
}

func TestRateLimit_Redis(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := httpserver.RateLimitConfig{
		Limit:   rate.Limit(0.001),
		Burst:   2,
		KeyFunc: httpserver.KeyFuncByIP(),
		Redis:   client,
		Logger:  zerolog.Nop(),
	}

	// Two middleware instances share the bucket through Redis.
	first := httpserver.RateLimit(cfg)(okHandler())
	second := httpserver.RateLimit(cfg)(okHandler())

	assert.Equal(t, []int{200}, fire(first, 1, "10.0.0.1:1234"))
	assert.Equal(t, []int{200, 429}, fire(second, 2, "10.0.0.1:1234"))

	assert.True(t, mr.Exists("ratelimit:10.0.0.1"))
	assert.Positive(t, mr.TTL("ratelimit:10.0.0.1"))
}

func TestRateLimit_RedisUnavailableFailsOpen(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	handler := httpserver.RateLimit(httpserver.RateLimitConfig{
		Limit:  rate.Limit(0.001),
		Burst:  1,
		Redis:  client,
		Logger: zerolog.Nop(),
	})(okHandler())

	assert.Equal(t, []int{200, 200, 200}, fire(handler, 3, "10.0.0.1:1234"))
}

func TestKeyFuncs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		keyFunc    httpserver.KeyFunc
		remoteAddr string
		xff        string
		principal  *httpserver.Principal
		want       string
	}{
		{
			name:       "given remote addr, when keyed by IP, then returns host",
			keyFunc:    httpserver.KeyFuncByIP(),
			remoteAddr: "192.168.1.7:5555",
			want:       "192.168.1.7",
		},
		{
			name:       "given forwarded chain, when keyed by IP, then returns first hop",
			keyFunc:    httpserver.KeyFuncByIP(),
			remoteAddr: "10.0.0.1:80",
			xff:        "203.0.113.9, 10.0.0.1",
			want:       "203.0.113.9",
		},
		{
			name:       "given authenticated request, when keyed by principal, then returns subject",
			keyFunc:    httpserver.KeyFuncByPrincipal(),
			remoteAddr: "10.0.0.1:80",
			principal:  &httpserver.Principal{Subject: "u-1"},
			want:       "user:u-1",
		},
		{
			name:       "given anonymous request, when keyed by principal, then falls back to IP",
			keyFunc:    httpserver.KeyFuncByPrincipal(),
			remoteAddr: "10.0.0.1:80",
			want:       "ip:10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got string
			capture := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = tt.keyFunc(r)
			})

			var handler http.Handler = capture
			if tt.principal != nil {
				p := *tt.principal
				handler = httpserver.BearerAuth(httpserver.BearerAuthConfig{
					Verifier: httpserver.TokenVerifierFunc(func(context.Context, string) (httpserver.Principal, error) {
						return p, nil
					}),
				})(capture)
			}

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.principal != nil {
				req.Header.Set("Authorization", "Bearer t")
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			require.NotEmpty(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}
