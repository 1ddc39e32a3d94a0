package httpserver

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// KeyFunc extracts a rate limiting key from a request. Requests with the
// same key share a bucket.
type KeyFunc func(r *http.Request) string

// KeyFuncByIP keys by client IP: the first X-Forwarded-For entry when
// present, otherwise the host part of RemoteAddr.
func KeyFuncByIP() KeyFunc {
	return func(r *http.Request) string {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return host
		}
		return r.RemoteAddr
	}
}

// KeyFuncByPrincipal keys by the authenticated subject, falling back to
// the client IP for anonymous requests. Use after BearerAuth.
func KeyFuncByPrincipal() KeyFunc {
	byIP := KeyFuncByIP()
	return func(r *http.Request) string {
		if p, ok := PrincipalFromContext(r.Context()); ok {
			return "user:" + p.Subject
		}
		return "ip:" + byIP(r)
	}
}

// RateLimitConfig configures the rate limiting middleware.
type RateLimitConfig struct {
	// Limit is the sustained rate in requests per second.
	Limit rate.Limit

	// Burst is the token bucket capacity.
	Burst int

	// KeyFunc selects the bucket. Nil means one global bucket.
	KeyFunc KeyFunc

	// Redis shares buckets across instances. Nil keeps them in memory.
	Redis redis.UniversalClient

	// RedisKeyPrefix defaults to "ratelimit:".
	RedisKeyPrefix string

	// Logger reports Redis failures. The limiter fails open on them.
	Logger zerolog.Logger
}

// DefaultRateLimitConfig allows 100 req/s with bursts of 200.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Limit:          100,
		Burst:          200,
		RedisKeyPrefix: "ratelimit:",
	}
}

// RateLimit returns token-bucket middleware. Rejected requests get a 429
// failure envelope with a Retry-After header, which the request client
// treats as transient.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.RedisKeyPrefix == "" {
		cfg.RedisKeyPrefix = "ratelimit:"
	}
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = func(*http.Request) string { return "global" }
	}

	var allow func(r *http.Request, key string) bool
	if cfg.Redis != nil {
		allow = redisAllow(cfg)
	} else {
		allow = memoryAllow(cfg)
	}

	retryAfter := "1"
	if cfg.Limit > 0 && cfg.Limit < 1 {
		retryAfter = strconv.Itoa(int(math.Ceil(1 / float64(cfg.Limit))))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allow(r, keyFunc(r)) {
				w.Header().Set("Retry-After", retryAfter)
				WriteError(w, http.StatusTooManyRequests, "Too many requests, please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP limits each client IP separately.
func RateLimitByIP(limit rate.Limit, burst int) Middleware {
	return RateLimit(RateLimitConfig{Limit: limit, Burst: burst, KeyFunc: KeyFuncByIP()})
}

func memoryAllow(cfg RateLimitConfig) func(*http.Request, string) bool {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	return func(_ *http.Request, key string) bool {
		mu.Lock()
		limiter, ok := limiters[key]
		if !ok {
			limiter = rate.NewLimiter(cfg.Limit, cfg.Burst)
			limiters[key] = limiter
		}
		mu.Unlock()
		return limiter.Allow()
	}
}

// tokenBucketScript refills tokens by elapsed time, caps them at burst and
// takes one if available, atomically.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local data = redis.call('HMGET', key, 'tokens', 'last_update')
local tokens = tonumber(data[1])
local last_update = tonumber(data[2])

if tokens == nil then
    tokens = burst
    last_update = now
end

local elapsed_ms = math.max(0, now - last_update)
tokens = math.min(burst, tokens + (elapsed_ms / 1000.0) * rate)

local allowed = 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
end

redis.call('HSET', key, 'tokens', tokens, 'last_update', now)
redis.call('EXPIRE', key, ttl)
return allowed
`)

const redisBucketTTL = time.Minute

func redisAllow(cfg RateLimitConfig) func(*http.Request, string) bool {
	rps := float64(cfg.Limit)
	ttl := int(redisBucketTTL.Seconds())

	return func(r *http.Request, key string) bool {
		now := time.Now().UnixMilli()
		allowed, err := tokenBucketScript.Run(r.Context(), cfg.Redis,
			[]string{cfg.RedisKeyPrefix + key}, rps, cfg.Burst, now, ttl).Int()
		if err != nil {
			cfg.Logger.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable, allowing request")
			return true
		}
		return allowed == 1
	}
}
