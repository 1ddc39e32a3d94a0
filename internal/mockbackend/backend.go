// Package mockbackend serves the auth and rainlogger HTTP APIs from memory
// for local development and end-to-end tests. Replies follow the shapes of
// the real backend: the success/fail envelope, 201 on create, 204 on delete
// and {"status":"Unauthorized"} for requests without a session.
package mockbackend

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/kroma-labs/rainlogger-go/auth"
	"github.com/kroma-labs/rainlogger-go/httpserver"
)

// ErrMissingSecret is returned by New when no JWT secret is configured.
var ErrMissingSecret = errors.New("mockbackend: JWT secret is required")

// Config configures the mock backend.
type Config struct {
	// JWTSecret signs session tokens. Required.
	JWTSecret string

	// Issuer is the iss claim of session tokens.
	Issuer string

	// TokenTTL is the lifetime of session tokens.
	TokenTTL time.Duration

	// AdminEmail and AdminPassword are the seeded admin account.
	AdminEmail    string
	AdminPassword string

	// BcryptCost is the password hashing cost.
	BcryptCost int

	// Seed adds the admin account and the sample logs.
	Seed bool

	// LoginRateLimit and LoginBurst limit login attempts per client IP.
	LoginRateLimit rate.Limit
	LoginBurst     int

	// Redis, when set, shares login rate limits across instances and is
	// reported by the readiness check.
	Redis redis.UniversalClient

	Logger  zerolog.Logger
	Version string
}

// DefaultConfig returns the development settings. JWTSecret still has to
// be set.
func DefaultConfig() Config {
	return Config{
		Issuer:         "rainlogger",
		TokenTTL:       24 * time.Hour,
		AdminEmail:     "admin@admin.com",
		AdminPassword:  "administrator",
		BcryptCost:     bcrypt.DefaultCost,
		Seed:           true,
		LoginRateLimit: 1,
		LoginBurst:     10,
		Logger:         zerolog.Nop(),
		Version:        "dev",
	}
}

// Backend is the mock API.
type Backend struct {
	store    *Store
	verifier *httpserver.JWTVerifier
	health   *httpserver.HealthHandler
	metrics  *httpserver.PrometheusMetrics
	router   chi.Router
	tokenTTL time.Duration
	logger   zerolog.Logger

	flakyCalls atomic.Int64
}

// New builds the backend and its routes.
func New(cfg Config) (*Backend, error) {
	if cfg.JWTSecret == "" {
		return nil, ErrMissingSecret
	}

	b := &Backend{
		store:    NewStore(cfg.BcryptCost),
		verifier: httpserver.NewJWTVerifier(cfg.JWTSecret, cfg.Issuer),
		health: httpserver.NewHealthHandler(
			httpserver.WithHealthServiceName("rainlogger-mock"),
			httpserver.WithVersion(cfg.Version),
		),
		metrics:  httpserver.NewPrometheusMetrics("rainlogger_mock", routePattern),
		tokenTTL: cfg.TokenTTL,
		logger:   cfg.Logger,
	}

	if cfg.Seed {
		admin, err := Seed(b.store, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return nil, err
		}
		b.logger.Info().Str("email", admin.Email).Msg("seeded admin account")
	}

	b.metrics.Registerer().MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "rainlogger_mock",
			Name:      "rainlogs_stored",
			Help:      "Number of rainlogs held by the mock backend",
		},
		func() float64 { return float64(len(b.store.RainLogs(Query{}))) },
	))

	if cfg.Redis != nil {
		b.health.AddReadinessCheck("redis", func(ctx context.Context) error {
			return cfg.Redis.Ping(ctx).Err()
		})
	}

	b.router = b.routes(httpserver.RateLimitConfig{
		Limit:          cfg.LoginRateLimit,
		Burst:          cfg.LoginBurst,
		KeyFunc:        httpserver.KeyFuncByIP(),
		Redis:          cfg.Redis,
		RedisKeyPrefix: "rainlogger:login:",
		Logger:         cfg.Logger,
	})
	return b, nil
}

// Handler returns the router.
func (b *Backend) Handler() http.Handler {
	return b.router
}

// Store returns the backing store.
func (b *Backend) Store() *Store {
	return b.store
}

// Health returns the health handler served on /ping, /livez and /readyz.
func (b *Backend) Health() *httpserver.HealthHandler {
	return b.health
}

// IssueToken signs a session token for u.
func (b *Backend) IssueToken(u auth.User) (string, error) {
	return b.verifier.Issue(httpserver.Principal{
		Subject: u.ID,
		Name:    u.Name,
		Email:   u.Email,
		Role:    string(u.Role),
	}, b.tokenTTL)
}

func (b *Backend) routes(loginLimit httpserver.RateLimitConfig) chi.Router {
	r := chi.NewRouter()
	r.Use(b.metrics.Middleware())

	r.Method(http.MethodGet, "/ping", b.health.PingHandler())
	r.Method(http.MethodGet, "/livez", b.health.LiveHandler())
	r.Method(http.MethodGet, "/readyz", b.health.ReadyHandler())
	r.Method(http.MethodGet, "/metrics", b.metrics.Handler())

	session := httpserver.BearerAuth(httpserver.BearerAuthConfig{Verifier: b.verifier})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.With(httpserver.RateLimit(loginLimit)).Post("/login", b.login)
			r.With(httpserver.BearerAuth(httpserver.BearerAuthConfig{
				Verifier:     b.verifier,
				Unauthorized: http.HandlerFunc(notLoggedIn),
			})).Get("/isloggedin", b.isLoggedIn)
		})

		r.Route("/rainlogger/rainlog", func(r chi.Router) {
			r.Use(session)
			r.Get("/filters", b.filters)
			r.Post("/", b.createRainLog)
			r.Put("/", b.updateRainLog)
			r.With(httpserver.RequireRole(string(auth.RoleAdmin))).Delete("/delete/{id}", b.deleteRainLog)
		})

		r.Get("/test/flaky", b.flaky)
		r.Get("/test/bad-request", badRequest)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpserver.WriteError(w, http.StatusNotFound, "Can't find "+r.URL.Path+" on this server!")
	})
	return r
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
