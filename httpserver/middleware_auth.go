package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

var (
	// ErrMissingToken is returned when the Authorization header carries no
	// bearer token.
	ErrMissingToken = errors.New("authorization header must be Bearer {token}")

	// ErrInvalidToken is returned for tokens that fail verification.
	// Intentionally generic so callers learn nothing about why.
	ErrInvalidToken = errors.New("invalid token")
)

// Principal is the authenticated user of a request.
type Principal struct {
	Subject string
	Name    string
	Email   string
	Role    string
}

// TokenVerifier turns a bearer token into a Principal.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Principal, error)
}

// TokenVerifierFunc adapts a function to TokenVerifier.
type TokenVerifierFunc func(ctx context.Context, token string) (Principal, error)

func (f TokenVerifierFunc) Verify(ctx context.Context, token string) (Principal, error) {
	return f(ctx, token)
}

// principalClaims is the JWT payload of a session token.
type principalClaims struct {
	jwt.RegisteredClaims
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// JWTVerifier issues and verifies HS256 session tokens.
type JWTVerifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTVerifier creates a JWTVerifier signing with secret.
func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Issue signs a token for p that expires after ttl.
func (v *JWTVerifier) Issue(p Principal, ttl time.Duration) (string, error) {
	now := v.now()
	claims := principalClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Subject,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name:  p.Name,
		Email: p.Email,
		Role:  p.Role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}
	return signed, nil
}

// Verify implements TokenVerifier. Expired, tampered and foreign tokens
// all yield ErrInvalidToken wrapping the parser's reason.
func (v *JWTVerifier) Verify(_ context.Context, token string) (Principal, error) {
	claims := &principalClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Principal{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return Principal{
		Subject: claims.Subject,
		Name:    claims.Name,
		Email:   claims.Email,
		Role:    claims.Role,
	}, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is case-insensitive.
func BearerToken(h http.Header) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(h.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", ErrMissingToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// BearerAuthConfig configures the bearer-token middleware.
type BearerAuthConfig struct {
	// Verifier checks the token. Required.
	Verifier TokenVerifier

	// Unauthorized writes the rejection. Default: 401 {"status":"Unauthorized"}.
	Unauthorized http.Handler
}

// BearerAuth returns middleware that requires a valid bearer token and
// stores the Principal in the request context.
//
// Example:
//
//	verifier := httpserver.NewJWTVerifier(secret, "rainlogger")
//	r.With(httpserver.BearerAuth(httpserver.BearerAuthConfig{Verifier: verifier})).
//	    Post("/v1/rainlogger/rainlog", createHandler)
func BearerAuth(cfg BearerAuthConfig) Middleware {
	unauthorized := cfg.Unauthorized
	if unauthorized == nil {
		unauthorized = http.HandlerFunc(writeUnauthorized)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := zerolog.Ctx(r.Context())

			token, err := BearerToken(r.Header)
			if err != nil {
				unauthorized.ServeHTTP(w, r)
				return
			}

			principal, err := cfg.Verifier.Verify(r.Context(), token)
			if err != nil {
				logger.Debug().Err(err).Msg("bearer token rejected")
				unauthorized.ServeHTTP(w, r)
				return
			}

			logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("user_id", principal.Subject)
			})

			ctx := context.WithValue(r.Context(), principalKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole returns middleware that admits only principals with one of
// roles. It must run after BearerAuth.
func RequireRole(roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeUnauthorized(w, r)
				return
			}
			if !slices.Contains(roles, p.Role) {
				WriteError(w, http.StatusForbidden, "You do not have permission to perform this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type principalKey struct{}

// PrincipalFromContext returns the Principal stored by BearerAuth.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

func writeUnauthorized(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusUnauthorized, map[string]string{"status": "Unauthorized"})
}
