package httpserver_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kroma-labs/rainlogger-go/httpserver"
)

var admin = httpserver.Principal{
	Subject: "u-1",
	Name:    "Admin",
	Email:   "admin@admin.com",
	Role:    "admin",
}

func TestJWTVerifier(t *testing.T) {
	t.Parallel()

	verifier := httpserver.NewJWTVerifier("secret", "rainlogger")

	valid, err := verifier.Issue(admin, time.Hour)
	require.NoError(t, err)
	expired, err := verifier.Issue(admin, -time.Minute)
	require.NoError(t, err)
	foreign, err := httpserver.NewJWTVerifier("other-secret", "rainlogger").Issue(admin, time.Hour)
	require.NoError(t, err)
	otherIssuer, err := httpserver.NewJWTVerifier("secret", "someone-else").Issue(admin, time.Hour)
	require.NoError(t, err)
	noSubject, err := verifier.Issue(httpserver.Principal{Name: "ghost"}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		want    httpserver.Principal
		wantErr bool
	}{
		{
			name:  "given valid token, then returns principal",
			token: valid,
			want:  admin,
		},
		{
			name:    "given expired token, then rejects",
			token:   expired,
			wantErr: true,
		},
		{
			name:    "given token signed with another secret, then rejects",
			token:   foreign,
			wantErr: true,
		},
		{
			name:    "given token from another issuer, then rejects",
			token:   otherIssuer,
			wantErr: true,
		},
		{
			name:    "given token without subject, then rejects",
			token:   noSubject,
			wantErr: true,
		},
		{
			name:    "given tampered token, then rejects",
			token:   valid[:len(valid)-2] + "xx",
			wantErr: true,
		},
		{
			name:    "given garbage, then rejects",
			token:   "not-a-jwt",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := verifier.Verify(context.Background(), tt.token)

			if tt.wantErr {
				assert.ErrorIs(t, err, httpserver.ErrInvalidToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{
			name:   "given bearer header, then returns token",
			header: "Bearer abc.def.ghi",
			want:   "abc.def.ghi",
		},
		{
			name:   "given lowercase scheme, then returns token",
			header: "bearer abc",
			want:   "abc",
		},
		{
			name:    "given no header, then errors",
			wantErr: httpserver.ErrMissingToken,
		},
		{
			name:    "given basic scheme, then errors",
			header:  "Basic dXNlcjpwYXNz",
			wantErr: httpserver.ErrMissingToken,
		},
		{
			name:    "given bearer without token, then errors",
			header:  "Bearer ",
			wantErr: httpserver.ErrMissingToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := http.Header{}
			if tt.header != "" {
				h.Set("Authorization", tt.header)
			}

			got, err := httpserver.BearerToken(h)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBearerAuth(t *testing.T) {
	t.Parallel()

	verifier := httpserver.NewJWTVerifier("secret", "rainlogger")
	token, err := verifier.Issue(admin, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "given valid token, then reaches handler with principal",
			header:     "Bearer " + token,
			wantStatus: http.StatusOK,
			wantBody:   "admin@admin.com",
		},
		{
			name:       "given no token, then returns 401",
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"status":"Unauthorized"}`,
		},
		{
			name:       "given invalid token, then returns 401",
			header:     "Bearer expired",
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"status":"Unauthorized"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := httpserver.BearerAuth(httpserver.BearerAuthConfig{Verifier: verifier})(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					p, ok := httpserver.PrincipalFromContext(r.Context())
					require.True(t, ok)
					_, _ = w.Write([]byte(p.Email))
				}),
			)

			req := httptest.NewRequest(http.MethodGet, "/v1/users/isloggedin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			} else {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestBearerAuth_CustomRejection(t *testing.T) {
	t.Parallel()

	handler := httpserver.BearerAuth(httpserver.BearerAuthConfig{
		Verifier: httpserver.TokenVerifierFunc(func(context.Context, string) (httpserver.Principal, error) {
			return httpserver.Principal{}, httpserver.ErrInvalidToken
		}),
		Unauthorized: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			httpserver.WriteError(w, http.StatusUnauthorized, "You are not logged in")
		}),
	})(http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"status":"fail","message":"You are not logged in"}`, rec.Body.String())
}

func TestBearerAuth_LogsUserID(t *testing.T) {
	t.Parallel()

	verifier := httpserver.NewJWTVerifier("secret", "rainlogger")
	token, err := verifier.Issue(admin, time.Hour)
	require.NoError(t, err)

	var buf bytes.Buffer
	handler := httpserver.Chain(
		httpserver.Logger(httpserver.LoggerConfig{Logger: zerolog.New(&buf)}),
		httpserver.BearerAuth(httpserver.BearerAuthConfig{Verifier: verifier}),
	)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	lines := decodeLogLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "u-1", lines[0]["user_id"])
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	verifier := httpserver.TokenVerifierFunc(func(_ context.Context, token string) (httpserver.Principal, error) {
		return httpserver.Principal{Subject: token, Role: token}, nil
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{
			name:       "given admin principal, then passes",
			header:     "Bearer admin",
			wantStatus: http.StatusOK,
		},
		{
			name:       "given user principal, then returns 403",
			header:     "Bearer user",
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := httpserver.Chain(
				httpserver.BearerAuth(httpserver.BearerAuthConfig{Verifier: verifier}),
				httpserver.RequireRole("admin"),
			)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodDelete, "/", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRequireRole_WithoutPrincipal(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	httpserver.RequireRole("admin")(http.NotFoundHandler()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
