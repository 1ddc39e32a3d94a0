// Package auth logs users in and out of the rainlogger backend.
//
// The Service writes the session token into a tokenstore.Store after a
// successful login; the httpclient.Client reads it from the same store to
// authorize every later request.
package auth

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/kroma-labs/rainlogger-go/httpclient"
	"github.com/kroma-labs/rainlogger-go/tokenstore"
)

const (
	loginPath      = "/v1/users/login"
	isLoggedInPath = "/v1/users/isloggedin"

	loginFailed      = "Login failed"
	notAuthenticated = "Not authenticated"
)

// ErrMissingToken is returned when a login succeeds without a token.
var ErrMissingToken = errors.New("auth: login response carried no token")

// Service talks to the auth API.
type Service struct {
	client  *httpclient.Client
	baseURL string
	store   tokenstore.Store
	logger  zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a Service against baseURL (BASE_URL_AUTH).
func NewService(client *httpclient.Client, baseURL string, store tokenstore.Store, opts ...Option) *Service {
	s := &Service{
		client:  client,
		baseURL: baseURL,
		store:   store,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login posts the credentials and stores the returned token.
//
// The request never carries a stale bearer token. A rejected login is an
// *httpclient.APIError whose message is the server's, or "Login failed".
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	resp, err := httpclient.Post[LoginResponse](ctx, s.client, s.baseURL, loginPath, req,
		httpclient.WithOperation("auth.Login"),
		httpclient.WithHeader("Authorization", ""),
		httpclient.WithHeader("authorizationType", "bearer"),
	)
	if err != nil {
		s.logger.Warn().Err(err).Str("email", req.Email).Msg("login failed")
		return LoginResponse{}, withFallbackMessage(err, loginFailed)
	}
	if resp.Token == "" {
		return LoginResponse{}, ErrMissingToken
	}

	if err := s.store.SetToken(resp.Token); err != nil {
		return LoginResponse{}, err
	}

	s.logger.Info().
		Str("user_id", resp.Data.User.ID).
		Str("email", resp.Data.User.Email).
		Msg("logged in")
	return resp, nil
}

// IsLoggedIn checks the stored session with the server.
func (s *Service) IsLoggedIn(ctx context.Context) (IsLoggedInResponse, error) {
	resp, err := httpclient.Get[IsLoggedInResponse](ctx, s.client, s.baseURL, isLoggedInPath, nil,
		httpclient.WithOperation("auth.IsLoggedIn"),
	)
	if err != nil {
		return IsLoggedInResponse{}, withFallbackMessage(err, notAuthenticated)
	}
	return resp, nil
}

// Logout forgets the stored token. The server holds no session to end.
func (s *Service) Logout() error {
	if err := s.store.RemoveToken(); err != nil {
		return err
	}
	s.logger.Info().Msg("logged out")
	return nil
}

// HasSession reports whether a token is stored, without asking the server.
func (s *Service) HasSession() bool {
	return s.store.HasToken()
}

// withFallbackMessage swaps the generic status message for fallback when
// an error status came without a server message. Transport and decode
// failures keep their own.
func withFallbackMessage(err error, fallback string) error {
	apiErr, ok := httpclient.AsAPIError(err)
	if !ok || apiErr.Status < 400 || serverMessage(apiErr.Data) != "" {
		return err
	}
	return httpclient.NewAPIError(fallback, apiErr.Status, apiErr.Data)
}

func serverMessage(data any) string {
	body, ok := data.(map[string]any)
	if !ok {
		return ""
	}
	msg, _ := body["message"].(string)
	return msg
}
