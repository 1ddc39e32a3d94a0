// Package tokenstore keeps the session token shared by the auth service,
// which writes it, and the request client, which only reads it.
//
// Two stores are provided:
//
//   - Memory: process-local, for tests and long-running processes
//   - File: persisted to a file so a CLI stays logged in between runs
//
// Both satisfy httpclient.TokenStore:
//
//	store := tokenstore.NewFile(tokenstore.DefaultFilePath())
//	client := httpclient.New(httpclient.WithTokenStore(store))
package tokenstore

import (
	"os"
	"path/filepath"
)

// Key is the name under which the session token is stored.
const Key = "rainlogger_session"

// Store reads and writes a single session token.
type Store interface {
	// Token returns the stored token and whether one is stored.
	Token() (string, bool)

	// SetToken stores token, replacing any previous one.
	SetToken(token string) error

	// RemoveToken deletes the stored token. Removing a missing token is
	// not an error.
	RemoveToken() error

	// HasToken reports whether a token is stored.
	HasToken() bool
}

// DefaultFilePath returns "~/.rainlogger_session", or ".rainlogger_session"
// in the working directory when the home directory is unknown.
func DefaultFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "." + Key
	}
	return filepath.Join(home, "."+Key)
}
