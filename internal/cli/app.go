// Package cli holds the commands of the rainlogger binary.
package cli

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/kroma-labs/rainlogger-go/auth"
	"github.com/kroma-labs/rainlogger-go/httpclient"
	"github.com/kroma-labs/rainlogger-go/internal/config"
	"github.com/kroma-labs/rainlogger-go/rainlog"
	"github.com/kroma-labs/rainlogger-go/tokenstore"
)

// App is what the commands run against.
type App struct {
	Auth      *auth.Service
	RainLogs  *rainlog.Service
	Locations []string
	Logger    zerolog.Logger

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewApp wires the services from cfg. Logs go to stderr.
func NewApp(cfg *config.Config) (*App, error) {
	level, err := cfg.Logging.ZerologLevel()
	if err != nil {
		return nil, err
	}
	logger := NewLogger(os.Stderr, level)

	store := tokenstore.NewFile(cfg.Session.File)

	policy := httpclient.DefaultRetryPolicy()
	policy.Timeout = cfg.API.Timeout

	opts := []httpclient.Option{
		httpclient.WithServiceName("rainlogger-cli"),
		httpclient.WithTokenStore(store),
		httpclient.WithRetryPolicy(policy),
		httpclient.WithLogger(logger),
	}
	if cfg.API.Debug {
		opts = append(opts, httpclient.WithDebug())
	}
	client := httpclient.New(opts...)

	return &App{
		Auth:      auth.NewService(client, cfg.API.AuthBaseURL, store, auth.WithLogger(logger)),
		RainLogs:  rainlog.NewService(client, cfg.API.RainloggerBaseURL, rainlog.WithLogger(logger)),
		Locations: cfg.API.Locations,
		Logger:    logger,
		Now:       time.Now,
	}, nil
}

// NewLogger returns a console logger writing to w.
func NewLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger()
}
