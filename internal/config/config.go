// Package config loads the environment configuration of the rainlogger
// binaries.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"github.com/kroma-labs/rainlogger-go/tokenstore"
)

// Config holds all application configuration.
type Config struct {
	API     APIConfig
	Session SessionConfig
	Logging LogConfig
	Mock    MockConfig
}

// APIConfig holds the backend endpoints the CLI talks to.
type APIConfig struct {
	AuthBaseURL       string        `envconfig:"BASE_URL_AUTH" default:"http://localhost:3000"`
	RainloggerBaseURL string        `envconfig:"BASE_URL_RAINLOGGER" default:"http://localhost:3000"`
	Locations         []string      `envconfig:"LOCATION_NAMES" default:"Castraz"`
	Timeout           time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	Debug             bool          `envconfig:"RAINLOGGER_DEBUG" default:"false"`
}

// SessionConfig holds where the session token is kept.
type SessionConfig struct {
	// File defaults to ~/.rainlogger_session.
	File string `envconfig:"RAINLOGGER_SESSION_FILE"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

// MockConfig holds the mock backend configuration.
type MockConfig struct {
	Addr           string  `envconfig:"MOCK_ADDR" default:":3000"`
	JWTSecret      string  `envconfig:"MOCK_JWT_SECRET" default:"rainlogger-dev-secret"`
	AdminEmail     string  `envconfig:"MOCK_ADMIN_EMAIL" default:"admin@admin.com"`
	AdminPassword  string  `envconfig:"MOCK_ADMIN_PASSWORD" default:"administrator"`
	RedisAddr      string  `envconfig:"MOCK_REDIS_ADDR"`
	LoginRateLimit float64 `envconfig:"MOCK_LOGIN_RPS" default:"1"`
	LoginBurst     int     `envconfig:"MOCK_LOGIN_BURST" default:"10"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.API.AuthBaseURL = strings.TrimRight(cfg.API.AuthBaseURL, "/")
	cfg.API.RainloggerBaseURL = strings.TrimRight(cfg.API.RainloggerBaseURL, "/")
	cfg.API.Locations = cleanList(cfg.API.Locations)
	if cfg.Session.File == "" {
		cfg.Session.File = tokenstore.DefaultFilePath()
	}
	if _, err := cfg.Logging.ZerologLevel(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ZerologLevel parses Level.
func (c LogConfig) ZerologLevel() (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.Level))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.Level, err)
	}
	return level, nil
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
