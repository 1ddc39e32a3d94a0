package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000", cfg.API.AuthBaseURL)
	assert.Equal(t, "http://localhost:3000", cfg.API.RainloggerBaseURL)
	assert.Equal(t, []string{"Castraz"}, cfg.API.Locations)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.False(t, cfg.API.Debug)
	assert.Equal(t, filepath.Join(home, ".rainlogger_session"), cfg.Session.File)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, ":3000", cfg.Mock.Addr)
	assert.Equal(t, "admin@admin.com", cfg.Mock.AdminEmail)
	assert.InDelta(t, 1.0, cfg.Mock.LoginRateLimit, 1e-9)
	assert.Equal(t, 10, cfg.Mock.LoginBurst)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("BASE_URL_AUTH", "https://auth.example.com/api/")
	t.Setenv("BASE_URL_RAINLOGGER", "https://rain.example.com/api")
	t.Setenv("LOCATION_NAMES", "Castraz, Sarria,,Lugo ")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("RAINLOGGER_DEBUG", "true")
	t.Setenv("RAINLOGGER_SESSION_FILE", "/tmp/session")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("MOCK_ADDR", ":4000")
	t.Setenv("MOCK_JWT_SECRET", "s3cret")
	t.Setenv("MOCK_REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://auth.example.com/api", cfg.API.AuthBaseURL)
	assert.Equal(t, "https://rain.example.com/api", cfg.API.RainloggerBaseURL)
	assert.Equal(t, []string{"Castraz", "Sarria", "Lugo"}, cfg.API.Locations)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.True(t, cfg.API.Debug)
	assert.Equal(t, "/tmp/session", cfg.Session.File)
	assert.Equal(t, ":4000", cfg.Mock.Addr)
	assert.Equal(t, "s3cret", cfg.Mock.JWTSecret)
	assert.Equal(t, "localhost:6379", cfg.Mock.RedisAddr)

	level, err := cfg.Logging.ZerologLevel()
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{
			name:  "given malformed timeout, then errors",
			key:   "REQUEST_TIMEOUT",
			value: "soon",
		},
		{
			name:  "given malformed debug flag, then errors",
			key:   "RAINLOGGER_DEBUG",
			value: "perhaps",
		},
		{
			name:  "given unknown log level, then errors",
			key:   "LOG_LEVEL",
			value: "chatty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
