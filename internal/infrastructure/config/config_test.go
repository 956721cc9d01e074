package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, int64(8*1024*1024), cfg.Server.MaxBodyBytes)

	// Archive config
	assert.Equal(t, "https://archive.org/wayback/available", cfg.Archive.IndexURL)
	assert.Equal(t, "https://web.archive.org", cfg.Archive.Origin)
	assert.Equal(t, "1998", cfg.Archive.DefaultTimestamp)
	assert.Greater(t, cfg.Archive.FetchTimeout, cfg.Archive.IndexTimeout)

	// Gemini config
	assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
	assert.Equal(t, 150, cfg.Gemini.MaxOutputTokens)
	assert.False(t, cfg.Gemini.Configured())

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 20, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 40, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 10, cfg.RateLimit.BrowseRPS)

	assert.True(t, cfg.MCP.Enabled)

	require.NoError(t, cfg.Validate())
}

func TestLoadOrDefault(t *testing.T) {
	// Should return default when no env vars set
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "1998", cfg.Archive.DefaultTimestamp)
	assert.Equal(t, 15*time.Second, cfg.Archive.FetchTimeout)
	assert.Equal(t, 0.9, cfg.Gemini.Temperature)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                  "9000",
		"HOST":                  "127.0.0.1",
		"LOG_LEVEL":             "debug",
		"LOG_DEV":               "true",
		"RATE_LIMIT_RPS":        "500",
		"RATE_LIMIT_BURST":      "1000",
		"RATE_LIMIT_ENABLED":    "false",
		"ARCHIVE_INDEX_TIMEOUT": "2s",
		"ARCHIVE_FETCH_TIMEOUT": "5s",
		"ARCHIVE_RPS":           "1.5",
		"GEMINI_API_KEY":        "test-key",
		"GEMINI_MODEL":          "gemini-test",
		"STATIC_DIR":            "/srv/frontend",
		"HAUNT_TABLES_FILE":     "/etc/ghostbrain/tables.toml",
		"MAX_BODY_BYTES":        "1024",
		"MCP_ENABLED":           "false",
	}

	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Archive.IndexTimeout)
	assert.Equal(t, 5*time.Second, cfg.Archive.FetchTimeout)
	assert.InDelta(t, 1.5, cfg.Archive.RequestsPerSec, 0.0001)
	assert.True(t, cfg.Gemini.Configured())
	assert.Equal(t, "gemini-test", cfg.Gemini.Model)
	assert.Equal(t, "/srv/frontend", cfg.Static.Dir)
	assert.Equal(t, "/etc/ghostbrain/tables.toml", cfg.Haunt.TablesFile)
	assert.Equal(t, int64(1024), cfg.Server.MaxBodyBytes)
	assert.False(t, cfg.MCP.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name: "fetch timeout must exceed index timeout",
			mutate: func(c *Config) {
				c.Archive.FetchTimeout = c.Archive.IndexTimeout
			},
			wantErr: true,
		},
		{
			name: "zero index timeout",
			mutate: func(c *Config) {
				c.Archive.IndexTimeout = 0
			},
			wantErr: true,
		},
		{
			name: "empty default timestamp",
			mutate: func(c *Config) {
				c.Archive.DefaultTimestamp = ""
			},
			wantErr: true,
		},
		{
			name: "non-positive page limit",
			mutate: func(c *Config) {
				c.Archive.MaxPageBytes = 0
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadOrDefaultFallsBackOnInvalidEnv(t *testing.T) {
	t.Setenv("ARCHIVE_INDEX_TIMEOUT", "20s")
	t.Setenv("ARCHIVE_FETCH_TIMEOUT", "5s")

	_, err := Load()
	require.Error(t, err)

	cfg := LoadOrDefault()
	assert.Equal(t, Default(), cfg)
}
