package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Archive   ArchiveConfig
	Gemini    GeminiConfig
	Haunt     HauntConfig
	MCP       MCPConfig
	Static    StaticConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8000"`
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	MaxBodyBytes    int64         `envconfig:"MAX_BODY_BYTES" default:"8388608"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds inbound rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"20"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"40"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	// BrowseRPS caps /api/browse across all clients; 0 disables the cap.
	BrowseRPS         int  `envconfig:"RATE_LIMIT_BROWSE_RPS" default:"10"`
}

// ArchiveConfig holds web archive upstream configuration.
type ArchiveConfig struct {
	IndexURL         string        `envconfig:"ARCHIVE_INDEX_URL" default:"https://archive.org/wayback/available"`
	Origin           string        `envconfig:"ARCHIVE_ORIGIN" default:"https://web.archive.org"`
	IndexTimeout     time.Duration `envconfig:"ARCHIVE_INDEX_TIMEOUT" default:"10s"`
	FetchTimeout     time.Duration `envconfig:"ARCHIVE_FETCH_TIMEOUT" default:"15s"`
	DefaultTimestamp string        `envconfig:"ARCHIVE_DEFAULT_TIMESTAMP" default:"1998"`
	RequestsPerSec   float64       `envconfig:"ARCHIVE_RPS" default:"0"`
	MaxPageBytes     int           `envconfig:"ARCHIVE_MAX_PAGE_BYTES" default:"10485760"`
	UserAgent        string        `envconfig:"ARCHIVE_USER_AGENT" default:"GhostBrain/1.0 (+resurrection)"`
}

// GeminiConfig holds generative vision model configuration.
type GeminiConfig struct {
	APIKey          string        `envconfig:"GEMINI_API_KEY"`
	Model           string        `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	BaseURL         string        `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com"`
	Timeout         time.Duration `envconfig:"GEMINI_TIMEOUT" default:"30s"`
	Temperature     float64       `envconfig:"GEMINI_TEMPERATURE" default:"0.9"`
	MaxOutputTokens int           `envconfig:"GEMINI_MAX_OUTPUT_TOKENS" default:"150"`
}

// HauntConfig holds heartbeat configuration.
type HauntConfig struct {
	// TablesFile replaces the built-in fallback lines (.yaml or .toml).
	TablesFile string `envconfig:"HAUNT_TABLES_FILE"`
}

// MCPConfig controls the Model Context Protocol endpoint.
type MCPConfig struct {
	Enabled bool `envconfig:"MCP_ENABLED" default:"true"`
}

// StaticConfig holds frontend asset configuration.
type StaticConfig struct {
	Dir string `envconfig:"STATIC_DIR" default:"frontend"`
}

// Configured reports whether a generation API key is present.
func (g GeminiConfig) Configured() bool {
	return g.APIKey != ""
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	if c.Archive.IndexTimeout <= 0 || c.Archive.FetchTimeout <= 0 {
		return errors.New("archive timeouts must be positive")
	}
	// Snapshots are larger than index answers.
	if c.Archive.FetchTimeout <= c.Archive.IndexTimeout {
		return fmt.Errorf("archive fetch timeout (%s) must exceed index timeout (%s)",
			c.Archive.FetchTimeout, c.Archive.IndexTimeout)
	}
	if c.Archive.DefaultTimestamp == "" {
		return errors.New("archive default timestamp must not be empty")
	}
	if c.Archive.MaxPageBytes <= 0 {
		return errors.New("archive max page bytes must be positive")
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8000",
			Host:            "0.0.0.0",
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    8 * 1024 * 1024,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			Enabled:           true,
			BrowseRPS:         10,
		},
		Archive: ArchiveConfig{
			IndexURL:         "https://archive.org/wayback/available",
			Origin:           "https://web.archive.org",
			IndexTimeout:     10 * time.Second,
			FetchTimeout:     15 * time.Second,
			DefaultTimestamp: "1998",
			RequestsPerSec:   0,
			MaxPageBytes:     10 * 1024 * 1024,
			UserAgent:        "GhostBrain/1.0 (+resurrection)",
		},
		Gemini: GeminiConfig{
			Model:           "gemini-2.0-flash",
			BaseURL:         "https://generativelanguage.googleapis.com",
			Timeout:         30 * time.Second,
			Temperature:     0.9,
			MaxOutputTokens: 150,
		},
		MCP: MCPConfig{
			Enabled: true,
		},
		Static: StaticConfig{
			Dir: "frontend",
		},
	}
}
