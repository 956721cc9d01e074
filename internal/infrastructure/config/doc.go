// Package config provides 12-factor configuration management for the backend.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host, shutdown grace)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Archive: Web archive index/snapshot endpoints and timeouts
//   - Gemini: Vision text generation endpoint, model and sampling
//   - Static: Frontend directory
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST, SHUTDOWN_TIMEOUT
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - ARCHIVE_INDEX_URL, ARCHIVE_ORIGIN, ARCHIVE_INDEX_TIMEOUT, ARCHIVE_FETCH_TIMEOUT
//   - ARCHIVE_DEFAULT_TIMESTAMP, ARCHIVE_RPS, ARCHIVE_MAX_PAGE_BYTES, ARCHIVE_USER_AGENT
//   - GEMINI_API_KEY, GEMINI_MODEL, GEMINI_BASE_URL, GEMINI_TIMEOUT
//   - GEMINI_TEMPERATURE, GEMINI_MAX_OUTPUT_TOKENS
//   - STATIC_DIR
package config
