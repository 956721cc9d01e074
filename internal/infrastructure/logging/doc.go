// Package logging provides structured logging using uber/zap.
//
// This package offers production-ready logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Components receive a *Logger and derive their own scope with Named, so
// every line carries the emitting component (archive, sanitize, haunt, souls).
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	archiveLog := logger.Named("archive")
//	archiveLog.Info("Snapshot resolved", zap.String("url", snap.URL))
//	archiveLog.Error("Index query failed", zap.Error(err))
package logging
