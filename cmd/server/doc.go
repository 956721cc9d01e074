// Package main is the entry point for the GhostBrain backend.
//
// It serves the haunted browser: archived pages through /api/browse, the
// escalating ghost through /api/heartbeat and /api/possess, and the soul
// connection at /ws/soul.
//
//	Frontend (Win95 shell) → GhostBrain → Wayback Machine (snapshots)
//	                                    → Gemini (vision text)
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//
// Usage:
//
//	# Production mode
//	GEMINI_API_KEY=... ./server -port 8000
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
