/*
Package monitoring provides Prometheus metrics for the backend.

# Overview

Every Metrics value owns a private registry, so tests and multiple servers
in one process never collide on registration. The registry carries the Go
and process collectors plus the service metrics below.

# Metrics

  - HTTP request count, latency and response size per route template
  - Upstream call count and latency (archive index, archive fetch, gemini)
  - Browse outcomes and sanitized page size
  - Current haunt level and heartbeat utterance source
  - Live soul connections and witness delivery results
  - Uptime

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, monitoring.TargetArchiveIndex)
	resp, err := call()
	timer.Stop(monitoring.StatusOf(err))
*/
package monitoring
