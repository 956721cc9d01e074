/*
Package tracing provides lightweight request tracing.

# Overview

Each HTTP request gets a span, and the browse pipeline opens a child span per
stage (resolve, fetch, sanitize). Completed spans are handed to a buffered
collector goroutine that writes them to the structured log, so tracing never
blocks a request.

# Usage

	tracer := tracing.New("ghostbrain", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "archive.resolve")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()

# Propagation

Incoming X-Trace-ID and X-Span-ID headers are honored and echoed back on the
response. When absent, a fresh trace ID is generated.

The collector buffers 1000 spans. When it is full, new spans are dropped with
a warning.
*/
package tracing
