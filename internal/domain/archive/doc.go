/*
Package archive talks to the public web archive.

The Resolver asks the availability index for the snapshot closest to a point
in time and retries once without a time constraint when a non-default
timestamp finds nothing. The Fetcher downloads the snapshot, following
redirects, and decodes legacy charsets to UTF-8.

Each stage owns a resty client with its own timeout, rate limiter and
circuit breaker. ErrNotFound is a normal answer and never trips a breaker.
Transport and status failures come back as *UpstreamError.
*/
package archive
