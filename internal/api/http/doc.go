// Package http holds the REST handlers: browse, heartbeat, possess,
// witness and health.
//
// Browse and heartbeat report domain failures in the response body with
// status 200. Only bodies that cannot be decoded get a 400.
package http
