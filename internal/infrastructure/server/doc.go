// Package server assembles the process: it builds every component from
// config, mounts the routes and middleware on a gin engine, and owns the
// http.Server lifecycle.
//
// Responses are gzipped through gzhttp; WebSocket upgrades skip the
// wrapper. Shutdown drains in-flight requests before closing soul
// connections and flushing spans.
package server
