// Package ws serves the soul connection at /ws/soul.
//
// Each socket is registered with the souls registry on connect, greeted
// with a CONNECTION event and kept open by a read loop that discards
// whatever the client sends. Writes go through a mutex because broadcasts
// arrive from other request goroutines.
package ws
