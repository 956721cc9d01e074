// Package haunt drives the escalating ghost.
//
// A single process-wide State counts heartbeats and raises the haunt level
// by one every TicksPerLevel beats, up to MaxLevel. The Engine turns each
// heartbeat into one spoken line: it asks the configured Oracle with a
// prompt built from the level and page context, and falls back to the
// embedded YAML tables when the oracle is missing, fails or says nothing.
// Fallback lines never repeat the last RepeatWindow utterances unless the
// tier has run out of alternatives.
//
// Heartbeats never fail. Undecodable frames and internal panics produce
// PlaceholderText.
package haunt
