// Package gemini is a small REST client for the generateContent endpoint
// of Google's generative language API. It implements haunt.Oracle.
package gemini
