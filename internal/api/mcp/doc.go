// Package mcp exposes the spirits as a Model Context Protocol tool.
//
// The server carries a single tool, consult_spirits, and is mounted on
// the HTTP router at /mcp over the streamable HTTP transport.
package mcp
