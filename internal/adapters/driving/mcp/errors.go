// Package mcp provides an MCP (Model Context Protocol) server adapter.
// It lets AI assistants ask questions about indexed filings and inspect the
// document registry.
package mcp

import "errors"

// ErrMissingAnswerService is returned when the answer service is not provided.
var ErrMissingAnswerService = errors.New("mcp: answer service is required")
