// Package driving declares what the CLI, TUI and MCP server may ask of the
// core: answering questions, running pipeline stages and reading the
// document registry. internal/core/services implements these ports.
package driving
