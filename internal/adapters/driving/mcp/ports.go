package mcp

import (
	"github.com/custodia-labs/filings-qa/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Answers answers questions and runs retrieval.
	Answers driving.AnswerService

	// Registry lists the documents of the manifest.
	Registry driving.DocumentRegistry

	// Pipeline reports chunk and index state.
	Pipeline driving.PipelineService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Answers == nil {
		return ErrMissingAnswerService
	}
	// Registry and Pipeline are optional; their tools report empty results.
	return nil
}
