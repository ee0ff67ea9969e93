// Package tui provides an interactive terminal interface for asking questions
// about indexed filings and inspecting their pipeline state.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/filings-qa/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Answers answers questions and runs retrieval-only searches.
	Answers driving.AnswerService

	// Registry lists the documents in the manifest.
	Registry driving.DocumentRegistry

	// Pipeline reports stored chunk and index state and rebuilds documents.
	// Optional: the documents view degrades to manifest entries without it.
	Pipeline driving.PipelineService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(
	answers driving.AnswerService,
	registry driving.DocumentRegistry,
	pipeline driving.PipelineService,
) *Ports {
	return &Ports{
		Answers:  answers,
		Registry: registry,
		Pipeline: pipeline,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Answers == nil {
		return ErrMissingAnswerService
	}
	if p.Registry == nil {
		return ErrMissingRegistry
	}
	return nil
}
