// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driving"
)

// AnswerCompleted carries the outcome of one question back to the model.
// Answer is non-nil whenever the service returned one, even on failure.
type AnswerCompleted struct {
	Question string
	Answer   *domain.Answer
	Err      error
}

// SearchCompleted carries retrieval-only hits back to the model.
type SearchCompleted struct {
	Query string
	Hits  []domain.SearchHit
	Err   error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewAsk is the question input and answer view.
	ViewAsk
	// ViewDocuments lists registered documents with their index state.
	ViewDocuments
	// ViewDocDetails shows manifest metadata and stored state for one document.
	ViewDocDetails
	// ViewChunks pages through the stored chunks of one document.
	ViewChunks
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewAsk:
		return "ask"
	case ViewDocuments:
		return "documents"
	case ViewDocDetails:
		return "doc_details"
	case ViewChunks:
		return "chunks"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// DocumentsLoaded carries the registered documents and, when the pipeline
// is available, their stored state.
type DocumentsLoaded struct {
	Statuses []driving.DocumentStatus
	Err      error
}

// DocumentSelected signals a document was chosen for a detail view.
type DocumentSelected struct {
	Status driving.DocumentStatus
	View   ViewType
}

// ChunksLoaded carries the stored ChunkFile of one document.
type ChunksLoaded struct {
	DocID string
	File  *domain.ChunkFile
	Err   error
}

// RebuildCompleted signals a pipeline run for one document finished.
type RebuildCompleted struct {
	DocID  string
	Report *driving.RunReport
	Err    error
}

// DocumentVerified carries a freshly verified status for one document.
type DocumentVerified struct {
	DocID  string
	Status *driving.DocumentStatus
	Err    error
}
