package driving

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
)

// DocumentResult reports what a pipeline run did to one document.
type DocumentResult struct {
	DocID string

	// ContentHash is the fingerprint of the current ChunkFile.
	ContentHash string

	// Chunks is the number of chunks in the current ChunkFile.
	Chunks int

	// Dropped is the number of text ranges no chunk covers.
	Dropped int

	// Rechunked is true when a new ChunkFile superseded the stored one.
	Rechunked bool

	// Embed is set when the embed stage ran.
	Embed *domain.EmbedReport

	// Err is the document-local failure, if any.
	Err error

	Duration time.Duration
}

// RunReport summarises a pipeline run.
type RunReport struct {
	RunID     string
	Stage     domain.Stage
	Documents []DocumentResult
	Duration  time.Duration
}

// Failed returns the results that carry an error.
func (r *RunReport) Failed() []DocumentResult {
	var out []DocumentResult
	for i := range r.Documents {
		if r.Documents[i].Err != nil {
			out = append(out, r.Documents[i])
		}
	}
	return out
}

// DocumentStatus describes the stored state of one document.
type DocumentStatus struct {
	Entry       domain.DocumentEntry
	ChunkFile   *domain.ChunkFile
	Index       *domain.IndexState
	NeedsEmbed  bool
	VerifyError error
}

// State summarises the stored state in a few words.
func (s *DocumentStatus) State() string {
	switch {
	case s.VerifyError != nil:
		return "corrupt"
	case s.ChunkFile == nil:
		return "not chunked"
	case s.Index == nil:
		return "not embedded"
	case s.Index.ContentHash != s.ChunkFile.ContentHash:
		return "stale"
	case s.Index.Gaps > 0:
		return fmt.Sprintf("partial (%d gaps)", s.Index.Gaps)
	default:
		return "current"
	}
}

// PipelineService runs pipeline stages over registered documents.
type PipelineService interface {
	// Run executes stage for the given documents; empty docIDs means all.
	// Configuration errors abort the run and are returned directly.
	// Per-document failures are reported in the RunReport.
	Run(ctx context.Context, stage domain.Stage, docIDs []string) (*RunReport, error)

	// Status reports stored chunk and index state per document.
	Status(ctx context.Context, docIDs []string, verify bool) ([]DocumentStatus, error)
}
