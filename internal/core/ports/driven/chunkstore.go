package driven

import (
	"context"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
)

// ChunkFileStore persists the latest ChunkFile per document and the
// version that is live in the vector store.
type ChunkFileStore interface {
	// SaveChunkFile stores cf, superseding any previous file for the document.
	SaveChunkFile(ctx context.Context, cf *domain.ChunkFile) error

	// GetChunkFile returns the current file, or domain.ErrNotFound.
	GetChunkFile(ctx context.Context, docID string) (*domain.ChunkFile, error)

	// ListChunkFiles returns the current file of every document.
	ListChunkFiles(ctx context.Context) ([]domain.ChunkFile, error)

	// SaveIndexState records which content hash was embedded and with which model.
	SaveIndexState(ctx context.Context, state domain.IndexState) error

	// GetIndexState returns the index state, or domain.ErrNotFound.
	GetIndexState(ctx context.Context, docID string) (*domain.IndexState, error)

	// ListIndexStates returns the index state of every embedded document.
	ListIndexStates(ctx context.Context) ([]domain.IndexState, error)
}
