package driven

import (
	"context"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
)

// VectorStore stores embedding records and serves nearest-neighbour search.
//
// Upsert is idempotent per ChunkID: writing the same id twice leaves one
// record. Concurrency control is delegated to the backing database.
type VectorStore interface {
	// EnsureCollection prepares storage for vectors of the given size.
	EnsureCollection(ctx context.Context, dimensions int) error

	// Upsert inserts or replaces records by ChunkID.
	Upsert(ctx context.Context, records []domain.EmbeddingRecord) error

	// Search returns up to k records ranked by descending similarity.
	Search(ctx context.Context, vector []float32, k int, filter domain.SearchFilter) ([]domain.SearchHit, error)

	// DeleteStale removes a document's records whose content hash differs
	// from keepHash. An empty keepHash removes every record of the document.
	// Returns the number of records removed when the backend reports it.
	DeleteStale(ctx context.Context, docID, keepHash string) (int, error)

	// Count returns the number of records held for a document.
	Count(ctx context.Context, docID string) (int, error)

	// Close releases resources.
	Close() error
}
