package driven

import "github.com/custodia-labs/filings-qa/internal/core/domain"

// Chunker splits extracted text into an ordered, fingerprinted ChunkFile.
// Implementations must be deterministic and free of side effects.
type Chunker interface {
	// Chunk applies strategy to text.
	Chunk(text domain.ExtractedText, docID string, strategy domain.ChunkStrategy) (*domain.ChunkFile, error)

	// ValidateStrategy checks parameters and that the strategy is known.
	ValidateStrategy(strategy domain.ChunkStrategy) error
}
