package driven

import (
	"context"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
)

// Normaliser turns raw source bytes into position-marked text segments.
type Normaliser interface {
	// Name identifies the normaliser in logs.
	Name() string

	// Normalise parses content into ExtractedText.
	Normalise(ctx context.Context, content []byte) (domain.ExtractedText, error)
}

// DocumentConverter renders a binary document as Markdown.
// The converter's output is trusted as-is.
type DocumentConverter interface {
	// ToMarkdown converts the file at path.
	ToMarkdown(ctx context.Context, path string) (string, error)
}

// ManifestLoader reads document entries from a manifest file.
type ManifestLoader interface {
	// Load parses the manifest at path. Relative source paths are resolved
	// against the manifest's directory.
	Load(path string) ([]domain.DocumentEntry, error)
}
