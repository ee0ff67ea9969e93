package driven

import (
	"context"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
)

// AIConfigValidator checks provider settings before they are relied on,
// typically right after 'filings settings' changes them. Settings that
// name no usable provider are not an error.
type AIConfigValidator interface {
	ValidateEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) error
	ValidateLLM(ctx context.Context, settings *domain.LLMSettings) error
}
