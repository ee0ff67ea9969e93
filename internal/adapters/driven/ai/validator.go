package ai

import (
	"context"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driven"
)

var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator checks provider settings by building the adapter and
// pinging it once. Nothing is kept open afterwards.
type ConfigValidator struct{}

// NewConfigValidator returns a validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding reports why the embedding settings cannot be used.
func (v *ConfigValidator) ValidateEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(ctx, settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()
	return reach(ctx, svc)
}

// ValidateLLM reports why the generation settings cannot be used.
func (v *ConfigValidator) ValidateLLM(ctx context.Context, settings *domain.LLMSettings) error {
	svc, err := CreateLLMService(ctx, settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()
	return reach(ctx, svc)
}
