// Package ai turns provider settings into embedding and generation adapters
// and checks that they answer before a run starts.
package ai

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	geminiembed "github.com/custodia-labs/filings-qa/internal/adapters/driven/embedding/gemini"
	ollamaembed "github.com/custodia-labs/filings-qa/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/filings-qa/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/filings-qa/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/filings-qa/internal/adapters/driven/llm/gemini"
	ollamallm "github.com/custodia-labs/filings-qa/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/filings-qa/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driven"
)

// pingTimeout bounds one connectivity check.
const pingTimeout = 5 * time.Second

const settingsHint = "Run 'filings settings' to fix"

type embeddingFactory func(ctx context.Context, s *domain.EmbeddingSettings, dims int) (driven.EmbeddingService, error)

type llmFactory func(ctx context.Context, s *domain.LLMSettings) (driven.LLMService, error)

var embeddingFactories = map[domain.AIProvider]embeddingFactory{
	domain.AIProviderOllama: func(_ context.Context, s *domain.EmbeddingSettings, dims int) (driven.EmbeddingService, error) {
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    s.BaseURL,
			Model:      s.Model,
			Dimensions: cmp.Or(dims, ollamaembed.DefaultDimensions),
		}), nil
	},
	domain.AIProviderOpenAI: func(_ context.Context, s *domain.EmbeddingSettings, dims int) (driven.EmbeddingService, error) {
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     s.APIKey,
			BaseURL:    s.BaseURL,
			Model:      s.Model,
			Dimensions: dims,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil
	},
	domain.AIProviderGemini: func(ctx context.Context, s *domain.EmbeddingSettings, dims int) (driven.EmbeddingService, error) {
		svc, err := geminiembed.NewEmbeddingService(ctx, geminiembed.Config{
			APIKey:     s.APIKey,
			Model:      s.Model,
			Dimensions: dims,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil
	},
}

var llmFactories = map[domain.AIProvider]llmFactory{
	domain.AIProviderOllama: func(_ context.Context, s *domain.LLMSettings) (driven.LLMService, error) {
		return ollamallm.NewLLMService(ollamallm.LLMConfig{BaseURL: s.BaseURL, Model: s.Model}), nil
	},
	domain.AIProviderOpenAI: func(_ context.Context, s *domain.LLMSettings) (driven.LLMService, error) {
		svc, err := openaillm.NewLLMService(openaillm.LLMConfig{APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model})
		if err != nil {
			return nil, err
		}
		return svc, nil
	},
	domain.AIProviderAnthropic: func(_ context.Context, s *domain.LLMSettings) (driven.LLMService, error) {
		svc, err := anthropicllm.NewLLMService(anthropicllm.Config{APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model})
		if err != nil {
			return nil, err
		}
		return svc, nil
	},
	domain.AIProviderGemini: func(ctx context.Context, s *domain.LLMSettings) (driven.LLMService, error) {
		svc, err := geminillm.NewLLMService(ctx, geminillm.Config{APIKey: s.APIKey, Model: s.Model})
		if err != nil {
			return nil, err
		}
		return svc, nil
	},
}

// CreateEmbeddingService builds the embedding adapter settings name without
// contacting it. It returns nil, nil when no provider is configured.
func CreateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, nil
	}
	if settings.Provider == domain.AIProviderAnthropic {
		return nil, fmt.Errorf("%w: anthropic does not support embeddings, use ollama, openai or gemini",
			domain.ErrUnsupportedType)
	}
	if !settings.IsConfigured() {
		return nil, nil
	}
	build, ok := embeddingFactories[settings.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: embedding provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
	dims := cmp.Or(settings.Dimensions, domain.EmbeddingDimensions()[settings.Model])
	return build(ctx, settings, dims)
}

// CreateLLMService builds the generation adapter settings name without
// contacting it. It returns nil, nil when no provider is configured.
func CreateLLMService(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}
	build, ok := llmFactories[settings.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: llm provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
	return build(ctx, settings)
}

// pinger is the part of both service ports a connectivity check needs.
type pinger interface {
	Ping(ctx context.Context) error
}

// reach pings svc within pingTimeout and explains a failure.
func reach(ctx context.Context, svc pinger) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		return explain(err)
	}
	return nil
}

// explain says what a failed ping most likely means. A provider that
// answered with a permanent rejection is misconfigured; anything else is
// treated as unreachable.
func explain(err error) error {
	var pe *domain.ProviderError
	if !errors.As(err, &pe) || pe.Retryable() {
		return fmt.Errorf("service unreachable (%w)", err)
	}
	switch pe.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("credentials rejected, check api_key (%w)", err)
	case http.StatusNotFound:
		return fmt.Errorf("model or endpoint not found, check model and base_url (%w)", err)
	default:
		return fmt.Errorf("request rejected (%w)", err)
	}
}

// connect builds a service, pings it and closes it again when it does not
// answer. kind is the sentinel a failure wraps.
func connect[S interface {
	pinger
	Close() error
}](ctx context.Context, kind error, svc S, err error, configured bool) (S, error) {
	var none S
	if err == nil && configured {
		if err = reach(ctx, svc); err != nil {
			_ = svc.Close()
		}
	}
	if err != nil {
		return none, fmt.Errorf("%w: %w. %s", kind, err, settingsHint)
	}
	if !configured {
		return none, nil
	}
	return svc, nil
}

// ConnectEmbedding builds the embedding service and checks it answers.
// It returns nil, nil when no provider is configured.
func ConnectEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(ctx, settings)
	return connect(ctx, domain.ErrEmbeddingUnavailable, svc, err, svc != nil)
}

// ConnectLLM builds the generation service and checks it answers.
// It returns nil, nil when no provider is configured.
func ConnectLLM(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := CreateLLMService(ctx, settings)
	return connect(ctx, domain.ErrLLMUnavailable, svc, err, svc != nil)
}

// InitResult holds the services a run connected to.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService

	// Warnings lists non-fatal problems, such as an unreachable LLM on a
	// run that only embeds.
	Warnings []string
}

// Close releases whichever services were connected.
func (r *InitResult) Close() {
	for _, svc := range []interface{ Close() error }{r.EmbeddingService, r.LLMService} {
		if svc != nil {
			_ = svc.Close()
		}
	}
}

// Init connects the services a run needs. An embedder is always required;
// the LLM only when requireLLM is set, otherwise its failure becomes a
// warning.
func Init(ctx context.Context, cfg domain.Config, requireLLM bool) (*InitResult, error) {
	embedder, err := ConnectEmbedding(ctx, &cfg.Embedding)
	if err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedding provider is not configured. %s",
			domain.ErrEmbeddingUnavailable, settingsHint)
	}
	result := &InitResult{EmbeddingService: embedder}

	llm, err := ConnectLLM(ctx, &cfg.LLM)
	if err == nil && llm == nil && requireLLM {
		err = fmt.Errorf("%w: llm provider is not configured. %s", domain.ErrLLMUnavailable, settingsHint)
	}
	if err != nil {
		if requireLLM {
			result.Close()
			return nil, err
		}
		result.Warnings = append(result.Warnings, err.Error())
	}
	result.LLMService = llm
	return result, nil
}
