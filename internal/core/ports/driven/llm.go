package driven

import "context"

// LLMService turns a prompt into text. Adapters exist for Ollama, OpenAI,
// Anthropic and Gemini.
//
// Failures the provider reports carry a *domain.ProviderError so callers
// can tell a rate limit from a rejected key.
type LLMService interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ModelName is recorded with each answer.
	ModelName() string

	// Ping makes the cheapest authenticated request the provider offers.
	Ping(ctx context.Context) error

	Close() error
}

// GenerateOptions tunes one generation call. Zero values leave the
// provider default in place.
type GenerateOptions struct {
	System      string
	MaxTokens   int
	Temperature float64
	StopWords   []string
}
