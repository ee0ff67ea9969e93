// Package gemini provides an embedding service adapter using the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/custodia-labs/filings-qa/internal/adapters/driven/apierr"
	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driven"
)

const provider = "gemini"

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel      = "gemini-embedding-001"
	DefaultDimensions = 3072

	// maxBatch is the largest batchEmbedContents request the API accepts.
	maxBatch = 100
)

// Config holds configuration for the Gemini embedding service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the embedding model to use (default: gemini-embedding-001).
	Model string

	// Dimensions is the expected vector size (model-dependent).
	Dimensions int

	// Options are extra client options, such as a custom endpoint.
	Options []option.ClientOption
}

// EmbeddingService generates embeddings using Gemini.
type EmbeddingService struct {
	client     *genai.Client
	model      *genai.EmbeddingModel
	name       string
	dimensions int
}

// NewEmbeddingService creates a new Gemini embedding service.
func NewEmbeddingService(ctx context.Context, cfg Config) (*EmbeddingService, error) {
	cfg, err := withDefaults(cfg)
	if err != nil {
		return nil, err
	}

	opts := append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, cfg.Options...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &EmbeddingService{
		client:     client,
		model:      client.EmbeddingModel(cfg.Model),
		name:       cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

func withDefaults(cfg Config) (Config, error) {
	if cfg.APIKey == "" {
		return cfg, fmt.Errorf("%w: gemini API key is required", domain.ErrConfiguration)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = domain.EmbeddingDimensions()[cfg.Model]
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}
	return cfg, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := s.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini: embed: %w", apierr.FromGoogle(provider, err))
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, errors.New("gemini: empty embedding received")
	}
	return res.Embedding.Values, nil
}

// EmbedBatch generates embeddings for multiple texts, preserving order.
// Inputs larger than one API batch are sent in several requests.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, part := range batches(texts, maxBatch) {
		b := s.model.NewBatch()
		for _, text := range part {
			b.AddContent(genai.Text(text))
		}
		res, err := s.model.BatchEmbedContents(ctx, b)
		if err != nil {
			return nil, fmt.Errorf("gemini: batch embed: %w", apierr.FromGoogle(provider, err))
		}
		vectors, err := values(res.Embeddings, len(part))
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// batches splits texts into consecutive groups of at most size.
func batches(texts []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(texts); start += size {
		out = append(out, texts[start:min(start+size, len(texts))])
	}
	return out
}

func values(embeddings []*genai.ContentEmbedding, want int) ([][]float32, error) {
	if len(embeddings) != want {
		return nil, fmt.Errorf("gemini: got %d embeddings for %d texts", len(embeddings), want)
	}
	out := make([][]float32, want)
	for i, e := range embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("gemini: empty embedding for input %d", i)
		}
		out[i] = e.Values
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.name
}

// Ping validates the API key by fetching the model's metadata.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if _, err := s.model.Info(ctx); err != nil {
		return fmt.Errorf("gemini: ping failed: %w", apierr.FromGoogle(provider, err))
	}
	return nil
}

// Close releases the underlying client.
func (s *EmbeddingService) Close() error {
	return s.client.Close()
}
