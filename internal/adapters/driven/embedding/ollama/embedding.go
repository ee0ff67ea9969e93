// Package ollama embeds chunks with a local Ollama server.
package ollama

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/filings-qa/internal/adapters/driven/apierr"
	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = "nomic-embed-text"
	DefaultTimeout    = 60 * time.Second
	DefaultDimensions = 768
)

const provider = "ollama"

// Config configures the Ollama client. Dimensions must match the model;
// Ollama does not report it.
type Config struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	Dimensions int
}

// EmbeddingService prefers the batch /api/embed endpoint. Servers older
// than 0.3 answer it with a bare 404, after which every text goes through
// /api/embeddings one at a time.
type EmbeddingService struct {
	client     *http.Client
	baseURL    string
	model      string
	dimensions int

	legacy atomic.Bool
}

type batchRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type batchResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

type legacyRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type legacyResponse struct {
	Embedding []float64 `json:"embedding"`
}

// NewEmbeddingService fills in defaults. It never fails; an unreachable
// server shows up on Ping.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	return &EmbeddingService{
		client:     &http.Client{Timeout: cmp.Or(cfg.Timeout, DefaultTimeout)},
		baseURL:    strings.TrimRight(cmp.Or(cfg.BaseURL, DefaultBaseURL), "/"),
		model:      cmp.Or(cfg.Model, DefaultModel),
		dimensions: cmp.Or(cfg.Dimensions, DefaultDimensions),
	}
}

// Embed returns the vector for one text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns one vector per text, in order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if !s.legacy.Load() {
		vectors, err := s.embedBatch(ctx, texts)
		if !endpointMissing(err) {
			return vectors, err
		}
		s.legacy.Store(true)
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		var out legacyResponse
		if err := s.post(ctx, "/api/embeddings", legacyRequest{Model: s.model, Prompt: text}, &out); err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		if len(out.Embedding) == 0 {
			return nil, fmt.Errorf("embed text %d: ollama: empty embedding", i)
		}
		vectors[i] = toFloat32(out.Embedding)
	}
	return vectors, nil
}

func (s *EmbeddingService) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var out batchResponse
	if err := s.post(ctx, "/api/embed", batchRequest{Model: s.model, Input: texts}, &out); err != nil {
		return nil, err
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama: got %d embeddings for %d texts", len(out.Embeddings), len(texts))
	}
	vectors := make([][]float32, len(out.Embeddings))
	for i, e := range out.Embeddings {
		vectors[i] = toFloat32(e)
	}
	return vectors, nil
}

// endpointMissing tells a server without /api/embed apart from a 404 for
// a model that has not been pulled.
func endpointMissing(err error) bool {
	var pe *domain.ProviderError
	return errors.As(err, &pe) && pe.Status == http.StatusNotFound && !strings.Contains(pe.Message, "model")
}

func (s *EmbeddingService) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("ollama: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := apierr.Do(s.client, provider, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("ollama: decode response: %w", err)
	}
	return nil
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}

// Dimensions returns the configured vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the configured model.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping lists the local models.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: create request: %w", err)
	}
	_, err = apierr.Do(s.client, provider, req)
	return err
}

// Close is a no-op.
func (s *EmbeddingService) Close() error {
	return nil
}
