package services

import (
	"context"
	"errors"
	"hash/fnv"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driven"
)

// bagEmbedder is a deterministic bag-of-words embedding service. Each word
// is hashed into one of dims buckets, so texts sharing words are similar.
type bagEmbedder struct {
	dims  int
	model string

	mu       sync.Mutex
	failures map[string]int // text -> failures left before succeeding
	failErr  error          // returned while failing, a transport error when nil
	calls    int
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

var _ driven.EmbeddingService = (*bagEmbedder)(nil)

func newBagEmbedder() *bagEmbedder {
	return &bagEmbedder{dims: 256, model: "bag-of-words", failures: make(map[string]int)}
}

func (e *bagEmbedder) failTimes(text string, n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[text] = n
}

func (e *bagEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *bagEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	n := e.inFlight.Add(1)
	defer e.inFlight.Add(-1)
	for {
		seen := e.maxSeen.Load()
		if n <= seen || e.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	e.mu.Lock()
	e.calls++
	if left := e.failures[text]; left != 0 {
		if left > 0 {
			e.failures[text] = left - 1
		}
		failErr := e.failErr
		e.mu.Unlock()
		if failErr != nil {
			return nil, failErr
		}
		return nil, errors.New("embedding backend unavailable")
	}
	e.mu.Unlock()

	vec := make([]float32, e.dims)
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		vec[h.Sum32()%uint32(e.dims)]++
	}
	return vec, nil
}

func (e *bagEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *bagEmbedder) Dimensions() int              { return e.dims }
func (e *bagEmbedder) ModelName() string            { return e.model }
func (e *bagEmbedder) Ping(_ context.Context) error { return nil }
func (e *bagEmbedder) Close() error                 { return nil }

// mockLLM records prompts and returns a canned answer.
type mockLLM struct {
	mu       sync.Mutex
	response string
	failures int // -1 fails forever
	failErr  error
	prompts  []string
}

var _ driven.LLMService = (*mockLLM)(nil)

func (m *mockLLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.failures != 0 {
		if m.failures > 0 {
			m.failures--
		}
		if m.failErr != nil {
			return "", m.failErr
		}
		return "", errors.New("model overloaded")
	}
	return m.response, nil
}

func (m *mockLLM) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

// brokenStore is a vector store whose operations fail.
type brokenStore struct {
	driven.VectorStore
	searchErr error
	upsertErr error
	deleteErr error
}

func (s *brokenStore) Search(ctx context.Context, v []float32, k int, f domain.SearchFilter) ([]domain.SearchHit, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.VectorStore.Search(ctx, v, k, f)
}

func (s *brokenStore) Upsert(ctx context.Context, records []domain.EmbeddingRecord) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	return s.VectorStore.Upsert(ctx, records)
}

func (s *brokenStore) DeleteStale(ctx context.Context, docID, keep string) (int, error) {
	if s.deleteErr != nil {
		return 0, s.deleteErr
	}
	return s.VectorStore.DeleteStale(ctx, docID, keep)
}

// stubPromptStore serves a fixed template.
type stubPromptStore struct {
	template string
}

func (s *stubPromptStore) Load(_ string) (string, error) { return s.template, nil }

// stubConverter returns fixed Markdown for any path.
type stubConverter struct {
	markdown string
	err      error
}

func (c *stubConverter) ToMarkdown(_ context.Context, _ string) (string, error) {
	return c.markdown, c.err
}

func removeFile(path string) error {
	return os.Remove(path)
}
