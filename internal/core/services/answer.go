package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driven"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driving"
	"github.com/custodia-labs/filings-qa/internal/logger"
)

// Ensure AnswerService implements the interfaces.
var (
	_ driving.AnswerService   = (*AnswerService)(nil)
	_ driven.PromptStoreAware = (*AnswerService)(nil)
)

// AnswerConfig holds retrieval and generation settings.
type AnswerConfig struct {
	TopK        int
	MinScore    float64
	MaxAttempts int
	Backoff     time.Duration
	MaxTokens   int
	Temperature float64
}

// AnswerConfigFrom derives Q&A settings from the run configuration.
func AnswerConfigFrom(cfg domain.Config) AnswerConfig {
	return AnswerConfig{
		TopK:        cfg.Retrieval.TopK,
		MinScore:    cfg.Retrieval.MinScore,
		MaxAttempts: cfg.LLM.MaxAttempts,
		Backoff:     domain.DefaultRetryBackoff,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	}
}

// AnswerService runs the question-answering state machine:
// Idle, QueryEmbedded, Retrieved, then Answered or Failed.
type AnswerService struct {
	embedding   driven.EmbeddingService
	store       driven.VectorStore
	llm         driven.LLMService
	chunks      driven.ChunkFileStore
	promptStore driven.PromptStore
	cfg         AnswerConfig
}

// NewAnswerService creates a Q&A orchestrator. chunks is optional; when set,
// the query embedding model is checked against the one that built the index.
func NewAnswerService(
	embedding driven.EmbeddingService,
	store driven.VectorStore,
	llm driven.LLMService,
	chunks driven.ChunkFileStore,
	cfg AnswerConfig,
) *AnswerService {
	if cfg.TopK < 1 {
		cfg.TopK = domain.DefaultTopK
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &AnswerService{
		embedding: embedding,
		store:     store,
		llm:       llm,
		chunks:    chunks,
		cfg:       cfg,
	}
}

// SetPromptStore sets the prompt store for loading the answer template.
func (s *AnswerService) SetPromptStore(store driven.PromptStore) {
	s.promptStore = store
}

// Answer embeds the question, retrieves context and asks the LLM.
//
// The returned Answer is never nil. With no retrieved context the LLM is not
// called and the error wraps domain.ErrNoGroundedContext.
func (s *AnswerService) Answer(ctx context.Context, question string, opts domain.AskOptions) (*domain.Answer, error) {
	ans := &domain.Answer{Question: question, State: domain.QAIdle}

	if s.llm == nil {
		return fail(ans, domain.ErrLLMUnavailable)
	}

	hits, err := s.retrieve(ctx, question, opts, ans)
	if err != nil {
		return fail(ans, err)
	}
	if len(hits) == 0 {
		return fail(ans, domain.ErrNoGroundedContext)
	}

	ans.Prompt = BuildPrompt(s.loadPrompt(), question, hits)
	ans.Citations = CitationsFor(hits)
	ans.Contexts = make([]string, len(hits))
	for i := range hits {
		ans.Contexts[i] = hits[i].Record.Text
	}

	text, err := s.generate(ctx, ans.Prompt)
	if err != nil {
		return fail(ans, err)
	}

	ans.Text = text
	ans.Grounded = true
	ans.State = domain.QAAnswered
	return ans, nil
}

// Search runs the embedding and retrieval steps only.
func (s *AnswerService) Search(ctx context.Context, query string, opts domain.AskOptions) ([]domain.SearchHit, error) {
	return s.retrieve(ctx, query, opts, &domain.Answer{State: domain.QAIdle})
}

// retrieve advances ans through QueryEmbedded and Retrieved.
func (s *AnswerService) retrieve(ctx context.Context, query string, opts domain.AskOptions, ans *domain.Answer) ([]domain.SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}
	if s.embedding == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if s.store == nil {
		return nil, domain.ErrVectorStoreUnavailable
	}
	if err := s.checkModel(ctx, opts.Filter); err != nil {
		return nil, err
	}

	vector, err := s.embedding.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed question: %w", domain.ErrEmbedding, err)
	}
	ans.State = domain.QAQueryEmbedded

	k := opts.TopK
	if k < 1 {
		k = s.cfg.TopK
	}
	hits, err := s.store.Search(ctx, vector, k, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRetrieval, err)
	}

	kept := hits[:0]
	for _, h := range hits {
		if h.Score >= s.cfg.MinScore {
			kept = append(kept, h)
		}
	}
	ans.State = domain.QARetrieved

	logger.Debug("retrieved %d of %d hits for %q", len(kept), len(hits), query)
	return kept, nil
}

// checkModel rejects queries embedded with a different model than the
// documents the filter can reach. An unreadable index state only skips the
// check; the search itself still runs.
func (s *AnswerService) checkModel(ctx context.Context, filter domain.SearchFilter) error {
	if s.chunks == nil {
		return nil
	}
	model := s.embedding.ModelName()

	var states []domain.IndexState
	if filter.DocID != "" {
		state, err := s.chunks.GetIndexState(ctx, filter.DocID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return nil
		case err != nil:
			logger.Warn("model check skipped: index state for %s: %v", filter.DocID, err)
			return nil
		}
		states = append(states, *state)
	} else {
		var err error
		if states, err = s.chunks.ListIndexStates(ctx); err != nil {
			logger.Warn("model check skipped: listing index states: %v", err)
			return nil
		}
	}

	for _, state := range states {
		if !state.Matches(filter) {
			continue
		}
		if state.EmbedModel != "" && state.EmbedModel != model {
			return fmt.Errorf("%w: %s was indexed with %q but queries use %q; re-run embed",
				domain.ErrConfiguration, state.DocID, state.EmbedModel, model)
		}
	}
	return nil
}

// generate calls the LLM with bounded retries. A provider rejection such
// as a bad key ends the loop at once.
func (s *AnswerService) generate(ctx context.Context, prompt string) (string, error) {
	opts := driven.GenerateOptions{
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		text, err := s.llm.Generate(ctx, prompt, opts)
		if err == nil {
			return strings.TrimSpace(text), nil
		}
		lastErr = err
		logger.Warn("generation attempt %d/%d failed: %v", attempt, s.cfg.MaxAttempts, err)
		if !domain.IsRetryable(err) {
			break
		}

		if attempt < s.cfg.MaxAttempts {
			if err := sleepContext(ctx, domain.RetryDelay(err, time.Duration(attempt)*s.cfg.Backoff)); err != nil {
				return "", err
			}
		}
	}
	return "", fmt.Errorf("%w: %w", domain.ErrGeneration, lastErr)
}

func (s *AnswerService) loadPrompt() string {
	if s.promptStore == nil {
		return DefaultAnswerPrompt
	}
	prompt, err := s.promptStore.Load(driven.PromptAnswer)
	if err != nil || prompt == "" {
		return DefaultAnswerPrompt
	}
	return prompt
}

// fail moves ans to Failed. Only text generated from context may survive.
func fail(ans *domain.Answer, err error) (*domain.Answer, error) {
	ans.State = domain.QAFailed
	ans.Grounded = false
	ans.Text = ""
	return ans, err
}

// IsInsufficientContext reports whether err means nothing relevant was indexed.
func IsInsufficientContext(err error) bool {
	return errors.Is(err, domain.ErrNoGroundedContext)
}
