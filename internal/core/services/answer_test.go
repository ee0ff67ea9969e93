package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/filings-qa/internal/adapters/driven/storage/memory"
	vsmemory "github.com/custodia-labs/filings-qa/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driven"
)

type answerFixture struct {
	embedding *bagEmbedder
	vectors   *vsmemory.Store
	chunks    *memory.ChunkFileStore
	llm       *mockLLM
}

// newAnswerFixture indexes two Acme chunks and one Beta chunk.
func newAnswerFixture(t *testing.T) *answerFixture {
	t.Helper()
	f := &answerFixture{
		embedding: newBagEmbedder(),
		vectors:   vsmemory.New(),
		chunks:    memory.NewChunkFileStore(),
		llm:       &mockLLM{response: "  Net income was flat.  "},
	}
	embedder := NewEmbedder(f.embedding, f.vectors, f.chunks, EmbedderConfig{})
	ctx := context.Background()

	_, err := embedder.Embed(ctx, entry("acme", "Acme"),
		chunkFile("acme", "h1", "Revenue grew 10%. Costs rose 5%.", "Net income was flat."))
	require.NoError(t, err)

	beta := entry("beta", "Beta")
	beta.DocType = domain.DocTypeTranscript
	_, err = embedder.Embed(ctx, beta, chunkFile("beta", "h2", "Beta net income doubled."))
	require.NoError(t, err)
	return f
}

func (f *answerFixture) service(cfg AnswerConfig) *AnswerService {
	return NewAnswerService(f.embedding, f.vectors, f.llm, f.chunks, cfg)
}

func TestAnswer_GroundedWithCitations(t *testing.T) {
	f := newAnswerFixture(t)
	svc := f.service(AnswerConfig{TopK: 2})

	ans, err := svc.Answer(context.Background(), "How did net income change?", domain.AskOptions{
		Filter: domain.SearchFilter{Company: "Acme"},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.QAAnswered, ans.State)
	assert.True(t, ans.Grounded)
	assert.Equal(t, "Net income was flat.", ans.Text)
	require.Len(t, ans.Citations, 2)
	assert.Equal(t, "acme:00001", ans.Citations[0].ChunkID)
	assert.Equal(t, domain.SingleSpan(domain.PageMarker("2")), ans.Citations[0].Span)
	assert.Equal(t, []string{"Net income was flat.", "Revenue grew 10%. Costs rose 5%."}, ans.Contexts)

	// Every citation is backed by a block in the prompt actually sent.
	require.Equal(t, 1, f.llm.calls())
	assert.Equal(t, ans.Prompt, f.llm.prompts[0])
	for i, c := range ans.Citations {
		assert.Contains(t, ans.Prompt, c.DocID+" | "+c.Span.String())
		assert.Contains(t, ans.Prompt, ans.Contexts[i])
	}
	assert.Contains(t, ans.Prompt, "[1] acme | page 2\nNet income was flat.")
	assert.Contains(t, ans.Prompt, "Question: How did net income change?")
}

func TestAnswer_FilterByDocType(t *testing.T) {
	f := newAnswerFixture(t)

	ans, err := f.service(AnswerConfig{}).Answer(context.Background(), "net income", domain.AskOptions{
		Filter: domain.SearchFilter{DocType: domain.DocTypeTranscript},
	})
	require.NoError(t, err)
	require.Len(t, ans.Citations, 1)
	assert.Equal(t, "beta", ans.Citations[0].DocID)
}

func TestAnswer_ZeroHitsAbstains(t *testing.T) {
	f := newAnswerFixture(t)

	ans, err := f.service(AnswerConfig{}).Answer(context.Background(), "net income", domain.AskOptions{
		Filter: domain.SearchFilter{Company: "Nobody"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoGroundedContext)
	assert.ErrorIs(t, err, domain.ErrRetrieval)
	assert.True(t, IsInsufficientContext(err))

	require.NotNil(t, ans)
	assert.Equal(t, domain.QAFailed, ans.State)
	assert.False(t, ans.Grounded)
	assert.Empty(t, ans.Text)
	assert.Zero(t, f.llm.calls())
}

func TestAnswer_MinScoreDiscardsWeakHits(t *testing.T) {
	f := newAnswerFixture(t)

	_, err := f.service(AnswerConfig{MinScore: 0.99}).Answer(context.Background(), "completely unrelated words", domain.AskOptions{})
	assert.ErrorIs(t, err, domain.ErrNoGroundedContext)
	assert.Zero(t, f.llm.calls())
}

func TestAnswer_RetrievalFailure(t *testing.T) {
	f := newAnswerFixture(t)
	svc := NewAnswerService(f.embedding, &brokenStore{VectorStore: f.vectors, searchErr: errors.New("connection refused")}, f.llm, nil, AnswerConfig{})

	ans, err := svc.Answer(context.Background(), "net income", domain.AskOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRetrieval)
	assert.NotErrorIs(t, err, domain.ErrNoGroundedContext)
	assert.Equal(t, domain.QAFailed, ans.State)
}

func TestAnswer_GenerationRetries(t *testing.T) {
	f := newAnswerFixture(t)
	f.llm.failures = 1

	ans, err := f.service(AnswerConfig{MaxAttempts: 2}).Answer(context.Background(), "net income", domain.AskOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.QAAnswered, ans.State)
	assert.Equal(t, 2, f.llm.calls())
}

func TestAnswer_GenerationExhausted(t *testing.T) {
	f := newAnswerFixture(t)
	f.llm.failures = -1

	ans, err := f.service(AnswerConfig{MaxAttempts: 3}).Answer(context.Background(), "net income", domain.AskOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGeneration)
	assert.Equal(t, 3, f.llm.calls())
	assert.Equal(t, domain.QAFailed, ans.State)
	assert.Empty(t, ans.Text)
	assert.False(t, ans.Grounded)
}

func TestAnswer_GenerationRejectedIsNotRetried(t *testing.T) {
	f := newAnswerFixture(t)
	f.llm.failures = -1
	f.llm.failErr = &domain.ProviderError{Provider: "anthropic", Status: 400, Message: "prompt is too long"}

	ans, err := f.service(AnswerConfig{MaxAttempts: 4}).Answer(context.Background(), "net income", domain.AskOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGeneration)
	assert.ErrorContains(t, err, "prompt is too long")
	assert.Equal(t, 1, f.llm.calls())
	assert.Equal(t, domain.QAFailed, ans.State)
}

func TestAnswer_EmbeddingModelMismatch(t *testing.T) {
	f := newAnswerFixture(t)
	f.embedding.model = "other-model"

	ans, err := f.service(AnswerConfig{}).Answer(context.Background(), "net income", domain.AskOptions{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Equal(t, domain.QAFailed, ans.State)
	assert.Zero(t, f.llm.calls())
}

func TestAnswer_ModelCheckScopedToFilter(t *testing.T) {
	f := newAnswerFixture(t)
	ctx := context.Background()

	stale, err := f.chunks.GetIndexState(ctx, "beta")
	require.NoError(t, err)
	stale.EmbedModel = "retired-model"
	require.NoError(t, f.chunks.SaveIndexState(ctx, *stale))

	ans, err := f.service(AnswerConfig{TopK: 2}).Answer(ctx, "net income", domain.AskOptions{
		Filter: domain.SearchFilter{Company: "Acme"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.QAAnswered, ans.State)

	_, err = f.service(AnswerConfig{}).Answer(ctx, "net income", domain.AskOptions{
		Filter: domain.SearchFilter{DocType: domain.DocTypeTranscript},
	})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "beta")

	_, err = f.service(AnswerConfig{}).Answer(ctx, "net income", domain.AskOptions{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestAnswer_ModelCheckSurvivesStoreErrors(t *testing.T) {
	f := newAnswerFixture(t)
	svc := NewAnswerService(f.embedding, f.vectors, f.llm, failingStates{f.chunks}, AnswerConfig{TopK: 1})

	ans, err := svc.Answer(context.Background(), "net income", domain.AskOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.QAAnswered, ans.State)

	ans, err = svc.Answer(context.Background(), "net income", domain.AskOptions{Filter: domain.SearchFilter{DocID: "acme"}})
	require.NoError(t, err)
	assert.Equal(t, domain.QAAnswered, ans.State)
}

// failingStates is a chunk store whose index state reads always fail.
type failingStates struct {
	*memory.ChunkFileStore
}

func (failingStates) GetIndexState(context.Context, string) (*domain.IndexState, error) {
	return nil, errors.New("disk I/O error")
}

func (failingStates) ListIndexStates(context.Context) ([]domain.IndexState, error) {
	return nil, errors.New("disk I/O error")
}

func TestAnswer_InputAndWiringErrors(t *testing.T) {
	f := newAnswerFixture(t)

	_, err := f.service(AnswerConfig{}).Answer(context.Background(), "   ", domain.AskOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewAnswerService(f.embedding, f.vectors, nil, nil, AnswerConfig{}).Answer(context.Background(), "q", domain.AskOptions{})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)

	_, err = NewAnswerService(nil, f.vectors, f.llm, nil, AnswerConfig{}).Answer(context.Background(), "q", domain.AskOptions{})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	_, err = NewAnswerService(f.embedding, nil, f.llm, nil, AnswerConfig{}).Answer(context.Background(), "q", domain.AskOptions{})
	assert.ErrorIs(t, err, domain.ErrVectorStoreUnavailable)
}

func TestAnswer_CustomPromptTemplate(t *testing.T) {
	f := newAnswerFixture(t)
	svc := f.service(AnswerConfig{TopK: 1})
	svc.SetPromptStore(&stubPromptStore{template: "CTX:\n%sQ: %s"})

	ans, err := svc.Answer(context.Background(), "net income flat", domain.AskOptions{Filter: domain.SearchFilter{DocID: "acme"}})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ans.Prompt, "CTX:\n[1] acme | page 2\n"))
	assert.True(t, strings.HasSuffix(ans.Prompt, "Q: net income flat"))
}

func TestSearch_RetrievalOnly(t *testing.T) {
	f := newAnswerFixture(t)

	hits, err := f.service(AnswerConfig{}).Search(context.Background(), "net income", domain.AskOptions{TopK: 1})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Zero(t, f.llm.calls())
}

func TestAnswerConfigFrom(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.Retrieval.MinScore = 0.3

	got := AnswerConfigFrom(cfg)
	assert.Equal(t, domain.DefaultTopK, got.TopK)
	assert.InDelta(t, 0.3, got.MinScore, 1e-9)
	assert.Equal(t, domain.DefaultLLMMaxAttempts, got.MaxAttempts)
	assert.Equal(t, domain.DefaultLLMMaxTokens, got.MaxTokens)
}

var _ driven.PromptStore = (*stubPromptStore)(nil)
