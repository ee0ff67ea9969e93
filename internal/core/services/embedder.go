package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driven"
	"github.com/custodia-labs/filings-qa/internal/logger"
	"github.com/custodia-labs/filings-qa/internal/versioning"
)

// upsertBatchSize bounds records per vector store write.
const upsertBatchSize = 64

// EmbedderConfig holds the embedder's limits.
type EmbedderConfig struct {
	// MaxAttempts bounds calls per chunk, including the first.
	MaxAttempts int

	// Concurrency bounds embedding calls in flight.
	Concurrency int

	// RequestsPerSecond paces calls. Zero disables pacing.
	RequestsPerSecond float64

	// Backoff is the base retry delay; attempt n waits n times this.
	Backoff time.Duration

	// Dimensions is the expected vector size. Zero takes the service's.
	Dimensions int
}

// EmbedderConfigFrom derives embedder limits from the run configuration.
func EmbedderConfigFrom(cfg domain.Config) EmbedderConfig {
	return EmbedderConfig{
		MaxAttempts:       cfg.Embedding.MaxAttempts,
		Concurrency:       cfg.Pipeline.ChunkConcurrency,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
		Backoff:           domain.DefaultRetryBackoff,
		Dimensions:        cfg.Embedding.Dimensions,
	}
}

// Embedder turns a ChunkFile into vector store records.
type Embedder struct {
	embedding driven.EmbeddingService
	store     driven.VectorStore
	chunks    driven.ChunkFileStore
	cfg       EmbedderConfig
	limiter   *rate.Limiter
}

// NewEmbedder creates an embedder.
func NewEmbedder(
	embedding driven.EmbeddingService,
	store driven.VectorStore,
	chunks driven.ChunkFileStore,
	cfg EmbedderConfig,
) *Embedder {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(1, int(cfg.RequestsPerSecond)))
	}

	return &Embedder{
		embedding: embedding,
		store:     store,
		chunks:    chunks,
		cfg:       cfg,
		limiter:   limiter,
	}
}

// chunkResult is one embedding job's outcome, kept at its chunk index.
type chunkResult struct {
	vector   []float32
	attempts int
	err      error
}

// Embed embeds every chunk of cf and replaces the document's records.
//
// When the index already holds this content hash from the same model the
// call is skipped. Chunks that fail after all attempts become gaps and are
// left out of the upsert. Stale records are evicted before the upsert.
func (e *Embedder) Embed(ctx context.Context, entry domain.DocumentEntry, cf *domain.ChunkFile) (*domain.EmbedReport, error) {
	if cf == nil || len(cf.Chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks to embed", domain.ErrInvalidInput)
	}
	log := logger.With("doc", cf.DocID)

	report := &domain.EmbedReport{DocID: cf.DocID, ContentHash: cf.ContentHash}

	if current, err := e.isCurrent(ctx, cf); err != nil {
		return nil, err
	} else if current {
		log.Debug("index current at %s, skipping", versioning.Short(cf.ContentHash))
		report.Skipped = true
		return report, nil
	}

	dims := e.cfg.Dimensions
	if dims == 0 {
		dims = e.embedding.Dimensions()
	}
	if err := e.store.EnsureCollection(ctx, dims); err != nil {
		return nil, fmt.Errorf("prepare vector store: %w", err)
	}

	results := make([]chunkResult, len(cf.Chunks))
	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)
	for i := range cf.Chunks {
		g.Go(func() error {
			results[i] = e.embedChunk(ctx, cf.Chunks[i].Text)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i := range cf.Chunks {
		chunk := &cf.Chunks[i]
		res := results[i]
		if res.err == nil && dims > 0 && len(res.vector) != dims {
			return nil, fmt.Errorf("%w: chunk %s: got %d dimensions, want %d",
				domain.ErrEmbedding, chunk.ID, len(res.vector), dims)
		}
		if res.err != nil {
			log.Warn("chunk %s failed after %d attempts: %v", chunk.ID, res.attempts, res.err)
			report.Gaps = append(report.Gaps, domain.EmbeddingGap{
				ChunkID:       chunk.ID,
				SequenceIndex: chunk.SequenceIndex,
				Attempts:      res.attempts,
				Err:           res.err,
			})
			continue
		}
		report.Records = append(report.Records, newRecord(entry, cf, chunk, res.vector))
	}

	if len(report.Records) == 0 {
		return report, fmt.Errorf("%w: all %d chunks failed", domain.ErrEmbedding, len(cf.Chunks))
	}

	evicted, err := e.store.DeleteStale(ctx, cf.DocID, cf.ContentHash)
	if err != nil {
		return report, fmt.Errorf("evict stale records: %w", err)
	}
	report.Evicted = evicted

	for start := 0; start < len(report.Records); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(report.Records))
		if err := e.store.Upsert(ctx, report.Records[start:end]); err != nil {
			return report, fmt.Errorf("upsert records: %w", err)
		}
	}

	if e.chunks != nil {
		state := domain.IndexState{
			DocID:       cf.DocID,
			Company:     entry.Company,
			DocType:     entry.DocType,
			ContentHash: cf.ContentHash,
			EmbedModel:  e.embedding.ModelName(),
			Dimensions:  dims,
			Records:     len(report.Records),
			Gaps:        len(report.Gaps),
			LayoutHash:  versioning.ComputeLayout(cf),
		}
		if err := e.chunks.SaveIndexState(ctx, state); err != nil {
			return report, fmt.Errorf("save index state: %w", err)
		}
	}

	log.Info("embedded %d chunks (%d gaps, %d evicted)", len(report.Records), len(report.Gaps), report.Evicted)
	return report, nil
}

// isCurrent reports whether the vector store already serves cf from the
// current model with no gaps. Records whose spans predate a re-layout of
// the same content are not current.
func (e *Embedder) isCurrent(ctx context.Context, cf *domain.ChunkFile) (bool, error) {
	if e.chunks == nil {
		return false, nil
	}
	state, err := e.chunks.GetIndexState(ctx, cf.DocID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get index state: %w", err)
	}
	if versioning.NeedsReprocessing(&domain.ChunkFile{ContentHash: state.ContentHash}, cf.ContentHash) ||
		state.EmbedModel != e.embedding.ModelName() || state.Gaps > 0 {
		return false, nil
	}
	if state.LayoutHash != "" && state.LayoutHash != versioning.ComputeLayout(cf) {
		return false, nil
	}

	count, err := e.store.Count(ctx, cf.DocID)
	if err != nil {
		return false, nil
	}
	return count == state.Records, nil
}

// embedChunk calls the embedding service with pacing and bounded retries.
func (e *Embedder) embedChunk(ctx context.Context, text string) chunkResult {
	var res chunkResult
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		res.attempts = attempt
		if err := e.limiter.Wait(ctx); err != nil {
			res.err = err
			return res
		}

		vec, err := e.embedding.Embed(ctx, text)
		if err == nil {
			res.vector, res.err = vec, nil
			return res
		}
		res.err = fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
		if !domain.IsRetryable(err) {
			return res
		}

		if attempt < e.cfg.MaxAttempts {
			if err := sleepContext(ctx, domain.RetryDelay(err, time.Duration(attempt)*e.cfg.Backoff)); err != nil {
				res.err = err
				return res
			}
		}
	}
	return res
}

func newRecord(entry domain.DocumentEntry, cf *domain.ChunkFile, chunk *domain.Chunk, vector []float32) domain.EmbeddingRecord {
	return domain.EmbeddingRecord{
		ChunkID: chunk.ID,
		Text:    chunk.Text,
		Vector:  vector,
		Metadata: domain.RecordMetadata{
			DocID:         cf.DocID,
			Company:       entry.Company,
			FiscalPeriod:  entry.FiscalPeriod,
			DocType:       entry.DocType,
			Span:          chunk.Span,
			SequenceIndex: chunk.SequenceIndex,
			TokenCount:    chunk.TokenCount,
			ContentHash:   cf.ContentHash,
		},
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
