package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driven"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driving"
	"github.com/custodia-labs/filings-qa/internal/logger"
	"github.com/custodia-labs/filings-qa/internal/versioning"
)

// Ensure Pipeline implements the interface.
var _ driving.PipelineService = (*Pipeline)(nil)

// PipelineConfig holds the settings a run needs.
type PipelineConfig struct {
	Strategy            domain.ChunkStrategy
	DocumentConcurrency int
}

// PipelineConfigFrom derives pipeline settings from the run configuration.
func PipelineConfigFrom(cfg domain.Config) PipelineConfig {
	return PipelineConfig{
		Strategy:            cfg.Chunking,
		DocumentConcurrency: cfg.Pipeline.DocumentConcurrency,
	}
}

// Pipeline runs extract, chunk and embed over registered documents.
type Pipeline struct {
	registry  driving.DocumentRegistry
	extractor *Extractor
	chunker   driven.Chunker
	chunks    driven.ChunkFileStore
	embedder  *Embedder
	cfg       PipelineConfig
}

// NewPipeline creates a pipeline. embedder may be nil when only the chunk
// stage is used.
func NewPipeline(
	registry driving.DocumentRegistry,
	extractor *Extractor,
	chunker driven.Chunker,
	chunks driven.ChunkFileStore,
	embedder *Embedder,
	cfg PipelineConfig,
) *Pipeline {
	if cfg.DocumentConcurrency < 1 {
		cfg.DocumentConcurrency = 1
	}
	return &Pipeline{
		registry:  registry,
		extractor: extractor,
		chunker:   chunker,
		chunks:    chunks,
		embedder:  embedder,
		cfg:       cfg,
	}
}

// Run executes stage for docIDs (all documents when empty).
//
// Configuration problems abort before any document starts. A failure in one
// document is recorded in its result and does not stop the others.
func (p *Pipeline) Run(ctx context.Context, stage domain.Stage, docIDs []string) (*driving.RunReport, error) {
	if err := p.preflight(stage); err != nil {
		return nil, err
	}
	entries, err := p.registry.Select(docIDs, "")
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	logger.Section(fmt.Sprintf("%s %s", stage, runID[:8]))
	log := logger.With("run", runID[:8])
	log.Info("%s stage over %d documents", stage, len(entries))

	start := time.Now()
	report := &driving.RunReport{
		RunID:     runID,
		Stage:     stage,
		Documents: make([]driving.DocumentResult, len(entries)),
	}

	var g errgroup.Group
	g.SetLimit(p.cfg.DocumentConcurrency)
	for i := range entries {
		g.Go(func() error {
			report.Documents[i] = p.process(ctx, stage, entries[i], log.With("doc", entries[i].ID))
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(start)
	if err := ctx.Err(); err != nil {
		return report, err
	}

	log.Info("finished in %s (%d failed)", report.Duration.Round(time.Millisecond), len(report.Failed()))
	return report, nil
}

// preflight validates everything the stage needs before any worker starts.
func (p *Pipeline) preflight(stage domain.Stage) error {
	if !stage.IsValid() {
		return fmt.Errorf("%w: unknown stage %q", domain.ErrConfiguration, stage)
	}
	if stage.Includes(domain.StageChunk) {
		if err := p.chunker.ValidateStrategy(p.cfg.Strategy); err != nil {
			return err
		}
	}
	if stage.Includes(domain.StageEmbed) && p.embedder == nil {
		return fmt.Errorf("%w: %w", domain.ErrConfiguration, domain.ErrEmbeddingUnavailable)
	}
	return nil
}

// process runs the stage's steps for one document sequentially.
func (p *Pipeline) process(ctx context.Context, stage domain.Stage, entry domain.DocumentEntry, log logger.Scoped) driving.DocumentResult {
	start := time.Now()
	res := driving.DocumentResult{DocID: entry.ID}

	fail := func(s domain.Stage, err error) driving.DocumentResult {
		res.Err = &domain.StageError{Stage: s, DocID: entry.ID, Err: err}
		res.Duration = time.Since(start)
		log.Error("%s failed: %v", s, err)
		return res
	}

	var cf *domain.ChunkFile
	if stage.Includes(domain.StageChunk) {
		var rechunked bool
		var err error
		cf, rechunked, err = p.chunk(ctx, entry)
		if err != nil {
			return fail(domain.StageChunk, err)
		}
		res.Rechunked = rechunked
		log.Info("%d chunks at %s (rechunked=%t)", len(cf.Chunks), versioning.Short(cf.ContentHash), rechunked)
		if len(cf.Dropped) > 0 {
			log.Warn("%d ranges (%d runes) left out of every chunk", len(cf.Dropped), cf.DroppedRunes())
		}
	} else {
		var err error
		cf, err = p.chunks.GetChunkFile(ctx, entry.ID)
		if errors.Is(err, domain.ErrNotFound) {
			return fail(stage, fmt.Errorf("%w: no chunk file, run the chunk stage first", domain.ErrNotFound))
		}
		if err != nil {
			return fail(stage, err)
		}
	}
	res.ContentHash = cf.ContentHash
	res.Chunks = len(cf.Chunks)
	res.Dropped = len(cf.Dropped)

	switch {
	case stage.Includes(domain.StageEmbed):
		report, err := p.embedder.Embed(ctx, entry, cf)
		res.Embed = report
		if err != nil {
			return fail(domain.StageEmbed, err)
		}
	case stage == domain.StageRetrieve:
		if err := p.checkIndexed(ctx, cf); err != nil {
			return fail(domain.StageRetrieve, err)
		}
	}

	res.Duration = time.Since(start)
	return res
}

// chunk extracts and chunks entry, persisting the result only when its
// fingerprint differs from the stored file. A file whose content is
// unchanged but whose spans moved replaces the stored one in place; its
// hash stays the same.
func (p *Pipeline) chunk(ctx context.Context, entry domain.DocumentEntry) (*domain.ChunkFile, bool, error) {
	text, err := p.extractor.Extract(ctx, entry)
	if err != nil {
		return nil, false, err
	}
	cf, err := p.chunker.Chunk(text, entry.ID, p.cfg.Strategy)
	if err != nil {
		return nil, false, err
	}

	existing, err := p.chunks.GetChunkFile(ctx, entry.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, false, fmt.Errorf("load chunk file: %w", err)
	}
	if !versioning.NeedsReprocessing(existing, cf.ContentHash) {
		if !versioning.LayoutChanged(existing, cf) {
			return existing, false, nil
		}
		if err := p.chunks.SaveChunkFile(ctx, cf); err != nil {
			return nil, false, fmt.Errorf("save chunk file: %w", err)
		}
		logger.Debug("%s: refreshed spans at %s", entry.ID, versioning.Short(cf.ContentHash))
		return cf, false, nil
	}
	if err := p.chunks.SaveChunkFile(ctx, cf); err != nil {
		return nil, false, fmt.Errorf("save chunk file: %w", err)
	}
	return cf, true, nil
}

// checkIndexed reports whether the vector store serves the current file.
func (p *Pipeline) checkIndexed(ctx context.Context, cf *domain.ChunkFile) error {
	state, err := p.chunks.GetIndexState(ctx, cf.DocID)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: not embedded yet", domain.ErrRetrieval)
	}
	if err != nil {
		return err
	}
	if state.ContentHash != cf.ContentHash {
		return fmt.Errorf("%w: index holds %s but chunk file is %s, re-run embed",
			domain.ErrRetrieval, versioning.Short(state.ContentHash), versioning.Short(cf.ContentHash))
	}
	return nil
}

// Status reports stored chunk and index state per document.
func (p *Pipeline) Status(ctx context.Context, docIDs []string, verify bool) ([]driving.DocumentStatus, error) {
	entries, err := p.registry.Select(docIDs, "")
	if err != nil {
		return nil, err
	}

	out := make([]driving.DocumentStatus, 0, len(entries))
	for _, entry := range entries {
		st := driving.DocumentStatus{Entry: entry}

		cf, err := p.chunks.GetChunkFile(ctx, entry.ID)
		switch {
		case err == nil:
			st.ChunkFile = cf
		case !errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("load chunk file %s: %w", entry.ID, err)
		}

		idx, err := p.chunks.GetIndexState(ctx, entry.ID)
		switch {
		case err == nil:
			st.Index = idx
		case !errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("load index state %s: %w", entry.ID, err)
		}

		if st.ChunkFile != nil {
			st.NeedsEmbed = st.Index == nil || st.Index.ContentHash != st.ChunkFile.ContentHash || st.Index.Gaps > 0
			if verify {
				st.VerifyError = versioning.Verify(st.ChunkFile)
			}
		}
		out = append(out, st)
	}
	return out, nil
}
