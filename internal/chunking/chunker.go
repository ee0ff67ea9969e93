package chunking

import (
	"fmt"
	"slices"
	"time"
	"unicode"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driven"
	"github.com/custodia-labs/filings-qa/internal/versioning"
)

// Ensure Chunker implements the interface.
var _ driven.Chunker = (*Chunker)(nil)

// Chunker turns extracted text into a fingerprinted ChunkFile.
type Chunker struct {
	registry *Registry
	now      func() time.Time
}

// Option configures the Chunker.
type Option func(*Chunker)

// WithRegistry replaces the default strategy registry.
func WithRegistry(r *Registry) Option {
	return func(c *Chunker) {
		if r != nil {
			c.registry = r
		}
	}
}

// WithClock sets the clock used to stamp ChunkFile.CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Chunker) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Chunker with the built-in strategies.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		registry: DefaultRegistry(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the strategy registry in use.
func (c *Chunker) Registry() *Registry {
	return c.registry
}

// ValidateStrategy checks the strategy parameters and that its name is registered.
func (c *Chunker) ValidateStrategy(strategy domain.ChunkStrategy) error {
	if err := strategy.Validate(); err != nil {
		return err
	}
	_, err := c.registry.Lookup(strategy.Name)
	return err
}

// Chunk splits text according to strategy. The result has no side effects;
// persisting it is up to the caller.
func (c *Chunker) Chunk(text domain.ExtractedText, docID string, strategy domain.ChunkStrategy) (*domain.ChunkFile, error) {
	if err := c.ValidateStrategy(strategy); err != nil {
		return nil, err
	}
	if docID == "" {
		return nil, fmt.Errorf("%w: doc_id is required", domain.ErrInvalidInput)
	}
	if text.IsEmpty() {
		return nil, fmt.Errorf("%w: extracted text for %s is empty", domain.ErrInvalidInput, docID)
	}

	split, err := c.registry.Lookup(strategy.Name)
	if err != nil {
		return nil, err
	}

	flat, ranges := text.Flatten()
	in := Input{
		Stream:   []rune(flat),
		Segments: text.Segments,
		Ranges:   ranges,
	}

	pieces, err := split(in, strategy.Params)
	if err != nil {
		return nil, fmt.Errorf("%s strategy: %w", strategy.Name, err)
	}
	dropped := uncovered(in.Stream, pieces)
	if len(pieces) == 0 {
		return nil, fmt.Errorf("%w: %s strategy left no chunks for %s (%d ranges dropped)",
			domain.ErrInvalidInput, strategy.Name, docID, len(dropped))
	}

	chunks := make([]domain.Chunk, 0, len(pieces))
	for _, p := range pieces {
		idx := len(chunks)
		body := string(in.Stream[p.Range.Start:p.Range.End])
		chunks = append(chunks, domain.Chunk{
			ID:            domain.ChunkID(docID, idx),
			DocID:         docID,
			SequenceIndex: idx,
			Span:          spanFor(in.Segments, in.Ranges, p.Range),
			Offset:        p.Range,
			Text:          p.Prefix + body,
			TokenCount:    domain.CountTokens(body),
		})
	}

	return &domain.ChunkFile{
		Version:     domain.ChunkFileVersion,
		DocID:       docID,
		Strategy:    strategy,
		ContentHash: versioning.ComputeFingerprint(strategy, chunks),
		Chunks:      chunks,
		CreatedAt:   c.now(),
		Dropped:     dropped,
	}, nil
}

// uncovered returns the non-blank stretches of stream outside every piece.
func uncovered(stream []rune, pieces []Piece) []domain.Range {
	ranges := make([]domain.Range, len(pieces))
	for i, p := range pieces {
		ranges[i] = p.Range
	}
	slices.SortFunc(ranges, func(a, b domain.Range) int { return a.Start - b.Start })

	var out []domain.Range
	gap := func(start, end int) {
		for start < end && unicode.IsSpace(stream[start]) {
			start++
		}
		for end > start && unicode.IsSpace(stream[end-1]) {
			end--
		}
		if start < end {
			out = append(out, domain.Range{Start: start, End: end})
		}
	}

	pos := 0
	for _, r := range ranges {
		if r.Start > pos {
			gap(pos, r.Start)
		}
		pos = max(pos, r.End)
	}
	gap(pos, len(stream))
	return out
}
