package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StrategyKind names a chunking algorithm.
type StrategyKind string

// Available chunking strategies.
const (
	// StrategySequential slides a fixed window across the text.
	StrategySequential StrategyKind = "sequential"

	// StrategySentence packs whole sentences up to the chunk size.
	StrategySentence StrategyKind = "sentence"

	// StrategySection packs whole sentences within one section and prefixes
	// each chunk with its section heading trail.
	StrategySection StrategyKind = "section"
)

// String returns the string representation.
func (k StrategyKind) String() string {
	return string(k)
}

// Unit is the measure chunk sizes are expressed in.
type Unit string

// Available size units.
const (
	// UnitCharacters measures size in runes.
	UnitCharacters Unit = "characters"

	// UnitTokens measures size in whitespace-separated words.
	UnitTokens Unit = "tokens"
)

// IsValid returns true if the unit is recognised.
func (u Unit) IsValid() bool {
	return u == UnitCharacters || u == UnitTokens
}

// StrategyParams holds the numeric parameters of a strategy.
type StrategyParams struct {
	ChunkSize int  `json:"chunk_size" toml:"chunk_size"`
	Overlap   int  `json:"overlap" toml:"overlap"`
	Unit      Unit `json:"unit" toml:"unit"`
}

// ChunkStrategy is a named, parameterised chunking configuration.
// Identical strategies produce identical chunk boundaries for identical text.
type ChunkStrategy struct {
	Name   StrategyKind   `json:"name" toml:"name"`
	Params StrategyParams `json:"params" toml:"params"`
}

// Validate checks the strategy parameters. The name is checked against the
// registered algorithms by the chunker itself.
func (s ChunkStrategy) Validate() error {
	var errs []error
	if s.Name == "" {
		errs = append(errs, errors.New("strategy name is required"))
	}
	if s.Params.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk_size must be positive, got %d", s.Params.ChunkSize))
	}
	if s.Params.Overlap < 0 {
		errs = append(errs, fmt.Errorf("overlap cannot be negative, got %d", s.Params.Overlap))
	}
	if s.Params.ChunkSize > 0 && s.Params.Overlap >= s.Params.ChunkSize {
		errs = append(errs, fmt.Errorf("overlap (%d) must be less than chunk_size (%d)",
			s.Params.Overlap, s.Params.ChunkSize))
	}
	if !s.Params.Unit.IsValid() {
		errs = append(errs, fmt.Errorf("unit must be characters or tokens, got %q", s.Params.Unit))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

// Canonical returns the stable serialisation used for fingerprinting.
// Field order is fixed; adding a parameter must append to this form.
func (s ChunkStrategy) Canonical() string {
	return "name=" + string(s.Name) +
		";chunk_size=" + strconv.Itoa(s.Params.ChunkSize) +
		";overlap=" + strconv.Itoa(s.Params.Overlap) +
		";unit=" + string(s.Params.Unit)
}

// String renders the strategy for logs.
func (s ChunkStrategy) String() string {
	return fmt.Sprintf("%s(size=%d %s, overlap=%d)",
		s.Name, s.Params.ChunkSize, s.Params.Unit, s.Params.Overlap)
}

// Span is the page or section range a chunk covers.
type Span struct {
	Start Marker `json:"start"`
	End   Marker `json:"end"`
}

// SingleSpan returns a span covering one marker.
func SingleSpan(m Marker) Span {
	return Span{Start: m, End: m}
}

// IsRange reports whether the span covers more than one marker.
func (s Span) IsRange() bool {
	return s.Start != s.End
}

// String renders the span for citations (e.g. "page 2", "pages 1-2").
func (s Span) String() string {
	if !s.IsRange() {
		return s.Start.String()
	}
	if s.Start.Kind == MarkerPage && s.End.Kind == MarkerPage {
		return "pages " + s.Start.Label + "-" + s.End.Label
	}
	return s.Start.String() + " to " + s.End.String()
}

// Chunk is a contiguous, citation-traceable unit of document text.
type Chunk struct {
	// ID is derived from DocID and SequenceIndex.
	ID string `json:"chunk_id"`

	// DocID references the owning document.
	DocID string `json:"doc_id"`

	// SequenceIndex is the position within the document.
	SequenceIndex int `json:"sequence_index"`

	// Span is the page/section range covered.
	Span Span `json:"span"`

	// Offset is the rune range within the flattened extracted text.
	Offset Range `json:"offset"`

	// Text is the chunk content.
	Text string `json:"text"`

	// TokenCount is the number of whitespace-separated words in Text.
	TokenCount int `json:"token_count"`
}

// ChunkID derives the stable chunk identifier for a document position.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s:%05d", docID, index)
}

// CountTokens counts whitespace-separated words.
func CountTokens(text string) int {
	return len(strings.Fields(text))
}

// ChunkFileVersion is the current persisted chunk file layout version.
const ChunkFileVersion = "1"

// ChunkFile is the persisted output of the chunker for one document.
// A ChunkFile is superseded, never mutated, when a document is reprocessed.
type ChunkFile struct {
	Version     string        `json:"version"`
	DocID       string        `json:"doc_id"`
	Strategy    ChunkStrategy `json:"strategy"`
	ContentHash string        `json:"content_hash"`
	Chunks      []Chunk       `json:"chunks"`
	CreatedAt   time.Time     `json:"created_at"`

	// Dropped lists non-blank ranges of the flattened text that no chunk
	// covers, such as over-long sentences skipped by the section strategy.
	Dropped []Range `json:"dropped,omitempty"`
}

// DroppedRunes returns the number of runes left out of every chunk.
func (f *ChunkFile) DroppedRunes() int {
	n := 0
	for _, r := range f.Dropped {
		n += r.Len()
	}
	return n
}

// Texts returns chunk texts in sequence order.
func (f *ChunkFile) Texts() []string {
	texts := make([]string, len(f.Chunks))
	for i := range f.Chunks {
		texts[i] = f.Chunks[i].Text
	}
	return texts
}
