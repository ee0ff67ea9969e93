package chunking

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
)

// Input is the flattened text handed to a SplitFunc.
type Input struct {
	// Stream is the flattened extracted text.
	Stream []rune

	// Segments are the extracted segments, aligned with Ranges.
	Segments []domain.Segment

	// Ranges holds the rune range of each segment within Stream.
	Ranges []domain.Range
}

// Piece is one chunk boundary produced by a SplitFunc.
type Piece struct {
	// Range is the body of the chunk within Input.Stream.
	Range domain.Range

	// Prefix is prepended to the body text. Empty for most strategies.
	Prefix string
}

// SplitFunc decides chunk boundaries. It must be pure and deterministic.
type SplitFunc func(in Input, params domain.StrategyParams) ([]Piece, error)

// Registry maps strategy kinds to their split functions.
type Registry struct {
	splitters map[domain.StrategyKind]SplitFunc
}

// NewRegistry creates an empty strategy registry.
func NewRegistry() *Registry {
	return &Registry{
		splitters: make(map[domain.StrategyKind]SplitFunc),
	}
}

// DefaultRegistry returns a registry with the built-in strategies.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(domain.StrategySequential, SplitSequential)
	r.Register(domain.StrategySentence, SplitSentences)
	r.Register(domain.StrategySection, SplitSections)
	return r
}

// Register adds a strategy. Registering an existing kind replaces it.
func (r *Registry) Register(kind domain.StrategyKind, fn SplitFunc) {
	r.splitters[kind] = fn
}

// Lookup returns the split function for kind.
// Unknown kinds are a configuration error.
func (r *Registry) Lookup(kind domain.StrategyKind) (SplitFunc, error) {
	fn, ok := r.splitters[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown chunking strategy %q (available: %v)",
			domain.ErrConfiguration, kind, r.Names())
	}
	return fn, nil
}

// Has returns true if a strategy with the given kind is registered.
func (r *Registry) Has(kind domain.StrategyKind) bool {
	_, ok := r.splitters[kind]
	return ok
}

// Names returns all registered strategy names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.splitters))
	for kind := range r.splitters {
		names = append(names, string(kind))
	}
	sort.Strings(names)
	return names
}
