// Package memory provides an in-process driven.VectorStore for tests and
// dry runs. Search is an exact cosine scan.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/filings-qa/internal/adapters/driven/vectorstore"
	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store keeps records in a map keyed by chunk id.
type Store struct {
	mu         sync.RWMutex
	dimensions int
	records    map[string]domain.EmbeddingRecord

	// live is the content hash each document is being served at. Records
	// tagged with another hash are stale and never returned.
	live map[string]string
}

// New creates an empty store.
func New() *Store {
	return &Store{
		records: make(map[string]domain.EmbeddingRecord),
		live:    make(map[string]string),
	}
}

// EnsureCollection fixes the vector size on first use.
func (s *Store) EnsureCollection(_ context.Context, dimensions int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimensions != 0 && dimensions != 0 && s.dimensions != dimensions {
		return fmt.Errorf("%w: collection has %d dimensions, got %d", domain.ErrConfiguration, s.dimensions, dimensions)
	}
	if s.dimensions == 0 {
		s.dimensions = dimensions
	}
	return nil
}

// Upsert inserts or replaces records by chunk id.
func (s *Store) Upsert(_ context.Context, records []domain.EmbeddingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range records {
		r := records[i]
		if r.ChunkID == "" {
			return fmt.Errorf("%w: record without chunk id", domain.ErrInvalidInput)
		}
		if s.dimensions != 0 && len(r.Vector) != s.dimensions {
			return fmt.Errorf("%w: %s has %d dimensions, want %d", domain.ErrInvalidInput, r.ChunkID, len(r.Vector), s.dimensions)
		}
		r.Vector = append([]float32(nil), r.Vector...)
		s.records[r.ChunkID] = r
		s.live[r.Metadata.DocID] = r.Metadata.ContentHash
	}
	return nil
}

// Search scans every live record matching filter.
func (s *Store) Search(_ context.Context, vector []float32, k int, filter domain.SearchFilter) ([]domain.SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []domain.SearchHit
	for id, r := range s.records {
		if !filter.Matches(r.Metadata) || s.isStale(r) {
			continue
		}
		hits = append(hits, domain.SearchHit{ID: id, Score: vectorstore.Cosine(vector, r.Vector), Record: r})
	}
	return vectorstore.Rank(hits, k), nil
}

// DeleteStale removes records of docID not tagged with keepHash.
func (s *Store) DeleteStale(_ context.Context, docID, keepHash string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, r := range s.records {
		if r.Metadata.DocID == docID && (keepHash == "" || r.Metadata.ContentHash != keepHash) {
			delete(s.records, id)
			removed++
		}
	}
	if keepHash == "" {
		delete(s.live, docID)
	} else {
		s.live[docID] = keepHash
	}
	return removed, nil
}

// Count returns the number of live records for docID.
func (s *Store) Count(_ context.Context, docID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.records {
		if r.Metadata.DocID == docID && !s.isStale(r) {
			n++
		}
	}
	return n, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func (s *Store) isStale(r domain.EmbeddingRecord) bool {
	live, ok := s.live[r.Metadata.DocID]
	return ok && live != r.Metadata.ContentHash
}
