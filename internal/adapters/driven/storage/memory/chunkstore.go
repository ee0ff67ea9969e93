package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driven"
)

// Ensure ChunkFileStore implements the interface.
var _ driven.ChunkFileStore = (*ChunkFileStore)(nil)

// ChunkFileStore is an in-memory implementation of driven.ChunkFileStore.
type ChunkFileStore struct {
	mu     sync.RWMutex
	files  map[string]domain.ChunkFile
	states map[string]domain.IndexState
}

// NewChunkFileStore creates a new in-memory chunk file store.
func NewChunkFileStore() *ChunkFileStore {
	return &ChunkFileStore{
		files:  make(map[string]domain.ChunkFile),
		states: make(map[string]domain.IndexState),
	}
}

// SaveChunkFile stores cf, replacing the document's previous file.
func (s *ChunkFileStore) SaveChunkFile(_ context.Context, cf *domain.ChunkFile) error {
	if cf == nil || cf.DocID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[cf.DocID] = *cf
	return nil
}

// GetChunkFile returns the document's current file.
func (s *ChunkFileStore) GetChunkFile(_ context.Context, docID string) (*domain.ChunkFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cf, ok := s.files[docID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &cf, nil
}

// ListChunkFiles returns every current file ordered by doc_id.
func (s *ChunkFileStore) ListChunkFiles(_ context.Context) ([]domain.ChunkFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ChunkFile, 0, len(s.files))
	for _, cf := range s.files {
		out = append(out, cf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocID < out[j].DocID })
	return out, nil
}

// SaveIndexState records the live index version for a document.
func (s *ChunkFileStore) SaveIndexState(_ context.Context, state domain.IndexState) error {
	if state.DocID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.DocID] = state
	return nil
}

// GetIndexState returns the live index version for a document.
func (s *ChunkFileStore) GetIndexState(_ context.Context, docID string) (*domain.IndexState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[docID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &state, nil
}

// ListIndexStates returns every index state ordered by doc_id.
func (s *ChunkFileStore) ListIndexStates(_ context.Context) ([]domain.IndexState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.IndexState, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocID < out[j].DocID })
	return out, nil
}
