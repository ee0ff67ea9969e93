package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driven"
)

// chunkFileStore implements driven.ChunkFileStore.
type chunkFileStore struct {
	store *Store
}

var _ driven.ChunkFileStore = (*chunkFileStore)(nil)

// SaveChunkFile stores or replaces the document's chunk file.
func (s *chunkFileStore) SaveChunkFile(ctx context.Context, cf *domain.ChunkFile) error {
	if cf == nil || cf.DocID == "" {
		return fmt.Errorf("%w: chunk file without doc_id", domain.ErrInvalidInput)
	}

	strategyJSON, err := json.Marshal(cf.Strategy)
	if err != nil {
		return fmt.Errorf("marshalling strategy: %w", err)
	}
	chunksJSON, err := json.Marshal(cf.Chunks)
	if err != nil {
		return fmt.Errorf("marshalling chunks: %w", err)
	}
	dropped := cf.Dropped
	if dropped == nil {
		dropped = []domain.Range{}
	}
	droppedJSON, err := json.Marshal(dropped)
	if err != nil {
		return fmt.Errorf("marshalling dropped ranges: %w", err)
	}

	createdAt := cf.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO chunk_files (doc_id, version, strategy, content_hash, chunks, dropped, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			version = excluded.version,
			strategy = excluded.strategy,
			content_hash = excluded.content_hash,
			chunks = excluded.chunks,
			dropped = excluded.dropped,
			created_at = excluded.created_at
	`, cf.DocID, cf.Version, string(strategyJSON), cf.ContentHash, string(chunksJSON), string(droppedJSON), createdAt)
	if err != nil {
		return fmt.Errorf("saving chunk file: %w", err)
	}
	return nil
}

// GetChunkFile retrieves the document's chunk file.
func (s *chunkFileStore) GetChunkFile(ctx context.Context, docID string) (*domain.ChunkFile, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT doc_id, version, strategy, content_hash, chunks, dropped, created_at
		FROM chunk_files WHERE doc_id = ?
	`, docID)
	return scanChunkFile(row)
}

// ListChunkFiles returns every stored chunk file ordered by doc_id.
func (s *chunkFileStore) ListChunkFiles(ctx context.Context) ([]domain.ChunkFile, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT doc_id, version, strategy, content_hash, chunks, dropped, created_at
		FROM chunk_files ORDER BY doc_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunk files: %w", err)
	}
	defer rows.Close()

	var files []domain.ChunkFile //nolint:prealloc // size unknown from query
	for rows.Next() {
		cf, err := scanChunkFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *cf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk files: %w", err)
	}
	return files, nil
}

// SaveIndexState stores or replaces the document's index state.
func (s *chunkFileStore) SaveIndexState(ctx context.Context, state domain.IndexState) error {
	if state.DocID == "" {
		return fmt.Errorf("%w: index state without doc_id", domain.ErrInvalidInput)
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO index_states (doc_id, company, doc_type, content_hash, embed_model, dimensions, records, gaps, layout_hash, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			company = excluded.company,
			doc_type = excluded.doc_type,
			content_hash = excluded.content_hash,
			embed_model = excluded.embed_model,
			dimensions = excluded.dimensions,
			records = excluded.records,
			gaps = excluded.gaps,
			layout_hash = excluded.layout_hash,
			updated_at = excluded.updated_at
	`, state.DocID, state.Company, string(state.DocType), state.ContentHash, state.EmbedModel,
		state.Dimensions, state.Records, state.Gaps, state.LayoutHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving index state: %w", err)
	}
	return nil
}

// GetIndexState retrieves the document's index state.
func (s *chunkFileStore) GetIndexState(ctx context.Context, docID string) (*domain.IndexState, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT doc_id, company, doc_type, content_hash, embed_model, dimensions, records, gaps, layout_hash
		FROM index_states WHERE doc_id = ?
	`, docID)
	return scanIndexState(row)
}

// ListIndexStates returns every index state ordered by doc_id.
func (s *chunkFileStore) ListIndexStates(ctx context.Context) ([]domain.IndexState, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT doc_id, company, doc_type, content_hash, embed_model, dimensions, records, gaps, layout_hash
		FROM index_states ORDER BY doc_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying index states: %w", err)
	}
	defer rows.Close()

	var states []domain.IndexState //nolint:prealloc // size unknown from query
	for rows.Next() {
		state, err := scanIndexState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, *state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating index states: %w", err)
	}
	return states, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanIndexState(row scanner) (*domain.IndexState, error) {
	var state domain.IndexState
	var docType string
	if err := row.Scan(&state.DocID, &state.Company, &docType, &state.ContentHash, &state.EmbedModel,
		&state.Dimensions, &state.Records, &state.Gaps, &state.LayoutHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning index state: %w", err)
	}
	state.DocType = domain.DocType(docType)
	return &state, nil
}

func scanChunkFile(row scanner) (*domain.ChunkFile, error) {
	var cf domain.ChunkFile
	var strategyJSON, chunksJSON, droppedJSON string
	if err := row.Scan(&cf.DocID, &cf.Version, &strategyJSON, &cf.ContentHash,
		&chunksJSON, &droppedJSON, &cf.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk file: %w", err)
	}
	if err := json.Unmarshal([]byte(strategyJSON), &cf.Strategy); err != nil {
		return nil, fmt.Errorf("unmarshaling strategy: %w", err)
	}
	if err := json.Unmarshal([]byte(chunksJSON), &cf.Chunks); err != nil {
		return nil, fmt.Errorf("unmarshaling chunks: %w", err)
	}
	if err := json.Unmarshal([]byte(droppedJSON), &cf.Dropped); err != nil {
		return nil, fmt.Errorf("unmarshaling dropped ranges: %w", err)
	}
	if len(cf.Dropped) == 0 {
		cf.Dropped = nil
	}
	return &cf, nil
}
