package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/filings-qa/internal/adapters/driven/vectorstore"
	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driven"
)

const metaDimensions = "dimensions"

// vectorStore implements driven.VectorStore with an exact cosine scan over
// the rows matching the filter.
type vectorStore struct {
	store *Store
}

var _ driven.VectorStore = (*vectorStore)(nil)

// EnsureCollection records the vector size on first use and rejects a
// different size afterwards.
func (s *vectorStore) EnsureCollection(ctx context.Context, dimensions int) error {
	current, err := s.dimensions(ctx)
	if err != nil {
		return err
	}
	if current != 0 && dimensions != 0 && current != dimensions {
		return fmt.Errorf("%w: collection has %d dimensions, got %d", domain.ErrConfiguration, current, dimensions)
	}
	if current != 0 || dimensions == 0 {
		return nil
	}
	_, err = s.store.db.ExecContext(ctx,
		"INSERT INTO collection_meta (key, value) VALUES (?, ?)",
		metaDimensions, strconv.Itoa(dimensions))
	if err != nil {
		return fmt.Errorf("saving collection dimensions: %w", err)
	}
	return nil
}

func (s *vectorStore) dimensions(ctx context.Context) (int, error) {
	var value string
	err := s.store.db.QueryRowContext(ctx,
		"SELECT value FROM collection_meta WHERE key = ?", metaDimensions).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("loading collection dimensions: %w", err)
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parsing collection dimensions %q: %w", value, err)
	}
	return n, nil
}

// Upsert inserts or replaces records by chunk id in one transaction and
// marks each record's content hash as live for its document.
func (s *vectorStore) Upsert(ctx context.Context, records []domain.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}
	dims, err := s.dimensions(ctx)
	if err != nil {
		return err
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO embeddings (chunk_id, doc_id, company, fiscal_period, doc_type, content_hash,
			sequence_index, token_count, span, text, vector)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			doc_id = excluded.doc_id,
			company = excluded.company,
			fiscal_period = excluded.fiscal_period,
			doc_type = excluded.doc_type,
			content_hash = excluded.content_hash,
			sequence_index = excluded.sequence_index,
			token_count = excluded.token_count,
			span = excluded.span,
			text = excluded.text,
			vector = excluded.vector
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	live := make(map[string]string)
	for i := range records {
		r := &records[i]
		if r.ChunkID == "" {
			return fmt.Errorf("%w: record without chunk id", domain.ErrInvalidInput)
		}
		if dims != 0 && len(r.Vector) != dims {
			return fmt.Errorf("%w: %s has %d dimensions, want %d", domain.ErrInvalidInput, r.ChunkID, len(r.Vector), dims)
		}
		spanJSON, err := json.Marshal(r.Metadata.Span)
		if err != nil {
			return fmt.Errorf("marshalling span: %w", err)
		}
		m := r.Metadata
		if _, err := stmt.ExecContext(ctx, r.ChunkID, m.DocID, m.Company, m.FiscalPeriod, string(m.DocType),
			m.ContentHash, m.SequenceIndex, m.TokenCount, string(spanJSON), r.Text,
			encodeVector(r.Vector)); err != nil {
			return fmt.Errorf("saving embedding %s: %w", r.ChunkID, err)
		}
		live[m.DocID] = m.ContentHash
	}

	for docID, hash := range live {
		if err := setLive(ctx, tx, docID, hash); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func setLive(ctx context.Context, db execer, docID, hash string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO live_hashes (doc_id, content_hash) VALUES (?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET content_hash = excluded.content_hash
	`, docID, hash)
	if err != nil {
		return fmt.Errorf("saving live hash: %w", err)
	}
	return nil
}

// Search scores every live row matching filter against vector.
func (s *vectorStore) Search(ctx context.Context, vector []float32, k int, filter domain.SearchFilter) ([]domain.SearchHit, error) {
	where := []string{"(l.content_hash IS NULL OR l.content_hash = e.content_hash)"}
	var args []any
	if filter.Company != "" {
		where = append(where, "e.company = ?")
		args = append(args, filter.Company)
	}
	if filter.DocType != "" {
		where = append(where, "e.doc_type = ?")
		args = append(args, string(filter.DocType))
	}
	if filter.DocID != "" {
		where = append(where, "e.doc_id = ?")
		args = append(args, filter.DocID)
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT e.chunk_id, e.doc_id, e.company, e.fiscal_period, e.doc_type, e.content_hash,
			e.sequence_index, e.token_count, e.span, e.text, e.vector
		FROM embeddings e
		LEFT JOIN live_hashes l ON l.doc_id = e.doc_id
		WHERE `+strings.Join(where, " AND "), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying embeddings: %w", domain.ErrRetrieval, err)
	}
	defer rows.Close()

	var hits []domain.SearchHit
	for rows.Next() {
		var r domain.EmbeddingRecord
		var docType, spanJSON string
		var blob []byte
		if err := rows.Scan(&r.ChunkID, &r.Metadata.DocID, &r.Metadata.Company, &r.Metadata.FiscalPeriod,
			&docType, &r.Metadata.ContentHash, &r.Metadata.SequenceIndex, &r.Metadata.TokenCount,
			&spanJSON, &r.Text, &blob); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		r.Metadata.DocType = domain.DocType(docType)
		if err := json.Unmarshal([]byte(spanJSON), &r.Metadata.Span); err != nil {
			return nil, fmt.Errorf("unmarshaling span: %w", err)
		}
		r.Vector = decodeVector(blob)
		hits = append(hits, domain.SearchHit{
			ID:     r.ChunkID,
			Score:  vectorstore.Cosine(vector, r.Vector),
			Record: r,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embeddings: %w", err)
	}
	return vectorstore.Rank(hits, k), nil
}

// DeleteStale removes rows of docID not tagged with keepHash and makes
// keepHash the live version.
func (s *vectorStore) DeleteStale(ctx context.Context, docID, keepHash string) (int, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var res sql.Result
	if keepHash == "" {
		res, err = tx.ExecContext(ctx, "DELETE FROM embeddings WHERE doc_id = ?", docID)
		if err == nil {
			_, err = tx.ExecContext(ctx, "DELETE FROM live_hashes WHERE doc_id = ?", docID)
		}
	} else {
		res, err = tx.ExecContext(ctx,
			"DELETE FROM embeddings WHERE doc_id = ? AND content_hash != ?", docID, keepHash)
		if err == nil {
			err = setLive(ctx, tx, docID, keepHash)
		}
	}
	if err != nil {
		return 0, fmt.Errorf("deleting stale embeddings: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted embeddings: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return int(removed), nil
}

// Count returns the number of live rows for docID.
func (s *vectorStore) Count(ctx context.Context, docID string) (int, error) {
	var n int
	err := s.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM embeddings e
		LEFT JOIN live_hashes l ON l.doc_id = e.doc_id
		WHERE e.doc_id = ? AND (l.content_hash IS NULL OR l.content_hash = e.content_hash)
	`, docID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting embeddings: %w", err)
	}
	return n, nil
}

// Close is a no-op; the owning Store closes the database.
func (s *vectorStore) Close() error {
	return nil
}
