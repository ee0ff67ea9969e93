// Package qdrant provides a driven.VectorStore backed by a Qdrant server,
// spoken to over its REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/filings-qa/internal/adapters/driven/apierr"
	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

const provider = "qdrant"

// DefaultTimeout bounds each REST call.
const DefaultTimeout = 15 * time.Second

// pointNamespace derives stable point ids from chunk ids; Qdrant only
// accepts unsigned integers or UUIDs.
var pointNamespace = uuid.MustParse("7b0f1c1e-3f7e-5a55-9a43-0d6c3f2b9e11")

// indexedFields get keyword payload indexes so filters stay cheap.
var indexedFields = []string{"doc_id", "company", "doc_type", "content_hash"}

// Config holds configuration for the Qdrant store.
type Config struct {
	// URL is the Qdrant REST endpoint, e.g. http://localhost:6333.
	URL string

	// APIKey is sent as the api-key header when set.
	APIKey string

	// Collection is the collection name.
	Collection string

	// Timeout is the per-request timeout (default: 15s).
	Timeout time.Duration
}

// Store is a REST client for one Qdrant collection using cosine distance.
type Store struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

// payload is the JSON stored next to each point.
type payload struct {
	ChunkID       string         `json:"chunk_id"`
	Text          string         `json:"text"`
	DocID         string         `json:"doc_id"`
	Company       string         `json:"company"`
	FiscalPeriod  string         `json:"fiscal_period,omitempty"`
	DocType       domain.DocType `json:"doc_type,omitempty"`
	Span          domain.Span    `json:"span"`
	SequenceIndex int            `json:"sequence_index"`
	TokenCount    int            `json:"token_count"`
	ContentHash   string         `json:"content_hash"`
}

type point struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload payload   `json:"payload"`
}

type condition struct {
	Key   string `json:"key"`
	Match struct {
		Value string `json:"value"`
	} `json:"match"`
}

type filter struct {
	Must    []condition `json:"must,omitempty"`
	MustNot []condition `json:"must_not,omitempty"`
}

func match(key, value string) condition {
	c := condition{Key: key}
	c.Match.Value = value
	return c
}

// NewStore creates a Qdrant store. The collection is created lazily by
// EnsureCollection.
func NewStore(cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: qdrant url is required", domain.ErrConfiguration)
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("%w: qdrant collection is required", domain.ErrConfiguration)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Store{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// PointID returns the Qdrant point id for a chunk id.
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

// EnsureCollection creates the collection and its payload indexes when
// missing, and rejects an existing collection of another size.
func (s *Store) EnsureCollection(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("%w: invalid dimensions %d", domain.ErrConfiguration, dimensions)
	}

	var info struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size int `json:"size"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	err := s.do(ctx, http.MethodGet, s.path(""), nil, &info)
	switch {
	case err == nil:
		if size := info.Config.Params.Vectors.Size; size != 0 && size != dimensions {
			return fmt.Errorf("%w: collection %s has %d dimensions, got %d",
				domain.ErrConfiguration, s.collection, size, dimensions)
		}
		return nil
	case !isNotFound(err):
		return err
	}

	create := map[string]any{
		"vectors": map[string]any{"size": dimensions, "distance": "Cosine"},
	}
	if err := s.do(ctx, http.MethodPut, s.path(""), create, nil); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	for _, field := range indexedFields {
		body := map[string]any{"field_name": field, "field_schema": "keyword"}
		if err := s.do(ctx, http.MethodPut, s.path("/index?wait=true"), body, nil); err != nil {
			return fmt.Errorf("create index on %s: %w", field, err)
		}
	}
	return nil
}

// Upsert writes points keyed by the chunk id's derived UUID, so a second
// write of the same chunk replaces the first.
func (s *Store) Upsert(ctx context.Context, records []domain.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]point, len(records))
	for i := range records {
		r := &records[i]
		if r.ChunkID == "" {
			return fmt.Errorf("%w: record without chunk id", domain.ErrInvalidInput)
		}
		m := r.Metadata
		points[i] = point{
			ID:     PointID(r.ChunkID),
			Vector: r.Vector,
			Payload: payload{
				ChunkID:       r.ChunkID,
				Text:          r.Text,
				DocID:         m.DocID,
				Company:       m.Company,
				FiscalPeriod:  m.FiscalPeriod,
				DocType:       m.DocType,
				Span:          m.Span,
				SequenceIndex: m.SequenceIndex,
				TokenCount:    m.TokenCount,
				ContentHash:   m.ContentHash,
			},
		}
	}
	return s.do(ctx, http.MethodPut, s.path("/points?wait=true"), map[string]any{"points": points}, nil)
}

// Search returns the k nearest points matching f.
func (s *Store) Search(ctx context.Context, vector []float32, k int, f domain.SearchFilter) ([]domain.SearchHit, error) {
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	if qf := searchFilter(f); qf != nil {
		req["filter"] = qf
	}

	var result []struct {
		ID      any     `json:"id"`
		Score   float64 `json:"score"`
		Payload payload `json:"payload"`
	}
	if err := s.do(ctx, http.MethodPost, s.path("/points/search"), req, &result); err != nil {
		return nil, err
	}

	hits := make([]domain.SearchHit, 0, len(result))
	for _, r := range result {
		p := r.Payload
		hits = append(hits, domain.SearchHit{
			ID:    p.ChunkID,
			Score: r.Score,
			Record: domain.EmbeddingRecord{
				ChunkID: p.ChunkID,
				Text:    p.Text,
				Metadata: domain.RecordMetadata{
					DocID:         p.DocID,
					Company:       p.Company,
					FiscalPeriod:  p.FiscalPeriod,
					DocType:       p.DocType,
					Span:          p.Span,
					SequenceIndex: p.SequenceIndex,
					TokenCount:    p.TokenCount,
					ContentHash:   p.ContentHash,
				},
			},
		})
	}
	return hits, nil
}

func searchFilter(f domain.SearchFilter) *filter {
	if f.IsEmpty() {
		return nil
	}
	var qf filter
	if f.Company != "" {
		qf.Must = append(qf.Must, match("company", f.Company))
	}
	if f.DocType != "" {
		qf.Must = append(qf.Must, match("doc_type", string(f.DocType)))
	}
	if f.DocID != "" {
		qf.Must = append(qf.Must, match("doc_id", f.DocID))
	}
	return &qf
}

func staleFilter(docID, keepHash string) filter {
	f := filter{Must: []condition{match("doc_id", docID)}}
	if keepHash != "" {
		f.MustNot = []condition{match("content_hash", keepHash)}
	}
	return f
}

// DeleteStale removes the document's points whose content_hash differs
// from keepHash. The count is taken just before the delete.
func (s *Store) DeleteStale(ctx context.Context, docID, keepHash string) (int, error) {
	f := staleFilter(docID, keepHash)
	n, err := s.count(ctx, f)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	if err := s.do(ctx, http.MethodPost, s.path("/points/delete?wait=true"), map[string]any{"filter": f}, nil); err != nil {
		return 0, err
	}
	return n, nil
}

// Count returns the number of points of docID.
func (s *Store) Count(ctx context.Context, docID string) (int, error) {
	return s.count(ctx, filter{Must: []condition{match("doc_id", docID)}})
}

func (s *Store) count(ctx context.Context, f filter) (int, error) {
	var result struct {
		Count int `json:"count"`
	}
	if err := s.do(ctx, http.MethodPost, s.path("/points/count"), map[string]any{"filter": f, "exact": true}, &result); err != nil {
		return 0, err
	}
	return result.Count, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func (s *Store) path(suffix string) string {
	return s.url + "/collections/" + url.PathEscape(s.collection) + suffix
}

// do sends a JSON request and decodes the "result" field of the reply
// into out. Error statuses come back as *domain.ProviderError.
func (s *Store) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	data, err := apierr.Do(s.client, provider, req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, strings.TrimPrefix(endpoint, s.url), err)
	}
	if out == nil {
		return nil
	}
	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// isNotFound reports a 404 from the server.
func isNotFound(err error) bool {
	var pe *domain.ProviderError
	return errors.As(err, &pe) && pe.Status == http.StatusNotFound
}
