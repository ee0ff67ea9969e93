// Package weaviate provides a driven.VectorStore backed by a Weaviate
// class with a "none" vectorizer; vectors are supplied by the embedder.
package weaviate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// objectNamespace derives stable object ids from chunk ids.
var objectNamespace = uuid.MustParse("c1d5e2a4-8a0b-5f3e-b6a1-4e2f9d7c3b10")

// Config holds configuration for the Weaviate store.
type Config struct {
	// URL is the Weaviate endpoint, e.g. http://localhost:8080.
	URL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Collection is mapped to a class name with ClassName.
	Collection string
}

// Store reads and writes one Weaviate class.
type Store struct {
	client    *weaviate.Client
	schema    SchemaClient
	className string
}

// NewStore connects a client to cfg.URL.
func NewStore(cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: weaviate url is required", domain.ErrConfiguration)
	}
	scheme, host, ok := strings.Cut(cfg.URL, "://")
	if !ok {
		scheme, host = "http", cfg.URL
	}
	wcfg := weaviate.Config{
		Host:   strings.TrimRight(host, "/"),
		Scheme: scheme,
	}
	if cfg.APIKey != "" {
		wcfg.Headers = map[string]string{"Authorization": "Bearer " + cfg.APIKey}
	}
	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("%w: weaviate client: %w", domain.ErrConfiguration, err)
	}
	return New(client, cfg.Collection), nil
}

// New wraps an existing client.
func New(client *weaviate.Client, collection string) *Store {
	return &Store{
		client:    client,
		schema:    NewSchemaAdapter(client),
		className: ClassName(collection),
	}
}

// ObjectID returns the Weaviate object id for a chunk id.
func ObjectID(chunkID string) strfmt.UUID {
	return strfmt.UUID(uuid.NewSHA1(objectNamespace, []byte(chunkID)).String())
}

// EnsureCollection creates the class when missing.
func (s *Store) EnsureCollection(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("%w: invalid dimensions %d", domain.ErrConfiguration, dimensions)
	}
	return EnsureSchema(ctx, s.schema, s.className, dimensions)
}

// Upsert writes records in one batch. Batch imports replace objects
// with the same id, which makes the write idempotent per chunk.
func (s *Store) Upsert(ctx context.Context, records []domain.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}
	objects := make([]*models.Object, len(records))
	for i := range records {
		r := &records[i]
		if r.ChunkID == "" {
			return fmt.Errorf("%w: record without chunk id", domain.ErrInvalidInput)
		}
		props, err := properties(r)
		if err != nil {
			return err
		}
		objects[i] = &models.Object{
			Class:      s.className,
			ID:         ObjectID(r.ChunkID),
			Properties: props,
			Vector:     r.Vector,
		}
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return fmt.Errorf("batch upsert: %w", err)
	}
	var errs []error
	for _, r := range resp {
		if r.Result == nil || r.Result.Errors == nil {
			continue
		}
		for _, e := range r.Result.Errors.Error {
			errs = append(errs, fmt.Errorf("object %s: %s", r.ID, e.Message))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("batch upsert: %w", errors.Join(errs...))
	}
	return nil
}

func properties(r *domain.EmbeddingRecord) (map[string]any, error) {
	span, err := json.Marshal(r.Metadata.Span)
	if err != nil {
		return nil, fmt.Errorf("encode span: %w", err)
	}
	m := r.Metadata
	return map[string]any{
		"text":          r.Text,
		"chunkId":       r.ChunkID,
		"docId":         m.DocID,
		"company":       m.Company,
		"fiscalPeriod":  m.FiscalPeriod,
		"docType":       string(m.DocType),
		"contentHash":   m.ContentHash,
		"span":          string(span),
		"sequenceIndex": m.SequenceIndex,
		"tokenCount":    m.TokenCount,
	}, nil
}

var resultFields = []graphql.Field{
	{Name: "text"},
	{Name: "chunkId"},
	{Name: "docId"},
	{Name: "company"},
	{Name: "fiscalPeriod"},
	{Name: "docType"},
	{Name: "contentHash"},
	{Name: "span"},
	{Name: "sequenceIndex"},
	{Name: "tokenCount"},
	{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
}

// Search runs a nearVector query. Scores are cosine similarity, derived
// from Weaviate's cosine distance.
func (s *Store) Search(ctx context.Context, vector []float32, k int, f domain.SearchFilter) ([]domain.SearchHit, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vector)
	query := s.client.GraphQL().Get().
		WithClassName(s.className).
		WithNearVector(nearVector).
		WithLimit(k).
		WithFields(resultFields...)
	if where := searchWhere(f); where != nil {
		query = query.WithWhere(where)
	}

	res, err := query.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %s", res.Errors[0].Message)
	}

	get, _ := res.Data["Get"].(map[string]any)
	objects, _ := get[s.className].([]any)
	hits := make([]domain.SearchHit, 0, len(objects))
	for _, o := range objects {
		props, ok := o.(map[string]any)
		if !ok {
			continue
		}
		hit, err := decodeHit(props)
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func decodeHit(props map[string]any) (domain.SearchHit, error) {
	str := func(key string) string {
		v, _ := props[key].(string)
		return v
	}
	num := func(key string) int {
		v, _ := props[key].(float64)
		return int(v)
	}

	var span domain.Span
	if raw := str("span"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &span); err != nil {
			return domain.SearchHit{}, fmt.Errorf("decode span of %s: %w", str("chunkId"), err)
		}
	}

	score := 0.0
	if additional, ok := props["_additional"].(map[string]any); ok {
		if d, ok := additional["distance"].(float64); ok {
			score = 1 - d
		}
	}

	return domain.SearchHit{
		ID:    str("chunkId"),
		Score: score,
		Record: domain.EmbeddingRecord{
			ChunkID: str("chunkId"),
			Text:    str("text"),
			Metadata: domain.RecordMetadata{
				DocID:         str("docId"),
				Company:       str("company"),
				FiscalPeriod:  str("fiscalPeriod"),
				DocType:       domain.DocType(str("docType")),
				Span:          span,
				SequenceIndex: num("sequenceIndex"),
				TokenCount:    num("tokenCount"),
				ContentHash:   str("contentHash"),
			},
		},
	}, nil
}

func equal(path, value string) *filters.WhereBuilder {
	return filters.Where().
		WithPath([]string{path}).
		WithOperator(filters.Equal).
		WithValueText(value)
}

func and(operands []*filters.WhereBuilder) *filters.WhereBuilder {
	if len(operands) == 1 {
		return operands[0]
	}
	return filters.Where().WithOperator(filters.And).WithOperands(operands)
}

func searchWhere(f domain.SearchFilter) *filters.WhereBuilder {
	var operands []*filters.WhereBuilder
	if f.Company != "" {
		operands = append(operands, equal("company", f.Company))
	}
	if f.DocType != "" {
		operands = append(operands, equal("docType", string(f.DocType)))
	}
	if f.DocID != "" {
		operands = append(operands, equal("docId", f.DocID))
	}
	if len(operands) == 0 {
		return nil
	}
	return and(operands)
}

func staleWhere(docID, keepHash string) *filters.WhereBuilder {
	operands := []*filters.WhereBuilder{equal("docId", docID)}
	if keepHash != "" {
		operands = append(operands, filters.Where().
			WithPath([]string{"contentHash"}).
			WithOperator(filters.NotEqual).
			WithValueText(keepHash))
	}
	return and(operands)
}

// DeleteStale removes the document's objects whose contentHash differs
// from keepHash.
func (s *Store) DeleteStale(ctx context.Context, docID, keepHash string) (int, error) {
	resp, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(s.className).
		WithOutput("minimal").
		WithWhere(staleWhere(docID, keepHash)).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete stale: %w", err)
	}
	if resp == nil || resp.Results == nil {
		return 0, nil
	}
	if resp.Results.Failed > 0 {
		return int(resp.Results.Successful), fmt.Errorf("delete stale: %d objects failed", resp.Results.Failed)
	}
	return int(resp.Results.Successful), nil
}

// Count returns the number of objects of docID.
func (s *Store) Count(ctx context.Context, docID string) (int, error) {
	res, err := s.client.GraphQL().Aggregate().
		WithClassName(s.className).
		WithWhere(equal("docId", docID)).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("graphql error: %s", res.Errors[0].Message)
	}

	agg, _ := res.Data["Aggregate"].(map[string]any)
	groups, _ := agg[s.className].([]any)
	if len(groups) == 0 {
		return 0, nil
	}
	group, _ := groups[0].(map[string]any)
	meta, _ := group["meta"].(map[string]any)
	count, _ := meta["count"].(float64)
	return int(count), nil
}

// Close is a no-op; the client holds no open connections of its own.
func (s *Store) Close() error {
	return nil
}
