package qdrant

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
)

type recorded struct {
	Method string
	Path   string
	Query  string
	APIKey string
	Body   map[string]any
}

type fakeQdrant struct {
	mu       sync.Mutex
	requests []recorded
	respond  func(r recorded) (int, any)
}

func (f *fakeQdrant) handler(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	rec := recorded{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		APIKey: r.Header.Get("api-key"),
	}
	if len(data) > 0 {
		_ = json.Unmarshal(data, &rec.Body)
	}
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()

	status, body := http.StatusOK, any(map[string]any{"result": true, "status": "ok"})
	if f.respond != nil {
		status, body = f.respond(rec)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (f *fakeQdrant) calls() []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recorded(nil), f.requests...)
}

func newTestStore(t *testing.T, respond func(r recorded) (int, any)) (*Store, *fakeQdrant) {
	t.Helper()
	fake := &fakeQdrant{respond: respond}
	server := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(server.Close)

	store, err := NewStore(Config{URL: server.URL + "/", APIKey: "secret", Collection: "acme"})
	require.NoError(t, err)
	return store, fake
}

func ok(result any) (int, any) {
	return http.StatusOK, map[string]any{"result": result, "status": "ok"}
}

func TestNewStore_RequiresURLAndCollection(t *testing.T) {
	_, err := NewStore(Config{Collection: "acme"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = NewStore(Config{URL: "http://localhost:6333"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestPointID_IsStable(t *testing.T) {
	assert.Equal(t, PointID("acme:00001"), PointID("acme:00001"))
	assert.NotEqual(t, PointID("acme:00001"), PointID("acme:00002"))
}

func TestEnsureCollection_CreatesMissingCollection(t *testing.T) {
	store, fake := newTestStore(t, func(r recorded) (int, any) {
		if r.Method == http.MethodGet {
			return http.StatusNotFound, map[string]any{"status": map[string]any{"error": "Not found: Collection `acme` doesn't exist!"}}
		}
		return ok(true)
	})

	require.NoError(t, store.EnsureCollection(context.Background(), 4))

	calls := fake.calls()
	require.Len(t, calls, 2+len(indexedFields))
	create := calls[1]
	assert.Equal(t, http.MethodPut, create.Method)
	assert.Equal(t, "/collections/acme", create.Path)
	assert.Equal(t, "secret", create.APIKey)
	vectors := create.Body["vectors"].(map[string]any)
	assert.InDelta(t, 4, vectors["size"], 0)
	assert.Equal(t, "Cosine", vectors["distance"])

	var fields []string
	for _, c := range calls[2:] {
		assert.Equal(t, "/collections/acme/index", c.Path)
		fields = append(fields, c.Body["field_name"].(string))
	}
	assert.Equal(t, indexedFields, fields)
}

func TestEnsureCollection_ExistingCollection(t *testing.T) {
	info := map[string]any{"config": map[string]any{"params": map[string]any{"vectors": map[string]any{"size": 4}}}}
	store, fake := newTestStore(t, func(r recorded) (int, any) {
		return ok(info)
	})

	require.NoError(t, store.EnsureCollection(context.Background(), 4))
	assert.Len(t, fake.calls(), 1)

	err := store.EnsureCollection(context.Background(), 8)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestEnsureCollection_ServerError(t *testing.T) {
	store, _ := newTestStore(t, func(r recorded) (int, any) {
		return http.StatusInternalServerError, map[string]any{"status": map[string]any{"error": "disk full"}}
	})

	err := store.EnsureCollection(context.Background(), 4)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestUpsert_SendsPointsWithPayload(t *testing.T) {
	store, fake := newTestStore(t, nil)

	rec := domain.EmbeddingRecord{
		ChunkID: "acme:00001",
		Text:    "Revenue grew 10%.",
		Vector:  []float32{1, 0},
		Metadata: domain.RecordMetadata{
			DocID:       "acme-10k",
			Company:     "acme",
			DocType:     domain.DocTypeFiling,
			ContentHash: "h1",
		},
	}
	require.NoError(t, store.Upsert(context.Background(), []domain.EmbeddingRecord{rec}))

	calls := fake.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPut, calls[0].Method)
	assert.Equal(t, "/collections/acme/points", calls[0].Path)
	assert.Equal(t, "wait=true", calls[0].Query)

	points := calls[0].Body["points"].([]any)
	require.Len(t, points, 1)
	p := points[0].(map[string]any)
	assert.Equal(t, PointID("acme:00001"), p["id"])
	payload := p["payload"].(map[string]any)
	assert.Equal(t, "acme:00001", payload["chunk_id"])
	assert.Equal(t, "acme-10k", payload["doc_id"])
	assert.Equal(t, "h1", payload["content_hash"])
	assert.Equal(t, "filing", payload["doc_type"])
}

func TestUpsert_Validation(t *testing.T) {
	store, fake := newTestStore(t, nil)

	require.NoError(t, store.Upsert(context.Background(), nil))
	assert.Empty(t, fake.calls())

	err := store.Upsert(context.Background(), []domain.EmbeddingRecord{{Vector: []float32{1}}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSearch_DecodesHitsAndSendsFilter(t *testing.T) {
	store, fake := newTestStore(t, func(r recorded) (int, any) {
		return ok([]map[string]any{{
			"id":    PointID("acme:00002"),
			"score": 0.91,
			"payload": map[string]any{
				"chunk_id":       "acme:00002",
				"text":           "Net income was flat.",
				"doc_id":         "acme-10k",
				"company":        "acme",
				"doc_type":       "filing",
				"sequence_index": 1,
				"content_hash":   "h1",
			},
		}})
	})

	hits, err := store.Search(context.Background(), []float32{1, 0}, 3, domain.SearchFilter{Company: "acme"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "acme:00002", hits[0].ID)
	assert.InDelta(t, 0.91, hits[0].Score, 1e-9)
	assert.Equal(t, "Net income was flat.", hits[0].Record.Text)
	assert.Equal(t, 1, hits[0].Record.Metadata.SequenceIndex)
	assert.Equal(t, domain.DocTypeFiling, hits[0].Record.Metadata.DocType)

	body := fake.calls()[0].Body
	assert.InDelta(t, 3, body["limit"], 0)
	must := body["filter"].(map[string]any)["must"].([]any)
	require.Len(t, must, 1)
	assert.Equal(t, "company", must[0].(map[string]any)["key"])
}

func TestSearch_NoFilter(t *testing.T) {
	store, fake := newTestStore(t, func(r recorded) (int, any) {
		return ok([]any{})
	})

	hits, err := store.Search(context.Background(), []float32{1}, 5, domain.SearchFilter{})
	require.NoError(t, err)
	assert.Empty(t, hits)
	_, hasFilter := fake.calls()[0].Body["filter"]
	assert.False(t, hasFilter)
}

func TestDeleteStale_CountsThenDeletes(t *testing.T) {
	store, fake := newTestStore(t, func(r recorded) (int, any) {
		if r.Path == "/collections/acme/points/count" {
			return ok(map[string]any{"count": 2})
		}
		return ok(map[string]any{"status": "completed"})
	})

	n, err := store.DeleteStale(context.Background(), "acme-10k", "h2")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	calls := fake.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "/collections/acme/points/delete", calls[1].Path)
	f := calls[1].Body["filter"].(map[string]any)
	assert.Len(t, f["must"], 1)
	notMatch := f["must_not"].([]any)[0].(map[string]any)
	assert.Equal(t, "content_hash", notMatch["key"])
	assert.Equal(t, "h2", notMatch["match"].(map[string]any)["value"])
}

func TestDeleteStale_NothingToDelete(t *testing.T) {
	store, fake := newTestStore(t, func(r recorded) (int, any) {
		return ok(map[string]any{"count": 0})
	})

	n, err := store.DeleteStale(context.Background(), "acme-10k", "h1")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, fake.calls(), 1)
}

func TestDeleteStale_EmptyKeepRemovesAll(t *testing.T) {
	f := staleFilter("acme-10k", "")
	assert.Len(t, f.Must, 1)
	assert.Empty(t, f.MustNot)
}

func TestCount(t *testing.T) {
	store, fake := newTestStore(t, func(r recorded) (int, any) {
		return ok(map[string]any{"count": 7})
	})

	n, err := store.Count(context.Background(), "acme-10k")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, true, fake.calls()[0].Body["exact"])
}

func TestSearch_RateLimitedIsRetryable(t *testing.T) {
	store, _ := newTestStore(t, func(r recorded) (int, any) {
		return http.StatusServiceUnavailable, map[string]any{"status": map[string]any{"error": "too many requests"}}
	})

	_, err := store.Search(context.Background(), []float32{1, 0, 0, 0}, 3, domain.SearchFilter{})

	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "qdrant", pe.Provider)
	assert.Equal(t, "too many requests", pe.Message)
	assert.True(t, domain.IsRetryable(err))
}
