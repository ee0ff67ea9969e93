package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
)

func testChunkFile(docID, hash string, texts ...string) *domain.ChunkFile {
	cf := &domain.ChunkFile{
		Version: domain.ChunkFileVersion,
		DocID:   docID,
		Strategy: domain.ChunkStrategy{
			Name:   domain.StrategySentence,
			Params: domain.StrategyParams{ChunkSize: 6, Unit: domain.UnitTokens},
		},
		ContentHash: hash,
		CreatedAt:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	for i, text := range texts {
		cf.Chunks = append(cf.Chunks, domain.Chunk{
			ID:            domain.ChunkID(docID, i),
			DocID:         docID,
			SequenceIndex: i,
			Span:          domain.SingleSpan(domain.PageMarker("1")),
			Offset:        domain.Range{Start: 0, End: len(text)},
			Text:          text,
			TokenCount:    domain.CountTokens(text),
		})
	}
	return cf
}

func TestChunkFileStore_SaveAndGet(t *testing.T) {
	store := setupTestStore(t).ChunkFileStore()
	ctx := context.Background()

	cf := testChunkFile("acme", "h1", "Revenue grew 10%.", "Net income was flat.")
	require.NoError(t, store.SaveChunkFile(ctx, cf))

	got, err := store.GetChunkFile(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, cf.Strategy, got.Strategy)
	assert.Equal(t, "h1", got.ContentHash)
	assert.Equal(t, cf.Chunks, got.Chunks)
	assert.True(t, cf.CreatedAt.Equal(got.CreatedAt))
	assert.Nil(t, got.Dropped)
}

func TestChunkFileStore_DroppedRanges(t *testing.T) {
	store := setupTestStore(t).ChunkFileStore()
	ctx := context.Background()

	cf := testChunkFile("acme", "h1", "Revenue grew 10%.")
	cf.Dropped = []domain.Range{{Start: 20, End: 2600}, {Start: 2700, End: 2710}}
	require.NoError(t, store.SaveChunkFile(ctx, cf))

	got, err := store.GetChunkFile(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, cf.Dropped, got.Dropped)
	assert.Equal(t, 2590, got.DroppedRunes())

	files, err := store.ListChunkFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, cf.Dropped, files[0].Dropped)
}

func TestChunkFileStore_SaveSupersedes(t *testing.T) {
	store := setupTestStore(t).ChunkFileStore()
	ctx := context.Background()

	require.NoError(t, store.SaveChunkFile(ctx, testChunkFile("acme", "h1", "old")))
	require.NoError(t, store.SaveChunkFile(ctx, testChunkFile("acme", "h2", "new", "text")))

	got, err := store.GetChunkFile(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "h2", got.ContentHash)
	assert.Len(t, got.Chunks, 2)

	files, err := store.ListChunkFiles(ctx)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestChunkFileStore_NotFound(t *testing.T) {
	store := setupTestStore(t).ChunkFileStore()
	ctx := context.Background()

	_, err := store.GetChunkFile(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetIndexState(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChunkFileStore_InvalidInput(t *testing.T) {
	store := setupTestStore(t).ChunkFileStore()
	ctx := context.Background()

	assert.ErrorIs(t, store.SaveChunkFile(ctx, nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.SaveChunkFile(ctx, &domain.ChunkFile{}), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.SaveIndexState(ctx, domain.IndexState{}), domain.ErrInvalidInput)
}

func TestChunkFileStore_ListOrdered(t *testing.T) {
	store := setupTestStore(t).ChunkFileStore()
	ctx := context.Background()

	for _, id := range []string{"gamma", "acme", "beta"} {
		require.NoError(t, store.SaveChunkFile(ctx, testChunkFile(id, "h", "text")))
	}
	files, err := store.ListChunkFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "acme", files[0].DocID)
	assert.Equal(t, "beta", files[1].DocID)
	assert.Equal(t, "gamma", files[2].DocID)
}

func TestChunkFileStore_IndexState(t *testing.T) {
	store := setupTestStore(t).ChunkFileStore()
	ctx := context.Background()

	state := domain.IndexState{DocID: "beta", Company: "Beta", DocType: domain.DocTypeTranscript,
		ContentHash: "h1", EmbedModel: "nomic-embed-text", Dimensions: 768, Records: 4, Gaps: 1, LayoutHash: "l1"}
	require.NoError(t, store.SaveIndexState(ctx, state))

	got, err := store.GetIndexState(ctx, "beta")
	require.NoError(t, err)
	assert.Equal(t, state, *got)

	state.ContentHash = "h2"
	state.Gaps = 0
	require.NoError(t, store.SaveIndexState(ctx, state))
	require.NoError(t, store.SaveIndexState(ctx, domain.IndexState{DocID: "acme", ContentHash: "a", EmbedModel: "m"}))

	states, err := store.ListIndexStates(ctx)
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, "acme", states[0].DocID)
	assert.Equal(t, "h2", states[1].ContentHash)
	assert.Equal(t, "l1", states[1].LayoutHash)
	assert.Equal(t, "Beta", states[1].Company)
	assert.Equal(t, domain.DocTypeTranscript, states[1].DocType)
	assert.Empty(t, states[0].LayoutHash)
	assert.Zero(t, states[1].Gaps)
}
