package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
)

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, Cosine([]float32{1}, []float32{1, 2}))
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 2}))
	assert.Zero(t, Cosine(nil, nil))
}

func TestRank(t *testing.T) {
	hits := []domain.SearchHit{
		{ID: "b", Score: 0.5},
		{ID: "a", Score: 0.9},
		{ID: "c", Score: 0.5},
		{ID: "a2", Score: 0.5},
	}

	ranked := Rank(hits, 3)
	assert.Equal(t, []string{"a", "a2", "b"}, []string{ranked[0].ID, ranked[1].ID, ranked[2].ID})
	assert.Len(t, Rank([]domain.SearchHit{{ID: "x"}}, 5), 1)
}
