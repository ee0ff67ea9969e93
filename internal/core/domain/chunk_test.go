package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkStrategy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  StrategyParams
		wantErr bool
	}{
		{"valid", StrategyParams{ChunkSize: 10, Overlap: 4, Unit: UnitCharacters}, false},
		{"zero overlap", StrategyParams{ChunkSize: 10, Overlap: 0, Unit: UnitTokens}, false},
		{"zero size", StrategyParams{ChunkSize: 0, Unit: UnitCharacters}, true},
		{"negative overlap", StrategyParams{ChunkSize: 10, Overlap: -1, Unit: UnitCharacters}, true},
		{"overlap equals size", StrategyParams{ChunkSize: 10, Overlap: 10, Unit: UnitCharacters}, true},
		{"overlap exceeds size", StrategyParams{ChunkSize: 10, Overlap: 15, Unit: UnitCharacters}, true},
		{"unknown unit", StrategyParams{ChunkSize: 10, Unit: "pages"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ChunkStrategy{Name: StrategySequential, Params: tt.params}.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrConfiguration)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestChunkStrategy_Canonical(t *testing.T) {
	s := ChunkStrategy{
		Name:   StrategySentence,
		Params: StrategyParams{ChunkSize: 6, Overlap: 0, Unit: UnitTokens},
	}
	assert.Equal(t, "name=sentence;chunk_size=6;overlap=0;unit=tokens", s.Canonical())

	other := s
	other.Params.Overlap = 1
	assert.NotEqual(t, s.Canonical(), other.Canonical())
}

func TestSpan_String(t *testing.T) {
	p1 := PageMarker("1")
	p2 := PageMarker("2")
	sec := Marker{Kind: MarkerSection, Label: "Revenue"}

	assert.Equal(t, "page 2", SingleSpan(p2).String())
	assert.Equal(t, "pages 1-2", Span{Start: p1, End: p2}.String())
	assert.Equal(t, `section "Revenue" to page 2`, Span{Start: sec, End: p2}.String())
	assert.False(t, SingleSpan(p1).IsRange())
}

func TestChunkID(t *testing.T) {
	assert.Equal(t, "acme:00000", ChunkID("acme", 0))
	assert.Equal(t, "acme:00042", ChunkID("acme", 42))
}

func TestCountTokens(t *testing.T) {
	assert.Equal(t, 0, CountTokens("   "))
	assert.Equal(t, 3, CountTokens("Revenue grew 10%."))
	assert.Equal(t, 4, CountTokens("Net\nincome  was\tflat."))
}

func TestExtractedText_Flatten(t *testing.T) {
	text := ExtractedText{Segments: []Segment{
		{Marker: PageMarker("1"), Text: "Revenue grew 10%."},
		{Marker: PageMarker("2"), Text: "Net income was flat."},
	}}

	stream, ranges := text.Flatten()
	assert.Equal(t, "Revenue grew 10%.\n\nNet income was flat.", stream)
	assert.Equal(t, []Range{{0, 17}, {19, 39}}, ranges)
	assert.False(t, text.IsEmpty())
	assert.True(t, ExtractedText{Segments: []Segment{{Text: " \n"}}}.IsEmpty())
}

func TestRange_Overlaps(t *testing.T) {
	assert.True(t, Range{0, 10}.Overlaps(Range{9, 12}))
	assert.False(t, Range{0, 10}.Overlaps(Range{10, 12}))
	assert.Equal(t, 5, Range{3, 8}.Len())
}

func TestSearchFilter_Matches(t *testing.T) {
	meta := RecordMetadata{DocID: "acme-fy23", Company: "Acme", DocType: DocTypeFiling}

	assert.True(t, SearchFilter{}.Matches(meta))
	assert.True(t, SearchFilter{Company: "Acme"}.Matches(meta))
	assert.False(t, SearchFilter{Company: "Globex"}.Matches(meta))
	assert.False(t, SearchFilter{DocType: DocTypeTranscript}.Matches(meta))
	assert.True(t, SearchFilter{DocID: "acme-fy23", DocType: DocTypeFiling}.Matches(meta))
}

func TestQAState_IsTerminal(t *testing.T) {
	assert.True(t, QAAnswered.IsTerminal())
	assert.True(t, QAFailed.IsTerminal())
	assert.False(t, QARetrieved.IsTerminal())
	assert.False(t, QAIdle.IsTerminal())
}
