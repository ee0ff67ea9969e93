package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driving"
)

func TestParseDocumentURI(t *testing.T) {
	tests := []struct {
		uri, suffix string
		want        string
		ok          bool
	}{
		{"filings://documents/acme-fy23", "", "acme-fy23", true},
		{"filings://documents/acme-fy23/chunks", "/chunks", "acme-fy23", true},
		{"filings://documents/acme-fy23/chunks", "", "", false},
		{"filings://documents/acme-fy23", "/chunks", "", false},
		{"filings://documents//chunks", "/chunks", "", false},
		{"file://documents/acme-fy23", "", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.uri+tt.suffix, func(t *testing.T) {
			got, ok := parseDocumentURI(tt.uri, tt.suffix)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func readResource(t *testing.T, ports *Ports, uri string) (string, error) {
	t.Helper()
	res, err := connect(t, ports).ReadResource(context.Background(), &mcp.ReadResourceParams{URI: uri})
	if err != nil {
		return "", err
	}
	require.Len(t, res.Contents, 1)
	assert.Equal(t, "application/json", res.Contents[0].MIMEType)
	return res.Contents[0].Text, nil
}

func TestResource_Documents(t *testing.T) {
	t.Run("no registry", func(t *testing.T) {
		text, err := readResource(t, &Ports{}, "filings://documents")
		require.NoError(t, err)
		assert.Equal(t, "[]", text)
	})

	t.Run("lists manifest", func(t *testing.T) {
		text, err := readResource(t, &Ports{Registry: &mockRegistry{entries: entries()}}, "filings://documents")
		require.NoError(t, err)
		assert.Contains(t, text, `"doc_id": "acme-fy23"`)
		assert.Contains(t, text, "Q2 2024")
	})
}

func TestResource_Document(t *testing.T) {
	registry := &mockRegistry{entries: entries()}

	text, err := readResource(t, &Ports{Registry: registry}, "filings://documents/beta-q2")
	require.NoError(t, err)
	assert.Contains(t, text, `"doc_id": "beta-q2"`)
	assert.Contains(t, text, `"doc_type": "transcript"`)

	_, err = readResource(t, &Ports{Registry: registry}, "filings://documents/nope")
	assert.Error(t, err)

	_, err = readResource(t, &Ports{}, "filings://documents/beta-q2")
	assert.Error(t, err)
}

func TestResource_Chunks(t *testing.T) {
	const uri = "filings://documents/acme-fy23/chunks"
	chunked := driving.DocumentStatus{
		Entry: entries()[0],
		ChunkFile: &domain.ChunkFile{
			DocID:       "acme-fy23",
			ContentHash: "abc",
			Chunks: []domain.Chunk{{
				ID:    "acme-fy23#0",
				DocID: "acme-fy23",
				Text:  "Net income rose.",
				Span:  domain.SingleSpan(domain.PageMarker("2")),
			}},
		},
	}

	tests := []struct {
		name     string
		pipeline *mockPipelineService
		want     []string
		wantErr  bool
	}{
		{name: "no pipeline", wantErr: true},
		{name: "not chunked", pipeline: &mockPipelineService{statuses: []driving.DocumentStatus{{Entry: entries()[0]}}}, wantErr: true},
		{name: "storage failure", pipeline: &mockPipelineService{err: errors.New("disk gone")}, wantErr: true},
		{
			name:     "chunk file",
			pipeline: &mockPipelineService{statuses: []driving.DocumentStatus{chunked}},
			want:     []string{"Net income rose.", `"content_hash": "abc"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ports := &Ports{}
			if tt.pipeline != nil {
				ports.Pipeline = tt.pipeline
			}

			text, err := readResource(t, ports, uri)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, text, w)
			}
		})
	}
}
