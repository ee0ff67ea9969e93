package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/services"
	"github.com/custodia-labs/filings-qa/internal/versioning"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the indexed filings"`
	Company  string `json:"company,omitempty" jsonschema:"only chunks from this company"`
	DocID    string `json:"doc_id,omitempty" jsonschema:"only chunks from this document"`
	DocType  string `json:"doc_type,omitempty" jsonschema:"only chunks from this document type: filing or transcript"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of chunks to retrieve (default from configuration)"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer    string           `json:"answer"`
	Grounded  bool             `json:"grounded"`
	State     string           `json:"state"`
	Citations []CitationOutput `json:"citations"`

	// Insufficient is true when nothing relevant was retrieved and no
	// answer was generated.
	Insufficient bool `json:"insufficient,omitempty"`
}

// CitationOutput is one source of an answer.
type CitationOutput struct {
	ChunkID string  `json:"chunk_id"`
	DocID   string  `json:"doc_id"`
	Span    string  `json:"span"`
	Score   float64 `json:"score"`
}

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query   string `json:"query" jsonschema:"the text to find similar chunks for"`
	Company string `json:"company,omitempty" jsonschema:"only chunks from this company"`
	DocID   string `json:"doc_id,omitempty" jsonschema:"only chunks from this document"`
	DocType string `json:"doc_type,omitempty" jsonschema:"only chunks from this document type: filing or transcript"`
	TopK    int    `json:"top_k,omitempty" jsonschema:"number of chunks to retrieve (default from configuration)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single retrieved chunk.
type SearchResultOutput struct {
	ChunkID      string  `json:"chunk_id"`
	DocID        string  `json:"doc_id"`
	Company      string  `json:"company"`
	FiscalPeriod string  `json:"fiscal_period"`
	Span         string  `json:"span"`
	Score        float64 `json:"score"`
	Text         string  `json:"text"`
}

// ListDocumentsInput is the input schema for the list_documents tool.
type ListDocumentsInput struct {
	Company string `json:"company,omitempty" jsonschema:"only documents of this company"`
}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentOutput describes one manifest entry.
type DocumentOutput struct {
	DocID        string `json:"doc_id"`
	Company      string `json:"company"`
	FiscalPeriod string `json:"fiscal_period"`
	DocType      string `json:"doc_type"`
	Format       string `json:"format"`
}

// StatusInput is the input schema for the document_status tool.
type StatusInput struct {
	DocIDs []string `json:"doc_ids,omitempty" jsonschema:"documents to report (default all)"`
}

// StatusOutput is the output schema for the document_status tool.
type StatusOutput struct {
	Documents []StatusDocumentOutput `json:"documents"`
}

// StatusDocumentOutput is the stored state of one document.
type StatusDocumentOutput struct {
	DocID      string `json:"doc_id"`
	Chunks     int    `json:"chunks"`
	ChunkHash  string `json:"chunk_hash,omitempty"`
	IndexHash  string `json:"index_hash,omitempty"`
	Gaps       int    `json:"gaps"`
	NeedsEmbed bool   `json:"needs_embed"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the indexed company filings and earnings-call transcripts, with citations",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Retrieve the filing chunks most similar to a query, without generating an answer",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the documents in the manifest",
	}, s.handleListDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "document_status",
		Description: "Report whether documents are chunked and embedded",
	}, s.handleStatus)
}

// askOptions builds retrieval options. topK of zero leaves the
// configured default in place.
func askOptions(company, docID, docType string, topK int) (domain.AskOptions, error) {
	opts := domain.AskOptions{
		TopK: topK,
		Filter: domain.SearchFilter{
			Company: company,
			DocID:   docID,
			DocType: domain.DocType(docType),
		},
	}
	if docType != "" && !opts.Filter.DocType.IsValid() {
		return opts, fmt.Errorf("%w: doc_type must be filing or transcript", domain.ErrInvalidInput)
	}
	return opts, nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	opts, err := askOptions(input.Company, input.DocID, input.DocType, input.TopK)
	if err != nil {
		return nil, AskOutput{}, err
	}

	answer, err := s.ports.Answers.Answer(ctx, input.Question, opts)
	if services.IsInsufficientContext(err) {
		return nil, AskOutput{
			State:        string(domain.QAFailed),
			Citations:    []CitationOutput{},
			Insufficient: true,
		}, nil
	}
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:    answer.Text,
		Grounded:  answer.Grounded,
		State:     string(answer.State),
		Citations: make([]CitationOutput, len(answer.Citations)),
	}
	for i, c := range answer.Citations {
		output.Citations[i] = CitationOutput{
			ChunkID: c.ChunkID,
			DocID:   c.DocID,
			Span:    c.Span.String(),
			Score:   c.Score,
		}
	}
	return nil, output, nil
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts, err := askOptions(input.Company, input.DocID, input.DocType, input.TopK)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	hits, err := s.ports.Answers.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(hits)),
		Count:   len(hits),
	}
	for i := range hits {
		meta := hits[i].Record.Metadata
		output.Results[i] = SearchResultOutput{
			ChunkID:      hits[i].Record.ChunkID,
			DocID:        meta.DocID,
			Company:      meta.Company,
			FiscalPeriod: meta.FiscalPeriod,
			Span:         meta.Span.String(),
			Score:        hits[i].Score,
			Text:         hits[i].Record.Text,
		}
	}
	return nil, output, nil
}

// handleListDocuments handles the list_documents tool invocation.
func (s *Server) handleListDocuments(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	output := ListDocumentsOutput{Documents: []DocumentOutput{}}
	if s.ports.Registry == nil {
		return nil, output, nil
	}

	entries, err := s.ports.Registry.Select(nil, input.Company)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}
	for _, e := range entries {
		output.Documents = append(output.Documents, documentOutput(e))
	}
	output.Count = len(output.Documents)
	return nil, output, nil
}

// handleStatus handles the document_status tool invocation.
func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	output := StatusOutput{Documents: []StatusDocumentOutput{}}
	if s.ports.Pipeline == nil {
		return nil, output, nil
	}

	statuses, err := s.ports.Pipeline.Status(ctx, input.DocIDs, false)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	for i := range statuses {
		st := &statuses[i]
		doc := StatusDocumentOutput{DocID: st.Entry.ID, NeedsEmbed: st.NeedsEmbed}
		if st.ChunkFile != nil {
			doc.Chunks = len(st.ChunkFile.Chunks)
			doc.ChunkHash = versioning.Short(st.ChunkFile.ContentHash)
		}
		if st.Index != nil {
			doc.IndexHash = versioning.Short(st.Index.ContentHash)
			doc.Gaps = st.Index.Gaps
		}
		output.Documents = append(output.Documents, doc)
	}
	return nil, output, nil
}

func documentOutput(e domain.DocumentEntry) DocumentOutput {
	return DocumentOutput{
		DocID:        e.ID,
		Company:      e.Company,
		FiscalPeriod: e.FiscalPeriod,
		DocType:      string(e.DocType),
		Format:       string(e.Format),
	}
}
