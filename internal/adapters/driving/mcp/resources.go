package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
)

const documentsURI = "filings://documents"

// resourceReader produces the JSON body of a resource about one document.
type resourceReader func(ctx context.Context, docID string) (any, error)

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         documentsURI,
		Name:        "documents",
		Description: "Documents listed in the manifest",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	templates := []struct {
		suffix, name, description string
		read                      resourceReader
	}{
		{"", "document", "Manifest entry of a document", s.readEntry},
		{"/chunks", "document-chunks", "Stored chunks of a document with their page or section spans", s.readChunks},
	}
	for _, t := range templates {
		s.server.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: documentsURI + "/{docId}" + t.suffix,
			Name:        t.name,
			Description: t.description,
			MIMEType:    "application/json",
		}, documentResource(t.suffix, t.read))
	}
}

// documentResource adapts read to a resource handler for URIs of the form
// filings://documents/{docId}<suffix>.
func documentResource(suffix string, read resourceReader) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		uri := req.Params.URI
		docID, ok := parseDocumentURI(uri, suffix)
		if !ok {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		v, err := read(ctx, docID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", uri, err)
		}
		return jsonResource(uri, v)
	}
}

func (s *Server) handleDocumentsResource(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	docs := []DocumentOutput{}
	if s.ports.Registry != nil {
		for _, e := range s.ports.Registry.List() {
			docs = append(docs, documentOutput(e))
		}
	}
	return jsonResource(req.Params.URI, docs)
}

func (s *Server) readEntry(_ context.Context, docID string) (any, error) {
	if s.ports.Registry == nil {
		return nil, domain.ErrNotFound
	}
	return s.ports.Registry.Get(docID)
}

func (s *Server) readChunks(ctx context.Context, docID string) (any, error) {
	if s.ports.Pipeline == nil {
		return nil, domain.ErrNotFound
	}
	statuses, err := s.ports.Pipeline.Status(ctx, []string{docID}, false)
	if err != nil {
		return nil, err
	}
	if len(statuses) == 0 || statuses[0].ChunkFile == nil {
		return nil, fmt.Errorf("%s is not chunked: %w", docID, domain.ErrNotFound)
	}
	return statuses[0].ChunkFile, nil
}

// parseDocumentURI returns the document ID of a filings://documents/{id}
// URI ending in suffix. IDs never contain a slash.
func parseDocumentURI(uri, suffix string) (string, bool) {
	rest, ok := strings.CutPrefix(uri, documentsURI+"/")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, suffix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
