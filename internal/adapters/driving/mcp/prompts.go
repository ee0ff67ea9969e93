package mcp

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
)

func (s *Server) registerPrompts() {
	s.server.AddPrompt(&mcp.Prompt{
		Name:        "ask_filing",
		Title:       "Ask about a company",
		Description: "Answer a question about one company from its filings, citing pages and sections",
		Arguments: []*mcp.PromptArgument{
			{Name: "company", Description: "company as written in the manifest", Required: true},
			{Name: "question", Description: "what to find out", Required: true},
		},
	}, s.handleAskPrompt)

	s.server.AddPrompt(&mcp.Prompt{
		Name:        "compare_periods",
		Title:       "Compare reporting periods",
		Description: "Compare one metric across a company's fiscal periods using each period's documents",
		Arguments: []*mcp.PromptArgument{
			{Name: "company", Description: "company as written in the manifest", Required: true},
			{Name: "metric", Description: "what to compare, e.g. revenue or headcount", Required: true},
			{Name: "periods", Description: "comma separated fiscal periods, default all"},
		},
	}, s.handleComparePrompt)
}

func (s *Server) handleAskPrompt(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args, err := promptArgs(req, "company", "question")
	if err != nil {
		return nil, err
	}
	text := fmt.Sprintf(`Use the ask tool with company %q to answer:

%s

Quote figures exactly as the filing states them and name the page or
section of every citation. If ask reports insufficient context, say so
instead of guessing.`, args["company"], args["question"])
	return userPrompt("Question about "+args["company"], text), nil
}

func (s *Server) handleComparePrompt(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args, err := promptArgs(req, "company", "metric")
	if err != nil {
		return nil, err
	}
	docs := s.periodDocuments(args["company"], splitList(args["periods"]))
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no documents for %s in the requested periods", domain.ErrNotFound, args["company"])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Compare %s for %s across these documents:\n\n", args["metric"], args["company"])
	for _, d := range docs {
		fmt.Fprintf(&b, "- %s (%s, %s)\n", d.ID, d.FiscalPeriod, d.DocType)
	}
	b.WriteString(`
For each document call ask with its doc_id so every figure comes from
that period alone. Present the results as a table with one row per period
and cite the page or section next to each value.`)
	return userPrompt(args["metric"]+" for "+args["company"], b.String()), nil
}

// periodDocuments returns the company's documents, restricted to periods
// when any are given, ordered by fiscal period.
func (s *Server) periodDocuments(company string, periods []string) []domain.DocumentEntry {
	if s.ports.Registry == nil {
		return nil
	}
	var docs []domain.DocumentEntry
	for _, e := range s.ports.Registry.List() {
		if !strings.EqualFold(e.Company, company) {
			continue
		}
		if len(periods) > 0 && !slices.Contains(periods, e.FiscalPeriod) {
			continue
		}
		docs = append(docs, e)
	}
	slices.SortStableFunc(docs, func(a, b domain.DocumentEntry) int {
		return strings.Compare(a.FiscalPeriod, b.FiscalPeriod)
	})
	return docs
}

// promptArgs returns the request arguments, failing when a required one
// is blank.
func promptArgs(req *mcp.GetPromptRequest, required ...string) (map[string]string, error) {
	args := map[string]string{}
	if req != nil && req.Params != nil {
		for k, v := range req.Params.Arguments {
			args[k] = strings.TrimSpace(v)
		}
	}
	for _, name := range required {
		if args[name] == "" {
			return nil, fmt.Errorf("%w: %s is required", domain.ErrInvalidInput, name)
		}
	}
	return args, nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{{
			Role:    "user",
			Content: &mcp.TextContent{Text: text},
		}},
	}
}
