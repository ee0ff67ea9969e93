package mcp

import (
	"context"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driving"
)

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	answer *domain.Answer
	hits   []domain.SearchHit
	err    error

	lastOpts domain.AskOptions
}

func (m *mockAnswerService) Answer(_ context.Context, question string, opts domain.AskOptions) (*domain.Answer, error) {
	m.lastOpts = opts
	if m.answer == nil {
		return &domain.Answer{Question: question, State: domain.QAFailed}, m.err
	}
	return m.answer, m.err
}

func (m *mockAnswerService) Search(_ context.Context, _ string, opts domain.AskOptions) ([]domain.SearchHit, error) {
	m.lastOpts = opts
	return m.hits, m.err
}

// mockRegistry is a mock implementation of driving.DocumentRegistry.
type mockRegistry struct {
	entries []domain.DocumentEntry
	err     error
}

func (m *mockRegistry) Get(docID string) (domain.DocumentEntry, error) {
	for _, e := range m.entries {
		if e.ID == docID {
			return e, nil
		}
	}
	return domain.DocumentEntry{}, domain.ErrNotFound
}

func (m *mockRegistry) List() []domain.DocumentEntry {
	return m.entries
}

func (m *mockRegistry) Select(_ []string, company string) ([]domain.DocumentEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.DocumentEntry
	for _, e := range m.entries {
		if company == "" || e.Company == company {
			out = append(out, e)
		}
	}
	return out, nil
}

// mockPipelineService is a mock implementation of driving.PipelineService.
type mockPipelineService struct {
	statuses []driving.DocumentStatus
	err      error
}

func (m *mockPipelineService) Run(_ context.Context, stage domain.Stage, _ []string) (*driving.RunReport, error) {
	return &driving.RunReport{Stage: stage}, m.err
}

func (m *mockPipelineService) Status(_ context.Context, _ []string, _ bool) ([]driving.DocumentStatus, error) {
	return m.statuses, m.err
}

func entries() []domain.DocumentEntry {
	return []domain.DocumentEntry{
		{ID: "acme-fy23", Company: "Acme", FiscalPeriod: "FY2023", DocType: domain.DocTypeFiling, Format: domain.FormatPlaintext},
		{ID: "beta-q2", Company: "Beta", FiscalPeriod: "Q2 2024", DocType: domain.DocTypeTranscript, Format: domain.FormatDocx},
	}
}
