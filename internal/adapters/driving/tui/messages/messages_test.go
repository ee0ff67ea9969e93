package messages

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driving"
)

func TestViewType_String(t *testing.T) {
	tests := []struct {
		name     string
		view     ViewType
		expected string
	}{
		{"ViewMenu", ViewMenu, "menu"},
		{"ViewAsk", ViewAsk, "ask"},
		{"ViewDocuments", ViewDocuments, "documents"},
		{"ViewDocDetails", ViewDocDetails, "doc_details"},
		{"ViewChunks", ViewChunks, "chunks"},
		{"ViewHelp", ViewHelp, "help"},
		{"UnknownView", ViewType(99), "unknown"},
		{"NegativeView", ViewType(-1), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.view.String())
		})
	}
}

func TestViewType_StartsAtMenu(t *testing.T) {
	var zero ViewType
	assert.Equal(t, ViewMenu, zero)
}

func TestAnswerCompleted_KeepsFailedAnswer(t *testing.T) {
	ans := &domain.Answer{Question: "revenue?", State: domain.QAFailed}
	msg := AnswerCompleted{Question: "revenue?", Answer: ans, Err: domain.ErrNoGroundedContext}

	require.NotNil(t, msg.Answer)
	assert.True(t, msg.Answer.State.IsTerminal())
	assert.True(t, errors.Is(msg.Err, domain.ErrRetrieval))
}

func TestRebuildCompleted_FailedDocuments(t *testing.T) {
	report := &driving.RunReport{
		Stage: domain.StageFull,
		Documents: []driving.DocumentResult{
			{DocID: "acme-fy23"},
			{DocID: "acme-q2", Err: errors.New("boom")},
		},
	}
	msg := RebuildCompleted{DocID: "acme-q2", Report: report}

	failed := msg.Report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "acme-q2", failed[0].DocID)
}
