package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driven"
)

func TestNewLLMService_RequiresKey(t *testing.T) {
	_, err := NewLLMService(context.Background(), Config{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestConfigure(t *testing.T) {
	model := &genai.GenerativeModel{}
	configure(model, driven.GenerateOptions{
		System:      "Use the context.",
		MaxTokens:   256,
		Temperature: 0.2,
		StopWords:   []string{"END"},
	})

	require.NotNil(t, model.Temperature)
	assert.InDelta(t, 0.2, *model.Temperature, 1e-6)
	require.NotNil(t, model.MaxOutputTokens)
	assert.Equal(t, int32(256), *model.MaxOutputTokens)
	assert.Equal(t, []string{"END"}, model.StopSequences)
	require.NotNil(t, model.SystemInstruction)
	assert.Equal(t, genai.Text("Use the context."), model.SystemInstruction.Parts[0])
}

func TestConfigure_Minimal(t *testing.T) {
	model := &genai.GenerativeModel{}
	configure(model, driven.GenerateOptions{})
	assert.Nil(t, model.MaxOutputTokens)
	assert.Nil(t, model.SystemInstruction)
	require.NotNil(t, model.Temperature)
	assert.Zero(t, *model.Temperature)
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text("Net income "), genai.Text("was flat.")}},
	}}}
	got, err := responseText(resp)
	require.NoError(t, err)
	assert.Equal(t, "Net income was flat.", got)

	_, err = responseText(&genai.GenerateContentResponse{})
	assert.ErrorContains(t, err, "no candidates")

	_, err = responseText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}})
	assert.ErrorContains(t, err, "empty candidate")

	_, err = responseText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text("  ")}},
	}}})
	assert.ErrorContains(t, err, "no text")
}
