package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
)

// scriptedAnswers answers from a map and records the options it saw.
type scriptedAnswers struct {
	answers map[string]string
	errs    map[string]error
	seen    []domain.AskOptions
}

func (s *scriptedAnswers) Answer(_ context.Context, question string, opts domain.AskOptions) (*domain.Answer, error) {
	s.seen = append(s.seen, opts)
	if err := s.errs[question]; err != nil {
		return &domain.Answer{Question: question, State: domain.QAFailed}, err
	}
	return &domain.Answer{
		Question:  question,
		Text:      s.answers[question],
		State:     domain.QAAnswered,
		Grounded:  true,
		Citations: []domain.Citation{{ChunkID: opts.Filter.DocID + ":00000", DocID: opts.Filter.DocID}},
	}, nil
}

func (s *scriptedAnswers) Search(context.Context, string, domain.AskOptions) ([]domain.SearchHit, error) {
	return nil, nil
}

func writeQuestions(t *testing.T, path string, qs []domain.EvalQuestion) {
	t.Helper()
	data, err := json.Marshal(qs)
	require.NoError(t, err)
	writeFile(t, path, string(data))
}

func newEvalFixture(t *testing.T) (*Registry, string) {
	t.Helper()
	dir := t.TempDir()

	acme := entry("acme", "Acme")
	acme.QuestionsFile = filepath.Join(dir, "acme_questions.json")
	acme.EvalReferenceFile = filepath.Join(dir, "acme_reference.json")
	writeQuestions(t, acme.QuestionsFile, []domain.EvalQuestion{
		{Question: "What was revenue growth?", Type: "numeric"},
		{Question: "Who is the CEO?", Type: "entity", Answer: "Jane Doe"},
	})
	writeQuestions(t, acme.EvalReferenceFile, []domain.EvalQuestion{
		{Question: "What was revenue growth?", Answer: "10%"},
		{Question: "Who is the CEO?", Answer: "John Roe"},
	})

	beta := entry("beta", "Beta")

	registry, err := NewRegistry([]domain.DocumentEntry{acme, beta})
	require.NoError(t, err)
	return registry, dir
}

func TestEvaluate_AnswersEachQuestionAgainstItsDocument(t *testing.T) {
	registry, _ := newEvalFixture(t)
	answers := &scriptedAnswers{answers: map[string]string{
		"What was revenue growth?": "Revenue grew 10%.",
		"Who is the CEO?":          "Jane Doe.",
	}}

	results, err := NewEvalRunner(registry, answers).Evaluate(context.Background(), nil, nil, 3)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "acme", results[0].DocID)
	assert.Equal(t, "10%", results[0].Expected)
	assert.Equal(t, "Revenue grew 10%.", results[0].Answer)
	assert.True(t, results[0].Grounded)
	require.Len(t, results[0].Citations, 1)
	assert.Equal(t, "acme:00000", results[0].Citations[0].ChunkID)

	// A question's own answer wins over the reference file.
	assert.Equal(t, "Jane Doe", results[1].Expected)

	for _, opts := range answers.seen {
		assert.Equal(t, "acme", opts.Filter.DocID)
		assert.Equal(t, 3, opts.TopK)
	}
}

func TestEvaluate_FiltersByType(t *testing.T) {
	registry, _ := newEvalFixture(t)
	answers := &scriptedAnswers{}

	results, err := NewEvalRunner(registry, answers).Evaluate(context.Background(), []string{"acme"}, []string{"entity"}, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "entity", results[0].Type)
}

func TestEvaluate_RecordsPerQuestionFailures(t *testing.T) {
	registry, _ := newEvalFixture(t)
	answers := &scriptedAnswers{errs: map[string]error{
		"What was revenue growth?": fmt.Errorf("%w: timeout", domain.ErrGeneration),
	}}

	results, err := NewEvalRunner(registry, answers).Evaluate(context.Background(), nil, nil, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Contains(t, results[0].Error, "timeout")
	assert.False(t, results[0].Grounded)
	assert.Empty(t, results[1].Error)
}

func TestEvaluate_FatalErrorAborts(t *testing.T) {
	registry, _ := newEvalFixture(t)
	answers := &scriptedAnswers{errs: map[string]error{
		"What was revenue growth?": fmt.Errorf("%w: model mismatch", domain.ErrConfiguration),
	}}

	results, err := NewEvalRunner(registry, answers).Evaluate(context.Background(), nil, nil, 0)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Empty(t, results)
}

func TestEvaluate_BadQuestionsFile(t *testing.T) {
	registry, dir := newEvalFixture(t)
	writeFile(t, filepath.Join(dir, "acme_questions.json"), "{not json")

	_, err := NewEvalRunner(registry, &scriptedAnswers{}).Evaluate(context.Background(), nil, nil, 0)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "acme")
}

func TestEvaluate_UnknownDocument(t *testing.T) {
	registry, _ := newEvalFixture(t)
	_, err := NewEvalRunner(registry, &scriptedAnswers{}).Evaluate(context.Background(), []string{"gamma"}, nil, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWriteJSONL(t *testing.T) {
	var buf bytes.Buffer
	err := WriteJSONL(&buf, []domain.EvalResult{
		{DocID: "acme", Question: "q1", Answer: "a1"},
		{DocID: "beta", Question: "q2", Error: "boom"},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var got domain.EvalResult
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &got))
	assert.Equal(t, "beta", got.DocID)
	assert.Equal(t, "boom", got.Error)
}
