package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driving"
	"github.com/custodia-labs/filings-qa/internal/logger"
)

// Ensure EvalRunner implements the interface.
var _ driving.EvalService = (*EvalRunner)(nil)

// EvalRunner answers each document's evaluation questions and records the
// result next to the reference answer. It does not score.
type EvalRunner struct {
	registry driving.DocumentRegistry
	answers  driving.AnswerService
}

// NewEvalRunner creates an evaluation runner.
func NewEvalRunner(registry driving.DocumentRegistry, answers driving.AnswerService) *EvalRunner {
	return &EvalRunner{registry: registry, answers: answers}
}

// Evaluate runs every matching question of the selected documents. Each
// question is restricted to its own document. Per-question failures are
// recorded in the result; configuration errors abort.
func (r *EvalRunner) Evaluate(ctx context.Context, docIDs []string, types []string, topK int) ([]domain.EvalResult, error) {
	entries, err := r.registry.Select(docIDs, "")
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}

	var results []domain.EvalResult
	for _, entry := range entries {
		if entry.QuestionsFile == "" {
			logger.Debug("%s has no questions file, skipping", entry.ID)
			continue
		}
		questions, err := LoadQuestions(entry.QuestionsFile)
		if err != nil {
			return results, fmt.Errorf("%s: %w", entry.ID, err)
		}
		if entry.EvalReferenceFile != "" {
			refs, err := LoadQuestions(entry.EvalReferenceFile)
			if err != nil {
				return results, fmt.Errorf("%s: %w", entry.ID, err)
			}
			fillExpected(questions, refs)
		}

		for _, q := range questions {
			if len(wanted) > 0 && !wanted[q.Type] {
				continue
			}
			if err := ctx.Err(); err != nil {
				return results, err
			}

			opts := domain.AskOptions{TopK: topK, Filter: domain.SearchFilter{DocID: entry.ID}}
			ans, err := r.answers.Answer(ctx, q.Question, opts)
			if domain.IsFatal(err) {
				return results, err
			}
			results = append(results, evalResult(entry.ID, q, ans, err))
		}
	}
	return results, nil
}

func evalResult(docID string, q domain.EvalQuestion, ans *domain.Answer, err error) domain.EvalResult {
	res := domain.EvalResult{
		DocID:    docID,
		Question: q.Question,
		Type:     q.Type,
		Expected: q.Answer,
	}
	if ans != nil {
		res.Answer = ans.Text
		res.Citations = ans.Citations
		res.Contexts = ans.Contexts
		res.Grounded = ans.Grounded
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// LoadQuestions reads a JSON list of evaluation questions.
func LoadQuestions(path string) ([]domain.EvalQuestion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read questions: %v", domain.ErrConfiguration, err)
	}
	var questions []domain.EvalQuestion
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("%w: parse questions %s: %v", domain.ErrConfiguration, path, err)
	}
	return questions, nil
}

// fillExpected copies reference answers onto questions that lack one.
func fillExpected(questions, refs []domain.EvalQuestion) {
	byQuestion := make(map[string]string, len(refs))
	for _, r := range refs {
		byQuestion[r.Question] = r.Answer
	}
	for i := range questions {
		if questions[i].Answer == "" {
			questions[i].Answer = byQuestion[questions[i].Question]
		}
	}
}

// WriteJSONL writes one JSON object per result.
func WriteJSONL(w io.Writer, results []domain.EvalResult) error {
	enc := json.NewEncoder(w)
	for i := range results {
		if err := enc.Encode(&results[i]); err != nil {
			return fmt.Errorf("write result %d: %w", i, err)
		}
	}
	return nil
}
