package driving

import (
	"context"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
)

// AnswerService answers one question from the indexed documents.
type AnswerService interface {
	// Answer embeds the question, retrieves context and generates a grounded
	// answer. The returned Answer is non-nil even on failure and carries the
	// terminal state.
	Answer(ctx context.Context, question string, opts domain.AskOptions) (*domain.Answer, error)

	// Search runs retrieval only, without generation.
	Search(ctx context.Context, query string, opts domain.AskOptions) ([]domain.SearchHit, error)
}

// EvalService runs a document's evaluation questions through AnswerService.
type EvalService interface {
	// Evaluate answers every question of the selected documents whose type
	// is in types (all types when empty).
	Evaluate(ctx context.Context, docIDs []string, types []string, topK int) ([]domain.EvalResult, error)
}
