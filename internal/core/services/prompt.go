package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
)

// DefaultAnswerPrompt is used when no PromptStore is configured or the
// stored template is unusable.
const DefaultAnswerPrompt = `You are a helpful assistant answering questions about a company document.
Use ONLY the information in the context below. If the answer is not there,
say you don't know and do not make things up.

Context:
%s
Question: %s

Answer:
`

// FormatContext renders hits as numbered blocks, each headed by the
// citation it supports.
func FormatContext(hits []domain.SearchHit) string {
	var b strings.Builder
	for i := range hits {
		fmt.Fprintf(&b, "[%d] %s\n%s\n\n", i+1, citationHeader(&hits[i]), hits[i].Record.Text)
	}
	return b.String()
}

// CheckAnswerTemplate reports why template cannot frame an answer: it
// needs exactly two %s verbs, context first and question second, and no
// other formatting verbs.
func CheckAnswerTemplate(template string) error {
	if n := strings.Count(template, "%s"); n != 2 {
		return fmt.Errorf("%w: answer template needs 2 %%s placeholders, found %d", domain.ErrInvalidInput, n)
	}
	if strings.Count(template, "%") != 2 {
		return fmt.Errorf("%w: answer template may only contain the two %%s placeholders", domain.ErrInvalidInput)
	}
	return nil
}

// BuildPrompt fills template with the context blocks and the question.
// A template CheckAnswerTemplate rejects falls back to DefaultAnswerPrompt.
func BuildPrompt(template, question string, hits []domain.SearchHit) string {
	if CheckAnswerTemplate(template) != nil {
		template = DefaultAnswerPrompt
	}
	return fmt.Sprintf(template, FormatContext(hits), question)
}

func citationHeader(hit *domain.SearchHit) string {
	docID := hit.Record.Metadata.DocID
	span := hit.Record.Metadata.Span.String()
	if span == "" {
		return docID
	}
	return docID + " | " + span
}

// CitationsFor returns one citation per hit, in prompt order.
func CitationsFor(hits []domain.SearchHit) []domain.Citation {
	out := make([]domain.Citation, len(hits))
	for i := range hits {
		out[i] = domain.Citation{
			ChunkID: hits[i].Record.ChunkID,
			DocID:   hits[i].Record.Metadata.DocID,
			Span:    hits[i].Record.Metadata.Span,
			Score:   hits[i].Score,
		}
	}
	return out
}
