package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
)

func TestEvalCmd_WritesJSONL(t *testing.T) {
	app, opts := testApp(t)
	app.Config.Retrieval.TopK = 4

	var gotIDs, gotTypes []string
	var gotTopK int
	app.Eval.(*fakeEval).EvaluateFunc = func(_ context.Context, ids, types []string, topK int) ([]domain.EvalResult, error) {
		gotIDs, gotTypes, gotTopK = ids, types, topK
		return []domain.EvalResult{
			{DocID: "acme-fy23", Question: "Revenue?", Expected: "$4.2B", Answer: "$4.2 billion", Grounded: true},
			{DocID: "acme-fy23", Question: "CFO?", Error: "insufficient context"},
		}, nil
	}

	out, err := execute(t, "eval", "acme-fy23", "--type", "numeric,factual")

	require.NoError(t, err)
	assert.Equal(t, needLLM, opts.Need)
	assert.Equal(t, []string{"acme-fy23"}, gotIDs)
	assert.Equal(t, []string{"numeric", "factual"}, gotTypes)
	assert.Equal(t, 4, gotTopK)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	var first domain.EvalResult
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "$4.2B", first.Expected)
	assert.True(t, first.Grounded)
}

func TestEvalCmd_OutFile(t *testing.T) {
	app, _ := testApp(t)
	app.Eval.(*fakeEval).EvaluateFunc = func(context.Context, []string, []string, int) ([]domain.EvalResult, error) {
		return []domain.EvalResult{{DocID: "a", Question: "q", Error: "failed"}}, nil
	}
	path := filepath.Join(t.TempDir(), "results.jsonl")

	out, err := execute(t, "eval", "--out", path, "-k", "2")

	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 1 results")
	assert.Contains(t, out, "(1 without an answer)")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())
	assert.Contains(t, scanner.Text(), `"question":"q"`)
}

func TestEvalCmd_AbortKeepsPartialResults(t *testing.T) {
	app, _ := testApp(t)
	app.Eval.(*fakeEval).EvaluateFunc = func(context.Context, []string, []string, int) ([]domain.EvalResult, error) {
		return []domain.EvalResult{{DocID: "a", Question: "q1"}}, domain.ErrLLMUnavailable
	}

	out, err := execute(t, "eval")

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Contains(t, err.Error(), "after 1 questions")
	assert.Contains(t, out, `"question":"q1"`)
}
