package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/filings-qa/internal/core/services"
)

var (
	evalTypes []string
	evalTopK  int
	evalOut   string
)

var evalCmd = &cobra.Command{
	Use:   "eval [doc-id...]",
	Short: "Answer each document's evaluation questions",
	Long: `Runs every question in the documents' questions files through the
answer pipeline, restricted to the question's own document, and writes one
JSON line per question with the expected answer, the generated answer and
the retrieved contexts. Results are not scored.`,
	RunE: runEval,
}

func init() {
	evalCmd.Flags().StringSliceVar(&evalTypes, "type", nil, "only questions of these types")
	evalCmd.Flags().IntVarP(&evalTopK, "top-k", "k", 0, "chunks to retrieve (default from config)")
	evalCmd.Flags().StringVarP(&evalOut, "out", "o", "", "write JSONL here instead of stdout")
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	app, err := newApp(appOptions{Need: needLLM})
	if err != nil {
		return err
	}
	defer app.Close()

	topK := evalTopK
	if topK <= 0 {
		topK = app.Config.Retrieval.TopK
	}

	results, runErr := app.Eval.Evaluate(cmd.Context(), args, evalTypes, topK)

	var w io.Writer = cmd.OutOrStdout()
	if evalOut != "" {
		f, err := os.Create(evalOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", evalOut, err)
		}
		defer f.Close()
		w = f
	}
	// Partial results are still written when the run aborts.
	if err := services.WriteJSONL(w, results); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("eval failed after %d questions: %w", len(results), runErr)
	}

	failed := 0
	for i := range results {
		if results[i].Error != "" {
			failed++
		}
	}
	if evalOut != "" {
		cmd.Printf("Wrote %d results to %s (%d without an answer)\n", len(results), evalOut, failed)
	}
	return nil
}
