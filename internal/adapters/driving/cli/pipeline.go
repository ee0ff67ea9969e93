package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driving"
)

var (
	chunkOutDir string
	runStageArg string
	runCompany  string
)

var chunkCmd = &cobra.Command{
	Use:   "chunk [doc-id...]",
	Short: "Extract and chunk documents",
	Long: `Extracts each document's text and splits it with the configured strategy.
A document is rechunked only when its content or the strategy changed.

With no arguments every document in the manifest is chunked.`,
	RunE: runChunk,
}

var embedCmd = &cobra.Command{
	Use:   "embed [doc-id...]",
	Short: "Embed chunked documents into the vector store",
	Long: `Embeds the stored chunk file of each selected document whose index is
not current. Stale vectors from earlier versions are removed before the new
ones are written. Run 'filings chunk' first, or use 'filings run'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, domain.StageEmbed, args, "")
	},
}

var runCmd = &cobra.Command{
	Use:   "run [doc-id...]",
	Short: "Run the pipeline up to a stage",
	Long: `Runs the pipeline for the selected documents up to --stage:

  chunk     extract and chunk only
  embed     embed the stored chunk files
  retrieve  check that the index serves the stored chunk files
  full      chunk, then embed`,
	RunE: func(cmd *cobra.Command, args []string) error {
		stage, err := domain.ParseStage(runStageArg)
		if err != nil {
			return err
		}
		return runStage(cmd, stage, args, runCompany)
	},
}

func init() {
	chunkCmd.Flags().StringVarP(&chunkOutDir, "out", "o", "", "also write chunk files as JSON to this directory")
	runCmd.Flags().StringVar(&runStageArg, "stage", string(domain.StageFull), "last stage to run: chunk, embed, retrieve or full")
	runCmd.Flags().StringVar(&runCompany, "company", "", "only documents of this company")

	rootCmd.AddCommand(chunkCmd)
	rootCmd.AddCommand(embedCmd)
	rootCmd.AddCommand(runCmd)
}

func runChunk(cmd *cobra.Command, args []string) error {
	app, err := newApp(appOptions{Need: needStorage})
	if err != nil {
		return err
	}
	defer app.Close()

	report, err := runPipeline(cmd, app, domain.StageChunk, args, "")
	if err != nil {
		return err
	}
	reportErr := printReport(cmd.OutOrStdout(), report)
	if chunkOutDir == "" {
		return reportErr
	}

	if err := os.MkdirAll(chunkOutDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	for i := range report.Documents {
		d := &report.Documents[i]
		if d.Err != nil {
			continue
		}
		file, err := app.Chunks.GetChunkFile(cmd.Context(), d.DocID)
		if err != nil {
			return fmt.Errorf("load chunks for %s: %w", d.DocID, err)
		}
		path := filepath.Join(chunkOutDir, d.DocID+".json")
		if err := writeChunkFile(path, file); err != nil {
			return err
		}
		cmd.Printf("Wrote %s\n", path)
	}
	return reportErr
}

func writeChunkFile(path string, file *domain.ChunkFile) error {
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal chunk file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// runStage runs one pipeline stage for the documents named in args.
func runStage(cmd *cobra.Command, stage domain.Stage, args []string, company string) error {
	need := needStorage
	if stage.Includes(domain.StageEmbed) {
		need = needEmbedder
	}

	app, err := newApp(appOptions{Need: need, Company: company})
	if err != nil {
		return err
	}
	defer app.Close()

	report, err := runPipeline(cmd, app, stage, args, company)
	if err != nil {
		return err
	}
	return printReport(cmd.OutOrStdout(), report)
}

func runPipeline(cmd *cobra.Command, app *App, stage domain.Stage, args []string, company string) (*driving.RunReport, error) {
	entries, err := app.Registry.Select(args, company)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(entries))
	for i := range entries {
		ids[i] = entries[i].ID
	}

	report, err := app.Pipeline.Run(cmd.Context(), stage, ids)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", stage, err)
	}
	return report, nil
}

// printReport writes one line per document and returns an error when any
// document failed, so the process exits non-zero.
func printReport(w io.Writer, report *driving.RunReport) error {
	for i := range report.Documents {
		d := &report.Documents[i]
		if d.Err != nil {
			fmt.Fprintf(w, "  FAIL  %-24s %v\n", d.DocID, d.Err)
			continue
		}

		line := fmt.Sprintf("  ok    %-24s %d chunks", d.DocID, d.Chunks)
		if d.Rechunked {
			line += " (rechunked)"
		}
		if d.Dropped > 0 {
			line += fmt.Sprintf(", %d ranges dropped", d.Dropped)
		}
		if e := d.Embed; e != nil {
			switch {
			case e.Skipped:
				line += ", index current"
			default:
				line += fmt.Sprintf(", %d embedded", len(e.Records))
				if len(e.Gaps) > 0 {
					line += fmt.Sprintf(", %d gaps", len(e.Gaps))
				}
				if e.Evicted > 0 {
					line += fmt.Sprintf(", %d evicted", e.Evicted)
				}
			}
		}
		fmt.Fprintf(w, "%s [%s]\n", line, d.Duration.Round(time.Millisecond))
	}

	failed := report.Failed()
	fmt.Fprintf(w, "\n%s: %d documents, %d failed in %s (run %s)\n",
		report.Stage, len(report.Documents), len(failed), report.Duration.Round(time.Millisecond), report.RunID)

	if len(failed) > 0 {
		errs := make([]error, len(failed))
		for i := range failed {
			errs[i] = failed[i].Err
		}
		return fmt.Errorf("%d of %d documents failed: %w", len(failed), len(report.Documents), errors.Join(errs...))
	}
	return nil
}
