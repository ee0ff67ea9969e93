package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/logger"
	"github.com/custodia-labs/filings-qa/internal/watch"
)

var (
	watchDebounce time.Duration
	watchInitial  bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [doc-id...]",
	Short: "Re-index documents when their source files change",
	Long: `Watches the source files of the selected documents and runs the full
pipeline for a document whenever its file is written or replaced. Unchanged
content is detected by fingerprint, so saving without edits costs one
extraction and no embedding calls.

Stop with Ctrl+C.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet period before re-indexing")
	watchCmd.Flags().BoolVar(&watchInitial, "initial", true, "index the selected documents once before watching")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	app, err := newApp(appOptions{Need: needEmbedder})
	if err != nil {
		return err
	}
	defer app.Close()

	entries, err := app.Registry.Select(args, "")
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if watchInitial {
		ids := make([]string, len(entries))
		for i := range entries {
			ids[i] = entries[i].ID
		}
		report, err := app.Pipeline.Run(ctx, domain.StageFull, ids)
		if err != nil {
			return err
		}
		if err := printReport(cmd.OutOrStdout(), report); err != nil {
			logger.Warn("%v", err)
		}
	}

	w, err := watch.New(entries, watchDebounce)
	if err != nil {
		return err
	}
	defer w.Close()

	changes, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Watching %d documents in %d directories\n", len(entries), len(w.Dirs()))

	for docID := range changes {
		logger.Info("%s changed, re-indexing", docID)
		report, err := app.Pipeline.Run(ctx, domain.StageFull, []string{docID})
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return fmt.Errorf("re-index %s: %w", docID, err)
		}
		// Per-document failures keep the watcher running.
		if err := printReport(cmd.OutOrStdout(), report); err != nil {
			logger.Error("%v", err)
		}
	}
	return nil
}
