package cli

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/filings-qa/internal/adapters/driving/tui"
)

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface for filings.

The TUI asks questions against the indexed filings, shows the cited
sources of each answer, browses the manifest with per-document index
state and pages through stored chunks.

The --company, --doc, --type and --top-k flags scope every question
asked in the session.

Controls:
  ↑/k, ↓/j - Navigate
  Enter    - Ask / Select
  Tab      - Switch between ask and search
  Esc      - Back / Cancel
  ?        - Toggle help
  q        - Quit`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().StringVar(&askCompany, "company", "", "only chunks from this company")
	tuiCmd.Flags().StringVar(&askDocID, "doc", "", "only chunks from this document")
	tuiCmd.Flags().StringVar(&askDocType, "type", "", "only chunks from this document type (filing or transcript)")
	tuiCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "chunks to retrieve (default from config)")
	rootCmd.AddCommand(tuiCmd)
}

// runProgram runs the bubbletea program. Tests replace it.
var runProgram = func(ctx context.Context, model tea.Model) error {
	_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

func runTUI(cmd *cobra.Command, _ []string) error {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	// The LLM is optional here as in the MCP server: search and the
	// document views work without it.
	app, err := newApp(appOptions{Need: needEmbedder, Company: askCompany})
	if err != nil {
		return err
	}
	defer app.Close()

	opts, err := askOptions(app.Config)
	if err != nil {
		return err
	}

	ports := tui.NewPorts(app.Answers, app.Registry, app.Pipeline)
	model, err := tui.NewApp(ports)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	model.WithContext(cmd.Context()).WithAskOptions(opts)

	if err := runProgram(cmd.Context(), model); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
