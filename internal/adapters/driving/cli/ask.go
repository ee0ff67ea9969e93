package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/services"
)

const defaultWrapWidth = 80

// errInsufficientContext makes 'filings ask' exit non-zero without a
// second copy of the message.
var errInsufficientContext = errors.New("insufficient information to answer")

var (
	askCompany string
	askDocID   string
	askDocType string
	askTopK    int
	askJSON    bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the indexed filings",
	Long: `Embeds the question, retrieves the most similar chunks and asks the
language model to answer from those chunks only. Every answer lists the
chunks it was built from with their page or section span.

When nothing relevant is indexed the model is not called and the command
exits with an error.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Show the chunks a question would retrieve",
	Long:  `Runs retrieval only. No language model is called.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	for _, c := range []*cobra.Command{askCmd, searchCmd} {
		c.Flags().StringVar(&askCompany, "company", "", "only chunks from this company")
		c.Flags().StringVar(&askDocID, "doc", "", "only chunks from this document")
		c.Flags().StringVar(&askDocType, "type", "", "only chunks from this document type (filing or transcript)")
		c.Flags().IntVarP(&askTopK, "top-k", "k", 0, "chunks to retrieve (default from config)")
		c.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
		rootCmd.AddCommand(c)
	}
}

func askOptions(cfg domain.Config) (domain.AskOptions, error) {
	opts := domain.AskOptions{
		TopK: askTopK,
		Filter: domain.SearchFilter{
			Company: askCompany,
			DocID:   askDocID,
			DocType: domain.DocType(askDocType),
		},
	}
	if opts.TopK <= 0 {
		opts.TopK = cfg.Retrieval.TopK
	}
	if askDocType != "" && !opts.Filter.DocType.IsValid() {
		return opts, fmt.Errorf("%w: --type must be filing or transcript", domain.ErrInvalidInput)
	}
	return opts, nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	app, err := newApp(appOptions{Need: needLLM, Company: askCompany})
	if err != nil {
		return err
	}
	defer app.Close()

	opts, err := askOptions(app.Config)
	if err != nil {
		return err
	}

	answer, err := app.Answers.Answer(cmd.Context(), args[0], opts)
	if askJSON && answer != nil {
		if jsonErr := printJSON(cmd, answer); jsonErr != nil {
			return jsonErr
		}
	}
	if services.IsInsufficientContext(err) {
		if !askJSON {
			cmd.Println("Insufficient information in the indexed documents to answer this question.")
		}
		return errInsufficientContext
	}
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}
	if askJSON {
		return nil
	}

	cmd.Println(wrap(answer.Text, terminalWidth()))
	cmd.Println()
	cmd.Println("Sources:")
	for i, c := range answer.Citations {
		cmd.Printf("  [%d] %s %s (%.2f)\n", i+1, c.DocID, c.Span, c.Score)
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	app, err := newApp(appOptions{Need: needEmbedder, Company: askCompany})
	if err != nil {
		return err
	}
	defer app.Close()

	opts, err := askOptions(app.Config)
	if err != nil {
		return err
	}

	hits, err := app.Answers.Search(cmd.Context(), args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if askJSON {
		return printJSON(cmd, hits)
	}
	if len(hits) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	width := terminalWidth() - 6
	for i := range hits {
		h := &hits[i]
		cmd.Printf("  [%d] %s %s (%.2f)\n", i+1, h.Record.Metadata.DocID, h.Record.Metadata.Span, h.Score)
		cmd.Printf("%s\n\n", indent(wrap(snippet(h.Record.Text, 300), width), "      "))
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// terminalWidth returns the width of stdout, or defaultWrapWidth when
// stdout is not a terminal.
func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return defaultWrapWidth
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return defaultWrapWidth
	}
	return w
}

func wrap(text string, width int) string {
	if width < 20 {
		width = 20
	}
	return lipgloss.NewStyle().Width(width).Render(text)
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = prefix + strings.TrimRight(lines[i], " ")
	}
	return strings.Join(lines, "\n")
}

func snippet(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= limit {
		return text
	}
	return string(r[:limit]) + "..."
}
