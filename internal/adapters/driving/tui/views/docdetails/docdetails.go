// Package docdetails shows everything known about one document: its
// manifest entry, stored chunk file and index record.
package docdetails

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/filings-qa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/filings-qa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/filings-qa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driving"
)

var keys = keymap.DefaultKeyMap()

const timeLayout = "2006-01-02 15:04:05"

// field is one label/value row. Empty values render as "-".
type field struct {
	label, value string
}

// section is a heading and its rows. A section without rows shows empty.
type section struct {
	heading string
	fields  []field
	empty   string
}

// View is the document details view.
type View struct {
	styles   *styles.Styles
	pipeline driving.PipelineService
	ctx      context.Context

	status       *driving.DocumentStatus
	verified     bool
	scrollOffset int
	width        int
	height       int
	err          error
}

// NewView creates the view. pipeline is only needed for the verify action
// and may be nil.
func NewView(s *styles.Styles, pipeline driving.PipelineService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:   s,
		pipeline: pipeline,
		ctx:      context.Background(),
		width:    80,
		height:   24,
	}
}

// WithContext sets the context for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// SetStatus sets the document to display and clears any previous result.
func (v *View) SetStatus(st driving.DocumentStatus) {
	v.status = &st
	v.verified = false
	v.scrollOffset = 0
	v.err = nil
}

// Init implements the view lifecycle; details need no loading.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles messages for the details view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)

	case tea.KeyMsg:
		return v, v.handleKey(msg)

	case messages.DocumentVerified:
		// A verify started for a previous document arrives late.
		if v.status == nil || msg.DocID != v.status.Entry.ID {
			break
		}
		v.err = msg.Err
		if msg.Err == nil && msg.Status != nil {
			v.status = msg.Status
			v.verified = true
		}

	case messages.ErrorOccurred:
		v.err = msg.Err
	}
	return v, nil
}

func (v *View) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Up):
		v.scrollTo(v.scrollOffset - 1)
	case key.Matches(msg, keys.Down):
		v.scrollTo(v.scrollOffset + 1)
	case key.Matches(msg, keys.Top):
		v.scrollTo(0)
	case key.Matches(msg, keys.Bottom):
		v.scrollTo(v.maxScrollOffset())
	case key.Matches(msg, keys.Verify):
		return v.verify()
	case key.Matches(msg, keys.Back):
		return func() tea.Msg { return messages.ViewChanged{View: messages.ViewDocuments} }
	}
	return nil
}

// verify re-reads the stored chunk file and checks its fingerprint.
func (v *View) verify() tea.Cmd {
	if v.status == nil || v.pipeline == nil {
		return nil
	}
	docID := v.status.Entry.ID
	return func() tea.Msg {
		statuses, err := v.pipeline.Status(v.ctx, []string{docID}, true)
		if err != nil {
			return messages.DocumentVerified{DocID: docID, Err: err}
		}
		for i := range statuses {
			if statuses[i].Entry.ID == docID {
				return messages.DocumentVerified{DocID: docID, Status: &statuses[i]}
			}
		}
		return messages.DocumentVerified{DocID: docID, Err: fmt.Errorf("%s: %w", docID, domain.ErrNotFound)}
	}
}

func (v *View) scrollTo(offset int) {
	v.scrollOffset = max(min(offset, v.maxScrollOffset()), 0)
}

// visibleLines is the body height left after the title, rule and footer.
func (v *View) visibleLines() int {
	return max(v.height-6, 1)
}

func (v *View) maxScrollOffset() int {
	return max(len(v.lines())-v.visibleLines(), 0)
}

// sections describes the selected document.
func (v *View) sections() []section {
	st := v.status
	e := st.Entry

	manifest := section{heading: "Manifest", fields: []field{
		{"ID", e.ID},
		{"Company", e.Company},
		{"Period", e.FiscalPeriod},
		{"Type", e.DocType.String()},
		{"Format", e.Format.String()},
		{"Source", e.SourcePath},
	}}
	if e.QuestionsFile != "" {
		manifest.fields = append(manifest.fields, field{"Questions", e.QuestionsFile})
	}
	if e.EvalReferenceFile != "" {
		manifest.fields = append(manifest.fields, field{"Reference", e.EvalReferenceFile})
	}

	chunks := section{heading: "Chunks", empty: "not chunked"}
	if cf := st.ChunkFile; cf != nil {
		chunks.fields = []field{
			{"Count", strconv.Itoa(len(cf.Chunks))},
			{"Strategy", cf.Strategy.String()},
			{"Hash", cf.ContentHash},
			{"Version", cf.Version},
		}
		if !cf.CreatedAt.IsZero() {
			chunks.fields = append(chunks.fields, field{"Created", cf.CreatedAt.Format(timeLayout)})
		}
		if len(cf.Dropped) > 0 {
			chunks.fields = append(chunks.fields, field{"Dropped",
				fmt.Sprintf("%d ranges (%d runes)", len(cf.Dropped), cf.DroppedRunes())})
		}
	}

	index := section{heading: "Index", empty: "not embedded"}
	if idx := st.Index; idx != nil {
		index.fields = []field{
			{"Model", idx.EmbedModel},
			{"Dimensions", strconv.Itoa(idx.Dimensions)},
			{"Records", strconv.Itoa(idx.Records)},
			{"Gaps", strconv.Itoa(idx.Gaps)},
			{"Hash", idx.ContentHash},
		}
	}

	summary := section{fields: []field{{"State", st.State()}}}
	switch {
	case st.VerifyError != nil:
		summary.fields = append(summary.fields, field{"Verify", st.VerifyError.Error()})
	case v.verified:
		summary.fields = append(summary.fields, field{"Verify", "fingerprint ok"})
	}

	return []section{manifest, chunks, index, summary}
}

// lines flattens the sections into scrollable rows.
func (v *View) lines() []string {
	if v.status == nil {
		return nil
	}
	var out []string
	for i, s := range v.sections() {
		if i > 0 {
			out = append(out, "")
		}
		if s.heading != "" {
			out = append(out, s.heading+":")
		}
		if len(s.fields) == 0 {
			out = append(out, "  "+s.empty)
		}
		for _, f := range s.fields {
			out = append(out, formatField(f.label, f.value))
		}
	}
	return out
}

func formatField(label, value string) string {
	return fmt.Sprintf("  %-12s %s", label+":", orDash(value))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// View renders the details view.
func (v *View) View() string {
	title := "Document Details"
	if v.status != nil {
		title += " - " + v.status.Entry.ID
	}
	parts := []string{
		v.styles.Title.Render(title),
		strings.Repeat("─", max(min(v.width-4, 60), 0)),
		"",
	}

	switch {
	case v.err != nil:
		parts = append(parts, v.styles.Error.Render("Error: "+v.err.Error()))
	case v.status == nil:
		parts = append(parts, v.styles.Muted.Render("No document selected"))
	default:
		parts = append(parts, v.renderBody())
	}

	parts = append(parts, "", v.renderHelp())
	return strings.Join(parts, "\n")
}

func (v *View) renderBody() string {
	lines := v.lines()
	rows := v.visibleLines()
	start := min(v.scrollOffset, len(lines))
	end := min(start+rows, len(lines))

	rendered := make([]string, 0, end-start+2)
	for _, line := range lines[start:end] {
		rendered = append(rendered, v.renderLine(line))
	}
	if len(lines) > rows {
		rendered = append(rendered, "", v.styles.Muted.Render(
			fmt.Sprintf("  [Line %d-%d of %d]", start+1, end, len(lines))))
	}
	return strings.Join(rendered, "\n")
}

// renderLine styles headings, labels and the state value.
func (v *View) renderLine(line string) string {
	if !strings.HasPrefix(line, " ") && strings.HasSuffix(line, ":") {
		return v.styles.Subtitle.Render(line)
	}
	label, value, ok := strings.Cut(line, ": ")
	if !ok {
		return v.styles.Muted.Render(line)
	}
	style := v.styles.Normal
	if strings.TrimSpace(label) == "State" {
		style = v.styles.IndexState(strings.TrimSpace(value))
	}
	return v.styles.Muted.Render(label+":") + " " + style.Render(value)
}

func (v *View) renderHelp() string {
	bindings := []key.Binding{keys.Up, keys.Down}
	if v.pipeline != nil {
		bindings = append(bindings, keys.Verify)
	}
	bindings = append(bindings, keys.Back)
	return v.styles.Help.Render(keymap.Footer(bindings...))
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.scrollTo(v.scrollOffset)
}

// Status returns the displayed document.
func (v *View) Status() *driving.DocumentStatus {
	return v.status
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
