// Package documents lists the manifest with each document's stored chunk
// and index state, and offers per-document actions.
package documents

import (
	"context"
	"errors"
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

// ErrNoRegistry indicates the view was built without a document registry.
var ErrNoRegistry = errors.New("document registry not available")

// ErrNoPipeline indicates an action needs the pipeline service.
var ErrNoPipeline = errors.New("pipeline service not available")

// chrome is the number of rows taken by everything except the table body.
const chrome = 9

// action is one entry of the per-document menu. A nil run closes the menu.
type action struct {
	label string
	run   func(v *View, st driving.DocumentStatus) tea.Cmd
}

var actions = []action{
	{"Show Chunks", open(messages.ViewChunks)},
	{"Show Details", open(messages.ViewDocDetails)},
	{"Rebuild (chunk + embed)", (*View).startRebuild},
	{"Cancel", nil},
}

// open returns an action that hands the document to another view.
func open(target messages.ViewType) func(*View, driving.DocumentStatus) tea.Cmd {
	return func(_ *View, st driving.DocumentStatus) tea.Cmd {
		return func() tea.Msg { return messages.DocumentSelected{Status: st, View: target} }
	}
}

// View is the documents list.
type View struct {
	styles   *styles.Styles
	registry driving.DocumentRegistry
	pipeline driving.PipelineService
	ctx      context.Context

	statuses []driving.DocumentStatus
	selected int
	offset   int
	height   int

	loading    bool
	rebuilding string
	notice     string
	err        error

	menuOpen bool
	menuItem int
}

// NewView creates the view. Without a pipeline only manifest entries are
// listed and rebuilds are unavailable.
func NewView(s *styles.Styles, registry driving.DocumentRegistry, pipeline driving.PipelineService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:   s,
		registry: registry,
		pipeline: pipeline,
		ctx:      context.Background(),
		height:   24,
	}
}

// WithContext sets the context for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init starts loading the document list.
func (v *View) Init() tea.Cmd {
	v.loading = true
	v.err = nil
	v.menuOpen = false
	return v.load()
}

func (v *View) load() tea.Cmd {
	return func() tea.Msg {
		switch {
		case v.registry == nil:
			return messages.DocumentsLoaded{Err: ErrNoRegistry}
		case v.pipeline == nil:
			entries := v.registry.List()
			statuses := make([]driving.DocumentStatus, len(entries))
			for i, e := range entries {
				statuses[i].Entry = e
			}
			return messages.DocumentsLoaded{Statuses: statuses}
		}
		statuses, err := v.pipeline.Status(v.ctx, nil, false)
		return messages.DocumentsLoaded{Statuses: statuses, Err: err}
	}
}

// Update handles messages for the documents view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)

	case tea.KeyMsg:
		if v.menuOpen {
			return v, v.menuKey(msg)
		}
		return v, v.listKey(msg)

	case messages.DocumentsLoaded:
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.statuses = msg.Statuses
			v.moveTo(v.selected)
		}

	case messages.RebuildCompleted:
		v.rebuilding = ""
		if err := rebuildError(msg); err != nil {
			v.err = err
			return v, nil
		}
		v.notice = "Rebuilt " + msg.DocID
		return v, v.load()

	case messages.ErrorOccurred:
		v.loading = false
		v.err = msg.Err
	}
	return v, nil
}

// rebuildError returns the run error or the first per-document failure.
func rebuildError(msg messages.RebuildCompleted) error {
	if msg.Err != nil || msg.Report == nil {
		return msg.Err
	}
	if failed := msg.Report.Failed(); len(failed) > 0 {
		return fmt.Errorf("rebuild %s: %w", failed[0].DocID, failed[0].Err)
	}
	return nil
}

func (v *View) listKey(msg tea.KeyMsg) tea.Cmd {
	page := v.rows()
	switch {
	case key.Matches(msg, keys.Up):
		v.moveTo(v.selected - 1)
	case key.Matches(msg, keys.Down):
		v.moveTo(v.selected + 1)
	case key.Matches(msg, keys.PageUp):
		v.moveTo(v.selected - page)
	case key.Matches(msg, keys.PageDown):
		v.moveTo(v.selected + page)
	case key.Matches(msg, keys.Top):
		v.moveTo(0)
	case key.Matches(msg, keys.Bottom):
		v.moveTo(len(v.statuses) - 1)
	case key.Matches(msg, keys.Select):
		if len(v.statuses) > 0 && v.rebuilding == "" {
			v.menuOpen = true
			v.menuItem = 0
		}
	case key.Matches(msg, keys.Reload):
		v.loading = true
		v.notice = ""
		return v.load()
	case key.Matches(msg, keys.Back):
		return func() tea.Msg { return messages.ViewChanged{View: messages.ViewMenu} }
	}
	return nil
}

func (v *View) menuKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Up):
		v.menuItem = max(v.menuItem-1, 0)
	case key.Matches(msg, keys.Down):
		v.menuItem = min(v.menuItem+1, len(actions)-1)
	case key.Matches(msg, keys.Back):
		v.menuOpen = false
	case key.Matches(msg, keys.Select):
		v.menuOpen = false
		st := v.SelectedStatus()
		if st == nil || actions[v.menuItem].run == nil {
			return nil
		}
		return actions[v.menuItem].run(v, *st)
	}
	return nil
}

// startRebuild re-chunks and re-embeds one document in the background.
func (v *View) startRebuild(st driving.DocumentStatus) tea.Cmd {
	if v.pipeline == nil {
		v.err = ErrNoPipeline
		return nil
	}
	docID := st.Entry.ID
	v.rebuilding = docID
	v.notice = ""
	return func() tea.Msg {
		report, err := v.pipeline.Run(v.ctx, domain.StageFull, []string{docID})
		return messages.RebuildCompleted{DocID: docID, Report: report, Err: err}
	}
}

// moveTo selects row i, clamped to the list, and scrolls it into view.
func (v *View) moveTo(i int) {
	v.selected = max(min(i, len(v.statuses)-1), 0)
	rows := v.rows()
	switch {
	case v.selected < v.offset:
		v.offset = v.selected
	case v.selected >= v.offset+rows:
		v.offset = v.selected - rows + 1
	}
}

// rows is the number of table rows that fit.
func (v *View) rows() int {
	return max(v.height-chrome, 1)
}

// View renders the documents view.
func (v *View) View() string {
	title := v.styles.Title.Render(fmt.Sprintf("Documents (%d)", len(v.statuses)))
	footer := v.styles.Help.Render(keymap.Footer(keys.DocumentsHelp()...))

	var body string
	switch {
	case v.loading:
		body = v.styles.Muted.Render("Loading documents...")
	case v.err != nil:
		body = v.styles.Error.Render("Error: " + v.err.Error())
	case len(v.statuses) == 0:
		body = v.styles.Muted.Render("No documents in the manifest.")
	case v.menuOpen:
		return title + "\n\n" + v.renderMenu()
	default:
		body = v.renderTable()
	}
	return title + "\n\n" + body + "\n\n" + footer
}

func (v *View) renderTable() string {
	var b strings.Builder
	b.WriteString(v.styles.Subtitle.Render(fmt.Sprintf("  %-24s %-12s %-10s %6s  %s",
		"DOC", "COMPANY", "PERIOD", "CHUNKS", "STATE")))

	end := min(v.offset+v.rows(), len(v.statuses))
	for i := v.offset; i < end; i++ {
		b.WriteString("\n")
		b.WriteString(v.renderRow(i == v.selected, &v.statuses[i]))
	}
	if len(v.statuses) > v.rows() {
		fmt.Fprintf(&b, "\n\n%s", v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]", v.offset+1, end, len(v.statuses))))
	}

	switch {
	case v.rebuilding != "":
		b.WriteString("\n" + v.styles.Muted.Render("Rebuilding "+v.rebuilding+"..."))
	case v.notice != "":
		b.WriteString("\n" + v.styles.Success.Render(v.notice))
	}
	return b.String()
}

func (v *View) renderRow(selected bool, st *driving.DocumentStatus) string {
	chunks, state := "-", "-"
	if st.ChunkFile != nil {
		chunks = strconv.Itoa(len(st.ChunkFile.Chunks))
	}
	// Without the pipeline nothing is known about stored state.
	if v.pipeline != nil {
		state = st.State()
	}
	cells := fmt.Sprintf("%-24s %-12s %-10s %6s  ",
		clip(st.Entry.ID, 24), clip(st.Entry.Company, 12), clip(st.Entry.FiscalPeriod, 10), chunks)

	if selected {
		return v.styles.Selected.Render("> " + cells + state)
	}
	return v.styles.Normal.Render("  "+cells) + v.styles.IndexState(state).Render(state)
}

func (v *View) renderMenu() string {
	var b strings.Builder
	if st := v.SelectedStatus(); st != nil {
		b.WriteString(v.styles.Subtitle.Render("Actions for: " + st.Entry.ID))
		b.WriteString("\n\n")
	}
	for i, a := range actions {
		if i == v.menuItem {
			b.WriteString(v.styles.Selected.Render("> " + a.label))
		} else {
			b.WriteString(v.styles.Normal.Render("  " + a.label))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render(keymap.Footer(keys.Up, keys.Down, keys.Select, keys.Back)))
	return b.String()
}

// clip shortens s to n bytes, marking the cut with an ellipsis.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(_, height int) {
	v.height = height
	v.moveTo(v.selected)
}

// Statuses returns the loaded documents.
func (v *View) Statuses() []driving.DocumentStatus {
	return v.statuses
}

// SelectedIndex returns the highlighted row.
func (v *View) SelectedIndex() int {
	return v.selected
}

// SelectedStatus returns the highlighted document, or nil when the list is
// empty.
func (v *View) SelectedStatus() *driving.DocumentStatus {
	if v.selected >= len(v.statuses) {
		return nil
	}
	return &v.statuses[v.selected]
}

// IsShowingMenu reports whether the action menu is open.
func (v *View) IsShowingMenu() bool {
	return v.menuOpen
}

// Rebuilding returns the document being rebuilt, if any.
func (v *View) Rebuilding() string {
	return v.rebuilding
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
