// Package chunks pages through the stored chunks of one document.
package chunks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/filings-qa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/filings-qa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/filings-qa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driving"
)

var keys = keymap.DefaultKeyMap()

var footer = []key.Binding{keys.Down, keys.PageDown, keys.NextHit, keys.PrevHit, keys.Top, keys.Bottom, keys.Back}

// ErrNoPipeline indicates the view was built without a pipeline service.
var ErrNoPipeline = errors.New("pipeline service not available")

// ErrNotChunked indicates the document has no stored chunk file yet.
var ErrNotChunked = errors.New("document has not been chunked")

// View is the chunk pager.
type View struct {
	styles   *styles.Styles
	pipeline driving.PipelineService
	ctx      context.Context

	docID   string
	file    *domain.ChunkFile
	loading bool
	err     error

	// lines is the wrapped text of every chunk; starts holds the line
	// where each chunk's header sits.
	lines        []string
	starts       []int
	scrollOffset int
	width        int
	height       int
}

// NewView creates the chunk pager.
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

// SetDocument selects the document and loads its chunks. A status that
// already carries the chunk file is shown without another load.
func (v *View) SetDocument(st driving.DocumentStatus) tea.Cmd {
	v.docID = st.Entry.ID
	v.err = nil
	v.show(st.ChunkFile)
	v.loading = st.ChunkFile == nil
	if !v.loading {
		return nil
	}
	return v.load(v.docID)
}

// Init implements the view lifecycle; loading starts in SetDocument.
func (v *View) Init() tea.Cmd {
	return nil
}

func (v *View) load(docID string) tea.Cmd {
	return func() tea.Msg {
		if v.pipeline == nil {
			return messages.ChunksLoaded{DocID: docID, Err: ErrNoPipeline}
		}
		statuses, err := v.pipeline.Status(v.ctx, []string{docID}, false)
		if err != nil {
			return messages.ChunksLoaded{DocID: docID, Err: err}
		}
		i := slices.IndexFunc(statuses, func(st driving.DocumentStatus) bool {
			return st.Entry.ID == docID && st.ChunkFile != nil
		})
		if i < 0 {
			return messages.ChunksLoaded{DocID: docID, Err: ErrNotChunked}
		}
		return messages.ChunksLoaded{DocID: docID, File: statuses[i].ChunkFile}
	}
}

// Update handles messages for the chunk pager.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)

	case tea.KeyMsg:
		return v, v.handleKey(msg)

	case messages.ChunksLoaded:
		// Results for a document the user already left are dropped.
		if msg.DocID != v.docID {
			break
		}
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.show(msg.File)
		}

	case messages.ErrorOccurred:
		v.loading = false
		v.err = msg.Err
	}
	return v, nil
}

func (v *View) handleKey(msg tea.KeyMsg) tea.Cmd {
	page := v.visibleLines()
	switch {
	case key.Matches(msg, keys.Up):
		v.scrollTo(v.scrollOffset - 1)
	case key.Matches(msg, keys.Down):
		v.scrollTo(v.scrollOffset + 1)
	case key.Matches(msg, keys.PageUp):
		v.scrollTo(v.scrollOffset - page)
	case key.Matches(msg, keys.PageDown):
		v.scrollTo(v.scrollOffset + page)
	case key.Matches(msg, keys.Top):
		v.scrollTo(0)
	case key.Matches(msg, keys.Bottom):
		v.scrollTo(v.maxScrollOffset())
	case key.Matches(msg, keys.NextHit):
		v.scrollTo(v.nextChunkStart())
	case key.Matches(msg, keys.PrevHit):
		v.scrollTo(v.prevChunkStart())
	case key.Matches(msg, keys.Back):
		return func() tea.Msg { return messages.ViewChanged{View: messages.ViewDocuments} }
	}
	return nil
}

func (v *View) scrollTo(offset int) {
	v.scrollOffset = max(min(offset, v.maxScrollOffset()), 0)
}

// nextChunkStart is the first chunk header below the top line.
func (v *View) nextChunkStart() int {
	i, _ := slices.BinarySearch(v.starts, v.scrollOffset+1)
	if i < len(v.starts) {
		return v.starts[i]
	}
	return v.scrollOffset
}

// prevChunkStart is the last chunk header above the top line.
func (v *View) prevChunkStart() int {
	i, _ := slices.BinarySearch(v.starts, v.scrollOffset)
	if i == 0 {
		return 0
	}
	return v.starts[i-1]
}

// show replaces the displayed file and scrolls back to the top.
func (v *View) show(file *domain.ChunkFile) {
	v.file = file
	v.scrollOffset = 0
	v.wrap()
}

// wrap lays every chunk out at the current width.
func (v *View) wrap() {
	v.lines, v.starts = nil, nil
	if v.file == nil {
		return
	}

	body := lipgloss.NewStyle().Width(max(v.width-6, 20))
	for i := range v.file.Chunks {
		c := &v.file.Chunks[i]
		v.starts = append(v.starts, len(v.lines))
		v.lines = append(v.lines, header(c))
		for _, l := range strings.Split(body.Render(c.Text), "\n") {
			v.lines = append(v.lines, "  "+strings.TrimRight(l, " "))
		}
		v.lines = append(v.lines, "")
	}
}

// header is the first line of a chunk: sequence, span, size and id.
func header(c *domain.Chunk) string {
	return fmt.Sprintf("#%d  %s  %d tokens  %s", c.SequenceIndex, c.Span.String(), c.TokenCount, c.ID)
}

// visibleLines is the body height left after the title block and footer.
func (v *View) visibleLines() int {
	return max(v.height-7, 1)
}

func (v *View) maxScrollOffset() int {
	return max(len(v.lines)-v.visibleLines(), 0)
}

// View renders the chunk pager.
func (v *View) View() string {
	title := "Chunks"
	if v.docID != "" {
		title += " - " + v.docID
	}
	parts := []string{v.styles.Title.Render(title)}
	if v.file != nil {
		parts = append(parts, v.styles.Muted.Render(fmt.Sprintf("%d chunks  %s  %s",
			len(v.file.Chunks), v.file.Strategy.String(), v.file.ContentHash)))
	}
	parts = append(parts, strings.Repeat("─", max(min(v.width-4, 60), 0)), "")

	switch {
	case v.loading:
		parts = append(parts, v.styles.Muted.Render("Loading chunks..."))
	case v.err != nil:
		parts = append(parts, v.styles.Error.Render("Error: "+v.err.Error()))
	case len(v.lines) == 0:
		parts = append(parts, v.styles.Muted.Render("(No chunks)"))
	default:
		parts = append(parts, v.renderPage())
	}

	parts = append(parts, "", v.styles.Help.Render(keymap.Footer(footer...)))
	return strings.Join(parts, "\n")
}

func (v *View) renderPage() string {
	rows := v.visibleLines()
	end := min(v.scrollOffset+rows, len(v.lines))

	var b strings.Builder
	for _, line := range v.lines[v.scrollOffset:end] {
		style := v.styles.Normal
		if strings.HasPrefix(line, "#") {
			style = v.styles.Subtitle
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	if len(v.lines) > rows {
		pct := 0
		if last := v.maxScrollOffset(); last > 0 {
			pct = v.scrollOffset * 100 / last
		}
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d%%] Line %d-%d of %d",
			pct, v.scrollOffset+1, end, len(v.lines))))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// SetDimensions sets the view dimensions and re-wraps the chunks.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.wrap()
	v.scrollTo(v.scrollOffset)
}

// DocID returns the selected document id.
func (v *View) DocID() string {
	return v.docID
}

// File returns the loaded chunk file.
func (v *View) File() *domain.ChunkFile {
	return v.file
}

// ScrollOffset returns the first visible line.
func (v *View) ScrollOffset() int {
	return v.scrollOffset
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
