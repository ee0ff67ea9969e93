// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/filings-qa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/filings-qa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/filings-qa/internal/core/domain"
)

var keys = keymap.DefaultKeyMap()

// HitList displays retrieval hits in a navigable list.
type HitList struct {
	hits     []domain.SearchHit
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewHitList creates a new hit list component.
func NewHitList(s *styles.Styles) *HitList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &HitList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the hit list.
func (r *HitList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (r *HitList) Update(msg tea.Msg) (*HitList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Up):
			r.MoveUp()
		case key.Matches(msg, keys.Down):
			r.MoveDown()
		}
	}
	return r, nil
}

// View renders the hit list.
func (r *HitList) View() string {
	if len(r.hits) == 0 {
		return r.styles.Muted.Render("No results")
	}

	lines := make([]string, 0, len(r.hits)+2)
	lines = append(lines, r.styles.Subtitle.Render(fmt.Sprintf("Results (%d)", len(r.hits))), "")

	// Each hit takes two lines plus a blank
	visibleCount := (r.height - 4) / 3
	if visibleCount < 1 {
		visibleCount = 1
	}

	start := 0
	if r.selected >= visibleCount {
		start = r.selected - visibleCount + 1
	}
	end := min(start+visibleCount, len(r.hits))

	for i := start; i < end; i++ {
		lines = append(lines, r.renderHit(i, &r.hits[i]))
	}

	return strings.Join(lines, "\n")
}

// renderHit formats a single hit with a preview of its text.
func (r *HitList) renderHit(index int, hit *domain.SearchHit) string {
	indicator := "  "
	if index == r.selected {
		indicator = "> "
	}

	meta := hit.Record.Metadata
	title := fmt.Sprintf("[%d] %s  %s", index+1, meta.DocID, meta.Span.String())
	maxTitleLen := max(r.width-12, 10)
	title = truncate(title, maxTitleLen)
	score := fmt.Sprintf("%.2f", hit.Score)

	var titleLine string
	if index == r.selected {
		titleLine = r.styles.Selected.Render(fmt.Sprintf("%s%-*s  %s", indicator, maxTitleLen, title, score))
	} else {
		titleLine = r.styles.Normal.Render(fmt.Sprintf("%s%-*s  ", indicator, maxTitleLen, title)) +
			r.styles.Muted.Render(score)
	}

	preview := strings.Join(strings.Fields(hit.Record.Text), " ")
	preview = truncate(preview, max(r.width-6, 20))

	return titleLine + "\n" + r.styles.Muted.Render("    "+preview) + "\n"
}

// truncate shortens s to limit runes, marking the cut with an ellipsis.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// SetHits updates the hit list and resets the selection.
func (r *HitList) SetHits(hits []domain.SearchHit) {
	r.hits = hits
	r.selected = 0
}

// Hits returns the current hits.
func (r *HitList) Hits() []domain.SearchHit {
	return r.hits
}

// Selected returns the index of the selected hit.
func (r *HitList) Selected() int {
	return r.selected
}

// SetSelected sets the selected index.
func (r *HitList) SetSelected(index int) {
	if index >= 0 && index < len(r.hits) {
		r.selected = index
	}
}

// SelectedHit returns the currently selected hit, or nil if none.
func (r *HitList) SelectedHit() *domain.SearchHit {
	if r.selected < 0 || r.selected >= len(r.hits) {
		return nil
	}
	return &r.hits[r.selected]
}

// MoveUp moves selection up.
func (r *HitList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves selection down.
func (r *HitList) MoveDown() {
	if r.selected < len(r.hits)-1 {
		r.selected++
	}
}

// SetDimensions sets the component dimensions.
func (r *HitList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// Width returns the current width.
func (r *HitList) Width() int {
	return r.width
}

// Height returns the current height.
func (r *HitList) Height() int {
	return r.height
}

// Count returns the number of hits.
func (r *HitList) Count() int {
	return len(r.hits)
}

// IsEmpty returns whether the list is empty.
func (r *HitList) IsEmpty() bool {
	return len(r.hits) == 0
}
