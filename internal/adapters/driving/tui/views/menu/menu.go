// Package menu is the TUI start screen.
package menu

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/filings-qa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/filings-qa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/filings-qa/internal/adapters/driving/tui/styles"
)

// Item is one menu entry. Shortcut jumps to it from anywhere in the menu;
// an item without a view quits.
type Item struct {
	Label    string
	Hint     string
	View     messages.ViewType
	Shortcut key.Binding
	Quit     bool
}

// View lists the items with a cursor.
type View struct {
	styles *styles.Styles
	keys   *keymap.KeyMap
	items  []Item
	cursor int
	width  int
	height int
	ready  bool
}

// NewView builds the menu. Nil arguments take the defaults.
func NewView(s *styles.Styles, km *keymap.KeyMap) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{
		styles: s,
		keys:   km,
		items: []Item{
			{Label: "Ask", Hint: "question the indexed filings", View: messages.ViewAsk, Shortcut: km.Ask},
			{Label: "Documents", Hint: "manifest entries and index state", View: messages.ViewDocuments, Shortcut: km.Documents},
			{Label: "Help", Hint: "keybindings", View: messages.ViewHelp, Shortcut: km.Help},
			{Label: "Quit", Quit: true, Shortcut: km.Quit},
		},
		width:  80,
		height: 24,
	}
}

// Init does nothing; the menu has no data to load.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update moves the cursor or opens an item.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, v.keys.Up):
			v.cursor = max(v.cursor-1, 0)
		case key.Matches(msg, v.keys.Down):
			v.cursor = min(v.cursor+1, len(v.items)-1)
		case key.Matches(msg, v.keys.Select):
			return v, v.open(v.items[v.cursor])
		default:
			for i, item := range v.items {
				if key.Matches(msg, item.Shortcut) {
					v.cursor = i
					return v, v.open(item)
				}
			}
		}
	}
	return v, nil
}

func (v *View) open(item Item) tea.Cmd {
	if item.Quit {
		return tea.Quit
	}
	return func() tea.Msg {
		return messages.ViewChanged{View: item.View}
	}
}

// View renders the menu.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("Filings Q&A"))
	b.WriteString("\n\n")
	b.WriteString(v.styles.Muted.Render("Cited answers from company filings and transcripts"))
	b.WriteString("\n\n")

	for i, item := range v.items {
		label := fmt.Sprintf("%-10s", item.Label)
		if i == v.cursor {
			b.WriteString("> " + v.styles.Selected.Render(label))
		} else {
			b.WriteString("  " + v.styles.Normal.Render(label))
		}
		if h := item.Shortcut.Help(); h.Key != "" {
			b.WriteString(v.styles.Muted.Render(fmt.Sprintf(" (%s)", h.Key)))
		}
		if item.Hint != "" {
			b.WriteString("  " + v.styles.Muted.Render(item.Hint))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render(keymap.Footer(v.keys.MenuHelp()...)))
	return b.String()
}

// SetDimensions records the terminal size.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Selected returns the cursor position.
func (v *View) Selected() int {
	return v.cursor
}
