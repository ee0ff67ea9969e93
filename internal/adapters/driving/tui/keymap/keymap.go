// Package keymap holds the TUI key bindings. Views match keys with
// key.Matches against these bindings instead of comparing strings.
package keymap

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// KeyMap groups bindings by where they apply.
type KeyMap struct {
	// Lists and scrolled text.
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Top      key.Binding
	Bottom   key.Binding
	Select   key.Binding
	Back     key.Binding

	// Menu shortcuts.
	Ask       key.Binding
	Documents key.Binding
	Help      key.Binding
	Quit      key.Binding

	// Ask view.
	Submit      key.Binding
	ToggleMode  key.Binding
	NewQuestion key.Binding

	// Document views.
	Reload  key.Binding
	Verify  key.Binding
	NextHit key.Binding
	PrevHit key.Binding
}

func bind(help, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
}

// DefaultKeyMap returns the vim-flavoured default bindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Up:       bind("↑/k", "up", "up", "k"),
		Down:     bind("↓/j", "down", "down", "j"),
		PageUp:   bind("pgup", "page up", "pgup", "ctrl+u"),
		PageDown: bind("pgdn", "page down", "pgdown", "ctrl+d"),
		Top:      bind("g", "first", "home", "g"),
		Bottom:   bind("G", "last", "end", "G"),
		Select:   bind("enter", "select", "enter"),
		Back:     bind("esc", "back", "esc"),

		Ask:       bind("a", "ask", "a"),
		Documents: bind("d", "documents", "d"),
		Help:      bind("?", "help", "?"),
		Quit:      bind("q", "quit", "q", "ctrl+c"),

		Submit:      bind("enter", "submit", "enter"),
		ToggleMode:  bind("tab", "ask/search", "tab"),
		NewQuestion: bind("n", "new question", "n"),

		Reload:  bind("r", "reload", "r"),
		Verify:  bind("v", "verify fingerprint", "v"),
		NextHit: bind("n", "next chunk", "n"),
		PrevHit: bind("p", "previous chunk", "p"),
	}
}

// MenuHelp is the footer of the main menu.
func (k *KeyMap) MenuHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Ask, k.Documents, k.Quit}
}

// ShortHelp is the status bar hint while typing a question.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.ToggleMode, k.Back}
}

// AnswerHelp is the status bar hint once an answer or results are shown.
func (k *KeyMap) AnswerHelp() []key.Binding {
	return []key.Binding{k.NewQuestion, k.Up, k.PageDown, k.Back}
}

// DocumentsHelp is the footer of the documents list.
func (k *KeyMap) DocumentsHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Reload, k.Back}
}

// FullHelp is the help screen, one column per context.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Top, k.Bottom},
		{k.Select, k.Back, k.Ask, k.Documents, k.Help, k.Quit},
		{k.Submit, k.ToggleMode, k.NewQuestion},
		{k.Reload, k.Verify, k.NextHit, k.PrevHit},
	}
}

// Footer renders bindings as a one-line hint: "[↑/k] up  [esc] back".
func Footer(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		parts = append(parts, "["+h.Key+"] "+h.Desc)
	}
	return strings.Join(parts, "  ")
}
