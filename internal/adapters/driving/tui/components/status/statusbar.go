// Package status renders the one-line bar under the ask view.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/filings-qa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/filings-qa/internal/adapters/driving/tui/styles"
)

// State is where the ask view is in its question lifecycle.
type State int

const (
	StateReady State = iota
	StateAsking
	StateSearching
	StateAnswered
	StateInsufficient
	StateResults
	StateError
)

var stateNames = [...]string{"ready", "asking", "searching", "answered", "insufficient", "results", "error"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// settled reports whether a result is on screen, which changes the hints.
func (s State) settled() bool {
	return s == StateAnswered || s == StateInsufficient || s == StateResults
}

// Bar shows the state on the left and key hints on the right. It holds no
// tea state of its own; the ask view drives it.
type Bar struct {
	styles *styles.Styles
	keys   *keymap.KeyMap
	state  State
	count  int
	detail string
	width  int
}

// NewBar builds a bar in StateReady. Nil arguments take the defaults.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{styles: s, keys: km, width: 80}
}

// Set moves to state. count is the number of citations or hits on screen.
func (b *Bar) Set(state State, count int) {
	b.state, b.count, b.detail = state, count, ""
}

// Fail moves to StateError showing err.
func (b *Bar) Fail(err error) {
	b.state, b.count, b.detail = StateError, 0, ""
	if err != nil {
		b.detail = err.Error()
	}
}

// Clear returns to StateReady.
func (b *Bar) Clear() {
	b.Set(StateReady, 0)
}

// State returns the current state.
func (b *Bar) State() State {
	return b.state
}

// Count returns the citation or hit count.
func (b *Bar) Count() int {
	return b.count
}

// SetWidth sets the rendered width.
func (b *Bar) SetWidth(width int) {
	b.width = width
}

// View renders the bar padded to its width.
func (b *Bar) View() string {
	left, right := b.label(), b.hints()
	gap := max(b.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return b.styles.StatusBar.Width(b.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (b *Bar) label() string {
	switch b.state {
	case StateAsking:
		return b.styles.Muted.Render("Answering...")
	case StateSearching:
		return b.styles.Muted.Render("Searching...")
	case StateAnswered:
		return b.styles.Success.Render(fmt.Sprintf("Answered with %d %s", b.count, plural(b.count, "source")))
	case StateInsufficient:
		return b.styles.Warning.Render("Insufficient context")
	case StateResults:
		return b.styles.Normal.Render(fmt.Sprintf("%d %s", b.count, plural(b.count, "result")))
	case StateError:
		if b.detail == "" {
			return b.styles.Error.Render("Error")
		}
		return b.styles.Error.Render("Error: " + b.detail)
	default:
		return b.styles.Muted.Render("Ready")
	}
}

func (b *Bar) hints() string {
	var bindings []key.Binding
	if b.state.settled() {
		bindings = b.keys.AnswerHelp()
	} else {
		bindings = b.keys.ShortHelp()
	}
	return b.styles.Muted.Render(keymap.Footer(bindings...))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
