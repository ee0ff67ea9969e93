// Package input provides text input components for the TUI.
package input

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/filings-qa/internal/adapters/driving/tui/styles"
)

// Mode selects what submitting the input does.
type Mode int

const (
	// ModeAsk generates a cited answer.
	ModeAsk Mode = iota
	// ModeSearch runs retrieval only.
	ModeSearch
)

// String returns the label shown in front of the input.
func (m Mode) String() string {
	if m == ModeSearch {
		return "Search"
	}
	return "Ask"
}

func (m Mode) placeholder() string {
	if m == ModeSearch {
		return "Search the indexed filings..."
	}
	return "Ask a question about the filings..."
}

// QuestionInput wraps a bubbles textinput with a mode-dependent label.
type QuestionInput struct {
	textinput textinput.Model
	styles    *styles.Styles
	mode      Mode
	width     int
}

// NewQuestionInput creates a new question input in ask mode.
func NewQuestionInput(s *styles.Styles) *QuestionInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = ModeAsk.placeholder()
	ti.Focus()
	ti.CharLimit = 512
	ti.Width = 50

	return &QuestionInput{
		textinput: ti,
		styles:    s,
		mode:      ModeAsk,
		width:     50,
	}
}

// Init initialises the input.
func (q *QuestionInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input messages.
func (q *QuestionInput) Update(msg tea.Msg) (*QuestionInput, tea.Cmd) {
	var cmd tea.Cmd
	q.textinput, cmd = q.textinput.Update(msg)
	return q, cmd
}

// View renders the input.
func (q *QuestionInput) View() string {
	label := q.styles.Title.Render(q.mode.String() + ": ")
	field := q.styles.InputField.Render(q.textinput.View())
	//nolint:misspell // lipgloss.Center is the correct constant from the library
	return lipgloss.JoinHorizontal(lipgloss.Center, label, field)
}

// Mode returns the current mode.
func (q *QuestionInput) Mode() Mode {
	return q.mode
}

// SetMode switches the label and placeholder.
func (q *QuestionInput) SetMode(mode Mode) {
	q.mode = mode
	q.textinput.Placeholder = mode.placeholder()
}

// ToggleMode flips between ask and search and returns the new mode.
func (q *QuestionInput) ToggleMode() Mode {
	if q.mode == ModeAsk {
		q.SetMode(ModeSearch)
	} else {
		q.SetMode(ModeAsk)
	}
	return q.mode
}

// Value returns the current input value.
func (q *QuestionInput) Value() string {
	return q.textinput.Value()
}

// SetValue sets the input value.
func (q *QuestionInput) SetValue(value string) {
	q.textinput.SetValue(value)
}

// Focus sets focus on the input.
func (q *QuestionInput) Focus() tea.Cmd {
	return q.textinput.Focus()
}

// Blur removes focus from the input.
func (q *QuestionInput) Blur() {
	q.textinput.Blur()
}

// Focused returns whether the input is focused.
func (q *QuestionInput) Focused() bool {
	return q.textinput.Focused()
}

// SetWidth sets the width of the input.
func (q *QuestionInput) SetWidth(width int) {
	q.width = width
	// Account for label and padding
	inputWidth := width - 12
	if inputWidth < 20 {
		inputWidth = 20
	}
	q.textinput.Width = inputWidth
}

// Width returns the current width.
func (q *QuestionInput) Width() int {
	return q.width
}

// Reset clears the input.
func (q *QuestionInput) Reset() {
	q.textinput.Reset()
}
