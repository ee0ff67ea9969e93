// Package ask provides the question and answer view for the TUI.
package ask

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/filings-qa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/filings-qa/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/filings-qa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/filings-qa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/filings-qa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/filings-qa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driving"
)

// weakScore is the similarity under which a citation is drawn faint.
const weakScore = 0.5

// InsufficientMessage is shown when retrieval found nothing to ground an answer.
const InsufficientMessage = "Insufficient information in the indexed documents to answer this question."

// View represents the ask view with input, answer pane, hit list and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QuestionInput
	list      *list.HitList
	statusbar *status.Bar
	spinner   spinner.Model
	answer    viewport.Model

	answerService driving.AnswerService
	opts          domain.AskOptions
	ctx           context.Context

	width      int
	height     int
	ready      bool
	err        error
	loading    bool
	focusInput bool // true = typing a question, false = reading the answer
	last       *domain.Answer
}

// NewView creates a new ask view.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	answerService driving.AnswerService,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:        s,
		keymap:        km,
		input:         input.NewQuestionInput(s),
		list:          list.NewHitList(s),
		statusbar:     status.NewBar(s, km),
		spinner:       spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(s.Spinner)),
		answer:        viewport.New(80, 10),
		answerService: answerService,
		ctx:           context.Background(),
		width:         80,
		height:        24,
		focusInput:    true,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// SetOptions sets the retrieval options used for every question.
func (v *View) SetOptions(opts domain.AskOptions) {
	v.opts = opts
}

// Options returns the retrieval options.
func (v *View) Options() domain.AskOptions {
	return v.opts
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the ask view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case spinner.TickMsg:
		if !v.loading {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case messages.AnswerCompleted:
		v.handleAnswerCompleted(msg)
		return v, nil

	case messages.SearchCompleted:
		v.handleSearchCompleted(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.loading = false
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if key.Matches(msg, v.keymap.Back) {
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	if v.loading {
		return v, nil
	}

	if v.focusInput {
		switch {
		case key.Matches(msg, v.keymap.Submit):
			return v, v.submit()
		case key.Matches(msg, v.keymap.ToggleMode):
			v.input.ToggleMode()
			return v, nil
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	if key.Matches(msg, v.keymap.NewQuestion) {
		v.focusInput = true
		v.input.SetValue("")
		return v, v.input.Focus()
	}

	if v.input.Mode() == input.ModeSearch {
		v.list, _ = v.list.Update(msg)
		return v, nil
	}

	var cmd tea.Cmd
	v.answer, cmd = v.answer.Update(msg)
	return v, cmd
}

// submit starts answering or searching for the current input.
func (v *View) submit() tea.Cmd {
	query := strings.TrimSpace(v.input.Value())
	if query == "" {
		return nil
	}

	v.loading = true
	v.err = nil
	v.focusInput = false
	v.input.Blur()

	var run tea.Cmd
	if v.input.Mode() == input.ModeSearch {
		v.statusbar.Set(status.StateSearching, 0)
		run = v.performSearch(query)
	} else {
		v.statusbar.Set(status.StateAsking, 0)
		run = v.performAsk(query)
	}
	return tea.Batch(v.spinner.Tick, run)
}

// performAsk asks the answer service in the background.
func (v *View) performAsk(question string) tea.Cmd {
	return func() tea.Msg {
		if v.answerService == nil {
			return messages.ErrorOccurred{Err: ErrNoAnswerService}
		}
		ans, err := v.answerService.Answer(v.ctx, question, v.opts)
		return messages.AnswerCompleted{Question: question, Answer: ans, Err: err}
	}
}

// performSearch runs retrieval only in the background.
func (v *View) performSearch(query string) tea.Cmd {
	return func() tea.Msg {
		if v.answerService == nil {
			return messages.ErrorOccurred{Err: ErrNoAnswerService}
		}
		hits, err := v.answerService.Search(v.ctx, query, v.opts)
		return messages.SearchCompleted{Query: query, Hits: hits, Err: err}
	}
}

// handleAnswerCompleted renders the answer or the reason there is none.
func (v *View) handleAnswerCompleted(msg messages.AnswerCompleted) {
	v.loading = false
	v.last = msg.Answer

	switch {
	case errors.Is(msg.Err, domain.ErrNoGroundedContext):
		v.err = nil
		v.statusbar.Set(status.StateInsufficient, 0)
		v.answer.SetContent(v.renderInsufficient(msg.Question))
	case msg.Err != nil:
		v.setError(msg.Err)
		v.answer.SetContent("")
	case msg.Answer == nil:
		v.setError(errors.New("no answer returned"))
		v.answer.SetContent("")
	default:
		v.err = nil
		v.statusbar.Set(status.StateAnswered, len(msg.Answer.Citations))
		v.answer.SetContent(v.renderAnswer(msg.Answer))
	}
	v.answer.GotoTop()
}

// handleSearchCompleted shows retrieval hits.
func (v *View) handleSearchCompleted(msg messages.SearchCompleted) {
	v.loading = false
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}

	v.err = nil
	v.list.SetHits(msg.Hits)
	v.statusbar.Set(status.StateResults, len(msg.Hits))
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.Fail(err)
}

// renderAnswer formats the answer text followed by its numbered sources.
func (v *View) renderAnswer(ans *domain.Answer) string {
	textWidth := max(v.width-4, 20)

	var b strings.Builder
	b.WriteString(v.styles.Subtitle.Render("Q: " + ans.Question))
	b.WriteString("\n\n")
	b.WriteString(v.styles.Answer.Width(textWidth).Render(ans.Text))
	b.WriteString("\n")

	if len(ans.Citations) > 0 {
		b.WriteString("\n")
		b.WriteString(v.styles.Subtitle.Render("Sources:"))
		b.WriteString("\n")
		for i, c := range ans.Citations {
			line := fmt.Sprintf("  [%d] %s %s (%.2f)", i+1, c.DocID, c.Span.String(), c.Score)
			b.WriteString(v.styles.Score(c.Score, weakScore).Render(line))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (v *View) renderInsufficient(question string) string {
	return v.styles.Subtitle.Render("Q: "+question) + "\n\n" +
		v.styles.Warning.Render(InsufficientMessage) + "\n"
}

// View renders the ask view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 10)
	sections = append(sections, v.styles.Title.Render("Filings Q&A"), "", v.input.View(), "")

	switch {
	case v.loading:
		label := "Retrieving and answering..."
		if v.input.Mode() == input.ModeSearch {
			label = "Searching..."
		}
		sections = append(sections, v.spinner.View()+" "+v.styles.Muted.Render(label))
	case v.err != nil:
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()))
	case v.input.Mode() == input.ModeSearch:
		sections = append(sections, v.list.View())
	default:
		sections = append(sections, v.answer.View())
	}

	sections = append(sections, "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	// Reserve space for header, input and status bar
	bodyHeight := max(height-10, 3)
	v.input.SetWidth(width)
	v.list.SetDimensions(width, bodyHeight)
	v.answer.Width = width
	v.answer.Height = bodyHeight
	v.statusbar.SetWidth(width)

	if v.last != nil && v.last.State == domain.QAAnswered {
		v.answer.SetContent(v.renderAnswer(v.last))
	}
}

// Width returns the current width.
func (v *View) Width() int {
	return v.width
}

// Height returns the current height.
func (v *View) Height() int {
	return v.height
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Query returns the current input value.
func (v *View) Query() string {
	return v.input.Value()
}

// SetQuery sets the input value.
func (v *View) SetQuery(query string) {
	v.input.SetValue(query)
}

// Mode returns whether the view asks or searches.
func (v *View) Mode() input.Mode {
	return v.input.Mode()
}

// LastAnswer returns the most recent answer, if any.
func (v *View) LastAnswer() *domain.Answer {
	return v.last
}

// Hits returns the current search hits.
func (v *View) Hits() []domain.SearchHit {
	return v.list.Hits()
}

// SelectedIndex returns the index of the selected hit.
func (v *View) SelectedIndex() int {
	return v.list.Selected()
}

// Loading reports whether a question or search is in flight.
func (v *View) Loading() bool {
	return v.loading
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// StatusState returns the status bar state.
func (v *View) StatusState() status.State {
	return v.statusbar.State()
}

// Reset returns the view to input mode with nothing on screen.
func (v *View) Reset() {
	v.focusInput = true
	v.loading = false
	v.input.Focus()
	v.input.SetValue("")
	v.list.SetHits(nil)
	v.answer.SetContent("")
	v.last = nil
	v.err = nil
	v.statusbar.Clear()
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}
