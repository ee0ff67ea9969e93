package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/filings-qa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/filings-qa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/filings-qa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/filings-qa/internal/adapters/driving/tui/views/ask"
	"github.com/custodia-labs/filings-qa/internal/adapters/driving/tui/views/chunks"
	"github.com/custodia-labs/filings-qa/internal/adapters/driving/tui/views/docdetails"
	"github.com/custodia-labs/filings-qa/internal/adapters/driving/tui/views/documents"
	"github.com/custodia-labs/filings-qa/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/filings-qa/internal/core/domain"
)

// screen is what the app needs from every view besides Update, whose
// return type differs per view.
type screen interface {
	View() string
	SetDimensions(width, height int)
}

// App routes messages between the menu, ask, documents, details and
// chunks views. It implements tea.Model.
type App struct {
	styles *styles.Styles
	keymap *keymap.KeyMap
	help   help.Model

	menuView       *menu.View
	askView        *ask.View
	documentsView  *documents.View
	docDetailsView *docdetails.View
	chunksView     *chunks.View

	current messages.ViewType
	err     error
	ready   bool
}

var _ tea.Model = (*App)(nil)

// NewApp builds the application over ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	return &App{
		styles:         s,
		keymap:         km,
		help:           help.New(),
		menuView:       menu.NewView(s, km),
		askView:        ask.NewView(s, km, ports.Answers),
		documentsView:  documents.NewView(s, ports.Registry, ports.Pipeline),
		docDetailsView: docdetails.NewView(s, ports.Pipeline),
		chunksView:     chunks.NewView(s, ports.Pipeline),
		current:        messages.ViewMenu,
	}, nil
}

// WithContext sets the context every service call runs under. Cancelling
// it abandons in-flight questions and rebuilds.
func (a *App) WithContext(ctx context.Context) *App {
	a.askView.WithContext(ctx)
	a.documentsView.WithContext(ctx)
	a.docDetailsView.WithContext(ctx)
	a.chunksView.WithContext(ctx)
	return a
}

// WithAskOptions sets the retrieval scope applied to every question.
func (a *App) WithAskOptions(opts domain.AskOptions) *App {
	a.askView.SetOptions(opts)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(tea.EnterAltScreen, tea.SetWindowTitle(windowTitle(a.current)))
}

func windowTitle(v messages.ViewType) string {
	if v == messages.ViewMenu {
		return "filings - Q&A"
	}
	return "filings - " + strings.ReplaceAll(v.String(), "_", " ")
}

// screens lists every view by the type that selects it. Help has none;
// the app renders it itself.
func (a *App) screens() map[messages.ViewType]screen {
	return map[messages.ViewType]screen{
		messages.ViewMenu:       a.menuView,
		messages.ViewAsk:        a.askView,
		messages.ViewDocuments:  a.documentsView,
		messages.ViewDocDetails: a.docDetailsView,
		messages.ViewChunks:     a.chunksView,
	}
}

// owner returns the view that started the background work msg reports on.
// Such results go to that view even after the user has moved elsewhere.
func owner(msg tea.Msg) (messages.ViewType, bool) {
	switch msg.(type) {
	case messages.AnswerCompleted, messages.SearchCompleted:
		return messages.ViewAsk, true
	case messages.RebuildCompleted:
		return messages.ViewDocuments, true
	case messages.DocumentVerified:
		return messages.ViewDocDetails, true
	case messages.ChunksLoaded:
		return messages.ViewChunks, true
	}
	return 0, false
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if v, ok := owner(msg); ok {
		return a, a.deliver(v, msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return a, tea.Quit
		}
		if a.current == messages.ViewHelp {
			if key.Matches(msg, a.keymap.Back) {
				return a, a.show(messages.ViewMenu)
			}
			return a, nil
		}

	case messages.ViewChanged:
		return a, a.show(msg.View)

	case messages.DocumentSelected:
		if msg.View == messages.ViewDocDetails {
			a.docDetailsView.SetStatus(msg.Status)
			return a, a.show(messages.ViewDocDetails)
		}
		return a, tea.Batch(a.show(messages.ViewChunks), a.chunksView.SetDocument(msg.Status))

	case messages.ErrorOccurred:
		a.err = msg.Err

	case messages.Quit:
		return a, tea.Quit
	}

	return a, a.deliver(a.current, msg)
}

// show switches to v and starts whatever loading it needs.
func (a *App) show(v messages.ViewType) tea.Cmd {
	a.current = v
	title := tea.SetWindowTitle(windowTitle(v))
	switch v {
	case messages.ViewAsk:
		a.askView.Reset()
		return tea.Batch(title, a.askView.Init())
	case messages.ViewDocuments:
		return tea.Batch(title, a.documentsView.Init())
	}
	return title
}

// deliver hands msg to view v.
func (a *App) deliver(v messages.ViewType, msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch v {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewAsk:
		a.askView, cmd = a.askView.Update(msg)
	case messages.ViewDocuments:
		a.documentsView, cmd = a.documentsView.Update(msg)
	case messages.ViewDocDetails:
		a.docDetailsView, cmd = a.docDetailsView.Update(msg)
	case messages.ViewChunks:
		a.chunksView, cmd = a.chunksView.Update(msg)
	case messages.ViewHelp:
	}
	return cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}
	if s, ok := a.screens()[a.current]; ok {
		return s.View()
	}
	return a.viewHelp()
}

func (a *App) viewHelp() string {
	lines := []string{
		a.styles.Title.Render("Help"),
		"",
		a.help.FullHelpView(a.keymap.FullHelp()),
		"",
		a.styles.Muted.Render("Ask: type a question and press enter; tab switches to retrieval-only search."),
		a.styles.Muted.Render("Documents: enter opens chunks, details and rebuild for the selected document."),
		"",
		a.styles.Help.Render(keymap.Footer(a.keymap.Back)),
	}
	return strings.Join(lines, "\n")
}

// AskOptions returns the retrieval scope applied to every question.
func (a *App) AskOptions() domain.AskOptions {
	return a.askView.Options()
}

// CurrentView returns the active view.
func (a *App) CurrentView() messages.ViewType {
	return a.current
}

// Err returns the last reported error.
func (a *App) Err() error {
	return a.err
}

// Ready reports whether the terminal size is known.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions resizes the app and every view.
func (a *App) SetDimensions(width, height int) {
	a.ready = true
	a.help.Width = width
	for _, s := range a.screens() {
		s.SetDimensions(width, height)
	}
}
