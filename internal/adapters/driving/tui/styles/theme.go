// Package styles holds the lipgloss styles shared by the TUI views.
package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette is the set of colours the styles draw from. Each colour has a
// light and a dark variant; lipgloss picks one from the terminal background.
type Palette struct {
	Accent  lipgloss.AdaptiveColor
	Link    lipgloss.AdaptiveColor
	Text    lipgloss.AdaptiveColor
	Faint   lipgloss.AdaptiveColor
	Good    lipgloss.AdaptiveColor
	Caution lipgloss.AdaptiveColor
	Bad     lipgloss.AdaptiveColor
	Frame   lipgloss.AdaptiveColor
	Bar     lipgloss.AdaptiveColor
}

// DefaultPalette returns the built-in palette.
func DefaultPalette() *Palette {
	return &Palette{
		Accent:  lipgloss.AdaptiveColor{Light: "#5B21B6", Dark: "#A78BFA"},
		Link:    lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#67E8F9"},
		Text:    lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#E5E7EB"},
		Faint:   lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"},
		Good:    lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#86EFAC"},
		Caution: lipgloss.AdaptiveColor{Light: "#A16207", Dark: "#FDE68A"},
		Bad:     lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#FCA5A5"},
		Frame:   lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#4B5563"},
		Bar:     lipgloss.AdaptiveColor{Light: "#F3F4F6", Dark: "#111827"},
	}
}

// Styles are the rendered roles. Views never build their own colours.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Help     lipgloss.Style
	Selected lipgloss.Style

	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style

	InputField lipgloss.Style
	StatusBar  lipgloss.Style
	Spinner    lipgloss.Style

	// Answer wraps generated text; Citation renders its numbered sources.
	Answer   lipgloss.Style
	Citation lipgloss.Style
}

// NewStyles derives every role from p, DefaultPalette when nil.
func NewStyles(p *Palette) *Styles {
	if p == nil {
		p = DefaultPalette()
	}
	fg := func(c lipgloss.AdaptiveColor) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c)
	}

	return &Styles{
		Title:    fg(p.Accent).Bold(true),
		Subtitle: fg(p.Link).Bold(true),
		Normal:   fg(p.Text),
		Muted:    fg(p.Faint),
		Help:     fg(p.Faint),
		Selected: fg(p.Bar).Background(p.Accent).Bold(true),

		Success: fg(p.Good),
		Warning: fg(p.Caution),
		Error:   fg(p.Bad),

		InputField: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(p.Frame).
			Padding(0, 1),
		StatusBar: fg(p.Faint).Background(p.Bar).Padding(0, 1),
		Spinner:   fg(p.Accent),

		Answer:   fg(p.Text).PaddingLeft(2),
		Citation: fg(p.Link),
	}
}

// DefaultStyles returns NewStyles(nil).
func DefaultStyles() *Styles {
	return NewStyles(nil)
}

// IndexState returns the style for a document state label such as
// "current", "stale" or "partial (2 gaps)".
func (s *Styles) IndexState(state string) lipgloss.Style {
	switch {
	case state == "current":
		return s.Success
	case state == "corrupt":
		return s.Error
	case state == "stale", strings.HasPrefix(state, "partial"):
		return s.Warning
	default:
		return s.Muted
	}
}

// Score returns the style for a retrieval similarity. Hits under weak are
// shown faint so a reader can see which citations barely matched.
func (s *Styles) Score(score, weak float64) lipgloss.Style {
	if score < weak {
		return s.Muted
	}
	return s.Citation
}
