// Package styles holds the runit palette and the lipgloss styles built from it.
package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the colour palette for the TUI.
type Theme struct {
	Accent    lipgloss.Color // titles and the assistant label
	Highlight lipgloss.Color // the user label and subtitles
	Text      lipgloss.Color
	Subtle    lipgloss.Color // hints, details and placeholders
	Good      lipgloss.Color
	Busy      lipgloss.Color
	Bad       lipgloss.Color
	Frame     lipgloss.Color // input border
	Bar       lipgloss.Color // status bar background
}

// DefaultTheme returns the dark palette runit ships with.
func DefaultTheme() *Theme {
	return &Theme{
		Accent:    lipgloss.Color("#7C3AED"),
		Highlight: lipgloss.Color("#22D3EE"),
		Text:      lipgloss.Color("#E2E8F0"),
		Subtle:    lipgloss.Color("#64748B"),
		Good:      lipgloss.Color("#4ADE80"),
		Busy:      lipgloss.Color("#FACC15"),
		Bad:       lipgloss.Color("#F87171"),
		Frame:     lipgloss.Color("#334155"),
		Bar:       lipgloss.Color("#0F172A"),
	}
}

// Styles are the lipgloss styles shared by every view.
type Styles struct {
	theme *Theme

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style
	Error    lipgloss.Style
	Help     lipgloss.Style

	InputField lipgloss.Style
	StatusBar  lipgloss.Style

	// Conversation.
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	Source         lipgloss.Style

	// Website states in the list.
	Ready    lipgloss.Style
	Crawling lipgloss.Style
}

// NewStyles builds styles from theme, or from DefaultTheme when nil.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

	return &Styles{
		theme: theme,

		Title:    fg(theme.Accent).Bold(true),
		Subtitle: fg(theme.Highlight).Bold(true),
		Normal:   fg(theme.Text),
		Muted:    fg(theme.Subtle),
		Selected: fg(theme.Text).Background(theme.Accent).Bold(true),
		Error:    fg(theme.Bad),
		Help:     fg(theme.Subtle).Italic(true),

		InputField: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Frame).
			Padding(0, 1),
		StatusBar: fg(theme.Subtle).Background(theme.Bar).Padding(0, 1),

		UserLabel:      fg(theme.Highlight).Bold(true),
		AssistantLabel: fg(theme.Accent).Bold(true),
		Source:         fg(theme.Subtle).Underline(true),

		Ready:    fg(theme.Good),
		Crawling: fg(theme.Busy),
	}
}

// DefaultStyles returns styles for DefaultTheme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the palette the styles were built from.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// WebsiteStatus picks the style for a website status reported by the platform.
func (s *Styles) WebsiteStatus(status string) lipgloss.Style {
	switch strings.ToLower(status) {
	case "active", "ready", "completed", "indexed":
		return s.Ready
	case "crawling", "pending", "queued", "running", "processing":
		return s.Crawling
	case "failed", "error", "disabled":
		return s.Error
	default:
		return s.Muted
	}
}
