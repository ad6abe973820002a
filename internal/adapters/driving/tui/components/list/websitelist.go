// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/runit-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/runit-cli/internal/core/domain"
)

// WebsiteList displays websites in a navigable list.
type WebsiteList struct {
	websites []domain.Website
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewWebsiteList creates a new website list component.
func NewWebsiteList(s *styles.Styles) *WebsiteList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &WebsiteList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the website list.
func (l *WebsiteList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (l *WebsiteList) Update(msg tea.Msg) (*WebsiteList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			l.MoveUp()
		case "down", "j":
			l.MoveDown()
		}
	}
	return l, nil
}

// View renders the website list.
func (l *WebsiteList) View() string {
	if len(l.websites) == 0 {
		return l.styles.Muted.Render("No websites. Add one with 'runit website add'.")
	}

	lines := make([]string, 0, len(l.websites)+2)
	lines = append(lines, l.styles.Subtitle.Render(fmt.Sprintf("Websites (%d)", len(l.websites))), "")

	// Each website takes two lines.
	visibleCount := (l.height - 2) / 2
	if visibleCount < 1 {
		visibleCount = 1
	}

	start := 0
	if l.selected >= visibleCount {
		start = l.selected - visibleCount + 1
	}
	end := start + visibleCount
	if end > len(l.websites) {
		end = len(l.websites)
	}

	for i := start; i < end; i++ {
		lines = append(lines, l.renderWebsite(i, &l.websites[i]))
	}
	return strings.Join(lines, "\n")
}

func (l *WebsiteList) renderWebsite(index int, site *domain.Website) string {
	indicator := "  "
	if index == l.selected {
		indicator = "> "
	}

	name := site.Name
	if name == "" {
		name = site.BrokerID
	}
	maxNameLen := l.width - 20
	if maxNameLen < 10 {
		maxNameLen = 10
	}
	if len(name) > maxNameLen {
		name = name[:maxNameLen-3] + "..."
	}

	var nameLine string
	if index == l.selected {
		nameLine = l.styles.Selected.Render(fmt.Sprintf("%s%-*s", indicator, maxNameLen, name))
	} else {
		nameLine = l.styles.Normal.Render(indicator + name)
	}

	detail := fmt.Sprintf("    %s  %s", site.Domain, site.BrokerID)
	if site.PageCount > 0 {
		detail += fmt.Sprintf("  %d pages", site.PageCount)
	}
	line := nameLine + "\n" + l.styles.Muted.Render(detail)
	if site.Status != "" {
		line += "  " + l.styles.WebsiteStatus(site.Status).Render(site.Status)
	}
	return line
}

// SetWebsites replaces the list contents and resets the selection.
func (l *WebsiteList) SetWebsites(websites []domain.Website) {
	l.websites = websites
	l.selected = 0
}

// Websites returns the listed websites.
func (l *WebsiteList) Websites() []domain.Website {
	return l.websites
}

// Selected returns the index of the selected website.
func (l *WebsiteList) Selected() int {
	return l.selected
}

// SelectedWebsite returns the selected website, or nil if the list is empty.
func (l *WebsiteList) SelectedWebsite() *domain.Website {
	if len(l.websites) == 0 || l.selected < 0 || l.selected >= len(l.websites) {
		return nil
	}
	return &l.websites[l.selected]
}

// MoveUp moves selection up.
func (l *WebsiteList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves selection down.
func (l *WebsiteList) MoveDown() {
	if l.selected < len(l.websites)-1 {
		l.selected++
	}
}

// SetDimensions sets the component dimensions.
func (l *WebsiteList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}

// Count returns the number of websites.
func (l *WebsiteList) Count() int {
	return len(l.websites)
}

// IsEmpty returns whether the list is empty.
func (l *WebsiteList) IsEmpty() bool {
	return len(l.websites) == 0
}
