// Package input provides text input components for the TUI.
package input

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/runit-cli/internal/adapters/driving/tui/styles"
)

const (
	idlePlaceholder = "Ask a question..."
	busyPlaceholder = "Waiting for the answer (esc to cancel)"
)

// ChatInput wraps a bubbles textinput for composing questions.
// A disabled input ignores key presses.
type ChatInput struct {
	textinput textinput.Model
	styles    *styles.Styles
	width     int
	disabled  bool
}

// NewChatInput creates a new chat input component.
func NewChatInput(s *styles.Styles) *ChatInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = idlePlaceholder
	ti.Focus()
	ti.CharLimit = 2000
	ti.Width = 50

	return &ChatInput{
		textinput: ti,
		styles:    s,
		width:     50,
	}
}

// Init initialises the chat input.
func (c *ChatInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input messages.
func (c *ChatInput) Update(msg tea.Msg) (*ChatInput, tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); ok && c.disabled {
		return c, nil
	}
	var cmd tea.Cmd
	c.textinput, cmd = c.textinput.Update(msg)
	return c, cmd
}

// View renders the chat input.
func (c *ChatInput) View() string {
	label := c.styles.UserLabel.Render("You: ")
	field := c.styles.InputField
	if c.disabled {
		field = field.Foreground(c.styles.Theme().Subtle)
	}
	//nolint:misspell // lipgloss.Center is the correct constant from the library
	return lipgloss.JoinHorizontal(lipgloss.Center, label, field.Render(c.textinput.View()))
}

// Value returns the current input value.
func (c *ChatInput) Value() string {
	return c.textinput.Value()
}

// SetValue sets the input value.
func (c *ChatInput) SetValue(value string) {
	c.textinput.SetValue(value)
}

// Disable blurs the input and stops it accepting keys.
func (c *ChatInput) Disable() {
	c.disabled = true
	c.textinput.Placeholder = busyPlaceholder
	c.textinput.Blur()
}

// Enable focuses the input again.
func (c *ChatInput) Enable() tea.Cmd {
	c.disabled = false
	c.textinput.Placeholder = idlePlaceholder
	return c.textinput.Focus()
}

// Disabled returns whether key presses are ignored.
func (c *ChatInput) Disabled() bool {
	return c.disabled
}

// Focused returns whether the input is focused.
func (c *ChatInput) Focused() bool {
	return c.textinput.Focused()
}

// SetWidth sets the width of the input.
func (c *ChatInput) SetWidth(width int) {
	c.width = width
	// Account for label and padding
	inputWidth := width - 10
	if inputWidth < 20 {
		inputWidth = 20
	}
	c.textinput.Width = inputWidth
}

// Width returns the current width.
func (c *ChatInput) Width() int {
	return c.width
}

// Reset clears the input.
func (c *ChatInput) Reset() {
	c.textinput.Reset()
}
