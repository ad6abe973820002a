// Package status renders the one-line bar under the chat.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/runit-cli/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/runit-cli/internal/adapters/driving/tui/styles"
)

// State is what the chat is doing.
type State string

const (
	StateReady     State = "ready"
	StateStreaming State = "streaming"
	StateError     State = "error"
)

// minHintGap keeps the message and the key hints apart when space is short.
const minHintGap = 2

// Bar shows the chat state on the left and key hints on the right.
// It holds no tea state; the chat view sets it directly.
type Bar struct {
	styles *styles.Styles
	keymap *keymap.KeyMap

	state        State
	message      string
	messageCount int
	inChat       bool
	width        int
}

// NewBar creates a ready bar 80 columns wide.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{styles: s, keymap: km, state: StateReady, width: 80}
}

// View renders the bar. The left side is cut short before the hints are.
func (s *Bar) View() string {
	inner := s.width - s.styles.StatusBar.GetHorizontalPadding()
	hints := s.hints()
	room := inner - lipgloss.Width(hints) - minHintGap
	left := s.status(room)

	gap := max(inner-lipgloss.Width(left)-lipgloss.Width(hints), minHintGap)
	return s.styles.StatusBar.Width(s.width).Render(left + strings.Repeat(" ", gap) + hints)
}

func (s *Bar) status(room int) string {
	switch s.state {
	case StateStreaming:
		return s.styles.Normal.Render(truncate("Answering...", room))
	case StateError:
		text := "Error"
		if s.message != "" {
			text = "Error: " + s.message
		}
		return s.styles.Error.Render(truncate(text, room))
	}

	switch {
	case s.message != "":
		return s.styles.Normal.Render(truncate(s.message, room))
	case s.messageCount == 1:
		return s.styles.Normal.Render("1 message")
	case s.messageCount > 1:
		return s.styles.Normal.Render(fmt.Sprintf("%d messages", s.messageCount))
	}
	return s.styles.Muted.Render("Ready")
}

func (s *Bar) hints() string {
	var bindings []key.Binding
	switch {
	case s.state == StateStreaming:
		bindings = s.keymap.StreamingHelp()
	case s.inChat:
		bindings = s.keymap.ChatHelp()
	default:
		bindings = s.keymap.ShortHelp()
	}

	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return s.styles.Muted.Render(strings.Join(parts, " | "))
}

// truncate shortens text to width runes, ending with an ellipsis.
func truncate(text string, width int) string {
	runes := []rune(text)
	if width <= 0 || len(runes) <= width {
		return text
	}
	if width == 1 {
		return "…"
	}
	return string(runes[:width-1]) + "…"
}

// SetState changes the state. The message is kept.
func (s *Bar) SetState(state State) { s.state = state }

// State returns the current state.
func (s *Bar) State() State { return s.state }

// SetMessage sets the text shown instead of the message count.
func (s *Bar) SetMessage(message string) { s.message = message }

// Message returns the current message.
func (s *Bar) Message() string { return s.message }

// SetMessageCount sets the number of chat messages shown when idle.
func (s *Bar) SetMessageCount(count int) { s.messageCount = count }

// SetInChat switches the hints to the chat keybindings.
func (s *Bar) SetInChat(inChat bool) { s.inChat = inChat }

// SetWidth sets the width in columns.
func (s *Bar) SetWidth(width int) { s.width = width }

// Clear returns to ready with no message or count.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
	s.messageCount = 0
}
