// Package chat provides the streaming conversation view for the TUI.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/runit-cli/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/runit-cli/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/runit-cli/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/runit-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/runit-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/runit-cli/internal/core/domain"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driving"
)

// ErrNoChatService indicates that no chat service was provided.
var ErrNoChatService = errors.New("chat service not available")

// chromeHeight is the number of lines used by the header, input and status bar.
const chromeHeight = 7

// View is a conversation with one website. Only one question may be in
// flight; the input is disabled until its answer reaches a terminal state.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.ChatInput
	viewport  viewport.Model
	statusbar *status.Bar

	chatService driving.ChatService
	ctx         context.Context
	scope       domain.Scope

	website domain.Website
	session driving.ChatSession

	// request numbers sends so updates from an earlier send are dropped.
	request int
	updates <-chan domain.ChatMessage
	cancel  context.CancelFunc

	width  int
	height int
	ready  bool
	err    error
}

// NewView creates a new chat view.
func NewView(s *styles.Styles, km *keymap.KeyMap, chatService driving.ChatService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	bar := status.NewBar(s, km)
	bar.SetInChat(true)

	return &View{
		styles:      s,
		keymap:      km,
		input:       input.NewChatInput(s),
		viewport:    viewport.New(80, 24-chromeHeight),
		statusbar:   bar,
		chatService: chatService,
		ctx:         context.Background(),
		scope:       domain.ScopeUser,
		width:       80,
		height:      24,
	}
}

// WithContext sets the context requests are derived from.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// SetScope sets the route family used for chat requests.
func (v *View) SetScope(scope domain.Scope) {
	v.scope = scope
}

// Open starts a fresh session with a website, closing any previous one.
func (v *View) Open(site domain.Website) tea.Cmd {
	v.Close()
	v.website = site
	v.err = nil
	v.statusbar.Clear()

	if v.chatService == nil {
		v.setError(ErrNoChatService)
		return nil
	}
	session, err := v.chatService.OpenSession(v.ctx, v.scope, site.BrokerID)
	if err != nil {
		v.setError(err)
		return nil
	}
	v.session = session
	v.input.Reset()
	v.refresh()
	return tea.Batch(v.input.Enable(), v.input.Init())
}

// Close cancels the request in flight and releases the session.
func (v *View) Close() {
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	if v.session != nil {
		_ = v.session.Close()
		v.session = nil
	}
	v.updates = nil
	v.request++
}

// Init focuses the input.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.ChatUpdated:
		if msg.Request != v.request || v.updates == nil {
			return v, nil
		}
		v.refresh()
		return v, waitForUpdate(msg.Request, v.updates)

	case messages.ChatFinished:
		if msg.Request != v.request {
			return v, nil
		}
		return v, v.finish()

	case messages.SessionCleared:
		if msg.Err != nil {
			v.setError(msg.Err)
			return v, nil
		}
		v.err = nil
		v.statusbar.SetState(status.StateReady)
		v.statusbar.SetMessage("Conversation cleared")
		v.refresh()
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case keymap.Matches(msg.String(), v.keymap.Cancel):
		if v.Busy() {
			v.cancel()
			v.statusbar.SetMessage("Cancelling...")
			return v, nil
		}
		v.Close()
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewWebsites}
		}

	case keymap.Matches(msg.String(), v.keymap.Send):
		return v, v.send()

	case keymap.Matches(msg.String(), v.keymap.Clear):
		if v.Busy() || v.session == nil {
			return v, nil
		}
		session := v.session
		ctx := v.ctx
		return v, func() tea.Msg {
			return messages.SessionCleared{Err: session.Clear(ctx)}
		}

	case keymap.Matches(msg.String(), v.keymap.ScrollUp):
		v.viewport.PageUp()
		return v, nil

	case keymap.Matches(msg.String(), v.keymap.ScrollDown):
		v.viewport.PageDown()
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// send submits the typed question and starts listening for updates.
func (v *View) send() tea.Cmd {
	query := strings.TrimSpace(v.input.Value())
	if query == "" || v.session == nil || v.Busy() {
		return nil
	}

	ctx, cancel := context.WithCancel(v.ctx)
	updates, err := v.session.Send(ctx, query)
	if err != nil {
		cancel()
		v.setError(err)
		return nil
	}

	v.request++
	v.updates = updates
	v.cancel = cancel
	v.err = nil
	v.input.Reset()
	v.input.Disable()
	v.statusbar.SetMessage("")
	v.statusbar.SetState(status.StateStreaming)
	v.refresh()
	return waitForUpdate(v.request, updates)
}

// finish re-enables input once the update channel is closed.
func (v *View) finish() tea.Cmd {
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.updates = nil
	v.statusbar.SetState(status.StateReady)
	v.statusbar.SetMessage("")
	v.refresh()
	return v.input.Enable()
}

// waitForUpdate reads one update from the channel of a send.
func waitForUpdate(request int, updates <-chan domain.ChatMessage) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-updates
		if !ok {
			return messages.ChatFinished{Request: request}
		}
		return messages.ChatUpdated{Request: request, Message: msg}
	}
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// refresh re-renders the conversation and keeps the newest text visible.
func (v *View) refresh() {
	var msgs []domain.ChatMessage
	if v.session != nil {
		msgs = v.session.Messages()
	}
	v.statusbar.SetMessageCount(len(msgs))
	v.viewport.SetContent(v.renderMessages(msgs))
	v.viewport.GotoBottom()
}

func (v *View) renderMessages(msgs []domain.ChatMessage) string {
	if len(msgs) == 0 {
		greeting := "Ask anything about " + v.website.Name + "."
		if v.website.Name == "" {
			greeting = "Ask a question to start."
		}
		return v.styles.Muted.Render(greeting)
	}

	body := lipgloss.NewStyle().Width(max(v.width-2, 20))
	blocks := make([]string, 0, len(msgs))
	for i := range msgs {
		m := &msgs[i]
		var b strings.Builder
		switch m.Role {
		case domain.RoleUser:
			b.WriteString(v.styles.UserLabel.Render("You"))
			b.WriteString("\n")
			b.WriteString(body.Render(m.Text))
		case domain.RoleError:
			b.WriteString(v.styles.Error.Render(body.Render(m.Text)))
		default:
			b.WriteString(v.styles.AssistantLabel.Render("Assistant"))
			b.WriteString("\n")
			text := m.Text
			if m.State == domain.MessageStreaming {
				text += "▍"
			}
			b.WriteString(body.Render(text))
			for j, src := range m.Sources {
				label := src.Title
				if label == "" {
					label = src.URL
				}
				b.WriteString("\n")
				b.WriteString(v.styles.Muted.Render(fmt.Sprintf("[%d] ", j+1)))
				b.WriteString(v.styles.Source.Render(label))
			}
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

// View renders the chat view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	title := v.website.Name
	if title == "" {
		title = v.website.BrokerID
	}
	header := v.styles.Title.Render(title)
	if v.website.Domain != "" {
		header += v.styles.Muted.Render("  " + v.website.Domain)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		v.viewport.View(),
		v.input.View(),
		v.statusbar.View(),
	)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.viewport.Width = width
	v.viewport.Height = max(height-chromeHeight, 3)
	v.refresh()
}

// Busy returns true while a request is in flight.
func (v *View) Busy() bool {
	return v.cancel != nil
}

// Website returns the website being chatted with.
func (v *View) Website() domain.Website {
	return v.website
}

// SetWebsite updates the website details shown in the header.
func (v *View) SetWebsite(site domain.Website) {
	if site.BrokerID != v.website.BrokerID {
		return
	}
	v.website = site
	v.refresh()
}

// Session returns the open session, or nil.
func (v *View) Session() driving.ChatSession {
	return v.session
}

// InputDisabled returns whether the input is ignoring keys.
func (v *View) InputDisabled() bool {
	return v.input.Disabled()
}

// Input returns the current input text.
func (v *View) Input() string {
	return v.input.Value()
}

// Content returns the rendered conversation.
func (v *View) Content() string {
	var msgs []domain.ChatMessage
	if v.session != nil {
		msgs = v.session.Messages()
	}
	return v.renderMessages(msgs)
}

// Err returns the last error, if any.
func (v *View) Err() error {
	return v.err
}
