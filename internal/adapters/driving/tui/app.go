package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/runit-cli/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/runit-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/runit-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/runit-cli/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/runit-cli/internal/adapters/driving/tui/views/websites"
	"github.com/custodia-labs/runit-cli/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	// scope overrides the scope resolved from Auth when set.
	scope domain.Scope

	// initial, when set, opens a chat with this website on start.
	initial *domain.Website

	styles *styles.Styles
	keymap *keymap.KeyMap

	websitesView *websites.View
	chatView     *chat.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// previousView is restored when leaving help.
	previousView messages.ViewType

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:        ports,
		ctx:          context.Background(),
		styles:       s,
		keymap:       km,
		websitesView: websites.NewView(s, km, ports.Website).WithCrawlService(ports.Crawl),
		chatView:     chat.NewView(s, km, ports.Chat),
		currentView:  messages.ViewWebsites,
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.websitesView.WithContext(ctx)
	a.chatView.WithContext(ctx)
	return a
}

// WithScope forces the route family instead of deriving it from the login.
func (a *App) WithScope(scope domain.Scope) *App {
	a.scope = scope
	return a
}

// WithWebsite opens a chat with brokerID as soon as the program starts.
func (a *App) WithWebsite(brokerID string) *App {
	if brokerID != "" {
		a.initial = &domain.Website{BrokerID: brokerID}
	}
	return a
}

// resolveScope returns the scope for website and chat requests.
func (a *App) resolveScope() domain.Scope {
	if a.scope != "" {
		return a.scope
	}
	if a.ports.Auth != nil {
		return a.ports.Auth.Scope(a.ctx)
	}
	return domain.ScopeUser
}

// Init implements tea.Model.
// It runs initial commands when the program starts.
func (a *App) Init() tea.Cmd {
	scope := a.resolveScope()
	a.websitesView.SetScope(scope)
	a.chatView.SetScope(scope)

	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tea.SetWindowTitle("runit - chat"),
		a.websitesView.Init(),
	}
	if a.initial != nil {
		site := *a.initial
		cmds = append(cmds, func() tea.Msg {
			return messages.WebsiteSelected{Website: site}
		})
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
// It handles messages and updates the model state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		// Global quit with ctrl+c
		if msg.String() == "ctrl+c" {
			a.shutdown()
			return a, tea.Quit
		}

		switch a.currentView {
		case messages.ViewWebsites:
			a.websitesView, cmd = a.websitesView.Update(msg)
		case messages.ViewChat:
			a.chatView, cmd = a.chatView.Update(msg)
		case messages.ViewHelp:
			if msg.Type == tea.KeyEsc || msg.String() == "q" || msg.String() == "?" {
				a.currentView = a.previousView
			}
		}
		return a, cmd

	case messages.ViewChanged:
		if msg.View == messages.ViewHelp {
			a.previousView = a.currentView
		}
		a.currentView = msg.View
		return a, nil

	case messages.WebsitesLoaded:
		a.err = msg.Err
		a.websitesView, cmd = a.websitesView.Update(msg)
		a.enrichChatWebsite(msg.Websites)
		return a, cmd

	case messages.WebsiteSelected:
		a.currentView = messages.ViewChat
		cmd = a.chatView.Open(a.lookupWebsite(msg.Website))
		a.err = a.chatView.Err()
		return a, cmd

	case messages.CrawlStarted, messages.CrawlFinished:
		a.websitesView, cmd = a.websitesView.Update(msg)
		return a, cmd

	case messages.ChatUpdated, messages.ChatFinished, messages.SessionCleared:
		a.chatView, cmd = a.chatView.Update(msg)
		return a, cmd

	case messages.SessionChanged:
		return a, a.handleSessionChanged(msg)

	case messages.ErrorOccurred:
		a.err = msg.Err
		if a.currentView == messages.ViewChat {
			a.chatView, cmd = a.chatView.Update(msg)
		}
		return a, cmd

	case messages.Quit:
		a.shutdown()
		return a, tea.Quit
	}

	// Forward other messages (cursor blink) to the active view.
	switch a.currentView {
	case messages.ViewChat:
		a.chatView, cmd = a.chatView.Update(msg)
	case messages.ViewWebsites:
		a.websitesView, cmd = a.websitesView.Update(msg)
	case messages.ViewHelp:
	}
	return a, cmd
}

// shutdown releases the chat session and stops crawl polling.
func (a *App) shutdown() {
	a.chatView.Close()
	a.websitesView.StopCrawls()
}

// handleSessionChanged reacts to `runit login` or `runit logout` run elsewhere.
func (a *App) handleSessionChanged(msg messages.SessionChanged) tea.Cmd {
	a.chatView.Close()
	a.currentView = messages.ViewWebsites

	if msg.Session == nil {
		a.err = ErrSignedOut
		a.websitesView.Update(messages.WebsitesLoaded{Err: ErrSignedOut})
		return nil
	}

	a.err = nil
	scope := a.scope
	if scope == "" {
		scope = msg.Session.DefaultScope()
	}
	a.websitesView.SetScope(scope)
	a.chatView.SetScope(scope)
	return a.websitesView.Init()
}

// lookupWebsite fills in a website picked by broker ID from the loaded list.
func (a *App) lookupWebsite(site domain.Website) domain.Website {
	for _, w := range a.websitesView.Websites() {
		if w.BrokerID == site.BrokerID {
			return w
		}
	}
	return site
}

// enrichChatWebsite updates the chat header once websites arrive after
// a chat was opened by broker ID.
func (a *App) enrichChatWebsite(sites []domain.Website) {
	current := a.chatView.Website()
	if current.Name != "" || current.BrokerID == "" {
		return
	}
	for _, w := range sites {
		if w.BrokerID == current.BrokerID {
			a.chatView.SetWebsite(w)
			return
		}
	}
}

// View implements tea.Model.
// It renders the current view as a string.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewChat:
		return a.chatView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.websitesView.View()
	}
}

// helpSections names the groups returned by KeyMap.FullHelp.
var helpSections = []string{"Websites", "Chat", "General"}

// viewHelp renders the help view from the keymap.
func (a *App) viewHelp() string {
	var b strings.Builder
	b.WriteString(a.styles.Title.Render("Help"))
	b.WriteString("\n")

	for i, group := range a.keymap.FullHelp() {
		if i < len(helpSections) {
			b.WriteString("\n")
			b.WriteString(a.styles.Subtitle.Render(helpSections[i]))
			b.WriteString("\n")
		}
		for _, binding := range group {
			h := binding.Help()
			fmt.Fprintf(&b, "  %-12s %s\n", h.Key, h.Desc)
		}
	}

	b.WriteString("\n  ctrl+c       quit from anywhere\n\n")
	b.WriteString(a.styles.Help.Render("[esc] back"))
	return b.String()
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.websitesView.SetDimensions(width, height)
	a.chatView.SetDimensions(width, height)
}
