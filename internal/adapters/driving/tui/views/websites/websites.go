// Package websites provides the website picker view for the TUI.
package websites

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/runit-cli/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/runit-cli/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/runit-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/runit-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/runit-cli/internal/core/domain"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driving"
)

// ErrNoWebsiteService indicates that no website service was provided.
var ErrNoWebsiteService = errors.New("website service not available")

// View lists the websites the user can chat with.
type View struct {
	styles         *styles.Styles
	keymap         *keymap.KeyMap
	websiteService driving.WebsiteService
	crawlService   driving.CrawlService
	list           *list.WebsiteList
	ctx            context.Context
	scope          domain.Scope

	// crawls holds the running watchers by broker ID.
	crawls map[string]driving.PollWatcher
	notice string

	width   int
	height  int
	ready   bool
	err     error
	loading bool
}

// NewView creates a new website picker.
func NewView(s *styles.Styles, km *keymap.KeyMap, websiteService driving.WebsiteService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{
		styles:         s,
		keymap:         km,
		websiteService: websiteService,
		list:           list.NewWebsiteList(s),
		ctx:            context.Background(),
		scope:          domain.ScopeUser,
		crawls:         make(map[string]driving.PollWatcher),
	}
}

// WithCrawlService enables the crawl key.
func (v *View) WithCrawlService(crawl driving.CrawlService) *View {
	v.crawlService = crawl
	return v
}

// WithContext sets the context used for API calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// SetScope sets the route family used to list websites.
func (v *View) SetScope(scope domain.Scope) {
	v.scope = scope
}

// Init loads the websites.
func (v *View) Init() tea.Cmd {
	v.loading = true
	return v.loadWebsites()
}

// loadWebsites captures the service, context and scope now so the returned
// command can run on any goroutine.
func (v *View) loadWebsites() tea.Cmd {
	svc, ctx, scope := v.websiteService, v.ctx, v.scope
	return func() tea.Msg {
		if svc == nil {
			return messages.WebsitesLoaded{Err: ErrNoWebsiteService}
		}
		sites, err := svc.List(ctx, scope)
		return messages.WebsitesLoaded{Websites: sites, Err: err}
	}
}

// startCrawl starts a crawl of the selected website.
func (v *View) startCrawl() tea.Cmd {
	site := v.list.SelectedWebsite()
	if v.crawlService == nil || site == nil {
		return nil
	}
	brokerID := site.BrokerID
	if _, running := v.crawls[brokerID]; running {
		v.notice = fmt.Sprintf("%s is already being crawled", brokerID)
		return nil
	}

	svc, ctx, scope := v.crawlService, v.ctx, v.scope
	v.notice = fmt.Sprintf("Starting crawl of %s...", brokerID)
	return func() tea.Msg {
		job, err := svc.Start(ctx, scope, brokerID, domain.CrawlOptions{})
		return messages.CrawlStarted{BrokerID: brokerID, Job: job, Err: err}
	}
}

// watchCrawl polls a started job. The website list is fetched once when
// the job reaches a terminal status and delivered with CrawlFinished.
func (v *View) watchCrawl(job domain.CrawlJob) tea.Cmd {
	reload := v.loadWebsites()
	var refreshed *messages.WebsitesLoaded
	w := v.crawlService.Watch(v.ctx, job, func(domain.CrawlJob) {
		if loaded, ok := reload().(messages.WebsitesLoaded); ok {
			refreshed = &loaded
		}
	})
	v.crawls[job.BrokerID] = w

	return func() tea.Msg {
		<-w.Done()
		final, err := w.Result()
		return messages.CrawlFinished{Job: final, Err: err, Refreshed: refreshed}
	}
}

// StopCrawls stops polling every running crawl.
func (v *View) StopCrawls() {
	for id, w := range v.crawls {
		w.Stop()
		delete(v.crawls, id)
	}
}

// Update handles messages for the website picker.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.WebsitesLoaded:
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.list.SetWebsites(msg.Websites)
		}
		return v, nil

	case messages.CrawlStarted:
		if msg.Err != nil {
			v.notice = fmt.Sprintf("Could not crawl %s: %v", msg.BrokerID, msg.Err)
			return v, nil
		}
		job := *msg.Job
		if job.BrokerID == "" {
			job.BrokerID = msg.BrokerID
		}
		v.notice = fmt.Sprintf("Crawling %s (job %s)...", job.BrokerID, job.ID)
		return v, v.watchCrawl(job)

	case messages.CrawlFinished:
		delete(v.crawls, msg.Job.BrokerID)
		if msg.Err != nil {
			v.notice = fmt.Sprintf("Crawl %s: status unknown (%v)", msg.Job.ID, msg.Err)
			return v, nil
		}
		v.notice = fmt.Sprintf("Crawl %s: %s", msg.Job.ID, msg.Job.Status)
		if msg.Refreshed == nil {
			return v, nil
		}
		refreshed := *msg.Refreshed
		return v, func() tea.Msg { return refreshed }
	}
	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	k := msg.String()
	switch {
	case keymap.Matches(k, v.keymap.Select):
		site := v.list.SelectedWebsite()
		if site == nil {
			return v, nil
		}
		selected := *site
		return v, func() tea.Msg {
			return messages.WebsiteSelected{Website: selected}
		}
	case keymap.Matches(k, v.keymap.Crawl):
		return v, v.startCrawl()
	case keymap.Matches(k, v.keymap.Refresh):
		v.loading = true
		return v, v.loadWebsites()
	case keymap.Matches(k, v.keymap.Help):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewHelp}
		}
	case keymap.Matches(k, v.keymap.Quit), keymap.Matches(k, v.keymap.Back):
		return v, func() tea.Msg { return messages.Quit{} }
	}

	v.list, _ = v.list.Update(msg)
	return v, nil
}

// View renders the website picker.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("runit"))
	b.WriteString(v.styles.Muted.Render("  pick a website to chat with"))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading websites..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
	default:
		b.WriteString(v.list.View())
	}

	if v.notice != "" {
		b.WriteString("\n\n")
		b.WriteString(v.styles.Muted.Render(v.notice))
	}

	help := "[enter] chat  [r] reload  [?] help  [q] quit"
	if v.crawlService != nil {
		help = "[enter] chat  [c] crawl  [r] reload  [?] help  [q] quit"
	}
	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render(help))
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.list.SetDimensions(width, height-6)
}

// Websites returns the loaded websites.
func (v *View) Websites() []domain.Website {
	return v.list.Websites()
}

// SelectedIndex returns the selected website index.
func (v *View) SelectedIndex() int {
	return v.list.Selected()
}

// Loading returns whether a load is in progress.
func (v *View) Loading() bool {
	return v.loading
}

// Notice returns the last crawl message.
func (v *View) Notice() string {
	return v.notice
}

// Crawling returns whether brokerID has a crawl being watched.
func (v *View) Crawling(brokerID string) bool {
	_, ok := v.crawls[brokerID]
	return ok
}

// Err returns the last load error.
func (v *View) Err() error {
	return v.err
}
