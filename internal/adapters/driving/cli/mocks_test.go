package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driving"
)

// executeCommand runs rootCmd with args against services and returns
// everything written to stdout and stderr.
func executeCommand(t *testing.T, services *Services, stdin string, args ...string) (string, error) {
	t.Helper()

	resetFlags(rootCmd)
	SetServices(services)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		SetServices(nil)
		resetFlags(rootCmd)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// resetFlags restores every flag to its default so runs do not leak state.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// mockAuthService implements driving.AuthService.
type mockAuthService struct {
	session   *domain.Session
	err       error
	scope     domain.Scope
	email     string
	otp       string
	otpSentTo string
	signup    domain.SignupRequest
	update    domain.ProfileUpdate
	loggedOut bool
	key       *domain.APIKey
}

func (m *mockAuthService) RequestLoginOTP(_ context.Context, email string) error {
	m.otpSentTo = email
	return m.err
}

func (m *mockAuthService) Login(_ context.Context, email, otp string) (*domain.Session, error) {
	m.email, m.otp = email, otp
	return m.session, m.err
}

func (m *mockAuthService) RequestSignupOTP(_ context.Context, req domain.SignupRequest) error {
	m.signup = req
	m.otpSentTo = req.Email
	return m.err
}

func (m *mockAuthService) Signup(_ context.Context, email, otp string) (*domain.Session, error) {
	m.email, m.otp = email, otp
	return m.session, m.err
}

func (m *mockAuthService) Logout(_ context.Context) error {
	m.loggedOut = true
	return m.err
}

func (m *mockAuthService) Current(_ context.Context) (*domain.Session, error) {
	if m.session == nil && m.err == nil {
		return nil, domain.ErrAuthRequired
	}
	return m.session, m.err
}

func (m *mockAuthService) UpdateProfile(_ context.Context, update domain.ProfileUpdate) (*domain.Profile, error) {
	m.update = update
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Profile{Name: update.Name, Company: update.Company}, nil
}

func (m *mockAuthService) GenerateAPIKey(_ context.Context, name string) (*domain.APIKey, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.key != nil {
		return m.key, nil
	}
	return &domain.APIKey{Name: name, Key: "rk_live_123456789"}, nil
}

func (m *mockAuthService) Scope(_ context.Context) domain.Scope {
	if m.scope == "" {
		return domain.ScopeUser
	}
	return m.scope
}

// mockWebsiteService implements driving.WebsiteService.
type mockWebsiteService struct {
	websites  []domain.Website
	website   *domain.Website
	stats     *domain.WebsiteStats
	dashboard *domain.DashboardStats
	err       error
	scope     domain.Scope
	created   *domain.Website
	updated   *domain.Website
	deleted   string
	gets      int
	onGet     func()
}

func (m *mockWebsiteService) List(_ context.Context, scope domain.Scope) ([]domain.Website, error) {
	m.scope = scope
	return m.websites, m.err
}

func (m *mockWebsiteService) Get(_ context.Context, scope domain.Scope, brokerID string) (*domain.Website, error) {
	m.scope = scope
	m.gets++
	if m.onGet != nil {
		m.onGet()
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.website != nil {
		site := *m.website
		return &site, nil
	}
	return &domain.Website{BrokerID: brokerID}, nil
}

func (m *mockWebsiteService) Create(_ context.Context, scope domain.Scope, site domain.Website) (*domain.Website, error) {
	m.scope = scope
	if m.err != nil {
		return nil, m.err
	}
	site.BrokerID = "WEB_NEW"
	m.created = &site
	return &site, nil
}

func (m *mockWebsiteService) Update(_ context.Context, scope domain.Scope, site domain.Website) (*domain.Website, error) {
	m.scope = scope
	if m.err != nil {
		return nil, m.err
	}
	m.updated = &site
	return &site, nil
}

func (m *mockWebsiteService) Delete(_ context.Context, scope domain.Scope, brokerID string) error {
	m.scope = scope
	m.deleted = brokerID
	return m.err
}

func (m *mockWebsiteService) Stats(_ context.Context, scope domain.Scope, _ string) (*domain.WebsiteStats, error) {
	m.scope = scope
	return m.stats, m.err
}

func (m *mockWebsiteService) Dashboard(_ context.Context, scope domain.Scope) (*domain.DashboardStats, error) {
	m.scope = scope
	return m.dashboard, m.err
}

// mockChatSession implements driving.ChatSession. Each Send replays the
// next scripted reply on a closed channel.
type mockChatSession struct {
	mu      sync.Mutex
	id      string
	replies [][]domain.ChatMessage
	sent    []string
	history []domain.HistoryEntry
	cleared bool
	closed  bool
}

func (m *mockChatSession) ID() string                     { return m.id }
func (m *mockChatSession) BrokerID() string               { return "WEB1" }
func (m *mockChatSession) Messages() []domain.ChatMessage { return nil }
func (m *mockChatSession) Busy() bool                     { return false }

func (m *mockChatSession) Send(_ context.Context, query string) (<-chan domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent = append(m.sent, query)
	var reply []domain.ChatMessage
	if len(m.replies) > 0 {
		reply, m.replies = m.replies[0], m.replies[1:]
	}
	ch := make(chan domain.ChatMessage, len(reply))
	for _, msg := range reply {
		ch <- msg
	}
	close(ch)
	return ch, nil
}

func (m *mockChatSession) History(_ context.Context) ([]domain.HistoryEntry, error) {
	return m.history, nil
}

func (m *mockChatSession) Clear(_ context.Context) error {
	m.cleared = true
	return nil
}

func (m *mockChatSession) Close() error {
	m.closed = true
	return nil
}

// mockChatService implements driving.ChatService.
type mockChatService struct {
	session   *mockChatSession
	result    *domain.QueryResult
	history   []domain.HistoryEntry
	err       error
	scope     domain.Scope
	broker    string
	resumedID string
	clearedID string
	query     string
	opts      domain.QueryOptions
}

func (m *mockChatService) OpenSession(_ context.Context, scope domain.Scope, brokerID string) (driving.ChatSession, error) {
	m.scope, m.broker = scope, brokerID
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}

func (m *mockChatService) ResumeSession(
	_ context.Context, scope domain.Scope, brokerID, sessionID string,
) (driving.ChatSession, error) {
	m.scope, m.broker, m.resumedID = scope, brokerID, sessionID
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}

func (m *mockChatService) NewSession(_ context.Context) (string, error) {
	return "session_1700000000000_abc123", m.err
}

func (m *mockChatService) SessionHistory(_ context.Context, _ string) ([]domain.HistoryEntry, error) {
	return m.history, m.err
}

func (m *mockChatService) ClearSession(_ context.Context, sessionID string) error {
	m.clearedID = sessionID
	return m.err
}

func (m *mockChatService) Query(
	_ context.Context, scope domain.Scope, brokerID, query string, opts domain.QueryOptions,
) (*domain.QueryResult, error) {
	m.scope, m.broker, m.query, m.opts = scope, brokerID, query, opts
	return m.result, m.err
}

// mockCrawlService implements driving.CrawlService.
type mockCrawlService struct {
	job      *domain.CrawlJob
	final    domain.CrawlJob
	watchErr error
	jobs     []domain.CrawlJob
	refused  []string
	logs     []domain.CrawlLogEntry
	err      error
	scope    domain.Scope
	opts     domain.CrawlOptions
	watched  bool
	limit    int

	// polls scripts the statuses Watch observes, one per poll.
	polls     []domain.CrawlStatus
	pollCount int
}

func (m *mockCrawlService) Start(
	_ context.Context, scope domain.Scope, brokerID string, opts domain.CrawlOptions,
) (*domain.CrawlJob, error) {
	m.scope, m.opts = scope, opts
	if m.err != nil {
		return nil, m.err
	}
	return &domain.CrawlJob{ID: "job_1", BrokerID: brokerID, Scope: scope, Status: domain.CrawlQueued}, nil
}

func (m *mockCrawlService) StartBatch(_ context.Context, _ []string) ([]domain.CrawlJob, []string, error) {
	return m.jobs, m.refused, m.err
}

func (m *mockCrawlService) Status(_ context.Context, scope domain.Scope, _ string) (*domain.CrawlJob, error) {
	m.scope = scope
	return m.job, m.err
}

func (m *mockCrawlService) Watch(_ context.Context, _ domain.CrawlJob, onFinish func(domain.CrawlJob)) driving.PollWatcher {
	m.watched = true
	if len(m.polls) > 0 {
		final := m.final
		for _, status := range m.polls {
			m.pollCount++
			final.Status = status
			if status.IsTerminal() {
				onFinish(final)
				break
			}
		}
		return &finishedWatcher{job: final}
	}
	if m.watchErr == nil {
		onFinish(m.final)
	}
	return &finishedWatcher{job: m.final, err: m.watchErr}
}

func (m *mockCrawlService) WatchAll(_ context.Context, jobs []domain.CrawlJob) ([]domain.CrawlJob, error) {
	m.watched = true
	final := make([]domain.CrawlJob, len(jobs))
	for i, j := range jobs {
		j.Status = domain.CrawlCompleted
		final[i] = j
	}
	return final, m.watchErr
}

func (m *mockCrawlService) History(_ context.Context, limit int) ([]domain.CrawlJob, error) {
	m.limit = limit
	return m.jobs, m.err
}

func (m *mockCrawlService) ArchivedLogs(_ context.Context, _ string) ([]domain.CrawlLogEntry, error) {
	return m.logs, m.err
}

// finishedWatcher is a driving.PollWatcher that has already ended.
type finishedWatcher struct {
	job domain.CrawlJob
	err error
}

func (w *finishedWatcher) Stop() {}

func (w *finishedWatcher) Done() <-chan struct{} {
	done := make(chan struct{})
	close(done)
	return done
}

func (w *finishedWatcher) Result() (domain.CrawlJob, error) {
	return w.job, w.err
}

// mockCrawlLogService implements driving.CrawlLogService.
type mockCrawlLogService struct {
	entries []domain.CrawlLogEntry
	err     error
}

func (m *mockCrawlLogService) Open(_ context.Context, _ domain.Scope, _ string) (driving.LogStream, error) {
	if m.err != nil {
		return nil, m.err
	}
	return newEndedStream(m.entries), nil
}

// endedStream is a driving.LogStream whose server already closed it.
type endedStream struct {
	entries chan domain.CrawlLogEntry
	done    chan struct{}
	all     []domain.CrawlLogEntry
}

func newEndedStream(entries []domain.CrawlLogEntry) *endedStream {
	s := &endedStream{
		entries: make(chan domain.CrawlLogEntry, len(entries)),
		done:    make(chan struct{}),
		all:     entries,
	}
	for _, e := range entries {
		s.entries <- e
	}
	close(s.entries)
	close(s.done)
	return s
}

func (s *endedStream) Entries() <-chan domain.CrawlLogEntry { return s.entries }
func (s *endedStream) Snapshot() []domain.CrawlLogEntry     { return s.all }
func (s *endedStream) Connected() bool                      { return false }
func (s *endedStream) Done() <-chan struct{}                { return s.done }
func (s *endedStream) Err() error                           { return nil }
func (s *endedStream) Close() error                         { return nil }

// mockWidgetService implements driving.WidgetService.
type mockWidgetService struct {
	settings *domain.WidgetSettings
	saved    *domain.WidgetSettings
	err      error
}

func (m *mockWidgetService) Get(_ context.Context, _ string) (*domain.WidgetSettings, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.settings != nil {
		s := *m.settings
		return &s, nil
	}
	s := domain.DefaultWidgetSettings()
	return &s, nil
}

func (m *mockWidgetService) Update(_ context.Context, _ string, settings domain.WidgetSettings) error {
	m.saved = &settings
	return settings.Validate()
}

func (m *mockWidgetService) EmbedSnippet(_ context.Context, brokerID string) (string, error) {
	return `<script src="https://cdn.runit.in/widget.js" data-broker-id="` + brokerID + `"></script>` + "\n", m.err
}

// mockSettingsService implements driving.SettingsService.
type mockSettingsService struct {
	settings domain.ClientSettings
	raw      map[string]any
	setKey   string
	setValue string
	err      error
}

func (m *mockSettingsService) Get() domain.ClientSettings { return m.settings }

func (m *mockSettingsService) Set(key, value string) error {
	m.setKey, m.setValue = key, value
	return m.err
}

func (m *mockSettingsService) Raw(key string) (any, bool) {
	v, ok := m.raw[key]
	return v, ok
}

func (m *mockSettingsService) GetDefaults() domain.ClientSettings { return m.settings }
