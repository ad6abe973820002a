package mcp

import (
	"context"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driving"
)

// mockChatSession is a mock implementation of driving.ChatSession.
// Send replays updates on a closed, buffered channel.
type mockChatSession struct {
	id      string
	broker  string
	updates []domain.ChatMessage
	sendErr error
	query   string
	closed  bool
}

func (m *mockChatSession) ID() string                     { return m.id }
func (m *mockChatSession) BrokerID() string               { return m.broker }
func (m *mockChatSession) Messages() []domain.ChatMessage { return m.updates }
func (m *mockChatSession) Busy() bool                     { return false }

func (m *mockChatSession) Send(_ context.Context, query string) (<-chan domain.ChatMessage, error) {
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.query = query
	ch := make(chan domain.ChatMessage, len(m.updates))
	for _, u := range m.updates {
		ch <- u
	}
	close(ch)
	return ch, nil
}

func (m *mockChatSession) History(_ context.Context) ([]domain.HistoryEntry, error) {
	return nil, nil
}

func (m *mockChatSession) Clear(_ context.Context) error { return nil }

func (m *mockChatSession) Close() error {
	m.closed = true
	return nil
}

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	session   *mockChatSession
	err       error
	scope     domain.Scope
	broker    string
	resumedID string
}

func (m *mockChatService) OpenSession(_ context.Context, scope domain.Scope, brokerID string) (driving.ChatSession, error) {
	m.scope = scope
	m.broker = brokerID
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}

func (m *mockChatService) ResumeSession(
	_ context.Context,
	scope domain.Scope,
	brokerID, sessionID string,
) (driving.ChatSession, error) {
	m.scope = scope
	m.broker = brokerID
	m.resumedID = sessionID
	if m.err != nil {
		return nil, m.err
	}
	m.session.id = sessionID
	return m.session, nil
}

func (m *mockChatService) NewSession(_ context.Context) (string, error) {
	return "session_new", nil
}

func (m *mockChatService) SessionHistory(_ context.Context, _ string) ([]domain.HistoryEntry, error) {
	return nil, nil
}

func (m *mockChatService) ClearSession(_ context.Context, _ string) error { return nil }

func (m *mockChatService) Query(
	_ context.Context,
	_ domain.Scope,
	_, _ string,
	_ domain.QueryOptions,
) (*domain.QueryResult, error) {
	return nil, m.err
}

// mockWebsiteService is a mock implementation of driving.WebsiteService.
type mockWebsiteService struct {
	websites []domain.Website
	stats    *domain.WebsiteStats
	err      error
	scope    domain.Scope
	broker   string
}

func (m *mockWebsiteService) List(_ context.Context, scope domain.Scope) ([]domain.Website, error) {
	m.scope = scope
	return m.websites, m.err
}

func (m *mockWebsiteService) Get(_ context.Context, _ domain.Scope, _ string) (*domain.Website, error) {
	return nil, m.err
}

func (m *mockWebsiteService) Create(_ context.Context, _ domain.Scope, site domain.Website) (*domain.Website, error) {
	return &site, m.err
}

func (m *mockWebsiteService) Update(_ context.Context, _ domain.Scope, site domain.Website) (*domain.Website, error) {
	return &site, m.err
}

func (m *mockWebsiteService) Delete(_ context.Context, _ domain.Scope, _ string) error {
	return m.err
}

func (m *mockWebsiteService) Stats(_ context.Context, scope domain.Scope, brokerID string) (*domain.WebsiteStats, error) {
	m.scope = scope
	m.broker = brokerID
	return m.stats, m.err
}

func (m *mockWebsiteService) Dashboard(_ context.Context, _ domain.Scope) (*domain.DashboardStats, error) {
	return nil, m.err
}

// mockCrawlService is a mock implementation of driving.CrawlService.
type mockCrawlService struct {
	driving.CrawlService
	job   *domain.CrawlJob
	jobs  []domain.CrawlJob
	err   error
	limit int
}

func (m *mockCrawlService) Status(_ context.Context, _ domain.Scope, _ string) (*domain.CrawlJob, error) {
	return m.job, m.err
}

func (m *mockCrawlService) History(_ context.Context, limit int) ([]domain.CrawlJob, error) {
	m.limit = limit
	return m.jobs, m.err
}

// mockAuthService is a mock implementation of driving.AuthService.
// Only Scope is used by the server.
type mockAuthService struct {
	driving.AuthService
	scope domain.Scope
}

func (m *mockAuthService) Scope(_ context.Context) domain.Scope {
	return m.scope
}
