package services

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driven"
)

// mockPlatform is a hand-written driven.Platform for service tests.
// Each field overrides one call; unset calls return zero values.
type mockPlatform struct {
	mu sync.Mutex

	openChat       func(ctx context.Context, scope domain.Scope, req driven.ChatRequest) (io.ReadCloser, error)
	chatRequests   []driven.ChatRequest
	query          func(brokerID, query string) (*domain.QueryResult, error)
	history        []domain.HistoryEntry
	clearedSession string
	clearSession   func(ctx context.Context) error
	newSessionID   string

	startCrawl   func(scope domain.Scope, brokerID string) (string, error)
	startBatch   func(brokerIDs []string) (*domain.BatchCrawlResult, error)
	crawlStatus  func(ctx context.Context, scope domain.Scope, jobID string) (*domain.CrawlStatusReport, error)
	statusCalls  int
	openLogs     func(ctx context.Context, scope domain.Scope, jobID string) (io.ReadCloser, error)
	logScopeSeen domain.Scope

	session        *domain.Session
	verifyErr      error
	profile        *domain.Profile
	otpRequests    []string
	signupRequests []domain.SignupRequest
	apiKeyNames    []string

	websites     []domain.Website
	created      []domain.Website
	updated      []domain.Website
	deleted      []string
	stats        *domain.WebsiteStats
	dashboard    *domain.DashboardStats
	widget       *domain.WidgetSettings
	widgetErr    error
	widgetSaved  []domain.WidgetSettings
	widgetAPIKey string
	widgetKeyErr error
}

var _ driven.Platform = (*mockPlatform)(nil)

func streamBody(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}

// Chat

func (m *mockPlatform) OpenChat(ctx context.Context, scope domain.Scope, req driven.ChatRequest) (io.ReadCloser, error) {
	m.mu.Lock()
	m.chatRequests = append(m.chatRequests, req)
	fn := m.openChat
	m.mu.Unlock()
	if fn == nil {
		return streamBody(""), nil
	}
	return fn(ctx, scope, req)
}

func (m *mockPlatform) Query(
	_ context.Context, _ domain.Scope, brokerID, query string, _ domain.QueryOptions,
) (*domain.QueryResult, error) {
	if m.query == nil {
		return &domain.QueryResult{}, nil
	}
	return m.query(brokerID, query)
}

func (m *mockPlatform) SessionHistory(_ context.Context, _ string) ([]domain.HistoryEntry, error) {
	return m.history, nil
}

func (m *mockPlatform) ClearSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	m.clearedSession = sessionID
	fn := m.clearSession
	m.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (m *mockPlatform) NewSession(_ context.Context) (string, error) {
	return m.newSessionID, nil
}

// Crawl

func (m *mockPlatform) StartCrawl(
	_ context.Context, scope domain.Scope, brokerID string, _ domain.CrawlOptions,
) (string, error) {
	if m.startCrawl == nil {
		return "job-1", nil
	}
	return m.startCrawl(scope, brokerID)
}

func (m *mockPlatform) StartBatchCrawl(_ context.Context, brokerIDs []string) (*domain.BatchCrawlResult, error) {
	if m.startBatch == nil {
		return &domain.BatchCrawlResult{}, nil
	}
	return m.startBatch(brokerIDs)
}

func (m *mockPlatform) CrawlStatus(ctx context.Context, scope domain.Scope, jobID string) (*domain.CrawlStatusReport, error) {
	m.mu.Lock()
	m.statusCalls++
	fn := m.crawlStatus
	m.mu.Unlock()
	if fn == nil {
		return &domain.CrawlStatusReport{JobID: jobID, Status: domain.CrawlRunning}, nil
	}
	return fn(ctx, scope, jobID)
}

func (m *mockPlatform) StatusCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusCalls
}

func (m *mockPlatform) OpenLogStream(ctx context.Context, scope domain.Scope, jobID string) (io.ReadCloser, error) {
	m.logScopeSeen = scope
	if m.openLogs == nil {
		return streamBody(""), nil
	}
	return m.openLogs(ctx, scope, jobID)
}

// Auth

func (m *mockPlatform) RequestLoginOTP(_ context.Context, email string) error {
	m.otpRequests = append(m.otpRequests, email)
	return nil
}

func (m *mockPlatform) RequestSignupOTP(_ context.Context, req domain.SignupRequest) error {
	m.signupRequests = append(m.signupRequests, req)
	return nil
}

func (m *mockPlatform) VerifyLoginOTP(_ context.Context, _, otp string) (*domain.Session, error) {
	if otp != "123456" {
		return nil, &domain.APIError{StatusCode: 401, Message: "Invalid OTP", Err: domain.ErrAuthInvalid}
	}
	s := *m.session
	return &s, nil
}

func (m *mockPlatform) VerifySignupOTP(ctx context.Context, email, otp string) (*domain.Session, error) {
	return m.VerifyLoginOTP(ctx, email, otp)
}

func (m *mockPlatform) Verify(_ context.Context, _ string) (*domain.Profile, error) {
	if m.verifyErr != nil {
		return nil, m.verifyErr
	}
	p := *m.profile
	return &p, nil
}

func (m *mockPlatform) Profile(_ context.Context) (*domain.Profile, error) {
	p := *m.profile
	return &p, nil
}

func (m *mockPlatform) UpdateProfile(_ context.Context, update domain.ProfileUpdate) (*domain.Profile, error) {
	p := *m.profile
	if update.Name != "" {
		p.Name = update.Name
	}
	if update.Company != "" {
		p.Company = update.Company
	}
	return &p, nil
}

func (m *mockPlatform) GenerateAPIKey(_ context.Context, name string) (*domain.APIKey, error) {
	m.apiKeyNames = append(m.apiKeyNames, name)
	return &domain.APIKey{Name: name, Key: "rk_test"}, nil
}

// Websites

func (m *mockPlatform) ListWebsites(_ context.Context, _ domain.Scope) ([]domain.Website, error) {
	return m.websites, nil
}

func (m *mockPlatform) GetWebsite(_ context.Context, _ domain.Scope, brokerID string) (*domain.Website, error) {
	for i := range m.websites {
		if m.websites[i].BrokerID == brokerID {
			w := m.websites[i]
			return &w, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockPlatform) CreateWebsite(_ context.Context, _ domain.Scope, site domain.Website) (*domain.Website, error) {
	m.created = append(m.created, site)
	site.BrokerID = "broker-new"
	return &site, nil
}

func (m *mockPlatform) UpdateWebsite(_ context.Context, _ domain.Scope, site domain.Website) (*domain.Website, error) {
	m.updated = append(m.updated, site)
	return &site, nil
}

func (m *mockPlatform) DeleteWebsite(_ context.Context, _ domain.Scope, brokerID string) error {
	m.deleted = append(m.deleted, brokerID)
	return nil
}

func (m *mockPlatform) WebsiteStats(_ context.Context, _ domain.Scope, _ string) (*domain.WebsiteStats, error) {
	return m.stats, nil
}

func (m *mockPlatform) DashboardStats(_ context.Context, _ domain.Scope) (*domain.DashboardStats, error) {
	return m.dashboard, nil
}

// Widget

func (m *mockPlatform) WidgetSettings(_ context.Context, _ string) (*domain.WidgetSettings, error) {
	if m.widgetErr != nil {
		return nil, m.widgetErr
	}
	return m.widget, nil
}

func (m *mockPlatform) UpdateWidgetSettings(_ context.Context, _ string, settings domain.WidgetSettings) error {
	m.widgetSaved = append(m.widgetSaved, settings)
	return nil
}

func (m *mockPlatform) WidgetAPIKey(_ context.Context, _ string) (string, error) {
	return m.widgetAPIKey, m.widgetKeyErr
}

func jsonMarshal(v any) (string, error) {
	b, err := json.Marshal(v)
	return string(b), err
}
