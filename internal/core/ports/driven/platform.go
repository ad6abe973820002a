package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
)

// AuthGateway is the OTP authentication surface of the platform API.
type AuthGateway interface {
	// RequestLoginOTP sends a one-time password to the email address.
	RequestLoginOTP(ctx context.Context, email string) error

	// RequestSignupOTP starts a signup and sends a one-time password.
	RequestSignupOTP(ctx context.Context, req domain.SignupRequest) error

	// VerifyLoginOTP exchanges an OTP for a session.
	VerifyLoginOTP(ctx context.Context, email, otp string) (*domain.Session, error)

	// VerifySignupOTP completes a signup and returns the new session.
	VerifySignupOTP(ctx context.Context, email, otp string) (*domain.Session, error)

	// Verify checks a token and returns the profile it belongs to.
	Verify(ctx context.Context, token string) (*domain.Profile, error)

	// Profile fetches the signed-in user's profile.
	Profile(ctx context.Context) (*domain.Profile, error)

	// UpdateProfile changes editable profile fields.
	UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (*domain.Profile, error)

	// GenerateAPIKey creates a named API key.
	GenerateAPIKey(ctx context.Context, name string) (*domain.APIKey, error)
}

// WebsiteGateway manages websites through the scoped routes.
type WebsiteGateway interface {
	ListWebsites(ctx context.Context, scope domain.Scope) ([]domain.Website, error)
	GetWebsite(ctx context.Context, scope domain.Scope, brokerID string) (*domain.Website, error)
	CreateWebsite(ctx context.Context, scope domain.Scope, site domain.Website) (*domain.Website, error)
	UpdateWebsite(ctx context.Context, scope domain.Scope, site domain.Website) (*domain.Website, error)
	DeleteWebsite(ctx context.Context, scope domain.Scope, brokerID string) error
	WebsiteStats(ctx context.Context, scope domain.Scope, brokerID string) (*domain.WebsiteStats, error)
}

// CrawlGateway starts crawl jobs and exposes their progress.
type CrawlGateway interface {
	// StartCrawl starts a crawl and returns the job id.
	StartCrawl(ctx context.Context, scope domain.Scope, brokerID string, opts domain.CrawlOptions) (string, error)

	// StartBatchCrawl starts crawls for several websites. Admin only.
	StartBatchCrawl(ctx context.Context, brokerIDs []string) (*domain.BatchCrawlResult, error)

	// CrawlStatus fetches the current status of a job.
	CrawlStatus(ctx context.Context, scope domain.Scope, jobID string) (*domain.CrawlStatusReport, error)

	// OpenLogStream opens the server-sent event stream of a job's logs.
	// The caller owns the returned body and must close it.
	OpenLogStream(ctx context.Context, scope domain.Scope, jobID string) (io.ReadCloser, error)
}

// ChatRequest is the body of a streaming chat call.
type ChatRequest struct {
	BrokerID  string `json:"brokerId"`
	Query     string `json:"query"`
	SessionID string `json:"sessionId"`
}

// ChatGateway is the query and chat surface of the platform API.
type ChatGateway interface {
	// OpenChat posts a chat request and returns the chunked response body
	// once a 2xx status was received. Non-2xx statuses are returned as errors
	// before any of the body is consumed. The caller must close the body.
	OpenChat(ctx context.Context, scope domain.Scope, req ChatRequest) (io.ReadCloser, error)

	// Query runs a non-streaming query.
	Query(ctx context.Context, scope domain.Scope, brokerID, query string, opts domain.QueryOptions) (*domain.QueryResult, error)

	// SessionHistory fetches the stored turns of a chat session.
	SessionHistory(ctx context.Context, sessionID string) ([]domain.HistoryEntry, error)

	// ClearSession deletes the stored turns of a chat session.
	ClearSession(ctx context.Context, sessionID string) error

	// NewSession asks the server for a fresh session id.
	NewSession(ctx context.Context) (string, error)
}

// WidgetGateway manages the per-website chat widget.
type WidgetGateway interface {
	WidgetSettings(ctx context.Context, brokerID string) (*domain.WidgetSettings, error)
	UpdateWidgetSettings(ctx context.Context, brokerID string, settings domain.WidgetSettings) error
	WidgetAPIKey(ctx context.Context, brokerID string) (string, error)
}

// DashboardGateway fetches aggregate statistics.
type DashboardGateway interface {
	DashboardStats(ctx context.Context, scope domain.Scope) (*domain.DashboardStats, error)
}

// Platform bundles every gateway implemented by a single API client.
type Platform interface {
	AuthGateway
	WebsiteGateway
	CrawlGateway
	ChatGateway
	WidgetGateway
	DashboardGateway
}
