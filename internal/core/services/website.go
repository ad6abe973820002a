package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driving"
)

// Ensure WebsiteService implements the interface.
var _ driving.WebsiteService = (*WebsiteService)(nil)

// WebsiteService manages websites through the scoped routes.
type WebsiteService struct {
	websites  driven.WebsiteGateway
	dashboard driven.DashboardGateway
}

// NewWebsiteService creates a new website service.
func NewWebsiteService(websites driven.WebsiteGateway, dashboard driven.DashboardGateway) *WebsiteService {
	return &WebsiteService{websites: websites, dashboard: dashboard}
}

// List returns the websites visible in scope.
func (s *WebsiteService) List(ctx context.Context, scope domain.Scope) ([]domain.Website, error) {
	sites, err := s.websites.ListWebsites(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list websites: %w", err)
	}
	return sites, nil
}

// Get returns one website.
func (s *WebsiteService) Get(ctx context.Context, scope domain.Scope, brokerID string) (*domain.Website, error) {
	if strings.TrimSpace(brokerID) == "" {
		return nil, domain.ErrInvalidInput
	}
	site, err := s.websites.GetWebsite(ctx, scope, brokerID)
	if err != nil {
		return nil, fmt.Errorf("get website %s: %w", brokerID, err)
	}
	return site, nil
}

// Create registers a website. Missing crawl settings get the defaults.
func (s *WebsiteService) Create(ctx context.Context, scope domain.Scope, site domain.Website) (*domain.Website, error) {
	site.Name = strings.TrimSpace(site.Name)
	if site.Name == "" {
		return nil, fmt.Errorf("website name is required: %w", domain.ErrInvalidInput)
	}
	host, base, err := normaliseDomain(site.Domain)
	if err != nil {
		return nil, err
	}
	site.Domain = host
	if site.BaseURL == "" {
		site.BaseURL = base
	}
	site.CrawlSettings = withCrawlDefaults(site.CrawlSettings)

	created, err := s.websites.CreateWebsite(ctx, scope, site)
	if err != nil {
		return nil, fmt.Errorf("create website %s: %w", site.Domain, err)
	}
	return created, nil
}

// Update saves changes to a website.
func (s *WebsiteService) Update(ctx context.Context, scope domain.Scope, site domain.Website) (*domain.Website, error) {
	if strings.TrimSpace(site.BrokerID) == "" {
		return nil, domain.ErrInvalidInput
	}
	if site.Domain != "" {
		host, _, err := normaliseDomain(site.Domain)
		if err != nil {
			return nil, err
		}
		site.Domain = host
	}
	updated, err := s.websites.UpdateWebsite(ctx, scope, site)
	if err != nil {
		return nil, fmt.Errorf("update website %s: %w", site.BrokerID, err)
	}
	return updated, nil
}

// Delete removes a website.
func (s *WebsiteService) Delete(ctx context.Context, scope domain.Scope, brokerID string) error {
	if strings.TrimSpace(brokerID) == "" {
		return domain.ErrInvalidInput
	}
	if err := s.websites.DeleteWebsite(ctx, scope, brokerID); err != nil {
		return fmt.Errorf("delete website %s: %w", brokerID, err)
	}
	return nil
}

// Stats returns indexed content statistics for a website.
func (s *WebsiteService) Stats(ctx context.Context, scope domain.Scope, brokerID string) (*domain.WebsiteStats, error) {
	if strings.TrimSpace(brokerID) == "" {
		return nil, domain.ErrInvalidInput
	}
	stats, err := s.websites.WebsiteStats(ctx, scope, brokerID)
	if err != nil {
		return nil, fmt.Errorf("website stats %s: %w", brokerID, err)
	}
	return stats, nil
}

// Dashboard returns aggregate statistics for scope.
func (s *WebsiteService) Dashboard(ctx context.Context, scope domain.Scope) (*domain.DashboardStats, error) {
	stats, err := s.dashboard.DashboardStats(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	return stats, nil
}

// normaliseDomain accepts "example.com" or "https://example.com/path" and
// returns the host and an https base URL.
func normaliseDomain(raw string) (string, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", fmt.Errorf("website domain is required: %w", domain.ErrInvalidInput)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" || strings.ContainsAny(u.Hostname(), " _") {
		return "", "", fmt.Errorf("invalid website domain %q: %w", raw, domain.ErrInvalidInput)
	}
	host := strings.ToLower(u.Host)
	scheme := u.Scheme
	if scheme != "http" {
		scheme = "https"
	}
	return host, scheme + "://" + host, nil
}

func withCrawlDefaults(cs domain.CrawlSettings) domain.CrawlSettings {
	defaults := domain.DefaultCrawlSettings()
	if cs.MaxPages == 0 && cs.CrawlDelay == 0 && cs.UserAgent == "" &&
		len(cs.AllowedPaths) == 0 && len(cs.ExcludedPaths) == 0 && cs.RespectRobots == nil {
		return defaults
	}
	if cs.MaxPages <= 0 {
		cs.MaxPages = defaults.MaxPages
	}
	if cs.CrawlDelay <= 0 {
		cs.CrawlDelay = defaults.CrawlDelay
	}
	if cs.UserAgent == "" {
		cs.UserAgent = defaults.UserAgent
	}
	if cs.RespectRobots == nil {
		cs.RespectRobots = defaults.RespectRobots
	}
	return cs
}
