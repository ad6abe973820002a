package platform

import (
	"context"
	"fmt"
	"net/http"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
)

// ListWebsites returns the websites visible in scope.
func (c *Client) ListWebsites(ctx context.Context, scope domain.Scope) ([]domain.Website, error) {
	var sites []domain.Website
	err := c.call(ctx, request{method: http.MethodGet, path: scoped(scope, "/websites")}, "clients", &sites)
	if err != nil {
		return nil, err
	}
	if sites == nil {
		sites = []domain.Website{}
	}
	return sites, nil
}

// GetWebsite fetches one website by broker id.
func (c *Client) GetWebsite(ctx context.Context, scope domain.Scope, brokerID string) (*domain.Website, error) {
	var site domain.Website
	err := c.call(ctx, request{
		method: http.MethodGet,
		path:   scoped(scope, "/websites/"+seg(brokerID)),
	}, "client", &site)
	if err != nil {
		return nil, err
	}
	return &site, nil
}

// CreateWebsite registers a new website.
func (c *Client) CreateWebsite(ctx context.Context, scope domain.Scope, site domain.Website) (*domain.Website, error) {
	var created domain.Website
	err := c.call(ctx, request{
		method: http.MethodPost,
		path:   scoped(scope, "/websites"),
		body:   site,
	}, "client", &created)
	if err != nil {
		return nil, err
	}
	if created.BrokerID == "" {
		return nil, fmt.Errorf("create website: %w: missing brokerId", domain.ErrUnexpectedResponse)
	}
	return &created, nil
}

// UpdateWebsite replaces a website's editable fields.
func (c *Client) UpdateWebsite(ctx context.Context, scope domain.Scope, site domain.Website) (*domain.Website, error) {
	var updated domain.Website
	err := c.call(ctx, request{
		method: http.MethodPut,
		path:   scoped(scope, "/websites/"+seg(site.BrokerID)),
		body:   site,
	}, "client", &updated)
	if err != nil {
		return nil, err
	}
	if updated.BrokerID == "" {
		updated = site
	}
	return &updated, nil
}

// DeleteWebsite removes a website and its indexed content.
func (c *Client) DeleteWebsite(ctx context.Context, scope domain.Scope, brokerID string) error {
	return c.call(ctx, request{
		method: http.MethodDelete,
		path:   scoped(scope, "/websites/"+seg(brokerID)),
	}, "", nil)
}

// WebsiteStats fetches indexing statistics for a website.
func (c *Client) WebsiteStats(ctx context.Context, scope domain.Scope, brokerID string) (*domain.WebsiteStats, error) {
	var stats domain.WebsiteStats
	err := c.call(ctx, request{
		method: http.MethodGet,
		path:   scoped(scope, "/websites/"+seg(brokerID)+"/stats"),
	}, "stats", &stats)
	if err != nil {
		return nil, err
	}
	if stats.BrokerID == "" {
		stats.BrokerID = brokerID
	}
	return &stats, nil
}

// DashboardStats fetches the aggregate statistics for scope.
func (c *Client) DashboardStats(ctx context.Context, scope domain.Scope) (*domain.DashboardStats, error) {
	var stats domain.DashboardStats
	err := c.call(ctx, request{method: http.MethodGet, path: scoped(scope, "/dashboard/stats")}, "stats", &stats)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
