package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
)

func TestWebsiteService_Create_AppliesDefaults(t *testing.T) {
	gw := &mockPlatform{}
	service := NewWebsiteService(gw, gw)

	site, err := service.Create(context.Background(), domain.ScopeUser, domain.Website{
		Name:   " Docs ",
		Domain: "HTTPS://Docs.Example.com/guide",
	})

	require.NoError(t, err)
	assert.Equal(t, "broker-new", site.BrokerID)
	require.Len(t, gw.created, 1)
	sent := gw.created[0]
	assert.Equal(t, "Docs", sent.Name)
	assert.Equal(t, "docs.example.com", sent.Domain)
	assert.Equal(t, "https://docs.example.com", sent.BaseURL)
	assert.Equal(t, domain.DefaultCrawlSettings(), sent.CrawlSettings)
}

func TestWebsiteService_Create_KeepsCustomSettings(t *testing.T) {
	gw := &mockPlatform{}
	service := NewWebsiteService(gw, gw)

	_, err := service.Create(context.Background(), domain.ScopeUser, domain.Website{
		Name:          "Blog",
		Domain:        "http://blog.example.com",
		CrawlSettings: domain.CrawlSettings{MaxPages: 5},
	})

	require.NoError(t, err)
	sent := gw.created[0]
	assert.Equal(t, "http://blog.example.com", sent.BaseURL)
	assert.Equal(t, 5, sent.CrawlSettings.MaxPages)
	assert.Equal(t, domain.DefaultCrawlDelay, sent.CrawlSettings.CrawlDelay)
	assert.Equal(t, domain.DefaultUserAgent, sent.CrawlSettings.UserAgent)
	assert.Empty(t, sent.CrawlSettings.ExcludedPaths)
	assert.True(t, sent.CrawlSettings.RobotsRespected())
}

func TestWebsiteService_Create_IgnoreRobotsOnly(t *testing.T) {
	gw := &mockPlatform{}
	service := NewWebsiteService(gw, gw)

	_, err := service.Create(context.Background(), domain.ScopeUser, domain.Website{
		Name:          "Shop",
		Domain:        "shop.example.com",
		CrawlSettings: domain.CrawlSettings{RespectRobots: domain.Bool(false)},
	})

	require.NoError(t, err)
	sent := gw.created[0].CrawlSettings
	require.NotNil(t, sent.RespectRobots)
	assert.False(t, *sent.RespectRobots)
	assert.Equal(t, domain.DefaultMaxPages, sent.MaxPages)
	assert.Equal(t, domain.DefaultCrawlDelay, sent.CrawlDelay)
}

func TestWebsiteService_Create_Validation(t *testing.T) {
	gw := &mockPlatform{}
	service := NewWebsiteService(gw, gw)

	tests := []domain.Website{
		{Name: "", Domain: "example.com"},
		{Name: "No domain"},
		{Name: "Bad", Domain: "https://"},
		{Name: "Spaces", Domain: "exa mple.com"},
	}
	for _, site := range tests {
		_, err := service.Create(context.Background(), domain.ScopeUser, site)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "%+v", site)
	}
	assert.Empty(t, gw.created)
}

func TestWebsiteService_GetUpdateDelete(t *testing.T) {
	gw := &mockPlatform{websites: []domain.Website{{BrokerID: "b1", Name: "Docs"}}}
	service := NewWebsiteService(gw, gw)
	ctx := context.Background()

	site, err := service.Get(ctx, domain.ScopeUser, "b1")
	require.NoError(t, err)
	assert.Equal(t, "Docs", site.Name)

	_, err = service.Get(ctx, domain.ScopeUser, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = service.Update(ctx, domain.ScopeUser, domain.Website{BrokerID: "b1", Domain: "https://New.Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "new.example.com", gw.updated[0].Domain)

	_, err = service.Update(ctx, domain.ScopeUser, domain.Website{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	require.NoError(t, service.Delete(ctx, domain.ScopeAdmin, "b1"))
	assert.Equal(t, []string{"b1"}, gw.deleted)
	assert.ErrorIs(t, service.Delete(ctx, domain.ScopeAdmin, ""), domain.ErrInvalidInput)
}

func TestWebsiteService_ListStatsDashboard(t *testing.T) {
	gw := &mockPlatform{
		websites:  []domain.Website{{BrokerID: "b1"}, {BrokerID: "b2"}},
		stats:     &domain.WebsiteStats{BrokerID: "b1", PageCount: 42},
		dashboard: &domain.DashboardStats{TotalWebsites: 2},
	}
	service := NewWebsiteService(gw, gw)
	ctx := context.Background()

	sites, err := service.List(ctx, domain.ScopeAdmin)
	require.NoError(t, err)
	assert.Len(t, sites, 2)

	stats, err := service.Stats(ctx, domain.ScopeUser, "b1")
	require.NoError(t, err)
	assert.Equal(t, 42, stats.PageCount)

	_, err = service.Stats(ctx, domain.ScopeUser, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	dash, err := service.Dashboard(ctx, domain.ScopeUser)
	require.NoError(t, err)
	assert.Equal(t, 2, dash.TotalWebsites)
}
