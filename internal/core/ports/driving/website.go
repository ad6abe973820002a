package driving

import (
	"context"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
)

// WebsiteService manages websites and reads their statistics.
type WebsiteService interface {
	List(ctx context.Context, scope domain.Scope) ([]domain.Website, error)
	Get(ctx context.Context, scope domain.Scope, brokerID string) (*domain.Website, error)
	Create(ctx context.Context, scope domain.Scope, site domain.Website) (*domain.Website, error)
	Update(ctx context.Context, scope domain.Scope, site domain.Website) (*domain.Website, error)
	Delete(ctx context.Context, scope domain.Scope, brokerID string) error
	Stats(ctx context.Context, scope domain.Scope, brokerID string) (*domain.WebsiteStats, error)
	Dashboard(ctx context.Context, scope domain.Scope) (*domain.DashboardStats, error)
}

// WidgetService manages the embeddable chat widget.
type WidgetService interface {
	// Get returns the saved settings merged over the defaults.
	Get(ctx context.Context, brokerID string) (*domain.WidgetSettings, error)

	// Update validates and saves settings.
	Update(ctx context.Context, brokerID string, settings domain.WidgetSettings) error

	// EmbedSnippet returns the script tag that installs the widget.
	EmbedSnippet(ctx context.Context, brokerID string) (string, error)
}
