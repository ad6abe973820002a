package mcp

import (
	"context"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Chat answers questions about a website.
	Chat driving.ChatService

	// Website lists websites and their statistics.
	Website driving.WebsiteService

	// Crawl reads crawl job status and the local job history. Optional.
	Crawl driving.CrawlService

	// Auth resolves the route scope of the signed-in user. Optional.
	Auth driving.AuthService

	// Scope, when set, overrides the scope derived from Auth.
	Scope domain.Scope
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Chat == nil {
		return ErrMissingChatService
	}
	if p.Website == nil {
		return ErrMissingWebsiteService
	}
	return nil
}

// scope returns the route family for scoped calls.
func (p *Ports) scope(ctx context.Context) domain.Scope {
	if p.Scope != "" {
		return p.Scope
	}
	if p.Auth != nil {
		return p.Auth.Scope(ctx)
	}
	return domain.ScopeUser
}
