// Package tui provides an interactive terminal user interface for runit.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"errors"

	"github.com/custodia-labs/runit-cli/internal/core/ports/driving"
)

var (
	ErrMissingChatService    = errors.New("tui: chat service is required")
	ErrMissingWebsiteService = errors.New("tui: website service is required")
	ErrInvalidPorts          = errors.New("tui: invalid ports configuration")

	// ErrSignedOut is shown when the stored login is removed while the TUI runs.
	ErrSignedOut = errors.New("signed out in another terminal: run `runit login`")
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Chat opens streaming chat sessions.
	Chat driving.ChatService

	// Website lists the websites that can be chatted with.
	Website driving.WebsiteService

	// Auth resolves the route scope of the signed-in user. Optional.
	Auth driving.AuthService

	// Crawl starts and watches crawls from the website picker. Optional.
	Crawl driving.CrawlService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(chat driving.ChatService, website driving.WebsiteService, auth driving.AuthService) *Ports {
	return &Ports{
		Chat:    chat,
		Website: website,
		Auth:    auth,
	}
}

// WithCrawl enables crawling from the website picker.
func (p *Ports) WithCrawl(crawl driving.CrawlService) *Ports {
	p.Crawl = crawl
	return p
}

// Validate ensures all required ports are set.
// Returns an error if any port is nil.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Chat == nil {
		return ErrMissingChatService
	}
	if p.Website == nil {
		return ErrMissingWebsiteService
	}
	return nil
}
