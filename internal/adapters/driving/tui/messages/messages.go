// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/runit-cli/internal/core/domain"
)

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewWebsites is the website picker.
	ViewWebsites ViewType = iota
	// ViewChat is the conversation with one website.
	ViewChat
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewWebsites:
		return "websites"
	case ViewChat:
		return "chat"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// WebsitesLoaded carries the websites visible to the signed-in user.
type WebsitesLoaded struct {
	Websites []domain.Website
	Err      error
}

// CrawlStarted carries the job started for a website.
type CrawlStarted struct {
	BrokerID string
	Job      *domain.CrawlJob
	Err      error
}

// CrawlFinished signals a watched crawl stopped being polled.
// Refreshed holds the website list fetched once the job reached a
// terminal status; it is nil when polling failed.
type CrawlFinished struct {
	Job       domain.CrawlJob
	Err       error
	Refreshed *WebsitesLoaded
}

// WebsiteSelected signals a website was picked for chat.
type WebsiteSelected struct {
	Website domain.Website
}

// ChatUpdated carries a snapshot of the message being streamed.
// Request identifies the send it belongs to so late updates from a
// cancelled request can be told apart.
type ChatUpdated struct {
	Request int
	Message domain.ChatMessage
}

// ChatFinished signals the update channel of a send was closed.
type ChatFinished struct {
	Request int
}

// SessionCleared signals the conversation was cleared on the server.
type SessionCleared struct {
	Err error
}

// SessionChanged signals the stored login changed in another process.
// Session is nil after a logout.
type SessionChanged struct {
	Session *domain.Session
}
