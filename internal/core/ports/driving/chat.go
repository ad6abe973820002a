package driving

import (
	"context"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
)

// ChatService opens chat sessions and runs one-shot queries.
type ChatService interface {
	// OpenSession starts a local chat session with a website.
	// The session id is generated locally and sent with every turn.
	OpenSession(ctx context.Context, scope domain.Scope, brokerID string) (ChatSession, error)

	// ResumeSession continues a conversation with a known session id.
	ResumeSession(ctx context.Context, scope domain.Scope, brokerID, sessionID string) (ChatSession, error)

	// NewSession asks the server to allocate a session id.
	NewSession(ctx context.Context) (string, error)

	// SessionHistory fetches the turns the server stored for a session id.
	SessionHistory(ctx context.Context, sessionID string) ([]domain.HistoryEntry, error)

	// ClearSession deletes the turns the server stored for a session id.
	ClearSession(ctx context.Context, sessionID string) error

	// Query runs a non-streaming query against a website.
	Query(ctx context.Context, scope domain.Scope, brokerID, query string, opts domain.QueryOptions) (*domain.QueryResult, error)
}

// ChatSession is an ordered, in-memory conversation with one website.
// Only one request may be in flight at a time.
type ChatSession interface {
	// ID returns the session id sent to the server.
	ID() string

	// BrokerID returns the website the session talks to.
	BrokerID() string

	// Messages returns a snapshot of the conversation in order.
	Messages() []domain.ChatMessage

	// Busy returns true while a request or a Clear is in flight.
	Busy() bool

	// Send submits a query. The returned channel receives a snapshot of the
	// assistant (or error) message after every change and is closed after
	// the message reaches a terminal state. Cancelling ctx aborts the request.
	Send(ctx context.Context, query string) (<-chan domain.ChatMessage, error)

	// History fetches the turns the server stored for this session.
	History(ctx context.Context) ([]domain.HistoryEntry, error)

	// Clear deletes the server-side history and empties the local conversation.
	// Send returns domain.ErrRequestInFlight until it completes.
	Clear(ctx context.Context) error

	// Close cancels any in-flight request. Later updates are dropped.
	Close() error
}
