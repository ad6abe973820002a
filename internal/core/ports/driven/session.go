package driven

import (
	"context"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
)

// CredentialProvider supplies the bearer token for API calls.
// It is read on every request and never mutated by callers, so a token
// written by another process is picked up without restarting.
type CredentialProvider interface {
	// Token returns the current bearer token.
	// Returns domain.ErrAuthRequired when no session is stored and
	// domain.ErrAuthExpired when the stored token is known to be expired.
	Token(ctx context.Context) (string, error)
}

// SessionStore persists the signed-in session.
type SessionStore interface {
	CredentialProvider

	// Load returns the stored session.
	// Returns domain.ErrAuthRequired if nothing is stored.
	Load(ctx context.Context) (*domain.Session, error)

	// Save replaces the stored session.
	Save(ctx context.Context, session domain.Session) error

	// Clear removes the stored session. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}
