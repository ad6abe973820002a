package services

import (
	"context"
	"os"
	"strings"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driven"
)

// Ensure CredentialChain implements the interface.
var _ driven.CredentialProvider = (*CredentialChain)(nil)

// CredentialChain supplies the bearer token for API calls.
// A token set in RUNIT_TOKEN wins over the stored session, which lets CI
// jobs use an API token without running `runit login`.
type CredentialChain struct {
	getenv func(string) string
	store  driven.CredentialProvider
}

// NewCredentialChain creates a provider reading RUNIT_TOKEN, then store.
// store may be nil.
func NewCredentialChain(store driven.CredentialProvider) *CredentialChain {
	return &CredentialChain{
		getenv: os.Getenv,
		store:  store,
	}
}

// Token returns the environment token, or the stored one.
func (c *CredentialChain) Token(ctx context.Context) (string, error) {
	if tok := strings.TrimSpace(c.getenv(EnvToken)); tok != "" {
		return tok, nil
	}
	if c.store == nil {
		return "", domain.ErrAuthRequired
	}
	return c.store.Token(ctx)
}

// FromEnvironment returns true if the token comes from RUNIT_TOKEN.
func (c *CredentialChain) FromEnvironment() bool {
	return strings.TrimSpace(c.getenv(EnvToken)) != ""
}
