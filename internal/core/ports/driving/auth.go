package driving

import (
	"context"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
)

// AuthService manages sign-in and the stored session.
type AuthService interface {
	// RequestLoginOTP sends a login one-time password.
	RequestLoginOTP(ctx context.Context, email string) error

	// Login verifies the OTP and stores the resulting session.
	Login(ctx context.Context, email, otp string) (*domain.Session, error)

	// RequestSignupOTP starts a signup.
	RequestSignupOTP(ctx context.Context, req domain.SignupRequest) error

	// Signup verifies the signup OTP and stores the resulting session.
	Signup(ctx context.Context, email, otp string) (*domain.Session, error)

	// Logout removes the stored session.
	Logout(ctx context.Context) error

	// Current returns the stored session after checking it with the server.
	Current(ctx context.Context) (*domain.Session, error)

	// UpdateProfile changes profile fields and refreshes the stored profile.
	UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (*domain.Profile, error)

	// GenerateAPIKey creates a named API key.
	GenerateAPIKey(ctx context.Context, name string) (*domain.APIKey, error)

	// Scope returns the scope to use for scoped routes.
	Scope(ctx context.Context) domain.Scope
}
