package platform

import (
	"context"
	"net/http"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
)

type otpRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp,omitempty"`
}

type userEnvelope struct {
	User domain.Profile `json:"user"`
}

// RequestLoginOTP sends a one-time password to the email address.
func (c *Client) RequestLoginOTP(ctx context.Context, email string) error {
	return c.call(ctx, request{
		method: http.MethodPost,
		path:   "/auth/request-login-otp",
		body:   otpRequest{Email: email},
		anon:   true,
	}, "", nil)
}

// RequestSignupOTP starts a signup and sends a one-time password.
func (c *Client) RequestSignupOTP(ctx context.Context, req domain.SignupRequest) error {
	return c.call(ctx, request{
		method: http.MethodPost,
		path:   "/auth/request-signup-otp",
		body:   req,
		anon:   true,
	}, "", nil)
}

// VerifyLoginOTP exchanges an OTP for a session.
func (c *Client) VerifyLoginOTP(ctx context.Context, email, otp string) (*domain.Session, error) {
	return c.verifyOTP(ctx, "/auth/verify-login-otp", email, otp)
}

// VerifySignupOTP completes a signup and returns the new session.
func (c *Client) VerifySignupOTP(ctx context.Context, email, otp string) (*domain.Session, error) {
	return c.verifyOTP(ctx, "/auth/verify-signup-otp", email, otp)
}

func (c *Client) verifyOTP(ctx context.Context, path, email, otp string) (*domain.Session, error) {
	var session domain.Session
	err := c.call(ctx, request{
		method: http.MethodPost,
		path:   path,
		body:   otpRequest{Email: email, OTP: otp},
		anon:   true,
	}, "", &session)
	if err != nil {
		return nil, err
	}
	if session.Token == "" {
		return nil, domain.ErrUnexpectedResponse
	}
	return &session, nil
}

// Verify checks a token and returns the profile it belongs to.
// The token is sent as given rather than read from the credential provider.
func (c *Client) Verify(ctx context.Context, token string) (*domain.Profile, error) {
	var out userEnvelope
	err := c.call(ctx, request{
		method: http.MethodGet,
		path:   "/auth/verify",
		token:  token,
	}, "", &out)
	if err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Profile fetches the signed-in user's profile.
func (c *Client) Profile(ctx context.Context) (*domain.Profile, error) {
	var out userEnvelope
	if err := c.call(ctx, request{method: http.MethodGet, path: "/auth/profile"}, "", &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// UpdateProfile changes editable profile fields.
func (c *Client) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (*domain.Profile, error) {
	var out userEnvelope
	err := c.call(ctx, request{
		method: http.MethodPut,
		path:   "/auth/profile",
		body:   update,
	}, "", &out)
	if err != nil {
		return nil, err
	}
	return &out.User, nil
}

// GenerateAPIKey creates a named API key.
func (c *Client) GenerateAPIKey(ctx context.Context, name string) (*domain.APIKey, error) {
	var key domain.APIKey
	err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/auth/api-key",
		body:   map[string]string{"keyName": name},
	}, "", &key)
	if err != nil {
		return nil, err
	}
	if key.Name == "" {
		key.Name = name
	}
	return &key, nil
}
