package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driving"
	"github.com/custodia-labs/runit-cli/internal/logger"
)

// Ensure AuthService implements the interface.
var _ driving.AuthService = (*AuthService)(nil)

// AuthService signs users in with email OTPs and keeps the session store current.
type AuthService struct {
	gateway  driven.AuthGateway
	sessions driven.SessionStore
	now      func() time.Time

	mu            sync.RWMutex
	scopeOverride domain.Scope
}

// NewAuthService creates a new auth service.
func NewAuthService(gateway driven.AuthGateway, sessions driven.SessionStore) *AuthService {
	return &AuthService{
		gateway:  gateway,
		sessions: sessions,
		now:      time.Now,
	}
}

// SetScopeOverride forces a scope regardless of the signed-in role.
// An empty scope restores role-based selection.
func (s *AuthService) SetScopeOverride(scope domain.Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scopeOverride = scope
}

// RequestLoginOTP sends a login OTP to email.
func (s *AuthService) RequestLoginOTP(ctx context.Context, email string) error {
	email, err := normaliseEmail(email)
	if err != nil {
		return err
	}
	if err := s.gateway.RequestLoginOTP(ctx, email); err != nil {
		return fmt.Errorf("request login otp: %w", err)
	}
	return nil
}

// Login verifies the OTP and stores the session.
func (s *AuthService) Login(ctx context.Context, email, otp string) (*domain.Session, error) {
	email, err := normaliseEmail(email)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(otp) == "" {
		return nil, fmt.Errorf("otp is required: %w", domain.ErrInvalidInput)
	}

	session, err := s.gateway.VerifyLoginOTP(ctx, email, strings.TrimSpace(otp))
	if err != nil {
		return nil, fmt.Errorf("verify login otp: %w", err)
	}
	return s.store(ctx, session)
}

// RequestSignupOTP starts a signup.
func (s *AuthService) RequestSignupOTP(ctx context.Context, req domain.SignupRequest) error {
	email, err := normaliseEmail(req.Email)
	if err != nil {
		return err
	}
	req.Email = email
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return fmt.Errorf("name is required: %w", domain.ErrInvalidInput)
	}
	if err := s.gateway.RequestSignupOTP(ctx, req); err != nil {
		return fmt.Errorf("request signup otp: %w", err)
	}
	return nil
}

// Signup verifies the signup OTP and stores the session.
func (s *AuthService) Signup(ctx context.Context, email, otp string) (*domain.Session, error) {
	email, err := normaliseEmail(email)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(otp) == "" {
		return nil, fmt.Errorf("otp is required: %w", domain.ErrInvalidInput)
	}

	session, err := s.gateway.VerifySignupOTP(ctx, email, strings.TrimSpace(otp))
	if err != nil {
		return nil, fmt.Errorf("verify signup otp: %w", err)
	}
	return s.store(ctx, session)
}

// Logout removes the stored session.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Current returns the stored session after checking the token with the server.
func (s *AuthService) Current(ctx context.Context) (*domain.Session, error) {
	session, err := s.sessions.Load(ctx)
	if err != nil {
		return nil, err
	}
	if session.IsExpired() {
		return nil, domain.ErrAuthExpired
	}

	profile, err := s.gateway.Verify(ctx, session.Token)
	if err != nil {
		if errors.Is(err, domain.ErrAuthInvalid) {
			return nil, fmt.Errorf("stored token rejected: %w", domain.ErrAuthExpired)
		}
		return nil, fmt.Errorf("verify token: %w", err)
	}

	session.Profile = *profile
	if err := s.sessions.Save(ctx, *session); err != nil {
		logger.Warn("refresh stored profile: %v", err)
	}
	return session, nil
}

// UpdateProfile changes profile fields and refreshes the stored profile.
func (s *AuthService) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (*domain.Profile, error) {
	update.Name = strings.TrimSpace(update.Name)
	update.Company = strings.TrimSpace(update.Company)
	if update.Name == "" && update.Company == "" {
		return nil, fmt.Errorf("nothing to update: %w", domain.ErrInvalidInput)
	}

	profile, err := s.gateway.UpdateProfile(ctx, update)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	if session, err := s.sessions.Load(ctx); err == nil {
		session.Profile = *profile
		if err := s.sessions.Save(ctx, *session); err != nil {
			logger.Warn("refresh stored profile: %v", err)
		}
	}
	return profile, nil
}

// GenerateAPIKey creates a named API key.
func (s *AuthService) GenerateAPIKey(ctx context.Context, name string) (*domain.APIKey, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("key name is required: %w", domain.ErrInvalidInput)
	}
	key, err := s.gateway.GenerateAPIKey(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("generate api key: %w", err)
	}
	return key, nil
}

// Scope returns the override if set, otherwise the scope of the stored role.
func (s *AuthService) Scope(ctx context.Context) domain.Scope {
	s.mu.RLock()
	override := s.scopeOverride
	s.mu.RUnlock()
	if override.IsValid() {
		return override
	}

	session, err := s.sessions.Load(ctx)
	if err != nil {
		return domain.ScopeUser
	}
	return session.DefaultScope()
}

func (s *AuthService) store(ctx context.Context, session *domain.Session) (*domain.Session, error) {
	if session == nil || session.Token == "" {
		return nil, fmt.Errorf("no token in response: %w", domain.ErrUnexpectedResponse)
	}
	session.SavedAt = s.now()
	if err := s.sessions.Save(ctx, *session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	logger.Debug("signed in as %s (%s)", session.Profile.Email, session.DefaultScope())
	return session, nil
}

func normaliseEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("invalid email %q: %w", email, domain.ErrInvalidInput)
	}
	return email, nil
}
