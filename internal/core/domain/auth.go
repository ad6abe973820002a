package domain

import "time"

// Scope selects which route family of the platform API is used.
// Admins may act on every tenant; users only on what they own.
type Scope string

// API scopes.
const (
	ScopeUser  Scope = "user"
	ScopeAdmin Scope = "admin"
)

// IsValid returns true if the scope is recognised.
func (s Scope) IsValid() bool {
	return s == ScopeUser || s == ScopeAdmin
}

// String returns the string representation.
func (s Scope) String() string {
	return string(s)
}

// Profile is the minimal user profile kept alongside the token.
type Profile struct {
	ID       string `json:"id" toml:"id"`
	Email    string `json:"email" toml:"email"`
	Name     string `json:"name,omitempty" toml:"name,omitempty"`
	Company  string `json:"company,omitempty" toml:"company,omitempty"`
	Role     string `json:"role,omitempty" toml:"role,omitempty"`
	BrokerID string `json:"brokerId,omitempty" toml:"broker_id,omitempty"`
}

// IsAdmin returns true if the profile carries the admin role.
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == string(ScopeAdmin)
}

// Session is the persisted client state: one bearer token and the
// profile it was issued for.
type Session struct {
	// Token is the bearer token sent with every API request.
	Token string `json:"token" toml:"token"`

	// Profile is the signed-in user.
	Profile Profile `json:"user" toml:"profile"`

	// ExpiresAt is when the token expires. Zero means unknown.
	ExpiresAt time.Time `json:"expiresAt,omitempty" toml:"expires_at"`

	// SavedAt is when the session was written locally.
	SavedAt time.Time `json:"-" toml:"saved_at"`
}

// IsExpired returns true if the token is known to have expired.
func (s *Session) IsExpired() bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(s.ExpiresAt)
}

// IsAuthenticated returns true if the session holds a usable token.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.Token != "" && !s.IsExpired()
}

// DefaultScope returns the scope matching the signed-in user's role.
func (s *Session) DefaultScope() Scope {
	if s != nil && s.Profile.IsAdmin() {
		return ScopeAdmin
	}
	return ScopeUser
}

// SignupRequest carries the details collected before a signup OTP is sent.
type SignupRequest struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Company string `json:"company,omitempty"`
	Website string `json:"website,omitempty"`
}

// ProfileUpdate holds the editable profile fields.
type ProfileUpdate struct {
	Name    string `json:"name,omitempty"`
	Company string `json:"company,omitempty"`
}

// APIKey is a generated key for server-to-server access.
type APIKey struct {
	Name      string    `json:"keyName"`
	Key       string    `json:"apiKey"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}
