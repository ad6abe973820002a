package domain

import (
	"net/url"
	"strings"
	"time"
)

// Default client settings.
const (
	DefaultAPIURL         = "https://brain.runit.in/api/v1"
	DefaultAPITimeout     = 30 * time.Second
	DefaultRateLimit      = 5.0
	DefaultPollInterval   = 3 * time.Second
	DefaultLogBufferSize  = 500
	DefaultArchiveEntries = 200
)

// Configuration keys understood by the config store.
const (
	KeyAPIURL           = "api.url"
	KeyAPITimeout       = "api.timeout_seconds"
	KeyAPIRateLimit     = "api.rate_limit"
	KeyPollInterval     = "crawl.poll_interval_seconds"
	KeyLogBuffer        = "crawl.log_buffer"
	KeyArchiveEntries   = "crawl.archive_entries"
	KeyRenderMarkdown   = "chat.render_markdown"
	KeyDefaultBrokerID  = "chat.default_broker"
	KeyDefaultScopeName = "api.scope"
)

// AllSettingKeys lists the keys accepted by `runit config set`.
func AllSettingKeys() []string {
	return []string{
		KeyAPIURL, KeyAPITimeout, KeyAPIRateLimit, KeyPollInterval,
		KeyLogBuffer, KeyArchiveEntries, KeyRenderMarkdown,
		KeyDefaultBrokerID, KeyDefaultScopeName,
	}
}

// ClientSettings holds the resolved client configuration.
type ClientSettings struct {
	// APIURL is the versioned base URL of the platform API.
	APIURL string

	// Timeout bounds non-streaming requests. Streams are bounded by context only.
	Timeout time.Duration

	// RateLimit is the client-side request budget per second. Zero disables it.
	RateLimit float64

	// PollInterval is the delay between crawl status polls.
	PollInterval time.Duration

	// LogBufferSize caps the number of crawl log entries kept in memory.
	LogBufferSize int

	// ArchiveEntries caps the number of log entries archived per crawl job.
	ArchiveEntries int

	// RenderMarkdown renders final answers as markdown on a terminal.
	RenderMarkdown bool

	// DefaultBrokerID is used by chat and query when no website is given.
	DefaultBrokerID string

	// Scope overrides the scope derived from the signed-in role.
	Scope Scope
}

// DefaultClientSettings returns sensible defaults.
func DefaultClientSettings() ClientSettings {
	return ClientSettings{
		APIURL:         DefaultAPIURL,
		Timeout:        DefaultAPITimeout,
		RateLimit:      DefaultRateLimit,
		PollInterval:   DefaultPollInterval,
		LogBufferSize:  DefaultLogBufferSize,
		ArchiveEntries: DefaultArchiveEntries,
		RenderMarkdown: true,
	}
}

// Validate checks the settings can be used to build a client.
func (s ClientSettings) Validate() error {
	u, err := url.Parse(s.APIURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidInput
	}
	if s.PollInterval <= 0 || s.LogBufferSize <= 0 {
		return ErrInvalidInput
	}
	if s.Scope != "" && !s.Scope.IsValid() {
		return ErrInvalidInput
	}
	return nil
}

// NormalisedAPIURL returns the API URL without a trailing slash.
func (s ClientSettings) NormalisedAPIURL() string {
	return strings.TrimRight(s.APIURL, "/")
}
