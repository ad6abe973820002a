package services

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Environment variables that override the config file.
const (
	EnvAPIURL = "RUNIT_API_URL"
	EnvToken  = "RUNIT_TOKEN"
)

// SettingsService resolves client settings from flags, environment,
// the config file and defaults, in that order of precedence.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
	apiURLFlag  string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
}

// SetAPIURLOverride applies the --api-url flag. Empty clears it.
func (s *SettingsService) SetAPIURLOverride(apiURL string) {
	s.apiURLFlag = strings.TrimSpace(apiURL)
}

// Get resolves the current settings. Invalid stored values fall back to defaults.
func (s *SettingsService) Get() domain.ClientSettings {
	defaults := domain.DefaultClientSettings()

	settings := domain.ClientSettings{
		APIURL:          s.getString(domain.KeyAPIURL, defaults.APIURL),
		Timeout:         s.getSeconds(domain.KeyAPITimeout, defaults.Timeout),
		RateLimit:       s.getFloat(domain.KeyAPIRateLimit, defaults.RateLimit),
		PollInterval:    s.getSeconds(domain.KeyPollInterval, defaults.PollInterval),
		LogBufferSize:   s.getInt(domain.KeyLogBuffer, defaults.LogBufferSize),
		ArchiveEntries:  s.getInt(domain.KeyArchiveEntries, defaults.ArchiveEntries),
		RenderMarkdown:  s.getBool(domain.KeyRenderMarkdown, defaults.RenderMarkdown),
		DefaultBrokerID: s.configStore.GetString(domain.KeyDefaultBrokerID),
		Scope:           s.getScope(),
	}

	if env := strings.TrimSpace(s.getenv(EnvAPIURL)); env != "" {
		settings.APIURL = env
	}
	if s.apiURLFlag != "" {
		settings.APIURL = s.apiURLFlag
	}
	settings.APIURL = settings.NormalisedAPIURL()

	return settings
}

// GetDefaults returns the default settings.
func (s *SettingsService) GetDefaults() domain.ClientSettings {
	return domain.DefaultClientSettings()
}

// Raw returns the stored value of key.
func (s *SettingsService) Raw(key string) (any, bool) {
	return s.configStore.Get(key)
}

// Set parses value for key, validates it and persists it.
func (s *SettingsService) Set(key, value string) error {
	value = strings.TrimSpace(value)
	parsed, err := parseSetting(key, value)
	if err != nil {
		return err
	}
	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// parseSetting converts a string into the type stored for key.
func parseSetting(key, value string) (any, error) {
	invalid := func(reason string) error {
		return fmt.Errorf("%s: %s: %w", key, reason, domain.ErrInvalidInput)
	}

	switch key {
	case domain.KeyAPIURL:
		u, err := url.Parse(value)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, invalid("must be an http(s) URL")
		}
		return strings.TrimRight(value, "/"), nil

	case domain.KeyAPITimeout, domain.KeyPollInterval, domain.KeyLogBuffer, domain.KeyArchiveEntries:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return nil, invalid("must be a positive integer")
		}
		return int64(n), nil

	case domain.KeyAPIRateLimit:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return nil, invalid("must be a non-negative number")
		}
		return f, nil

	case domain.KeyRenderMarkdown:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, invalid("must be true or false")
		}
		return b, nil

	case domain.KeyDefaultScopeName:
		scope := domain.Scope(value)
		if value != "" && !scope.IsValid() {
			return nil, invalid("must be user or admin")
		}
		return value, nil

	case domain.KeyDefaultBrokerID:
		return value, nil
	}

	return nil, fmt.Errorf("unknown setting %q (known: %s): %w",
		key, strings.Join(domain.AllSettingKeys(), ", "), domain.ErrInvalidInput)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	val := s.configStore.GetFloat(key)
	if val < 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getSeconds(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return time.Duration(val) * time.Second
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getScope() domain.Scope {
	scope := domain.Scope(s.configStore.GetString(domain.KeyDefaultScopeName))
	if !scope.IsValid() {
		return ""
	}
	return scope
}
