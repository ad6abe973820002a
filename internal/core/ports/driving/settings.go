package driving

import "github.com/custodia-labs/runit-cli/internal/core/domain"

// SettingsService manages client settings.
type SettingsService interface {
	// Get resolves settings from config, environment and defaults.
	Get() domain.ClientSettings

	// Set validates and persists one setting by key.
	Set(key, value string) error

	// Raw returns the stored value of a key and whether it was set.
	Raw(key string) (any, bool)

	// GetDefaults returns default settings.
	GetDefaults() domain.ClientSettings
}
