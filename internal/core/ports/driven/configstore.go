package driven

// ConfigStore holds client settings as dotted keys such as "api.url".
// Getters return the zero value when a key is missing or holds another
// type; SettingsService applies defaults on top.
type ConfigStore interface {
	// Get returns the raw stored value and whether the key exists.
	Get(key string) (any, bool)

	GetString(key string) string

	// GetInt truncates floats, since TOML decoders may widen numbers.
	GetInt(key string) int

	// GetFloat accepts integers.
	GetFloat(key string) float64

	GetBool(key string) bool

	// Set stores value and persists it before returning.
	Set(key string, value any) error
}
