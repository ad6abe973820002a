package domain

// Widget positions.
const (
	WidgetBottomRight = "bottom-right"
	WidgetBottomLeft  = "bottom-left"
)

// WidgetSettings configures the embeddable chat widget of a website.
type WidgetSettings struct {
	Enabled         bool   `json:"enabled" yaml:"enabled"`
	GreetingMessage string `json:"greetingMessage" yaml:"greeting_message"`
	PrimaryColor    string `json:"primaryColor" yaml:"primary_color"`
	SecondaryColor  string `json:"secondaryColor" yaml:"secondary_color"`
	TextColor       string `json:"textColor" yaml:"text_color"`
	Position        string `json:"position" yaml:"position"`
	WidgetTitle     string `json:"widgetTitle" yaml:"widget_title"`
	PlaceholderText string `json:"placeholderText" yaml:"placeholder_text"`
}

// DefaultWidgetSettings returns the settings used until a tenant saves its own.
func DefaultWidgetSettings() WidgetSettings {
	return WidgetSettings{
		Enabled:         true,
		GreetingMessage: "Hi! How can I help you today?",
		PrimaryColor:    "#9333ea",
		SecondaryColor:  "#f3f4f6",
		TextColor:       "#ffffff",
		Position:        WidgetBottomRight,
		WidgetTitle:     "Chat Support",
		PlaceholderText: "Type your message...",
	}
}

// Merge overlays the non-empty fields of other onto s.
// Enabled is always taken from other because false is meaningful.
func (s WidgetSettings) Merge(other WidgetSettings) WidgetSettings {
	out := s
	out.Enabled = other.Enabled
	if other.GreetingMessage != "" {
		out.GreetingMessage = other.GreetingMessage
	}
	if other.PrimaryColor != "" {
		out.PrimaryColor = other.PrimaryColor
	}
	if other.SecondaryColor != "" {
		out.SecondaryColor = other.SecondaryColor
	}
	if other.TextColor != "" {
		out.TextColor = other.TextColor
	}
	if other.Position != "" {
		out.Position = other.Position
	}
	if other.WidgetTitle != "" {
		out.WidgetTitle = other.WidgetTitle
	}
	if other.PlaceholderText != "" {
		out.PlaceholderText = other.PlaceholderText
	}
	return out
}

// Validate checks the fields the widget script cannot recover from.
func (s WidgetSettings) Validate() error {
	if s.Position != WidgetBottomRight && s.Position != WidgetBottomLeft {
		return ErrInvalidInput
	}
	for _, c := range []string{s.PrimaryColor, s.SecondaryColor, s.TextColor} {
		if !isHexColour(c) {
			return ErrInvalidInput
		}
	}
	return nil
}

func isHexColour(s string) bool {
	if len(s) != 4 && len(s) != 7 {
		return false
	}
	if s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
