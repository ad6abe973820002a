package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driving"
)

// Ensure WidgetService implements the interface.
var _ driving.WidgetService = (*WidgetService)(nil)

// embedTemplate installs the chat widget loader on a customer's page.
var embedTemplate = template.Must(template.New("embed").Parse(`<script>
(function(w, d, s, id) {
  w.RunItChat = w.RunItChat || function() {
    (w.RunItChat.q = w.RunItChat.q || []).push(arguments);
  };
  var js, fjs = d.getElementsByTagName(s)[0];
  if (d.getElementById(id)) return;
  js = d.createElement(s);
  js.id = id;
  js.src = '{{.BaseURL}}/chat-widget.js';
  js.setAttribute('data-broker-id', '{{.BrokerID}}');
  js.setAttribute('data-api-key', '{{.APIKey}}');
  fjs.parentNode.insertBefore(js, fjs);
}(window, document, 'script', 'runit-chat-widget'));
</script>
`))

// placeholderAPIKey is embedded when no key could be fetched.
const placeholderAPIKey = "YOUR_API_KEY"

// WidgetService manages the embeddable chat widget.
type WidgetService struct {
	gateway driven.WidgetGateway
	apiURL  string
}

// NewWidgetService creates a widget service. apiURL is the versioned API
// base; the widget script is served from its origin.
func NewWidgetService(gateway driven.WidgetGateway, apiURL string) *WidgetService {
	return &WidgetService{gateway: gateway, apiURL: apiURL}
}

// Get returns saved settings over the defaults. A website without saved
// settings gets the defaults.
func (s *WidgetService) Get(ctx context.Context, brokerID string) (*domain.WidgetSettings, error) {
	if strings.TrimSpace(brokerID) == "" {
		return nil, domain.ErrInvalidInput
	}
	saved, err := s.gateway.WidgetSettings(ctx, brokerID)
	defaults := domain.DefaultWidgetSettings()
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return &defaults, nil
	case err != nil:
		return nil, fmt.Errorf("widget settings %s: %w", brokerID, err)
	case saved == nil:
		return &defaults, nil
	}
	merged := defaults.Merge(*saved)
	return &merged, nil
}

// Update validates and saves settings.
func (s *WidgetService) Update(ctx context.Context, brokerID string, settings domain.WidgetSettings) error {
	if strings.TrimSpace(brokerID) == "" {
		return domain.ErrInvalidInput
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("widget settings: %w", err)
	}
	if err := s.gateway.UpdateWidgetSettings(ctx, brokerID, settings); err != nil {
		return fmt.Errorf("update widget settings %s: %w", brokerID, err)
	}
	return nil
}

// EmbedSnippet renders the script tag for a website.
func (s *WidgetService) EmbedSnippet(ctx context.Context, brokerID string) (string, error) {
	if strings.TrimSpace(brokerID) == "" {
		return "", domain.ErrInvalidInput
	}
	key, err := s.gateway.WidgetAPIKey(ctx, brokerID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("widget api key %s: %w", brokerID, err)
		}
		key = ""
	}
	if key == "" {
		key = placeholderAPIKey
	}

	var b strings.Builder
	err = embedTemplate.Execute(&b, struct {
		BaseURL, BrokerID, APIKey string
	}{
		BaseURL:  WidgetBaseURL(s.apiURL),
		BrokerID: brokerID,
		APIKey:   key,
	})
	if err != nil {
		return "", fmt.Errorf("render embed snippet: %w", err)
	}
	return b.String(), nil
}

// WidgetBaseURL strips the versioned API path from apiURL.
func WidgetBaseURL(apiURL string) string {
	base := strings.TrimRight(apiURL, "/")
	base = strings.TrimSuffix(base, "/v1")
	base = strings.TrimSuffix(base, "/api")
	return base
}
