package platform

import (
	"context"
	"net/http"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
)

// WidgetSettings fetches the saved widget settings of a website.
func (c *Client) WidgetSettings(ctx context.Context, brokerID string) (*domain.WidgetSettings, error) {
	var out struct {
		Settings *domain.WidgetSettings `json:"settings"`
	}
	err := c.call(ctx, request{
		method: http.MethodGet,
		path:   "/user/widget/" + seg(brokerID) + "/settings",
	}, "", &out)
	if err != nil {
		return nil, err
	}
	return out.Settings, nil
}

// UpdateWidgetSettings saves the widget settings of a website.
func (c *Client) UpdateWidgetSettings(ctx context.Context, brokerID string, settings domain.WidgetSettings) error {
	return c.call(ctx, request{
		method: http.MethodPut,
		path:   "/user/widget/" + seg(brokerID) + "/settings",
		body:   settings,
	}, "", nil)
}

// WidgetAPIKey fetches the public key embedded in the widget script.
func (c *Client) WidgetAPIKey(ctx context.Context, brokerID string) (string, error) {
	var out struct {
		APIKey string `json:"apiKey"`
	}
	err := c.call(ctx, request{
		method: http.MethodGet,
		path:   "/user/widget/" + seg(brokerID) + "/api-key",
	}, "", &out)
	if err != nil {
		return "", err
	}
	return out.APIKey, nil
}
