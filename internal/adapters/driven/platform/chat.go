package platform

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driven"
)

type queryRequest struct {
	BrokerID string              `json:"brokerId"`
	Query    string              `json:"query"`
	Options  domain.QueryOptions `json:"options"`
}

// OpenChat posts a chat request and returns the streaming body.
// The body is only bounded by ctx.
func (c *Client) OpenChat(ctx context.Context, scope domain.Scope, req driven.ChatRequest) (io.ReadCloser, error) {
	resp, _, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   scoped(scope, "/chat"),
		body:   req,
		stream: true,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Query runs a non-streaming query.
func (c *Client) Query(ctx context.Context, scope domain.Scope, brokerID, query string, opts domain.QueryOptions) (*domain.QueryResult, error) {
	var result domain.QueryResult
	err := c.call(ctx, request{
		method: http.MethodPost,
		path:   scoped(scope, "/query"),
		body:   queryRequest{BrokerID: brokerID, Query: query, Options: opts},
	}, "", &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SessionHistory fetches the stored turns of a chat session.
func (c *Client) SessionHistory(ctx context.Context, sessionID string) ([]domain.HistoryEntry, error) {
	var history []domain.HistoryEntry
	err := c.call(ctx, request{
		method: http.MethodGet,
		path:   "/user/chat/session/" + seg(sessionID),
	}, "history", &history)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []domain.HistoryEntry{}
	}
	return history, nil
}

// ClearSession deletes the stored turns of a chat session.
func (c *Client) ClearSession(ctx context.Context, sessionID string) error {
	return c.call(ctx, request{
		method: http.MethodDelete,
		path:   "/user/chat/session/" + seg(sessionID),
	}, "", nil)
}

// NewSession asks the server for a fresh session id.
func (c *Client) NewSession(ctx context.Context) (string, error) {
	var out struct {
		SessionID string `json:"sessionId"`
	}
	if err := c.call(ctx, request{method: http.MethodPost, path: "/user/session/new"}, "", &out); err != nil {
		return "", err
	}
	if out.SessionID == "" {
		return "", fmt.Errorf("new session: %w: missing sessionId", domain.ErrUnexpectedResponse)
	}
	return out.SessionID, nil
}
