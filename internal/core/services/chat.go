package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driving"
	"github.com/custodia-labs/runit-cli/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// Texts shown in place of an answer when a request does not complete.
const (
	MsgRequestFailed    = "Failed to get response. Please try again."
	MsgRequestCancelled = "Request cancelled."
)

// ChatService opens chat sessions against the platform's chat endpoint.
type ChatService struct {
	gateway driven.ChatGateway
	newID   func() string
	now     func() time.Time
}

// NewChatService creates a new chat service.
func NewChatService(gateway driven.ChatGateway) *ChatService {
	return &ChatService{
		gateway: gateway,
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// OpenSession starts a conversation with a locally generated session id.
func (s *ChatService) OpenSession(ctx context.Context, scope domain.Scope, brokerID string) (driving.ChatSession, error) {
	return s.ResumeSession(ctx, scope, brokerID, "session_"+s.newID())
}

// ResumeSession continues a conversation the server already knows about.
func (s *ChatService) ResumeSession(
	_ context.Context, scope domain.Scope, brokerID, sessionID string,
) (driving.ChatSession, error) {
	if strings.TrimSpace(brokerID) == "" || strings.TrimSpace(sessionID) == "" {
		return nil, domain.ErrInvalidInput
	}
	if !scope.IsValid() {
		return nil, fmt.Errorf("invalid scope %q: %w", scope, domain.ErrInvalidInput)
	}

	return &chatSession{
		id:       sessionID,
		brokerID: brokerID,
		scope:    scope,
		gateway:  s.gateway,
		newID:    s.newID,
		now:      s.now,
		closedCh: make(chan struct{}),
	}, nil
}

// NewSession asks the server to allocate a session id.
func (s *ChatService) NewSession(ctx context.Context) (string, error) {
	id, err := s.gateway.NewSession(ctx)
	if err != nil {
		return "", fmt.Errorf("new session: %w", err)
	}
	return id, nil
}

// Query runs a non-streaming query.
func (s *ChatService) Query(
	ctx context.Context, scope domain.Scope, brokerID, query string, opts domain.QueryOptions,
) (*domain.QueryResult, error) {
	if strings.TrimSpace(brokerID) == "" || strings.TrimSpace(query) == "" {
		return nil, domain.ErrInvalidInput
	}
	logger.Debug("query broker=%s scope=%s", brokerID, scope)
	result, err := s.gateway.Query(ctx, scope, brokerID, query, opts)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", brokerID, err)
	}
	if result.Sources == nil {
		result.Sources = []domain.Source{}
	}
	return result, nil
}

// SessionHistory fetches the turns the server stored for a session id.
func (s *ChatService) SessionHistory(ctx context.Context, sessionID string) ([]domain.HistoryEntry, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, domain.ErrInvalidInput
	}
	entries, err := s.gateway.SessionHistory(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session history %s: %w", sessionID, err)
	}
	return entries, nil
}

// ClearSession deletes the turns the server stored for a session id.
func (s *ChatService) ClearSession(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return domain.ErrInvalidInput
	}
	if err := s.gateway.ClearSession(ctx, sessionID); err != nil {
		return fmt.Errorf("clear session %s: %w", sessionID, err)
	}
	return nil
}

// chatSession holds one conversation. All fields after mu are guarded by it.
type chatSession struct {
	id       string
	brokerID string
	scope    domain.Scope
	gateway  driven.ChatGateway
	newID    func() string
	now      func() time.Time
	closedCh chan struct{}

	mu       sync.Mutex
	messages []domain.ChatMessage
	busy     bool
	closed   bool
	cancel   context.CancelFunc
}

// ID returns the session id.
func (c *chatSession) ID() string { return c.id }

// BrokerID returns the website the session talks to.
func (c *chatSession) BrokerID() string { return c.brokerID }

// Messages returns a snapshot of the conversation.
func (c *chatSession) Messages() []domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.ChatMessage, len(c.messages))
	for i := range c.messages {
		out[i] = c.messages[i].Clone()
	}
	return out
}

// Busy returns true while a request or a Clear is in flight.
func (c *chatSession) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Send appends the user message and streams the answer in the background.
func (c *chatSession) Send(ctx context.Context, query string) (<-chan domain.ChatMessage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrInvalidInput
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, domain.ErrSessionClosed
	}
	if c.busy {
		c.mu.Unlock()
		return nil, domain.ErrRequestInFlight
	}
	reqCtx, cancel := context.WithCancel(ctx)
	c.busy = true
	c.cancel = cancel
	c.messages = append(c.messages, c.newMessage(domain.RoleUser, query, domain.MessageComplete))
	c.mu.Unlock()

	updates := make(chan domain.ChatMessage, 16)
	go c.stream(reqCtx, cancel, query, updates)
	return updates, nil
}

// stream runs one request to a terminal message.
func (c *chatSession) stream(ctx context.Context, cancel context.CancelFunc, query string, updates chan<- domain.ChatMessage) {
	defer close(updates)
	defer c.release(cancel)

	logger.Section("Chat")
	logger.Debug("session=%s broker=%s query=%q", c.id, c.brokerID, query)

	body, err := c.gateway.OpenChat(ctx, c.scope, driven.ChatRequest{
		BrokerID:  c.brokerID,
		Query:     query,
		SessionID: c.id,
	})
	if err != nil {
		logger.Error(err, "open chat stream")
		msg := c.append(c.newMessage(domain.RoleError, openErrorText(ctx, err), domain.MessageFailed))
		c.publish(updates, msg)
		return
	}
	defer body.Close()
	stop := context.AfterFunc(ctx, func() { _ = body.Close() })
	defer stop()

	idx, msg := c.appendIndexed(c.newMessage(domain.RoleAssistant, "", domain.MessageStreaming))
	c.publish(updates, msg)

	reader := NewFrameReader(body)
	for {
		frame, err := reader.Next()
		if err != nil {
			c.publish(updates, c.endStream(ctx, idx, err))
			return
		}

		msg, terminal := c.apply(idx, frame)
		c.publish(updates, msg)
		if terminal {
			return
		}
	}
}

// apply folds one frame into the assistant message.
func (c *chatSession) apply(idx int, frame domain.StreamFrame) (domain.ChatMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := &c.messages[idx]
	switch frame.Type {
	case domain.FrameToken:
		m.Text += frame.Content
	case domain.FrameSources:
		m.Sources = copySources(frame.Sources)
	case domain.FrameDone:
		if frame.HasSources || m.Sources == nil {
			m.Sources = copySources(frame.Sources)
		}
		m.State = domain.MessageComplete
	case domain.FrameError:
		m.Role = domain.RoleError
		m.Text = frame.Content
		if m.Text == "" {
			m.Text = MsgRequestFailed
		}
		m.State = domain.MessageFailed
	}
	return m.Clone(), m.State.IsTerminal()
}

// endStream finalises the assistant message when the body ends without a terminal frame.
func (c *chatSession) endStream(ctx context.Context, idx int, err error) domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := &c.messages[idx]
	switch {
	case ctx.Err() != nil:
		m.Role = domain.RoleError
		m.Text = MsgRequestCancelled
		m.State = domain.MessageFailed
	case errors.Is(err, io.EOF):
		if m.Sources == nil {
			m.Sources = []domain.Source{}
		}
		m.State = domain.MessageComplete
	default:
		logger.Error(err, "chat stream read")
		m.Role = domain.RoleError
		m.Text = MsgRequestFailed
		m.State = domain.MessageFailed
	}
	return m.Clone()
}

// publish delivers a snapshot unless the session was closed.
func (c *chatSession) publish(updates chan<- domain.ChatMessage, msg domain.ChatMessage) {
	select {
	case <-c.closedCh:
		return
	default:
	}
	select {
	case updates <- msg:
	case <-c.closedCh:
	}
}

func (c *chatSession) release(cancel context.CancelFunc) {
	c.mu.Lock()
	c.busy = false
	c.cancel = nil
	c.mu.Unlock()
	cancel()
}

func (c *chatSession) append(msg domain.ChatMessage) domain.ChatMessage {
	_, out := c.appendIndexed(msg)
	return out
}

func (c *chatSession) appendIndexed(msg domain.ChatMessage) (int, domain.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	return len(c.messages) - 1, msg.Clone()
}

func (c *chatSession) newMessage(role domain.Role, text string, state domain.MessageState) domain.ChatMessage {
	return domain.ChatMessage{
		ID:        c.newID(),
		Role:      role,
		Text:      text,
		State:     state,
		CreatedAt: c.now(),
	}
}

// History fetches the turns stored by the server.
func (c *chatSession) History(ctx context.Context) ([]domain.HistoryEntry, error) {
	entries, err := c.gateway.SessionHistory(ctx, c.id)
	if err != nil {
		return nil, fmt.Errorf("session history %s: %w", c.id, err)
	}
	return entries, nil
}

// Clear deletes the server-side history and the local conversation.
// Sends are rejected with ErrRequestInFlight until it returns.
func (c *chatSession) Clear(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.ErrSessionClosed
	}
	if c.busy {
		c.mu.Unlock()
		return domain.ErrRequestInFlight
	}
	c.busy = true
	c.mu.Unlock()

	err := c.gateway.ClearSession(ctx, c.id)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	if err != nil {
		return fmt.Errorf("clear session %s: %w", c.id, err)
	}
	c.messages = nil
	return nil
}

// Close cancels the in-flight request. Updates after Close are dropped.
func (c *chatSession) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.closedCh)
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

// openErrorText picks the text shown when the request failed before streaming.
func openErrorText(ctx context.Context, err error) string {
	if ctx.Err() != nil {
		return MsgRequestCancelled
	}
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return MsgRequestFailed
}

func copySources(src []domain.Source) []domain.Source {
	out := make([]domain.Source, len(src))
	copy(out, src)
	return out
}
