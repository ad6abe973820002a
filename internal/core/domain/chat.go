package domain

import (
	"encoding/json"
	"time"
)

// Role identifies who produced a chat message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleError     Role = "error"
)

// MessageState tracks whether a message is still being assembled.
type MessageState string

// Message states.
const (
	// MessageStreaming means tokens may still arrive.
	MessageStreaming MessageState = "streaming"

	// MessageComplete is terminal: the stream finished normally.
	MessageComplete MessageState = "complete"

	// MessageFailed is terminal: the request or stream failed.
	MessageFailed MessageState = "failed"
)

// IsTerminal returns true if no further updates will be applied.
func (s MessageState) IsTerminal() bool {
	return s == MessageComplete || s == MessageFailed
}

// ChatMessage is a single turn in a local chat session.
// Messages live only as long as the session that holds them.
type ChatMessage struct {
	// ID is a locally generated identifier (UUID).
	ID string `json:"id"`

	// Role is user, assistant or error.
	Role Role `json:"role"`

	// Text is the message body. Assistant text grows as tokens arrive.
	Text string `json:"text"`

	// Sources are the documents the answer was grounded on.
	Sources []Source `json:"sources"`

	// State is streaming until a terminal frame or failure.
	State MessageState `json:"state"`

	// CreatedAt is when the message was created locally.
	CreatedAt time.Time `json:"createdAt"`
}

// Clone returns a deep copy safe to hand to another goroutine.
func (m ChatMessage) Clone() ChatMessage {
	c := m
	if m.Sources != nil {
		c.Sources = make([]Source, len(m.Sources))
		copy(c.Sources, m.Sources)
	}
	return c
}

// Source is a document cited by an assistant answer.
type Source struct {
	URL            string  `json:"url"`
	Title          string  `json:"title,omitempty"`
	RelevanceScore float64 `json:"relevanceScore,omitempty"`
}

// UnmarshalJSON accepts both relevanceScore and score, as emitted by
// different versions of the chat backend.
func (s *Source) UnmarshalJSON(data []byte) error {
	var raw struct {
		URL            string   `json:"url"`
		Title          string   `json:"title"`
		RelevanceScore *float64 `json:"relevanceScore"`
		Score          *float64 `json:"score"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.URL = raw.URL
	s.Title = raw.Title
	switch {
	case raw.RelevanceScore != nil:
		s.RelevanceScore = *raw.RelevanceScore
	case raw.Score != nil:
		s.RelevanceScore = *raw.Score
	default:
		s.RelevanceScore = 0
	}
	return nil
}

// FrameType discriminates chat stream frames.
type FrameType string

// Chat stream frame types.
const (
	FrameToken   FrameType = "token"
	FrameSources FrameType = "sources"
	FrameDone    FrameType = "done"
	FrameError   FrameType = "error"
)

// IsTerminal returns true for frames that end a chat stream.
func (t FrameType) IsTerminal() bool {
	return t == FrameDone || t == FrameError
}

// StreamFrame is one decoded `data: {json}` line of a chat stream.
type StreamFrame struct {
	Type    FrameType `json:"type"`
	Content string    `json:"content,omitempty"`
	Sources []Source  `json:"sources,omitempty"`

	// HasSources is true when the frame carried a sources field,
	// even an empty one. A done frame without it keeps earlier sources.
	HasSources bool `json:"-"`
}

// UnmarshalJSON records whether the sources field was present.
func (f *StreamFrame) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type    FrameType        `json:"type"`
		Content string           `json:"content"`
		Sources *json.RawMessage `json:"sources"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.Type = raw.Type
	f.Content = raw.Content
	f.Sources = nil
	f.HasSources = false
	if raw.Sources != nil {
		f.HasSources = true
		if string(*raw.Sources) != "null" {
			if err := json.Unmarshal(*raw.Sources, &f.Sources); err != nil {
				return err
			}
		}
	}
	return nil
}

// HistoryEntry is a stored turn returned by the session history endpoint.
type HistoryEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Sources   []Source  `json:"sources,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// QueryResult is the response of the non-streaming query endpoint.
type QueryResult struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
	Cached  bool     `json:"cached,omitempty"`
}

// QueryOptions tunes a non-streaming query.
type QueryOptions struct {
	TopK           int     `json:"topK,omitempty"`
	MinRelevance   float64 `json:"minRelevance,omitempty"`
	IncludeSources bool    `json:"includeSources,omitempty"`
}
