package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
)

func streamedReply(final string, sources ...domain.Source) []domain.ChatMessage {
	return []domain.ChatMessage{
		{Role: domain.RoleAssistant, Text: final[:len(final)/2], State: domain.MessageStreaming},
		{Role: domain.RoleAssistant, Text: final, State: domain.MessageStreaming},
		{Role: domain.RoleAssistant, Text: final, State: domain.MessageComplete, Sources: sources},
	}
}

func TestChat_Once(t *testing.T) {
	session := &mockChatSession{id: "session_1", replies: [][]domain.ChatMessage{
		streamedReply("We open at nine.", domain.Source{URL: "https://shop.example.com/hours", Title: "Hours", RelevanceScore: 0.87}),
	}}
	chat := &mockChatService{session: session}

	out, err := executeCommand(t, &Services{Chat: chat}, "", "chat", "WEB1", "--once", "When do you open?")

	require.NoError(t, err)
	assert.Equal(t, "WEB1", chat.broker)
	assert.Equal(t, []string{"When do you open?"}, session.sent)
	assert.Contains(t, out, "We open at nine.")
	assert.NotContains(t, out, "We openWe open", "streamed text is printed once")
	assert.Contains(t, out, "[1] Hours - https://shop.example.com/hours (87%)")
	assert.True(t, session.closed)
}

func TestChat_Once_NoSources(t *testing.T) {
	session := &mockChatSession{replies: [][]domain.ChatMessage{
		streamedReply("Yes.", domain.Source{URL: "https://a.example.com"}),
	}}

	out, err := executeCommand(t, &Services{Chat: &mockChatService{session: session}}, "",
		"chat", "WEB1", "--once", "ok?", "--no-sources")

	require.NoError(t, err)
	assert.NotContains(t, out, "Sources:")
}

func TestChat_Once_Failure(t *testing.T) {
	session := &mockChatSession{replies: [][]domain.ChatMessage{{
		{Role: domain.RoleError, Text: "Request cancelled", State: domain.MessageFailed},
	}}}

	out, err := executeCommand(t, &Services{Chat: &mockChatService{session: session}}, "", "chat", "WEB1", "--once", "hi")

	assert.EqualError(t, err, "Request cancelled")
	assert.Contains(t, out, "Error: Request cancelled")
}

func TestChat_Interactive(t *testing.T) {
	session := &mockChatSession{
		id:      "session_1",
		replies: [][]domain.ChatMessage{streamedReply("Hello there.")},
		history: []domain.HistoryEntry{{Role: "user", Content: "hello"}},
	}

	out, err := executeCommand(t, &Services{Chat: &mockChatService{session: session}},
		"hello\n/history\n/clear\n/quit\n", "chat", "WEB1")

	require.NoError(t, err)
	assert.Contains(t, out, "Chatting with WEB1 (session session_1)")
	assert.Contains(t, out, "Hello there.")
	assert.Contains(t, out, "[user] hello")
	assert.Contains(t, out, "Conversation cleared.")
	assert.True(t, session.cleared)
	assert.Equal(t, []string{"hello"}, session.sent)
}

func TestChat_Interactive_EOF(t *testing.T) {
	session := &mockChatSession{}

	_, err := executeCommand(t, &Services{Chat: &mockChatService{session: session}}, "", "chat", "WEB1")

	require.NoError(t, err)
	assert.Empty(t, session.sent)
}

func TestChat_ResumeSession(t *testing.T) {
	session := &mockChatSession{replies: [][]domain.ChatMessage{streamedReply("Again.")}}
	chat := &mockChatService{session: session}

	_, err := executeCommand(t, &Services{Chat: chat}, "", "chat", "WEB1", "--session", "session_42", "--once", "more")

	require.NoError(t, err)
	assert.Equal(t, "session_42", chat.resumedID)
}

func TestChat_BrokerFromSettings(t *testing.T) {
	chat := &mockChatService{session: &mockChatSession{replies: [][]domain.ChatMessage{streamedReply("ok")}}}
	settings := &mockSettingsService{settings: domain.ClientSettings{DefaultBrokerID: "WEB_DEFAULT"}}

	_, err := executeCommand(t, &Services{Chat: chat, Settings: settings}, "", "chat", "--once", "hi")

	require.NoError(t, err)
	assert.Equal(t, "WEB_DEFAULT", chat.broker)
}

func TestChat_BrokerFromProfile(t *testing.T) {
	chat := &mockChatService{session: &mockChatSession{replies: [][]domain.ChatMessage{streamedReply("ok")}}}
	auth := &mockAuthService{session: &domain.Session{Token: "t", Profile: domain.Profile{BrokerID: "WEB_MINE"}}}

	_, err := executeCommand(t, &Services{Chat: chat, Auth: auth}, "", "chat", "--once", "hi")

	require.NoError(t, err)
	assert.Equal(t, "WEB_MINE", chat.broker)
}

func TestChat_BrokerChosenFromList(t *testing.T) {
	chat := &mockChatService{session: &mockChatSession{replies: [][]domain.ChatMessage{streamedReply("ok")}}}
	websites := &mockWebsiteService{websites: []domain.Website{
		{BrokerID: "WEB1", Name: "Docs", Domain: "docs.example.com"},
		{BrokerID: "WEB2", Name: "Shop", Domain: "shop.example.com"},
	}}

	out, err := executeCommand(t, &Services{Chat: chat, Website: websites}, "2\n", "chat", "--once", "hi")

	require.NoError(t, err)
	assert.Contains(t, out, "2. Shop (shop.example.com)")
	assert.Equal(t, "WEB2", chat.broker)
}

func TestChat_NoWebsites(t *testing.T) {
	chat := &mockChatService{session: &mockChatSession{}}

	_, err := executeCommand(t, &Services{Chat: chat, Website: &mockWebsiteService{}}, "", "chat")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "runit website add")
}

func TestChat_OpenError(t *testing.T) {
	chat := &mockChatService{err: domain.ErrAuthRequired}

	_, err := executeCommand(t, &Services{Chat: chat}, "", "chat", "WEB1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open chat")
	assert.Contains(t, err.Error(), "runit login")
}

func TestQuery(t *testing.T) {
	chat := &mockChatService{result: &domain.QueryResult{
		Answer:  "Returns are free within 30 days.",
		Sources: []domain.Source{{URL: "https://shop.example.com/returns"}},
	}}

	out, err := executeCommand(t, &Services{Chat: chat}, "", "query", "WEB1", "Are returns free?", "--top-k", "3")

	require.NoError(t, err)
	assert.Equal(t, "Are returns free?", chat.query)
	assert.Equal(t, domain.QueryOptions{TopK: 3, IncludeSources: true}, chat.opts)
	assert.Contains(t, out, "Returns are free within 30 days.")
	assert.Contains(t, out, "[1] https://shop.example.com/returns")
}

func TestQuery_JSON(t *testing.T) {
	chat := &mockChatService{result: &domain.QueryResult{Answer: "Yes", Cached: true}}

	out, err := executeCommand(t, &Services{Chat: chat}, "", "query", "WEB1", "q", "--json")

	require.NoError(t, err)
	assert.Contains(t, out, `"answer": "Yes"`)
	assert.Contains(t, out, `"cached": true`)
}

func TestSessionCommands(t *testing.T) {
	t.Run("new", func(t *testing.T) {
		out, err := executeCommand(t, &Services{Chat: &mockChatService{}}, "", "session", "new")
		require.NoError(t, err)
		assert.Contains(t, out, "session_1700000000000_abc123")
	})

	t.Run("history", func(t *testing.T) {
		chat := &mockChatService{history: []domain.HistoryEntry{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
		}}
		out, err := executeCommand(t, &Services{Chat: chat}, "", "session", "history", "session_1")
		require.NoError(t, err)
		assert.Contains(t, out, "[user] hi")
		assert.Contains(t, out, "[assistant] hello")
	})

	t.Run("empty history", func(t *testing.T) {
		out, err := executeCommand(t, &Services{Chat: &mockChatService{}}, "", "session", "history", "session_1")
		require.NoError(t, err)
		assert.Contains(t, out, "No stored turns.")
	})

	t.Run("clear", func(t *testing.T) {
		chat := &mockChatService{}
		out, err := executeCommand(t, &Services{Chat: chat}, "", "session", "clear", "session_1")
		require.NoError(t, err)
		assert.Equal(t, "session_1", chat.clearedID)
		assert.Contains(t, out, "Session session_1 cleared.")
	})
}
