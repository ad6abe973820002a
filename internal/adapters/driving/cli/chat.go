package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driving"
)

var chatCmd = &cobra.Command{
	Use:   "chat [broker-id]",
	Short: "Chat with a website's assistant",
	Long: `Start an interactive chat with the assistant trained on a website.

Answers stream in as they are generated. Type /clear to forget the
conversation, /history to print what the server stored and /quit to leave.

Without a broker id, the configured default website (chat.default_broker)
or the website linked to your account is used.

Examples:
  runit chat WEB123
  runit chat WEB123 --once "What are your opening hours?"
  runit chat --session session_1234`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

var queryCmd = &cobra.Command{
	Use:   "query [broker-id] [question]",
	Short: "Ask a single question without streaming",
	Args:  cobra.ExactArgs(2),
	RunE:  runQuery,
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage server-side chat sessions",
}

var sessionNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Allocate a new session id",
	RunE:  runSessionNew,
}

var sessionHistoryCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "Print the turns stored for a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionHistory,
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear [session-id]",
	Short: "Delete the turns stored for a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionClear,
}

// Flags for chat commands.
var (
	chatOnce       string
	chatSessionID  string
	chatNoSources  bool
	queryTopK      int
	queryMinScore  float64
	queryJSON      bool
	historyJSONOut bool
)

func init() {
	chatCmd.Flags().StringVar(&chatOnce, "once", "", "ask one question and exit")
	chatCmd.Flags().StringVar(&chatSessionID, "session", "", "continue an existing session")
	chatCmd.Flags().BoolVar(&chatNoSources, "no-sources", false, "do not print sources")

	queryCmd.Flags().IntVar(&queryTopK, "top-k", 0, "number of chunks to retrieve")
	queryCmd.Flags().Float64Var(&queryMinScore, "min-relevance", 0, "minimum relevance score")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")

	sessionHistoryCmd.Flags().BoolVar(&historyJSONOut, "json", false, "output as JSON")

	sessionCmd.AddCommand(sessionNewCmd)
	sessionCmd.AddCommand(sessionHistoryCmd)
	sessionCmd.AddCommand(sessionClearCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(sessionCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}
	ctx := cmd.Context()
	reader := bufio.NewReader(cmd.InOrStdin())

	brokerID, err := resolveBrokerID(cmd, reader, args)
	if err != nil {
		return err
	}

	scope := currentScope(ctx)
	var session driving.ChatSession
	if chatSessionID != "" {
		session, err = chatService.ResumeSession(ctx, scope, brokerID, chatSessionID)
	} else {
		session, err = chatService.OpenSession(ctx, scope, brokerID)
	}
	if err != nil {
		return fmt.Errorf("failed to open chat: %w", friendlyError(err))
	}
	defer session.Close()

	if chatOnce != "" {
		return chatTurn(cmd, session, chatOnce)
	}

	cmd.Printf("Chatting with %s (session %s). /quit to leave.\n\n", brokerID, session.ID())
	for {
		cmd.Print("> ")
		line, readErr := reader.ReadString('\n')
		input := strings.TrimSpace(line)

		switch input {
		case "":
		case "/quit", "/exit":
			return nil
		case "/clear":
			if err := session.Clear(ctx); err != nil {
				cmd.PrintErrf("Clear failed: %v\n", err)
			} else {
				cmd.Println("Conversation cleared.")
			}
		case "/history":
			history, err := session.History(ctx)
			if err != nil {
				cmd.PrintErrf("History failed: %v\n", err)
			} else {
				printHistory(cmd, history)
			}
		default:
			if err := chatTurn(cmd, session, input); err != nil && ctx.Err() != nil {
				return nil
			}
		}

		if readErr != nil {
			return nil
		}
		cmd.Println()
	}
}

// chatTurn sends one query and prints the answer as it streams.
// Returns an error when the answer failed.
func chatTurn(cmd *cobra.Command, session driving.ChatSession, query string) error {
	updates, err := session.Send(cmd.Context(), query)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}

	var last domain.ChatMessage
	printed := 0
	for msg := range updates {
		last = msg
		if msg.Role == domain.RoleAssistant && len(msg.Text) > printed {
			cmd.Print(msg.Text[printed:])
			printed = len(msg.Text)
		}
	}

	if last.Role == domain.RoleError {
		if printed > 0 {
			cmd.Println()
		}
		cmd.PrintErrln("Error: " + last.Text)
		return errors.New(last.Text)
	}

	cmd.Println()
	if !chatNoSources {
		printSources(cmd, last.Sources)
	}
	return nil
}

func printSources(cmd *cobra.Command, sources []domain.Source) {
	if len(sources) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Sources:")
	for i, s := range sources {
		title := s.Title
		if title == "" {
			title = s.URL
		}
		cmd.Printf("  [%d] %s", i+1, title)
		if title != s.URL {
			cmd.Printf(" - %s", s.URL)
		}
		if s.RelevanceScore > 0 {
			cmd.Printf(" (%.0f%%)", s.RelevanceScore*100)
		}
		cmd.Println()
	}
}

// resolveBrokerID picks the website to talk to from args, settings, the
// signed-in profile or, as a last resort, an interactive choice.
func resolveBrokerID(cmd *cobra.Command, reader *bufio.Reader, args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0]), nil
	}
	if settingsService != nil {
		if id := settingsService.Get().DefaultBrokerID; id != "" {
			return id, nil
		}
	}

	ctx := cmd.Context()
	if authService != nil {
		if session, err := authService.Current(ctx); err == nil && session.Profile.BrokerID != "" {
			return session.Profile.BrokerID, nil
		}
	}

	if websiteService == nil {
		return "", errors.New("no website given")
	}
	sites, err := websiteService.List(ctx, currentScope(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to list websites: %w", friendlyError(err))
	}
	switch len(sites) {
	case 0:
		return "", errors.New("no websites yet: add one with 'runit website add'")
	case 1:
		return sites[0].BrokerID, nil
	}

	cmd.Println("Websites:")
	for i := range sites {
		cmd.Printf("  %d. %s (%s)\n", i+1, sites[i].Name, sites[i].Domain)
	}
	cmd.Print("Select website [1]: ")
	choice := parseChoice(readLine(reader), len(sites), 1)
	return sites[choice-1].BrokerID, nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}
	ctx := cmd.Context()

	opts := domain.QueryOptions{TopK: queryTopK, MinRelevance: queryMinScore, IncludeSources: true}
	result, err := chatService.Query(ctx, currentScope(ctx), args[0], args[1], opts)
	if err != nil {
		return fmt.Errorf("query failed: %w", friendlyError(err))
	}

	if queryJSON {
		return printJSON(cmd, result)
	}
	cmd.Println(renderMarkdown(cmd.OutOrStdout(), result.Answer))
	printSources(cmd, result.Sources)
	return nil
}

func runSessionNew(cmd *cobra.Command, _ []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}
	id, err := chatService.NewSession(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to create session: %w", friendlyError(err))
	}
	cmd.Println(id)
	return nil
}

func runSessionHistory(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	history, err := chatService.SessionHistory(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get history: %w", friendlyError(err))
	}
	if historyJSONOut {
		return printJSON(cmd, history)
	}
	printHistory(cmd, history)
	return nil
}

func runSessionClear(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	if err := chatService.ClearSession(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to clear session: %w", friendlyError(err))
	}
	cmd.Printf("Session %s cleared.\n", args[0])
	return nil
}

func printHistory(cmd *cobra.Command, history []domain.HistoryEntry) {
	if len(history) == 0 {
		cmd.Println("No stored turns.")
		return
	}
	for _, h := range history {
		cmd.Printf("[%s] %s\n", h.Role, h.Content)
	}
}
