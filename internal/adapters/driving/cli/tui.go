package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/runit-cli/internal/adapters/driving/tui"
	"github.com/custodia-labs/runit-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/runit-cli/internal/core/domain"
	"github.com/custodia-labs/runit-cli/internal/logger"
)

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui [broker-id]",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface for runit.

Pick a website from the list and chat with it. Answers stream in as they
are generated. Pass a broker ID to open a chat with that website directly.

Controls:
  ↑/k, ↓/j   Navigate websites
  Enter      Select / Send
  Esc        Cancel the answer in progress, or go back
  Ctrl+L     Clear the conversation
  PgUp/PgDn  Scroll
  ?          Toggle help
  Ctrl+C     Quit`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

// newTUIApp builds the TUI from the configured services.
func newTUIApp(ctx context.Context, args []string) (*tui.App, error) {
	if chatService == nil || websiteService == nil {
		return nil, errors.New("chat and website services not configured")
	}

	app, err := tui.NewApp(tui.NewPorts(chatService, websiteService, authService).WithCrawl(crawlService))
	if err != nil {
		return nil, fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(ctx)
	if adminScope {
		app.WithScope(domain.ScopeAdmin)
	}
	if len(args) == 1 {
		app.WithWebsite(args[0])
	}
	return app, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	app, err := newTUIApp(ctx, args)
	if err != nil {
		return err
	}

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	// Forward login and logout from other shells into the program.
	if sessionWatcher != nil {
		go func() {
			err := sessionWatcher.Watch(ctx, func(s *domain.Session) {
				p.Send(messages.SessionChanged{Session: s})
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("session watcher stopped: %v", err)
			}
		}()
	}

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
