package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driving"
	"github.com/custodia-labs/runit-cli/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

// Global flags.
var (
	verbose    bool
	adminScope bool
	apiURLFlag string
)

// Options are the global flags passed to the service builder.
type Options struct {
	Verbose bool
	Admin   bool
	APIURL  string
}

// Services holds the driving ports used by the commands.
type Services struct {
	Auth     driving.AuthService
	Website  driving.WebsiteService
	Crawl    driving.CrawlService
	CrawlLog driving.CrawlLogService
	Chat     driving.ChatService
	Widget   driving.WidgetService
	Settings driving.SettingsService

	// SessionWatcher, when set, lets long-running commands react to
	// `runit login` and `runit logout` run in another shell.
	SessionWatcher SessionWatcher
}

// SessionWatcher reports changes to the stored session.
type SessionWatcher interface {
	Watch(ctx context.Context, onChange func(*domain.Session)) error
}

// Builder constructs services once the global flags are parsed.
type Builder func(opts Options) (*Services, error)

var (
	authService     driving.AuthService
	websiteService  driving.WebsiteService
	crawlService    driving.CrawlService
	crawlLogService driving.CrawlLogService
	chatService     driving.ChatService
	widgetService   driving.WidgetService
	settingsService driving.SettingsService
	sessionWatcher  SessionWatcher

	builder Builder
)

var rootCmd = &cobra.Command{
	Use:   "runit",
	Short: "Command-line client for the runit website chatbot platform",
	Long: `runit manages websites on the runit platform, crawls them into a
knowledge base and chats with the resulting assistant from the terminal.

Get started:
  runit login
  runit website add --name Docs --domain docs.example.com
  runit crawl start <broker-id> --watch --logs
  runit chat <broker-id>`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging to stderr")
	rootCmd.PersistentFlags().BoolVar(&adminScope, "admin", false, "use the admin routes")
	rootCmd.PersistentFlags().StringVar(&apiURLFlag, "api-url", "", "override the platform API URL")
}

// SetVersion sets the version reported by `runit version`.
func SetVersion(v string) {
	version = v
}

// SetBuilder registers the function that wires services after flag parsing.
func SetBuilder(b Builder) {
	builder = b
}

// SetServices sets the driving ports directly. Used by tests and by main
// when no builder is registered.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	authService = s.Auth
	websiteService = s.Website
	crawlService = s.Crawl
	crawlLogService = s.CrawlLog
	chatService = s.Chat
	widgetService = s.Widget
	settingsService = s.Settings
	sessionWatcher = s.SessionWatcher
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func setup(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if builder == nil {
		return nil
	}
	services, err := builder(Options{Verbose: verbose, Admin: adminScope, APIURL: apiURLFlag})
	if err != nil {
		return fmt.Errorf("initialising: %w", err)
	}
	SetServices(services)
	return nil
}

// currentScope returns the route family for scoped calls.
func currentScope(ctx context.Context) domain.Scope {
	if adminScope {
		return domain.ScopeAdmin
	}
	if authService == nil {
		return domain.ScopeUser
	}
	return authService.Scope(ctx)
}

// friendlyError rewrites errors a user can act on.
func friendlyError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrAuthRequired):
		return fmt.Errorf("%w: run `runit login` first", err)
	case errors.Is(err, domain.ErrAuthExpired), errors.Is(err, domain.ErrAuthInvalid):
		return fmt.Errorf("%w: run `runit login` again", err)
	default:
		return err
	}
}
