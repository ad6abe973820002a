// Command runit is the command-line client for the runit website chatbot platform.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/runit-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/runit-cli/internal/adapters/driven/platform"
	"github.com/custodia-labs/runit-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/runit-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/runit-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/runit-cli/internal/core/services"
	"github.com/custodia-labs/runit-cli/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is normal.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	var closers []func() error
	cli.SetVersion(version)
	cli.SetBuilder(func(opts cli.Options) (*cli.Services, error) {
		s, closer, err := build(opts)
		if closer != nil {
			closers = append(closers, closer)
		}
		return s, err
	})

	err := cli.Execute(ctx)
	for _, c := range closers {
		if cerr := c(); cerr != nil {
			logger.Warn("close: %v", cerr)
		}
	}
	stop()

	if err != nil {
		os.Exit(1)
	}
}

// build wires the driven adapters into the core services.
func build(opts cli.Options) (*cli.Services, func() error, error) {
	// Without a home directory runit still works for a single run: settings
	// come from flags and the environment, the session from RUNIT_TOKEN.
	var configStore driven.ConfigStore
	fileConfig, err := file.NewConfigStore("")
	if err != nil {
		logger.Warn("config file unavailable, using defaults: %v", err)
		configStore = memory.NewConfigStore()
	} else {
		configStore = fileConfig
	}
	settings := services.NewSettingsService(configStore)
	settings.SetAPIURLOverride(opts.APIURL)
	resolved := settings.Get()
	logger.Debug("api url %s", resolved.APIURL)

	var (
		sessions driven.SessionStore
		watcher  cli.SessionWatcher
	)
	fileSessions, err := file.NewSessionStore("")
	if err != nil {
		logger.Warn("session file unavailable, login will not persist: %v", err)
		sessions = memory.NewSessionStore(nil)
	} else {
		sessions = fileSessions
		watcher = fileSessions
	}

	client := platform.New(platform.Config{
		BaseURL:     resolved.APIURL,
		Timeout:     resolved.Timeout,
		RateLimit:   resolved.RateLimit,
		Credentials: services.NewCredentialChain(sessions),
	})

	// The ledger is local bookkeeping; without a writable data dir crawls
	// still run, only history is lost when the process exits.
	var (
		jobs   driven.CrawlJobStore
		closer func() error
	)
	store, err := sqlite.NewStore("")
	if err != nil {
		logger.Warn("crawl history unavailable, keeping it in memory: %v", err)
		jobs = memory.NewCrawlJobStore()
	} else {
		jobs = store.CrawlJobStore()
		closer = store.Close
	}

	auth := services.NewAuthService(client, sessions)
	auth.SetScopeOverride(resolved.Scope)

	return &cli.Services{
		Auth:           auth,
		Website:        services.NewWebsiteService(client, client),
		Crawl:          services.NewCrawlService(client, jobs, services.NewPoller(resolved.PollInterval)),
		CrawlLog:       services.NewCrawlLogService(client, jobs, resolved.LogBufferSize, resolved.ArchiveEntries),
		Chat:           services.NewChatService(client),
		Widget:         services.NewWidgetService(client, resolved.APIURL),
		Settings:       settings,
		SessionWatcher: watcher,
	}, closer, nil
}
