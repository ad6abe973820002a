package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage client settings",
	Long: `View and change client settings stored in ~/.runit/config.toml.

Settings resolve in order: --api-url flag, RUNIT_API_URL, config file, defaults.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show resolved settings",
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print the stored value of a setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change a setting",
	Long: `Change a setting. Valid keys:

  ` + strings.Join(domain.AllSettingKeys(), "\n  "),
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	s := settingsService.Get()

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[API]")
	cmd.Printf("  URL: %s\n", s.APIURL)
	cmd.Printf("  Timeout: %s\n", s.Timeout)
	if s.RateLimit > 0 {
		cmd.Printf("  Rate limit: %.1f req/s\n", s.RateLimit)
	} else {
		cmd.Printf("  Rate limit: off\n")
	}
	if s.Scope != "" {
		cmd.Printf("  Scope: %s\n", s.Scope)
	}
	cmd.Println()

	cmd.Println("[Crawl]")
	cmd.Printf("  Poll interval: %s\n", s.PollInterval)
	cmd.Printf("  Log buffer: %d entries\n", s.LogBufferSize)
	cmd.Printf("  Archived entries: %d\n", s.ArchiveEntries)
	cmd.Println()

	cmd.Println("[Chat]")
	cmd.Printf("  Render markdown: %t\n", s.RenderMarkdown)
	if s.DefaultBrokerID != "" {
		cmd.Printf("  Default website: %s\n", s.DefaultBrokerID)
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	val, ok := settingsService.Raw(args[0])
	if !ok {
		return fmt.Errorf("%s is not set", args[0])
	}
	cmd.Println(val)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if err := settingsService.Set(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}
	cmd.Printf("%s = %s\n", args[0], args[1])
	return nil
}
