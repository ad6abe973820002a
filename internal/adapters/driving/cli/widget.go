package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
)

var widgetCmd = &cobra.Command{
	Use:   "widget",
	Short: "Configure the embeddable chat widget",
	Long: `Show and change how the chat widget looks on a website, and print the
script tag that installs it.`,
}

var widgetGetCmd = &cobra.Command{
	Use:   "get [broker-id]",
	Short: "Show widget settings",
	Args:  cobra.ExactArgs(1),
	RunE:  runWidgetGet,
}

var widgetSetCmd = &cobra.Command{
	Use:   "set [broker-id]",
	Short: "Change widget settings",
	Long: `Change widget settings from flags or from a YAML file.

Fields not given keep their current value.

Examples:
  runit widget set WEB1 --title "Ask us" --primary-color "#0f172a"
  runit widget get WEB1 --yaml > widget.yaml
  runit widget set WEB1 --file widget.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runWidgetSet,
}

var widgetSnippetCmd = &cobra.Command{
	Use:   "snippet [broker-id]",
	Short: "Print the script tag that installs the widget",
	Args:  cobra.ExactArgs(1),
	RunE:  runWidgetSnippet,
}

// Flags for widget commands.
var (
	widgetYAML        bool
	widgetFile        string
	widgetEnabled     bool
	widgetGreeting    string
	widgetPrimary     string
	widgetSecondary   string
	widgetTextColor   string
	widgetPosition    string
	widgetTitle       string
	widgetPlaceholder string
)

func init() {
	widgetGetCmd.Flags().BoolVar(&widgetYAML, "yaml", false, "output as YAML")

	f := widgetSetCmd.Flags()
	f.StringVar(&widgetFile, "file", "", "read settings from a YAML file (- for stdin)")
	f.BoolVar(&widgetEnabled, "enabled", true, "show the widget")
	f.StringVar(&widgetGreeting, "greeting", "", "greeting message")
	f.StringVar(&widgetPrimary, "primary-color", "", "primary colour (#rrggbb)")
	f.StringVar(&widgetSecondary, "secondary-color", "", "secondary colour (#rrggbb)")
	f.StringVar(&widgetTextColor, "text-color", "", "text colour (#rrggbb)")
	f.StringVar(&widgetPosition, "position", "", "bottom-right or bottom-left")
	f.StringVar(&widgetTitle, "title", "", "widget title")
	f.StringVar(&widgetPlaceholder, "placeholder", "", "input placeholder text")

	widgetCmd.AddCommand(widgetGetCmd)
	widgetCmd.AddCommand(widgetSetCmd)
	widgetCmd.AddCommand(widgetSnippetCmd)
	rootCmd.AddCommand(widgetCmd)
}

func runWidgetGet(cmd *cobra.Command, args []string) error {
	if widgetService == nil {
		return errors.New("widget service not configured")
	}

	settings, err := widgetService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get widget settings: %w", friendlyError(err))
	}

	if widgetYAML {
		data, err := yaml.Marshal(settings)
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		cmd.Print(string(data))
		return nil
	}

	cmd.Printf("Widget for %s\n", args[0])
	cmd.Printf("  Enabled:     %t\n", settings.Enabled)
	cmd.Printf("  Title:       %s\n", settings.WidgetTitle)
	cmd.Printf("  Greeting:    %s\n", settings.GreetingMessage)
	cmd.Printf("  Placeholder: %s\n", settings.PlaceholderText)
	cmd.Printf("  Position:    %s\n", settings.Position)
	cmd.Printf("  Colours:     primary %s, secondary %s, text %s\n",
		settings.PrimaryColor, settings.SecondaryColor, settings.TextColor)
	return nil
}

func runWidgetSet(cmd *cobra.Command, args []string) error {
	if widgetService == nil {
		return errors.New("widget service not configured")
	}
	ctx := cmd.Context()
	brokerID := args[0]

	current, err := widgetService.Get(ctx, brokerID)
	if err != nil {
		return fmt.Errorf("failed to get widget settings: %w", friendlyError(err))
	}
	settings := *current

	if widgetFile != "" {
		fromFile, err := readWidgetFile(cmd, widgetFile)
		if err != nil {
			return err
		}
		settings = settings.Merge(*fromFile)
	}
	applyWidgetFlags(cmd, &settings)

	if err := widgetService.Update(ctx, brokerID, settings); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return fmt.Errorf("invalid widget settings: position must be %s or %s and colours #rgb or #rrggbb",
				domain.WidgetBottomRight, domain.WidgetBottomLeft)
		}
		return fmt.Errorf("failed to update widget settings: %w", friendlyError(err))
	}
	cmd.Printf("Widget settings saved for %s.\n", brokerID)
	return nil
}

// readWidgetFile decodes YAML settings. Enabled defaults to true when the
// file omits it.
func readWidgetFile(cmd *cobra.Command, path string) (*domain.WidgetSettings, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	settings := domain.WidgetSettings{Enabled: true}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &settings, nil
}

func applyWidgetFlags(cmd *cobra.Command, s *domain.WidgetSettings) {
	flags := cmd.Flags()
	if flags.Changed("enabled") {
		s.Enabled = widgetEnabled
	}
	if flags.Changed("greeting") {
		s.GreetingMessage = widgetGreeting
	}
	if flags.Changed("primary-color") {
		s.PrimaryColor = widgetPrimary
	}
	if flags.Changed("secondary-color") {
		s.SecondaryColor = widgetSecondary
	}
	if flags.Changed("text-color") {
		s.TextColor = widgetTextColor
	}
	if flags.Changed("position") {
		s.Position = widgetPosition
	}
	if flags.Changed("title") {
		s.WidgetTitle = widgetTitle
	}
	if flags.Changed("placeholder") {
		s.PlaceholderText = widgetPlaceholder
	}
}

func runWidgetSnippet(cmd *cobra.Command, args []string) error {
	if widgetService == nil {
		return errors.New("widget service not configured")
	}

	snippet, err := widgetService.EmbedSnippet(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to build snippet: %w", friendlyError(err))
	}
	cmd.Print(snippet)
	return nil
}
