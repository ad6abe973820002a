package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
)

var websiteCmd = &cobra.Command{
	Use:     "website",
	Aliases: []string{"websites", "site"},
	Short:   "Manage websites",
	Long: `Register websites, change their crawl settings and inspect what was indexed.

Admins see every tenant's websites with --admin.`,
}

var websiteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List websites",
	RunE:  runWebsiteList,
}

var websiteGetCmd = &cobra.Command{
	Use:   "get [broker-id]",
	Short: "Show a website",
	Args:  cobra.ExactArgs(1),
	RunE:  runWebsiteGet,
}

var websiteAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a website",
	Long: `Register a website for crawling.

Examples:
  runit website add --name Docs --domain docs.example.com
  runit website add --name Shop --domain https://shop.example.com --max-pages 500 --exclude /cart`,
	RunE: runWebsiteAdd,
}

var websiteUpdateCmd = &cobra.Command{
	Use:   "update [broker-id]",
	Short: "Change a website's name or crawl settings",
	Args:  cobra.ExactArgs(1),
	RunE:  runWebsiteUpdate,
}

var websiteRemoveCmd = &cobra.Command{
	Use:     "remove [broker-id]",
	Aliases: []string{"rm", "delete"},
	Short:   "Delete a website and its indexed content",
	Args:    cobra.ExactArgs(1),
	RunE:    runWebsiteRemove,
}

var websiteStatsCmd = &cobra.Command{
	Use:   "stats [broker-id]",
	Short: "Show indexing statistics",
	Args:  cobra.ExactArgs(1),
	RunE:  runWebsiteStats,
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show aggregate statistics",
	RunE:  runDashboard,
}

// Flags for website commands.
var (
	websiteJSON        bool
	websiteName        string
	websiteDomain      string
	websiteIndustry    string
	websiteDescription string
	websiteNoData      string
	websiteMaxPages    int
	websiteCrawlDelay  int
	websiteUserAgent   string
	websiteIgnoreRobot bool
	websiteAllow       []string
	websiteExclude     []string
	websiteForce       bool
)

func init() {
	for _, c := range []*cobra.Command{websiteListCmd, websiteGetCmd, websiteStatsCmd, dashboardCmd} {
		c.Flags().BoolVar(&websiteJSON, "json", false, "output as JSON")
	}

	for _, c := range []*cobra.Command{websiteAddCmd, websiteUpdateCmd} {
		c.Flags().StringVar(&websiteName, "name", "", "display name")
		c.Flags().StringVar(&websiteIndustry, "industry", "", "industry")
		c.Flags().StringVar(&websiteDescription, "description", "", "short description")
		c.Flags().StringVar(&websiteNoData, "no-data-response", "", "answer used when nothing relevant is indexed")
		c.Flags().IntVar(&websiteMaxPages, "max-pages", 0, "maximum pages per crawl")
		c.Flags().IntVar(&websiteCrawlDelay, "crawl-delay", 0, "delay between requests in milliseconds")
		c.Flags().StringVar(&websiteUserAgent, "user-agent", "", "crawler user agent")
		c.Flags().BoolVar(&websiteIgnoreRobot, "ignore-robots", false, "do not honour robots.txt")
		c.Flags().StringSliceVar(&websiteAllow, "allow", nil, "only crawl these paths")
		c.Flags().StringSliceVar(&websiteExclude, "exclude", nil, "never crawl these paths")
	}
	websiteAddCmd.Flags().StringVar(&websiteDomain, "domain", "", "domain or base URL")
	websiteRemoveCmd.Flags().BoolVarP(&websiteForce, "force", "f", false, "skip confirmation")

	websiteCmd.AddCommand(websiteListCmd)
	websiteCmd.AddCommand(websiteGetCmd)
	websiteCmd.AddCommand(websiteAddCmd)
	websiteCmd.AddCommand(websiteUpdateCmd)
	websiteCmd.AddCommand(websiteRemoveCmd)
	websiteCmd.AddCommand(websiteStatsCmd)
	rootCmd.AddCommand(websiteCmd)
	rootCmd.AddCommand(dashboardCmd)
}

func runWebsiteList(cmd *cobra.Command, _ []string) error {
	if websiteService == nil {
		return errors.New("website service not configured")
	}
	ctx := cmd.Context()

	sites, err := websiteService.List(ctx, currentScope(ctx))
	if err != nil {
		return fmt.Errorf("failed to list websites: %w", friendlyError(err))
	}

	if websiteJSON {
		return printJSON(cmd, sites)
	}
	if len(sites) == 0 {
		cmd.Println("No websites yet. Add one with 'runit website add'.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BROKER ID\tNAME\tDOMAIN\tSTATUS\tPAGES")
	for i := range sites {
		s := &sites[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", s.BrokerID, s.Name, s.Domain, orDash(s.Status), s.PageCount)
	}
	return w.Flush()
}

func runWebsiteGet(cmd *cobra.Command, args []string) error {
	if websiteService == nil {
		return errors.New("website service not configured")
	}
	ctx := cmd.Context()

	site, err := websiteService.Get(ctx, currentScope(ctx), args[0])
	if err != nil {
		return fmt.Errorf("failed to get website: %w", friendlyError(err))
	}

	if websiteJSON {
		return printJSON(cmd, site)
	}
	printWebsite(cmd, site)
	return nil
}

func printWebsite(cmd *cobra.Command, s *domain.Website) {
	cmd.Printf("%s (%s)\n", s.Name, s.BrokerID)
	cmd.Printf("  Domain: %s\n", s.Domain)
	if s.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", s.BaseURL)
	}
	if s.Status != "" {
		cmd.Printf("  Status: %s\n", s.Status)
	}
	if s.Metadata.Industry != "" {
		cmd.Printf("  Industry: %s\n", s.Metadata.Industry)
	}
	if s.Metadata.Description != "" {
		cmd.Printf("  Description: %s\n", s.Metadata.Description)
	}
	if s.LastCrawledAt != nil {
		cmd.Printf("  Last crawled: %s\n", s.LastCrawledAt.Local().Format("2006-01-02 15:04"))
	}

	cs := s.CrawlSettings
	cmd.Println("  Crawl settings:")
	cmd.Printf("    Max pages: %d\n", cs.MaxPages)
	cmd.Printf("    Delay: %dms\n", cs.CrawlDelay)
	cmd.Printf("    Respect robots.txt: %t\n", cs.RobotsRespected())
	if len(cs.AllowedPaths) > 0 {
		cmd.Printf("    Allowed: %s\n", strings.Join(cs.AllowedPaths, ", "))
	}
	if len(cs.ExcludedPaths) > 0 {
		cmd.Printf("    Excluded: %s\n", strings.Join(cs.ExcludedPaths, ", "))
	}
	if cs.UserAgent != "" {
		cmd.Printf("    User agent: %s\n", cs.UserAgent)
	}
	for _, d := range s.Domains {
		cmd.Printf("  Extra domain: %s\n", d.URL)
	}
}

func runWebsiteAdd(cmd *cobra.Command, _ []string) error {
	if websiteService == nil {
		return errors.New("website service not configured")
	}
	if websiteName == "" || websiteDomain == "" {
		return errors.New("--name and --domain are required")
	}
	ctx := cmd.Context()

	site := domain.Website{
		Name:           websiteName,
		Domain:         websiteDomain,
		NoDataResponse: websiteNoData,
		Metadata: domain.WebsiteMetadata{
			Industry:    websiteIndustry,
			Description: websiteDescription,
		},
	}
	applyCrawlFlags(cmd, &site.CrawlSettings)

	created, err := websiteService.Create(ctx, currentScope(ctx), site)
	if err != nil {
		return fmt.Errorf("failed to add website: %w", friendlyError(err))
	}
	cmd.Printf("Website added: %s (%s)\n", created.Name, created.BrokerID)
	cmd.Printf("Start a crawl with: runit crawl start %s --watch\n", created.BrokerID)
	return nil
}

func runWebsiteUpdate(cmd *cobra.Command, args []string) error {
	if websiteService == nil {
		return errors.New("website service not configured")
	}
	ctx := cmd.Context()
	scope := currentScope(ctx)

	site, err := websiteService.Get(ctx, scope, args[0])
	if err != nil {
		return fmt.Errorf("failed to get website: %w", friendlyError(err))
	}

	if websiteName != "" {
		site.Name = websiteName
	}
	if websiteIndustry != "" {
		site.Metadata.Industry = websiteIndustry
	}
	if websiteDescription != "" {
		site.Metadata.Description = websiteDescription
	}
	if websiteNoData != "" {
		site.NoDataResponse = websiteNoData
	}
	applyCrawlFlags(cmd, &site.CrawlSettings)

	updated, err := websiteService.Update(ctx, scope, *site)
	if err != nil {
		return fmt.Errorf("failed to update website: %w", friendlyError(err))
	}
	cmd.Printf("Website updated: %s (%s)\n", updated.Name, updated.BrokerID)
	return nil
}

// applyCrawlFlags copies the crawl flags that were set onto cs.
func applyCrawlFlags(cmd *cobra.Command, cs *domain.CrawlSettings) {
	flags := cmd.Flags()
	if flags.Changed("max-pages") {
		cs.MaxPages = websiteMaxPages
	}
	if flags.Changed("crawl-delay") {
		cs.CrawlDelay = websiteCrawlDelay
	}
	if flags.Changed("user-agent") {
		cs.UserAgent = websiteUserAgent
	}
	if flags.Changed("ignore-robots") {
		cs.RespectRobots = domain.Bool(!websiteIgnoreRobot)
	}
	if flags.Changed("allow") {
		cs.AllowedPaths = websiteAllow
	}
	if flags.Changed("exclude") {
		cs.ExcludedPaths = websiteExclude
	}
}

func runWebsiteRemove(cmd *cobra.Command, args []string) error {
	if websiteService == nil {
		return errors.New("website service not configured")
	}
	ctx := cmd.Context()

	if !websiteForce && !confirm(cmd, fmt.Sprintf("Delete website %s and all indexed content?", args[0])) {
		cmd.Println("Cancelled.")
		return nil
	}

	if err := websiteService.Delete(ctx, currentScope(ctx), args[0]); err != nil {
		return fmt.Errorf("failed to remove website: %w", friendlyError(err))
	}
	cmd.Printf("Website %s removed.\n", args[0])
	return nil
}

func runWebsiteStats(cmd *cobra.Command, args []string) error {
	if websiteService == nil {
		return errors.New("website service not configured")
	}
	ctx := cmd.Context()

	stats, err := websiteService.Stats(ctx, currentScope(ctx), args[0])
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", friendlyError(err))
	}

	if websiteJSON {
		return printJSON(cmd, stats)
	}
	cmd.Printf("Statistics for %s\n", stats.BrokerID)
	cmd.Printf("  Pages:   %d\n", stats.PageCount)
	cmd.Printf("  Chunks:  %d\n", stats.ChunkCount)
	cmd.Printf("  Queries: %d\n", stats.QueryCount)
	if stats.CrawlJobs > 0 {
		cmd.Printf("  Crawls:  %d\n", stats.CrawlJobs)
	}
	if stats.LastCrawled != nil {
		cmd.Printf("  Last crawled: %s\n", stats.LastCrawled.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	if websiteService == nil {
		return errors.New("website service not configured")
	}
	ctx := cmd.Context()
	scope := currentScope(ctx)

	stats, err := websiteService.Dashboard(ctx, scope)
	if err != nil {
		return fmt.Errorf("failed to get dashboard: %w", friendlyError(err))
	}

	if websiteJSON {
		return printJSON(cmd, stats)
	}
	cmd.Printf("Websites:      %d\n", stats.TotalWebsites)
	cmd.Printf("Pages indexed: %d\n", stats.TotalPages)
	cmd.Printf("Queries:       %d\n", stats.TotalQueries)
	cmd.Printf("Active crawls: %d\n", stats.ActiveCrawls)
	if scope == domain.ScopeAdmin {
		cmd.Printf("Users:         %d\n", stats.TotalUsers)
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
