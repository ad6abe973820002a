package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driving"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl websites into the knowledge base",
	Long: `Start crawl jobs, follow their progress and read their logs.

Jobs started from this machine are kept in a local ledger
(~/.runit/data/runit.db) together with the tail of their logs.`,
}

var crawlStartCmd = &cobra.Command{
	Use:   "start [broker-id]",
	Short: "Start a crawl",
	Long: `Start a crawl of a website.

Examples:
  runit crawl start WEB123
  runit crawl start WEB123 --watch --logs
  runit crawl start WEB123 --max-pages 50 --force`,
	Args: cobra.ExactArgs(1),
	RunE: runCrawlStart,
}

var crawlBatchCmd = &cobra.Command{
	Use:   "batch [broker-id...]",
	Short: "Start crawls for several websites (admin)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCrawlBatch,
}

var crawlStatusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Show the status of a crawl job",
	Args:  cobra.ExactArgs(1),
	RunE:  runCrawlStatus,
}

var crawlWatchCmd = &cobra.Command{
	Use:   "watch [job-id]",
	Short: "Poll a crawl job until it finishes",
	Args:  cobra.ExactArgs(1),
	RunE:  runCrawlWatch,
}

var crawlLogsCmd = &cobra.Command{
	Use:   "logs [job-id]",
	Short: "Stream the logs of a crawl job",
	Long: `Stream the logs of a crawl job until the server closes the stream.

With --archived, print the log tail saved in the local ledger instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runCrawlLogs,
}

var crawlHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List crawl jobs started from this machine",
	RunE:  runCrawlHistory,
}

// logDrainTimeout is how long watchJob waits for trailing log lines.
const logDrainTimeout = 2 * time.Second

// Flags for crawl commands.
var (
	crawlWatch    bool
	crawlLogs     bool
	crawlMaxPages int
	crawlForce    bool
	crawlArchived bool
	crawlLimit    int
)

func init() {
	crawlStartCmd.Flags().BoolVarP(&crawlWatch, "watch", "w", false, "poll until the job finishes")
	crawlStartCmd.Flags().BoolVarP(&crawlLogs, "logs", "l", false, "stream logs while watching")
	crawlStartCmd.Flags().IntVar(&crawlMaxPages, "max-pages", 0, "override the website's page limit")
	crawlStartCmd.Flags().BoolVar(&crawlForce, "force", false, "recrawl pages that are already indexed")
	crawlBatchCmd.Flags().BoolVarP(&crawlWatch, "watch", "w", false, "poll until every job finishes")
	crawlWatchCmd.Flags().BoolVarP(&crawlLogs, "logs", "l", false, "stream logs while watching")
	crawlLogsCmd.Flags().BoolVar(&crawlArchived, "archived", false, "print the locally archived tail")
	crawlHistoryCmd.Flags().IntVarP(&crawlLimit, "limit", "n", 20, "maximum number of jobs")

	crawlCmd.AddCommand(crawlStartCmd)
	crawlCmd.AddCommand(crawlBatchCmd)
	crawlCmd.AddCommand(crawlStatusCmd)
	crawlCmd.AddCommand(crawlWatchCmd)
	crawlCmd.AddCommand(crawlLogsCmd)
	crawlCmd.AddCommand(crawlHistoryCmd)
	rootCmd.AddCommand(crawlCmd)
}

func runCrawlStart(cmd *cobra.Command, args []string) error {
	if crawlService == nil {
		return errors.New("crawl service not configured")
	}
	ctx := cmd.Context()

	opts := domain.CrawlOptions{MaxPages: crawlMaxPages, ForceRecrawl: crawlForce}
	job, err := crawlService.Start(ctx, currentScope(ctx), args[0], opts)
	if err != nil {
		return fmt.Errorf("failed to start crawl: %w", friendlyError(err))
	}
	cmd.Printf("Crawl started: job %s for %s\n", job.ID, job.BrokerID)

	if !crawlWatch {
		cmd.Printf("Follow it with: runit crawl watch %s --logs\n", job.ID)
		return nil
	}
	return watchJob(cmd, *job, crawlLogs)
}

func runCrawlBatch(cmd *cobra.Command, args []string) error {
	if crawlService == nil {
		return errors.New("crawl service not configured")
	}
	ctx := cmd.Context()

	jobs, failed, err := crawlService.StartBatch(ctx, args)
	if err != nil {
		return fmt.Errorf("failed to start batch crawl: %w", friendlyError(err))
	}
	for _, job := range jobs {
		cmd.Printf("Started %s for %s\n", job.ID, job.BrokerID)
	}
	for _, id := range failed {
		cmd.Printf("Could not start %s\n", id)
	}

	if !crawlWatch || len(jobs) == 0 {
		return nil
	}

	cmd.Printf("Waiting for %d jobs...\n", len(jobs))
	final, err := crawlService.WatchAll(ctx, jobs)
	printJobTable(cmd, final)
	if err != nil {
		return fmt.Errorf("batch watch: %w", err)
	}
	return nil
}

func runCrawlStatus(cmd *cobra.Command, args []string) error {
	if crawlService == nil {
		return errors.New("crawl service not configured")
	}
	ctx := cmd.Context()

	job, err := crawlService.Status(ctx, currentScope(ctx), args[0])
	if err != nil {
		return fmt.Errorf("failed to get status: %w", friendlyError(err))
	}
	printJob(cmd, job)
	return nil
}

func runCrawlWatch(cmd *cobra.Command, args []string) error {
	if crawlService == nil {
		return errors.New("crawl service not configured")
	}
	ctx := cmd.Context()

	job, err := crawlService.Status(ctx, currentScope(ctx), args[0])
	if err != nil {
		return fmt.Errorf("failed to get status: %w", friendlyError(err))
	}
	if job.Status.IsTerminal() {
		printJob(cmd, job)
		return nil
	}
	return watchJob(cmd, *job, crawlLogs)
}

// watchJob polls job until it finishes, optionally streaming its logs.
func watchJob(cmd *cobra.Command, job domain.CrawlJob, withLogs bool) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Log lines and the final status come from different goroutines.
	var mu sync.Mutex
	printLine := func(line string) {
		mu.Lock()
		defer mu.Unlock()
		cmd.Println(line)
	}

	stopLogs := func() {}
	if withLogs && crawlLogService != nil {
		stream, err := crawlLogService.Open(ctx, job.Scope, job.ID)
		if err != nil {
			cmd.PrintErrf("Logs unavailable: %v\n", err)
		} else {
			printed := make(chan struct{})
			go func() {
				defer close(printed)
				printLogStream(stream, printLine)
			}()
			stopLogs = func() {
				// The server closes the stream shortly after the job ends;
				// printed closes once every entry has been written.
				select {
				case <-printed:
				case <-time.After(logDrainTimeout):
				}
				_ = stream.Close()
				<-printed
			}
		}
	}

	watcher := crawlService.Watch(ctx, job, func(final domain.CrawlJob) {
		printLine(fmt.Sprintf("Crawl %s: %s", final.ID, final.Status))
		if line := refreshedWebsite(ctx, final); line != "" {
			printLine(line)
		}
	})
	<-watcher.Done()
	stopLogs()

	final, err := watcher.Result()
	if err != nil {
		return fmt.Errorf("watch %s: %w", job.ID, friendlyError(err))
	}
	if final.Status == domain.CrawlFailed {
		if final.LastError != "" {
			return fmt.Errorf("crawl %s failed: %s", final.ID, final.LastError)
		}
		return fmt.Errorf("crawl %s failed", final.ID)
	}
	if final.PagesCrawled > 0 {
		cmd.Printf("%d pages crawled.\n", final.PagesCrawled)
	}
	return nil
}

// refreshedWebsite fetches the crawled website again and describes its
// updated content counts.
func refreshedWebsite(ctx context.Context, job domain.CrawlJob) string {
	if websiteService == nil || job.BrokerID == "" {
		return ""
	}
	scope := job.Scope
	if !scope.IsValid() {
		scope = currentScope(ctx)
	}
	site, err := websiteService.Get(ctx, scope, job.BrokerID)
	if err != nil {
		return fmt.Sprintf("Could not refresh %s: %v", job.BrokerID, friendlyError(err))
	}
	name := site.Name
	if name == "" {
		name = site.BrokerID
	}
	return fmt.Sprintf("%s now has %d pages and %d content items.", name, site.PageCount, site.ContentCount)
}

func runCrawlLogs(cmd *cobra.Command, args []string) error {
	if crawlArchived {
		if crawlService == nil {
			return errors.New("crawl service not configured")
		}
		entries, err := crawlService.ArchivedLogs(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to read archived logs: %w", err)
		}
		if len(entries) == 0 {
			cmd.Println("No archived logs for this job.")
			return nil
		}
		for _, e := range entries {
			cmd.Println(formatLogEntry(e))
		}
		return nil
	}

	if crawlLogService == nil {
		return errors.New("crawl log service not configured")
	}
	ctx := cmd.Context()

	stream, err := crawlLogService.Open(ctx, currentScope(ctx), args[0])
	if err != nil {
		return fmt.Errorf("failed to open logs: %w", friendlyError(err))
	}
	defer stream.Close()

	printLogStream(stream, func(line string) { cmd.Println(line) })
	if err := stream.Err(); err != nil {
		return fmt.Errorf("log stream: %w", err)
	}
	return nil
}

// printLogStream prints entries until the stream ends.
func printLogStream(stream driving.LogStream, printLine func(string)) {
	for e := range stream.Entries() {
		printLine(formatLogEntry(e))
	}
}

func formatLogEntry(e domain.CrawlLogEntry) string {
	ts := "--:--:--"
	if !e.Timestamp.IsZero() {
		ts = e.Timestamp.Local().Format(time.TimeOnly)
	}
	return fmt.Sprintf("%s %-7s %s", ts, strings.ToUpper(string(e.Level)), e.Message)
}

func runCrawlHistory(cmd *cobra.Command, _ []string) error {
	if crawlService == nil {
		return errors.New("crawl service not configured")
	}

	jobs, err := crawlService.History(cmd.Context(), crawlLimit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if len(jobs) == 0 {
		cmd.Println("No crawl jobs recorded.")
		return nil
	}
	printJobTable(cmd, jobs)
	return nil
}

func printJob(cmd *cobra.Command, job *domain.CrawlJob) {
	cmd.Printf("Job:     %s\n", job.ID)
	if job.BrokerID != "" {
		cmd.Printf("Website: %s\n", job.BrokerID)
	}
	cmd.Printf("Status:  %s\n", job.Status)
	if job.PagesCrawled > 0 {
		cmd.Printf("Pages:   %d\n", job.PagesCrawled)
	}
	if job.LastError != "" {
		cmd.Printf("Error:   %s\n", job.LastError)
	}
}

func printJobTable(cmd *cobra.Command, jobs []domain.CrawlJob) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "JOB ID\tWEBSITE\tSTATUS\tPAGES\tSTARTED")
	for _, j := range jobs {
		started := "-"
		if !j.StartedAt.IsZero() {
			started = j.StartedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", j.ID, orDash(j.BrokerID), j.Status, j.PagesCrawled, started)
	}
	_ = w.Flush()
}
