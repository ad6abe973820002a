package driving

import (
	"context"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
)

// CrawlService starts crawl jobs and tracks them to completion.
type CrawlService interface {
	// Start starts a crawl of one website and records it in the ledger.
	Start(ctx context.Context, scope domain.Scope, brokerID string, opts domain.CrawlOptions) (*domain.CrawlJob, error)

	// StartBatch starts crawls for several websites. Admin only.
	// Returns the started jobs and the broker IDs the server refused.
	StartBatch(ctx context.Context, brokerIDs []string) ([]domain.CrawlJob, []string, error)

	// Status fetches the current status of a job once.
	Status(ctx context.Context, scope domain.Scope, jobID string) (*domain.CrawlJob, error)

	// Watch polls a job until it finishes, fails to poll, or is stopped.
	// onFinish runs exactly once, after a completed or failed status.
	Watch(ctx context.Context, job domain.CrawlJob, onFinish func(domain.CrawlJob)) PollWatcher

	// WatchAll watches several jobs concurrently and returns their final state.
	WatchAll(ctx context.Context, jobs []domain.CrawlJob) ([]domain.CrawlJob, error)

	// History lists jobs from the local ledger.
	History(ctx context.Context, limit int) ([]domain.CrawlJob, error)

	// ArchivedLogs returns the log tail archived for a job.
	ArchivedLogs(ctx context.Context, jobID string) ([]domain.CrawlLogEntry, error)
}

// PollWatcher is the cancel handle of a running status poll.
type PollWatcher interface {
	// Stop ends polling. It is safe to call more than once.
	Stop()

	// Done is closed when polling has ended for any reason.
	Done() <-chan struct{}

	// Result returns the last observed job state and the poll error, if any.
	// Only meaningful after Done is closed.
	Result() (domain.CrawlJob, error)
}

// CrawlLogService opens crawl log streams.
type CrawlLogService interface {
	// Open connects to the log stream of a job.
	Open(ctx context.Context, scope domain.Scope, jobID string) (LogStream, error)
}

// LogStream is a one-way stream of crawl log entries.
type LogStream interface {
	// Entries delivers every entry in arrival order. It is closed after the
	// stream ends and the last entry was received, or after Close.
	Entries() <-chan domain.CrawlLogEntry

	// Snapshot returns the buffered entries, oldest first.
	Snapshot() []domain.CrawlLogEntry

	// Connected returns false once the stream has ended.
	Connected() bool

	// Done is closed when the stream has ended.
	Done() <-chan struct{}

	// Err returns the transport error that ended the stream.
	// Nil when the server closed the stream gracefully or Close was called.
	Err() error

	// Close tears down the connection. It is safe to call more than once.
	Close() error
}
