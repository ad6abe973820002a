package driven

import (
	"context"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
)

// CrawlJobStore is a local ledger of crawl jobs started from this machine.
// It keeps the last known status and an archived tail of each job's logs.
type CrawlJobStore interface {
	// SaveJob creates or updates a job by ID.
	SaveJob(ctx context.Context, job domain.CrawlJob) error

	// GetJob retrieves a job by ID.
	// Returns domain.ErrNotFound if the job is unknown.
	GetJob(ctx context.Context, jobID string) (*domain.CrawlJob, error)

	// ListJobs returns recent jobs, most recently started first.
	ListJobs(ctx context.Context, limit int) ([]domain.CrawlJob, error)

	// ArchiveLogs replaces the archived log tail of a job.
	ArchiveLogs(ctx context.Context, jobID string, entries []domain.CrawlLogEntry) error

	// GetLogs returns the archived log tail of a job in arrival order.
	GetLogs(ctx context.Context, jobID string) ([]domain.CrawlLogEntry, error)

	// PruneJobs removes all but the most recent 'keep' jobs.
	PruneJobs(ctx context.Context, keep int) error
}
