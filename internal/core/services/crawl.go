package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driving"
	"github.com/custodia-labs/runit-cli/internal/logger"
)

// Ensure CrawlService implements the interface.
var _ driving.CrawlService = (*CrawlService)(nil)

const (
	// ledgerKeepJobs is how many jobs the local ledger retains.
	ledgerKeepJobs = 100

	// maxConcurrentWatches bounds WatchAll.
	maxConcurrentWatches = 8
)

// CrawlService starts crawls, polls them and keeps the local job ledger.
type CrawlService struct {
	gateway driven.CrawlGateway
	store   driven.CrawlJobStore
	poller  *Poller
	now     func() time.Time
}

// NewCrawlService creates a new crawl service.
func NewCrawlService(gateway driven.CrawlGateway, store driven.CrawlJobStore, poller *Poller) *CrawlService {
	if poller == nil {
		poller = NewPoller(domain.DefaultPollInterval)
	}
	return &CrawlService{
		gateway: gateway,
		store:   store,
		poller:  poller,
		now:     time.Now,
	}
}

// Start starts a crawl of one website.
func (s *CrawlService) Start(
	ctx context.Context, scope domain.Scope, brokerID string, opts domain.CrawlOptions,
) (*domain.CrawlJob, error) {
	if strings.TrimSpace(brokerID) == "" {
		return nil, domain.ErrInvalidInput
	}
	if !scope.IsValid() {
		return nil, fmt.Errorf("invalid scope %q: %w", scope, domain.ErrInvalidInput)
	}

	jobID, err := s.gateway.StartCrawl(ctx, scope, brokerID, opts)
	if err != nil {
		return nil, fmt.Errorf("start crawl %s: %w", brokerID, err)
	}
	logger.Debug("crawl %s started for %s", jobID, brokerID)

	job := domain.CrawlJob{
		ID:        jobID,
		BrokerID:  brokerID,
		Scope:     scope,
		Status:    domain.CrawlQueued,
		StartedAt: s.now(),
	}
	s.record(ctx, job)
	if err := s.store.PruneJobs(ctx, ledgerKeepJobs); err != nil {
		logger.Warn("prune crawl ledger: %v", err)
	}
	return &job, nil
}

// StartBatch starts crawls for several websites through the admin routes.
func (s *CrawlService) StartBatch(ctx context.Context, brokerIDs []string) ([]domain.CrawlJob, []string, error) {
	ids := make([]string, 0, len(brokerIDs))
	for _, id := range brokerIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil, domain.ErrInvalidInput
	}

	result, err := s.gateway.StartBatchCrawl(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("start batch crawl: %w", err)
	}

	now := s.now()
	jobs := make([]domain.CrawlJob, 0, len(result.Jobs))
	for _, started := range result.Jobs {
		job := domain.CrawlJob{
			ID:        started.JobID,
			BrokerID:  started.BrokerID,
			Scope:     domain.ScopeAdmin,
			Status:    domain.CrawlQueued,
			StartedAt: now,
		}
		s.record(ctx, job)
		jobs = append(jobs, job)
	}
	return jobs, result.Failed, nil
}

// Status fetches the current status of a job once and updates the ledger.
func (s *CrawlService) Status(ctx context.Context, scope domain.Scope, jobID string) (*domain.CrawlJob, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, domain.ErrInvalidInput
	}

	report, err := s.gateway.CrawlStatus(ctx, scope, jobID)
	if err != nil {
		return nil, fmt.Errorf("crawl status %s: %w", jobID, err)
	}

	job := s.known(ctx, scope, jobID)
	applyStatusReport(&job, report)
	s.record(ctx, job)
	return &job, nil
}

// Watch polls a job until it finishes. The ledger is updated after every poll.
func (s *CrawlService) Watch(
	ctx context.Context, job domain.CrawlJob, onFinish func(domain.CrawlJob),
) driving.PollWatcher {
	if !job.Scope.IsValid() {
		job.Scope = domain.ScopeUser
	}
	poll := func(ctx context.Context, jobID string) (*domain.CrawlStatusReport, error) {
		return s.gateway.CrawlStatus(ctx, job.Scope, jobID)
	}
	record := func(j domain.CrawlJob) { s.record(context.WithoutCancel(ctx), j) }
	return s.poller.Watch(ctx, job, poll, record, onFinish)
}

// WatchAll watches jobs concurrently and returns their final states in input order.
// A poll failure on one job does not stop the others; the first failure is returned.
func (s *CrawlService) WatchAll(ctx context.Context, jobs []domain.CrawlJob) ([]domain.CrawlJob, error) {
	results := make([]domain.CrawlJob, len(jobs))

	var g errgroup.Group
	g.SetLimit(maxConcurrentWatches)
	for i, job := range jobs {
		g.Go(func() error {
			w := s.Watch(ctx, job, nil)
			select {
			case <-w.Done():
			case <-ctx.Done():
				w.Stop()
				<-w.Done()
			}
			final, err := w.Result()
			results[i] = final
			if err != nil {
				return fmt.Errorf("watch %s: %w", job.ID, err)
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return results, err
}

// History lists jobs from the local ledger.
func (s *CrawlService) History(ctx context.Context, limit int) ([]domain.CrawlJob, error) {
	jobs, err := s.store.ListJobs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list crawl jobs: %w", err)
	}
	return jobs, nil
}

// ArchivedLogs returns the archived log tail of a job.
func (s *CrawlService) ArchivedLogs(ctx context.Context, jobID string) ([]domain.CrawlLogEntry, error) {
	entries, err := s.store.GetLogs(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("archived logs %s: %w", jobID, err)
	}
	return entries, nil
}

// known returns the ledger entry for a job, or a fresh one.
func (s *CrawlService) known(ctx context.Context, scope domain.Scope, jobID string) domain.CrawlJob {
	job, err := s.store.GetJob(ctx, jobID)
	if err == nil {
		return *job
	}
	if !errors.Is(err, domain.ErrNotFound) {
		logger.Warn("read crawl ledger: %v", err)
	}
	return domain.CrawlJob{ID: jobID, Scope: scope, StartedAt: s.now()}
}

// record writes a job to the ledger. Failures are logged, not returned.
func (s *CrawlService) record(ctx context.Context, job domain.CrawlJob) {
	if err := s.store.SaveJob(ctx, job); err != nil {
		logger.Warn("save crawl job %s: %v", job.ID, err)
	}
}
