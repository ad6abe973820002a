package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driven"
)

// Ensure CrawlJobStore implements the interface.
var _ driven.CrawlJobStore = (*CrawlJobStore)(nil)

// CrawlJobStore is an in-memory implementation of driven.CrawlJobStore.
type CrawlJobStore struct {
	mu   sync.RWMutex
	jobs map[string]domain.CrawlJob
	logs map[string][]domain.CrawlLogEntry
}

// NewCrawlJobStore creates a new in-memory crawl job ledger.
func NewCrawlJobStore() *CrawlJobStore {
	return &CrawlJobStore{
		jobs: make(map[string]domain.CrawlJob),
		logs: make(map[string][]domain.CrawlLogEntry),
	}
}

// SaveJob creates or updates a job.
func (s *CrawlJobStore) SaveJob(_ context.Context, job domain.CrawlJob) error {
	if job.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

// GetJob retrieves a job by ID.
func (s *CrawlJobStore) GetJob(_ context.Context, jobID string) (*domain.CrawlJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

// ListJobs returns recent jobs, newest first. A non-positive limit returns all.
func (s *CrawlJobStore) ListJobs(_ context.Context, limit int) ([]domain.CrawlJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked(limit), nil
}

// ArchiveLogs replaces the archived log tail of a job.
func (s *CrawlJobStore) ArchiveLogs(_ context.Context, jobID string, entries []domain.CrawlLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[jobID] = append([]domain.CrawlLogEntry(nil), entries...)
	return nil
}

// GetLogs returns the archived log tail of a job.
func (s *CrawlJobStore) GetLogs(_ context.Context, jobID string) ([]domain.CrawlLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.CrawlLogEntry{}, s.logs[jobID]...), nil
}

// PruneJobs removes all but the most recent keep jobs and their logs.
func (s *CrawlJobStore) PruneJobs(_ context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if keep < 0 {
		keep = 0
	}
	sorted := s.sortedLocked(0)
	if len(sorted) <= keep {
		return nil
	}
	for _, job := range sorted[keep:] {
		delete(s.jobs, job.ID)
		delete(s.logs, job.ID)
	}
	return nil
}

func (s *CrawlJobStore) sortedLocked(limit int) []domain.CrawlJob {
	result := make([]domain.CrawlJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		result = append(result, job)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].StartedAt.Equal(result[j].StartedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].StartedAt.After(result[j].StartedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}
