package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driving"
	"github.com/custodia-labs/runit-cli/internal/logger"
)

// Ensure PollHandle implements the interface.
var _ driving.PollWatcher = (*PollHandle)(nil)

// PollFunc fetches the current status of a job.
type PollFunc func(ctx context.Context, jobID string) (*domain.CrawlStatusReport, error)

// Poller polls crawl jobs on a fixed interval until they finish.
// There is no backoff and no attempt cap; the job itself is finite.
type Poller struct {
	interval time.Duration
}

// NewPoller creates a poller. A non-positive interval uses the default.
func NewPoller(interval time.Duration) *Poller {
	if interval <= 0 {
		interval = domain.DefaultPollInterval
	}
	return &Poller{interval: interval}
}

// Interval returns the delay between polls.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Watch starts polling job in the background. The first poll happens one
// interval after Watch is called. onUpdate runs after every successful or
// failed poll; onFinish runs once after a completed or failed status.
// Both callbacks may be nil and run on the polling goroutine.
func (p *Poller) Watch(
	ctx context.Context,
	job domain.CrawlJob,
	poll PollFunc,
	onUpdate, onFinish func(domain.CrawlJob),
) *PollHandle {
	h := &PollHandle{
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
		job:    job,
	}
	go h.run(ctx, p.interval, poll, onUpdate, onFinish)
	return h
}

// PollHandle is the cancel handle of one running poll loop.
type PollHandle struct {
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	mu  sync.Mutex
	job domain.CrawlJob
	err error
}

func (h *PollHandle) run(
	ctx context.Context,
	interval time.Duration,
	poll PollFunc,
	onUpdate, onFinish func(domain.CrawlJob),
) {
	defer close(h.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stopCh:
			return
		case <-ticker.C:
		}

		report, err := poll(ctx, h.snapshot().ID)

		// A result that arrives after Stop is not acted on.
		select {
		case <-h.stopCh:
			return
		default:
		}
		if err != nil && ctx.Err() != nil {
			return
		}

		job, terminal := h.record(report, err)
		if onUpdate != nil {
			onUpdate(job)
		}
		if err != nil {
			logger.Warn("poll %s: status unknown: %v", job.ID, err)
			return
		}
		if terminal {
			logger.Debug("poll %s: finished with %s", job.ID, job.Status)
			if onFinish != nil {
				onFinish(job)
			}
			return
		}
	}
}

// record applies one poll result and reports whether polling is over.
func (h *PollHandle) record(report *domain.CrawlStatusReport, err error) (domain.CrawlJob, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err != nil {
		h.err = err
		h.job.Status = domain.CrawlUnknown
		h.job.LastError = err.Error()
		return h.job, true
	}

	applyStatusReport(&h.job, report)
	return h.job, h.job.Status.IsTerminal()
}

func (h *PollHandle) snapshot() domain.CrawlJob {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.job
}

// Stop ends polling. Safe to call more than once.
func (h *PollHandle) Stop() {
	h.stopOnce.Do(func() { close(h.stopCh) })
}

// Done is closed when polling has ended.
func (h *PollHandle) Done() <-chan struct{} {
	return h.done
}

// Result returns the last observed job and the poll error, if any.
func (h *PollHandle) Result() (domain.CrawlJob, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.job, h.err
}

// applyStatusReport copies a status report onto a job.
func applyStatusReport(job *domain.CrawlJob, report *domain.CrawlStatusReport) {
	if report == nil {
		return
	}
	if report.Status != "" {
		job.Status = report.Status
	}
	if report.PagesCrawled > 0 {
		job.PagesCrawled = report.PagesCrawled
	}
	if report.Error != "" {
		job.LastError = report.Error
	}
	if job.Status.IsTerminal() && job.FinishedAt.IsZero() {
		job.FinishedAt = time.Now()
	}
}
