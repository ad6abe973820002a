package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driving"
	"github.com/custodia-labs/runit-cli/internal/logger"
)

// Ensure CrawlLogService implements the interface.
var _ driving.CrawlLogService = (*CrawlLogService)(nil)

// Server-sent event names on a crawl log stream.
const (
	eventLogMessage = "message"
	eventLogClose   = "close"
)

// CrawlLogService opens crawl log streams and archives their tail.
type CrawlLogService struct {
	gateway        driven.CrawlGateway
	store          driven.CrawlJobStore
	bufferSize     int
	archiveEntries int
}

// NewCrawlLogService creates a log service. store may be nil to skip archiving.
func NewCrawlLogService(
	gateway driven.CrawlGateway,
	store driven.CrawlJobStore,
	bufferSize, archiveEntries int,
) *CrawlLogService {
	if bufferSize <= 0 {
		bufferSize = domain.DefaultLogBufferSize
	}
	if archiveEntries <= 0 {
		archiveEntries = domain.DefaultArchiveEntries
	}
	return &CrawlLogService{
		gateway:        gateway,
		store:          store,
		bufferSize:     bufferSize,
		archiveEntries: archiveEntries,
	}
}

// Open connects to the log stream of a job. The stream runs until the
// server sends close, the transport fails, ctx is cancelled or Close is called.
func (s *CrawlLogService) Open(ctx context.Context, scope domain.Scope, jobID string) (driving.LogStream, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, domain.ErrInvalidInput
	}

	body, err := s.gateway.OpenLogStream(ctx, scope, jobID)
	if err != nil {
		return nil, fmt.Errorf("open log stream %s: %w", jobID, err)
	}
	logger.Debug("log stream %s connected", jobID)

	ls := &logStream{
		jobID:     jobID,
		body:      body,
		entries:   make(chan domain.CrawlLogEntry, s.bufferSize),
		done:      make(chan struct{}),
		notify:    make(chan struct{}, 1),
		abandon:   make(chan struct{}),
		pumpDone:  make(chan struct{}),
		ring:      newLogRing(s.bufferSize),
		connected: true,
	}
	if s.store != nil {
		archiveCtx := context.WithoutCancel(ctx)
		ls.onEnd = func(entries []domain.CrawlLogEntry) {
			s.archive(archiveCtx, jobID, entries)
		}
	}

	stop := context.AfterFunc(ctx, func() { ls.shutdown(ctx.Err()) })
	go func() {
		defer stop()
		ls.run()
	}()
	go ls.pump()
	return ls, nil
}

func (s *CrawlLogService) archive(ctx context.Context, jobID string, entries []domain.CrawlLogEntry) {
	if len(entries) > s.archiveEntries {
		entries = entries[len(entries)-s.archiveEntries:]
	}
	if err := s.store.ArchiveLogs(ctx, jobID, entries); err != nil {
		logger.Warn("archive logs for %s: %v", jobID, err)
	}
}

// logStream consumes one connection. run parses the body and queues
// entries; pump hands them to Entries so a slow reader never stalls parsing.
// Fields after mu are guarded by it.
type logStream struct {
	jobID   string
	body    io.ReadCloser
	entries chan domain.CrawlLogEntry
	done    chan struct{}
	onEnd   func([]domain.CrawlLogEntry)

	notify      chan struct{}
	abandon     chan struct{}
	abandonOnce sync.Once
	pumpDone    chan struct{}

	mu        sync.Mutex
	ring      *logRing
	pending   []domain.CrawlLogEntry
	connected bool
	closing   bool
	closeErr  error
	err       error
}

func (l *logStream) run() {
	reader := NewEventStreamReader(l.body)
	for {
		ev, err := reader.Next()
		if err != nil {
			l.end(l.transportError(err))
			return
		}

		switch ev.Name {
		case eventLogClose:
			logger.Debug("log stream %s closed by server", l.jobID)
			l.end(nil)
			return
		case eventLogMessage:
			l.handleMessage(ev.Data)
		default:
			logger.Debug("log stream %s: ignoring event %q", l.jobID, ev.Name)
		}
	}
}

func (l *logStream) handleMessage(data string) {
	var entry domain.CrawlLogEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		logger.Warn("log stream %s: skipping malformed entry: %v", l.jobID, err)
		return
	}

	l.mu.Lock()
	if !l.connected {
		l.mu.Unlock()
		return
	}
	l.ring.push(entry)
	l.pending = append(l.pending, entry)
	l.mu.Unlock()

	l.wake()
}

func (l *logStream) wake() {
	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// pump delivers queued entries in order and closes Entries once the stream
// has ended and the queue is empty, or when Close abandons the rest.
func (l *logStream) pump() {
	defer close(l.pumpDone)
	defer close(l.entries)

	for {
		l.mu.Lock()
		batch := l.pending
		l.pending = nil
		ended := !l.connected
		l.mu.Unlock()

		for _, e := range batch {
			select {
			case l.entries <- e:
			case <-l.abandon:
				return
			}
		}
		if len(batch) > 0 {
			continue
		}
		if ended {
			return
		}

		select {
		case <-l.notify:
		case <-l.abandon:
			return
		}
	}
}

// transportError maps a read error to the error reported by Err.
func (l *logStream) transportError(err error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closing {
		return l.closeErr
	}
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("log stream ended without close event: %w", io.ErrUnexpectedEOF)
	}
	return err
}

// end marks the stream disconnected and releases its resources.
func (l *logStream) end(err error) {
	l.mu.Lock()
	if !l.connected {
		l.mu.Unlock()
		return
	}
	l.connected = false
	l.err = err
	snapshot := l.ring.items()
	l.mu.Unlock()

	_ = l.body.Close()
	if err != nil {
		logger.Error(err, "log stream %s", l.jobID)
	}
	if l.onEnd != nil {
		l.onEnd(snapshot)
	}
	close(l.done)
	l.wake()
}

// shutdown closes the connection from the client side.
func (l *logStream) shutdown(reason error) {
	l.mu.Lock()
	if l.closing || !l.connected {
		l.mu.Unlock()
		return
	}
	l.closing = true
	l.closeErr = reason
	l.mu.Unlock()

	_ = l.body.Close()
}

// Entries delivers every entry in arrival order. It is closed once the
// stream has ended and all entries were received, or after Close.
func (l *logStream) Entries() <-chan domain.CrawlLogEntry { return l.entries }

// Snapshot returns buffered entries, oldest first.
func (l *logStream) Snapshot() []domain.CrawlLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ring.items()
}

// Connected returns false once the stream has ended.
func (l *logStream) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

// Done is closed when the stream has ended.
func (l *logStream) Done() <-chan struct{} { return l.done }

// Err returns the error that ended the stream.
func (l *logStream) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Close tears down the connection, drops undelivered entries and waits
// for both goroutines to stop.
func (l *logStream) Close() error {
	l.shutdown(nil)
	<-l.done
	l.abandonOnce.Do(func() { close(l.abandon) })
	<-l.pumpDone
	return nil
}

// logRing keeps the most recent entries up to a fixed capacity.
type logRing struct {
	buf   []domain.CrawlLogEntry
	start int
	size  int
}

func newLogRing(capacity int) *logRing {
	return &logRing{buf: make([]domain.CrawlLogEntry, capacity)}
}

func (r *logRing) push(e domain.CrawlLogEntry) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = e
		r.size++
		return
	}
	r.buf[r.start] = e
	r.start = (r.start + 1) % len(r.buf)
}

func (r *logRing) items() []domain.CrawlLogEntry {
	out := make([]domain.CrawlLogEntry, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}
