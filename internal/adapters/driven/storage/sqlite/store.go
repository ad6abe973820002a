package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/runit-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/runit-cli/internal/core/domain"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driven"
)

// Store is a SQLite-based storage that provides access to the local
// metadata store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.runit/data/runit.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".runit", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "runit.db")

	// WAL lets the TUI read the ledger while a CLI process writes it.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// CrawlJobStore returns a CrawlJobStore interface backed by this store.
func (s *Store) CrawlJobStore() driven.CrawlJobStore {
	return &crawlJobStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}

		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Crawl Job Store ====================

// crawlJobStore implements driven.CrawlJobStore.
type crawlJobStore struct {
	store *Store
}

var _ driven.CrawlJobStore = (*crawlJobStore)(nil)

const jobColumns = `id, broker_id, scope, status, pages_crawled, started_at, finished_at, last_error`

// SaveJob creates or updates a job by ID.
func (s *crawlJobStore) SaveJob(ctx context.Context, job domain.CrawlJob) error {
	if job.ID == "" {
		return domain.ErrInvalidInput
	}
	if job.Scope == "" {
		job.Scope = domain.ScopeUser
	}
	started := job.StartedAt.UTC()

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO crawl_jobs (id, broker_id, scope, status, pages_crawled, started_at, started_ns, finished_at, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			broker_id = excluded.broker_id,
			scope = excluded.scope,
			status = excluded.status,
			pages_crawled = excluded.pages_crawled,
			started_at = excluded.started_at,
			started_ns = excluded.started_ns,
			finished_at = excluded.finished_at,
			last_error = excluded.last_error
	`, job.ID, job.BrokerID, string(job.Scope), string(job.Status), job.PagesCrawled,
		started, started.UnixNano(), nullTime(job.FinishedAt), nullString(job.LastError))
	if err != nil {
		return fmt.Errorf("saving crawl job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by ID.
func (s *crawlJobStore) GetJob(ctx context.Context, jobID string) (*domain.CrawlJob, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM crawl_jobs WHERE id = ?`, jobID)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning crawl job: %w", err)
	}
	return job, nil
}

// ListJobs returns recent jobs, most recently started first.
// A limit of zero or less returns every job.
func (s *crawlJobStore) ListJobs(ctx context.Context, limit int) ([]domain.CrawlJob, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM crawl_jobs
		ORDER BY started_ns DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying crawl jobs: %w", err)
	}
	defer rows.Close()

	jobs := []domain.CrawlJob{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning crawl job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating crawl jobs: %w", err)
	}
	return jobs, nil
}

// ArchiveLogs replaces the archived log tail of a job.
func (s *crawlJobStore) ArchiveLogs(ctx context.Context, jobID string, entries []domain.CrawlLogEntry) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM crawl_logs WHERE job_id = ?", jobID); err != nil {
		return fmt.Errorf("clearing crawl logs: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO crawl_logs (job_id, seq, timestamp, level, message) VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing log insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, jobID, i, e.Timestamp.UTC(), string(e.Level), e.Message); err != nil {
			return fmt.Errorf("archiving crawl log: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing crawl logs: %w", err)
	}
	return nil
}

// GetLogs returns the archived log tail of a job in arrival order.
func (s *crawlJobStore) GetLogs(ctx context.Context, jobID string) ([]domain.CrawlLogEntry, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT timestamp, level, message FROM crawl_logs WHERE job_id = ? ORDER BY seq
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("querying crawl logs: %w", err)
	}
	defer rows.Close()

	entries := []domain.CrawlLogEntry{}
	for rows.Next() {
		var e domain.CrawlLogEntry
		var level string
		if err := rows.Scan(&e.Timestamp, &level, &e.Message); err != nil {
			return nil, fmt.Errorf("scanning crawl log: %w", err)
		}
		e.Level = domain.LogLevel(level)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating crawl logs: %w", err)
	}
	return entries, nil
}

// PruneJobs removes all but the most recent 'keep' jobs and their logs.
func (s *crawlJobStore) PruneJobs(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const stale = `
		SELECT id FROM crawl_jobs
		ORDER BY started_ns DESC, id DESC
		LIMIT -1 OFFSET ?
	`
	if _, err := tx.ExecContext(ctx, `DELETE FROM crawl_logs WHERE job_id IN (`+stale+`)`, keep); err != nil {
		return fmt.Errorf("pruning crawl logs: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM crawl_jobs WHERE id IN (`+stale+`)`, keep); err != nil {
		return fmt.Errorf("pruning crawl jobs: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing prune: %w", err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.CrawlJob, error) {
	var job domain.CrawlJob
	var scope, status string
	var finishedAt sql.NullTime
	var lastError sql.NullString
	if err := row.Scan(&job.ID, &job.BrokerID, &scope, &status, &job.PagesCrawled,
		&job.StartedAt, &finishedAt, &lastError); err != nil {
		return nil, err
	}
	job.Scope = domain.Scope(scope)
	job.Status = domain.CrawlStatus(status)
	if finishedAt.Valid {
		job.FinishedAt = finishedAt.Time
	}
	job.LastError = lastError.String
	return &job, nil
}

// nullString converts an empty string to NULL.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullTime converts a zero time to NULL.
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
