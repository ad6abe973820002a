package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driven"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) (*Store, driven.CrawlJobStore) {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })

	return store, store.CrawlJobStore()
}

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testJob(id string, offset time.Duration) domain.CrawlJob {
	return domain.CrawlJob{
		ID:        id,
		BrokerID:  "WEB1",
		Scope:     domain.ScopeUser,
		Status:    domain.CrawlQueued,
		StartedAt: baseTime.Add(offset),
	}
}

func TestNewStore_Success(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, "runit.db"), store.Path())
	_, err = os.Stat(store.Path())
	assert.NoError(t, err)
}

func TestNewStore_DefaultDirectory(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewStore("")
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(home, ".runit", "data", "runit.db"), store.Path())
}

func TestNewStore_MigrationsAreIdempotent(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.CrawlJobStore().SaveJob(context.Background(), testJob("J1", 0)))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	var version int
	require.NoError(t, reopened.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)

	job, err := reopened.CrawlJobStore().GetJob(context.Background(), "J1")
	require.NoError(t, err)
	assert.Equal(t, "WEB1", job.BrokerID)
}

func TestCrawlJobStore_SaveAndGet(t *testing.T) {
	_, jobs := setupTestStore(t)
	ctx := context.Background()

	job := testJob("J1", 0)
	require.NoError(t, jobs.SaveJob(ctx, job))

	got, err := jobs.GetJob(ctx, "J1")
	require.NoError(t, err)
	assert.Equal(t, domain.CrawlQueued, got.Status)
	assert.Equal(t, domain.ScopeUser, got.Scope)
	assert.True(t, got.StartedAt.Equal(job.StartedAt))
	assert.True(t, got.FinishedAt.IsZero())
	assert.Empty(t, got.LastError)
}

func TestCrawlJobStore_Upsert(t *testing.T) {
	_, jobs := setupTestStore(t)
	ctx := context.Background()

	job := testJob("J1", 0)
	require.NoError(t, jobs.SaveJob(ctx, job))

	job.Status = domain.CrawlFailed
	job.PagesCrawled = 42
	job.FinishedAt = baseTime.Add(time.Minute)
	job.LastError = "robots.txt disallows crawling"
	require.NoError(t, jobs.SaveJob(ctx, job))

	got, err := jobs.GetJob(ctx, "J1")
	require.NoError(t, err)
	assert.Equal(t, domain.CrawlFailed, got.Status)
	assert.Equal(t, 42, got.PagesCrawled)
	assert.True(t, got.FinishedAt.Equal(job.FinishedAt))
	assert.Equal(t, "robots.txt disallows crawling", got.LastError)

	all, err := jobs.ListJobs(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCrawlJobStore_Validation(t *testing.T) {
	_, jobs := setupTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, jobs.SaveJob(ctx, domain.CrawlJob{}), domain.ErrInvalidInput)

	_, err := jobs.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	job := testJob("J2", 0)
	job.Scope = ""
	require.NoError(t, jobs.SaveJob(ctx, job))
	got, err := jobs.GetJob(ctx, "J2")
	require.NoError(t, err)
	assert.Equal(t, domain.ScopeUser, got.Scope)
}

func TestCrawlJobStore_ListOrder(t *testing.T) {
	_, jobs := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, jobs.SaveJob(ctx, testJob("A", 1*time.Second)))
	require.NoError(t, jobs.SaveJob(ctx, testJob("B", 3*time.Second)))
	require.NoError(t, jobs.SaveJob(ctx, testJob("C", 2*time.Second)))
	require.NoError(t, jobs.SaveJob(ctx, testJob("D", 3*time.Second)))

	all, err := jobs.ListJobs(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "B", "C", "A"}, jobIDs(all))

	top, err := jobs.ListJobs(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "B"}, jobIDs(top))
}

func TestCrawlJobStore_ListEmpty(t *testing.T) {
	_, jobs := setupTestStore(t)

	all, err := jobs.ListJobs(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestCrawlJobStore_ArchiveLogs(t *testing.T) {
	_, jobs := setupTestStore(t)
	ctx := context.Background()

	entries := []domain.CrawlLogEntry{
		{Timestamp: baseTime, Level: domain.LogInfo, Message: "Starting crawl"},
		{Timestamp: baseTime.Add(time.Second), Level: domain.LogWarning, Message: "Slow page"},
		{Timestamp: baseTime.Add(2 * time.Second), Level: domain.LogSuccess, Message: "Done"},
	}
	require.NoError(t, jobs.ArchiveLogs(ctx, "J1", entries))

	got, err := jobs.GetLogs(ctx, "J1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range entries {
		assert.Equal(t, entries[i].Message, got[i].Message)
		assert.Equal(t, entries[i].Level, got[i].Level)
		assert.True(t, entries[i].Timestamp.Equal(got[i].Timestamp))
	}

	// Archiving again replaces the tail.
	require.NoError(t, jobs.ArchiveLogs(ctx, "J1", entries[2:]))
	got, err = jobs.GetLogs(ctx, "J1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Done", got[0].Message)

	none, err := jobs.GetLogs(ctx, "other")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestCrawlJobStore_PruneJobs(t *testing.T) {
	_, jobs := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("J%d", i)
		require.NoError(t, jobs.SaveJob(ctx, testJob(id, time.Duration(i)*time.Second)))
		require.NoError(t, jobs.ArchiveLogs(ctx, id, []domain.CrawlLogEntry{
			{Timestamp: baseTime, Level: domain.LogInfo, Message: id},
		}))
	}

	require.NoError(t, jobs.PruneJobs(ctx, 2))

	all, err := jobs.ListJobs(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"J4", "J3"}, jobIDs(all))

	logs, err := jobs.GetLogs(ctx, "J0")
	require.NoError(t, err)
	assert.Empty(t, logs)

	logs, err = jobs.GetLogs(ctx, "J4")
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	require.NoError(t, jobs.PruneJobs(ctx, -1))
	all, err = jobs.ListJobs(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func jobIDs(jobs []domain.CrawlJob) []string {
	ids := make([]string, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}
	return ids
}
