package repository

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goleaf/petssocnnetworkmobile-sub009/internal/models"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	return repo
}

func newTestJob(id string, jobType models.JobType) *models.QueueJob {
	return &models.QueueJob{
		ID:          id,
		Type:        jobType,
		Payload:     json.RawMessage(`{"url":"https://example.com"}`),
		Status:      models.StatusPending,
		MaxAttempts: 3,
	}
}

func TestSQLiteRepository_CreateAndGetJob(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	job := newTestJob("job-1", models.TypeLinkCheck)
	job.Priority = 7
	require.NoError(t, repo.CreateJob(ctx, job))

	got, err := repo.GetJobByID(ctx, "job-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "job-1", got.ID)
	assert.Equal(t, models.TypeLinkCheck, got.Type)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, 7, got.Priority)
	assert.Equal(t, 0, got.Attempts)
	assert.Equal(t, 3, got.MaxAttempts)
	assert.JSONEq(t, `{"url":"https://example.com"}`, string(got.Payload))
	assert.Nil(t, got.StartedAt)
	assert.Nil(t, got.CompletedAt)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSQLiteRepository_GetJobByID_Unknown(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.GetJobByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteRepository_UpdateJob_PartialFields(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateJob(ctx, newTestJob("job-1", models.TypeTranscodeVideo)))

	status := models.StatusCompleted
	now := time.Now()
	_, err := repo.UpdateJob(ctx, "job-1", &models.JobUpdate{
		Status:      &status,
		Result:      json.RawMessage(`{"success":true}`),
		CompletedAt: &now,
	})
	require.NoError(t, err)

	// A later progress-only update must not clobber result or completed_at.
	progress := 100
	msg := "done"
	got, err := repo.UpdateJob(ctx, "job-1", &models.JobUpdate{
		Progress:        &progress,
		ProgressMessage: &msg,
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.JSONEq(t, `{"success":true}`, string(got.Result))
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, 100, got.Progress)
	assert.Equal(t, "done", got.ProgressMessage)
}

func TestSQLiteRepository_UpdateJob_UnknownID(t *testing.T) {
	repo := newTestRepo(t)

	progress := 10
	got, err := repo.UpdateJob(context.Background(), "nope", &models.JobUpdate{Progress: &progress})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteRepository_NextPendingJob_PriorityOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	low := newTestJob("job-low", models.TypeLinkCheck)
	low.Priority = 5
	low.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, repo.CreateJob(ctx, low))

	high := newTestJob("job-high", models.TypeLinkCheck)
	high.Priority = 10
	require.NoError(t, repo.CreateJob(ctx, high))

	got, err := repo.NextPendingJob(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "job-high", got.ID)
}

func TestSQLiteRepository_NextPendingJob_FIFOWithinPriority(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	older := newTestJob("job-older", models.TypeLinkCheck)
	older.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, repo.CreateJob(ctx, older))

	newer := newTestJob("job-newer", models.TypeLinkCheck)
	require.NoError(t, repo.CreateJob(ctx, newer))

	got, err := repo.NextPendingJob(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "job-older", got.ID)
}

func TestSQLiteRepository_NextPendingJob_SkipsExhaustedAttempts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	exhausted := newTestJob("job-exhausted", models.TypeLinkCheck)
	exhausted.Priority = 10
	exhausted.Attempts = 3
	exhausted.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, repo.CreateJob(ctx, exhausted))

	fresh := newTestJob("job-fresh", models.TypeLinkCheck)
	require.NoError(t, repo.CreateJob(ctx, fresh))

	got, err := repo.NextPendingJob(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "job-fresh", got.ID)
}

func TestSQLiteRepository_NextPendingJob_Empty(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.NextPendingJob(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteRepository_ClaimJob(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateJob(ctx, newTestJob("job-1", models.TypeNotifyUser)))

	claimed, err := repo.ClaimJob(ctx, "job-1", time.Now())
	require.NoError(t, err)
	assert.True(t, claimed)

	got, err := repo.GetJobByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, got.Status)
	assert.Equal(t, 1, got.Attempts)
	require.NotNil(t, got.StartedAt)

	// Second claim must lose: the row is no longer pending.
	claimed, err = repo.ClaimJob(ctx, "job-1", time.Now())
	require.NoError(t, err)
	assert.False(t, claimed)

	got, err = repo.GetJobByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Attempts)
}

func TestSQLiteRepository_ListJobs(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"job-a", "job-b", "job-c"} {
		job := newTestJob(id, models.TypeLinkCheck)
		job.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.CreateJob(ctx, job))
	}
	other := newTestJob("job-d", models.TypeNotifyUser)
	require.NoError(t, repo.CreateJob(ctx, other))

	jobs, total, err := repo.ListJobs(ctx, models.JobFilter{Type: models.TypeLinkCheck, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, jobs, 2)
	// Newest created first.
	assert.Equal(t, "job-c", jobs[0].ID)
	assert.Equal(t, "job-b", jobs[1].ID)

	jobs, total, err = repo.ListJobs(ctx, models.JobFilter{Status: models.StatusPending, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, jobs, 4)
}

func TestSQLiteRepository_GetJobStats(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	pending := newTestJob("job-1", models.TypeLinkCheck)
	require.NoError(t, repo.CreateJob(ctx, pending))

	done := newTestJob("job-2", models.TypeLinkCheck)
	done.Status = models.StatusCompleted
	require.NoError(t, repo.CreateJob(ctx, done))

	failed := newTestJob("job-3", models.TypeTranscodeVideo)
	failed.Status = models.StatusFailed
	require.NoError(t, repo.CreateJob(ctx, failed))

	stats, err := repo.GetJobStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 0, stats.Processing)
	assert.Equal(t, 1, stats.ByType[models.TypeLinkCheck].Pending)
	assert.Equal(t, 1, stats.ByType[models.TypeLinkCheck].Completed)
	assert.Equal(t, 1, stats.ByType[models.TypeTranscodeVideo].Failed)
}

func TestSQLiteRepository_DeleteTerminalJobsBefore(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	oldTime := time.Now().AddDate(0, 0, -10)
	recent := time.Now()

	mkTerminal := func(id string, status models.JobStatus, completedAt time.Time) {
		job := newTestJob(id, models.TypeLinkCheck)
		job.Status = status
		require.NoError(t, repo.CreateJob(ctx, job))
		_, err := repo.UpdateJob(ctx, id, &models.JobUpdate{CompletedAt: &completedAt})
		require.NoError(t, err)
	}

	mkTerminal("job-old-done", models.StatusCompleted, oldTime)
	mkTerminal("job-old-failed", models.StatusFailed, oldTime)
	mkTerminal("job-recent-done", models.StatusCompleted, recent)

	// An ancient pending job must survive any cleanup.
	ancient := newTestJob("job-ancient-pending", models.TypeLinkCheck)
	ancient.CreatedAt = time.Now().AddDate(-1, 0, 0)
	require.NoError(t, repo.CreateJob(ctx, ancient))

	deleted, err := repo.DeleteTerminalJobsBefore(ctx, time.Now().AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	for _, id := range []string{"job-recent-done", "job-ancient-pending"} {
		got, err := repo.GetJobByID(ctx, id)
		require.NoError(t, err)
		assert.NotNil(t, got, id)
	}
	got, err := repo.GetJobByID(ctx, "job-old-done")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteRepository_ListStaleProcessingJobs(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	stale := newTestJob("job-stale", models.TypeLinkCheck)
	require.NoError(t, repo.CreateJob(ctx, stale))
	_, err := repo.ClaimJob(ctx, "job-stale", time.Now().Add(-30*time.Minute))
	require.NoError(t, err)

	fresh := newTestJob("job-fresh", models.TypeLinkCheck)
	require.NoError(t, repo.CreateJob(ctx, fresh))
	_, err = repo.ClaimJob(ctx, "job-fresh", time.Now())
	require.NoError(t, err)

	jobs, err := repo.ListStaleProcessingJobs(ctx, time.Now().Add(-10*time.Minute))
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "job-stale", jobs[0].ID)
}

func TestSQLiteRepository_ReclaimJob(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	startedAt := time.Now().Add(-30 * time.Minute)
	job := newTestJob("job-1", models.TypeLinkCheck)
	require.NoError(t, repo.CreateJob(ctx, job))
	claimed, err := repo.ClaimJob(ctx, "job-1", startedAt)
	require.NoError(t, err)
	require.True(t, claimed)

	ok, err := repo.ReclaimJob(ctx, "job-1", startedAt, models.StatusPending, "attempt abandoned", nil)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetJobByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, "attempt abandoned", got.Error)
	assert.Nil(t, got.CompletedAt)
}

func TestSQLiteRepository_ReclaimJob_GuardsFinishedJob(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	startedAt := time.Now().Add(-30 * time.Minute)
	job := newTestJob("job-1", models.TypeLinkCheck)
	require.NoError(t, repo.CreateJob(ctx, job))
	claimed, err := repo.ClaimJob(ctx, "job-1", startedAt)
	require.NoError(t, err)
	require.True(t, claimed)

	// The worker finishes the job after the stale scan observed it.
	status := models.StatusCompleted
	now := time.Now()
	_, err = repo.UpdateJob(ctx, "job-1", &models.JobUpdate{
		Status:      &status,
		Result:      json.RawMessage(`{"ok":true}`),
		CompletedAt: &now,
	})
	require.NoError(t, err)

	ok, err := repo.ReclaimJob(ctx, "job-1", startedAt, models.StatusPending, "attempt abandoned", nil)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetJobByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.JSONEq(t, `{"ok":true}`, string(got.Result))
}

func TestSQLiteRepository_ReclaimJob_GuardsReclaimedAttempt(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	firstStart := time.Now().Add(-30 * time.Minute)
	job := newTestJob("job-1", models.TypeLinkCheck)
	require.NoError(t, repo.CreateJob(ctx, job))
	claimed, err := repo.ClaimJob(ctx, "job-1", firstStart)
	require.NoError(t, err)
	require.True(t, claimed)

	// The attempt was already reclaimed and the job claimed again; the
	// stored started_at no longer matches the one the sweep observed.
	ok, err := repo.ReclaimJob(ctx, "job-1", firstStart, models.StatusPending, "attempt abandoned", nil)
	require.NoError(t, err)
	require.True(t, ok)
	claimed, err = repo.ClaimJob(ctx, "job-1", time.Now())
	require.NoError(t, err)
	require.True(t, claimed)

	ok, err = repo.ReclaimJob(ctx, "job-1", firstStart, models.StatusPending, "attempt abandoned", nil)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetJobByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, got.Status)
}

func TestSQLiteRepository_ReclaimJob_FailedSetsCompletedAt(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	startedAt := time.Now().Add(-30 * time.Minute)
	job := newTestJob("job-1", models.TypeLinkCheck)
	job.MaxAttempts = 1
	require.NoError(t, repo.CreateJob(ctx, job))
	claimed, err := repo.ClaimJob(ctx, "job-1", startedAt)
	require.NoError(t, err)
	require.True(t, claimed)

	now := time.Now()
	ok, err := repo.ReclaimJob(ctx, "job-1", startedAt, models.StatusFailed, "attempt abandoned", &now)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetJobByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	require.NotNil(t, got.CompletedAt)
}

func TestSQLiteRepository_Content(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seed := `
		INSERT INTO articles (id, title, body, published, updated_at) VALUES
			('a1', 'First', 'body one', 1, 0),
			('a2', 'Second', 'body two', 1, 0),
			('a3', 'Draft', 'unpublished', 0, 0);
		INSERT INTO blog_posts (id, title, body, published, updated_at) VALUES
			('p1', 'Post', 'post body', 1, 0);
	`
	_, err := repo.db.Exec(seed)
	require.NoError(t, err)

	ids, err := repo.ListArticleIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, ids)

	article, err := repo.GetArticle(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "First", article.Title)

	_, err = repo.GetArticle(ctx, "missing")
	assert.Error(t, err)

	postIDs, err := repo.ListBlogPostIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, postIDs)
}

func TestSQLiteRepository_UpsertSearchDocument(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	doc := &models.SearchDocument{
		SourceType: models.IndexScopeArticles,
		SourceID:   "a1",
		Title:      "First",
		Body:       "body one",
		IndexedAt:  time.Now(),
	}
	require.NoError(t, repo.UpsertSearchDocument(ctx, doc))

	doc.Title = "First, revised"
	require.NoError(t, repo.UpsertSearchDocument(ctx, doc))

	var count int
	var title string
	require.NoError(t, repo.db.QueryRow(
		"SELECT COUNT(*), MAX(title) FROM search_index WHERE source_type = 'articles' AND source_id = 'a1'").
		Scan(&count, &title))
	assert.Equal(t, 1, count)
	assert.Equal(t, "First, revised", title)
}
