package repository

import (
	"context"
	"time"

	"github.com/goleaf/petssocnnetworkmobile-sub009/internal/models"
)

// JobRepository defines the persistence contract for queue jobs. It is the
// only component that touches job rows.
type JobRepository interface {
	CreateJob(ctx context.Context, job *models.QueueJob) error
	// GetJobByID returns nil, nil when the id is unknown.
	GetJobByID(ctx context.Context, id string) (*models.QueueJob, error)
	// UpdateJob merges the non-nil fields of update into the row and
	// returns the updated job.
	UpdateJob(ctx context.Context, id string, update *models.JobUpdate) (*models.QueueJob, error)
	// NextPendingJob scans a bounded window of pending rows ordered by
	// priority descending then created_at ascending and returns the first
	// whose attempts have not been exhausted, or nil when none qualifies.
	NextPendingJob(ctx context.Context) (*models.QueueJob, error)
	// ClaimJob atomically moves a pending job to processing, incrementing
	// attempts and stamping started_at. Returns false when another worker
	// won the claim or the job is no longer pending.
	ClaimJob(ctx context.Context, id string, startedAt time.Time) (bool, error)
	// ListJobs returns a page of jobs newest-created first plus the total
	// matching count.
	ListJobs(ctx context.Context, filter models.JobFilter) ([]*models.QueueJob, int, error)
	GetJobStats(ctx context.Context) (*models.JobStats, error)
	// DeleteTerminalJobsBefore hard-deletes completed/failed rows whose
	// completed_at is older than the cutoff and returns the deleted count.
	// Pending and processing rows are never touched.
	DeleteTerminalJobsBefore(ctx context.Context, cutoff time.Time) (int, error)
	// ListStaleProcessingJobs returns processing rows whose started_at is
	// older than the cutoff, for the reclaim sweep.
	ListStaleProcessingJobs(ctx context.Context, cutoff time.Time) ([]*models.QueueJob, error)
	// ReclaimJob conditionally moves a processing job out of its stale
	// attempt, guarded on the observed started_at so a job that finished or
	// was re-claimed between the scan and this write is left alone. Returns
	// false when the guard did not match.
	ReclaimJob(ctx context.Context, id string, startedAt time.Time, status models.JobStatus, reason string, completedAt *time.Time) (bool, error)
}

// ContentRepository reads the source records the search index rebuild
// iterates. Record fetches are per-id so one bad record cannot abort a
// batch.
type ContentRepository interface {
	ListArticleIDs(ctx context.Context) ([]string, error)
	GetArticle(ctx context.Context, id string) (*models.Article, error)
	ListBlogPostIDs(ctx context.Context) ([]string, error)
	GetBlogPost(ctx context.Context, id string) (*models.BlogPost, error)
}

// SearchIndexRepository upserts derived documents into the full-text index
// table, keyed by source record.
type SearchIndexRepository interface {
	UpsertSearchDocument(ctx context.Context, doc *models.SearchDocument) error
}
