package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/goleaf/petssocnnetworkmobile-sub009/internal/models"
)

// pendingScanWindow bounds how many pending candidates NextPendingJob
// examines per call, keeping selection cost flat under a large backlog.
const pendingScanWindow = 25

// SQLiteRepository implements JobRepository, ContentRepository and
// SearchIndexRepository on a single SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens the database and initializes the schema.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := &SQLiteRepository{db: db}
	if err := repo.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return repo, nil
}

// Close closes the database connection.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		progress INTEGER NOT NULL DEFAULT 0,
		progress_message TEXT NOT NULL DEFAULT '',
		priority INTEGER NOT NULL DEFAULT 0,
		attempts INTEGER NOT NULL DEFAULT 0,
		max_attempts INTEGER NOT NULL DEFAULT 3,
		result TEXT,
		error TEXT,
		created_at INTEGER NOT NULL,
		started_at INTEGER,
		completed_at INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
	CREATE INDEX IF NOT EXISTS idx_jobs_type_status ON jobs(type, status);
	CREATE INDEX IF NOT EXISTS idx_jobs_pending_order ON jobs(status, priority DESC, created_at ASC);
	CREATE INDEX IF NOT EXISTS idx_jobs_completed_at ON jobs(completed_at);

	CREATE TABLE IF NOT EXISTS articles (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		published INTEGER NOT NULL DEFAULT 1,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS blog_posts (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		published INTEGER NOT NULL DEFAULT 1,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS search_index (
		source_type TEXT NOT NULL,
		source_id TEXT NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		indexed_at INTEGER NOT NULL,
		PRIMARY KEY (source_type, source_id)
	);
	`

	_, err := r.db.Exec(schema)
	return err
}

const jobColumns = `id, type, payload, status, progress, progress_message, priority,
       attempts, max_attempts, result, error, created_at, started_at, completed_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*models.QueueJob, error) {
	var job models.QueueJob
	var payload string
	var result, errMsg sql.NullString
	var createdAt int64
	var startedAt, completedAt sql.NullInt64

	err := row.Scan(
		&job.ID,
		&job.Type,
		&payload,
		&job.Status,
		&job.Progress,
		&job.ProgressMessage,
		&job.Priority,
		&job.Attempts,
		&job.MaxAttempts,
		&result,
		&errMsg,
		&createdAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Payload = []byte(payload)
	if result.Valid {
		job.Result = []byte(result.String)
	}
	if errMsg.Valid {
		job.Error = errMsg.String
	}
	job.CreatedAt = time.Unix(0, createdAt)
	if startedAt.Valid {
		t := time.Unix(0, startedAt.Int64)
		job.StartedAt = &t
	}
	if completedAt.Valid {
		t := time.Unix(0, completedAt.Int64)
		job.CompletedAt = &t
	}

	return &job, nil
}

// CreateJob inserts a new job row.
func (r *SQLiteRepository) CreateJob(ctx context.Context, job *models.QueueJob) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO jobs (id, type, payload, status, progress, progress_message,
		                  priority, attempts, max_attempts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		job.ID,
		job.Type,
		string(job.Payload),
		job.Status,
		job.Progress,
		job.ProgressMessage,
		job.Priority,
		job.Attempts,
		job.MaxAttempts,
		job.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetJobByID retrieves a job by id, returning nil when the id is unknown.
func (r *SQLiteRepository) GetJobByID(ctx context.Context, id string) (*models.QueueJob, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = ?`

	job, err := scanJob(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return job, nil
}

// UpdateJob merges the non-nil fields of update into the row.
func (r *SQLiteRepository) UpdateJob(ctx context.Context, id string, update *models.JobUpdate) (*models.QueueJob, error) {
	var sets []string
	var args []interface{}

	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *update.Status)
	}
	if update.Progress != nil {
		sets = append(sets, "progress = ?")
		args = append(args, *update.Progress)
	}
	if update.ProgressMessage != nil {
		sets = append(sets, "progress_message = ?")
		args = append(args, *update.ProgressMessage)
	}
	if update.Result != nil {
		sets = append(sets, "result = ?")
		args = append(args, string(update.Result))
	}
	if update.Error != nil {
		sets = append(sets, "error = ?")
		args = append(args, *update.Error)
	}
	if update.StartedAt != nil {
		sets = append(sets, "started_at = ?")
		args = append(args, update.StartedAt.UnixNano())
	}
	if update.CompletedAt != nil {
		sets = append(sets, "completed_at = ?")
		args = append(args, update.CompletedAt.UnixNano())
	}

	if len(sets) > 0 {
		query := "UPDATE jobs SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		args = append(args, id)

		res, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to update job: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to update job: %w", err)
		}
		if affected == 0 {
			return nil, nil
		}
	}

	return r.GetJobByID(ctx, id)
}

// NextPendingJob scans a bounded window of pending rows in scheduling order
// and returns the first with attempts remaining. Pending rows that have
// exhausted attempts are skipped, never returned.
func (r *SQLiteRepository) NextPendingJob(ctx context.Context) (*models.QueueJob, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE status = 'pending'
		ORDER BY priority DESC, created_at ASC, id ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, pendingScanWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending jobs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		if job.Attempts < job.MaxAttempts {
			return job, nil
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending jobs: %w", err)
	}

	return nil, nil
}

// ClaimJob conditionally moves a pending job to processing. The WHERE guard
// on status makes the claim atomic under concurrent workers.
func (r *SQLiteRepository) ClaimJob(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	query := `
		UPDATE jobs
		SET status = 'processing',
		    attempts = attempts + 1,
		    progress = 0,
		    progress_message = '',
		    started_at = ?
		WHERE id = ? AND status = 'pending'
	`

	res, err := r.db.ExecContext(ctx, query, startedAt.UnixNano(), id)
	if err != nil {
		return false, fmt.Errorf("failed to claim job: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to claim job: %w", err)
	}

	return affected == 1, nil
}

// ListJobs returns a page of jobs newest-created first plus the total
// matching count.
func (r *SQLiteRepository) ListJobs(ctx context.Context, filter models.JobFilter) ([]*models.QueueJob, int, error) {
	var conds []string
	var args []interface{}

	if filter.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, filter.Type)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM jobs"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count jobs: %w", err)
	}

	query := `SELECT ` + jobColumns + ` FROM jobs` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.QueueJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate jobs: %w", err)
	}

	return jobs, total, nil
}

// GetJobStats aggregates counts overall and per type from a single
// GROUP BY scan over type/status pairs.
func (r *SQLiteRepository) GetJobStats(ctx context.Context) (*models.JobStats, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT type, status, COUNT(*) FROM jobs GROUP BY type, status")
	if err != nil {
		return nil, fmt.Errorf("failed to query job stats: %w", err)
	}
	defer rows.Close()

	stats := &models.JobStats{ByType: make(map[models.JobType]models.TypeStat)}

	for rows.Next() {
		var jobType models.JobType
		var status models.JobStatus
		var count int
		if err := rows.Scan(&jobType, &status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan job stats: %w", err)
		}

		ts := stats.ByType[jobType]
		switch status {
		case models.StatusPending:
			stats.Pending += count
			ts.Pending += count
		case models.StatusProcessing:
			stats.Processing += count
			ts.Processing += count
		case models.StatusCompleted:
			stats.Completed += count
			ts.Completed += count
		case models.StatusFailed:
			stats.Failed += count
			ts.Failed += count
		}
		stats.ByType[jobType] = ts
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate job stats: %w", err)
	}

	return stats, nil
}

// DeleteTerminalJobsBefore hard-deletes old completed/failed rows. The
// status guard keeps pending/processing rows safe regardless of age.
func (r *SQLiteRepository) DeleteTerminalJobsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		DELETE FROM jobs
		WHERE status IN ('completed', 'failed')
		  AND completed_at IS NOT NULL
		  AND completed_at < ?
	`

	res, err := r.db.ExecContext(ctx, query, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old jobs: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete old jobs: %w", err)
	}

	return int(affected), nil
}

// ReclaimJob conditionally rewrites a stale processing row. The WHERE guard
// on status and started_at makes the reclaim atomic against a worker that
// finished or re-claimed the job after the stale scan.
func (r *SQLiteRepository) ReclaimJob(ctx context.Context, id string, startedAt time.Time, status models.JobStatus, reason string, completedAt *time.Time) (bool, error) {
	var completed interface{}
	if completedAt != nil {
		completed = completedAt.UnixNano()
	}

	query := `
		UPDATE jobs
		SET status = ?,
		    error = ?,
		    completed_at = COALESCE(?, completed_at)
		WHERE id = ? AND status = 'processing' AND started_at = ?
	`

	res, err := r.db.ExecContext(ctx, query, status, reason, completed, id, startedAt.UnixNano())
	if err != nil {
		return false, fmt.Errorf("failed to reclaim job: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to reclaim job: %w", err)
	}

	return affected == 1, nil
}

// ListStaleProcessingJobs returns processing rows whose attempt started
// before the cutoff.
func (r *SQLiteRepository) ListStaleProcessingJobs(ctx context.Context, cutoff time.Time) ([]*models.QueueJob, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE status = 'processing'
		  AND started_at IS NOT NULL
		  AND started_at < ?
		ORDER BY started_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, cutoff.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to query stale jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.QueueJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stale jobs: %w", err)
	}

	return jobs, nil
}
