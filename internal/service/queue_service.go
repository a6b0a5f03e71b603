package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goleaf/petssocnnetworkmobile-sub009/internal/metrics"
	"github.com/goleaf/petssocnnetworkmobile-sub009/internal/models"
	"github.com/goleaf/petssocnnetworkmobile-sub009/internal/repository"
)

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrInvalidJobType    = errors.New("invalid job type")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

const (
	defaultMaxAttempts = 3
	defaultListLimit   = 50
	maxListLimit       = 200
)

// QueueService is the only component that reads or writes job rows. The
// worker and processors go through it rather than mutating fetched copies.
type QueueService struct {
	repo        repository.JobRepository
	rateLimiter *RateLimiter
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewQueueService creates a queue service. A nil rateLimiter disables
// enqueue throttling.
func NewQueueService(repo repository.JobRepository, rateLimiter *RateLimiter, m *metrics.Metrics, logger *zap.Logger) *QueueService {
	return &QueueService{
		repo:        repo,
		rateLimiter: rateLimiter,
		metrics:     m,
		logger:      logger,
	}
}

// Enqueue inserts a new pending job and returns it with its assigned id.
func (s *QueueService) Enqueue(ctx context.Context, req *models.EnqueueRequest) (*models.QueueJob, error) {
	if !models.ValidJobType(req.Type) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidJobType, req.Type)
	}

	if s.rateLimiter != nil && !s.rateLimiter.Allow(req.Type) {
		return nil, ErrRateLimitExceeded
	}

	maxAttempts := defaultMaxAttempts
	if req.MaxAttempts != nil && *req.MaxAttempts > 0 {
		maxAttempts = *req.MaxAttempts
	}

	job := &models.QueueJob{
		ID:          uuid.New().String(),
		Type:        req.Type,
		Payload:     req.Payload,
		Status:      models.StatusPending,
		Progress:    0,
		Priority:    req.Priority,
		Attempts:    0,
		MaxAttempts: maxAttempts,
	}

	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	s.metrics.IncrementEnqueuedJobs()
	s.logger.Info("job enqueued",
		zap.String("job_id", job.ID),
		zap.String("type", string(job.Type)),
		zap.Int("priority", job.Priority),
		zap.Int("max_attempts", job.MaxAttempts))

	return job, nil
}

// GetJob retrieves a job by id.
func (s *QueueService) GetJob(ctx context.Context, id string) (*models.QueueJob, error) {
	job, err := s.repo.GetJobByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// UpdateJob merges the provided fields into the job row and returns the
// updated job. Fields left nil are untouched.
func (s *QueueService) UpdateJob(ctx context.Context, id string, update *models.JobUpdate) (*models.QueueJob, error) {
	job, err := s.repo.UpdateJob(ctx, id, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update job: %w", err)
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// NextPendingJob returns the next eligible pending job in scheduling order,
// or nil when the queue is idle.
func (s *QueueService) NextPendingJob(ctx context.Context) (*models.QueueJob, error) {
	job, err := s.repo.NextPendingJob(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending job: %w", err)
	}
	return job, nil
}

// ClaimJob atomically moves a pending job to processing for an attempt.
// Returns false when the job was already claimed or is no longer pending.
func (s *QueueService) ClaimJob(ctx context.Context, id string) (bool, error) {
	claimed, err := s.repo.ClaimJob(ctx, id, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to claim job: %w", err)
	}
	return claimed, nil
}

// ListJobs returns a page of jobs newest-created first plus the total.
func (s *QueueService) ListJobs(ctx context.Context, filter models.JobFilter) ([]*models.QueueJob, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	jobs, total, err := s.repo.ListJobs(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, total, nil
}

// GetJobStats returns aggregate counts overall and per job type.
func (s *QueueService) GetJobStats(ctx context.Context) (*models.JobStats, error) {
	stats, err := s.repo.GetJobStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get job stats: %w", err)
	}
	return stats, nil
}

// CleanupOldJobs hard-deletes terminal jobs whose completion is older than
// daysOld days and returns the deleted count.
func (s *QueueService) CleanupOldJobs(ctx context.Context, daysOld int) (int, error) {
	if daysOld < 1 {
		return 0, fmt.Errorf("daysOld must be at least 1, got %d", daysOld)
	}

	cutoff := time.Now().AddDate(0, 0, -daysOld)
	deleted, err := s.repo.DeleteTerminalJobsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up old jobs: %w", err)
	}

	if deleted > 0 {
		s.logger.Info("cleaned up old jobs",
			zap.Int("deleted", deleted),
			zap.Int("days_old", daysOld))
	}

	return deleted, nil
}

// ReclaimStaleJobs sweeps processing jobs whose attempt started more than
// olderThan ago. The worker that claimed them is assumed lost: jobs with
// attempts remaining go back to pending, exhausted ones are marked failed.
// Returns the number of jobs touched.
func (s *QueueService) ReclaimStaleJobs(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	stale, err := s.repo.ListStaleProcessingJobs(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale jobs: %w", err)
	}

	reclaimed := 0
	for _, job := range stale {
		if job.StartedAt == nil {
			continue
		}

		reason := fmt.Sprintf("attempt abandoned after %s in processing", olderThan)

		status := models.StatusPending
		var completedAt *time.Time
		if job.Attempts >= job.MaxAttempts {
			status = models.StatusFailed
			now := time.Now()
			completedAt = &now
		}

		ok, err := s.repo.ReclaimJob(ctx, job.ID, *job.StartedAt, status, reason, completedAt)
		if err != nil {
			s.logger.Error("failed to reclaim stale job",
				zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		if !ok {
			// The job finished or was re-claimed after the stale scan.
			continue
		}

		s.metrics.IncrementReclaimedJobs()
		s.logger.Warn("reclaimed stale job",
			zap.String("job_id", job.ID),
			zap.String("new_status", string(status)),
			zap.Int("attempts", job.Attempts),
			zap.Int("max_attempts", job.MaxAttempts))
		reclaimed++
	}

	return reclaimed, nil
}
