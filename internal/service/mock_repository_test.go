package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goleaf/petssocnnetworkmobile-sub009/internal/models"
)

// mockJobRepo is an in-memory JobRepository for service and worker tests.
// It mirrors the SQLite implementation's semantics closely enough to
// exercise the selection, claim and retry paths.
type mockJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*models.QueueJob

	createErr error
	getErr    error
}

func newMockJobRepo() *mockJobRepo {
	return &mockJobRepo{jobs: make(map[string]*models.QueueJob)}
}

func (m *mockJobRepo) put(job *models.QueueJob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	c := *job
	m.jobs[job.ID] = &c
}

func (m *mockJobRepo) get(id string) *models.QueueJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil
	}
	c := *job
	return &c
}

func (m *mockJobRepo) CreateJob(ctx context.Context, job *models.QueueJob) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.put(job)
	return nil
}

func (m *mockJobRepo) GetJobByID(ctx context.Context, id string) (*models.QueueJob, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.get(id), nil
}

func (m *mockJobRepo) UpdateJob(ctx context.Context, id string, update *models.JobUpdate) (*models.QueueJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}

	if update.Status != nil {
		job.Status = *update.Status
	}
	if update.Progress != nil {
		job.Progress = *update.Progress
	}
	if update.ProgressMessage != nil {
		job.ProgressMessage = *update.ProgressMessage
	}
	if update.Result != nil {
		job.Result = update.Result
	}
	if update.Error != nil {
		job.Error = *update.Error
	}
	if update.StartedAt != nil {
		t := *update.StartedAt
		job.StartedAt = &t
	}
	if update.CompletedAt != nil {
		t := *update.CompletedAt
		job.CompletedAt = &t
	}

	c := *job
	return &c, nil
}

func (m *mockJobRepo) NextPendingJob(ctx context.Context) (*models.QueueJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var candidates []*models.QueueJob
	for _, job := range m.jobs {
		if job.Status == models.StatusPending {
			candidates = append(candidates, job)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})

	for _, job := range candidates {
		if job.Attempts < job.MaxAttempts {
			c := *job
			return &c, nil
		}
	}
	return nil, nil
}

func (m *mockJobRepo) ClaimJob(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok || job.Status != models.StatusPending {
		return false, nil
	}

	job.Status = models.StatusProcessing
	job.Attempts++
	job.Progress = 0
	job.ProgressMessage = ""
	t := startedAt
	job.StartedAt = &t
	return true, nil
}

func (m *mockJobRepo) ListJobs(ctx context.Context, filter models.JobFilter) ([]*models.QueueJob, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*models.QueueJob
	for _, job := range m.jobs {
		if filter.Type != "" && job.Type != filter.Type {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		c := *job
		matched = append(matched, &c)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if filter.Offset < len(matched) {
		matched = matched[filter.Offset:]
	} else {
		matched = nil
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (m *mockJobRepo) GetJobStats(ctx context.Context) (*models.JobStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &models.JobStats{ByType: make(map[models.JobType]models.TypeStat)}
	for _, job := range m.jobs {
		ts := stats.ByType[job.Type]
		switch job.Status {
		case models.StatusPending:
			stats.Pending++
			ts.Pending++
		case models.StatusProcessing:
			stats.Processing++
			ts.Processing++
		case models.StatusCompleted:
			stats.Completed++
			ts.Completed++
		case models.StatusFailed:
			stats.Failed++
			ts.Failed++
		}
		stats.ByType[job.Type] = ts
	}
	return stats, nil
}

func (m *mockJobRepo) DeleteTerminalJobsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for id, job := range m.jobs {
		if job.Status.IsTerminal() && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(m.jobs, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *mockJobRepo) ReclaimJob(ctx context.Context, id string, startedAt time.Time, status models.JobStatus, reason string, completedAt *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok || job.Status != models.StatusProcessing {
		return false, nil
	}
	if job.StartedAt == nil || !job.StartedAt.Equal(startedAt) {
		return false, nil
	}

	job.Status = status
	job.Error = reason
	if completedAt != nil {
		t := *completedAt
		job.CompletedAt = &t
	}
	return true, nil
}

func (m *mockJobRepo) ListStaleProcessingJobs(ctx context.Context, cutoff time.Time) ([]*models.QueueJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stale []*models.QueueJob
	for _, job := range m.jobs {
		if job.Status == models.StatusProcessing && job.StartedAt != nil && job.StartedAt.Before(cutoff) {
			c := *job
			stale = append(stale, &c)
		}
	}
	return stale, nil
}
