package processor

import (
	"context"
	"sync"
	"time"

	"github.com/goleaf/petssocnnetworkmobile-sub009/internal/models"
)

// fakeQueue is an in-memory Queue that applies partial updates the same way
// the queue service does.
type fakeQueue struct {
	mu   sync.Mutex
	jobs map[string]*models.QueueJob
}

func newFakeQueue(jobs ...*models.QueueJob) *fakeQueue {
	q := &fakeQueue{jobs: make(map[string]*models.QueueJob)}
	for _, job := range jobs {
		c := *job
		q.jobs[job.ID] = &c
	}
	return q
}

func (q *fakeQueue) get(id string) *models.QueueJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return nil
	}
	c := *job
	return &c
}

func (q *fakeQueue) GetJob(ctx context.Context, id string) (*models.QueueJob, error) {
	return q.get(id), nil
}

func (q *fakeQueue) UpdateJob(ctx context.Context, id string, update *models.JobUpdate) (*models.QueueJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job := q.jobs[id]
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
	if update.CompletedAt != nil {
		t := *update.CompletedAt
		job.CompletedAt = &t
	}

	c := *job
	return &c, nil
}

func processingJob(id string, jobType models.JobType, payload string) *models.QueueJob {
	return &models.QueueJob{
		ID:          id,
		Type:        jobType,
		Payload:     []byte(payload),
		Status:      models.StatusProcessing,
		Attempts:    1,
		MaxAttempts: 3,
		CreatedAt:   time.Now(),
	}
}
