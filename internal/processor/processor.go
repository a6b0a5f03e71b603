// Package processor implements the unit of work for each job type. A
// processor receives a claimed job, pushes progress through the queue, and
// drives the job to completed with a typed result. Processors never mark a
// job failed; a returned error surfaces to the worker, which applies the
// retry policy.
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/goleaf/petssocnnetworkmobile-sub009/internal/models"
)

// Queue is the narrow slice of the queue service processors need.
type Queue interface {
	GetJob(ctx context.Context, id string) (*models.QueueJob, error)
	UpdateJob(ctx context.Context, id string, update *models.JobUpdate) (*models.QueueJob, error)
}

// JobProcessor is what the worker dispatches claimed jobs through.
type JobProcessor interface {
	Process(ctx context.Context, job *models.QueueJob) error
}

// Dispatcher routes a job to the processor matching its type. The switch is
// exhaustive over the closed JobType enumeration; an unrecognized type is an
// immediate processing error.
type Dispatcher struct {
	linkCheck   *LinkCheckProcessor
	notifyUser  *NotifyUserProcessor
	searchIndex *RebuildSearchIndexProcessor
	transcode   *TranscodeVideoProcessor
}

// NewDispatcher wires the four processors.
func NewDispatcher(
	linkCheck *LinkCheckProcessor,
	notifyUser *NotifyUserProcessor,
	searchIndex *RebuildSearchIndexProcessor,
	transcode *TranscodeVideoProcessor,
) *Dispatcher {
	return &Dispatcher{
		linkCheck:   linkCheck,
		notifyUser:  notifyUser,
		searchIndex: searchIndex,
		transcode:   transcode,
	}
}

// Process runs the processor for the job's type.
func (d *Dispatcher) Process(ctx context.Context, job *models.QueueJob) error {
	switch job.Type {
	case models.TypeLinkCheck:
		return d.linkCheck.Process(ctx, job)
	case models.TypeNotifyUser:
		return d.notifyUser.Process(ctx, job)
	case models.TypeRebuildSearchIndex:
		return d.searchIndex.Process(ctx, job)
	case models.TypeTranscodeVideo:
		return d.transcode.Process(ctx, job)
	default:
		return fmt.Errorf("no processor registered for job type %q", job.Type)
	}
}

// reportProgress pushes a progress tick without touching any other field.
func reportProgress(ctx context.Context, queue Queue, jobID string, progress int, message string) error {
	_, err := queue.UpdateJob(ctx, jobID, &models.JobUpdate{
		Progress:        &progress,
		ProgressMessage: &message,
	})
	return err
}

// completeJob marshals the typed result and drives the job to completed.
func completeJob(ctx context.Context, queue Queue, jobID string, result interface{}) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	status := models.StatusCompleted
	progress := 100
	message := "done"
	now := time.Now()

	_, err = queue.UpdateJob(ctx, jobID, &models.JobUpdate{
		Status:          &status,
		Progress:        &progress,
		ProgressMessage: &message,
		Result:          raw,
		CompletedAt:     &now,
	})
	return err
}
