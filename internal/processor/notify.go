package processor

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/goleaf/petssocnnetworkmobile-sub009/internal/models"
	"github.com/goleaf/petssocnnetworkmobile-sub009/internal/notify"
)

// NotifyUserProcessor dispatches a user notification through an external
// channel. Every failure is contained in the result (success=false), so
// notification jobs are never retried: a bad template id will not fix
// itself on a second attempt.
type NotifyUserProcessor struct {
	queue    Queue
	notifier notify.Notifier
	logger   *zap.Logger
}

// NewNotifyUserProcessor creates the processor.
func NewNotifyUserProcessor(queue Queue, notifier notify.Notifier, logger *zap.Logger) *NotifyUserProcessor {
	return &NotifyUserProcessor{
		queue:    queue,
		notifier: notifier,
		logger:   logger,
	}
}

// Process sends one notification and completes the job with a
// NotifyUserResult.
func (p *NotifyUserProcessor) Process(ctx context.Context, job *models.QueueJob) error {
	result := models.NotifyUserResult{SentAt: time.Now()}

	var payload models.NotifyUserPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		result.Message = "invalid payload: " + err.Error()
		return completeJob(ctx, p.queue, job.ID, result)
	}

	if err := reportProgress(ctx, p.queue, job.ID, 20, "dispatching notification"); err != nil {
		return err
	}

	if err := p.notifier.Send(ctx, payload.UserID, payload.TemplateID, payload.Data); err != nil {
		p.logger.Warn("notification dispatch failed",
			zap.String("job_id", job.ID),
			zap.String("user_id", payload.UserID),
			zap.String("template_id", payload.TemplateID),
			zap.Error(err))
		result.Message = err.Error()
		return completeJob(ctx, p.queue, job.ID, result)
	}

	result.Success = true
	result.Message = "notification sent"
	result.SentAt = time.Now()

	return completeJob(ctx, p.queue, job.ID, result)
}
