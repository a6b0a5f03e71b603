package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goleaf/petssocnnetworkmobile-sub009/internal/metrics"
	"github.com/goleaf/petssocnnetworkmobile-sub009/internal/models"
	"github.com/goleaf/petssocnnetworkmobile-sub009/internal/processor"
)

// DefaultPollInterval is the worker's tick period when none is configured.
const DefaultPollInterval = 2 * time.Second

// Worker drives progress on the queue: on every tick it claims at most one
// eligible pending job, dispatches it to the matching processor, and
// applies the retry policy on failure. Each Worker is an independent
// instance with its own lifecycle; nothing is process-global.
type Worker struct {
	queue      *QueueService
	dispatcher processor.JobProcessor
	metrics    *metrics.Metrics
	logger     *zap.Logger
	interval   time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewWorker creates a worker. A non-positive interval gets
// DefaultPollInterval.
func NewWorker(queue *QueueService, dispatcher processor.JobProcessor, m *metrics.Metrics, logger *zap.Logger, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Worker{
		queue:      queue,
		dispatcher: dispatcher,
		metrics:    m,
		logger:     logger,
		interval:   interval,
	}
}

// Start launches the polling loop: one tick immediately, then one per
// interval. Calling Start on a running worker logs a warning and no-ops.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		w.logger.Warn("worker already running, ignoring start")
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	stopCh := w.stopCh
	w.mu.Unlock()

	w.logger.Info("worker started", zap.Duration("poll_interval", w.interval))

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		w.tick(ctx)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				w.markStopped()
				return
			case <-stopCh:
				return
			case <-ticker.C:
				w.tick(ctx)
			}
		}
	}()
}

// markStopped clears the running flag when the loop exits on its own via
// context cancellation, so Running() tracks the loop and a later Start is
// not refused.
func (w *Worker) markStopped() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.running = false
	w.logger.Info("worker stopped")
}

// Stop halts the polling loop. It does not cancel an in-flight processor
// call; the current dispatch finishes before the loop goroutine exits.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	w.wg.Wait()
	w.logger.Info("worker stopped")
}

// Running reports whether the polling loop is active.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// ProcessNow runs a single tick on demand, for request-driven environments
// without a persistent background loop.
func (w *Worker) ProcessNow(ctx context.Context) error {
	return w.processOne(ctx)
}

// tick contains a single poll so one failed tick never stops future ticks.
func (w *Worker) tick(ctx context.Context) {
	if err := w.processOne(ctx); err != nil {
		w.logger.Error("worker tick failed", zap.Error(err))
	}
}

// processOne claims and processes at most one job.
func (w *Worker) processOne(ctx context.Context) error {
	job, err := w.queue.NextPendingJob(ctx)
	if err != nil {
		return err
	}
	if job == nil {
		return nil
	}

	claimed, err := w.queue.ClaimJob(ctx, job.ID)
	if err != nil {
		return err
	}
	if !claimed {
		// Another worker won the race; the job will not be double-processed.
		return nil
	}

	// Re-read the claimed row so the processor sees the incremented
	// attempts and processing status.
	job, err = w.queue.GetJob(ctx, job.ID)
	if err != nil {
		return err
	}

	w.logger.Info("processing job",
		zap.String("job_id", job.ID),
		zap.String("type", string(job.Type)),
		zap.Int("attempt", job.Attempts),
		zap.Int("max_attempts", job.MaxAttempts))

	if err := w.dispatcher.Process(ctx, job); err != nil {
		return w.handleFailure(ctx, job.ID, err)
	}

	w.metrics.IncrementCompletedJobs()
	return nil
}

// handleFailure applies the retry policy after a processor error: back to
// pending while attempts remain, failed once exhausted. Attempts count
// attempts started, so the already-incremented value is left as is.
func (w *Worker) handleFailure(ctx context.Context, jobID string, procErr error) error {
	job, err := w.queue.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to re-fetch job after processor error: %w", err)
	}

	errMsg := procErr.Error()

	if job.Attempts >= job.MaxAttempts {
		status := models.StatusFailed
		now := time.Now()
		if _, err := w.queue.UpdateJob(ctx, jobID, &models.JobUpdate{
			Status:      &status,
			Error:       &errMsg,
			CompletedAt: &now,
		}); err != nil {
			return err
		}

		w.metrics.IncrementFailedJobs()
		w.logger.Error("job failed permanently",
			zap.String("job_id", jobID),
			zap.Int("attempts", job.Attempts),
			zap.String("error", errMsg))
		return nil
	}

	status := models.StatusPending
	if _, err := w.queue.UpdateJob(ctx, jobID, &models.JobUpdate{
		Status: &status,
		Error:  &errMsg,
	}); err != nil {
		return err
	}

	w.metrics.IncrementRetriedJobs()
	w.logger.Warn("job attempt failed, will retry",
		zap.String("job_id", jobID),
		zap.Int("attempt", job.Attempts),
		zap.Int("max_attempts", job.MaxAttempts),
		zap.String("error", errMsg))
	return nil
}
