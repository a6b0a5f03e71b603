package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/goleaf/petssocnnetworkmobile-sub009/internal/models"
)

// TranscodeVideoProcessor stands in for an external transcoding service.
// The staged progress, completed status and result contract are what a real
// backend integration must preserve; only the simulated work between stages
// gets replaced.
type TranscodeVideoProcessor struct {
	queue Queue
	// stepDelay is the simulated cost of each stage. Tests set it to zero.
	stepDelay time.Duration
	logger    *zap.Logger
}

// NewTranscodeVideoProcessor creates the processor.
func NewTranscodeVideoProcessor(queue Queue, stepDelay time.Duration, logger *zap.Logger) *TranscodeVideoProcessor {
	return &TranscodeVideoProcessor{
		queue:     queue,
		stepDelay: stepDelay,
		logger:    logger,
	}
}

// Process simulates a transcode and completes the job with a
// TranscodeVideoResult.
func (p *TranscodeVideoProcessor) Process(ctx context.Context, job *models.QueueJob) error {
	var payload models.TranscodeVideoPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("invalid transcodeVideo payload: %w", err)
	}

	started := time.Now()

	stages := []struct {
		progress int
		message  string
	}{
		{10, "fetching source"},
		{35, "transcoding " + payload.Preset},
		{70, "transcoding " + payload.Preset},
		{90, "packaging output"},
	}

	for _, stage := range stages {
		if err := reportProgress(ctx, p.queue, job.ID, stage.progress, stage.message); err != nil {
			return err
		}
		if err := p.wait(ctx); err != nil {
			return err
		}
	}

	result := models.TranscodeVideoResult{
		Success:    true,
		Preset:     payload.Preset,
		OutputURL:  outputURL(payload.FileURL, payload.Preset),
		DurationMs: time.Since(started).Milliseconds(),
	}

	p.logger.Info("transcode finished",
		zap.String("job_id", job.ID),
		zap.String("preset", payload.Preset),
		zap.Int64("duration_ms", result.DurationMs))

	return completeJob(ctx, p.queue, job.ID, result)
}

func (p *TranscodeVideoProcessor) wait(ctx context.Context) error {
	if p.stepDelay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.stepDelay):
		return nil
	}
}

// outputURL derives the artifact location from the source URL: extension
// swapped for the preset suffix, query and fragment dropped.
func outputURL(fileURL, preset string) string {
	u, err := url.Parse(fileURL)
	if err != nil {
		return fileURL + "-" + preset + ".mp4"
	}

	path := u.Path
	if idx := strings.LastIndex(path, "."); idx > strings.LastIndex(path, "/") {
		path = path[:idx]
	}
	u.Path = path + "-" + preset + ".mp4"
	u.RawQuery = ""
	u.Fragment = ""

	return u.String()
}
