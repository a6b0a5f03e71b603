package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/goleaf/petssocnnetworkmobile-sub009/internal/models"
)

const (
	linkCheckTimeout   = 10 * time.Second
	linkCheckUserAgent = "PetSocialBot/1.0 (+link-checker)"
)

// LinkCheckProcessor validates externally supplied URLs with a HEAD
// request. An unreachable or malformed URL is a normal completed outcome
// (isValid=false), never a job failure.
type LinkCheckProcessor struct {
	queue  Queue
	client *http.Client
	logger *zap.Logger
}

// NewLinkCheckProcessor creates the processor. A nil client gets the
// default 10s-timeout client with redirect following.
func NewLinkCheckProcessor(queue Queue, client *http.Client, logger *zap.Logger) *LinkCheckProcessor {
	if client == nil {
		client = &http.Client{Timeout: linkCheckTimeout}
	}
	return &LinkCheckProcessor{
		queue:  queue,
		client: client,
		logger: logger,
	}
}

// Process checks one URL and completes the job with a LinkCheckResult.
func (p *LinkCheckProcessor) Process(ctx context.Context, job *models.QueueJob) error {
	var payload models.LinkCheckPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("invalid linkCheck payload: %w", err)
	}

	if err := reportProgress(ctx, p.queue, job.ID, 10, "validating URL"); err != nil {
		return err
	}

	result := models.LinkCheckResult{
		URL:       payload.URL,
		CheckedAt: time.Now(),
	}

	parsed, err := url.Parse(payload.URL)
	if err != nil {
		result.Error = fmt.Sprintf("Invalid URL: %v", err)
		return completeJob(ctx, p.queue, job.ID, result)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		// Validation outcome, not a processor fault. No network call.
		result.Error = fmt.Sprintf("Invalid protocol: %s (only http and https are supported)", parsed.Scheme)
		return completeJob(ctx, p.queue, job.ID, result)
	}

	if err := reportProgress(ctx, p.queue, job.ID, 40, "requesting "+parsed.Host); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, payload.URL, nil)
	if err != nil {
		result.Error = fmt.Sprintf("Invalid URL: %v", err)
		return completeJob(ctx, p.queue, job.ID, result)
	}
	req.Header.Set("User-Agent", linkCheckUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("link check request failed",
			zap.String("job_id", job.ID),
			zap.String("url", payload.URL),
			zap.Error(err))
		result.Error = fmt.Sprintf("Request failed: %v", err)
		return completeJob(ctx, p.queue, job.ID, result)
	}
	resp.Body.Close()

	result.StatusCode = resp.StatusCode
	result.IsValid = resp.StatusCode >= 200 && resp.StatusCode < 400
	if !result.IsValid {
		result.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}

	return completeJob(ctx, p.queue, job.ID, result)
}
