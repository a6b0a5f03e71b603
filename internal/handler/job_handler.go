package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/goleaf/petssocnnetworkmobile-sub009/internal/metrics"
	"github.com/goleaf/petssocnnetworkmobile-sub009/internal/models"
	"github.com/goleaf/petssocnnetworkmobile-sub009/internal/service"
)

// JobHandler exposes the enqueue and inspection surfaces over HTTP.
type JobHandler struct {
	queue   *service.QueueService
	worker  *service.Worker
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewJobHandler creates a handler. worker may be nil when the API process
// runs without an embedded worker; the manual-tick endpoint then responds
// 503.
func NewJobHandler(queue *service.QueueService, worker *service.Worker, m *metrics.Metrics, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		queue:   queue,
		worker:  worker,
		metrics: m,
		logger:  logger,
	}
}

// Routes mounts the handler under /v1.
func (h *JobHandler) Routes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Post("/jobs", h.CreateJob)
		r.Get("/jobs", h.ListJobs)
		r.Get("/jobs/stats", h.GetStats)
		r.Post("/jobs/cleanup", h.Cleanup)
		r.Get("/jobs/{id}", h.GetJob)
		r.Get("/metrics", h.GetMetrics)
		r.Post("/worker/tick", h.WorkerTick)
	})
}

// CreateJob handles POST /v1/jobs.
func (h *JobHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req models.EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Type == "" {
		h.writeError(w, http.StatusBadRequest, "type is required")
		return
	}
	if len(req.Payload) == 0 {
		h.writeError(w, http.StatusBadRequest, "payload is required")
		return
	}

	job, err := h.queue.Enqueue(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidJobType):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrRateLimitExceeded):
			h.writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		default:
			h.logger.Error("enqueue failed", zap.Error(err))
			h.writeError(w, http.StatusInternalServerError, "failed to enqueue job")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, job)
}

// GetJob handles GET /v1/jobs/{id}.
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "job id is required")
		return
	}

	job, err := h.queue.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			h.writeError(w, http.StatusNotFound, "job not found")
			return
		}
		h.logger.Error("get job failed", zap.String("job_id", id), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to retrieve job")
		return
	}

	h.writeJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /v1/jobs?type=&status=&limit=&offset=.
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	filter := models.JobFilter{
		Type:   models.JobType(r.URL.Query().Get("type")),
		Status: models.JobStatus(r.URL.Query().Get("status")),
	}

	if filter.Type != "" && !models.ValidJobType(filter.Type) {
		h.writeError(w, http.StatusBadRequest, "invalid type")
		return
	}
	switch filter.Status {
	case "", models.StatusPending, models.StatusProcessing, models.StatusCompleted, models.StatusFailed:
	default:
		h.writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		filter.Offset = n
	}

	jobs, total, err := h.queue.ListJobs(r.Context(), filter)
	if err != nil {
		h.logger.Error("list jobs failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	if jobs == nil {
		jobs = []*models.QueueJob{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"total": total,
	})
}

// GetStats handles GET /v1/jobs/stats.
func (h *JobHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queue.GetJobStats(r.Context())
	if err != nil {
		h.logger.Error("job stats failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to compute job stats")
		return
	}

	h.writeJSON(w, http.StatusOK, stats)
}

// Cleanup handles POST /v1/jobs/cleanup.
func (h *JobHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DaysOld int `json:"days_old"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DaysOld < 1 {
		h.writeError(w, http.StatusBadRequest, "days_old must be at least 1")
		return
	}

	deleted, err := h.queue.CleanupOldJobs(r.Context(), req.DaysOld)
	if err != nil {
		h.logger.Error("cleanup failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to clean up jobs")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

// GetMetrics handles GET /v1/metrics.
func (h *JobHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.metrics.GetSnapshot())
}

// WorkerTick handles POST /v1/worker/tick: one manual processing tick for
// deployments without a persistent polling loop.
func (h *JobHandler) WorkerTick(w http.ResponseWriter, r *http.Request) {
	if h.worker == nil {
		h.writeError(w, http.StatusServiceUnavailable, "no embedded worker")
		return
	}

	if err := h.worker.ProcessNow(r.Context()); err != nil {
		h.logger.Error("manual tick failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "tick failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}

func (h *JobHandler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *JobHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
