package models

import (
	"encoding/json"
	"time"
)

// JobStatus represents the lifecycle state of a queue job.
//
//	pending ──► processing ──► completed
//	   ▲            │
//	   └────────────┴────────► failed
//
// A processing job returns to pending when an attempt fails with retries
// remaining. completed and failed are terminal.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether no further transitions can occur.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// JobType identifies which processor handles a job and the shape of its
// payload and result. The enumeration is closed.
type JobType string

const (
	TypeLinkCheck          JobType = "linkCheck"
	TypeNotifyUser         JobType = "notifyUser"
	TypeRebuildSearchIndex JobType = "rebuildSearchIndex"
	TypeTranscodeVideo     JobType = "transcodeVideo"
)

// ValidJobType reports whether t is one of the known job types.
func ValidJobType(t JobType) bool {
	switch t {
	case TypeLinkCheck, TypeNotifyUser, TypeRebuildSearchIndex, TypeTranscodeVideo:
		return true
	}
	return false
}

// QueueJob is the durable record of one unit of deferred work. The
// repository owns the canonical copy; the worker and processors operate on
// fetched copies and write back through the queue service.
type QueueJob struct {
	ID              string          `json:"id"`
	Type            JobType         `json:"type"`
	Payload         json.RawMessage `json:"payload"`
	Status          JobStatus       `json:"status"`
	Progress        int             `json:"progress"`
	ProgressMessage string          `json:"progress_message,omitempty"`
	Priority        int             `json:"priority"`
	Attempts        int             `json:"attempts"`
	MaxAttempts     int             `json:"max_attempts"`
	Result          json.RawMessage `json:"result,omitempty"`
	Error           string          `json:"error,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}

// EnqueueRequest is the caller-facing shape for creating a job.
type EnqueueRequest struct {
	Type        JobType         `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Priority    int             `json:"priority"`
	MaxAttempts *int            `json:"max_attempts,omitempty"`
}

// JobUpdate is a partial update of a job row. Nil fields are left
// untouched, so a progress tick can never clobber a result or error set
// earlier.
type JobUpdate struct {
	Status          *JobStatus
	Progress        *int
	ProgressMessage *string
	Result          json.RawMessage
	Error           *string
	StartedAt       *time.Time
	CompletedAt     *time.Time
}

// JobFilter narrows a job listing. Zero values mean "no filter".
type JobFilter struct {
	Type   JobType
	Status JobStatus
	Limit  int
	Offset int
}

// JobStats aggregates job counts overall and per job type.
type JobStats struct {
	Pending    int                  `json:"pending"`
	Processing int                  `json:"processing"`
	Completed  int                  `json:"completed"`
	Failed     int                  `json:"failed"`
	ByType     map[JobType]TypeStat `json:"by_type"`
}

// TypeStat is the per-type slice of JobStats.
type TypeStat struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}
