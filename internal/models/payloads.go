package models

import "time"

// Typed payload and result shapes, one pair per job type. Payloads are
// immutable after enqueue; results are set only when a job completes.

// LinkCheckPayload is the input for a linkCheck job.
type LinkCheckPayload struct {
	URL string `json:"url"`
}

// LinkCheckResult reports the outcome of checking one URL. An unreachable
// or malformed URL is a normal completed outcome with IsValid=false, not a
// job failure.
type LinkCheckResult struct {
	URL        string    `json:"url"`
	IsValid    bool      `json:"isValid"`
	StatusCode int       `json:"statusCode,omitempty"`
	Error      string    `json:"error,omitempty"`
	CheckedAt  time.Time `json:"checkedAt"`
}

// NotifyUserPayload is the input for a notifyUser job.
type NotifyUserPayload struct {
	UserID     string         `json:"userId"`
	TemplateID string         `json:"templateId"`
	Data       map[string]any `json:"data,omitempty"`
}

// NotifyUserResult reports the dispatch outcome. Send errors are contained
// here rather than retried; a bad template id will not fix itself.
type NotifyUserResult struct {
	Success bool      `json:"success"`
	Message string    `json:"message,omitempty"`
	SentAt  time.Time `json:"sentAt"`
}

// Search index rebuild scopes.
const (
	IndexScopeArticles  = "articles"
	IndexScopeBlogPosts = "blogPosts"
	IndexScopeAll       = "all"
)

// RebuildSearchIndexPayload selects which collections to reindex.
type RebuildSearchIndexPayload struct {
	Type string `json:"type"`
}

// RebuildSearchIndexResult carries the batch counters. Success is true only
// when every record indexed cleanly.
type RebuildSearchIndexResult struct {
	Success bool `json:"success"`
	Indexed int  `json:"indexed"`
	Errors  int  `json:"errors"`
}

// TranscodeVideoPayload is the input for a transcodeVideo job.
type TranscodeVideoPayload struct {
	FileURL string `json:"fileUrl"`
	Preset  string `json:"preset"`
}

// TranscodeVideoResult is the contract a real transcoding backend must
// preserve.
type TranscodeVideoResult struct {
	Success    bool   `json:"success"`
	Preset     string `json:"preset"`
	OutputURL  string `json:"outputUrl,omitempty"`
	DurationMs int64  `json:"durationMs"`
}
