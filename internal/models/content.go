package models

import "time"

// Article is a source record read by the search index rebuild. Only the
// fields the indexer needs are modeled here; the rest of the article schema
// belongs to the content subsystem.
type Article struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Published bool      `json:"published"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BlogPost is a source record read by the search index rebuild.
type BlogPost struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Published bool      `json:"published"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SearchDocument is one row of the full-text index, keyed by source record.
type SearchDocument struct {
	SourceType string    `json:"source_type"`
	SourceID   string    `json:"source_id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	IndexedAt  time.Time `json:"indexed_at"`
}
