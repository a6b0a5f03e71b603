package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goleaf/petssocnnetworkmobile-sub009/internal/models"
)

// Content and search-index access for the index rebuild. IDs are listed
// first and records fetched one by one so a bad record only costs that
// record, not the batch.

// ListArticleIDs returns the ids of all published articles.
func (r *SQLiteRepository) ListArticleIDs(ctx context.Context) ([]string, error) {
	return r.listIDs(ctx, "SELECT id FROM articles WHERE published = 1 ORDER BY id ASC")
}

// GetArticle retrieves one article by id.
func (r *SQLiteRepository) GetArticle(ctx context.Context, id string) (*models.Article, error) {
	query := `SELECT id, title, body, published, updated_at FROM articles WHERE id = ?`

	var a models.Article
	var updatedAt int64
	err := r.db.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.Title, &a.Body, &a.Published, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("article %s not found", id)
		}
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	a.UpdatedAt = time.Unix(0, updatedAt)

	return &a, nil
}

// ListBlogPostIDs returns the ids of all published blog posts.
func (r *SQLiteRepository) ListBlogPostIDs(ctx context.Context) ([]string, error) {
	return r.listIDs(ctx, "SELECT id FROM blog_posts WHERE published = 1 ORDER BY id ASC")
}

// GetBlogPost retrieves one blog post by id.
func (r *SQLiteRepository) GetBlogPost(ctx context.Context, id string) (*models.BlogPost, error) {
	query := `SELECT id, title, body, published, updated_at FROM blog_posts WHERE id = ?`

	var p models.BlogPost
	var updatedAt int64
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Title, &p.Body, &p.Published, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("blog post %s not found", id)
		}
		return nil, fmt.Errorf("failed to get blog post: %w", err)
	}
	p.UpdatedAt = time.Unix(0, updatedAt)

	return &p, nil
}

// UpsertSearchDocument inserts or replaces the index row for one source
// record.
func (r *SQLiteRepository) UpsertSearchDocument(ctx context.Context, doc *models.SearchDocument) error {
	query := `
		INSERT INTO search_index (source_type, source_id, title, body, indexed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_type, source_id) DO UPDATE SET
			title = excluded.title,
			body = excluded.body,
			indexed_at = excluded.indexed_at
	`

	_, err := r.db.ExecContext(ctx, query,
		doc.SourceType,
		doc.SourceID,
		doc.Title,
		doc.Body,
		doc.IndexedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert search document: %w", err)
	}

	return nil
}

func (r *SQLiteRepository) listIDs(ctx context.Context, query string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ids: %w", err)
	}

	return ids, nil
}
