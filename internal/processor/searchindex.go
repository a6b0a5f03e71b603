package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goleaf/petssocnnetworkmobile-sub009/internal/models"
	"github.com/goleaf/petssocnnetworkmobile-sub009/internal/repository"
)

// RebuildSearchIndexProcessor re-derives the full-text index for the
// requested collections. A per-record failure increments the errors counter
// and the batch continues; the job always completes, with result.success
// true only when every record indexed cleanly.
type RebuildSearchIndexProcessor struct {
	queue   Queue
	content repository.ContentRepository
	index   repository.SearchIndexRepository
	logger  *zap.Logger
}

// NewRebuildSearchIndexProcessor creates the processor.
func NewRebuildSearchIndexProcessor(
	queue Queue,
	content repository.ContentRepository,
	index repository.SearchIndexRepository,
	logger *zap.Logger,
) *RebuildSearchIndexProcessor {
	return &RebuildSearchIndexProcessor{
		queue:   queue,
		content: content,
		index:   index,
		logger:  logger,
	}
}

// Process rebuilds the index for the payload's scope and completes the job
// with a RebuildSearchIndexResult.
func (p *RebuildSearchIndexProcessor) Process(ctx context.Context, job *models.QueueJob) error {
	var payload models.RebuildSearchIndexPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("invalid rebuildSearchIndex payload: %w", err)
	}

	doArticles := payload.Type == models.IndexScopeArticles || payload.Type == models.IndexScopeAll
	doPosts := payload.Type == models.IndexScopeBlogPosts || payload.Type == models.IndexScopeAll
	if !doArticles && !doPosts {
		return fmt.Errorf("unknown index scope %q", payload.Type)
	}

	if err := reportProgress(ctx, p.queue, job.ID, 5, "starting index rebuild"); err != nil {
		return err
	}

	result := models.RebuildSearchIndexResult{}

	if doArticles {
		if err := p.indexArticles(ctx, job.ID, &result); err != nil {
			return err
		}
	}
	if doPosts {
		if err := p.indexBlogPosts(ctx, job.ID, &result); err != nil {
			return err
		}
	}

	result.Success = result.Errors == 0
	p.logger.Info("search index rebuild finished",
		zap.String("job_id", job.ID),
		zap.String("scope", payload.Type),
		zap.Int("indexed", result.Indexed),
		zap.Int("errors", result.Errors))

	return completeJob(ctx, p.queue, job.ID, result)
}

// Article indexing reports progress across the 20-60 band, blog posts
// across 60-95.
func (p *RebuildSearchIndexProcessor) indexArticles(ctx context.Context, jobID string, result *models.RebuildSearchIndexResult) error {
	ids, err := p.content.ListArticleIDs(ctx)
	if err != nil {
		// Listing is the batch's foundation; its failure is processor-fatal.
		return fmt.Errorf("failed to list articles: %w", err)
	}

	for i, id := range ids {
		article, err := p.content.GetArticle(ctx, id)
		if err != nil {
			result.Errors++
			p.logger.Warn("skipping article", zap.String("article_id", id), zap.Error(err))
			continue
		}

		doc := &models.SearchDocument{
			SourceType: models.IndexScopeArticles,
			SourceID:   article.ID,
			Title:      article.Title,
			Body:       article.Body,
			IndexedAt:  time.Now(),
		}
		if err := p.index.UpsertSearchDocument(ctx, doc); err != nil {
			result.Errors++
			p.logger.Warn("failed to index article", zap.String("article_id", id), zap.Error(err))
			continue
		}
		result.Indexed++

		progress := 20 + 40*(i+1)/len(ids)
		msg := fmt.Sprintf("indexing articles (%d/%d)", i+1, len(ids))
		if err := reportProgress(ctx, p.queue, jobID, progress, msg); err != nil {
			return err
		}
	}

	return nil
}

func (p *RebuildSearchIndexProcessor) indexBlogPosts(ctx context.Context, jobID string, result *models.RebuildSearchIndexResult) error {
	ids, err := p.content.ListBlogPostIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list blog posts: %w", err)
	}

	for i, id := range ids {
		post, err := p.content.GetBlogPost(ctx, id)
		if err != nil {
			result.Errors++
			p.logger.Warn("skipping blog post", zap.String("post_id", id), zap.Error(err))
			continue
		}

		doc := &models.SearchDocument{
			SourceType: models.IndexScopeBlogPosts,
			SourceID:   post.ID,
			Title:      post.Title,
			Body:       post.Body,
			IndexedAt:  time.Now(),
		}
		if err := p.index.UpsertSearchDocument(ctx, doc); err != nil {
			result.Errors++
			p.logger.Warn("failed to index blog post", zap.String("post_id", id), zap.Error(err))
			continue
		}
		result.Indexed++

		progress := 60 + 35*(i+1)/len(ids)
		msg := fmt.Sprintf("indexing blog posts (%d/%d)", i+1, len(ids))
		if err := reportProgress(ctx, p.queue, jobID, progress, msg); err != nil {
			return err
		}
	}

	return nil
}
