package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisNotifier publishes notification envelopes to a per-user Redis
// channel; downstream delivery services subscribe and fan out.
type RedisNotifier struct {
	rdb *redis.Client
}

// NewRedisNotifier creates a notifier on an existing client.
func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb}
}

type envelope struct {
	UserID     string         `json:"user_id"`
	TemplateID string         `json:"template_id"`
	Data       map[string]any `json:"data,omitempty"`
	QueuedAt   time.Time      `json:"queued_at"`
}

// Send publishes the envelope to notifications:<userID>.
func (n *RedisNotifier) Send(ctx context.Context, userID, templateID string, data map[string]any) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if templateID == "" {
		return fmt.Errorf("template id is required")
	}

	raw, err := json.Marshal(envelope{
		UserID:     userID,
		TemplateID: templateID,
		Data:       data,
		QueuedAt:   time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	if err := n.rdb.Publish(ctx, "notifications:"+userID, raw).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	return nil
}
