package search

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/docflow/internal/domain/document"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultStreamKey     = "docflow:search:status"
	defaultStreamTimeout = 2 * time.Second
)

type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStreamNotifier appends status changes to a capped Redis stream
type RedisStreamNotifier struct {
	client  streamAdder
	stream  string
	maxLen  int64
	timeout time.Duration
	now     func() time.Time
}

// NewRedisStreamNotifier creates a notifier writing to stream.
// maxLen caps the stream approximately; zero leaves it unbounded.
func NewRedisStreamNotifier(client streamAdder, stream string, maxLen int64, timeout time.Duration) *RedisStreamNotifier {
	if stream == "" {
		stream = defaultStreamKey
	}
	if timeout <= 0 {
		timeout = defaultStreamTimeout
	}
	return &RedisStreamNotifier{
		client:  client,
		stream:  stream,
		maxLen:  maxLen,
		timeout: timeout,
		now:     time.Now,
	}
}

// Notify appends one entry to the stream
func (n *RedisStreamNotifier) Notify(ctx context.Context, kind document.Kind, id uuid.UUID, status string) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	change := newStatusChange(kind, id, status, n.now())
	err := n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: n.stream,
		MaxLen: n.maxLen,
		Approx: n.maxLen > 0,
		Values: map[string]any{
			"kind":        change.Kind,
			"document_id": change.DocumentID,
			"status":      change.Status,
			"at":          change.At.Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append to stream %s: %w", n.stream, err)
	}
	return nil
}

// Close is a no-op; the Redis client is shared
func (n *RedisStreamNotifier) Close() error { return nil }
