package cache

import (
	"time"

	"github.com/erp/docflow/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewIdempotencyStore returns a Redis-backed claim store when a client is available
// and falls back to the in-memory store otherwise.
func NewIdempotencyStore(client *redis.Client, keyPrefix string, logger *zap.Logger) shared.IdempotencyStore {
	if client != nil {
		logger.Info("Using Redis sweep slot store", zap.String("key_prefix", keyPrefix))
		return NewRedisIdempotencyStore(client, keyPrefix)
	}

	logger.Warn("Redis disabled, using in-memory sweep slot store. " +
		"Several instances may run the same sweep slot; results stay correct but work is duplicated.")
	return NewInMemoryIdempotencyStore(5 * time.Minute)
}
