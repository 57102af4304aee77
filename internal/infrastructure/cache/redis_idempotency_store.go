package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/docflow/internal/domain/shared"
	"github.com/erp/docflow/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "docflow:slot:"

// redisKV is the part of the Redis API the claim store needs
type redisKV interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisIdempotencyStore claims keys with SETNX so that several instances
// sharing one Redis agree on who runs a given sweep slot.
// The client is shared with other components and is not closed by the store.
type RedisIdempotencyStore struct {
	client    redisKV
	keyPrefix string
}

// NewRedisIdempotencyStore creates a store on an existing Redis client
func NewRedisIdempotencyStore(client redisKV, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// MarkProcessed claims key for ttl.
// Returns true if this caller won the claim.
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	claimed, err := s.client.SetNX(ctx, s.keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim %s: %w", key, err)
	}
	return claimed, nil
}

// IsProcessed reports whether key is currently claimed
func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	exists, err := s.client.Exists(ctx, s.keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check claim %s: %w", key, err)
	}
	return exists > 0, nil
}

// Release drops the claim on key
func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release claim %s: %w", key, err)
	}
	return nil
}

// Close is a no-op; the shared client is closed by its owner
func (s *RedisIdempotencyStore) Close() error {
	return nil
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
