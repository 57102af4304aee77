// Package search pushes document status changes to the search indexer.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/docflow/internal/domain/document"
	"github.com/erp/docflow/internal/infrastructure/config"
	"github.com/erp/docflow/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Notifier is a SearchSync that holds resources
type Notifier interface {
	document.SearchSync
	Close() error
}

// StatusChange is the payload consumed by the indexer
type StatusChange struct {
	Kind       string    `json:"kind"`
	DocumentID string    `json:"document_id"`
	Status     string    `json:"status"`
	At         time.Time `json:"at"`
}

func newStatusChange(kind document.Kind, id uuid.UUID, status string, at time.Time) StatusChange {
	return StatusChange{
		Kind:       string(kind),
		DocumentID: id.String(),
		Status:     status,
		At:         at.UTC(),
	}
}

// New builds the notifier selected by search.backend
func New(cfg config.SearchConfig, kafkaCfg config.KafkaConfig, client *redis.Client, log *zap.Logger) (Notifier, error) {
	switch cfg.Backend {
	case "", "log":
		return NewLogNotifier(log), nil
	case "kafka":
		n, err := NewKafkaNotifier(kafkaCfg, log)
		if err != nil {
			return nil, err
		}
		return n, nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("search backend redis requires a redis client")
		}
		return NewRedisStreamNotifier(client, cfg.StreamKey, cfg.MaxLen, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown search backend %q", cfg.Backend)
	}
}

// LogNotifier only logs status changes. Used when no indexer is deployed.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: log.Named("search")}
}

// Notify logs the change
func (n *LogNotifier) Notify(ctx context.Context, kind document.Kind, id uuid.UUID, status string) error {
	logger.For(ctx, n.logger).Debug("Search sync notification",
		append(logger.Document(string(kind), id), logger.Status(status))...,
	)
	return nil
}

// Close implements Notifier
func (n *LogNotifier) Close() error { return nil }
