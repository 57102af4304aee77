package search

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/erp/docflow/internal/domain/document"
	"github.com/erp/docflow/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NewProducerConfig returns the sarama settings used for status change messages
func NewProducerConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	if clientID != "" {
		cfg.ClientID = clientID
	}
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Flush.Frequency = 500 * time.Millisecond
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Errors = true
	return cfg
}

// KafkaNotifier publishes status changes to a Kafka topic keyed by document id,
// so all changes of one document land on the same partition in order.
// Delivery failures are logged by a background goroutine and never reach the caller.
type KafkaNotifier struct {
	producer sarama.AsyncProducer
	topic    string
	logger   *zap.Logger
	done     chan struct{}
	now      func() time.Time
}

// NewKafkaNotifier connects an async producer to the configured brokers
func NewKafkaNotifier(cfg config.KafkaConfig, log *zap.Logger) (*KafkaNotifier, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka.brokers is required for the kafka search backend")
	}
	producer, err := sarama.NewAsyncProducer(cfg.Brokers, NewProducerConfig(cfg.ClientID))
	if err != nil {
		return nil, fmt.Errorf("failed to start Kafka producer: %w", err)
	}
	return newKafkaNotifier(producer, cfg.Topic, log), nil
}

func newKafkaNotifier(producer sarama.AsyncProducer, topic string, log *zap.Logger) *KafkaNotifier {
	n := &KafkaNotifier{
		producer: producer,
		topic:    topic,
		logger:   log.Named("search.kafka"),
		done:     make(chan struct{}),
		now:      time.Now,
	}
	go n.drainErrors()
	return n
}

func (n *KafkaNotifier) drainErrors() {
	defer close(n.done)
	for perr := range n.producer.Errors() {
		fields := []zap.Field{zap.String("topic", n.topic), zap.Error(perr.Err)}
		if perr.Msg != nil && perr.Msg.Key != nil {
			if key, err := perr.Msg.Key.Encode(); err == nil {
				fields = append(fields, zap.String("document_id", string(key)))
			}
		}
		n.logger.Warn("Failed to deliver search sync message", fields...)
	}
}

// Notify queues a status change message
func (n *KafkaNotifier) Notify(ctx context.Context, kind document.Kind, id uuid.UUID, status string) error {
	payload, err := json.Marshal(newStatusChange(kind, id, status, n.now()))
	if err != nil {
		return fmt.Errorf("failed to encode status change: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(id.String()),
		Value: sarama.ByteEncoder(payload),
	}
	select {
	case n.producer.Input() <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes buffered messages and waits for the error drain to finish
func (n *KafkaNotifier) Close() error {
	err := n.producer.Close()
	<-n.done
	return err
}
