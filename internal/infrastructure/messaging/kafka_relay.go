// Package messaging relays committed domain events to Kafka.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Message headers set on every relayed event
const (
	HeaderEventID       = "event_id"
	HeaderEventType     = "event_type"
	HeaderAggregateType = "aggregate_type"
)

// MessageWriter is the subset of *kafka.Writer the relay needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaRelay is an event handler that forwards every event it receives to
// a Kafka topic, keyed by the event's partition key so that events of one
// user stay ordered.
type KafkaRelay struct {
	writer       MessageWriter
	writeTimeout time.Duration
	logger       *zap.Logger
}

// NewKafkaWriter builds a hash-balanced writer for the configured topic
func NewKafkaWriter(cfg config.KafkaConfig) (*kafka.Writer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
	}, nil
}

// NewKafkaRelay creates a relay on top of a writer
func NewKafkaRelay(writer MessageWriter, writeTimeout time.Duration, logger *zap.Logger) *KafkaRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaRelay{
		writer:       writer,
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

// EventTypes returns nil: the relay receives all events.
func (r *KafkaRelay) EventTypes() []string {
	return nil
}

// Handle publishes the event as a JSON message
func (r *KafkaRelay) Handle(ctx context.Context, event shared.DomainEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka relay: encode %s: %w", event.EventType(), err)
	}

	msg := kafka.Message{
		Key:   []byte(event.PartitionKey()),
		Value: value,
		Time:  event.OccurredAt().UTC(),
		Headers: []kafka.Header{
			{Key: HeaderEventID, Value: []byte(event.EventID().String())},
			{Key: HeaderEventType, Value: []byte(event.EventType())},
			{Key: HeaderAggregateType, Value: []byte(event.AggregateType())},
		},
	}

	if r.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.writeTimeout)
		defer cancel()
	}

	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka relay: write %s: %w", event.EventID(), err)
	}

	r.logger.Debug("event relayed to kafka",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("partition_key", event.PartitionKey()),
	)
	return nil
}

// Close flushes and closes the underlying writer
func (r *KafkaRelay) Close() error {
	return r.writer.Close()
}

var _ shared.EventHandler = (*KafkaRelay)(nil)
