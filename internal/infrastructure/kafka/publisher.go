package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	"github.com/segmentio/kafka-go"
)

const writeTimeout = 10 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaGateway writes domain events to one topic per event type, keyed by entity id so
// each entity's events stay ordered within a partition.
type KafkaGateway struct {
	writer messageWriter
	topics map[domain.EventType]string
	logger *slog.Logger
}

func NewKafkaGateway(brokers []string, topics Topics, logger *slog.Logger) *KafkaGateway {
	return newGateway(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}, topics, logger)
}

func newGateway(writer messageWriter, topics Topics, logger *slog.Logger) *KafkaGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaGateway{writer: writer, topics: topics.byType(), logger: logger}
}

func (k *KafkaGateway) Emit(ctx context.Context, event domain.Event) error {
	topic := k.topics[event.Type]
	if topic == "" {
		return fmt.Errorf("no topic configured for event type %s", event.Type)
	}

	value, err := json.Marshal(EventEnvelope{
		Type:       event.Type,
		EntityID:   event.EntityID,
		OccurredAt: event.OccurredAt,
		Payload:    event.Payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := k.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(event.EntityID),
		Value: value,
		Time:  event.OccurredAt,
	}); err != nil {
		return fmt.Errorf("failed to write to %s: %w", topic, err)
	}
	return nil
}

func (k *KafkaGateway) Close() error {
	return k.writer.Close()
}
