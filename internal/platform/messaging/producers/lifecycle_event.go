package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/fsp-loan-gateway/internal/config"
	"github.com/segmentio/kafka-go"
)

// LifecycleEventProducer publishes committed loan transitions. Writes are
// synchronous so the relay only marks an outbox row processed once the
// broker has acknowledged it.
type LifecycleEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewLifecycleEventProducer ensures the lifecycle topic exists and opens a writer on it
func NewLifecycleEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*LifecycleEventProducer, error) {
	if cfg.LifecycleTopic == "" {
		return nil, fmt.Errorf("kafka lifecycle topic is not configured")
	}

	conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for lifecycle producer: %w", err)
	}
	defer conn.Close()

	if err := ensureTopic(conn, cfg.LifecycleTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure lifecycle topic %s exists: %w", cfg.LifecycleTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.LifecycleTopic,
		Balancer:     &kafka.Hash{}, // one application's events stay on one partition, in order
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.WriteTimeout,
	}

	return newLifecycleEventProducer(logger, writer, cfg.LifecycleTopic), nil
}

func newLifecycleEventProducer(logger *slog.Logger, writer KafkaWriter, topic string) *LifecycleEventProducer {
	return &LifecycleEventProducer{
		logger: logger,
		writer: writer,
		topic:  topic,
	}
}

// Publish writes value as JSON under key. json.RawMessage values are sent verbatim.
func (p *LifecycleEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal lifecycle event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish lifecycle event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish lifecycle event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published lifecycle event", "topic", p.topic, "key", key)
	return nil
}

func (p *LifecycleEventProducer) Close() error {
	p.logger.Info("Closing lifecycle event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
