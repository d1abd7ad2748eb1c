package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// MessagePublisher publishes keyed messages to the primary topic
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// DeadLetterPublisher parks messages that can never be published as-is
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter is the subset of *kafka.Writer the producers use
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var (
	_ MessagePublisher    = (*LifecycleEventProducer)(nil)
	_ DeadLetterPublisher = (*DLQProducer)(nil)
	_ KafkaWriter         = (*kafka.Writer)(nil)
)
