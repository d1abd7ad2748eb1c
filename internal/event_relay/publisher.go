package event_relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fsp-loan-gateway/internal/domain/outbox"
	"github.com/fsp-loan-gateway/internal/platform/messaging/producers"
)

// ErrUndecodablePayload marks an outbox row whose payload is not a lifecycle
// event. Such rows are dead-lettered and never retried.
var ErrUndecodablePayload = errors.New("undecodable outbox payload")

// EventPublisher forwards one outbox message to the event stream
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *outbox.Message) error
}

// KafkaEventPublisher publishes lifecycle events keyed by application number
type KafkaEventPublisher struct {
	publisher producers.MessagePublisher
	dlq       producers.DeadLetterPublisher
	logger    *slog.Logger
}

// NewKafkaEventPublisher creates a publisher. dlq may be nil.
func NewKafkaEventPublisher(publisher producers.MessagePublisher, dlq producers.DeadLetterPublisher, logger *slog.Logger) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		publisher: publisher,
		dlq:       dlq,
		logger:    logger,
	}
}

func (p *KafkaEventPublisher) PublishEvent(ctx context.Context, message *outbox.Message) error {
	event, err := message.Event()
	if err != nil {
		p.logger.Error("Failed to decode lifecycle event from outbox payload",
			"outbox_id", message.ID, "event_id", message.EventID, "error", err,
		)
		if p.dlq != nil {
			if dlqErr := p.dlq.PublishToDLQ(ctx, message.ApplicationNumber, message.Payload, err.Error()); dlqErr != nil {
				p.logger.Error("Failed to dead-letter outbox message", "outbox_id", message.ID, "error", dlqErr)
			}
		}
		return fmt.Errorf("%w: outbox %d: %v", ErrUndecodablePayload, message.ID, err)
	}

	logger := p.logger.With("event_id", event.EventID.String(), "application_number", event.ApplicationNumber)
	if event.CorrelationID != "" {
		logger = logger.With("correlation_id", event.CorrelationID)
	}

	if err := p.publisher.Publish(ctx, event.ApplicationNumber, message.Payload); err != nil {
		return fmt.Errorf("failed to publish outbox %d: %w", message.ID, err)
	}

	logger.Info("Published lifecycle event",
		"outbox_id", message.ID,
		"from_status", string(event.FromStatus),
		"to_status", string(event.ToStatus),
	)
	return nil
}
