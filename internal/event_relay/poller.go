// Package event_relay publishes committed lifecycle events from the
// transactional outbox to Kafka.
package event_relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsp-loan-gateway/internal/config"
	"github.com/fsp-loan-gateway/internal/domain/outbox"
	"github.com/jackc/pgx/v5"
)

// TxRunner runs fn inside one database transaction
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Poller processes pending outbox messages
type Poller struct {
	db               TxRunner
	outboxRepo       outbox.Repository
	publisher        EventPublisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	db TxRunner,
	outboxRepo outbox.Repository,
	publisher EventPublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		db:               db,
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start begins polling until context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox relay",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox relay stopping")
			return
		case <-ticker.C:
			if err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Error during outbox batch", "error", err)
			}
		}
	}
}

// processPendingMessages claims one batch under row locks so concurrent
// relays never publish the same row twice
func (p *Poller) processPendingMessages(ctx context.Context) error {
	return p.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := p.outboxRepo.WithTx(tx)

		messages, err := repo.GetPending(ctx, p.batchSize)
		if err != nil {
			return fmt.Errorf("failed to get pending outbox messages: %w", err)
		}
		if len(messages) == 0 {
			p.logger.Debug("No pending outbox messages")
			return nil
		}

		p.logger.Info("Fetched pending outbox messages", "count", len(messages))
		for _, msg := range messages {
			p.relay(ctx, repo, msg)
		}
		return nil
	})
}

func (p *Poller) relay(ctx context.Context, repo outbox.Repository, msg *outbox.Message) {
	logger := p.logger.With("outbox_id", msg.ID, "application_number", msg.ApplicationNumber)

	err := p.publisher.PublishEvent(ctx, msg)
	if err == nil {
		if errUpdate := repo.UpdateStatus(ctx, msg.ID, outbox.StatusProcessed); errUpdate != nil {
			logger.Error("Event published but outbox row not marked PROCESSED", "error", errUpdate)
		}
		return
	}

	if errors.Is(err, ErrUndecodablePayload) {
		if errUpdate := repo.UpdateStatus(ctx, msg.ID, outbox.StatusFailedToPublish); errUpdate != nil {
			logger.Error("Failed to mark undecodable outbox row FAILED_TO_PUBLISH", "error", errUpdate)
		}
		return
	}

	logger.Error("Failed to publish outbox message", "current_attempts", msg.Attempts, "error", err)
	if errInc := repo.IncrementAttempts(ctx, msg.ID); errInc != nil {
		logger.Error("Failed to increment attempts for outbox message", "error", errInc)
		return
	}

	if msg.Attempts+1 >= p.maxRetryAttempts {
		logger.Warn("Max retry attempts reached, marking outbox row FAILED_TO_PUBLISH", "attempts_made", msg.Attempts+1)
		if errUpdate := repo.UpdateStatus(ctx, msg.ID, outbox.StatusFailedToPublish); errUpdate != nil {
			logger.Error("Failed to mark outbox row FAILED_TO_PUBLISH", "error", errUpdate)
		}
	}
}
