package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/fsp-loan-gateway/internal/domain/message"
	"github.com/fsp-loan-gateway/internal/domain/shared"
	"github.com/panjf2000/ants/v2"
)

// PooledProcessor bounds how many messages run against the store at once
type PooledProcessor struct {
	base   Processor
	pool   *ants.Pool
	logger *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

type processResult struct {
	outcome *Outcome
	err     error
}

func NewPooledProcessor(base Processor, config WorkerPoolConfig, logger *slog.Logger) (*PooledProcessor, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &PooledProcessor{
		base:   base,
		pool:   pool,
		logger: logger,
	}, nil
}

// Process submits the message to the pool and waits for its outcome.
// Once accepted the message runs to completion even if ctx is canceled.
func (p *PooledProcessor) Process(ctx context.Context, expected shared.MessageType, msg *message.Message, caller Caller) (*Outcome, error) {
	logger := p.logger
	if caller.CorrelationID != "" {
		logger = p.logger.With("correlation_id", caller.CorrelationID)
	}

	resultChan := make(chan processResult, 1)
	taskCtx := context.WithoutCancel(ctx)

	err := p.pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Message processing panicked",
					"msg_id", msg.Header.MsgID,
					"error", r,
					"stack", string(debug.Stack()),
				)
				resultChan <- processResult{err: shared.StoreFailure("processing message", fmt.Errorf("panic: %v", r))}
			}
		}()
		outcome, err := p.base.Process(taskCtx, expected, msg, caller)
		resultChan <- processResult{outcome: outcome, err: err}
	})
	if err != nil {
		logger.Error("Failed to submit message to worker pool",
			"msg_id", msg.Header.MsgID,
			"error", err,
		)
		return nil, shared.StoreFailure("scheduling message", err)
	}

	result := <-resultChan
	return result.outcome, result.err
}

// Shutdown releases the pool
func (p *PooledProcessor) Shutdown() {
	p.logger.Info("Shutting down worker pool", "running_workers", p.pool.Running())
	p.pool.Release()
}

func (p *PooledProcessor) Running() int {
	return p.pool.Running()
}

func (p *PooledProcessor) Capacity() int {
	return p.pool.Cap()
}
