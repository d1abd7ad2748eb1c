package lifecycle

import (
	"context"

	"github.com/fsp-loan-gateway/internal/domain/loan"
	"github.com/fsp-loan-gateway/internal/domain/message"
	"github.com/fsp-loan-gateway/internal/domain/shared"
)

// Processor applies one inbound message and reports the agreed outcome
type Processor interface {
	Process(ctx context.Context, expected shared.MessageType, msg *message.Message, caller Caller) (*Outcome, error)
}

// TransitionRecorder observes committed status transitions
type TransitionRecorder interface {
	RecordTransition(from, to loan.Status)
}

// Caller carries request-scoped identity supplied by the transport
type Caller struct {
	CorrelationID string
	ClientIP      string
}

// Outcome is the business result to acknowledge
type Outcome struct {
	ResultCode  int
	Description string
	Details     map[string]interface{}
}

func success(description string, details map[string]interface{}) *Outcome {
	return &Outcome{ResultCode: shared.ResultCodeSuccess, Description: description, Details: details}
}

type noopRecorder struct{}

func (noopRecorder) RecordTransition(loan.Status, loan.Status) {}
