package outbox

import (
	"time"

	"github.com/fsp-loan-gateway/internal/domain/loan"
	"github.com/fsp-loan-gateway/internal/domain/shared"
	"github.com/google/uuid"
)

// LifecycleEvent describes one committed loan status transition
type LifecycleEvent struct {
	EventID           uuid.UUID          `json:"event_id"`
	ApplicationNumber string             `json:"application_number"`
	LoanNumber        string             `json:"loan_number,omitempty"`
	FSPCode           string             `json:"fsp_code"`
	MsgID             string             `json:"msg_id"`
	MessageType       shared.MessageType `json:"message_type"`
	FromStatus        loan.Status        `json:"from_status,omitempty"`
	ToStatus          loan.Status        `json:"to_status"`
	CorrelationID     string             `json:"correlation_id,omitempty"`
	OccurredAt        time.Time          `json:"occurred_at"`
}

// NewLifecycleEvent captures the transition of app from the given prior status
func NewLifecycleEvent(app *loan.Application, from loan.Status, fspCode, msgID string, messageType shared.MessageType) *LifecycleEvent {
	return &LifecycleEvent{
		EventID:           uuid.New(),
		ApplicationNumber: app.ApplicationNumber,
		LoanNumber:        app.LoanNumberValue(),
		FSPCode:           fspCode,
		MsgID:             msgID,
		MessageType:       messageType,
		FromStatus:        from,
		ToStatus:          app.Status,
		OccurredAt:        time.Now().UTC(),
	}
}
