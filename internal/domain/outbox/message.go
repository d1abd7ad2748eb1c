package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status defines message publishing states
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusProcessed       Status = "PROCESSED"
	StatusFailedToPublish Status = "FAILED_TO_PUBLISH"
)

// Message stores a lifecycle event for reliable publishing
type Message struct {
	ID                int64           `json:"id"`
	EventID           uuid.UUID       `json:"event_id"`
	ApplicationNumber string          `json:"application_number"`
	Payload           json.RawMessage `json:"payload"`
	Status            Status          `json:"status"`
	Attempts          int             `json:"attempts"`
	CreatedAt         time.Time       `json:"created_at"`
	LastAttemptAt     *time.Time      `json:"last_attempt_at,omitempty"`
}

func NewMessage(event *LifecycleEvent) (*Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return &Message{
		EventID:           event.EventID,
		ApplicationNumber: event.ApplicationNumber,
		Payload:           payload,
		Status:            StatusPending,
		Attempts:          0,
		CreatedAt:         time.Now(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = StatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = StatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// Event decodes the lifecycle event carried in the payload
func (m *Message) Event() (*LifecycleEvent, error) {
	var event LifecycleEvent
	if err := json.Unmarshal(m.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
