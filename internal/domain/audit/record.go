// Package audit models the request/response trail kept for every inbound call.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is one audited gateway call. RequestBody is stored sanitised.
type Record struct {
	ID            uuid.UUID `json:"id" bson:"_id"`
	CorrelationID string    `json:"correlation_id" bson:"correlation_id"`
	Method        string    `json:"method" bson:"method"`
	URL           string    `json:"url" bson:"url"`
	ClientIP      string    `json:"client_ip" bson:"client_ip"`
	UserAgent     string    `json:"user_agent,omitempty" bson:"user_agent,omitempty"`
	ContentType   string    `json:"content_type,omitempty" bson:"content_type,omitempty"`
	FSPCode       string    `json:"fsp_code,omitempty" bson:"fsp_code,omitempty"`
	MsgID         string    `json:"msg_id,omitempty" bson:"msg_id,omitempty"`
	MessageType   string    `json:"message_type,omitempty" bson:"message_type,omitempty"`
	HTTPStatus    int       `json:"http_status" bson:"http_status"`
	ResultCode    string    `json:"result_code,omitempty" bson:"result_code,omitempty"`
	RequestBody   string    `json:"request_body,omitempty" bson:"request_body,omitempty"`
	ResponseBody  string    `json:"response_body,omitempty" bson:"response_body,omitempty"`
	LatencyMillis int64     `json:"latency_ms" bson:"latency_ms"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
}

// NewRecord creates a record stamped with a fresh ID and the current time
func NewRecord(correlationID, method, url, clientIP string) *Record {
	return &Record{
		ID:            uuid.New(),
		CorrelationID: correlationID,
		Method:        method,
		URL:           url,
		ClientIP:      clientIP,
		CreatedAt:     time.Now().UTC(),
	}
}

// Repository persists audit records
type Repository interface {
	Create(ctx context.Context, record *Record) error
	GetByMsgID(ctx context.Context, fspCode, msgID string) ([]*Record, error)
	GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*Record, error)
}
