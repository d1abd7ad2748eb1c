package middleware

import (
	"net/http"
	"strconv"

	"github.com/fsp-loan-gateway/internal/domain/message"
	"github.com/fsp-loan-gateway/internal/envelope"
	"github.com/gin-gonic/gin"
)

const (
	// ResponseCodeHeader mirrors the ResponseCode embedded in the envelope
	ResponseCodeHeader = "X-Response-Code"

	// Context keys filled in by the message handler for logging and audit
	FSPCodeKey     = "fsp_code"
	MsgIDKey       = "msg_id"
	MessageTypeKey = "message_type"
	ResultCodeKey  = "result_code"
)

// WriteEnvelope encodes an acknowledgement for req and writes it with the
// given HTTP status. It returns the bytes written, or nil if encoding failed.
func WriteEnvelope(c *gin.Context, builder *envelope.Builder, status, resultCode int, description string, req message.Header, details map[string]interface{}) []byte {
	code := strconv.Itoa(resultCode)
	c.Set(ResultCodeKey, code)
	c.Header(ResponseCodeHeader, code)

	body, err := builder.Encode(builder.Build(resultCode, description, req, details))
	if err != nil {
		_ = c.Error(err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return nil
	}

	c.Data(status, envelope.ContentTypeXML, body)
	return body
}
