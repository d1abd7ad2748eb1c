package handler

import (
	"net/http"

	"github.com/fsp-loan-gateway/internal/api_gateway/middleware"
	"github.com/fsp-loan-gateway/internal/domain/message"
	"github.com/fsp-loan-gateway/internal/domain/shared"
	"github.com/fsp-loan-gateway/internal/envelope"
	"github.com/fsp-loan-gateway/internal/lifecycle"
	"github.com/gin-gonic/gin"
)

// response is what was sent for one message, kept for metrics and replay
type response struct {
	status     int
	resultCode int
	body       []byte
}

// respondOutcome acknowledges a processed message with HTTP 200
func respondOutcome(c *gin.Context, builder *envelope.Builder, req message.Header, outcome *lifecycle.Outcome) response {
	body := middleware.WriteEnvelope(c, builder, http.StatusOK, outcome.ResultCode, outcome.Description, req, outcome.Details)
	return response{status: c.Writer.Status(), resultCode: outcome.ResultCode, body: body}
}

// respondError converts err into an 8005 envelope using the status the error asks for
func respondError(c *gin.Context, builder *envelope.Builder, req message.Header, err error) response {
	status := shared.HTTPStatus(err)
	body := middleware.WriteEnvelope(c, builder, status, shared.ResultCodeProcessingFailure, err.Error(), req, nil)
	return response{status: c.Writer.Status(), resultCode: shared.ResultCodeProcessingFailure, body: body}
}

// respondReplay writes a stored response unchanged
func respondReplay(c *gin.Context, status int, resultCode string, body []byte) {
	c.Set(middleware.ResultCodeKey, resultCode)
	c.Header(middleware.ResponseCodeHeader, resultCode)
	c.Data(status, envelope.ContentTypeXML, body)
}
