package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/fsp-loan-gateway/internal/domain/message"
	"github.com/fsp-loan-gateway/internal/domain/shared"
	"github.com/fsp-loan-gateway/internal/envelope"
	"github.com/gin-gonic/gin"
)

const internalErrorDescription = "An internal server error occurred"

// Recovery middleware catches panics, logs them with stack traces, and answers
// with an 8005 envelope so callers always receive XML
func Recovery(logger *slog.Logger, builder *envelope.Builder) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())

				requestLogger := logger
				if correlationID := GetCorrelationID(c); correlationID != "" {
					requestLogger = logger.With("correlation_id", correlationID)
				}
				requestLogger.Error("Panic recovered",
					"error", r,
					"stack", stack,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)

				WriteEnvelope(c, builder, http.StatusInternalServerError, shared.ResultCodeProcessingFailure,
					internalErrorDescription, headerFromContext(c), nil)
				c.Abort()
			}
		}()

		c.Next()
	}
}

// headerFromContext rebuilds as much of the request header as the handler
// recorded before failing
func headerFromContext(c *gin.Context) message.Header {
	return message.Header{
		FSPCode:     c.GetString(FSPCodeKey),
		MsgID:       c.GetString(MsgIDKey),
		MessageType: shared.MessageType(c.GetString(MessageTypeKey)),
	}
}
