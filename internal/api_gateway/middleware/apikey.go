package middleware

import (
	"crypto/subtle"
	"log/slog"

	"github.com/fsp-loan-gateway/internal/domain/message"
	"github.com/fsp-loan-gateway/internal/domain/shared"
	"github.com/fsp-loan-gateway/internal/envelope"
	"github.com/gin-gonic/gin"
)

const APIKeyHeader = "X-API-KEY"

// APIKey rejects requests whose X-API-KEY matches none of keys.
// An empty key list disables the check.
func APIKey(logger *slog.Logger, builder *envelope.Builder, keys []string) gin.HandlerFunc {
	accepted := make([][]byte, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			accepted = append(accepted, []byte(k))
		}
	}

	return func(c *gin.Context) {
		if len(accepted) == 0 {
			c.Next()
			return
		}

		provided := []byte(c.GetHeader(APIKeyHeader))
		if len(provided) > 0 {
			for _, k := range accepted {
				if subtle.ConstantTimeCompare(provided, k) == 1 {
					c.Next()
					return
				}
			}
		}

		logger.Warn("Rejected request with missing or invalid API key",
			"correlation_id", GetCorrelationID(c),
			"path", c.Request.URL.Path,
			"client_ip", c.ClientIP(),
		)
		err := shared.Unauthorized("missing or invalid API key")
		WriteEnvelope(c, builder, shared.HTTPStatus(err), shared.ResultCodeProcessingFailure, err.Error(), message.Header{}, nil)
		c.Abort()
	}
}
