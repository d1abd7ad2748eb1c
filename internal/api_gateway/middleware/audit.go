package middleware

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"regexp"
	"time"

	"github.com/fsp-loan-gateway/internal/domain/audit"
	"github.com/gin-gonic/gin"
)

const (
	auditWriteTimeout = 3 * time.Second
	maskedValue       = "***"
)

var (
	xmlSignaturePattern  = regexp.MustCompile(`(?s)(<Signature>).*?(</Signature>)`)
	jsonSignaturePattern = regexp.MustCompile(`("Signature"\s*:\s*")(?:[^"\\]|\\.)*(")`)
)

// SanitizeBody masks every signature value in an XML or JSON envelope
func SanitizeBody(body []byte) string {
	masked := xmlSignaturePattern.ReplaceAll(body, []byte("${1}"+maskedValue+"${2}"))
	masked = jsonSignaturePattern.ReplaceAll(masked, []byte("${1}"+maskedValue+"${2}"))
	return string(masked)
}

type bodyCaptureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyCaptureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Audit stores one record per request in repo. maxBodyBytes bounds how much
// of the request body is buffered. Storage failures are logged only.
func Audit(logger *slog.Logger, repo audit.Repository, maxBodyBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var requestBody []byte
		if c.Request.Body != nil {
			limited, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
			if err == nil {
				requestBody = limited
			}
			c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(limited), c.Request.Body))
		}

		capture := &bodyCaptureWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = capture

		c.Next()

		record := audit.NewRecord(GetCorrelationID(c), c.Request.Method, c.Request.URL.String(), c.ClientIP())
		record.UserAgent = c.Request.UserAgent()
		record.ContentType = c.ContentType()
		record.FSPCode = c.GetString(FSPCodeKey)
		record.MsgID = c.GetString(MsgIDKey)
		record.MessageType = c.GetString(MessageTypeKey)
		record.ResultCode = c.GetString(ResultCodeKey)
		record.HTTPStatus = c.Writer.Status()
		record.RequestBody = SanitizeBody(requestBody)
		record.ResponseBody = SanitizeBody(capture.body.Bytes())
		record.LatencyMillis = time.Since(start).Milliseconds()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), auditWriteTimeout)
		defer cancel()
		if err := repo.Create(ctx, record); err != nil {
			logger.Error("Failed to write audit record",
				"correlation_id", record.CorrelationID,
				"msg_id", record.MsgID,
				"error", err,
			)
		}
	}
}
