package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fsp-loan-gateway/internal/api_gateway/middleware"
	"github.com/fsp-loan-gateway/internal/data/cache"
	"github.com/fsp-loan-gateway/internal/domain/message"
	"github.com/fsp-loan-gateway/internal/domain/shared"
	"github.com/fsp-loan-gateway/internal/envelope"
	"github.com/fsp-loan-gateway/internal/lifecycle"
	"github.com/gin-gonic/gin"
)

// MessageDecoder turns a raw request body into a verified message
type MessageDecoder interface {
	Decode(ctx context.Context, body []byte, contentType string) (*message.Message, error)
}

// ReplayGuard deduplicates messages by (FSPCode, MsgId)
type ReplayGuard interface {
	Claim(ctx context.Context, fspCode, msgID string, body []byte) (*cache.Entry, error)
	Complete(ctx context.Context, fspCode, msgID string, body []byte, status int, resultCode string, response []byte) error
	Release(ctx context.Context, fspCode, msgID string) error
}

// MessageMetrics observes handled messages
type MessageMetrics interface {
	ObserveMessage(messageType string, status, resultCode int, elapsed time.Duration)
	RecordReplay()
	RecordDuplicateRejected()
}

// MessageHandler serves every lifecycle endpoint. Each route binds the
// message type it accepts through Handle.
type MessageHandler struct {
	logger       *slog.Logger
	decoder      MessageDecoder
	processor    lifecycle.Processor
	builder      *envelope.Builder
	replay       ReplayGuard
	metrics      MessageMetrics
	maxBodyBytes int64
}

type MessageHandlerOptions struct {
	Replay       ReplayGuard    // nil disables duplicate detection
	Metrics      MessageMetrics // nil disables metrics
	MaxBodyBytes int64
}

func NewMessageHandler(logger *slog.Logger, decoder MessageDecoder, processor lifecycle.Processor, builder *envelope.Builder, opts MessageHandlerOptions) *MessageHandler {
	metrics := opts.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &MessageHandler{
		logger:       logger,
		decoder:      decoder,
		processor:    processor,
		builder:      builder,
		replay:       opts.Replay,
		metrics:      metrics,
		maxBodyBytes: opts.MaxBodyBytes,
	}
}

// Handle returns the gin handler for the endpoint accepting expected
func (h *MessageHandler) Handle(expected shared.MessageType) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx := c.Request.Context()
		correlationID := middleware.GetCorrelationID(c)
		logger := h.logger.With("correlation_id", correlationID, "endpoint_type", string(expected))

		var resp response
		defer func() {
			h.metrics.ObserveMessage(string(expected), resp.status, resp.resultCode, time.Since(start))
		}()

		body, err := h.readBody(c)
		if err != nil {
			resp = respondError(c, h.builder, message.Header{}, err)
			return
		}

		msg, err := h.decoder.Decode(ctx, body, c.GetHeader("Content-Type"))
		if err != nil {
			logger.Warn("Rejected undecodable envelope", "error", err)
			resp = respondError(c, h.builder, message.Header{}, err)
			return
		}

		header := msg.Header
		c.Set(middleware.FSPCodeKey, header.FSPCode)
		c.Set(middleware.MsgIDKey, header.MsgID)
		c.Set(middleware.MessageTypeKey, string(header.MessageType))
		logger = logger.With("fsp_code", header.FSPCode, "msg_id", header.MsgID)

		if header.MessageType != expected {
			err := shared.UnexpectedMessageType(header.MessageType, expected)
			logger.Warn("Rejected message on wrong endpoint", "error", err)
			resp = respondError(c, h.builder, header, err)
			return
		}

		claimed := false
		if h.replay != nil {
			entry, err := h.replay.Claim(ctx, header.FSPCode, header.MsgID, body)
			switch {
			case shared.IsKind(err, shared.KindDuplicateMessage):
				h.metrics.RecordDuplicateRejected()
				logger.Warn("Rejected duplicate message", "error", err)
				resp = respondError(c, h.builder, header, err)
				return
			case err != nil:
				logger.Error("Replay store unavailable, processing without duplicate check", "error", err)
			case entry != nil:
				h.metrics.RecordReplay()
				logger.Info("Replaying stored response", "status", entry.Status, "result_code", entry.ResultCode)
				respondReplay(c, entry.Status, entry.ResultCode, entry.Body)
				code, _ := strconv.Atoi(entry.ResultCode)
				resp = response{status: entry.Status, resultCode: code, body: entry.Body}
				return
			default:
				claimed = true
			}
		}

		outcome, err := h.processor.Process(ctx, expected, msg, lifecycle.Caller{
			CorrelationID: correlationID,
			ClientIP:      c.ClientIP(),
		})
		if err != nil {
			resp = respondError(c, h.builder, header, err)
		} else {
			resp = respondOutcome(c, h.builder, header, outcome)
		}

		if claimed {
			h.settle(ctx, logger, header, body, resp)
		}
	}
}

// readBody reads at most maxBodyBytes, failing with MalformedPayload beyond that
func (h *MessageHandler) readBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, shared.MalformedPayload(errors.New("empty request body"))
	}
	reader := io.Reader(c.Request.Body)
	if h.maxBodyBytes > 0 {
		reader = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, shared.MalformedPayload(err)
	}
	if len(body) == 0 {
		return nil, shared.MalformedPayload(errors.New("empty request body"))
	}
	return body, nil
}

// settle stores the response for replay, or frees the key after a server-side
// failure so the FSP can retry
func (h *MessageHandler) settle(ctx context.Context, logger *slog.Logger, header message.Header, body []byte, resp response) {
	ctx = context.WithoutCancel(ctx)
	if resp.status >= http.StatusInternalServerError || resp.body == nil {
		if err := h.replay.Release(ctx, header.FSPCode, header.MsgID); err != nil {
			logger.Error("Failed to release replay key", "error", err)
		}
		return
	}
	if err := h.replay.Complete(ctx, header.FSPCode, header.MsgID, body, resp.status, strconv.Itoa(resp.resultCode), resp.body); err != nil {
		logger.Error("Failed to store response for replay", "error", err)
	}
}

type noopMetrics struct{}

func (noopMetrics) ObserveMessage(string, int, int, time.Duration) {}
func (noopMetrics) RecordReplay()                                  {}
func (noopMetrics) RecordDuplicateRejected()                       {}
