package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fsp-loan-gateway/internal/api_gateway/handler"
	"github.com/fsp-loan-gateway/internal/api_gateway/middleware"
	"github.com/fsp-loan-gateway/internal/domain/audit"
	"github.com/fsp-loan-gateway/internal/domain/shared"
	"github.com/fsp-loan-gateway/internal/envelope"
	"github.com/gin-gonic/gin"
)

// Routes maps each lifecycle endpoint to the message type it accepts
var Routes = []struct {
	Path        string
	MessageType shared.MessageType
}{
	{"/loan-offer-request", shared.MessageTypeLoanOfferRequest},
	{"/loan-charges-request", shared.MessageTypeLoanChargesRequest},
	{"/loan-initial-approval", shared.MessageTypeLoanInitialApproval},
	{"/loan-final-approval", shared.MessageTypeLoanFinalApproval},
	{"/loan-cancellation", shared.MessageTypeLoanCancellation},
	{"/loan-disbursement", shared.MessageTypeLoanDisbursement},
	{"/loan-disbursement-failure", shared.MessageTypeLoanDisbursementFailure},
	{"/full-loan-repayment", shared.MessageTypeFullLoanRepayment},
	{"/partial-loan-repayment", shared.MessageTypePartialLoanRepayment},
	{"/loan-liquidation", shared.MessageTypeLoanLiquidation},
	{"/loan-status", shared.MessageTypeLoanStatusRequest},
	{"/product-catalog", shared.MessageTypeProductDetail},
	{"/product-decommission", shared.MessageTypeProductDecommission},
}

type routerConfig struct {
	apiKeys      []string
	maxBodyBytes int64
	auditRepo    audit.Repository // nil disables the audit trail
	metrics      http.Handler
}

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	builder *envelope.Builder,
	messageHandler *handler.MessageHandler,
	cfg routerConfig,
) {
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recovery(logger, builder))

	// Health check and metrics stay outside the API key gate
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
	if cfg.metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.metrics))
	}

	messages := r.Group("/")
	if cfg.auditRepo != nil {
		messages.Use(middleware.Audit(logger, cfg.auditRepo, cfg.maxBodyBytes))
	}
	messages.Use(middleware.APIKey(logger, builder, cfg.apiKeys))
	{
		for _, route := range Routes {
			messages.POST(route.Path, messageHandler.Handle(route.MessageType))
		}
	}
}
