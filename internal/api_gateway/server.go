package api_gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/fsp-loan-gateway/internal/api_gateway/handler"
	"github.com/fsp-loan-gateway/internal/config"
	"github.com/fsp-loan-gateway/internal/domain/audit"
	"github.com/fsp-loan-gateway/internal/envelope"
	"github.com/fsp-loan-gateway/internal/lifecycle"
	"github.com/gin-gonic/gin"
)

// Dependencies are the collaborators the HTTP layer drives
type Dependencies struct {
	Decoder        handler.MessageDecoder
	Builder        *envelope.Builder
	Processor      lifecycle.Processor
	Replay         handler.ReplayGuard    // optional
	Audit          audit.Repository       // optional
	Metrics        handler.MessageMetrics // optional
	MetricsHandler http.Handler           // optional, served on /metrics
}

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger     *slog.Logger // For structured logging
	httpServer *http.Server // Underlying HTTP server
	httpRouter *gin.Engine  // Gin router instance
}

// NewServer creates and configures a new HTTP server with the given dependencies
func NewServer(log *slog.Logger, cfg *config.Config, deps Dependencies) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	messageHandler := handler.NewMessageHandler(log, deps.Decoder, deps.Processor, deps.Builder, handler.MessageHandlerOptions{
		Replay:       deps.Replay,
		Metrics:      deps.Metrics,
		MaxBodyBytes: cfg.Gateway.MaxBodyBytes,
	})

	setupRouter(log, httpRouter, deps.Builder, messageHandler, routerConfig{
		apiKeys:      cfg.Gateway.APIKeys,
		maxBodyBytes: cfg.Gateway.MaxBodyBytes,
		auditRepo:    deps.Audit,
		metrics:      deps.MetricsHandler,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.httpRouter
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop drains in-flight requests until ctx expires
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	return nil
}
