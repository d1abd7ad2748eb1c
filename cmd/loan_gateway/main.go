package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsp-loan-gateway/internal/api_gateway"
	"github.com/fsp-loan-gateway/internal/config"
	"github.com/fsp-loan-gateway/internal/data/cache"
	"github.com/fsp-loan-gateway/internal/data/mongo"
	"github.com/fsp-loan-gateway/internal/data/postgres"
	"github.com/fsp-loan-gateway/internal/envelope"
	"github.com/fsp-loan-gateway/internal/lifecycle"
	"github.com/fsp-loan-gateway/internal/logger"
	"github.com/fsp-loan-gateway/internal/metrics"
	"github.com/fsp-loan-gateway/internal/platform/persistence"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("loan_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Loan Gateway",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB, cfg.Application.Name)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database(), cfg.MongoDB.AuditCollection)
	if err := auditRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to create audit indexes", "error", err)
		os.Exit(1)
	}

	var (
		redisClient *redis.Client
		replayGuard *cache.ReplayStore
	)
	if cfg.Redis.Enabled() {
		redisClient, err = persistence.NewRedisClient(appCtx, log, &cfg.Redis)
		if err != nil {
			log.Error("Failed to initialize Redis", "error", err)
			os.Exit(1)
		}
		replayGuard = cache.NewReplayStore(log, redisClient, cfg.Redis.ReplayTTL, cfg.Redis.InFlightTTL)
	} else {
		log.Warn("Redis is not configured, duplicate message detection disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	gatewayMetrics := metrics.New(registry)

	unitOfWork := postgres.NewUnitOfWork(log, postgresDB)
	engine := lifecycle.NewEngine(log, unitOfWork, cfg.Gateway.EmployerIdentity, gatewayMetrics)
	processor, err := lifecycle.NewPooledProcessor(engine, lifecycle.WorkerPoolConfig{Size: cfg.WorkerPool.Size}, log)
	if err != nil {
		log.Error("Failed to initialize worker pool", "error", err)
		os.Exit(1)
	}

	var verifier envelope.Verifier
	if cfg.Gateway.SignatureVerification {
		verifier = envelope.NewRSAVerifier(log, envelope.FSPKeys{FSPs: postgres.NewFSPRepository(log, postgresDB)})
	} else {
		log.Warn("Signature verification is disabled")
	}

	var signer *envelope.Signer
	if cfg.Gateway.SigningKeyPath != "" {
		if signer, err = envelope.LoadSigner(cfg.Gateway.SigningKeyPath); err != nil {
			log.Error("Failed to load response signing key", "error", err)
			os.Exit(1)
		}
	}

	deps := api_gateway.Dependencies{
		Decoder:        envelope.NewDecoder(log, verifier),
		Builder:        envelope.NewBuilder(cfg.Gateway.SystemIdentity, signer),
		Processor:      processor,
		Audit:          auditRepo,
		Metrics:        gatewayMetrics,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
	if replayGuard != nil {
		deps.Replay = replayGuard
	}

	server := api_gateway.NewServer(log, cfg, deps)

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// stop accepting requests before releasing the pool and stores they use
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	processor.Shutdown()
	postgresDB.Close()

	if redisClient != nil {
		if err = redisClient.Close(); err != nil {
			log.Error("Error closing Redis connection", "error", err)
		}
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
