// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"escrow-service/config"
	"escrow-service/internal/auth"
	"escrow-service/internal/domain"
	"escrow-service/internal/escrow"
	"escrow-service/internal/events"
	"escrow-service/internal/handler"
	"escrow-service/internal/registry"
	"escrow-service/internal/repository"
	"escrow-service/internal/router"
	"escrow-service/internal/transfer"
	"escrow-service/internal/worker"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("starting escrow service")

	// Load configuration
	cfg, err := config.Load(logger)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	// Connect to database
	dbPool, err := pgxpool.New(context.Background(), cfg.DatabaseURL())
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	logger.Info("connected to database",
		zap.String("database", cfg.Database.DBName))

	// Connect to redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	// Event fanout: redis channel for external observers, websocket
	// notifier for live subscribers.
	notifier := events.NewNotifier()
	bus := events.NewBus(logger,
		events.NewRedisPublisher(rdb, cfg.Redis.Channel),
		notifier,
	)

	// Payout rail
	treasury := transfer.NewTreasuryClient(cfg.Treasury.BaseURL, cfg.Treasury.APIKey, logger)

	// Escrow instance and registry
	instance, err := escrow.New(escrow.Config{
		ServiceID:    cfg.Service.ServiceID,
		FulfillerRef: cfg.Service.FulfillerRef,
		Fee:          cfg.Service.Fee,
		Roles: domain.Roles{
			Router:      cfg.Service.Router,
			Manager:     cfg.Service.Manager,
			Beneficiary: cfg.Service.Beneficiary,
		},
	}, treasury, bus, logger)
	if err != nil {
		logger.Fatal("failed to create escrow instance", zap.Error(err))
	}

	reg := registry.New()
	if err := reg.Register(instance); err != nil {
		logger.Fatal("failed to register escrow instance", zap.Error(err))
	}
	manager := registry.NewManager(reg, logger)

	// Archive worker
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()

	archive := repository.NewRecordArchive(dbPool)
	archiver := worker.NewArchiver(bus.Feed(), archive, logger)
	go archiver.Run(workerCtx)

	// Initialize handlers
	verifier := auth.NewVerifier(cfg.JWTSecret)
	escrowHandler := handler.NewEscrowHandler(manager, logger)
	eventsHandler := handler.NewEventsHandler(notifier, logger)

	// Setup routes
	r := router.SetupRoutes(escrowHandler, eventsHandler, verifier, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	logger.Info("escrow service started successfully",
		zap.String("port", cfg.Server.Port),
		zap.String("environment", cfg.Server.Env),
		zap.Uint64("service_id", cfg.Service.ServiceID))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	stopWorker()

	logger.Info("server stopped")
}
