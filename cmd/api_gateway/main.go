package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ticket-wallet-ledger/internal/api_gateway"
	"github.com/ticket-wallet-ledger/internal/api_gateway/service"
	"github.com/ticket-wallet-ledger/internal/billing/allocations"
	"github.com/ticket-wallet-ledger/internal/billing/reconciliation"
	"github.com/ticket-wallet-ledger/internal/billing/walletledger"
	"github.com/ticket-wallet-ledger/internal/config"
	"github.com/ticket-wallet-ledger/internal/data/mongo"
	"github.com/ticket-wallet-ledger/internal/data/postgres"
	"github.com/ticket-wallet-ledger/internal/logger"
	"github.com/ticket-wallet-ledger/internal/platform/messaging/producers"
	"github.com/ticket-wallet-ledger/internal/platform/persistence"
	"github.com/ticket-wallet-ledger/internal/scope"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	// Migrations run as part of opening the pool
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	adjustmentProducer, err := producers.NewAdjustmentRequestProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize adjustment request producer", "error", err)
		os.Exit(1)
	}

	res := scope.Resolution{
		PublicAppID:    cfg.Reconciliation.PublicAppID,
		SystemTenantID: cfg.Reconciliation.SystemTenantID,
	}

	walletRepo := postgres.NewWalletRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	allocationRepo := postgres.NewAllocationRepository(log, postgresDB)
	commerceRepo := postgres.NewCommerceRepository(log, postgresDB)
	ledgerRepo := mongo.NewLedgerRepository(log, mongoDB.Database())

	walletService := walletledger.NewService(postgresDB.Pool(), walletRepo, outboxRepo, commerceRepo, res, log)
	allocationService := allocations.NewService(postgresDB.Pool(), allocationRepo, log)
	reconciliationService := reconciliation.NewService(commerceRepo, res, cfg.Reconciliation.MaxScanRows, log)
	adjustmentService := service.NewAdjustmentRequestService(log, adjustmentProducer)
	archiveService := service.NewArchiveService(log, ledgerRepo)

	server := api_gateway.NewServer(log, cfg,
		walletService,
		adjustmentService,
		archiveService,
		allocationService,
		reconciliationService,
	)
	log.Info("REST server initialized")

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

	// Stop taking requests before the pools they use go away
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = adjustmentProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	postgresDB.Close()

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
