package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ticket-wallet-ledger/internal/billing/allocations"
	"github.com/ticket-wallet-ledger/internal/billing/walletledger"
	"github.com/ticket-wallet-ledger/internal/config"
	"github.com/ticket-wallet-ledger/internal/data/mongo"
	"github.com/ticket-wallet-ledger/internal/data/postgres"
	"github.com/ticket-wallet-ledger/internal/logger"
	"github.com/ticket-wallet-ledger/internal/platform/messaging/consumers"
	"github.com/ticket-wallet-ledger/internal/platform/messaging/producers"
	"github.com/ticket-wallet-ledger/internal/platform/persistence"
	"github.com/ticket-wallet-ledger/internal/scope"
	"github.com/ticket-wallet-ledger/internal/wallet_processor/components"
	"github.com/ticket-wallet-ledger/internal/wallet_processor/consumer"
	"github.com/ticket-wallet-ledger/internal/wallet_processor/outbox_poller"
	"github.com/ticket-wallet-ledger/internal/wallet_processor/service"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("wallet_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Wallet Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	walletRepo := postgres.NewWalletRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	allocationRepo := postgres.NewAllocationRepository(log, postgresDB)
	commerceRepo := postgres.NewCommerceRepository(log, postgresDB)
	ledgerRepo := mongo.NewLedgerRepository(log, mongoDB.Database())

	if err := ledgerRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure ledger archive indexes", "error", err)
		os.Exit(1)
	}

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// A nil *DLQProducer must not reach the interface as a typed nil
	var deadLetters producers.DeadLetterPublisher
	if dlqProducer != nil {
		deadLetters = dlqProducer
	}

	eventProducer, err := producers.NewWalletEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize wallet event producer", "error", err)
		os.Exit(1)
	}

	res := scope.Resolution{
		PublicAppID:    cfg.Reconciliation.PublicAppID,
		SystemTenantID: cfg.Reconciliation.SystemTenantID,
	}
	walletService := walletledger.NewService(postgresDB.Pool(), walletRepo, outboxRepo, commerceRepo, res, log)
	allocationService := allocations.NewService(postgresDB.Pool(), allocationRepo, log)

	processingService := components.CreateProcessingService(
		walletService,
		allocationService,
		deadLetters,
		log,
		cfg,
	)

	adjustmentHandler := consumer.NewAdjustmentHandler(log, processingService, deadLetters)
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	ledgerPublisher := outbox_poller.NewLedgerPublisher(outboxRepo, ledgerRepo, eventProducer, log)
	poller := outbox_poller.NewPoller(&cfg.Outbox, outboxRepo, ledgerPublisher, log)

	errChan := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.AdjustmentTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.AdjustmentTopic, cfg.Kafka.ConsumerGroup, adjustmentHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Outbox Poller",
			"interval", cfg.Outbox.PollingInterval.String(),
			"batch_size", cfg.Outbox.BatchSize,
		)
		poller.Start(appCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()

	if wpService, ok := processingService.(*service.WorkerPoolProcessingService); ok {
		log.Info("Shutting down worker pool", "running_workers", wpService.Running())
		wpService.Shutdown()
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	if deadLetters != nil {
		if err = deadLetters.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing wallet event producer", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serviceErr != nil {
		log.Error("Wallet Processor shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Wallet Processor shutdown completed with errors")
	} else {
		log.Info("Wallet Processor shutdown completed successfully")
	}
}
