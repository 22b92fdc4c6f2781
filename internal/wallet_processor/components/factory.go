package components

import (
	"log/slog"

	"github.com/ticket-wallet-ledger/internal/config"
	"github.com/ticket-wallet-ledger/internal/platform/messaging/producers"
	"github.com/ticket-wallet-ledger/internal/wallet_processor/service"
)

// CreateProcessingService creates a new ProcessingService with all its dependencies.
func CreateProcessingService(
	ledger WalletLedger,
	allocator Allocator,
	dlq producers.DeadLetterPublisher,
	logger *slog.Logger,
	cfg *config.Config,
) service.ProcessingService {
	baseService := service.NewProcessingService(
		NewRequestValidator(logger),
		NewBalanceAdjuster(ledger, logger),
		NewReservationManager(allocator, logger),
		NewFailureRecorder(dlq, logger),
		logger,
	)

	workerPoolService, err := service.NewWorkerPoolProcessingService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool processing service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}
