package service

import (
	"context"
	"log/slog"

	"github.com/ticket-wallet-ledger/internal/domain/shared"
	"github.com/ticket-wallet-ledger/internal/domain/wallet"
	"github.com/ticket-wallet-ledger/internal/platform/messaging/producers"
)

// AdjustmentRequestServiceImpl implements the AdjustmentRequestService interface
type AdjustmentRequestServiceImpl struct {
	producer producers.MessagePublisher
	logger   *slog.Logger
}

func NewAdjustmentRequestService(logger *slog.Logger, producer producers.MessagePublisher) AdjustmentRequestService {
	return &AdjustmentRequestServiceImpl{
		producer: producer,
		logger:   logger,
	}
}

// SubmitAdjustment publishes request keyed by wallet, so requests for one wallet stay on
// one partition and are applied in order.
func (s *AdjustmentRequestServiceImpl) SubmitAdjustment(ctx context.Context, request *shared.AdjustmentRequest) error {
	key := wallet.Key{TenantID: request.TenantID, AppID: request.AppID, UserID: request.UserID}

	if err := s.producer.Publish(ctx, key.String(), request); err != nil {
		s.logger.Error("Failed to publish adjustment request",
			"request_id", request.RequestID.String(),
			"wallet", key.String(),
			"amount", request.Amount,
			"error", err,
		)
		return err
	}

	s.logger.Info("Adjustment request published",
		"request_id", request.RequestID.String(),
		"wallet", key.String(),
		"transaction_type", request.TransactionType,
		"amount", request.Amount,
	)
	return nil
}
