package components

import (
	"context"
	"log/slog"

	"github.com/ticket-wallet-ledger/internal/domain/shared"
	"github.com/ticket-wallet-ledger/internal/domain/wallet"
	"github.com/ticket-wallet-ledger/internal/wallet_processor/service"
)

type RequestValidatorImpl struct {
	logger *slog.Logger
}

func NewRequestValidator(logger *slog.Logger) service.RequestValidator {
	return &RequestValidatorImpl{logger: logger}
}

// Validate rejects requests the ledger would refuse anyway, before a database transaction is opened.
func (v *RequestValidatorImpl) Validate(ctx context.Context, request *shared.AdjustmentRequest) error {
	logger := v.logger
	if request.CorrelationID != "" {
		logger = v.logger.With("correlation_id", request.CorrelationID)
	}

	if err := request.Validate(); err != nil {
		logger.Error("Invalid adjustment request", "request_id", request.RequestID.String(), "error", err)
		return err
	}

	if request.Amount == 0 {
		logger.Error("Invalid amount", "request_id", request.RequestID.String(), "amount", request.Amount)
		return wallet.ErrInvalidAmount
	}

	return nil
}
