package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ticket-wallet-ledger/internal/domain/shared"
	"github.com/ticket-wallet-ledger/internal/domain/wallet"
)

type ProcessingServiceImpl struct {
	validator       RequestValidator
	adjuster        BalanceAdjuster
	reservations    ReservationManager
	failureRecorder FailureRecorder
	logger          *slog.Logger
}

func NewProcessingService(
	validator RequestValidator,
	adjuster BalanceAdjuster,
	reservations ReservationManager,
	failureRecorder FailureRecorder,
	logger *slog.Logger,
) ProcessingService {
	return &ProcessingServiceImpl{
		validator:       validator,
		adjuster:        adjuster,
		reservations:    reservations,
		failureRecorder: failureRecorder,
		logger:          logger,
	}
}

// ProcessAdjustment applies one adjustment request. Business rejections are recorded and
// acknowledged (nil); infrastructure failures are returned so the message is redelivered.
// Redelivery is safe: the ledger replays requests by idempotency key, and the reservation
// id is derived from the same key, so a replayed request finds its allocation instead of
// creating a second one.
func (s *ProcessingServiceImpl) ProcessAdjustment(ctx context.Context, request *shared.AdjustmentRequest) error {
	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}
	reqID := request.RequestID.String()

	logger.Info("Processing adjustment request",
		"request_id", reqID,
		"tenant_id", request.TenantID,
		"user_id", request.UserID,
		"amount", request.Amount,
	)

	// 1. Validate the request
	if err := s.validator.Validate(ctx, request); err != nil {
		logger.Warn("Adjustment request rejected by validation", "request_id", reqID, "error", err)

		reason := shared.FailureReasonInvalidRequest
		if errors.Is(err, wallet.ErrInvalidAmount) {
			reason = shared.FailureReasonInvalidAmount
		}
		s.recordFailure(ctx, logger, request, reason, err)
		return nil
	}

	// 2. Apply to the wallet
	txn, err := s.adjuster.Adjust(ctx, request)
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrInsufficientBalance):
			s.recordFailure(ctx, logger, request, shared.FailureReasonInsufficientBalance, err)
			return nil
		case errors.Is(err, wallet.ErrInvalidAmount), errors.Is(err, wallet.ErrInvalidKey):
			s.recordFailure(ctx, logger, request, shared.FailureReasonInvalidRequest, err)
			return nil
		}
		logger.Error("Failed to adjust wallet balance", "request_id", reqID, "error", err)
		return fmt.Errorf("adjusting wallet for request %s: %w", reqID, err)
	}

	if !request.WantsReservation() {
		logger.Info("Adjustment request processed", "request_id", reqID, "transaction_id", txn.ID.String(), "balance_after", txn.BalanceAfter)
		return nil
	}

	// 3. Reserve tickets, reversing the adjustment if that fails
	reserveErr := s.reservations.Reserve(ctx, request, txn)
	if reserveErr == nil {
		logger.Info("Adjustment request processed with reservation",
			"request_id", reqID,
			"transaction_id", txn.ID.String(),
			"ticket_id", request.TicketID,
			"quantity", request.ReserveQuantity,
		)
		return nil
	}

	logger.Error("Reservation failed, reversing adjustment", "request_id", reqID, "transaction_id", txn.ID.String(), "error", reserveErr)
	reversal, err := s.adjuster.Reverse(ctx, request, txn)
	if err != nil {
		if errors.Is(err, wallet.ErrInsufficientBalance) {
			// The credit was already spent; nothing left to take back automatically
			logger.Error("Reversal rejected, wallet needs manual correction", "request_id", reqID, "transaction_id", txn.ID.String(), "error", err)
			s.recordFailure(ctx, logger, request, shared.FailureReasonAllocationFailed, errors.Join(reserveErr, err))
			return nil
		}
		return fmt.Errorf("reversing transaction %s after failed reservation: %w", txn.ID.String(), err)
	}

	logger.Info("Adjustment reversed", "request_id", reqID, "transaction_id", txn.ID.String(), "reversal_id", reversal.ID.String())
	s.recordFailure(ctx, logger, request, shared.FailureReasonAllocationFailed, reserveErr)
	return nil
}

func (s *ProcessingServiceImpl) recordFailure(ctx context.Context, logger *slog.Logger, request *shared.AdjustmentRequest, reason shared.FailureReason, cause error) {
	if err := s.failureRecorder.RecordFailure(ctx, request, reason, cause); err != nil {
		logger.Error("Failed to record adjustment failure", "request_id", request.RequestID.String(), "reason", reason, "error", err)
	}
}
