package service

import (
	"context"

	"github.com/ticket-wallet-ledger/internal/domain/shared"
	"github.com/ticket-wallet-ledger/internal/domain/wallet"
)

// ProcessingService defines the interface for processing wallet adjustment requests.
type ProcessingService interface {
	ProcessAdjustment(ctx context.Context, request *shared.AdjustmentRequest) error
}

// RequestValidator validates adjustment requests before they reach the ledger
type RequestValidator interface {
	Validate(ctx context.Context, request *shared.AdjustmentRequest) error
}

// BalanceAdjuster applies adjustment requests to wallets
type BalanceAdjuster interface {
	Adjust(ctx context.Context, request *shared.AdjustmentRequest) (*wallet.Transaction, error)
	// Reverse undoes txn with an opposite adjustment keyed off the original request
	Reverse(ctx context.Context, request *shared.AdjustmentRequest, txn *wallet.Transaction) (*wallet.Transaction, error)
}

// ReservationManager creates the ticket allocation a request asks for
type ReservationManager interface {
	Reserve(ctx context.Context, request *shared.AdjustmentRequest, txn *wallet.Transaction) error
}

// FailureRecorder handles recording rejected requests
type FailureRecorder interface {
	RecordFailure(ctx context.Context, request *shared.AdjustmentRequest, reason shared.FailureReason, cause error) error
}
