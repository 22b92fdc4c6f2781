package components

import (
	"context"
	"log/slog"

	"github.com/ticket-wallet-ledger/internal/billing/walletledger"
	"github.com/ticket-wallet-ledger/internal/domain/shared"
	"github.com/ticket-wallet-ledger/internal/domain/wallet"
	"github.com/ticket-wallet-ledger/internal/wallet_processor/service"
)

// reversalSuffix marks the idempotency key of a compensating adjustment.
const reversalSuffix = ":reversal"

// WalletLedger is the subset of walletledger.Service the processor drives
type WalletLedger interface {
	AdjustBalance(ctx context.Context, adj walletledger.Adjustment) (*wallet.Transaction, error)
}

type BalanceAdjusterImpl struct {
	ledger WalletLedger
	logger *slog.Logger
}

func NewBalanceAdjuster(ledger WalletLedger, logger *slog.Logger) service.BalanceAdjuster {
	return &BalanceAdjusterImpl{
		ledger: ledger,
		logger: logger,
	}
}

// idempotencyKey falls back to the request id so that redelivered messages replay.
func idempotencyKey(request *shared.AdjustmentRequest) string {
	if request.IdempotencyKey != "" {
		return request.IdempotencyKey
	}
	return request.RequestID.String()
}

func (a *BalanceAdjusterImpl) Adjust(ctx context.Context, request *shared.AdjustmentRequest) (*wallet.Transaction, error) {
	adj := walletledger.Adjustment{
		Key:             wallet.Key{TenantID: request.TenantID, AppID: request.AppID, UserID: request.UserID},
		Amount:          request.Amount,
		TransactionType: request.TransactionType,
		ReferenceType:   request.ReferenceType,
		ReferenceID:     request.ReferenceID,
		Description:     request.Description,
		Metadata:        request.Metadata,
		IdempotencyKey:  idempotencyKey(request),
		CorrelationID:   request.CorrelationID,
	}
	return a.ledger.AdjustBalance(ctx, adj)
}

func (a *BalanceAdjusterImpl) Reverse(ctx context.Context, request *shared.AdjustmentRequest, txn *wallet.Transaction) (*wallet.Transaction, error) {
	a.logger.Info("Reversing wallet transaction",
		"request_id", request.RequestID.String(),
		"transaction_id", txn.ID.String(),
		"amount", -txn.Amount,
	)

	adj := walletledger.Adjustment{
		Key:             wallet.Key{TenantID: txn.TenantID, AppID: txn.AppID, UserID: txn.UserID},
		Amount:          -txn.Amount,
		TransactionType: shared.TransactionTypeAdjustment,
		ReferenceType:   txn.ReferenceType,
		ReferenceID:     txn.ReferenceID,
		Description:     "reversal of " + txn.ID.String(),
		Metadata: map[string]any{
			"reverses": txn.ID.String(),
			"reason":   string(shared.FailureReasonAllocationFailed),
		},
		IdempotencyKey: idempotencyKey(request) + reversalSuffix,
		CorrelationID:  request.CorrelationID,
	}
	return a.ledger.AdjustBalance(ctx, adj)
}
