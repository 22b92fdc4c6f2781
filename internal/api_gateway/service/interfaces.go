package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/ticket-wallet-ledger/internal/billing/allocations"
	"github.com/ticket-wallet-ledger/internal/billing/reconciliation"
	"github.com/ticket-wallet-ledger/internal/billing/walletledger"
	"github.com/ticket-wallet-ledger/internal/domain/allocation"
	"github.com/ticket-wallet-ledger/internal/domain/commerce"
	"github.com/ticket-wallet-ledger/internal/domain/ledger"
	"github.com/ticket-wallet-ledger/internal/domain/shared"
	"github.com/ticket-wallet-ledger/internal/domain/wallet"
	"github.com/ticket-wallet-ledger/internal/pagination"
)

// WalletService defines the synchronous wallet operations
type WalletService interface {
	// GetBalance returns 0 for a wallet that was never written
	GetBalance(ctx context.Context, key wallet.Key) (int64, error)

	// AdjustBalance applies a signed amount. A debit beyond the balance returns
	// wallet.InsufficientBalanceError and changes nothing
	AdjustBalance(ctx context.Context, adj walletledger.Adjustment) (*wallet.Transaction, error)

	VerifyChain(ctx context.Context, key wallet.Key) (*walletledger.ChainReport, error)
}

// AdjustmentRequestService queues adjustments for the wallet processor
type AdjustmentRequestService interface {
	SubmitAdjustment(ctx context.Context, request *shared.AdjustmentRequest) error
}

// ArchiveService reads the MongoDB archive of published wallet transactions
type ArchiveService interface {
	// GetArchivedTransaction returns nil if the transaction has not been archived yet
	GetArchivedTransaction(ctx context.Context, transactionID uuid.UUID) (*ledger.Entry, error)
	GetWalletHistory(ctx context.Context, walletID uuid.UUID, params pagination.Params) (pagination.Page[*ledger.Entry], error)
}

// AllocationService defines ticket reservation operations. Lookups that find nothing
// return a nil allocation and no error
type AllocationService interface {
	Create(ctx context.Context, tenantID, userID string, ticketID int64, quantity int) (*allocation.Allocation, error)
	GetActive(ctx context.Context, tenantID, userID string, ticketID int64) (*allocation.Allocation, error)
	Release(ctx context.Context, tenantID, userID string, ticketID int64) (*allocations.ReleaseResult, error)
	Update(ctx context.Context, tenantID string, id uuid.UUID, patch allocation.Patch) (*allocation.Allocation, error)
	Consume(ctx context.Context, tenantID string, id uuid.UUID) (*allocation.Allocation, error)
	List(ctx context.Context, tenantID string, filter allocation.Filter, params pagination.Params) (pagination.Page[*allocation.Allocation], error)
}

// ReconciliationService defines the tenant read path over wallets and sales
type ReconciliationService interface {
	ListWalletTransactions(ctx context.Context, tenantID string, filter commerce.FeedFilter, params pagination.Params) (pagination.Page[reconciliation.FeedEntry], error)
	SalesReport(ctx context.Context, tenantID string, filter commerce.SalesFilter, sort reconciliation.Sort, params pagination.Params) (pagination.Page[reconciliation.SalesReportEntry], error)
}

var (
	_ WalletService         = (*walletledger.Service)(nil)
	_ AllocationService     = (*allocations.Service)(nil)
	_ ReconciliationService = (*reconciliation.Service)(nil)
)
