// Package ledger defines the archived form of committed wallet transactions, written to
// MongoDB by the outbox publisher for audit and replay.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/ticket-wallet-ledger/internal/domain/wallet"
)

// Entry is an archived wallet transaction
type Entry struct {
	TransactionID   uuid.UUID      `json:"transaction_id" bson:"transaction_id"`
	WalletID        uuid.UUID      `json:"wallet_id" bson:"wallet_id"`
	TenantID        string         `json:"tenant_id" bson:"tenant_id"`
	AppID           string         `json:"app_id" bson:"app_id"`
	UserID          string         `json:"user_id" bson:"user_id"`
	TransactionType string         `json:"transaction_type" bson:"transaction_type"`
	Amount          int64          `json:"amount" bson:"amount"`
	BalanceBefore   int64          `json:"balance_before" bson:"balance_before"`
	BalanceAfter    int64          `json:"balance_after" bson:"balance_after"`
	ReferenceType   string         `json:"reference_type,omitempty" bson:"reference_type,omitempty"`
	ReferenceID     string         `json:"reference_id,omitempty" bson:"reference_id,omitempty"`
	OrderID         *int64         `json:"order_id,omitempty" bson:"order_id,omitempty"`
	Description     string         `json:"description,omitempty" bson:"description,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
	IdempotencyKey  string         `json:"idempotency_key,omitempty" bson:"idempotency_key,omitempty"`
	CorrelationID   string         `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	CreatedAt       time.Time      `json:"created_at" bson:"created_at"`
	ArchivedAt      *time.Time     `json:"archived_at,omitempty" bson:"archived_at,omitempty"`
}

// NewEntry captures tx for the archive.
func NewEntry(tx *wallet.Transaction, correlationID string) *Entry {
	return &Entry{
		TransactionID:   tx.ID,
		WalletID:        tx.WalletID,
		TenantID:        tx.TenantID,
		AppID:           tx.AppID,
		UserID:          tx.UserID,
		TransactionType: tx.TransactionType,
		Amount:          tx.Amount,
		BalanceBefore:   tx.BalanceBefore,
		BalanceAfter:    tx.BalanceAfter,
		ReferenceType:   tx.ReferenceType,
		ReferenceID:     tx.ReferenceID,
		OrderID:         tx.OrderID,
		Description:     tx.Description,
		Metadata:        tx.Metadata,
		IdempotencyKey:  tx.IdempotencyKey,
		CorrelationID:   correlationID,
		CreatedAt:       tx.CreatedAt,
	}
}
