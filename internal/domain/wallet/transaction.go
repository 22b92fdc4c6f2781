package wallet

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ticket-wallet-ledger/internal/domain/reference"
)

// Transaction is an immutable entry in a wallet's ledger.
type Transaction struct {
	ID              uuid.UUID      `json:"id"`
	WalletID        uuid.UUID      `json:"wallet_id"`
	TenantID        string         `json:"tenant_id"`
	AppID           string         `json:"app_id"`
	UserID          string         `json:"user_id"`
	Amount          int64          `json:"amount"`
	BalanceBefore   int64          `json:"balance_before"`
	BalanceAfter    int64          `json:"balance_after"`
	TransactionType string         `json:"transaction_type"`
	ReferenceType   string         `json:"reference_type,omitempty"`
	ReferenceID     string         `json:"reference_id,omitempty"`
	OrderID         *int64         `json:"order_id,omitempty"`
	Description     string         `json:"description,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	IdempotencyKey  string         `json:"idempotency_key,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// Reference parses the loose reference columns.
func (t *Transaction) Reference() reference.Reference {
	return reference.Parse(t.ReferenceType, t.ReferenceID)
}

// ChainBreak describes the first transaction that violates the ledger chain.
type ChainBreak struct {
	Index         int       `json:"index"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Reason        string    `json:"reason"`
}

func (b ChainBreak) Error() string {
	return fmt.Sprintf("ledger chain broken at %d (%s): %s", b.Index, b.TransactionID, b.Reason)
}

// VerifyChain checks transactions of a single wallet, ordered by creation, against the
// ledger invariants: every entry satisfies after = before + amount and never goes negative,
// the first entry starts at zero, and each entry starts where the previous one ended.
// When finalBalance is not nil it must equal the last entry's balance after.
func VerifyChain(txs []*Transaction, finalBalance *int64) *ChainBreak {
	var prevAfter int64
	for i, tx := range txs {
		if tx.BalanceAfter != tx.BalanceBefore+tx.Amount {
			return &ChainBreak{Index: i, TransactionID: tx.ID,
				Reason: fmt.Sprintf("balance_after %d != balance_before %d + amount %d", tx.BalanceAfter, tx.BalanceBefore, tx.Amount)}
		}
		if tx.BalanceAfter < 0 {
			return &ChainBreak{Index: i, TransactionID: tx.ID, Reason: "negative balance"}
		}
		if tx.BalanceBefore != prevAfter {
			return &ChainBreak{Index: i, TransactionID: tx.ID,
				Reason: fmt.Sprintf("balance_before %d != previous balance_after %d", tx.BalanceBefore, prevAfter)}
		}
		prevAfter = tx.BalanceAfter
	}
	if finalBalance != nil && *finalBalance != prevAfter {
		return &ChainBreak{Index: len(txs), Reason: fmt.Sprintf("wallet balance %d != ledger balance %d", *finalBalance, prevAfter)}
	}
	return nil
}
