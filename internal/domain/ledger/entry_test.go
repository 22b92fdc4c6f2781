package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/ticket-wallet-ledger/internal/domain/wallet"
)

func TestNewEntry(t *testing.T) {
	orderID := int64(881)
	tx := &wallet.Transaction{
		ID:              uuid.New(),
		WalletID:        uuid.New(),
		TenantID:        "acme",
		AppID:           "app-1",
		UserID:          "u-1",
		Amount:          -2,
		BalanceBefore:   5,
		BalanceAfter:    3,
		TransactionType: "consume",
		ReferenceType:   "ticket_purchase",
		ReferenceID:     "881",
		OrderID:         &orderID,
		Metadata:        map[string]any{"source": "checkout"},
		CreatedAt:       time.Now(),
	}

	entry := NewEntry(tx, "corr-1")
	assert.Equal(t, tx.ID, entry.TransactionID)
	assert.Equal(t, tx.WalletID, entry.WalletID)
	assert.Equal(t, int64(3), entry.BalanceAfter)
	assert.Equal(t, &orderID, entry.OrderID)
	assert.Equal(t, "corr-1", entry.CorrelationID)
	assert.Nil(t, entry.ArchivedAt)
}

func TestErrors_Is(t *testing.T) {
	id := uuid.New()
	assert.ErrorIs(t, ErrEntryNotFound{TransactionID: id}, ErrEntryNotFound{})
	assert.NotErrorIs(t, ErrEntryNotFound{TransactionID: id}, ErrEntryNotFound{TransactionID: uuid.New()})
	assert.ErrorIs(t, ErrDuplicateEntry{TransactionID: id}, ErrDuplicateEntry{})
	assert.NotErrorIs(t, ErrDuplicateEntry{TransactionID: id}, ErrEntryNotFound{})
}
