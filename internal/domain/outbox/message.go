// Package outbox implements the transactional outbox for committed wallet transactions.
// A message is written in the same database transaction as the balance change and later
// published by the poller.
package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/ticket-wallet-ledger/internal/domain/ledger"
	"github.com/ticket-wallet-ledger/internal/domain/shared"
)

// Message stores a committed wallet transaction awaiting publication
type Message struct {
	ID            int64               `json:"id"`
	TransactionID uuid.UUID           `json:"transaction_id"`
	WalletID      uuid.UUID           `json:"wallet_id"`
	TenantID      string              `json:"tenant_id"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

// NewMessage snapshots entry as a pending message.
func NewMessage(entry *ledger.Entry) (*Message, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}

	return &Message{
		TransactionID: entry.TransactionID,
		WalletID:      entry.WalletID,
		TenantID:      entry.TenantID,
		Payload:       payload,
		Status:        shared.OutboxStatusPending,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// Entry decodes the wallet transaction carried by the message.
func (m *Message) Entry() (*ledger.Entry, error) {
	var entry ledger.Entry
	if err := json.Unmarshal(m.Payload, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// PartitionKey keeps every event of a wallet on one partition, in commit order.
func (m *Message) PartitionKey() string {
	return m.WalletID.String()
}

// RecordAttempt counts a failed publication made at 'at' and reports whether the message
// has now used up maxAttempts and should be parked.
func (m *Message) RecordAttempt(at time.Time, maxAttempts int) bool {
	m.Attempts++
	m.LastAttemptAt = &at
	return m.Attempts >= maxAttempts
}
