package shared

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMissingScope           = errors.New("tenant_id, app_id and user_id are required")
	ErrMissingTransactionType = errors.New("transaction_type is required")
)

// AdjustmentRequest is the Kafka message the order-completion workflow sends to move a
// wallet balance. ReserveQuantity, when positive, asks the processor to reserve that many
// tickets for TicketID once the adjustment has been committed.
type AdjustmentRequest struct {
	RequestID       uuid.UUID      `json:"request_id"`
	TenantID        string         `json:"tenant_id"`
	AppID           string         `json:"app_id"`
	UserID          string         `json:"user_id"`
	Amount          int64          `json:"amount"`
	TransactionType string         `json:"transaction_type"`
	ReferenceType   string         `json:"reference_type,omitempty"`
	ReferenceID     string         `json:"reference_id,omitempty"`
	Description     string         `json:"description,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	IdempotencyKey  string         `json:"idempotency_key,omitempty"`
	TicketID        int64          `json:"ticket_id,omitempty"`
	ReserveQuantity int            `json:"reserve_quantity,omitempty"`
	CorrelationID   string         `json:"correlation_id,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
}

// Validate checks the fields every adjustment needs. Amount rules belong to the ledger.
func (r *AdjustmentRequest) Validate() error {
	if strings.TrimSpace(r.TenantID) == "" || strings.TrimSpace(r.AppID) == "" || strings.TrimSpace(r.UserID) == "" {
		return ErrMissingScope
	}
	if strings.TrimSpace(r.TransactionType) == "" {
		return ErrMissingTransactionType
	}
	return nil
}

// WantsReservation reports whether the request carries a follow-up allocation.
func (r *AdjustmentRequest) WantsReservation() bool {
	return r.ReserveQuantity > 0 && r.TicketID > 0
}
