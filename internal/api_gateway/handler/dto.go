package handler

import (
	"time"

	"github.com/ticket-wallet-ledger/internal/domain/allocation"
)

// AdjustBalanceRequest represents a signed change to a wallet balance
type AdjustBalanceRequest struct {
	Amount          int64          `json:"amount" binding:"required"`
	TransactionType string         `json:"transaction_type" binding:"required"`
	ReferenceType   string         `json:"reference_type,omitempty"`
	ReferenceID     string         `json:"reference_id,omitempty"`
	Description     string         `json:"description,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	IdempotencyKey  string         `json:"idempotency_key,omitempty"`
}

// SubmitAdjustmentRequest queues an adjustment, optionally reserving tickets once it is applied
type SubmitAdjustmentRequest struct {
	AdjustBalanceRequest
	TicketID        int64 `json:"ticket_id,omitempty" binding:"min=0"`
	ReserveQuantity int   `json:"reserve_quantity,omitempty" binding:"min=0"`
}

// BalanceResponse represents a wallet balance in API responses
type BalanceResponse struct {
	TenantID string `json:"tenant_id"`
	AppID    string `json:"app_id"`
	UserID   string `json:"user_id"`
	Balance  int64  `json:"balance"`
	Currency string `json:"currency"`
}

// CreateAllocationRequest represents a request to reserve tickets
type CreateAllocationRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	TicketID int64  `json:"ticket_id" binding:"required,gt=0"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

// UpdateAllocationRequest is an administrative correction; omitted fields are unchanged
type UpdateAllocationRequest struct {
	Status            *string `json:"status,omitempty"`
	AllocatedQuantity *int    `json:"allocated_quantity,omitempty"`
}

func (r UpdateAllocationRequest) patch() allocation.Patch {
	p := allocation.Patch{AllocatedQuantity: r.AllocatedQuantity}
	if r.Status != nil {
		s := allocation.Status(*r.Status)
		p.Status = &s
	}
	return p
}

// AllocationListQuery represents filters for listing allocations
type AllocationListQuery struct {
	UserID   string `form:"user_id"`
	TicketID int64  `form:"ticket_id" binding:"min=0"`
	Status   string `form:"status"`
	PageQuery
}

// FeedQuery represents filters for the wallet transaction feed
type FeedQuery struct {
	UserID          string `form:"user_id"`
	TransactionType string `form:"transaction_type"`
	From            string `form:"from"`
	To              string `form:"to"`
	PageQuery
}

// SalesReportQuery represents filters and ordering for the sales report
type SalesReportQuery struct {
	Type      string `form:"type"`
	TicketID  int64  `form:"ticket_id" binding:"min=0"`
	Email     string `form:"email"`
	From      string `form:"from"`
	To        string `form:"to"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
	PageQuery
}

// PageQuery represents pagination parameters for list endpoints. Out of range values are
// clamped by the services rather than rejected
type PageQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// ArchivedTransactionResponse represents an archived wallet transaction
type ArchivedTransactionResponse struct {
	TransactionID   string `json:"transaction_id"`
	WalletID        string `json:"wallet_id"`
	TransactionType string `json:"transaction_type"`
	Amount          int64  `json:"amount"`
	BalanceBefore   int64  `json:"balance_before"`
	BalanceAfter    int64  `json:"balance_after"`
	ReferenceType   string `json:"reference_type,omitempty"`
	ReferenceID     string `json:"reference_id,omitempty"`
	CreatedAt       string `json:"created_at"`
	ArchivedAt      string `json:"archived_at,omitempty"`
}

const dateLayout = "2006-01-02"

// parseBound accepts RFC 3339 timestamps or plain dates. A plain date used as an upper
// bound covers the whole day.
func parseBound(raw string, upper bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, err
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
