package commerce

import (
	"context"
	"time"

	"github.com/ticket-wallet-ledger/internal/domain/wallet"
	"github.com/ticket-wallet-ledger/internal/scope"
)

// EntryType distinguishes the two branches of the sales report.
type EntryType string

const (
	EntryTypePurchased EntryType = "purchased"
	EntryTypeGranted   EntryType = "granted"
)

func (t EntryType) Valid() bool {
	return t == "" || t == EntryTypePurchased || t == EntryTypeGranted
}

// FeedFilter narrows the wallet transaction feed. Zero values do not filter.
type FeedFilter struct {
	UserID          string
	TransactionType string
	From            *time.Time
	To              *time.Time
}

// SalesFilter narrows the sales report. Email is a case-insensitive substring match.
type SalesFilter struct {
	Type     EntryType
	TicketID int64
	Email    string
	From     *time.Time
	To       *time.Time
}

// FeedCandidate is one joined row of the transaction feed superset. A transaction whose
// reference matches several orders appears once per match; Order and Ticket are nil when
// nothing joined.
type FeedCandidate struct {
	Transaction wallet.Transaction
	Order       *Order
	Ticket      *Ticket
	BuyerEmail  string
}

// SaleCandidate is a completed order joined to its ticket.
type SaleCandidate struct {
	Order  Order
	Ticket Ticket
}

// GrantCandidate is an active email grant joined to its ticket.
type GrantCandidate struct {
	Grant  EmailAccessGrant
	Ticket Ticket
}

// ReportRepository fetches the superset rows reconciliation resolves in memory.
type ReportRepository interface {
	FeedCandidates(ctx context.Context, tenantID string, res scope.Resolution, filter FeedFilter, limit int) ([]*FeedCandidate, error)
	CompletedSales(ctx context.Context, tenantID string, filter SalesFilter, limit int) ([]*SaleCandidate, error)
	ActiveGrants(ctx context.Context, tenantID string, filter SalesFilter, limit int) ([]*GrantCandidate, error)
}
