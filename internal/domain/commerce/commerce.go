// Package commerce holds the read-only views of orders, tickets, ticket buyers and email
// access grants that other domains own and the ledger reconciles against.
package commerce

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/ticket-wallet-ledger/internal/domain/shared"
)

// Order is a storefront order. Only completed orders are sales.
type Order struct {
	ID            int64           `json:"id"`
	TicketID      int64           `json:"ticket_id"`
	Status        string          `json:"status"`
	CustomerEmail string          `json:"customer_email"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Currency      string          `json:"currency"`
	AppID         string          `json:"app_id"`
	TenantID      string          `json:"tenant_id"`
	OrderNumber   string          `json:"order_number"`
	Quantity      int             `json:"quantity"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (o *Order) Completed() bool {
	return o != nil && strings.EqualFold(o.Status, shared.OrderStatusCompleted)
}

// Ticket is the authority on ownership: its TenantID decides which tenant a sale belongs to.
type Ticket struct {
	ID       int64  `json:"id"`
	TenantID string `json:"tenant_id"`
	Title    string `json:"title"`
}

// TicketBuyer is a contact record linking a user to a ticket they bought.
type TicketBuyer struct {
	TicketID int64  `json:"ticket_id"`
	UserID   string `json:"user_id"`
	AppID    string `json:"app_id"`
	Email    string `json:"email"`
}

// EmailAccessGrant is a non-monetary, email-addressed access right to a ticket.
type EmailAccessGrant struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	TicketID  int64     `json:"ticket_id"`
	TenantID  string    `json:"tenant_id"`
	Status    string    `json:"status"`
	GrantedAt time.Time `json:"granted_at"`
}

func (g *EmailAccessGrant) Active() bool {
	return g != nil && strings.EqualFold(g.Status, shared.GrantStatusActive)
}

// NormalizeEmail lower-cases and trims an address the way grants store it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// OrderReader resolves orders by id. A missing order is (nil, nil).
type OrderReader interface {
	GetOrder(ctx context.Context, id int64) (*Order, error)
	WithTx(tx pgx.Tx) OrderReader
}
