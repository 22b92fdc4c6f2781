// Package reconciliation assembles the read views that join the wallet ledger with order
// and grant data: the enriched transaction feed and the sales report. The store returns a
// superset of joined rows; the functions here deduplicate, filter and sort them in memory.
package reconciliation

import (
	"github.com/google/uuid"
	"github.com/ticket-wallet-ledger/internal/domain/commerce"
	"github.com/ticket-wallet-ledger/internal/domain/shared"
	"github.com/ticket-wallet-ledger/internal/domain/wallet"
	"github.com/ticket-wallet-ledger/internal/scope"
)

// FeedEntry is a wallet transaction enriched with what its reference resolved to.
type FeedEntry struct {
	wallet.Transaction
	UserEmail   string `json:"user_email"`
	TicketID    *int64 `json:"ticket_id,omitempty"`
	TicketTitle string `json:"ticket_title,omitempty"`
	OrderNumber string `json:"order_number,omitempty"`
}

// ResolveFeed collapses feed candidates to one entry per transaction, newest first as
// given. Among competing joins for a transaction it keeps the candidate with a completed
// order, then one carrying an email, then one whose ticket the tenant owns, then the
// earliest. Ticket purchases survive only when the kept candidate has a completed order
// and a ticket owned by tenantID; every other transaction is kept as is.
func ResolveFeed(tenantID string, res scope.Resolution, rows []*commerce.FeedCandidate) []FeedEntry {
	best := make(map[uuid.UUID]*candidate, len(rows))
	order := make([]uuid.UUID, 0, len(rows))

	for _, row := range rows {
		if row == nil {
			continue
		}
		c := newCandidate(tenantID, res, row)
		id := row.Transaction.ID
		cur, seen := best[id]
		if !seen {
			order = append(order, id)
			best[id] = c
			continue
		}
		if c.beats(cur) {
			best[id] = c
		}
	}

	entries := make([]FeedEntry, 0, len(order))
	for _, id := range order {
		c := best[id]
		if c.row.Transaction.ReferenceType == shared.ReferenceTypeTicketPurchase && !(c.completed && c.owned) {
			continue
		}
		entries = append(entries, c.entry())
	}
	return entries
}

type candidate struct {
	row       *commerce.FeedCandidate
	order     *commerce.Order
	completed bool
	owned     bool
	email     string
}

func newCandidate(tenantID string, res scope.Resolution, row *commerce.FeedCandidate) *candidate {
	c := &candidate{row: row}
	if row.Order != nil && res.AppMatches(row.Transaction.AppID, row.Order.AppID) {
		c.order = row.Order
		c.completed = row.Order.Completed()
		c.email = row.Order.CustomerEmail
	}
	if c.email == "" {
		c.email = row.BuyerEmail
	}
	if row.Ticket != nil {
		c.owned = res.OwnsTicket(tenantID, res.TenantOrSystem(row.Ticket.TenantID))
	}
	return c
}

// beats reports whether c should replace cur. Ties keep cur.
func (c *candidate) beats(cur *candidate) bool {
	if c.completed != cur.completed {
		return c.completed
	}
	if (c.email != "") != (cur.email != "") {
		return c.email != ""
	}
	if c.owned != cur.owned {
		return c.owned
	}
	return false
}

func (c *candidate) entry() FeedEntry {
	e := FeedEntry{
		Transaction: c.row.Transaction,
		UserEmail:   c.email,
	}
	if t := c.row.Ticket; t != nil {
		id := t.ID
		e.TicketID = &id
		e.TicketTitle = t.Title
	}
	if c.order != nil {
		e.OrderNumber = c.order.OrderNumber
	}
	return e
}
