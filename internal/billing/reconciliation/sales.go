package reconciliation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ticket-wallet-ledger/internal/domain/commerce"
	"github.com/ticket-wallet-ledger/internal/scope"
)

var (
	ErrInvalidSortKey   = errors.New("invalid sort key")
	ErrInvalidSortOrder = errors.New("invalid sort order")
	ErrInvalidEntryType = errors.New("invalid sales entry type")
)

// SalesReportEntry is one sale or grant. It is built per request and never stored.
type SalesReportEntry struct {
	ID          string             `json:"id"`
	Type        commerce.EntryType `json:"type"`
	Quantity    int                `json:"quantity"`
	Amount      *decimal.Decimal   `json:"amount,omitempty"`
	Currency    string             `json:"currency,omitempty"`
	OrderNumber string             `json:"order_number,omitempty"`
	UserEmail   string             `json:"user_email"`
	TicketID    int64              `json:"ticket_id"`
	TicketTitle string             `json:"ticket_title"`
	Date        time.Time          `json:"date"`
}

type SortKey string

const (
	SortByDate        SortKey = "date"
	SortByUserEmail   SortKey = "user_email"
	SortByTicketTitle SortKey = "ticket_title"
	SortByQuantity    SortKey = "quantity"
)

// Sort orders the sales report. The zero value is date descending.
type Sort struct {
	Key SortKey
	Asc bool
}

// ParseSort reads a sort key and an "asc"/"desc" order; blanks take the defaults.
func ParseSort(key, order string) (Sort, error) {
	s := Sort{Key: SortByDate}
	switch k := SortKey(strings.ToLower(strings.TrimSpace(key))); k {
	case "":
	case SortByDate, SortByUserEmail, SortByTicketTitle, SortByQuantity:
		s.Key = k
	default:
		return Sort{}, fmt.Errorf("%w: %q", ErrInvalidSortKey, key)
	}
	switch strings.ToLower(strings.TrimSpace(order)) {
	case "", "desc":
	case "asc":
		s.Asc = true
	default:
		return Sort{}, fmt.Errorf("%w: %q", ErrInvalidSortOrder, order)
	}
	return s, nil
}

// BuildSalesReport merges completed sales and active grants owned by tenantID, applies
// filter and returns them sorted. Sales are deduplicated by order id; the two branches
// never overlap.
func BuildSalesReport(tenantID string, res scope.Resolution, sales []*commerce.SaleCandidate, grants []*commerce.GrantCandidate, filter commerce.SalesFilter, s Sort) []SalesReportEntry {
	entries := make([]SalesReportEntry, 0, len(sales)+len(grants))

	if filter.Type != commerce.EntryTypeGranted {
		seen := make(map[int64]struct{}, len(sales))
		for _, sc := range sales {
			if sc == nil || !sc.Order.Completed() || !res.OwnsTicket(tenantID, res.TenantOrSystem(sc.Ticket.TenantID)) {
				continue
			}
			if _, dup := seen[sc.Order.ID]; dup {
				continue
			}
			seen[sc.Order.ID] = struct{}{}
			entries = append(entries, saleEntry(sc))
		}
	}

	if filter.Type != commerce.EntryTypePurchased {
		for _, gc := range grants {
			if gc == nil || !gc.Grant.Active() || !res.OwnsTicket(tenantID, res.TenantOrSystem(gc.Ticket.TenantID)) {
				continue
			}
			entries = append(entries, grantEntry(gc))
		}
	}

	filtered := entries[:0]
	for _, e := range entries {
		if matches(e, filter) {
			filtered = append(filtered, e)
		}
	}

	sortEntries(filtered, s)
	return filtered
}

func saleEntry(sc *commerce.SaleCandidate) SalesReportEntry {
	qty := sc.Order.Quantity
	if qty < 1 {
		qty = 1
	}
	amount := sc.Order.TotalAmount
	return SalesReportEntry{
		ID:          fmt.Sprintf("order-%d", sc.Order.ID),
		Type:        commerce.EntryTypePurchased,
		Quantity:    qty,
		Amount:      &amount,
		Currency:    sc.Order.Currency,
		OrderNumber: sc.Order.OrderNumber,
		UserEmail:   sc.Order.CustomerEmail,
		TicketID:    sc.Ticket.ID,
		TicketTitle: sc.Ticket.Title,
		Date:        sc.Order.CreatedAt,
	}
}

func grantEntry(gc *commerce.GrantCandidate) SalesReportEntry {
	return SalesReportEntry{
		ID:          fmt.Sprintf("grant-%d", gc.Grant.ID),
		Type:        commerce.EntryTypeGranted,
		Quantity:    1,
		UserEmail:   gc.Grant.Email,
		TicketID:    gc.Ticket.ID,
		TicketTitle: gc.Ticket.Title,
		Date:        gc.Grant.GrantedAt,
	}
}

func matches(e SalesReportEntry, f commerce.SalesFilter) bool {
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.TicketID > 0 && e.TicketID != f.TicketID {
		return false
	}
	if f.Email != "" && !strings.Contains(commerce.NormalizeEmail(e.UserEmail), commerce.NormalizeEmail(f.Email)) {
		return false
	}
	if f.From != nil && e.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Date.After(*f.To) {
		return false
	}
	return true
}

// sortEntries is stable: equal keys keep branch order, sales before grants.
func sortEntries(entries []SalesReportEntry, s Sort) {
	compare := func(a, b SalesReportEntry) int {
		switch s.Key {
		case SortByUserEmail:
			return strings.Compare(strings.ToLower(a.UserEmail), strings.ToLower(b.UserEmail))
		case SortByTicketTitle:
			return strings.Compare(strings.ToLower(a.TicketTitle), strings.ToLower(b.TicketTitle))
		case SortByQuantity:
			return a.Quantity - b.Quantity
		default:
			return a.Date.Compare(b.Date)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		c := compare(entries[i], entries[j])
		if s.Asc {
			return c < 0
		}
		return c > 0
	})
}
