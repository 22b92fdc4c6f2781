// Package scope resolves which tenant and app a row belongs to when historical data was
// written under generic identifiers.
package scope

import "strings"

// Resolution names the global fallback identifiers. Orders are often written under the
// public app regardless of the tenant whose ticket was sold, so queries accept either the
// wallet's own app or PublicAppID on order and buyer rows.
type Resolution struct {
	PublicAppID    string
	SystemTenantID string
}

// Ownership is decided by the ticket: a sale belongs to tenant when the ticket does.
// The order's own tenant/app columns are never consulted.
func (r Resolution) OwnsTicket(tenantID, ticketTenantID string) bool {
	return tenantID != "" && ticketTenantID == tenantID
}

// AppMatches reports whether a joined row's app id is acceptable for a wallet's app.
func (r Resolution) AppMatches(walletAppID, rowAppID string) bool {
	if rowAppID == "" {
		return false
	}
	return rowAppID == walletAppID || (r.PublicAppID != "" && rowAppID == r.PublicAppID)
}

// TenantOrSystem returns tenantID, or the system tenant when tenantID is blank.
func (r Resolution) TenantOrSystem(tenantID string) string {
	if strings.TrimSpace(tenantID) == "" {
		return r.SystemTenantID
	}
	return tenantID
}
