// Package reference turns the loose (reference_type, reference_id) pair stored on wallet
// transactions into an explicit tagged value.
package reference

import (
	"strconv"
	"strings"

	"github.com/ticket-wallet-ledger/internal/domain/shared"
)

// Kind tags what a reference points at.
type Kind int

const (
	KindNone Kind = iota
	KindOrder
	KindGrant
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindOrder:
		return "order"
	case KindGrant:
		return "grant"
	case KindOther:
		return "other"
	default:
		return "none"
	}
}

// Reference is the parsed form of a transaction's reference columns. ID is set only for
// KindOrder and KindGrant; Raw always keeps the stored reference_id.
type Reference struct {
	Kind Kind
	ID   int64
	Type string
	Raw  string
}

// Parse classifies a reference. Ticket purchases and order references with an integer id
// become KindOrder; email grants with an integer id become KindGrant; anything else that is
// non-empty is KindOther.
func Parse(referenceType, referenceID string) Reference {
	referenceType = strings.TrimSpace(referenceType)
	raw := strings.TrimSpace(referenceID)
	ref := Reference{Type: referenceType, Raw: raw}

	if referenceType == "" && raw == "" {
		ref.Kind = KindNone
		return ref
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	numeric := err == nil && id > 0

	switch {
	case numeric && (referenceType == shared.ReferenceTypeTicketPurchase || referenceType == shared.ReferenceTypeOrder):
		ref.Kind = KindOrder
		ref.ID = id
	case numeric && referenceType == shared.ReferenceTypeEmailGrant:
		ref.Kind = KindGrant
		ref.ID = id
	default:
		ref.Kind = KindOther
	}
	return ref
}

// IsTicketPurchase reports whether the reference is subject to ticket-purchase
// reconciliation: the type is ticket_purchase and the id parses as an integer.
func (r Reference) IsTicketPurchase() bool {
	return r.Type == shared.ReferenceTypeTicketPurchase && r.Kind == KindOrder
}

// OrderID returns the referenced order id, if the reference names one.
func (r Reference) OrderID() (int64, bool) {
	if r.Kind != KindOrder {
		return 0, false
	}
	return r.ID, true
}

func (r Reference) String() string {
	if r.Kind == KindNone {
		return ""
	}
	return r.Type + ":" + r.Raw
}
