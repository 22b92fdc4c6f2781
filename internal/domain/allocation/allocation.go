// Package allocation models reservations of wallet-funded ticket quantities for a
// (tenant, user, ticket) triple and the state machine they move through.
package allocation

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status of an allocation. Released and consumed are terminal.
type Status string

const (
	StatusActive   Status = "active"
	StatusReleased Status = "released"
	StatusConsumed Status = "consumed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusReleased, StatusConsumed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusReleased || s == StatusConsumed
}

var (
	ErrInvalidQuantity    = errors.New("allocated quantity must be positive")
	ErrInvalidStatus      = errors.New("invalid allocation status")
	ErrInvalidTransition  = errors.New("invalid allocation status transition")
	ErrAllocationTerminal = errors.New("allocation is no longer active")
	ErrInvalidScope       = errors.New("tenant and user are required")
	ErrInvalidTicket      = errors.New("ticket id must be positive")
)

// Allocation is a reservation of AllocatedQuantity tickets.
type Allocation struct {
	ID                uuid.UUID  `json:"id"`
	TenantID          string     `json:"tenant_id"`
	UserID            string     `json:"user_id"`
	TicketID          int64      `json:"ticket_id"`
	AllocatedQuantity int        `json:"allocated_quantity"`
	Status            Status     `json:"status"`
	AllocatedAt       time.Time  `json:"allocated_at"`
	UsedAt            *time.Time `json:"used_at,omitempty"`
	ReleasedAt        *time.Time `json:"released_at,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// New returns an active allocation.
func New(tenantID, userID string, ticketID int64, quantity int) (*Allocation, error) {
	if tenantID == "" || userID == "" {
		return nil, ErrInvalidScope
	}
	if ticketID <= 0 {
		return nil, ErrInvalidTicket
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	now := time.Now().UTC()
	return &Allocation{
		ID:                uuid.New(),
		TenantID:          tenantID,
		UserID:            userID,
		TicketID:          ticketID,
		AllocatedQuantity: quantity,
		Status:            StatusActive,
		AllocatedAt:       now,
		UpdatedAt:         now,
	}, nil
}

// ConsumedQuantity is the whole allocation once redeemed, zero before.
func (a *Allocation) ConsumedQuantity() int {
	if a.UsedAt != nil {
		return a.AllocatedQuantity
	}
	return 0
}

func (a *Allocation) AvailableQuantity() int {
	return a.AllocatedQuantity - a.ConsumedQuantity()
}

// Release moves an active allocation to released and returns the freed quantity.
func (a *Allocation) Release(at time.Time) (int, error) {
	if err := a.transition(StatusReleased); err != nil {
		return 0, err
	}
	a.ReleasedAt = &at
	a.UpdatedAt = at
	return a.AllocatedQuantity, nil
}

// Consume redeems an active allocation, stamping UsedAt.
func (a *Allocation) Consume(at time.Time) error {
	if err := a.transition(StatusConsumed); err != nil {
		return err
	}
	a.UsedAt = &at
	a.UpdatedAt = at
	return nil
}

func (a *Allocation) transition(to Status) error {
	if a.Status != StatusActive {
		return ErrAllocationTerminal
	}
	if !to.Valid() || to == StatusActive {
		return ErrInvalidTransition
	}
	a.Status = to
	return nil
}

// Patch is an administrative correction. Nil fields are left unchanged.
type Patch struct {
	Status            *Status `json:"status,omitempty"`
	AllocatedQuantity *int    `json:"allocated_quantity,omitempty"`
}

// Apply validates and applies p. Only active allocations can be patched, the quantity must
// stay positive and a status change must follow the state machine.
func (a *Allocation) Apply(p Patch, at time.Time) error {
	if a.Status.Terminal() {
		return ErrAllocationTerminal
	}
	if p.AllocatedQuantity != nil && *p.AllocatedQuantity <= 0 {
		return ErrInvalidQuantity
	}
	if p.Status != nil && !p.Status.Valid() {
		return ErrInvalidStatus
	}

	if p.AllocatedQuantity != nil {
		a.AllocatedQuantity = *p.AllocatedQuantity
		a.UpdatedAt = at
	}
	if p.Status != nil {
		switch *p.Status {
		case StatusActive:
			// no-op
		case StatusReleased:
			if _, err := a.Release(at); err != nil {
				return err
			}
		case StatusConsumed:
			if err := a.Consume(at); err != nil {
				return err
			}
		}
	}
	return nil
}

// Filter narrows ListAllocations.
type Filter struct {
	UserID   string
	TicketID int64
	Status   Status
}
