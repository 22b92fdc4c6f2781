package allocation

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository persists allocations. Lookups that find nothing return ErrAllocationNotFound.
type Repository interface {
	Create(ctx context.Context, a *Allocation) error
	GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*Allocation, error)

	// GetActive returns the most recently allocated active row for the triple
	GetActive(ctx context.Context, tenantID, userID string, ticketID int64) (*Allocation, error)

	// LockActive is GetActive with a row lock held until the transaction ends
	LockActive(ctx context.Context, tenantID, userID string, ticketID int64) (*Allocation, error)
	LockByID(ctx context.Context, tenantID string, id uuid.UUID) (*Allocation, error)

	// Update writes status, quantity and timestamps of a locked allocation
	Update(ctx context.Context, a *Allocation) error
	List(ctx context.Context, tenantID string, filter Filter, limit, offset int) ([]*Allocation, int64, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrAllocationNotFound indicates missing allocation
type ErrAllocationNotFound struct {
	ID uuid.UUID
}

func (e ErrAllocationNotFound) Error() string {
	if e.ID == uuid.Nil {
		return "active allocation not found"
	}
	return "allocation not found: " + e.ID.String()
}

// Is implements the errors.Is interface for ErrAllocationNotFound
func (e ErrAllocationNotFound) Is(target error) bool {
	t, ok := target.(ErrAllocationNotFound)
	if !ok {
		return false
	}
	return t.ID == uuid.Nil || t.ID == e.ID
}
