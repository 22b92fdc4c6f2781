// Package allocations reserves wallet-funded ticket quantities. Release, consume and patch
// lock the allocation row so an allocation leaves the active state at most once. Reversing
// the wallet debit behind a released allocation is the caller's job.
package allocations

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/ticket-wallet-ledger/internal/domain/allocation"
	"github.com/ticket-wallet-ledger/internal/pagination"
	"github.com/ticket-wallet-ledger/internal/platform/persistence"
)

// ReleaseResult reports how many tickets a release freed.
type ReleaseResult struct {
	AllocationID     uuid.UUID `json:"allocation_id"`
	ReleasedQuantity int       `json:"released_quantity"`
}

type Service struct {
	db     persistence.TxBeginner
	repo   allocation.Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(db persistence.TxBeginner, repo allocation.Repository, logger *slog.Logger) *Service {
	return &Service{
		db:     db,
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create always inserts a new active allocation, even when the user already holds an
// active one for the same ticket.
func (s *Service) Create(ctx context.Context, tenantID, userID string, ticketID int64, quantity int) (*allocation.Allocation, error) {
	a, err := allocation.New(tenantID, userID, ticketID, quantity)
	if err != nil {
		return nil, err
	}

	err = persistence.RunInTx(ctx, s.db, func(tx pgx.Tx) error {
		return s.repo.WithTx(tx).Create(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Allocation created", "allocation_id", a.ID.String(), "tenant_id", tenantID, "user_id", userID, "ticket_id", ticketID, "qty", quantity)
	return a, nil
}

// Reserve creates the allocation with the caller-chosen id. When an allocation with that id
// already exists it is returned unchanged, so a retried reservation never allocates twice.
func (s *Service) Reserve(ctx context.Context, id uuid.UUID, tenantID, userID string, ticketID int64, quantity int) (*allocation.Allocation, error) {
	a, err := allocation.New(tenantID, userID, ticketID, quantity)
	if err != nil {
		return nil, err
	}
	a.ID = id

	var result *allocation.Allocation
	err = persistence.RunInTx(ctx, s.db, func(tx pgx.Tx) error {
		repoTx := s.repo.WithTx(tx)
		existing, err := repoTx.GetByID(ctx, tenantID, id)
		if err == nil {
			result = existing
			return nil
		}
		if !errors.Is(err, allocation.ErrAllocationNotFound{ID: id}) {
			return err
		}
		if err := repoTx.Create(ctx, a); err != nil {
			return err
		}
		result = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result != a {
		s.logger.Info("Allocation already reserved", "allocation_id", id.String(), "tenant_id", tenantID, "status", result.Status)
		return result, nil
	}
	s.logger.Info("Allocation created", "allocation_id", a.ID.String(), "tenant_id", tenantID, "user_id", userID, "ticket_id", ticketID, "qty", quantity)
	return a, nil
}

// GetActive returns the active allocation for the triple, or nil when there is none.
func (s *Service) GetActive(ctx context.Context, tenantID, userID string, ticketID int64) (*allocation.Allocation, error) {
	a, err := s.repo.GetActive(ctx, tenantID, userID, ticketID)
	if err != nil {
		if errors.Is(err, allocation.ErrAllocationNotFound{}) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

// Release flips the active allocation for the triple to released. It returns nil when
// nothing was active.
func (s *Service) Release(ctx context.Context, tenantID, userID string, ticketID int64) (*ReleaseResult, error) {
	var result *ReleaseResult
	err := persistence.RunInTx(ctx, s.db, func(tx pgx.Tx) error {
		repoTx := s.repo.WithTx(tx)

		a, err := repoTx.LockActive(ctx, tenantID, userID, ticketID)
		if err != nil {
			if errors.Is(err, allocation.ErrAllocationNotFound{}) {
				return nil
			}
			return err
		}

		qty, err := a.Release(s.now())
		if err != nil {
			return err
		}
		if err := repoTx.Update(ctx, a); err != nil {
			return err
		}

		result = &ReleaseResult{AllocationID: a.ID, ReleasedQuantity: qty}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result == nil {
		s.logger.Debug("No active allocation to release", "tenant_id", tenantID, "user_id", userID, "ticket_id", ticketID)
		return nil, nil
	}
	s.logger.Info("Allocation released", "allocation_id", result.AllocationID.String(), "qty", result.ReleasedQuantity)
	return result, nil
}

// Update applies an administrative patch. A missing allocation yields nil; a released or
// consumed one yields allocation.ErrAllocationTerminal.
func (s *Service) Update(ctx context.Context, tenantID string, id uuid.UUID, patch allocation.Patch) (*allocation.Allocation, error) {
	return s.mutate(ctx, tenantID, id, func(a *allocation.Allocation) error {
		return a.Apply(patch, s.now())
	})
}

// Consume redeems the allocation, stamping its used time.
func (s *Service) Consume(ctx context.Context, tenantID string, id uuid.UUID) (*allocation.Allocation, error) {
	return s.mutate(ctx, tenantID, id, func(a *allocation.Allocation) error {
		return a.Consume(s.now())
	})
}

func (s *Service) mutate(ctx context.Context, tenantID string, id uuid.UUID, fn func(a *allocation.Allocation) error) (*allocation.Allocation, error) {
	var result *allocation.Allocation
	err := persistence.RunInTx(ctx, s.db, func(tx pgx.Tx) error {
		repoTx := s.repo.WithTx(tx)

		a, err := repoTx.LockByID(ctx, tenantID, id)
		if err != nil {
			if errors.Is(err, allocation.ErrAllocationNotFound{ID: id}) {
				return nil
			}
			return err
		}
		if err := fn(a); err != nil {
			s.logger.Warn("Allocation change rejected", "allocation_id", id.String(), "status", a.Status, "error", err)
			return err
		}
		if err := repoTx.Update(ctx, a); err != nil {
			return err
		}
		result = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result != nil {
		s.logger.Info("Allocation updated", "allocation_id", id.String(), "status", result.Status, "qty", result.AllocatedQuantity)
	}
	return result, nil
}

// List returns one page of the tenant's allocations, newest first.
func (s *Service) List(ctx context.Context, tenantID string, filter allocation.Filter, params pagination.Params) (pagination.Page[*allocation.Allocation], error) {
	p := params.Normalize(pagination.DefaultAllocationPageSize)
	if filter.Status != "" && !filter.Status.Valid() {
		return pagination.Page[*allocation.Allocation]{}, allocation.ErrInvalidStatus
	}

	items, total, err := s.repo.List(ctx, tenantID, filter, p.PageSize, p.Offset())
	if err != nil {
		return pagination.Page[*allocation.Allocation]{}, err
	}
	return pagination.NewPage(items, total, p), nil
}
