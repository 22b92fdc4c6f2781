package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/ticket-wallet-ledger/internal/domain/allocation"
	"github.com/ticket-wallet-ledger/internal/platform/persistence"
)

// AllocationRepository implements the allocation.Repository interface for PostgreSQL
type AllocationRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewAllocationRepository creates a new PostgreSQL allocation repository
func NewAllocationRepository(logger *slog.Logger, db *persistence.PostgresDB) allocation.Repository {
	return &AllocationRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *AllocationRepository) WithTx(tx pgx.Tx) allocation.Repository {
	return &AllocationRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const allocationColumns = `id, tenant_id, user_id, ticket_id, allocated_quantity, status, allocated_at, used_at, released_at, updated_at`

func scanAllocation(row pgx.Row) (*allocation.Allocation, error) {
	var a allocation.Allocation
	err := row.Scan(
		&a.ID,
		&a.TenantID,
		&a.UserID,
		&a.TicketID,
		&a.AllocatedQuantity,
		&a.Status,
		&a.AllocatedAt,
		&a.UsedAt,
		&a.ReleasedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a new allocation row.
func (r *AllocationRepository) Create(ctx context.Context, a *allocation.Allocation) error {
	query := `
		INSERT INTO allocations (id, tenant_id, user_id, ticket_id, allocated_quantity, status, allocated_at, used_at, released_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		a.ID,
		a.TenantID,
		a.UserID,
		a.TicketID,
		a.AllocatedQuantity,
		a.Status,
		a.AllocatedAt,
		a.UsedAt,
		a.ReleasedAt,
		a.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create allocation", "tenant_id", a.TenantID, "ticket_id", a.TicketID, "error", err)
		return fmt.Errorf("failed to create allocation: %w", err)
	}
	return nil
}

func (r *AllocationRepository) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*allocation.Allocation, error) {
	query := `
		SELECT ` + allocationColumns + `
		FROM allocations
		WHERE tenant_id = $1 AND id = $2
	`
	return r.getOne(ctx, "get allocation", id, query, tenantID, id)
}

func (r *AllocationRepository) LockByID(ctx context.Context, tenantID string, id uuid.UUID) (*allocation.Allocation, error) {
	query := `
		SELECT ` + allocationColumns + `
		FROM allocations
		WHERE tenant_id = $1 AND id = $2
		FOR UPDATE
	`
	return r.getOne(ctx, "lock allocation", id, query, tenantID, id)
}

func (r *AllocationRepository) GetActive(ctx context.Context, tenantID, userID string, ticketID int64) (*allocation.Allocation, error) {
	query := `
		SELECT ` + allocationColumns + `
		FROM allocations
		WHERE tenant_id = $1 AND user_id = $2 AND ticket_id = $3 AND status = $4
		ORDER BY allocated_at DESC, id
		LIMIT 1
	`
	return r.getOne(ctx, "get active allocation", uuid.Nil, query, tenantID, userID, ticketID, allocation.StatusActive)
}

func (r *AllocationRepository) LockActive(ctx context.Context, tenantID, userID string, ticketID int64) (*allocation.Allocation, error) {
	query := `
		SELECT ` + allocationColumns + `
		FROM allocations
		WHERE tenant_id = $1 AND user_id = $2 AND ticket_id = $3 AND status = $4
		ORDER BY allocated_at DESC, id
		LIMIT 1
		FOR UPDATE
	`
	return r.getOne(ctx, "lock active allocation", uuid.Nil, query, tenantID, userID, ticketID, allocation.StatusActive)
}

func (r *AllocationRepository) getOne(ctx context.Context, op string, id uuid.UUID, query string, args ...interface{}) (*allocation.Allocation, error) {
	a, err := scanAllocation(r.querier.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, allocation.ErrAllocationNotFound{ID: id}
		}
		r.logger.Error("Failed to "+op, "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return a, nil
}

// Update persists the mutable fields of an allocation already locked in this transaction.
func (r *AllocationRepository) Update(ctx context.Context, a *allocation.Allocation) error {
	query := `
		UPDATE allocations
		SET allocated_quantity = $1, status = $2, used_at = $3, released_at = $4, updated_at = $5
		WHERE tenant_id = $6 AND id = $7
	`

	result, err := r.querier.Exec(ctx, query,
		a.AllocatedQuantity,
		a.Status,
		a.UsedAt,
		a.ReleasedAt,
		a.UpdatedAt,
		a.TenantID,
		a.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update allocation", "id", a.ID.String(), "error", err)
		return fmt.Errorf("failed to update allocation: %w", err)
	}

	if result.RowsAffected() == 0 {
		return allocation.ErrAllocationNotFound{ID: a.ID}
	}
	return nil
}

// List returns one page of a tenant's allocations, newest first, with the total match count.
func (r *AllocationRepository) List(ctx context.Context, tenantID string, filter allocation.Filter, limit, offset int) ([]*allocation.Allocation, int64, error) {
	where := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.TicketID > 0 {
		args = append(args, filter.TicketID)
		where = append(where, fmt.Sprintf("ticket_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	whereClause := strings.Join(where, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM allocations WHERE ` + whereClause
	if err := r.querier.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		r.logger.Error("Failed to count allocations", "tenant_id", tenantID, "error", err)
		return nil, 0, fmt.Errorf("failed to count allocations: %w", err)
	}

	pageArgs := append(append([]interface{}{}, args...), limit, offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM allocations
		WHERE %s
		ORDER BY allocated_at DESC, id
		LIMIT $%d OFFSET $%d
	`, allocationColumns, whereClause, len(args)+1, len(args)+2)

	rows, err := r.querier.Query(ctx, query, pageArgs...)
	if err != nil {
		r.logger.Error("Failed to list allocations", "tenant_id", tenantID, "error", err)
		return nil, 0, fmt.Errorf("failed to list allocations: %w", err)
	}
	defer rows.Close()

	var allocations []*allocation.Allocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			r.logger.Error("Failed to scan allocation", "error", err)
			return nil, 0, fmt.Errorf("failed to scan allocation: %w", err)
		}
		allocations = append(allocations, a)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over allocations", "error", err)
		return nil, 0, fmt.Errorf("error iterating over allocations: %w", err)
	}

	return allocations, total, nil
}
