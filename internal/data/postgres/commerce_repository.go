package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/ticket-wallet-ledger/internal/domain/commerce"
	"github.com/ticket-wallet-ledger/internal/domain/shared"
	"github.com/ticket-wallet-ledger/internal/platform/persistence"
	"github.com/ticket-wallet-ledger/internal/scope"
)

// CommerceRepository reads orders, tickets, buyers and grants owned by the storefront.
// It implements commerce.OrderReader and commerce.ReportRepository.
type CommerceRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewCommerceRepository creates a new PostgreSQL commerce repository
func NewCommerceRepository(logger *slog.Logger, db *persistence.PostgresDB) *CommerceRepository {
	return &CommerceRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *CommerceRepository) WithTx(tx pgx.Tx) commerce.OrderReader {
	return &CommerceRepository{
		querier: tx,
		logger:  r.logger,
	}
}

var (
	_ commerce.OrderReader      = (*CommerceRepository)(nil)
	_ commerce.ReportRepository = (*CommerceRepository)(nil)
)

// GetOrder returns the order with id, or nil when there is none.
func (r *CommerceRepository) GetOrder(ctx context.Context, id int64) (*commerce.Order, error) {
	query := `
		SELECT id, COALESCE(ticket_id, 0), status, COALESCE(customer_email, ''), total_amount::text,
			COALESCE(currency, ''), COALESCE(app_id, ''), COALESCE(tenant_id, ''), COALESCE(order_number, ''),
			quantity, created_at
		FROM orders
		WHERE id = $1
	`

	var (
		o      commerce.Order
		amount string
	)
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&o.ID,
		&o.TicketID,
		&o.Status,
		&o.CustomerEmail,
		&amount,
		&o.Currency,
		&o.AppID,
		&o.TenantID,
		&o.OrderNumber,
		&o.Quantity,
		&o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get order", "order_id", id, "error", err)
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	o.TotalAmount = parseAmount(amount)
	return &o, nil
}

// FeedCandidates returns the transaction feed superset for a tenant, newest first. limit
// bounds the number of distinct transactions; a transaction may span several rows.
// Ticket purchase transactions are joined to every order matching their reference either by
// order id or by the order's ticket id, to that order's ticket (or to the referenced ticket
// when no order matched), and to the buyer record. Order and buyer rows must carry the
// wallet's app or the public app. Transactions whose order was resolved at write time join
// on order_id only.
func (r *CommerceRepository) FeedCandidates(ctx context.Context, tenantID string, res scope.Resolution, filter commerce.FeedFilter, limit int) ([]*commerce.FeedCandidate, error) {
	args := []interface{}{tenantID, res.PublicAppID, shared.ReferenceTypeTicketPurchase}
	where := []string{"wt.tenant_id = $1"}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("wt.user_id = $%d", len(args)))
	}
	if filter.TransactionType != "" {
		args = append(args, filter.TransactionType)
		where = append(where, fmt.Sprintf("wt.transaction_type = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("wt.created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("wt.created_at <= $%d", len(args)))
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT wt.id, wt.wallet_id, wt.tenant_id, wt.app_id, wt.user_id, wt.amount, wt.balance_before, wt.balance_after,
			wt.transaction_type, COALESCE(wt.reference_type, ''), COALESCE(wt.reference_id, ''), wt.order_id,
			COALESCE(wt.description, ''), wt.metadata, COALESCE(wt.idempotency_key, ''), wt.created_at,
			o.id, COALESCE(o.ticket_id, 0), COALESCE(o.status, ''), COALESCE(o.customer_email, ''),
			COALESCE(o.total_amount::text, ''), COALESCE(o.currency, ''), COALESCE(o.app_id, ''),
			COALESCE(o.tenant_id, ''), COALESCE(o.order_number, ''), COALESCE(o.quantity, 1), o.created_at,
			t.id, COALESCE(t.tenant_id, ''), COALESCE(t.title, ''),
			COALESCE(tb.email, '')
		FROM (
			SELECT wt.*
			FROM wallet_transactions wt
			WHERE %s
			ORDER BY wt.created_at DESC, wt.seq DESC
			LIMIT $%d
		) wt
		CROSS JOIN LATERAL (
			SELECT CASE
				WHEN wt.reference_type = $3 AND wt.reference_id ~ '^[0-9]{1,18}$' THEN wt.reference_id::bigint
			END AS ref_num
		) ref
		LEFT JOIN orders o
			ON ref.ref_num IS NOT NULL
			AND (
				(wt.order_id IS NOT NULL AND o.id = wt.order_id)
				OR (wt.order_id IS NULL AND (o.id = ref.ref_num OR o.ticket_id = ref.ref_num))
			)
			AND (o.app_id = wt.app_id OR o.app_id = $2)
		LEFT JOIN tickets t
			ON ref.ref_num IS NOT NULL
			AND (
				(o.id IS NOT NULL AND t.id = o.ticket_id)
				OR (o.id IS NULL AND wt.order_id IS NULL AND t.id = ref.ref_num)
			)
		LEFT JOIN ticket_buyers tb
			ON tb.ticket_id = t.id
			AND tb.user_id = wt.user_id
			AND (tb.app_id = wt.app_id OR tb.app_id = $2)
		ORDER BY wt.created_at DESC, wt.seq DESC, o.id NULLS LAST, t.id NULLS LAST
	`, strings.Join(where, " AND "), len(args))

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query transaction feed", "tenant_id", tenantID, "error", err)
		return nil, fmt.Errorf("failed to query transaction feed: %w", err)
	}
	defer rows.Close()

	var candidates []*commerce.FeedCandidate
	for rows.Next() {
		c, err := scanFeedCandidate(rows)
		if err != nil {
			r.logger.Error("Failed to scan transaction feed row", "error", err)
			return nil, fmt.Errorf("failed to scan transaction feed row: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over transaction feed", "error", err)
		return nil, fmt.Errorf("error iterating over transaction feed: %w", err)
	}

	return candidates, nil
}

func scanFeedCandidate(row pgx.Row) (*commerce.FeedCandidate, error) {
	var (
		c        commerce.FeedCandidate
		metadata []byte
		orderID  *int64
		o        commerce.Order
		amount   string
		orderAt  *time.Time
		ticketID *int64
		t        commerce.Ticket
	)
	tx := &c.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.WalletID,
		&tx.TenantID,
		&tx.AppID,
		&tx.UserID,
		&tx.Amount,
		&tx.BalanceBefore,
		&tx.BalanceAfter,
		&tx.TransactionType,
		&tx.ReferenceType,
		&tx.ReferenceID,
		&tx.OrderID,
		&tx.Description,
		&metadata,
		&tx.IdempotencyKey,
		&tx.CreatedAt,
		&orderID,
		&o.TicketID,
		&o.Status,
		&o.CustomerEmail,
		&amount,
		&o.Currency,
		&o.AppID,
		&o.TenantID,
		&o.OrderNumber,
		&o.Quantity,
		&orderAt,
		&ticketID,
		&t.TenantID,
		&t.Title,
		&c.BuyerEmail,
	)
	if err != nil {
		return nil, err
	}
	if tx.Metadata, err = decodeMetadata(metadata); err != nil {
		return nil, err
	}
	if orderID != nil {
		o.ID = *orderID
		o.TotalAmount = parseAmount(amount)
		if orderAt != nil {
			o.CreatedAt = *orderAt
		}
		c.Order = &o
	}
	if ticketID != nil {
		t.ID = *ticketID
		c.Ticket = &t
	}
	return &c, nil
}

// CompletedSales returns completed orders whose ticket belongs to tenantID. The order's own
// tenant and app columns are not consulted.
func (r *CommerceRepository) CompletedSales(ctx context.Context, tenantID string, filter commerce.SalesFilter, limit int) ([]*commerce.SaleCandidate, error) {
	args := []interface{}{tenantID, shared.OrderStatusCompleted}
	where := []string{"t.tenant_id = $1", "LOWER(o.status) = $2"}
	if filter.TicketID > 0 {
		args = append(args, filter.TicketID)
		where = append(where, fmt.Sprintf("t.id = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("o.created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("o.created_at <= $%d", len(args)))
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT o.id, o.ticket_id, o.status, COALESCE(o.customer_email, ''), o.total_amount::text,
			COALESCE(o.currency, ''), COALESCE(o.app_id, ''), COALESCE(o.tenant_id, ''), COALESCE(o.order_number, ''),
			o.quantity, o.created_at,
			t.id, t.tenant_id, COALESCE(t.title, '')
		FROM orders o
		JOIN tickets t ON t.id = o.ticket_id
		WHERE %s
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $%d
	`, strings.Join(where, " AND "), len(args))

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query completed sales", "tenant_id", tenantID, "error", err)
		return nil, fmt.Errorf("failed to query completed sales: %w", err)
	}
	defer rows.Close()

	var sales []*commerce.SaleCandidate
	for rows.Next() {
		var (
			s      commerce.SaleCandidate
			amount string
		)
		err := rows.Scan(
			&s.Order.ID,
			&s.Order.TicketID,
			&s.Order.Status,
			&s.Order.CustomerEmail,
			&amount,
			&s.Order.Currency,
			&s.Order.AppID,
			&s.Order.TenantID,
			&s.Order.OrderNumber,
			&s.Order.Quantity,
			&s.Order.CreatedAt,
			&s.Ticket.ID,
			&s.Ticket.TenantID,
			&s.Ticket.Title,
		)
		if err != nil {
			r.logger.Error("Failed to scan sale", "error", err)
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		s.Order.TotalAmount = parseAmount(amount)
		sales = append(sales, &s)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over sales", "error", err)
		return nil, fmt.Errorf("error iterating over sales: %w", err)
	}

	return sales, nil
}

// ActiveGrants returns active email access grants whose ticket belongs to tenantID.
func (r *CommerceRepository) ActiveGrants(ctx context.Context, tenantID string, filter commerce.SalesFilter, limit int) ([]*commerce.GrantCandidate, error) {
	args := []interface{}{tenantID, shared.GrantStatusActive}
	where := []string{"t.tenant_id = $1", "LOWER(g.status) = $2"}
	if filter.TicketID > 0 {
		args = append(args, filter.TicketID)
		where = append(where, fmt.Sprintf("t.id = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("g.granted_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("g.granted_at <= $%d", len(args)))
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT g.id, g.email, g.ticket_id, COALESCE(g.tenant_id, ''), g.status, g.granted_at,
			t.id, t.tenant_id, COALESCE(t.title, '')
		FROM email_access_grants g
		JOIN tickets t ON t.id = g.ticket_id
		WHERE %s
		ORDER BY g.granted_at DESC, g.id DESC
		LIMIT $%d
	`, strings.Join(where, " AND "), len(args))

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query active grants", "tenant_id", tenantID, "error", err)
		return nil, fmt.Errorf("failed to query active grants: %w", err)
	}
	defer rows.Close()

	var grants []*commerce.GrantCandidate
	for rows.Next() {
		var g commerce.GrantCandidate
		err := rows.Scan(
			&g.Grant.ID,
			&g.Grant.Email,
			&g.Grant.TicketID,
			&g.Grant.TenantID,
			&g.Grant.Status,
			&g.Grant.GrantedAt,
			&g.Ticket.ID,
			&g.Ticket.TenantID,
			&g.Ticket.Title,
		)
		if err != nil {
			r.logger.Error("Failed to scan grant", "error", err)
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		grants = append(grants, &g)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over grants", "error", err)
		return nil, fmt.Errorf("error iterating over grants: %w", err)
	}

	return grants, nil
}

// parseAmount reads a NUMERIC rendered as text; unparseable or empty values are zero.
func parseAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
