package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/ticket-wallet-ledger/internal/domain/commerce"
	"github.com/ticket-wallet-ledger/internal/pagination"
	"github.com/ticket-wallet-ledger/internal/scope"
)

// ErrScanLimitExceeded is returned when the filtered superset has more rows than the
// service may load; a page cut from a partial superset would report a wrong total.
var ErrScanLimitExceeded = errors.New("result set exceeds scan limit, narrow the filter")

type Service struct {
	repo        commerce.ReportRepository
	scope       scope.Resolution
	maxScanRows int
	logger      *slog.Logger
}

// NewService builds the read path. maxScanRows bounds every superset query: at most that
// many transactions, orders or grants are loaded per request.
func NewService(repo commerce.ReportRepository, res scope.Resolution, maxScanRows int, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		scope:       res,
		maxScanRows: maxScanRows,
		logger:      logger,
	}
}

// ListWalletTransactions returns the tenant's enriched transaction feed. Pagination runs
// after deduplication and filtering, so Total counts surviving transactions.
func (s *Service) ListWalletTransactions(ctx context.Context, tenantID string, filter commerce.FeedFilter, params pagination.Params) (pagination.Page[FeedEntry], error) {
	p := params.Normalize(pagination.DefaultFeedPageSize)

	rows, err := s.repo.FeedCandidates(ctx, tenantID, s.scope, filter, s.maxScanRows+1)
	if err != nil {
		return pagination.Page[FeedEntry]{}, fmt.Errorf("failed to load transaction feed: %w", err)
	}
	if n := distinctTransactions(rows); n > s.maxScanRows {
		s.logger.Warn("Transaction feed exceeds scan limit", "tenant_id", tenantID, "limit", s.maxScanRows)
		return pagination.Page[FeedEntry]{}, fmt.Errorf("transaction feed: %w", ErrScanLimitExceeded)
	}

	entries := ResolveFeed(tenantID, s.scope, rows)
	s.logger.Debug("Transaction feed resolved", "tenant_id", tenantID, "candidates", len(rows), "entries", len(entries))
	return pagination.Paginate(entries, p), nil
}

// SalesReport returns one page of the tenant's purchases and grants.
func (s *Service) SalesReport(ctx context.Context, tenantID string, filter commerce.SalesFilter, sort Sort, params pagination.Params) (pagination.Page[SalesReportEntry], error) {
	p := params.Normalize(pagination.DefaultSalesPageSize)
	if !filter.Type.Valid() {
		return pagination.Page[SalesReportEntry]{}, ErrInvalidEntryType
	}

	var (
		sales  []*commerce.SaleCandidate
		grants []*commerce.GrantCandidate
		err    error
	)
	if filter.Type != commerce.EntryTypeGranted {
		sales, err = s.repo.CompletedSales(ctx, tenantID, filter, s.maxScanRows+1)
		if err != nil {
			return pagination.Page[SalesReportEntry]{}, fmt.Errorf("failed to load sales: %w", err)
		}
	}
	if filter.Type != commerce.EntryTypePurchased {
		grants, err = s.repo.ActiveGrants(ctx, tenantID, filter, s.maxScanRows+1)
		if err != nil {
			return pagination.Page[SalesReportEntry]{}, fmt.Errorf("failed to load grants: %w", err)
		}
	}
	if len(sales) > s.maxScanRows || len(grants) > s.maxScanRows {
		s.logger.Warn("Sales report exceeds scan limit", "tenant_id", tenantID, "limit", s.maxScanRows)
		return pagination.Page[SalesReportEntry]{}, fmt.Errorf("sales report: %w", ErrScanLimitExceeded)
	}

	entries := BuildSalesReport(tenantID, s.scope, sales, grants, filter, sort)
	return pagination.Paginate(entries, p), nil
}

func distinctTransactions(rows []*commerce.FeedCandidate) int {
	seen := make(map[uuid.UUID]struct{}, len(rows))
	for _, row := range rows {
		if row != nil {
			seen[row.Transaction.ID] = struct{}{}
		}
	}
	return len(seen)
}
