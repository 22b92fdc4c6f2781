package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/ticket-wallet-ledger/internal/api_gateway/service"
	"github.com/ticket-wallet-ledger/internal/billing/reconciliation"
	"github.com/ticket-wallet-ledger/internal/domain/commerce"
	"github.com/ticket-wallet-ledger/internal/pagination"
)

// ReconciliationHandler serves the tenant transaction feed and sales report
type ReconciliationHandler struct {
	reconciliationService service.ReconciliationService
	logger                *slog.Logger
}

func NewReconciliationHandler(logger *slog.Logger, reconciliationService service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciliationService: reconciliationService,
		logger:                logger,
	}
}

// ListTransactions returns the tenant's wallet transactions joined to their orders
func (h *ReconciliationHandler) ListTransactions(c *gin.Context) {
	var q FeedQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	from, err := parseBound(q.From, false)
	if err != nil {
		RespondBadRequest(c, "Invalid from date")
		return
	}
	to, err := parseBound(q.To, true)
	if err != nil {
		RespondBadRequest(c, "Invalid to date")
		return
	}

	filter := commerce.FeedFilter{UserID: q.UserID, TransactionType: q.TransactionType, From: from, To: to}
	page, err := h.reconciliationService.ListWalletTransactions(c.Request.Context(), c.Param("tenant_id"), filter,
		pagination.Params{Page: q.Page, PageSize: q.PageSize})
	if err != nil {
		respondError(c, h.logger, "list_wallet_transactions", err)
		return
	}
	RespondWithPage(c, page)
}

// SalesReport returns completed purchases and active email grants of the tenant's tickets
func (h *ReconciliationHandler) SalesReport(c *gin.Context) {
	var q SalesReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	sort, err := reconciliation.ParseSort(q.SortBy, q.SortOrder)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}
	from, err := parseBound(q.From, false)
	if err != nil {
		RespondBadRequest(c, "Invalid from date")
		return
	}
	to, err := parseBound(q.To, true)
	if err != nil {
		RespondBadRequest(c, "Invalid to date")
		return
	}

	filter := commerce.SalesFilter{
		Type:     commerce.EntryType(q.Type),
		TicketID: q.TicketID,
		Email:    q.Email,
		From:     from,
		To:       to,
	}
	page, err := h.reconciliationService.SalesReport(c.Request.Context(), c.Param("tenant_id"), filter, sort,
		pagination.Params{Page: q.Page, PageSize: q.PageSize})
	if err != nil {
		respondError(c, h.logger, "sales_report", err)
		return
	}
	RespondWithPage(c, page)
}
