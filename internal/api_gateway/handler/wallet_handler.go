package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ticket-wallet-ledger/internal/api_gateway/middleware"
	"github.com/ticket-wallet-ledger/internal/api_gateway/service"
	"github.com/ticket-wallet-ledger/internal/billing/walletledger"
	"github.com/ticket-wallet-ledger/internal/domain/ledger"
	"github.com/ticket-wallet-ledger/internal/domain/shared"
	"github.com/ticket-wallet-ledger/internal/domain/wallet"
	"github.com/ticket-wallet-ledger/internal/pagination"
)

// WalletHandler handles HTTP requests for wallet operations
type WalletHandler struct {
	walletService     service.WalletService
	adjustmentService service.AdjustmentRequestService
	archiveService    service.ArchiveService
	logger            *slog.Logger
}

func NewWalletHandler(
	logger *slog.Logger,
	walletService service.WalletService,
	adjustmentService service.AdjustmentRequestService,
	archiveService service.ArchiveService,
) *WalletHandler {
	return &WalletHandler{
		walletService:     walletService,
		adjustmentService: adjustmentService,
		archiveService:    archiveService,
		logger:            logger,
	}
}

func walletKey(c *gin.Context) wallet.Key {
	return wallet.Key{
		TenantID: c.Param("tenant_id"),
		AppID:    c.Param("app_id"),
		UserID:   c.Param("user_id"),
	}
}

// GetBalance returns the wallet balance, 0 for a wallet that has never been written
func (h *WalletHandler) GetBalance(c *gin.Context) {
	key := walletKey(c)
	balance, err := h.walletService.GetBalance(c.Request.Context(), key)
	if err != nil {
		respondError(c, h.logger, "get_balance", err)
		return
	}

	RespondOK(c, BalanceResponse{
		TenantID: key.TenantID,
		AppID:    key.AppID,
		UserID:   key.UserID,
		Balance:  balance,
		Currency: wallet.DefaultCurrency,
	})
}

// Adjust applies an adjustment synchronously and returns the ledger transaction
func (h *WalletHandler) Adjust(c *gin.Context) {
	var req AdjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	txn, err := h.walletService.AdjustBalance(c.Request.Context(), walletledger.Adjustment{
		Key:             walletKey(c),
		Amount:          req.Amount,
		TransactionType: req.TransactionType,
		ReferenceType:   req.ReferenceType,
		ReferenceID:     req.ReferenceID,
		Description:     req.Description,
		Metadata:        req.Metadata,
		IdempotencyKey:  req.IdempotencyKey,
		CorrelationID:   middleware.GetCorrelationID(c),
	})
	if err != nil {
		respondError(c, h.logger, "adjust_balance", err)
		return
	}

	RespondCreated(c, txn)
}

// SubmitAdjustment queues an adjustment for the wallet processor
func (h *WalletHandler) SubmitAdjustment(c *gin.Context) {
	var req SubmitAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}

	key := walletKey(c)
	request := &shared.AdjustmentRequest{
		RequestID:       uuid.New(),
		TenantID:        key.TenantID,
		AppID:           key.AppID,
		UserID:          key.UserID,
		Amount:          req.Amount,
		TransactionType: req.TransactionType,
		ReferenceType:   req.ReferenceType,
		ReferenceID:     req.ReferenceID,
		Description:     req.Description,
		Metadata:        req.Metadata,
		IdempotencyKey:  req.IdempotencyKey,
		TicketID:        req.TicketID,
		ReserveQuantity: req.ReserveQuantity,
		CorrelationID:   middleware.GetCorrelationID(c),
		Timestamp:       time.Now().UTC(),
	}
	if err := request.Validate(); err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	if err := h.adjustmentService.SubmitAdjustment(c.Request.Context(), request); err != nil {
		h.logger.Error("Failed to submit adjustment request", "error", err)
		RespondInternalError(c)
		return
	}

	RespondAccepted(c, gin.H{
		"request_id":      request.RequestID.String(),
		"idempotency_key": request.IdempotencyKey,
		"status":          "PENDING",
	})
}

// VerifyChain walks the wallet's transaction log and reports the first inconsistency
func (h *WalletHandler) VerifyChain(c *gin.Context) {
	report, err := h.walletService.VerifyChain(c.Request.Context(), walletKey(c))
	if err != nil {
		respondError(c, h.logger, "verify_chain", err)
		return
	}
	RespondOK(c, report)
}

// GetArchivedTransaction returns a transaction from the audit archive, 404 until it has been published
func (h *WalletHandler) GetArchivedTransaction(c *gin.Context) {
	idParam := c.Param("transaction_id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	entry, err := h.archiveService.GetArchivedTransaction(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get archived transaction", "transaction_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}
	if entry == nil || entry.TenantID != c.Param("tenant_id") {
		RespondNotFound(c, "Transaction not found")
		return
	}

	RespondOK(c, mapEntryToResponse(entry))
}

// GetHistory pages through a wallet's archived transactions
func (h *WalletHandler) GetHistory(c *gin.Context) {
	idParam := c.Param("wallet_id")
	walletID, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid wallet ID")
		return
	}

	var q PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	page, err := h.archiveService.GetWalletHistory(c.Request.Context(), walletID, pagination.Params{Page: q.Page, PageSize: q.PageSize})
	if err != nil {
		h.logger.Error("Failed to get wallet history", "wallet_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	// All entries of a wallet share its tenant
	if len(page.Data) > 0 && page.Data[0].TenantID != c.Param("tenant_id") {
		RespondNotFound(c, "Wallet not found")
		return
	}

	out := make([]ArchivedTransactionResponse, 0, len(page.Data))
	for _, entry := range page.Data {
		out = append(out, mapEntryToResponse(entry))
	}

	RespondWithPage(c, pagination.Page[ArchivedTransactionResponse]{
		Data:       out,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	})
}

func mapEntryToResponse(entry *ledger.Entry) ArchivedTransactionResponse {
	response := ArchivedTransactionResponse{
		TransactionID:   entry.TransactionID.String(),
		WalletID:        entry.WalletID.String(),
		TransactionType: entry.TransactionType,
		Amount:          entry.Amount,
		BalanceBefore:   entry.BalanceBefore,
		BalanceAfter:    entry.BalanceAfter,
		ReferenceType:   entry.ReferenceType,
		ReferenceID:     entry.ReferenceID,
		CreatedAt:       entry.CreatedAt.Format(time.RFC3339),
	}
	if entry.ArchivedAt != nil {
		response.ArchivedAt = entry.ArchivedAt.Format(time.RFC3339)
	}
	return response
}
