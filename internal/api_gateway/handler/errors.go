package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/ticket-wallet-ledger/internal/billing/reconciliation"
	"github.com/ticket-wallet-ledger/internal/domain/allocation"
	"github.com/ticket-wallet-ledger/internal/domain/wallet"
)

// respondError maps domain errors onto HTTP responses; anything unrecognised is a 500.
func respondError(c *gin.Context, logger *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, wallet.ErrInsufficientBalance):
		RespondUnprocessable(c, "INSUFFICIENT_BALANCE", err.Error())
	case errors.Is(err, reconciliation.ErrScanLimitExceeded):
		RespondUnprocessable(c, "SCAN_LIMIT_EXCEEDED", err.Error())
	case errors.Is(err, wallet.ErrInvalidAmount),
		errors.Is(err, wallet.ErrInvalidKey),
		errors.Is(err, allocation.ErrInvalidQuantity),
		errors.Is(err, allocation.ErrInvalidStatus),
		errors.Is(err, allocation.ErrInvalidScope),
		errors.Is(err, allocation.ErrInvalidTicket),
		errors.Is(err, reconciliation.ErrInvalidSortKey),
		errors.Is(err, reconciliation.ErrInvalidSortOrder),
		errors.Is(err, reconciliation.ErrInvalidEntryType):
		RespondBadRequest(c, err.Error())
	case errors.Is(err, allocation.ErrAllocationTerminal),
		errors.Is(err, allocation.ErrInvalidTransition),
		errors.Is(err, wallet.ErrConcurrentModification{}):
		RespondConflict(c, err.Error())
	default:
		logger.Error("Request failed", "operation", op, "error", err)
		RespondInternalError(c)
	}
}
