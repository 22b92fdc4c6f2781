package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/ticket-wallet-ledger/internal/domain/allocation"
	"github.com/ticket-wallet-ledger/internal/domain/shared"
	"github.com/ticket-wallet-ledger/internal/domain/wallet"
	"github.com/ticket-wallet-ledger/internal/wallet_processor/service"
)

// reservationNamespace seeds the name-based ids of allocations made for adjustment requests.
var reservationNamespace = uuid.MustParse("5b0c8f0e-3d57-4a8e-9a57-2f1f3c6e9d41")

// Allocator is the subset of allocations.Service the processor drives
type Allocator interface {
	Reserve(ctx context.Context, id uuid.UUID, tenantID, userID string, ticketID int64, quantity int) (*allocation.Allocation, error)
}

// reservationID is stable across redeliveries of one request.
func reservationID(request *shared.AdjustmentRequest) uuid.UUID {
	return uuid.NewSHA1(reservationNamespace, []byte(request.TenantID+"/"+idempotencyKey(request)))
}

type ReservationManagerImpl struct {
	allocator Allocator
	logger    *slog.Logger
}

func NewReservationManager(allocator Allocator, logger *slog.Logger) service.ReservationManager {
	return &ReservationManagerImpl{
		allocator: allocator,
		logger:    logger,
	}
}

func (m *ReservationManagerImpl) Reserve(ctx context.Context, request *shared.AdjustmentRequest, txn *wallet.Transaction) error {
	logger := m.logger
	if request.CorrelationID != "" {
		logger = m.logger.With("correlation_id", request.CorrelationID)
	}

	a, err := m.allocator.Reserve(ctx, reservationID(request), request.TenantID, request.UserID, request.TicketID, request.ReserveQuantity)
	if err != nil {
		return fmt.Errorf("reserving %d of ticket %d for %s: %w", request.ReserveQuantity, request.TicketID, request.UserID, err)
	}

	logger.Info("Reserved tickets",
		"allocation_id", a.ID.String(),
		"transaction_id", txn.ID.String(),
		"ticket_id", a.TicketID,
		"quantity", a.AllocatedQuantity,
	)
	return nil
}
