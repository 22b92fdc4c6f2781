package outbox

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/ticket-wallet-ledger/internal/domain/shared"
)

// Repository stores wallet outbox messages. Create is called inside the wallet transaction
// through WithTx; the remaining methods serve the poller.
type Repository interface {
	Create(ctx context.Context, message *Message) error

	// GetPending returns up to limit PENDING messages, oldest first.
	GetPending(ctx context.Context, limit int) ([]*Message, error)
	UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error
	IncrementAttempts(ctx context.Context, id int64) error
	GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*Message, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrMessageNotFound is returned for an unknown outbox id. A zero ID in the target
// matches any missing message.
type ErrMessageNotFound struct {
	ID int64
}

func (e ErrMessageNotFound) Error() string {
	return fmt.Sprintf("outbox message %d not found", e.ID)
}

func (e ErrMessageNotFound) Is(target error) bool {
	t, ok := target.(ErrMessageNotFound)
	return ok && (t.ID == 0 || t.ID == e.ID)
}
