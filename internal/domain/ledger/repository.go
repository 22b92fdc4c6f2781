package ledger

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the append-only archive of published wallet transactions. Entries are
// keyed by transaction id, so archiving the same transaction twice is detectable.
type Repository interface {
	EnsureIndexes(ctx context.Context) error

	// Create fails with ErrDuplicateEntry when the transaction is already archived.
	Create(ctx context.Context, entry *Entry) error
	GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*Entry, error)

	// GetByWalletID returns a wallet's entries newest first.
	GetByWalletID(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*Entry, error)
	CountByWalletID(ctx context.Context, walletID uuid.UUID) (int64, error)
}

// ErrEntryNotFound means the transaction has not been archived (yet).
type ErrEntryNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "wallet transaction not archived: " + e.TransactionID.String()
}

// Is matches any ErrEntryNotFound when the target carries no transaction id.
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	return ok && sameTransaction(t.TransactionID, e.TransactionID)
}

// ErrDuplicateEntry means the transaction is already in the archive.
type ErrDuplicateEntry struct {
	TransactionID uuid.UUID
}

func (e ErrDuplicateEntry) Error() string {
	return "wallet transaction already archived: " + e.TransactionID.String()
}

func (e ErrDuplicateEntry) Is(target error) bool {
	t, ok := target.(ErrDuplicateEntry)
	return ok && sameTransaction(t.TransactionID, e.TransactionID)
}

func sameTransaction(want, got uuid.UUID) bool {
	return want == uuid.Nil || want == got
}
