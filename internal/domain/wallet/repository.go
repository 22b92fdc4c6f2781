package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository is the ledger store. It never creates wallets implicitly: reads of a missing
// wallet return ErrWalletNotFound and Create is an explicit insert.
type Repository interface {
	GetByKey(ctx context.Context, key Key) (*Wallet, error)

	// LockForUpdate acquires a row lock on the wallet for the rest of the transaction
	LockForUpdate(ctx context.Context, key Key) (*Wallet, error)

	// Create inserts the wallet; it reports false when a wallet with the same key already exists
	Create(ctx context.Context, w *Wallet) (bool, error)

	// UpdateBalance writes the new balance if the stored version still matches
	UpdateBalance(ctx context.Context, id uuid.UUID, newBalance int64, version int) error

	AppendTransaction(ctx context.Context, tx *Transaction) error
	GetTransactionByIdempotencyKey(ctx context.Context, walletID uuid.UUID, key string) (*Transaction, error)
	ListTransactions(ctx context.Context, walletID uuid.UUID) ([]*Transaction, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	WalletID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for wallet: " + e.WalletID.String()
}

// Is implements the errors.Is interface for ErrConcurrentModification
func (e ErrConcurrentModification) Is(target error) bool {
	t, ok := target.(ErrConcurrentModification)
	if !ok {
		return false
	}
	return t.WalletID == uuid.Nil || t.WalletID == e.WalletID
}

// ErrWalletNotFound indicates missing wallet
type ErrWalletNotFound struct {
	Key Key
}

func (e ErrWalletNotFound) Error() string {
	return "wallet not found: " + e.Key.String()
}

// Is implements the errors.Is interface for ErrWalletNotFound
func (e ErrWalletNotFound) Is(target error) bool {
	t, ok := target.(ErrWalletNotFound)
	if !ok {
		return false
	}
	return t.Key == (Key{}) || t.Key == e.Key
}
