// Package postgres provides PostgreSQL implementations of the domain repositories:
// the wallet ledger store, allocations, the transactional outbox and the read-only
// reconciliation queries over orders, tickets and grants.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/ticket-wallet-ledger/internal/domain/wallet"
	"github.com/ticket-wallet-ledger/internal/platform/persistence"
)

// WalletRepository implements the wallet.Repository interface for PostgreSQL
type WalletRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewWalletRepository creates a new PostgreSQL wallet repository.
func NewWalletRepository(logger *slog.Logger, db *persistence.PostgresDB) wallet.Repository {
	return &WalletRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx, so balance writes and transaction appends
// commit or roll back together.
func (r *WalletRepository) WithTx(tx pgx.Tx) wallet.Repository {
	return &WalletRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const walletColumns = `id, tenant_id, app_id, user_id, ticket_balance, currency, version, created_at, updated_at`

func scanWallet(row pgx.Row) (*wallet.Wallet, error) {
	var w wallet.Wallet
	err := row.Scan(
		&w.ID,
		&w.TenantID,
		&w.AppID,
		&w.UserID,
		&w.TicketBalance,
		&w.Currency,
		&w.Version,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetByKey reads a wallet without locking it.
func (r *WalletRepository) GetByKey(ctx context.Context, key wallet.Key) (*wallet.Wallet, error) {
	query := `
		SELECT ` + walletColumns + `
		FROM wallets
		WHERE tenant_id = $1 AND app_id = $2 AND user_id = $3
	`

	w, err := scanWallet(r.querier.QueryRow(ctx, query, key.TenantID, key.AppID, key.UserID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound{Key: key}
		}
		r.logger.Error("Failed to get wallet", "wallet", key.String(), "error", err)
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return w, nil
}

// LockForUpdate obtains a row lock on the wallet and returns its current state.
// Concurrent adjustments of the same wallet queue behind this lock.
func (r *WalletRepository) LockForUpdate(ctx context.Context, key wallet.Key) (*wallet.Wallet, error) {
	query := `
		SELECT ` + walletColumns + `
		FROM wallets
		WHERE tenant_id = $1 AND app_id = $2 AND user_id = $3
		FOR UPDATE
	`

	w, err := scanWallet(r.querier.QueryRow(ctx, query, key.TenantID, key.AppID, key.UserID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound{Key: key}
		}
		r.logger.Error("Failed to lock wallet for update", "wallet", key.String(), "error", err)
		return nil, fmt.Errorf("failed to lock wallet for update: %w", err)
	}
	return w, nil
}

// Create inserts w. A concurrent insert of the same key wins silently and Create reports false.
func (r *WalletRepository) Create(ctx context.Context, w *wallet.Wallet) (bool, error) {
	query := `
		INSERT INTO wallets (id, tenant_id, app_id, user_id, ticket_balance, currency, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (tenant_id, app_id, user_id) DO NOTHING
	`

	result, err := r.querier.Exec(ctx, query,
		w.ID,
		w.TenantID,
		w.AppID,
		w.UserID,
		w.TicketBalance,
		w.Currency,
		w.Version,
		w.CreatedAt,
		w.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create wallet", "wallet", w.Key().String(), "error", err)
		return false, fmt.Errorf("failed to create wallet: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// UpdateBalance sets the balance of a locked wallet. The version guard turns any write that
// slipped past the row lock into ErrConcurrentModification.
func (r *WalletRepository) UpdateBalance(ctx context.Context, id uuid.UUID, newBalance int64, version int) error {
	query := `
		UPDATE wallets
		SET ticket_balance = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
	`

	result, err := r.querier.Exec(ctx, query, newBalance, id, version)
	if err != nil {
		r.logger.Error("Failed to update wallet balance", "id", id.String(), "error", err)
		return fmt.Errorf("failed to update wallet balance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return wallet.ErrConcurrentModification{WalletID: id}
	}

	return nil
}

// AppendTransaction writes an immutable ledger entry.
func (r *WalletRepository) AppendTransaction(ctx context.Context, tx *wallet.Transaction) error {
	query := `
		INSERT INTO wallet_transactions (
			id, wallet_id, tenant_id, app_id, user_id, amount, balance_before, balance_after,
			transaction_type, reference_type, reference_id, order_id, description, metadata,
			idempotency_key, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''), $12, NULLIF($13, ''), $14, NULLIF($15, ''), $16)
	`

	metadata, err := encodeMetadata(tx.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode transaction metadata: %w", err)
	}

	_, err = r.querier.Exec(ctx, query,
		tx.ID,
		tx.WalletID,
		tx.TenantID,
		tx.AppID,
		tx.UserID,
		tx.Amount,
		tx.BalanceBefore,
		tx.BalanceAfter,
		tx.TransactionType,
		tx.ReferenceType,
		tx.ReferenceID,
		tx.OrderID,
		tx.Description,
		metadata,
		tx.IdempotencyKey,
		tx.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to append wallet transaction",
			"transaction_id", tx.ID.String(),
			"wallet_id", tx.WalletID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to append wallet transaction: %w", err)
	}

	return nil
}

const transactionColumns = `id, wallet_id, tenant_id, app_id, user_id, amount, balance_before, balance_after,
		transaction_type, COALESCE(reference_type, ''), COALESCE(reference_id, ''), order_id,
		COALESCE(description, ''), metadata, COALESCE(idempotency_key, ''), created_at`

func scanTransaction(row pgx.Row) (*wallet.Transaction, error) {
	var (
		tx       wallet.Transaction
		metadata []byte
	)
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
	)
	if err != nil {
		return nil, err
	}
	if tx.Metadata, err = decodeMetadata(metadata); err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetTransactionByIdempotencyKey returns the transaction already recorded for key on the
// wallet, or nil when there is none.
func (r *WalletRepository) GetTransactionByIdempotencyKey(ctx context.Context, walletID uuid.UUID, key string) (*wallet.Transaction, error) {
	if key == "" {
		return nil, nil
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM wallet_transactions
		WHERE wallet_id = $1 AND idempotency_key = $2
	`

	tx, err := scanTransaction(r.querier.QueryRow(ctx, query, walletID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get wallet transaction by idempotency key",
			"wallet_id", walletID.String(),
			"idempotency_key", key,
			"error", err,
		)
		return nil, fmt.Errorf("failed to get wallet transaction by idempotency key: %w", err)
	}
	return tx, nil
}

// ListTransactions returns every transaction of the wallet in chain order.
func (r *WalletRepository) ListTransactions(ctx context.Context, walletID uuid.UUID) ([]*wallet.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY seq ASC
	`

	rows, err := r.querier.Query(ctx, query, walletID)
	if err != nil {
		r.logger.Error("Failed to list wallet transactions", "wallet_id", walletID.String(), "error", err)
		return nil, fmt.Errorf("failed to list wallet transactions: %w", err)
	}
	defer rows.Close()

	var txs []*wallet.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			r.logger.Error("Failed to scan wallet transaction", "error", err)
			return nil, fmt.Errorf("failed to scan wallet transaction: %w", err)
		}
		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over wallet transactions", "error", err)
		return nil, fmt.Errorf("error iterating over wallet transactions: %w", err)
	}

	return txs, nil
}

func encodeMetadata(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func decodeMetadata(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to decode transaction metadata: %w", err)
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}
