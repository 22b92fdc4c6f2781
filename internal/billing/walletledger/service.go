// Package walletledger moves wallet balances. Every adjustment runs in one database
// transaction that locks the wallet row, checks the non-negative balance invariant, writes
// the new balance, appends the transaction and enqueues it for publication.
package walletledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/ticket-wallet-ledger/internal/domain/commerce"
	"github.com/ticket-wallet-ledger/internal/domain/ledger"
	"github.com/ticket-wallet-ledger/internal/domain/outbox"
	"github.com/ticket-wallet-ledger/internal/domain/reference"
	"github.com/ticket-wallet-ledger/internal/domain/wallet"
	"github.com/ticket-wallet-ledger/internal/platform/persistence"
	"github.com/ticket-wallet-ledger/internal/scope"
)

// Adjustment is a signed change to one wallet's balance.
type Adjustment struct {
	Key             wallet.Key
	Amount          int64
	TransactionType string
	ReferenceType   string
	ReferenceID     string
	Description     string
	Metadata        map[string]any
	IdempotencyKey  string
	CorrelationID   string
}

// ChainReport is the result of walking a wallet's transaction log.
type ChainReport struct {
	WalletID     uuid.UUID          `json:"wallet_id"`
	Balance      int64              `json:"balance"`
	Transactions int                `json:"transactions"`
	Valid        bool               `json:"valid"`
	Break        *wallet.ChainBreak `json:"break,omitempty"`
}

type Service struct {
	db         persistence.TxBeginner
	walletRepo wallet.Repository
	outboxRepo outbox.Repository
	orders     commerce.OrderReader
	scope      scope.Resolution
	logger     *slog.Logger
}

func NewService(
	db persistence.TxBeginner,
	walletRepo wallet.Repository,
	outboxRepo outbox.Repository,
	orders commerce.OrderReader,
	res scope.Resolution,
	logger *slog.Logger,
) *Service {
	return &Service{
		db:         db,
		walletRepo: walletRepo,
		outboxRepo: outboxRepo,
		orders:     orders,
		scope:      res,
		logger:     logger,
	}
}

// AdjustBalance applies adj atomically and returns the recorded transaction. A debit that
// would leave the wallet negative fails with wallet.InsufficientBalanceError and writes
// nothing. When adj carries an idempotency key already recorded on the wallet, the stored
// transaction is returned instead.
func (s *Service) AdjustBalance(ctx context.Context, adj Adjustment) (*wallet.Transaction, error) {
	logger := s.logger
	if adj.CorrelationID != "" {
		logger = s.logger.With("correlation_id", adj.CorrelationID)
	}

	if err := adj.Key.Validate(); err != nil {
		return nil, err
	}
	if adj.Amount == 0 {
		return nil, wallet.ErrInvalidAmount
	}

	var result *wallet.Transaction
	err := persistence.RunInTx(ctx, s.db, func(tx pgx.Tx) error {
		walletRepoTx := s.walletRepo.WithTx(tx)

		w, err := s.getOrCreateWallet(ctx, walletRepoTx, adj.Key)
		if err != nil {
			return err
		}

		if adj.IdempotencyKey != "" {
			existing, err := walletRepoTx.GetTransactionByIdempotencyKey(ctx, w.ID, adj.IdempotencyKey)
			if err != nil {
				return err
			}
			if existing != nil {
				logger.Info("Adjustment already recorded", "wallet", adj.Key.String(), "transaction_id", existing.ID.String(), "idempotency_key", adj.IdempotencyKey)
				result = existing
				return nil
			}
		}

		before, after, err := w.Preview(adj.Amount)
		if err != nil {
			logger.Warn("Adjustment rejected", "wallet", adj.Key.String(), "bal", w.TicketBalance, "amt", adj.Amount, "error", err)
			return err
		}

		if err := walletRepoTx.UpdateBalance(ctx, w.ID, after, w.Version); err != nil {
			return err
		}

		txn := &wallet.Transaction{
			ID:              uuid.New(),
			WalletID:        w.ID,
			TenantID:        w.TenantID,
			AppID:           w.AppID,
			UserID:          w.UserID,
			Amount:          adj.Amount,
			BalanceBefore:   before,
			BalanceAfter:    after,
			TransactionType: adj.TransactionType,
			ReferenceType:   adj.ReferenceType,
			ReferenceID:     adj.ReferenceID,
			Description:     adj.Description,
			Metadata:        adj.Metadata,
			IdempotencyKey:  adj.IdempotencyKey,
			CreatedAt:       time.Now().UTC(),
		}

		orderID, err := s.resolveOrder(ctx, tx, w, reference.Parse(adj.ReferenceType, adj.ReferenceID))
		if err != nil {
			return err
		}
		txn.OrderID = orderID

		if err := walletRepoTx.AppendTransaction(ctx, txn); err != nil {
			return err
		}

		msg, err := outbox.NewMessage(ledger.NewEntry(txn, adj.CorrelationID))
		if err != nil {
			return fmt.Errorf("failed to create outbox message payload for tx %s: %w", txn.ID.String(), err)
		}
		if err := s.outboxRepo.WithTx(tx).Create(ctx, msg); err != nil {
			return err
		}

		result = txn
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Wallet adjusted",
		"wallet", adj.Key.String(),
		"transaction_id", result.ID.String(),
		"before", result.BalanceBefore,
		"after", result.BalanceAfter,
	)
	return result, nil
}

// getOrCreateWallet locks the wallet for key, inserting an empty one first if needed.
// A concurrent insert of the same key is absorbed by the second lock.
func (s *Service) getOrCreateWallet(ctx context.Context, repo wallet.Repository, key wallet.Key) (*wallet.Wallet, error) {
	w, err := repo.LockForUpdate(ctx, key)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, wallet.ErrWalletNotFound{}) {
		return nil, err
	}

	created, err := repo.Create(ctx, wallet.NewWallet(key))
	if err != nil {
		return nil, err
	}
	if created {
		s.logger.Info("Wallet created", "wallet", key.String())
	}

	return repo.LockForUpdate(ctx, key)
}

// resolveOrder turns an order reference into an order id when the order exists and was
// written under the wallet's app or the public app. Other references resolve to nil.
func (s *Service) resolveOrder(ctx context.Context, tx pgx.Tx, w *wallet.Wallet, ref reference.Reference) (*int64, error) {
	id, ok := ref.OrderID()
	if !ok || s.orders == nil {
		return nil, nil
	}
	o, err := s.orders.WithTx(tx).GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil || !s.scope.AppMatches(w.AppID, o.AppID) {
		return nil, nil
	}
	return &o.ID, nil
}

// GetBalance reads the balance without creating the wallet. A missing wallet has balance 0.
func (s *Service) GetBalance(ctx context.Context, key wallet.Key) (int64, error) {
	if err := key.Validate(); err != nil {
		return 0, err
	}
	w, err := s.walletRepo.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound{}) {
			return 0, nil
		}
		return 0, err
	}
	return w.TicketBalance, nil
}

// VerifyChain walks the wallet's transactions in order and reports the first link that
// breaks the balance chain. A missing wallet is an empty, valid chain.
func (s *Service) VerifyChain(ctx context.Context, key wallet.Key) (*ChainReport, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	w, err := s.walletRepo.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound{}) {
			return &ChainReport{Valid: true}, nil
		}
		return nil, err
	}

	txs, err := s.walletRepo.ListTransactions(ctx, w.ID)
	if err != nil {
		return nil, err
	}

	report := &ChainReport{
		WalletID:     w.ID,
		Balance:      w.TicketBalance,
		Transactions: len(txs),
	}
	report.Break = wallet.VerifyChain(txs, &w.TicketBalance)
	report.Valid = report.Break == nil
	if !report.Valid {
		s.logger.Error("Wallet chain broken", "wallet", key.String(), "index", report.Break.Index, "reason", report.Break.Reason)
	}
	return report, nil
}
