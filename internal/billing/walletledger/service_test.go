package walletledger

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ticket-wallet-ledger/internal/domain/commerce"
	"github.com/ticket-wallet-ledger/internal/domain/outbox"
	"github.com/ticket-wallet-ledger/internal/domain/shared"
	"github.com/ticket-wallet-ledger/internal/domain/wallet"
	"github.com/ticket-wallet-ledger/internal/scope"
)

type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) GetByKey(ctx context.Context, key wallet.Key) (*wallet.Wallet, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWalletRepository) LockForUpdate(ctx context.Context, key wallet.Key) (*wallet.Wallet, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWalletRepository) Create(ctx context.Context, w *wallet.Wallet) (bool, error) {
	args := m.Called(ctx, w)
	return args.Bool(0), args.Error(1)
}

func (m *MockWalletRepository) UpdateBalance(ctx context.Context, id uuid.UUID, newBalance int64, version int) error {
	args := m.Called(ctx, id, newBalance, version)
	return args.Error(0)
}

func (m *MockWalletRepository) AppendTransaction(ctx context.Context, tx *wallet.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockWalletRepository) GetTransactionByIdempotencyKey(ctx context.Context, walletID uuid.UUID, key string) (*wallet.Transaction, error) {
	args := m.Called(ctx, walletID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}

func (m *MockWalletRepository) ListTransactions(ctx context.Context, walletID uuid.UUID) ([]*wallet.Transaction, error) {
	args := m.Called(ctx, walletID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*wallet.Transaction), args.Error(1)
}

func (m *MockWalletRepository) WithTx(tx pgx.Tx) wallet.Repository {
	return m
}

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*outbox.Message, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	return m
}

type MockOrderReader struct {
	mock.Mock
}

func (m *MockOrderReader) GetOrder(ctx context.Context, id int64) (*commerce.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*commerce.Order), args.Error(1)
}

func (m *MockOrderReader) WithTx(tx pgx.Tx) commerce.OrderReader {
	return m
}

type fixture struct {
	db      pgxmock.PgxPoolIface
	wallets *MockWalletRepository
	outbox  *MockOutboxRepository
	orders  *MockOrderReader
	service *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(db.Close)

	f := &fixture{
		db:      db,
		wallets: new(MockWalletRepository),
		outbox:  new(MockOutboxRepository),
		orders:  new(MockOrderReader),
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f.service = NewService(db, f.wallets, f.outbox, f.orders, scope.Resolution{PublicAppID: "public", SystemTenantID: "system"}, logger)
	return f
}

func (f *fixture) assertExpectations(t *testing.T) {
	t.Helper()
	f.wallets.AssertExpectations(t)
	f.outbox.AssertExpectations(t)
	f.orders.AssertExpectations(t)
	assert.NoError(t, f.db.ExpectationsWereMet())
}

var testKey = wallet.Key{TenantID: "acme", AppID: "app-1", UserID: "u-1"}

func walletWithBalance(balance int64) *wallet.Wallet {
	w := wallet.NewWallet(testKey)
	w.TicketBalance = balance
	return w
}

func TestService_AdjustBalance_CreatesWalletOnFirstCredit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	fresh := walletWithBalance(0)

	f.db.ExpectBegin()
	f.wallets.On("LockForUpdate", ctx, testKey).Return(nil, wallet.ErrWalletNotFound{Key: testKey}).Once()
	f.wallets.On("Create", ctx, mock.MatchedBy(func(w *wallet.Wallet) bool {
		return w.Key() == testKey && w.TicketBalance == 0
	})).Return(true, nil).Once()
	f.wallets.On("LockForUpdate", ctx, testKey).Return(fresh, nil).Once()
	f.wallets.On("UpdateBalance", ctx, fresh.ID, int64(10), fresh.Version).Return(nil).Once()
	f.wallets.On("AppendTransaction", ctx, mock.AnythingOfType("*wallet.Transaction")).Return(nil).Once()
	f.outbox.On("Create", ctx, mock.MatchedBy(func(m *outbox.Message) bool {
		entry, err := m.Entry()
		return err == nil && entry.BalanceAfter == 10 && entry.CorrelationID == "corr-1"
	})).Return(nil).Once()
	f.db.ExpectCommit()

	txn, err := f.service.AdjustBalance(ctx, Adjustment{
		Key:             testKey,
		Amount:          10,
		TransactionType: shared.TransactionTypePurchase,
		CorrelationID:   "corr-1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), txn.BalanceBefore)
	assert.Equal(t, int64(10), txn.BalanceAfter)
	assert.Equal(t, fresh.ID, txn.WalletID)
	assert.Nil(t, txn.OrderID)
	f.assertExpectations(t)
}

func TestService_AdjustBalance_InsufficientBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w := walletWithBalance(10)

	f.db.ExpectBegin()
	f.wallets.On("LockForUpdate", ctx, testKey).Return(w, nil).Once()
	f.db.ExpectRollback()

	txn, err := f.service.AdjustBalance(ctx, Adjustment{Key: testKey, Amount: -15, TransactionType: shared.TransactionTypeConsume})
	assert.Nil(t, txn)
	assert.ErrorIs(t, err, wallet.ErrInsufficientBalance)
	assert.ErrorIs(t, err, wallet.InsufficientBalanceError{Available: 10, Requested: 15})
	assert.Equal(t, int64(10), w.TicketBalance)
	f.wallets.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.wallets.AssertNotCalled(t, "AppendTransaction", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestService_AdjustBalance_CreditOverflowIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w := walletWithBalance(math.MaxInt64 - 1)

	f.db.ExpectBegin()
	f.wallets.On("LockForUpdate", ctx, testKey).Return(w, nil).Once()
	f.db.ExpectRollback()

	txn, err := f.service.AdjustBalance(ctx, Adjustment{Key: testKey, Amount: 5, TransactionType: shared.TransactionTypePurchase})
	assert.Nil(t, txn)
	assert.ErrorIs(t, err, wallet.ErrInvalidAmount)
	assert.NotErrorIs(t, err, wallet.ErrInsufficientBalance)
	assert.Equal(t, int64(math.MaxInt64-1), w.TicketBalance)
	f.wallets.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestService_AdjustBalance_DebitToExactlyZero(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w := walletWithBalance(10)

	f.db.ExpectBegin()
	f.wallets.On("LockForUpdate", ctx, testKey).Return(w, nil).Once()
	f.wallets.On("UpdateBalance", ctx, w.ID, int64(0), w.Version).Return(nil).Once()
	f.wallets.On("AppendTransaction", ctx, mock.AnythingOfType("*wallet.Transaction")).Return(nil).Once()
	f.outbox.On("Create", ctx, mock.AnythingOfType("*outbox.Message")).Return(nil).Once()
	f.db.ExpectCommit()

	txn, err := f.service.AdjustBalance(ctx, Adjustment{Key: testKey, Amount: -10, TransactionType: shared.TransactionTypeConsume})
	require.NoError(t, err)
	assert.Equal(t, int64(10), txn.BalanceBefore)
	assert.Equal(t, int64(0), txn.BalanceAfter)
	f.assertExpectations(t)
}

func TestService_AdjustBalance_IdempotentReplay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w := walletWithBalance(10)
	recorded := &wallet.Transaction{ID: uuid.New(), WalletID: w.ID, Amount: 10, BalanceBefore: 0, BalanceAfter: 10, IdempotencyKey: "order-12"}

	f.db.ExpectBegin()
	f.wallets.On("LockForUpdate", ctx, testKey).Return(w, nil).Once()
	f.wallets.On("GetTransactionByIdempotencyKey", ctx, w.ID, "order-12").Return(recorded, nil).Once()
	f.db.ExpectCommit()

	txn, err := f.service.AdjustBalance(ctx, Adjustment{Key: testKey, Amount: 10, TransactionType: shared.TransactionTypePurchase, IdempotencyKey: "order-12"})
	require.NoError(t, err)
	assert.Equal(t, recorded, txn)
	f.wallets.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.outbox.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestService_AdjustBalance_ResolvesOrderReference(t *testing.T) {
	tests := []struct {
		name    string
		order   *commerce.Order
		wantRef bool
	}{
		{name: "public app order", order: &commerce.Order{ID: 7, AppID: "public"}, wantRef: true},
		{name: "same app order", order: &commerce.Order{ID: 7, AppID: "app-1"}, wantRef: true},
		{name: "foreign app order", order: &commerce.Order{ID: 7, AppID: "other"}, wantRef: false},
		{name: "missing order", order: nil, wantRef: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			w := walletWithBalance(5)

			f.db.ExpectBegin()
			f.wallets.On("LockForUpdate", ctx, testKey).Return(w, nil).Once()
			f.wallets.On("UpdateBalance", ctx, w.ID, int64(4), w.Version).Return(nil).Once()
			if tt.order == nil {
				f.orders.On("GetOrder", ctx, int64(7)).Return(nil, nil).Once()
			} else {
				f.orders.On("GetOrder", ctx, int64(7)).Return(tt.order, nil).Once()
			}
			f.wallets.On("AppendTransaction", ctx, mock.AnythingOfType("*wallet.Transaction")).Return(nil).Once()
			f.outbox.On("Create", ctx, mock.AnythingOfType("*outbox.Message")).Return(nil).Once()
			f.db.ExpectCommit()

			txn, err := f.service.AdjustBalance(ctx, Adjustment{
				Key:             testKey,
				Amount:          -1,
				TransactionType: shared.TransactionTypeConsume,
				ReferenceType:   shared.ReferenceTypeTicketPurchase,
				ReferenceID:     "7",
			})
			require.NoError(t, err)
			if tt.wantRef {
				require.NotNil(t, txn.OrderID)
				assert.Equal(t, int64(7), *txn.OrderID)
			} else {
				assert.Nil(t, txn.OrderID)
			}
			f.assertExpectations(t)
		})
	}
}

func TestService_AdjustBalance_ConcurrentModificationRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w := walletWithBalance(5)
	conflict := wallet.ErrConcurrentModification{WalletID: w.ID}

	f.db.ExpectBegin()
	f.wallets.On("LockForUpdate", ctx, testKey).Return(w, nil).Once()
	f.wallets.On("UpdateBalance", ctx, w.ID, int64(8), w.Version).Return(conflict).Once()
	f.db.ExpectRollback()

	_, err := f.service.AdjustBalance(ctx, Adjustment{Key: testKey, Amount: 3, TransactionType: shared.TransactionTypeRefund})
	assert.ErrorIs(t, err, wallet.ErrConcurrentModification{})
	f.assertExpectations(t)
}

func TestService_AdjustBalance_OutboxFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w := walletWithBalance(5)
	dbErr := errors.New("outbox insert failed")

	f.db.ExpectBegin()
	f.wallets.On("LockForUpdate", ctx, testKey).Return(w, nil).Once()
	f.wallets.On("UpdateBalance", ctx, w.ID, int64(6), w.Version).Return(nil).Once()
	f.wallets.On("AppendTransaction", ctx, mock.AnythingOfType("*wallet.Transaction")).Return(nil).Once()
	f.outbox.On("Create", ctx, mock.AnythingOfType("*outbox.Message")).Return(dbErr).Once()
	f.db.ExpectRollback()

	_, err := f.service.AdjustBalance(ctx, Adjustment{Key: testKey, Amount: 1, TransactionType: shared.TransactionTypeAdjustment})
	assert.ErrorIs(t, err, dbErr)
	f.assertExpectations(t)
}

func TestService_AdjustBalance_RejectsBeforeTransaction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.AdjustBalance(ctx, Adjustment{Key: testKey, Amount: 0, TransactionType: shared.TransactionTypeAdjustment})
	assert.ErrorIs(t, err, wallet.ErrInvalidAmount)

	_, err = f.service.AdjustBalance(ctx, Adjustment{Key: wallet.Key{TenantID: "acme"}, Amount: 1})
	assert.ErrorIs(t, err, wallet.ErrInvalidKey)

	f.assertExpectations(t)
}

func TestService_GetBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("missing wallet reads zero", func(t *testing.T) {
		f := newFixture(t)
		f.wallets.On("GetByKey", ctx, testKey).Return(nil, wallet.ErrWalletNotFound{Key: testKey}).Once()

		bal, err := f.service.GetBalance(ctx, testKey)
		require.NoError(t, err)
		assert.Equal(t, int64(0), bal)
		f.wallets.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("existing wallet", func(t *testing.T) {
		f := newFixture(t)
		f.wallets.On("GetByKey", ctx, testKey).Return(walletWithBalance(42), nil).Once()

		bal, err := f.service.GetBalance(ctx, testKey)
		require.NoError(t, err)
		assert.Equal(t, int64(42), bal)
		f.assertExpectations(t)
	})
}

func TestService_VerifyChain(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("intact chain", func(t *testing.T) {
		f := newFixture(t)
		w := walletWithBalance(7)
		txs := []*wallet.Transaction{
			{ID: uuid.New(), Amount: 10, BalanceBefore: 0, BalanceAfter: 10, CreatedAt: now},
			{ID: uuid.New(), Amount: -3, BalanceBefore: 10, BalanceAfter: 7, CreatedAt: now.Add(time.Second)},
		}
		f.wallets.On("GetByKey", ctx, testKey).Return(w, nil).Once()
		f.wallets.On("ListTransactions", ctx, w.ID).Return(txs, nil).Once()

		report, err := f.service.VerifyChain(ctx, testKey)
		require.NoError(t, err)
		assert.True(t, report.Valid)
		assert.Equal(t, 2, report.Transactions)
		assert.Nil(t, report.Break)
		f.assertExpectations(t)
	})

	t.Run("balance drift", func(t *testing.T) {
		f := newFixture(t)
		w := walletWithBalance(9)
		txs := []*wallet.Transaction{
			{ID: uuid.New(), Amount: 10, BalanceBefore: 0, BalanceAfter: 10, CreatedAt: now},
		}
		f.wallets.On("GetByKey", ctx, testKey).Return(w, nil).Once()
		f.wallets.On("ListTransactions", ctx, w.ID).Return(txs, nil).Once()

		report, err := f.service.VerifyChain(ctx, testKey)
		require.NoError(t, err)
		assert.False(t, report.Valid)
		require.NotNil(t, report.Break)
		assert.Equal(t, 1, report.Break.Index)
		f.assertExpectations(t)
	})

	t.Run("missing wallet", func(t *testing.T) {
		f := newFixture(t)
		f.wallets.On("GetByKey", ctx, testKey).Return(nil, wallet.ErrWalletNotFound{Key: testKey}).Once()

		report, err := f.service.VerifyChain(ctx, testKey)
		require.NoError(t, err)
		assert.True(t, report.Valid)
		assert.Zero(t, report.Transactions)
		f.assertExpectations(t)
	})
}
