package outbox_poller

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ticket-wallet-ledger/internal/domain/ledger"
	"github.com/ticket-wallet-ledger/internal/domain/outbox"
	"github.com/ticket-wallet-ledger/internal/domain/shared"
)

type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*outbox.Message, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	return m
}

type MockLedgerRepo struct {
	mock.Mock
}

func (m *MockLedgerRepo) EnsureIndexes(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockLedgerRepo) Create(ctx context.Context, entry *ledger.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepo) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*ledger.Entry, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepo) GetByWalletID(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	args := m.Called(ctx, walletID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepo) CountByWalletID(ctx context.Context, walletID uuid.UUID) (int64, error) {
	args := m.Called(ctx, walletID)
	return args.Get(0).(int64), args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockEventPublisher) Close() error {
	return m.Called().Error(0)
}

func testOutboxMessage(t *testing.T, id int64) (*outbox.Message, *ledger.Entry) {
	t.Helper()
	entry := &ledger.Entry{
		TransactionID:   uuid.New(),
		WalletID:        uuid.New(),
		TenantID:        "acme",
		AppID:           "box-office",
		UserID:          "user-1",
		TransactionType: shared.TransactionTypePurchase,
		Amount:          5,
		BalanceAfter:    5,
		CorrelationID:   "corr-1",
		CreatedAt:       time.Now().UTC().Truncate(time.Millisecond),
	}
	msg, err := outbox.NewMessage(entry)
	require.NoError(t, err)
	msg.ID = id
	return msg, entry
}

func TestLedgerPublisher_PublishToLedger(t *testing.T) {
	msg, entry := testOutboxMessage(t, 7)
	sameEntry := mock.MatchedBy(func(e *ledger.Entry) bool {
		return e.TransactionID == entry.TransactionID && e.Amount == entry.Amount
	})

	tests := []struct {
		name        string
		setupMocks  func(o *MockOutboxRepo, l *MockLedgerRepo, e *MockEventPublisher)
		errContains string
	}{
		{
			name: "archives, publishes and marks processed",
			setupMocks: func(o *MockOutboxRepo, l *MockLedgerRepo, e *MockEventPublisher) {
				l.On("Create", mock.Anything, sameEntry).Return(nil).Once()
				e.On("Publish", mock.Anything, entry.WalletID.String(), sameEntry).Return(nil).Once()
				o.On("UpdateStatus", mock.Anything, int64(7), shared.OutboxStatusProcessed).Return(nil).Once()
			},
		},
		{
			name: "already archived entry is still published",
			setupMocks: func(o *MockOutboxRepo, l *MockLedgerRepo, e *MockEventPublisher) {
				l.On("Create", mock.Anything, sameEntry).Return(ledger.ErrDuplicateEntry{TransactionID: entry.TransactionID}).Once()
				e.On("Publish", mock.Anything, entry.WalletID.String(), sameEntry).Return(nil).Once()
				o.On("UpdateStatus", mock.Anything, int64(7), shared.OutboxStatusProcessed).Return(nil).Once()
			},
		},
		{
			name: "archive failure",
			setupMocks: func(o *MockOutboxRepo, l *MockLedgerRepo, e *MockEventPublisher) {
				l.On("Create", mock.Anything, sameEntry).Return(errors.New("mongo down")).Once()
			},
			errContains: "failed to archive ledger entry",
		},
		{
			name: "publish failure",
			setupMocks: func(o *MockOutboxRepo, l *MockLedgerRepo, e *MockEventPublisher) {
				l.On("Create", mock.Anything, sameEntry).Return(nil).Once()
				e.On("Publish", mock.Anything, entry.WalletID.String(), sameEntry).Return(errors.New("kafka down")).Once()
			},
			errContains: "failed to publish wallet event",
		},
		{
			name: "status update failure",
			setupMocks: func(o *MockOutboxRepo, l *MockLedgerRepo, e *MockEventPublisher) {
				l.On("Create", mock.Anything, sameEntry).Return(nil).Once()
				e.On("Publish", mock.Anything, entry.WalletID.String(), sameEntry).Return(nil).Once()
				o.On("UpdateStatus", mock.Anything, int64(7), shared.OutboxStatusProcessed).Return(errors.New("pg down")).Once()
			},
			errContains: "failed to mark outbox 7 as PROCESSED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outboxRepo := &MockOutboxRepo{}
			ledgerRepo := &MockLedgerRepo{}
			events := &MockEventPublisher{}
			tt.setupMocks(outboxRepo, ledgerRepo, events)

			publisher := NewLedgerPublisher(outboxRepo, ledgerRepo, events, slog.Default())
			err := publisher.PublishToLedger(context.Background(), msg)

			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
			} else {
				assert.NoError(t, err)
			}
			outboxRepo.AssertExpectations(t)
			ledgerRepo.AssertExpectations(t)
			events.AssertExpectations(t)
		})
	}
}

func TestLedgerPublisher_MalformedPayload(t *testing.T) {
	outboxRepo := &MockOutboxRepo{}
	ledgerRepo := &MockLedgerRepo{}
	events := &MockEventPublisher{}
	publisher := NewLedgerPublisher(outboxRepo, ledgerRepo, events, slog.Default())

	msg := &outbox.Message{ID: 9, TransactionID: uuid.New(), Payload: json.RawMessage(`{"amount":"lots"}`)}
	outboxRepo.On("UpdateStatus", mock.Anything, int64(9), shared.OutboxStatusFailedToPublish).Return(nil).Once()

	err := publisher.PublishToLedger(context.Background(), msg)

	assert.ErrorIs(t, err, ErrMalformedPayload)
	outboxRepo.AssertExpectations(t)
	ledgerRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}
