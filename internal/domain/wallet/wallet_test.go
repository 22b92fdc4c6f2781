package wallet

import (
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWallet(t *testing.T) {
	key := Key{TenantID: "acme", AppID: "app-1", UserID: "u-1"}
	w := NewWallet(key)

	assert.NotEqual(t, uuid.Nil, w.ID)
	assert.Equal(t, key, w.Key())
	assert.Zero(t, w.TicketBalance)
	assert.Equal(t, DefaultCurrency, w.Currency)
	assert.Equal(t, 1, w.Version)
}

func TestKey_Validate(t *testing.T) {
	assert.NoError(t, Key{TenantID: "t", AppID: "a", UserID: "u"}.Validate())
	assert.ErrorIs(t, Key{TenantID: "t", AppID: "a"}.Validate(), ErrInvalidKey)
	assert.ErrorIs(t, Key{TenantID: " ", AppID: "a", UserID: "u"}.Validate(), ErrInvalidKey)
}

func TestWallet_Preview(t *testing.T) {
	testCases := []struct {
		name       string
		balance    int64
		amount     int64
		wantBefore int64
		wantAfter  int64
		wantErr    error
	}{
		{"credit from zero", 0, 10, 0, 10, nil},
		{"debit to exactly zero", 10, -10, 10, 0, nil},
		{"debit one past zero", 10, -11, 10, 10, ErrInsufficientBalance},
		{"overdraw", 10, -15, 10, 10, ErrInsufficientBalance},
		{"zero amount", 10, 0, 0, 0, ErrInvalidAmount},
		{"credit past max balance", math.MaxInt64 - 1, 5, math.MaxInt64 - 1, math.MaxInt64 - 1, ErrInvalidAmount},
		{"credit up to max balance", math.MaxInt64 - 5, 5, math.MaxInt64 - 5, math.MaxInt64, nil},
		{"min int64 debit", 10, math.MinInt64, 0, 0, ErrInvalidAmount},
		{"large debit", 10, math.MinInt64 + 1, 10, 10, ErrInsufficientBalance},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := &Wallet{TicketBalance: tc.balance}
			before, after, err := w.Preview(tc.amount)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.wantBefore, before)
			assert.Equal(t, tc.wantAfter, after)
			assert.Equal(t, tc.balance, w.TicketBalance, "Preview must not mutate the wallet")
		})
	}
}

func TestInsufficientBalanceError_Is(t *testing.T) {
	err := error(InsufficientBalanceError{Available: 10, Requested: 15})

	assert.True(t, errors.Is(err, ErrInsufficientBalance))
	assert.True(t, errors.Is(err, InsufficientBalanceError{}))
	assert.True(t, errors.Is(err, InsufficientBalanceError{Available: 10, Requested: 15}))
	assert.False(t, errors.Is(err, InsufficientBalanceError{Available: 1, Requested: 2}))
	assert.False(t, errors.Is(err, ErrInvalidAmount))

	var ibe InsufficientBalanceError
	require.True(t, errors.As(err, &ibe))
	assert.Equal(t, int64(10), ibe.Available)
	assert.Equal(t, int64(15), ibe.Requested)
	assert.Contains(t, err.Error(), "available 10, requested 15")
}

func TestRepositoryErrors_Is(t *testing.T) {
	id := uuid.New()
	assert.ErrorIs(t, ErrConcurrentModification{WalletID: id}, ErrConcurrentModification{})
	assert.NotErrorIs(t, ErrConcurrentModification{WalletID: id}, ErrConcurrentModification{WalletID: uuid.New()})

	key := Key{TenantID: "t", AppID: "a", UserID: "u"}
	assert.ErrorIs(t, ErrWalletNotFound{Key: key}, ErrWalletNotFound{})
	assert.NotErrorIs(t, ErrWalletNotFound{Key: key}, ErrWalletNotFound{Key: Key{TenantID: "other"}})
}
