// Package wallet models tenant ticket wallets and their append-only transaction ledger.
package wallet

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultCurrency is the unit of a ticket wallet balance.
const DefaultCurrency = "TICKET"

// Common errors
var (
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrInvalidAmount       = errors.New("amount must be non-zero")
	ErrInvalidKey          = errors.New("tenant, app and user are required")
)

// Key identifies a wallet. There is exactly one wallet per key.
type Key struct {
	TenantID string
	AppID    string
	UserID   string
}

// Validate rejects keys with a blank component.
func (k Key) Validate() error {
	if strings.TrimSpace(k.TenantID) == "" || strings.TrimSpace(k.AppID) == "" || strings.TrimSpace(k.UserID) == "" {
		return ErrInvalidKey
	}
	return nil
}

func (k Key) String() string {
	return k.TenantID + "/" + k.AppID + "/" + k.UserID
}

// Wallet is a tenant-scoped balance of redeemable ticket credits.
type Wallet struct {
	ID            uuid.UUID `json:"id"`
	TenantID      string    `json:"tenant_id"`
	AppID         string    `json:"app_id"`
	UserID        string    `json:"user_id"`
	TicketBalance int64     `json:"ticket_balance"`
	Currency      string    `json:"currency"`
	Version       int       `json:"version"` // For optimistic locking
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewWallet returns an empty wallet for key.
func NewWallet(key Key) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		ID:        uuid.New(),
		TenantID:  key.TenantID,
		AppID:     key.AppID,
		UserID:    key.UserID,
		Currency:  DefaultCurrency,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (w *Wallet) Key() Key {
	return Key{TenantID: w.TenantID, AppID: w.AppID, UserID: w.UserID}
}

// Preview computes the balance after applying amount without mutating the wallet.
// A result below zero is reported as InsufficientBalanceError; a credit the balance cannot
// hold without overflowing is ErrInvalidAmount.
func (w *Wallet) Preview(amount int64) (before, after int64, err error) {
	if amount == 0 || amount == math.MinInt64 {
		return 0, 0, ErrInvalidAmount
	}
	before = w.TicketBalance
	if amount > 0 && before > math.MaxInt64-amount {
		return before, before, fmt.Errorf("%w: balance %d cannot take a credit of %d", ErrInvalidAmount, before, amount)
	}
	after = before + amount
	if after < 0 {
		return before, before, InsufficientBalanceError{Available: before, Requested: -amount}
	}
	return before, after, nil
}

// InsufficientBalanceError reports a debit that would take a wallet negative.
// It matches ErrInsufficientBalance with errors.Is.
type InsufficientBalanceError struct {
	Available int64
	Requested int64
}

func (e InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient wallet balance: available %d, requested %d", e.Available, e.Requested)
}

// Is implements the errors.Is interface for InsufficientBalanceError
func (e InsufficientBalanceError) Is(target error) bool {
	if target == ErrInsufficientBalance {
		return true
	}
	t, ok := target.(InsufficientBalanceError)
	if !ok {
		return false
	}
	if t == (InsufficientBalanceError{}) {
		return true
	}
	return e == t
}
