// Package store persists users and funding transactions in PostgreSQL.
package store

import (
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/m3rciful/vtubot/internal/money"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("store: not found")
	// ErrInsufficientFunds is returned when a conditional debit matches no row
	// because the balance is too low.
	ErrInsufficientFunds = errors.New("store: insufficient funds")
	// ErrAlreadySettled is returned when a transaction is no longer pending.
	ErrAlreadySettled = errors.New("store: transaction already settled")
	// ErrDuplicate is returned on a unique constraint violation.
	ErrDuplicate = errors.New("store: duplicate key")
)

// Transaction statuses.
const (
	StatusPending    = "pending"
	StatusSuccessful = "successful"
)

// User is a registered bot user. Balance is only mutated through Debit and Settle.
type User struct {
	ID         int64        `db:"id"`
	TelegramID int64        `db:"telegram_id"`
	Username   string       `db:"username"`
	Email      string       `db:"email"`
	Balance    money.Amount `db:"balance"`
	CreatedAt  time.Time    `db:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at"`
}

// Transaction is a wallet funding attempt keyed by its gateway reference.
type Transaction struct {
	ID        int64        `db:"id"`
	UserID    int64        `db:"user_id"`
	Amount    money.Amount `db:"amount"`
	Status    string       `db:"status"`
	Reference string       `db:"paystack_reference"`
	CreatedAt time.Time    `db:"created_at"`
	UpdatedAt time.Time    `db:"updated_at"`
}

// Settlement describes a transaction that moved to successful and the credit it produced.
type Settlement struct {
	TransactionID int64        `db:"transaction_id"`
	UserID        int64        `db:"user_id"`
	TelegramID    int64        `db:"telegram_id"`
	Credited      money.Amount `db:"credited"`
	Balance       money.Amount `db:"balance"`
}

const uniqueViolation = "23505"

func mapPQError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}
