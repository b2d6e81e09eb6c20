package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/vtubot/internal/money"
)

// Transactions is the funding transactions repository.
type Transactions struct {
	db *sqlx.DB
}

// NewTransactions returns a Transactions repository backed by db.
func NewTransactions(db *sqlx.DB) *Transactions {
	return &Transactions{db: db}
}

// Create records a pending funding attempt. A reused reference yields ErrDuplicate.
func (r *Transactions) Create(ctx context.Context, userID int64, amount money.Amount, reference string) (*Transaction, error) {
	var t Transaction
	err := r.db.GetContext(ctx, &t, `
		INSERT INTO transactions (user_id, amount, status, paystack_reference)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, amount, status, paystack_reference, created_at, updated_at`,
		userID, amount, StatusPending, reference)
	if err != nil {
		return nil, fmt.Errorf("create transaction %s: %w", reference, mapPQError(err))
	}
	return &t, nil
}

// Settle moves the pending transaction identified by reference to successful
// and credits its owner by amount, atomically. ownerID of zero matches any
// owner. A transaction that is no longer pending yields ErrAlreadySettled and
// an unknown reference yields ErrNotFound; neither mutates anything.
func (r *Transactions) Settle(ctx context.Context, reference string, amount money.Amount, ownerID int64) (*Settlement, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var claimed struct {
		ID     int64 `db:"id"`
		UserID int64 `db:"user_id"`
	}
	err = tx.GetContext(ctx, &claimed, `
		UPDATE transactions
		SET status = $3, updated_at = now()
		WHERE paystack_reference = $1 AND status = $4 AND ($2 = 0 OR user_id = $2)
		RETURNING id, user_id`,
		reference, ownerID, StatusSuccessful, StatusPending)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.explainUnclaimed(ctx, tx, reference, ownerID)
	}
	if err != nil {
		return nil, fmt.Errorf("settle %s: %w", reference, err)
	}

	s := Settlement{TransactionID: claimed.ID, UserID: claimed.UserID, Credited: amount}
	err = tx.QueryRowxContext(ctx, `
		UPDATE users
		SET balance = balance + $1, updated_at = now()
		WHERE id = $2
		RETURNING telegram_id, balance`, amount, claimed.UserID).Scan(&s.TelegramID, &s.Balance)
	if err != nil {
		return nil, fmt.Errorf("credit user %d: %w", claimed.UserID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Transactions) explainUnclaimed(ctx context.Context, tx *sqlx.Tx, reference string, ownerID int64) error {
	var t struct {
		UserID int64  `db:"user_id"`
		Status string `db:"status"`
	}
	err := tx.GetContext(ctx, &t, `SELECT user_id, status FROM transactions WHERE paystack_reference = $1`, reference)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if ownerID != 0 && t.UserID != ownerID {
		return ErrNotFound
	}
	return ErrAlreadySettled
}
