package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/vtubot/internal/money"
)

const userColumns = `id, telegram_id, username, email, balance, created_at, updated_at`

// Users is the users table repository.
type Users struct {
	db *sqlx.DB
}

// NewUsers returns a Users repository backed by db.
func NewUsers(db *sqlx.DB) *Users {
	return &Users{db: db}
}

// Upsert inserts a user or refreshes the username of an existing one. The
// balance of an existing row is never touched.
func (r *Users) Upsert(ctx context.Context, telegramID int64, username, email string) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, `
		INSERT INTO users (telegram_id, username, email, balance)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (telegram_id) DO UPDATE
		SET username = EXCLUDED.username, updated_at = now()
		RETURNING `+userColumns, telegramID, username, email)
	if err != nil {
		return nil, fmt.Errorf("upsert user %d: %w", telegramID, mapPQError(err))
	}
	return &u, nil
}

// GetByTelegramID loads a user by Telegram id.
func (r *Users) GetByTelegramID(ctx context.Context, telegramID int64) (*User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID)
}

// GetByEmail loads a user by the email alias used with the payment gateway.
func (r *Users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *Users) get(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	if err := r.db.GetContext(ctx, &u, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Debit subtracts amount from the user's balance in a single conditional
// statement and returns the new balance. It never drives a balance below zero.
func (r *Users) Debit(ctx context.Context, telegramID int64, amount money.Amount) (money.Amount, error) {
	var balance money.Amount
	err := r.db.GetContext(ctx, &balance, `
		UPDATE users
		SET balance = balance - $1, updated_at = now()
		WHERE telegram_id = $2 AND balance >= $1
		RETURNING balance`, amount, telegramID)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("debit user %d: %w", telegramID, err)
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM users WHERE telegram_id = $1)`, telegramID); err != nil {
		return 0, fmt.Errorf("debit user %d: %w", telegramID, err)
	}
	if !exists {
		return 0, ErrNotFound
	}
	return 0, ErrInsufficientFunds
}
