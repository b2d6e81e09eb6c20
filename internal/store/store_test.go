package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/vtubot/internal/money"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return sqlx.NewDb(raw, "postgres"), mock
}

var userCols = []string{"id", "telegram_id", "username", "email", "balance", "created_at", "updated_at"}

func TestUsersUpsert(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(int64(42), "ada", "42@telegram.bot").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(1, 42, "ada", "42@telegram.bot", 150000, now, now))

	u, err := NewUsers(db).Upsert(context.Background(), 42, "ada", "42@telegram.bot")
	require.NoError(t, err)
	assert.Equal(t, money.Amount(150000), u.Balance)
	assert.Equal(t, int64(1), u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsersGetByEmailNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM users WHERE email`).WithArgs("x@telegram.bot").WillReturnError(sql.ErrNoRows)

	_, err := NewUsers(db).GetByEmail(context.Background(), "x@telegram.bot")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUsersDebit(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(`UPDATE users`).WithArgs(int64(5000), int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(1000))

		bal, err := NewUsers(db).Debit(context.Background(), 7, 5000)
		require.NoError(t, err)
		assert.Equal(t, money.Amount(1000), bal)
	})

	t.Run("insufficient", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(`UPDATE users`).WithArgs(int64(5000), int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))
		mock.ExpectQuery(`SELECT EXISTS`).WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := NewUsers(db).Debit(context.Background(), 7, 5000)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown user", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(`UPDATE users`).WillReturnRows(sqlmock.NewRows([]string{"balance"}))
		mock.ExpectQuery(`SELECT EXISTS`).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		_, err := NewUsers(db).Debit(context.Background(), 7, 5000)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestTransactionsCreateDuplicate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO transactions`).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := NewTransactions(db).Create(context.Background(), 1, 10000, "ref-1")
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestTransactionsSettle(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE transactions`).
		WithArgs("ref-1", int64(0), StatusSuccessful, StatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(9, 3))
	mock.ExpectQuery(`UPDATE users`).
		WithArgs(int64(20000), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"telegram_id", "balance"}).AddRow(42, 25000))
	mock.ExpectCommit()

	s, err := NewTransactions(db).Settle(context.Background(), "ref-1", 20000, 0)
	require.NoError(t, err)
	assert.Equal(t, &Settlement{TransactionID: 9, UserID: 3, TelegramID: 42, Credited: 20000, Balance: 25000}, s)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionsSettleAlreadySettled(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE transactions`).WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}))
	mock.ExpectQuery(`SELECT user_id, status FROM transactions`).WithArgs("ref-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "status"}).AddRow(3, StatusSuccessful))
	mock.ExpectRollback()

	_, err := NewTransactions(db).Settle(context.Background(), "ref-1", 20000, 3)
	assert.ErrorIs(t, err, ErrAlreadySettled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionsSettleUnknownReference(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE transactions`).WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}))
	mock.ExpectQuery(`SELECT user_id, status FROM transactions`).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := NewTransactions(db).Settle(context.Background(), "nope", 100, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}
