// Package ledger owns every read and mutation of wallet balances.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/vtubot/core/logger"
	"github.com/m3rciful/vtubot/internal/money"
	"github.com/m3rciful/vtubot/internal/store"
)

const component = "service.ledger"

var (
	ErrNotRegistered       = errors.New("ledger: user not registered")
	ErrInsufficientFunds   = errors.New("ledger: insufficient funds")
	ErrAlreadySettled      = errors.New("ledger: transaction already settled")
	ErrTransactionNotFound = errors.New("ledger: transaction not found")
	ErrDuplicateReference  = errors.New("ledger: duplicate reference")
	ErrInvalidAmount       = errors.New("ledger: amount must be positive")
)

// DefaultUsername is stored for users without a Telegram username.
const DefaultUsername = "Anonymous"

// DefaultEmailDomain is the domain of the synthetic gateway email alias.
const DefaultEmailDomain = "telegram.bot"

// Users is the user persistence the ledger depends on.
type Users interface {
	Upsert(ctx context.Context, telegramID int64, username, email string) (*store.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*store.User, error)
	GetByEmail(ctx context.Context, email string) (*store.User, error)
	Debit(ctx context.Context, telegramID int64, amount money.Amount) (money.Amount, error)
}

// Transactions is the funding transaction persistence the ledger depends on.
type Transactions interface {
	Create(ctx context.Context, userID int64, amount money.Amount, reference string) (*store.Transaction, error)
	Settle(ctx context.Context, reference string, amount money.Amount, ownerID int64) (*store.Settlement, error)
}

// Service exposes balance operations. It is safe for concurrent use; integrity
// is enforced by the conditional statements of the underlying store.
type Service struct {
	users       Users
	txs         Transactions
	emailDomain string
}

// New returns a ledger Service. An empty emailDomain selects DefaultEmailDomain.
func New(users Users, txs Transactions, emailDomain string) *Service {
	if strings.TrimSpace(emailDomain) == "" {
		emailDomain = DefaultEmailDomain
	}
	return &Service{users: users, txs: txs, emailDomain: emailDomain}
}

// EmailFor returns the gateway email alias of a Telegram user.
func (s *Service) EmailFor(telegramID int64) string {
	return strconv.FormatInt(telegramID, 10) + "@" + s.emailDomain
}

// Register creates the user on first contact or refreshes the username.
func (s *Service) Register(ctx context.Context, telegramID int64, username string) (*store.User, error) {
	if strings.TrimSpace(username) == "" {
		username = DefaultUsername
	}
	u, err := s.users.Upsert(ctx, telegramID, username, s.EmailFor(telegramID))
	if err != nil {
		return nil, fmt.Errorf("ledger: register: %w", err)
	}
	return u, nil
}

// UserByTelegramID loads a registered user.
func (s *Service) UserByTelegramID(ctx context.Context, telegramID int64) (*store.User, error) {
	u, err := s.users.GetByTelegramID(ctx, telegramID)
	return u, translate(err)
}

// UserByEmail loads a user by gateway email alias.
func (s *Service) UserByEmail(ctx context.Context, email string) (*store.User, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	return u, translate(err)
}

// Balance returns the current balance of a registered user.
func (s *Service) Balance(ctx context.Context, telegramID int64) (money.Amount, error) {
	u, err := s.UserByTelegramID(ctx, telegramID)
	if err != nil {
		return 0, err
	}
	return u.Balance, nil
}

// Debit subtracts amount only if the balance covers it and returns the new balance.
func (s *Service) Debit(ctx context.Context, telegramID int64, amount money.Amount) (money.Amount, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	bal, err := s.users.Debit(ctx, telegramID, amount)
	if err != nil {
		return 0, translate(err)
	}
	logger.Info(ctx, component, "ledger.debit",
		slog.Int64("user_id", telegramID),
		slog.Int64("amount_kobo", amount.Kobo()),
		slog.Int64("balance_kobo", bal.Kobo()),
	)
	return bal, nil
}

// OpenFunding records a pending funding transaction for userID (the internal id).
func (s *Service) OpenFunding(ctx context.Context, userID int64, amount money.Amount, reference string) (*store.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	t, err := s.txs.Create(ctx, userID, amount, reference)
	if err != nil {
		return nil, translate(err)
	}
	return t, nil
}

// Settle marks the pending transaction identified by reference successful and
// credits amount to its owner in one atomic step. ownerID restricts the match
// to one user; zero accepts any owner. Repeated calls for the same reference
// return ErrAlreadySettled without crediting again.
func (s *Service) Settle(ctx context.Context, reference string, amount money.Amount, ownerID int64) (*store.Settlement, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	st, err := s.txs.Settle(ctx, reference, amount, ownerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, translate(err)
	}
	logger.Info(ctx, component, "ledger.credit",
		slog.String("reference", reference),
		slog.Int64("user_id", st.TelegramID),
		slog.Int64("amount_kobo", st.Credited.Kobo()),
		slog.Int64("balance_kobo", st.Balance.Kobo()),
	)
	return st, nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrInsufficientFunds):
		return ErrInsufficientFunds
	case errors.Is(err, store.ErrAlreadySettled):
		return ErrAlreadySettled
	case errors.Is(err, store.ErrDuplicate):
		return ErrDuplicateReference
	case errors.Is(err, store.ErrNotFound):
		return ErrNotRegistered
	default:
		return fmt.Errorf("ledger: %w", err)
	}
}
