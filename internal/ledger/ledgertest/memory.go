// Package ledgertest provides an in-memory store for exercising the ledger
// and the flows built on it without PostgreSQL.
package ledgertest

import (
	"context"
	"sync"
	"time"

	"github.com/m3rciful/vtubot/internal/money"
	"github.com/m3rciful/vtubot/internal/store"
)

// Store implements ledger.Users and ledger.Transactions with the same
// conditional semantics as the SQL repositories.
type Store struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*store.User
	txs    map[string]*store.Transaction

	// DebitCalls counts successful debits.
	DebitCalls int
}

// New returns an empty Store.
func New() *Store {
	return &Store{users: map[int64]*store.User{}, txs: map[string]*store.Transaction{}}
}

// Seed inserts or replaces a user with the given balance and returns it.
func (s *Store) Seed(telegramID int64, username string, balance money.Amount) *store.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[telegramID]
	if u == nil {
		s.nextID++
		u = &store.User{ID: s.nextID, TelegramID: telegramID, CreatedAt: time.Now()}
		s.users[telegramID] = u
	}
	u.Username = username
	u.Balance = balance
	return cloneUser(u)
}

// SetEmail assigns the email alias of a seeded user.
func (s *Store) SetEmail(telegramID int64, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.users[telegramID]; u != nil {
		u.Email = email
	}
}

// BalanceOf returns the stored balance, or zero for unknown users.
func (s *Store) BalanceOf(telegramID int64) money.Amount {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.users[telegramID]; u != nil {
		return u.Balance
	}
	return 0
}

// Transaction returns a copy of the transaction with reference, if any.
func (s *Store) Transaction(reference string) (store.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[reference]
	if !ok {
		return store.Transaction{}, false
	}
	return *t, true
}

func (s *Store) Upsert(_ context.Context, telegramID int64, username, email string) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.users[telegramID]; u != nil {
		u.Username = username
		if u.Email == "" {
			u.Email = email
		}
		u.UpdatedAt = time.Now()
		return cloneUser(u), nil
	}
	for _, u := range s.users {
		if u.Email == email {
			return nil, store.ErrDuplicate
		}
	}
	s.nextID++
	u := &store.User{ID: s.nextID, TelegramID: telegramID, Username: username, Email: email, CreatedAt: time.Now()}
	s.users[telegramID] = u
	return cloneUser(u), nil
}

func (s *Store) GetByTelegramID(_ context.Context, telegramID int64) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.users[telegramID]; u != nil {
		return cloneUser(u), nil
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetByEmail(_ context.Context, email string) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) Debit(_ context.Context, telegramID int64, amount money.Amount) (money.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[telegramID]
	if u == nil {
		return 0, store.ErrNotFound
	}
	if u.Balance < amount {
		return 0, store.ErrInsufficientFunds
	}
	u.Balance -= amount
	s.DebitCalls++
	return u.Balance, nil
}

func (s *Store) Create(_ context.Context, userID int64, amount money.Amount, reference string) (*store.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[reference]; ok {
		return nil, store.ErrDuplicate
	}
	s.nextID++
	t := &store.Transaction{ID: s.nextID, UserID: userID, Amount: amount, Status: store.StatusPending, Reference: reference, CreatedAt: time.Now()}
	s.txs[reference] = t
	cp := *t
	return &cp, nil
}

func (s *Store) Settle(_ context.Context, reference string, amount money.Amount, ownerID int64) (*store.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[reference]
	if !ok || (ownerID != 0 && t.UserID != ownerID) {
		return nil, store.ErrNotFound
	}
	if t.Status != store.StatusPending {
		return nil, store.ErrAlreadySettled
	}
	var owner *store.User
	for _, u := range s.users {
		if u.ID == t.UserID {
			owner = u
			break
		}
	}
	if owner == nil {
		return nil, store.ErrNotFound
	}
	t.Status = store.StatusSuccessful
	owner.Balance += amount
	return &store.Settlement{
		TransactionID: t.ID,
		UserID:        owner.ID,
		TelegramID:    owner.TelegramID,
		Credited:      amount,
		Balance:       owner.Balance,
	}, nil
}

func cloneUser(u *store.User) *store.User {
	cp := *u
	return &cp
}
