// Package conversation dispatches free-text replies to the step a user's
// session is waiting on.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/m3rciful/vtubot/core/logger"
	"github.com/m3rciful/vtubot/core/telegram/state"
	"github.com/m3rciful/vtubot/internal/chat"
)

const component = "service.conversation"

// UnknownStepText is sent when a session points at a step nobody handles.
const UnknownStepText = "❌ Unknown step. Please try again."

// Turn is one user message delivered to a step. Steps mutate Session in place;
// the engine persists it afterwards, clearing it when it ends idle.
type Turn struct {
	UserID  int64
	Text    string
	Session *state.Session
}

// StepFunc handles a turn for a registered state.
type StepFunc func(ctx context.Context, t *Turn) (chat.Reply, error)

// Engine serializes turns per user and persists sessions between them.
type Engine struct {
	store state.Store
	locks *state.Locker

	mu    sync.RWMutex
	steps map[state.State]StepFunc
}

// New builds an Engine. A nil locker gets a fresh one.
func New(store state.Store, locks *state.Locker) *Engine {
	if locks == nil {
		locks = state.NewLocker()
	}
	return &Engine{store: store, locks: locks, steps: make(map[state.State]StepFunc)}
}

// Register binds fn to st, replacing any previous binding.
func (e *Engine) Register(st state.State, fn StepFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.steps[st] = fn
}

func (e *Engine) step(st state.State) (StepFunc, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn, ok := e.steps[st]
	return fn, ok
}

// Do runs fn on the user's session while holding the user's lock, then saves
// the session. When fn fails the session is discarded.
func (e *Engine) Do(ctx context.Context, userID int64, fn func(s *state.Session) (chat.Reply, error)) (chat.Reply, error) {
	unlock := e.locks.Lock(userID)
	defer unlock()

	s, err := e.store.Load(ctx, userID)
	if err != nil {
		return chat.Reply{}, fmt.Errorf("conversation: load session: %w", err)
	}
	reply, err := fn(s)
	if err != nil {
		if clearErr := e.store.Clear(ctx, userID); clearErr != nil {
			logger.Warn(ctx, component, "session.clear.fail", slog.String("err", clearErr.Error()))
		}
		return reply, err
	}
	if err := e.persist(ctx, userID, s); err != nil {
		return reply, err
	}
	return reply, nil
}

// Handle feeds text to the step the user is waiting on. handled is false when
// the user has no active session.
func (e *Engine) Handle(ctx context.Context, userID int64, text string) (reply chat.Reply, handled bool, err error) {
	reply, err = e.Do(ctx, userID, func(s *state.Session) (chat.Reply, error) {
		if !s.Active() {
			return chat.Reply{}, nil
		}
		handled = true
		fn, ok := e.step(s.State)
		if !ok {
			logger.Warn(ctx, component, "step.unknown", slog.String("state", string(s.State)))
			s.Reset(state.StateIdle)
			return chat.Text(UnknownStepText), nil
		}
		return fn(ctx, &Turn{UserID: userID, Text: text, Session: s})
	})
	return reply, handled, err
}

// Reset discards the user's session.
func (e *Engine) Reset(ctx context.Context, userID int64) error {
	unlock := e.locks.Lock(userID)
	defer unlock()
	return e.store.Clear(ctx, userID)
}

// InProgress reports whether the user has an active session.
func (e *Engine) InProgress(ctx context.Context, userID int64) bool {
	s, err := e.store.Load(ctx, userID)
	if err != nil {
		logger.Warn(ctx, component, "session.load.fail", slog.String("err", err.Error()))
		return false
	}
	return s.Active()
}

// Current returns a copy of the user's session.
func (e *Engine) Current(ctx context.Context, userID int64) (*state.Session, error) {
	s, err := e.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

func (e *Engine) persist(ctx context.Context, userID int64, s *state.Session) error {
	if s.Active() {
		if err := e.store.Save(ctx, userID, s); err != nil {
			return fmt.Errorf("conversation: save session: %w", err)
		}
		return nil
	}
	if err := e.store.Clear(ctx, userID); err != nil {
		return fmt.Errorf("conversation: clear session: %w", err)
	}
	return nil
}
