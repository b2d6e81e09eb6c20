package state

import (
	"context"
	"errors"
	"maps"
	"time"
)

// State identifies a conversation step.
type State string

// StateIdle indicates there is no active conversation with the user.
const StateIdle State = "idle"

// ErrNilSession is returned when Save receives a nil session.
var ErrNilSession = errors.New("state: nil session")

// Session stores conversation state and scratch data for a user.
type Session struct {
	State     State             `json:"state"`
	Data      map[string]string `json:"data,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewSession returns an idle session.
func NewSession() *Session {
	return &Session{State: StateIdle, Data: map[string]string{}}
}

// Active reports whether the session is in a non-idle step.
func (s *Session) Active() bool {
	return s != nil && s.State != "" && s.State != StateIdle
}

// Get returns the scratch value for key.
func (s *Session) Get(key string) string {
	if s == nil {
		return ""
	}
	return s.Data[key]
}

// Set stores a scratch value.
func (s *Session) Set(key, value string) {
	if s.Data == nil {
		s.Data = map[string]string{}
	}
	s.Data[key] = value
}

// Reset drops all scratch data and moves the session to st.
func (s *Session) Reset(st State) {
	s.State = st
	s.Data = map[string]string{}
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Data = maps.Clone(s.Data)
	if c.Data == nil {
		c.Data = map[string]string{}
	}
	return &c
}

// Store persists sessions keyed by Telegram user id.
type Store interface {
	// Load returns the user's session, or a fresh idle session when none is stored.
	Load(ctx context.Context, userID int64) (*Session, error)
	// Save stores the session and refreshes its expiry.
	Save(ctx context.Context, userID int64, s *Session) error
	// Clear removes the user's session.
	Clear(ctx context.Context, userID int64) error
}

// DefaultTTL is how long an untouched session survives.
const DefaultTTL = 15 * time.Minute
