package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in Redis as JSON with a sliding TTL, so in-flight
// conversations survive a restart.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisStore constructs a RedisStore. An empty prefix selects "session:".
func NewRedisStore(client redis.Cmdable, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "session:"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) key(userID int64) string {
	return r.prefix + strconv.FormatInt(userID, 10)
}

// Load fetches and decodes the user's session.
func (r *RedisStore) Load(ctx context.Context, userID int64) (*Session, error) {
	raw, err := r.client.Get(ctx, r.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewSession(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: redis get: %w", err)
	}
	s := NewSession()
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("state: decode session: %w", err)
	}
	if s.Data == nil {
		s.Data = map[string]string{}
	}
	return s, nil
}

// Save encodes the session and refreshes its TTL. Idle sessions are deleted.
func (r *RedisStore) Save(ctx context.Context, userID int64, s *Session) error {
	if s == nil {
		return ErrNilSession
	}
	if !s.Active() {
		return r.Clear(ctx, userID)
	}
	c := s.Clone()
	c.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("state: encode session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(userID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("state: redis set: %w", err)
	}
	return nil
}

// Clear deletes the user's session.
func (r *RedisStore) Clear(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("state: redis del: %w", err)
	}
	return nil
}
