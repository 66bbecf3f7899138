package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/relay/internal/session"
)

const (
	// DefaultSessionTTL is the default TTL for session keys (30 days)
	DefaultSessionTTL = 30 * 24 * time.Hour
)

// SessionStore persists one client session in Redis
type SessionStore struct {
	client *redis.Client
	id     string
	ttl    time.Duration
}

var _ session.Store = (*SessionStore)(nil)

// NewSessionStore creates a session store for sessionID. A ttl <= 0 uses DefaultSessionTTL.
func NewSessionStore(client *redis.Client, sessionID string, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		client: client,
		id:     sessionID,
		ttl:    ttl,
	}
}

// Token returns the stored token, or "" when there is none
func (s *SessionStore) Token(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, TokenKey(s.id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get session token: %w", err)
	}
	return token, nil
}

// SetToken stores the session token
func (s *SessionStore) SetToken(ctx context.Context, token string) error {
	if err := s.client.Set(ctx, TokenKey(s.id), token, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session token: %w", err)
	}
	return nil
}

// User returns the stored user record, or nil when there is none
func (s *SessionStore) User(ctx context.Context) (*session.User, error) {
	data, err := s.client.Get(ctx, UserKey(s.id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session user: %w", err)
	}

	var user session.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session user: %w", err)
	}
	return &user, nil
}

// SetUser stores the user record as JSON
func (s *SessionStore) SetUser(ctx context.Context, u session.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal session user: %w", err)
	}
	if err := s.client.Set(ctx, UserKey(s.id), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session user: %w", err)
	}
	return nil
}

// VerifiedAt returns the last remote validation time, zero when never validated
func (s *SessionStore) VerifiedAt(ctx context.Context) (time.Time, error) {
	ms, err := s.client.Get(ctx, VerifiedAtKey(s.id)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to get verification time: %w", err)
	}
	return time.UnixMilli(ms), nil
}

// SetVerifiedAt stores t as unix milliseconds
func (s *SessionStore) SetVerifiedAt(ctx context.Context, t time.Time) error {
	v := strconv.FormatInt(t.UnixMilli(), 10)
	if err := s.client.Set(ctx, VerifiedAtKey(s.id), v, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save verification time: %w", err)
	}
	return nil
}

// Clear removes every key of the session
func (s *SessionStore) Clear(ctx context.Context) error {
	keys := []string{TokenKey(s.id), UserKey(s.id), VerifiedAtKey(s.id)}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
