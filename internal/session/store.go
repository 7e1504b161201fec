// Package session persists the client session (cookie and last known user
// record) across process restarts.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/chirpnet/chirp/internal/api"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

// ErrNotFound indicates the store holds no value for the requested field.
var ErrNotFound = errors.New("session value not found")

const (
	cookieKey = "chirp:session:cookie"
	userKey   = "chirp:session:user"
)

// Store persists session state. Implementations must tolerate concurrent use.
type Store interface {
	SaveCookie(ctx context.Context, cookie string) error
	LoadCookie(ctx context.Context) (string, error)
	SaveUser(ctx context.Context, user *api.User) error
	LoadUser(ctx context.Context) (*api.User, error)
	Clear(ctx context.Context) error
}

// RedisStore keeps session state in Redis so a new process resumes the
// previous session without an auth round trip.
type RedisStore struct {
	client rueidis.Client
	logger *zap.Logger
}

// NewRedisStore creates a Store backed by the given Redis client.
func NewRedisStore(client rueidis.Client, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		logger: logger.Named("session"),
	}
}

// SaveCookie implements Store.
func (s *RedisStore) SaveCookie(ctx context.Context, cookie string) error {
	err := s.client.Do(ctx, s.client.B().Set().Key(cookieKey).Value(cookie).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to save session cookie: %w", err)
	}
	return nil
}

// LoadCookie implements Store.
func (s *RedisStore) LoadCookie(ctx context.Context) (string, error) {
	cookie, err := s.client.Do(ctx, s.client.B().Get().Key(cookieKey).Build()).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to load session cookie: %w", err)
	}
	return cookie, nil
}

// SaveUser implements Store.
func (s *RedisStore) SaveUser(ctx context.Context, user *api.User) error {
	payload, err := sonic.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal session user: %w", err)
	}

	err = s.client.Do(ctx, s.client.B().Set().Key(userKey).Value(string(payload)).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to save session user: %w", err)
	}
	return nil
}

// LoadUser implements Store.
func (s *RedisStore) LoadUser(ctx context.Context) (*api.User, error) {
	payload, err := s.client.Do(ctx, s.client.B().Get().Key(userKey).Build()).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load session user: %w", err)
	}

	var user api.User
	if err := sonic.Unmarshal([]byte(payload), &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session user: %w", err)
	}
	return &user, nil
}

// Clear implements Store.
func (s *RedisStore) Clear(ctx context.Context) error {
	err := s.client.Do(ctx, s.client.B().Del().Key(cookieKey).Key(userKey).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	s.logger.Debug("Cleared persisted session")
	return nil
}

// MemoryStore keeps session state in process memory. Used when no Redis
// endpoint is configured; the session then lasts for the process lifetime.
type MemoryStore struct {
	mu     sync.RWMutex
	cookie string
	user   *api.User
}

// NewMemoryStore creates an empty in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SaveCookie implements Store.
func (s *MemoryStore) SaveCookie(_ context.Context, cookie string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookie = cookie
	return nil
}

// LoadCookie implements Store.
func (s *MemoryStore) LoadCookie(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cookie == "" {
		return "", ErrNotFound
	}
	return s.cookie, nil
}

// SaveUser implements Store.
func (s *MemoryStore) SaveUser(_ context.Context, user *api.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	return nil
}

// LoadUser implements Store.
func (s *MemoryStore) LoadUser(_ context.Context) (*api.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil {
		return nil, ErrNotFound
	}
	return s.user, nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookie = ""
	s.user = nil
	return nil
}
