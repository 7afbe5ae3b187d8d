package quizme

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateStore persists session attributes between turns. A session that was
// never saved loads as a fresh idle state.
type StateStore interface {
	Load(ctx context.Context, sessionID string) (SessionState, error)
	Save(ctx context.Context, sessionID string, state SessionState) error
	Delete(ctx context.Context, sessionID string) error
}

// MemoryStore keeps session attributes in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]byte)}
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) (SessionState, error) {
	m.mu.RLock()
	data := m.sessions[sessionID]
	m.mu.RUnlock()
	return UnmarshalAttributes(data)
}

func (m *MemoryStore) Save(_ context.Context, sessionID string, state SessionState) error {
	data, err := state.MarshalAttributes()
	if err != nil {
		return fmt.Errorf("failed to encode session attributes: %w", err)
	}
	m.mu.Lock()
	m.sessions[sessionID] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	return nil
}

// Len reports how many sessions are stored.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

const redisKeyPrefix = "quizme:session:"

// RedisStore keeps session attributes in Redis. Every save refreshes the TTL,
// so idle conversations expire on their own.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient connects to redisURL and pings it once.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) key(sessionID string) string {
	return redisKeyPrefix + sessionID
}

func (r *RedisStore) Load(ctx context.Context, sessionID string) (SessionState, error) {
	data, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewSessionState(), nil
	}
	if err != nil {
		return NewSessionState(), fmt.Errorf("failed to load session: %w", err)
	}
	return UnmarshalAttributes(data)
}

func (r *RedisStore) Save(ctx context.Context, sessionID string, state SessionState) error {
	data, err := state.MarshalAttributes()
	if err != nil {
		return fmt.Errorf("failed to encode session attributes: %w", err)
	}
	if err := r.client.Set(ctx, r.key(sessionID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
