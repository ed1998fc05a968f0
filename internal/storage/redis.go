package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/archetype-engine/pkg/state"
)

const (
	DefaultSessionTTL = 24 * time.Hour
	sessionKeyPrefix  = "session:"
)

// RedisStorage implements Storage on Redis. Each session is a JSON blob
// under session:<uuid> with a sliding TTL.
type RedisStorage struct {
	client  *redis.Client
	logger  *slog.Logger
	ttl     time.Duration
	lockTTL time.Duration
}

// RedisOption customises a RedisStorage.
type RedisOption func(*RedisStorage)

// WithLockTTL sets how long a session lock lives. It must exceed the
// longest turn; non-positive values keep DefaultLockTTL.
func WithLockTTL(d time.Duration) RedisOption {
	return func(r *RedisStorage) {
		if d > 0 {
			r.lockTTL = d
		}
	}
}

// Ensure RedisStorage implements Storage interface
var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage connects to redisURL, which may be a redis:// URL or a
// bare host:port.
func NewRedisStorage(redisURL string, ttl time.Duration, logger *slog.Logger, opts ...RedisOption) (*RedisStorage, error) {
	clientOpts := &redis.Options{Addr: redisURL}
	if strings.Contains(redisURL, "://") {
		parsed, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		clientOpts = parsed
	}
	return NewRedisStorageFromClient(redis.NewClient(clientOpts), ttl, logger, opts...), nil
}

// NewRedisStorageFromClient wraps an existing client.
func NewRedisStorageFromClient(client *redis.Client, ttl time.Duration, logger *slog.Logger, opts ...RedisOption) *RedisStorage {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	r := &RedisStorage{client: client, logger: logger, ttl: ttl, lockTTL: DefaultLockTTL}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	cmd := r.client.Ping(ctx)
	if err := cmd.Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context, maxRetries int, retryDelay time.Duration) error {
	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

func sessionKey(id uuid.UUID) string {
	return sessionKeyPrefix + id.String()
}

// Session operations

func (r *RedisStorage) SaveSession(ctx context.Context, st *state.SessionState) error {
	if st == nil {
		return errors.New("session state cannot be nil")
	}
	data, err := json.Marshal(st)
	if err != nil {
		r.logger.Error("Failed to marshal session", "session_id", st.ID, "error", err)
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := r.client.Set(ctx, sessionKey(st.ID), data, r.ttl).Err(); err != nil {
		r.logger.Error("Failed to save session", "session_id", st.ID, "error", err)
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadSession(ctx context.Context, id uuid.UUID) (*state.SessionState, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Debug("Session not found", "session_id", id)
			return nil, nil
		}
		r.logger.Error("Failed to load session", "session_id", id, "error", err)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var st state.SessionState
	if err := json.Unmarshal(data, &st); err != nil {
		r.logger.Error("Failed to unmarshal session", "session_id", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("stored session is corrupt: %w", err)
	}
	return &st, nil
}

func (r *RedisStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		r.logger.Error("Failed to delete session", "session_id", id, "error", err)
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
