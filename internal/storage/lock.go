package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultLockTTL bounds how long a crashed request can hold a session when
// no WithLockTTL option is given. The server derives its value from the LLM
// timeout instead.
const DefaultLockTTL = 2 * time.Minute

const lockKeyPrefix = "session-lock:"

// releaseScript deletes the lock only if we still own it.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// TryLock attempts to acquire the in-flight lock for a session.
// Returns ok=false if another request already holds it.
func (r *RedisStorage) TryLock(ctx context.Context, id uuid.UUID) (func(), bool, error) {
	key := lockKeyPrefix + id.String()
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, key, token, r.lockTTL).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire session lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			// the request context may already be cancelled
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil {
				r.logger.Error("Failed to release session lock", "error", err, "session_id", id.String())
			}
		})
	}
	return release, true, nil
}
