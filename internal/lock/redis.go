package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"gold_mining/internal/logger"

	"github.com/jonboulle/clockwork"
	redis "github.com/redis/go-redis/v9"
)

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker shared by every instance pointed at the same
// Redis. A held key expires after ttl so a crashed holder cannot wedge a
// player forever.
type RedisLocker struct {
	client      *redis.Client
	ttl         time.Duration
	prefix      string
	baseBackoff time.Duration
	maxBackoff  time.Duration
	clock       clockwork.Clock
}

func NewRedisLocker(client *redis.Client, ttl time.Duration, clock clockwork.Clock) *RedisLocker {
	return &RedisLocker{
		client:      client,
		ttl:         ttl,
		prefix:      "lock:player:",
		baseBackoff: 20 * time.Millisecond,
		maxBackoff:  500 * time.Millisecond,
		clock:       clock,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	redisKey := l.prefix + key

	backoff := l.baseBackoff
	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Join(ErrLockTimeout, ctx.Err())
			}
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrLockTimeout, ctx.Err())
		case <-l.clock.After(backoff):
		}
		backoff *= 2
		if backoff > l.maxBackoff {
			backoff = l.maxBackoff
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, l.client, []string{redisKey}, token).Err(); err != nil {
				logger.Warn("failed to release player lock", "key", key, "error", err)
			}
		})
	}, nil
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
