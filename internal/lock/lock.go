// Package lock provides a Redis-backed mutex so that only one jobscout
// process scans at a time when several share a store.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// RedisLocker acquires short-lived locks with SET NX.
type RedisLocker struct {
	client *redis.Client
}

// NewRedisLocker parses redisURL and verifies connectivity.
func NewRedisLocker(ctx context.Context, redisURL string) (*RedisLocker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisLocker{client: client}, nil
}

// TryAcquire takes key for ttl. If another holder has it, acquired is false
// and err is nil. The returned release is a no-op once the lock expired or
// was taken over.
func (l *RedisLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, acquired bool, err error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquiring lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release = func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("releasing lock %s: %w", key, err)
		}
		return nil
	}
	return release, true, nil
}

// Close closes the Redis connection.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
