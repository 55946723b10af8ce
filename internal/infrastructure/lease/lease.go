// Package lease keeps two pipeline runs from driving the shared browser at
// the same time.
package lease

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"TruthFilter/internal/ports"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLease is a SET NX lease shared by every process using the same key.
type RedisLease struct {
	rdb *redis.Client
	key string
}

var _ ports.RunLease = (*RedisLease)(nil)

// Connect parses url, verifies connectivity and returns a lease on key.
func Connect(ctx context.Context, url, key string) (*RedisLease, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisLease(rdb, key), nil
}

func NewRedisLease(rdb *redis.Client, key string) *RedisLease {
	return &RedisLease{rdb: rdb, key: key}
}

// Acquire takes the lease for ttl. ok is false when another run holds it.
func (l *RedisLease) Acquire(ctx context.Context, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lease %s: %w", l.key, err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.rdb, []string{l.key}, token).Err()
	}
	return release, true, nil
}

// Close releases the underlying client.
func (l *RedisLease) Close() error {
	return l.rdb.Close()
}

// LocalLease serialises runs inside one process.
type LocalLease struct {
	mu sync.Mutex
}

var _ ports.RunLease = (*LocalLease)(nil)

func NewLocalLease() *LocalLease {
	return &LocalLease{}
}

// Acquire ignores ttl; the lease lasts until release is called.
func (l *LocalLease) Acquire(context.Context, time.Duration) (func(), bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}
	var once sync.Once
	return func() { once.Do(l.mu.Unlock) }, true, nil
}
