package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/voyagedesk/inventory-sync/internal/inventory"
	"github.com/voyagedesk/inventory-sync/internal/logger"
)

const (
	// DefaultTTL bounds how long a crashed holder can block a supplier.
	// Live holders renew the lease every TTL/3.
	DefaultTTL = time.Minute

	// MinTTL is the shortest lease the locker accepts
	MinTTL = time.Second

	defaultKeyPrefix = "inventory-sync:lock:"
	releaseTimeout   = 5 * time.Second
)

// releaseScript deletes the key only if it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the lease only if it still carries our token
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Redis is a Locker backed by SET NX PX
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ Locker = (*Redis)(nil)

// RedisOption configures the Redis locker
type RedisOption func(*Redis)

// WithTTL overrides DefaultTTL; values below MinTTL are raised to it
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		if ttl > 0 {
			r.ttl = max(ttl, MinTTL)
		}
	}
}

// WithKeyPrefix namespaces lock keys, typically by tenant
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// NewRedis creates a Redis-backed locker
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		prefix: defaultKeyPrefix,
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TryLock implements Locker
func (r *Redis) TryLock(ctx context.Context, key string) (Release, error) {
	redisKey := r.prefix + key
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, inventory.ErrAlreadyRunning
	}

	stop := make(chan struct{})
	renewed := make(chan struct{})
	go r.renew(key, redisKey, token, stop, renewed)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-renewed

			// the caller's context may already be cancelled at release time
			releaseCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, r.client, []string{redisKey}, token).Err(); err != nil {
				logger.Warnf("Failed to release lock %s: %v", key, err)
			}
		})
	}, nil
}

// renew extends the lease every ttl/3 until stop is closed or the lease
// is found to belong to someone else
func (r *Redis) renew(key, redisKey, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), r.ttl/3)
		n, err := renewScript.Run(ctx, r.client, []string{redisKey}, token, r.ttl.Milliseconds()).Int()
		cancel()
		switch {
		case err != nil:
			// transient; the next tick retries while the lease is still valid
			logger.Warnf("Failed to renew lock %s: %v", key, err)
		case n == 0:
			logger.Errorf("Lock %s expired before renewal; another instance may now hold it", key)
			return
		}
	}
}
