package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voyagedesk/inventory-sync/internal/config"
	"github.com/voyagedesk/inventory-sync/internal/lock"
	"github.com/voyagedesk/inventory-sync/internal/logger"
)

const redisPingTimeout = 5 * time.Second

// buildLocker creates the supplier lock named by the configuration. The
// returned close function releases the Redis client, if any.
func buildLocker(ctx context.Context, cfg *config.Config) (lock.Locker, func() error, error) {
	switch cfg.GetLockType() {
	case config.LockTypeLocal:
		logger.Info("Using in-process supplier lock")
		return lock.NewLocal(), func() error { return nil }, nil

	case config.LockTypeRedis:
		rc := cfg.Lock.Redis
		client := redis.NewClient(&redis.Options{
			Addr:     rc.Address,
			DB:       rc.DB,
			Password: rc.GetPassword(),
		})

		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", rc.Address, err)
		}

		opts := []lock.RedisOption{lock.WithKeyPrefix(fmt.Sprintf("inventory-sync:%s:lock:", cfg.GetTenant()))}
		if rc.TTL != "" {
			ttl, err := time.ParseDuration(rc.TTL)
			if err != nil {
				_ = client.Close()
				return nil, nil, fmt.Errorf("invalid lock.redis.ttl: %w", err)
			}
			opts = append(opts, lock.WithTTL(ttl))
		}

		logger.Infof("Using redis supplier lock at %s", rc.Address)
		return lock.NewRedis(client, opts...), client.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown lock type: %s", cfg.GetLockType())
	}
}
