package lock

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/voyagedesk/inventory-sync/internal/inventory"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisTryLock(t *testing.T) {
	t.Parallel()

	client := setupRedis(t)
	ctx := context.Background()
	first := NewRedis(client, WithKeyPrefix("test:"))
	second := NewRedis(client, WithKeyPrefix("test:"))

	release, err := first.TryLock(ctx, "acme")
	require.NoError(t, err)

	_, err = second.TryLock(ctx, "acme")
	require.ErrorIs(t, err, inventory.ErrAlreadyRunning)

	release()
	release()

	again, err := second.TryLock(ctx, "acme")
	require.NoError(t, err)
	defer again()
}

func TestRedisReleaseKeepsForeignToken(t *testing.T) {
	t.Parallel()

	client := setupRedis(t)
	ctx := context.Background()
	l := NewRedis(client, WithKeyPrefix("test:"), WithTTL(time.Hour))

	release, err := l.TryLock(ctx, "acme")
	require.NoError(t, err)

	// simulate expiry followed by another holder
	require.NoError(t, client.Set(ctx, "test:acme", "someone-else", time.Hour).Err())
	release()

	val, err := client.Get(ctx, "test:acme").Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", val)
}

func TestRedisRenewsLeaseWhileHeld(t *testing.T) {
	t.Parallel()

	client := setupRedis(t)
	ctx := context.Background()
	holder := NewRedis(client, WithKeyPrefix("renew:"), WithTTL(MinTTL))
	other := NewRedis(client, WithKeyPrefix("renew:"), WithTTL(MinTTL))

	release, err := holder.TryLock(ctx, "acme")
	require.NoError(t, err)

	// hold well past the original lease
	time.Sleep(3 * MinTTL)

	_, err = other.TryLock(ctx, "acme")
	require.ErrorIs(t, err, inventory.ErrAlreadyRunning)

	ttl, err := client.PTTL(ctx, "renew:acme").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	release()

	again, err := other.TryLock(ctx, "acme")
	require.NoError(t, err)
	again()
}

func TestRedisStopsRenewingForeignLease(t *testing.T) {
	t.Parallel()

	client := setupRedis(t)
	ctx := context.Background()
	l := NewRedis(client, WithKeyPrefix("foreign:"), WithTTL(MinTTL))

	release, err := l.TryLock(ctx, "acme")
	require.NoError(t, err)
	defer release()

	require.NoError(t, client.Set(ctx, "foreign:acme", "someone-else", 0).Err())
	time.Sleep(MinTTL)

	ttl, err := client.PTTL(ctx, "foreign:acme").Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl, "the other holder's key must not gain our expiry")
}

func TestWithTTL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ttl  time.Duration
		want time.Duration
	}{
		{name: "default when unset", ttl: 0, want: DefaultTTL},
		{name: "raised to minimum", ttl: 10 * time.Millisecond, want: MinTTL},
		{name: "kept when valid", ttl: 5 * time.Minute, want: 5 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NewRedis(nil, WithTTL(tt.ttl)).ttl)
		})
	}
}
