package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagedesk/inventory-sync/internal/inventory"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		wantErr string
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "minimal file connector",
			yaml: `suppliers:
  - id: acme
    schedule:
      frequency: hourly
    connector:
      file:
        path: /data/acme.yaml`,
			check: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "default", cfg.GetTenant())
				assert.Equal(t, StorageTypeMemory, cfg.GetStorageType())
				assert.Equal(t, LockTypeLocal, cfg.GetLockType())
				assert.Equal(t, ConnectorTypeFile, cfg.Suppliers[0].Connector.GetType())
				assert.Equal(t, SnapshotFormatYAML, cfg.Suppliers[0].Connector.File.GetFormat())
				assert.True(t, cfg.Suppliers[0].IsEnabled())
			},
		},
		{
			name: "full document",
			yaml: `tenant: agency-eu
storage:
  type: database
database:
  host: localhost
  port: 5432
  user: invsync
  database: invsync
lock:
  type: redis
  redis:
    address: localhost:6379
    ttl: 30m
sync:
  tickInterval: 30s
  runTimeout: 2m
  queueTimeout: 15m
  itemTimeout: 5s
  maxConcurrentRuns: 2
  fetchRetry:
    maxAttempts: 5
    initialDelay: 500ms
suppliers:
  - id: acme
    enabled: false
    removeMissing: true
    schedule:
      frequency: daily
      syncTimes: ["09:00", "18:30"]
      excludeWeekends: true
      timezone: Europe/Rome
    policy:
      priceTolerance: 0.5
      autoResolve:
        availability_mismatch: use_remote
    connector:
      api:
        endpoint: https://acme.test/inventory
        timeout: 20s`,
			check: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "agency-eu", cfg.GetTenant())
				assert.Equal(t, StorageTypeDatabase, cfg.GetStorageType())
				assert.Equal(t, LockTypeRedis, cfg.GetLockType())
				assert.Equal(t, 30*time.Second, cfg.Sync.GetTickInterval())
				assert.Equal(t, 2*time.Minute, cfg.Sync.GetRunTimeout())
				assert.Equal(t, 15*time.Minute, cfg.Sync.GetQueueTimeout())
				assert.Equal(t, 5*time.Second, cfg.Sync.GetItemTimeout())
				assert.Equal(t, 2, cfg.Sync.GetMaxConcurrentRuns())
				attempts, initial, maxDelay := cfg.Sync.GetFetchRetry()
				assert.Equal(t, 5, attempts)
				assert.Equal(t, 500*time.Millisecond, initial)
				assert.Equal(t, 30*time.Second, maxDelay)

				profile := cfg.Suppliers[0].Profile()
				assert.False(t, profile.Enabled)
				assert.True(t, profile.RemoveMissing)
				assert.Equal(t, []string{"09:00", "18:30"}, profile.Schedule.SyncTimes)
				assert.Equal(t, inventory.ResolutionUseRemote,
					profile.Policy.AutoResolve[inventory.ConflictAvailabilityMismatch])
			},
		},
		{
			name:    "no suppliers",
			yaml:    `tenant: x`,
			wantErr: "at least one supplier",
		},
		{
			name: "duplicate supplier",
			yaml: `suppliers:
  - id: acme
    connector: {file: {path: a.json}}
  - id: acme
    connector: {file: {path: b.json}}`,
			wantErr: "duplicate supplier id",
		},
		{
			name: "missing connector",
			yaml: `suppliers:
  - id: acme`,
			wantErr: "one of connector.api or connector.file",
		},
		{
			name: "two connectors",
			yaml: `suppliers:
  - id: acme
    connector:
      api: {endpoint: http://x}
      file: {path: a.json}`,
			wantErr: "only one of connector.api or connector.file",
		},
		{
			name: "database storage without database",
			yaml: `storage: {type: database}
suppliers:
  - id: acme
    connector: {file: {path: a.json}}`,
			wantErr: "database section is required",
		},
		{
			name: "redis lock without address",
			yaml: `lock: {type: redis}
suppliers:
  - id: acme
    connector: {file: {path: a.json}}`,
			wantErr: "redis.address is required",
		},
		{
			name: "redis lease too short",
			yaml: `lock: {type: redis, redis: {address: localhost:6379, ttl: 200ms}}
suppliers:
  - id: acme
    connector: {file: {path: a.json}}`,
			wantErr: "lock.redis.ttl must be at least 1s",
		},
		{
			name: "bad queue timeout",
			yaml: `sync: {queueTimeout: -5m}
suppliers:
  - id: acme
    connector: {file: {path: a.json}}`,
			wantErr: "sync.queueTimeout must be positive",
		},
		{
			name: "bad duration",
			yaml: `sync: {runTimeout: soon}
suppliers:
  - id: acme
    connector: {file: {path: a.json}}`,
			wantErr: "sync.runTimeout must be a valid duration",
		},
		{
			name: "unsupported file format",
			yaml: `suppliers:
  - id: acme
    connector: {file: {path: a.csv, format: csv}}`,
			wantErr: "connector.file.format",
		},
		{
			name: "oauth2 with token file",
			yaml: `suppliers:
  - id: acme
    connector:
      api:
        endpoint: https://acme.test/feed
        tokenFile: /run/token
        oauth2: {tokenUrl: https://acme.test/token, clientId: sync, clientSecretFile: /run/secret}`,
			wantErr: "only one of connector.api.tokenFile or connector.api.oauth2",
		},
		{
			name: "oauth2 missing client id",
			yaml: `suppliers:
  - id: acme
    connector:
      api:
        endpoint: https://acme.test/feed
        oauth2: {tokenUrl: https://acme.test/token, clientSecretFile: /run/secret}`,
			wantErr: "oauth2 requires tokenUrl, clientId and clientSecretFile",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := Parse([]byte(tt.yaml))
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`suppliers:
  - id: acme
    connector: {file: {path: acme.json}}`), 0600))

	cfg, err := LoadConfig(WithConfigPath(path))
	require.NoError(t, err)
	assert.Equal(t, "acme", cfg.Suppliers[0].ID)

	_, err = LoadConfig()
	require.ErrorContains(t, err, "path is required")

	_, err = LoadConfig(WithConfigPath(filepath.Join(dir, "missing.yaml")))
	require.ErrorContains(t, err, "failed to evaluate symlinks")
}

func TestSyncDefaults(t *testing.T) {
	t.Parallel()

	var s SyncConfig
	assert.Equal(t, time.Minute, s.GetTickInterval())
	assert.Equal(t, 10*time.Minute, s.GetRunTimeout())
	assert.Equal(t, 30*time.Minute, s.GetQueueTimeout())
	assert.Equal(t, 10*time.Second, s.GetItemTimeout())
	assert.Equal(t, 4, s.GetMaxConcurrentRuns())
	attempts, initial, maxDelay := s.GetFetchRetry()
	assert.Equal(t, 3, attempts)
	assert.Equal(t, time.Second, initial)
	assert.Equal(t, 30*time.Second, maxDelay)
}

func TestDatabasePassword(t *testing.T) {
	dir := t.TempDir()
	passwordFile := filepath.Join(dir, "pw")
	require.NoError(t, os.WriteFile(passwordFile, []byte("s3cr3t&x\n"), 0600))

	t.Run("file wins", func(t *testing.T) {
		t.Setenv(DatabasePasswordEnv, "from-env")
		d := &DatabaseConfig{Host: "db", Port: 5432, User: "app", Database: "inv", PasswordFile: passwordFile}

		conn, err := d.GetConnectionString()
		require.NoError(t, err)
		assert.Equal(t, "postgres://app:s3cr3t%26x@db:5432/inv?sslmode=require", conn)
	})

	t.Run("env fallback", func(t *testing.T) {
		t.Setenv(DatabasePasswordEnv, "from-env")
		d := &DatabaseConfig{Host: "db", Port: 5432, User: "app", Database: "inv", SSLMode: "disable"}

		conn, err := d.GetConnectionString()
		require.NoError(t, err)
		assert.Equal(t, "postgres://app:from-env@db:5432/inv?sslmode=disable", conn)
	})

	t.Run("missing", func(t *testing.T) {
		t.Setenv(DatabasePasswordEnv, "")
		_, err := (&DatabaseConfig{}).GetPassword()
		require.ErrorContains(t, err, DatabasePasswordEnv)
	})
}
