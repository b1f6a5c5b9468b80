package config

import (
	"fmt"
	"time"
)

func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateLock(); err != nil {
		return err
	}
	if err := c.Sync.validate(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	if len(c.Suppliers) == 0 {
		return fmt.Errorf("at least one supplier must be configured")
	}

	seen := make(map[string]bool, len(c.Suppliers))
	for i := range c.Suppliers {
		s := &c.Suppliers[i]
		if s.ID == "" {
			return fmt.Errorf("supplier[%d]: id is required", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("supplier[%d]: duplicate supplier id '%s'", i, s.ID)
		}
		seen[s.ID] = true

		if err := validateConnector(&s.Connector, fmt.Sprintf("supplier[%d] (%s)", i, s.ID)); err != nil {
			return err
		}
	}

	return nil
}

func (c *Config) validateStorage() error {
	switch c.GetStorageType() {
	case StorageTypeMemory, StorageTypeFile:
		return nil
	case StorageTypeDatabase:
		if c.Database == nil {
			return fmt.Errorf("storage: database section is required for storage type %s", StorageTypeDatabase)
		}
		return c.Database.validate()
	default:
		return fmt.Errorf("storage: unknown type %q", c.Storage.Type)
	}
}

func (d *DatabaseConfig) validate() error {
	if d.Host == "" {
		return fmt.Errorf("database: host is required")
	}
	if d.Port == 0 {
		return fmt.Errorf("database: port is required")
	}
	if d.User == "" {
		return fmt.Errorf("database: user is required")
	}
	if d.Database == "" {
		return fmt.Errorf("database: database name is required")
	}
	return validateDuration(d.ConnMaxLifetime, "database.connMaxLifetime")
}

func (c *Config) validateLock() error {
	switch c.GetLockType() {
	case LockTypeLocal:
		return nil
	case LockTypeRedis:
		if c.Lock.Redis == nil || c.Lock.Redis.Address == "" {
			return fmt.Errorf("lock: redis.address is required for lock type %s", LockTypeRedis)
		}
		if err := validateDuration(c.Lock.Redis.TTL, "lock.redis.ttl"); err != nil {
			return err
		}
		if c.Lock.Redis.TTL != "" {
			if ttl, _ := time.ParseDuration(c.Lock.Redis.TTL); ttl < time.Second {
				return fmt.Errorf("lock.redis.ttl must be at least 1s, got %s", c.Lock.Redis.TTL)
			}
		}
		return nil
	default:
		return fmt.Errorf("lock: unknown type %q", c.Lock.Type)
	}
}

func (s *SyncConfig) validate() error {
	for name, value := range map[string]string{
		"sync.tickInterval": s.TickInterval,
		"sync.runTimeout":   s.RunTimeout,
		"sync.queueTimeout": s.QueueTimeout,
		"sync.itemTimeout":  s.ItemTimeout,
	} {
		if err := validateDuration(value, name); err != nil {
			return err
		}
	}
	if s.MaxConcurrentRuns < 0 {
		return fmt.Errorf("sync.maxConcurrentRuns must not be negative")
	}
	if s.FetchRetry != nil {
		if s.FetchRetry.MaxAttempts < 0 {
			return fmt.Errorf("sync.fetchRetry.maxAttempts must not be negative")
		}
		if err := validateDuration(s.FetchRetry.InitialDelay, "sync.fetchRetry.initialDelay"); err != nil {
			return err
		}
		if err := validateDuration(s.FetchRetry.MaxDelay, "sync.fetchRetry.maxDelay"); err != nil {
			return err
		}
	}
	return nil
}

func validateConnector(c *ConnectorConfig, prefix string) error {
	if c.API != nil && c.File != nil {
		return fmt.Errorf("%s: only one of connector.api or connector.file may be specified", prefix)
	}

	switch {
	case c.API != nil:
		if c.API.Endpoint == "" {
			return fmt.Errorf("%s: connector.api.endpoint is required", prefix)
		}
		if o := c.API.OAuth2; o != nil {
			if c.API.TokenFile != "" {
				return fmt.Errorf("%s: only one of connector.api.tokenFile or connector.api.oauth2 may be specified", prefix)
			}
			if o.TokenURL == "" || o.ClientID == "" || o.ClientSecretFile == "" {
				return fmt.Errorf("%s: connector.api.oauth2 requires tokenUrl, clientId and clientSecretFile", prefix)
			}
		}
		return validateDuration(c.API.Timeout, prefix+": connector.api.timeout")
	case c.File != nil:
		if c.File.Path == "" {
			return fmt.Errorf("%s: connector.file.path is required", prefix)
		}
		if f := c.File.GetFormat(); f != SnapshotFormatJSON && f != SnapshotFormatYAML {
			return fmt.Errorf("%s: connector.file.format must be %s or %s, got %s",
				prefix, SnapshotFormatJSON, SnapshotFormatYAML, f)
		}
		return nil
	default:
		return fmt.Errorf("%s: one of connector.api or connector.file must be specified", prefix)
	}
}

func validateDuration(value, name string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s must be a valid duration (e.g., '30s', '5m'): %w", name, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive", name)
	}
	return nil
}
