// Package config provides configuration loading and management for the sync engine.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/voyagedesk/inventory-sync/internal/inventory"
	"github.com/voyagedesk/inventory-sync/internal/telemetry"
)

// EnvPrefix is the prefix of environment variables read by the binary
const EnvPrefix = "INVSYNC"

const (
	// ConnectorTypeAPI fetches supplier snapshots over HTTP
	ConnectorTypeAPI = "api"

	// ConnectorTypeFile reads supplier snapshots from a local file
	ConnectorTypeFile = "file"
)

const (
	// SnapshotFormatJSON is the default snapshot encoding
	SnapshotFormatJSON = "json"

	// SnapshotFormatYAML is accepted by file connectors
	SnapshotFormatYAML = "yaml"
)

// StorageType selects the persistence backend
type StorageType string

const (
	// StorageTypeMemory keeps everything in process memory
	StorageTypeMemory StorageType = "memory"

	// StorageTypeFile keeps state in memory and snapshots it to a JSON file
	StorageTypeFile StorageType = "file"

	// StorageTypeDatabase uses PostgreSQL
	StorageTypeDatabase StorageType = "database"
)

// LockType selects the supplier lock implementation
type LockType string

const (
	// LockTypeLocal guards a single process
	LockTypeLocal LockType = "local"

	// LockTypeRedis guards every replica sharing a Redis instance
	LockTypeRedis LockType = "redis"
)

const (
	// DatabasePasswordEnv is read when no password file is configured
	DatabasePasswordEnv = "INVSYNC_DATABASE_PASSWORD"

	// RedisPasswordEnv is read when no Redis password file is configured
	RedisPasswordEnv = "INVSYNC_REDIS_PASSWORD"

	defaultTenant            = "default"
	defaultDataDir           = "./data"
	defaultTickInterval      = time.Minute
	defaultRunTimeout        = 10 * time.Minute
	defaultQueueTimeout      = 30 * time.Minute
	defaultItemTimeout       = 10 * time.Second
	defaultMaxConcurrentRuns = 4
	defaultFetchAttempts     = 3
	defaultFetchInitialDelay = time.Second
	defaultFetchMaxDelay     = 30 * time.Second
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks; EvalSymlinks also cleans the path
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) && !filepath.IsLocal(realPath) {
			return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// Tenant is stamped on runs, logs and metrics. Defaults to "default".
	Tenant    string            `yaml:"tenant,omitempty"`
	Storage   StorageConfig     `yaml:"storage,omitempty"`
	Database  *DatabaseConfig   `yaml:"database,omitempty"`
	Lock      LockConfig        `yaml:"lock,omitempty"`
	Sync      SyncConfig        `yaml:"sync,omitempty"`
	CORS      *CORSConfig       `yaml:"cors,omitempty"`
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
	Suppliers []SupplierConfig  `yaml:"suppliers"`
}

// StorageConfig selects and configures the persistence backend
type StorageConfig struct {
	// Type is memory, file or database. Defaults to database when a database
	// section is present, memory otherwise.
	Type StorageType `yaml:"type,omitempty"`

	// DataDir holds the snapshot file for the file storage type
	DataDir string `yaml:"dataDir,omitempty"`
}

// LockConfig selects the supplier lock implementation
type LockConfig struct {
	Type  LockType     `yaml:"type,omitempty"`
	Redis *RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig defines Redis connection settings for the distributed lock
type RedisConfig struct {
	Address      string `yaml:"address"`
	DB           int    `yaml:"db,omitempty"`
	PasswordFile string `yaml:"passwordFile,omitempty"`
	// TTL bounds how long a crashed replica can block a supplier (e.g. "1m").
	// Live holders renew it; it must be at least one second.
	TTL string `yaml:"ttl,omitempty"`
}

// SyncConfig tunes the orchestrator and scheduler
type SyncConfig struct {
	TickInterval      string            `yaml:"tickInterval,omitempty"`
	RunTimeout        string            `yaml:"runTimeout,omitempty"`
	QueueTimeout      string            `yaml:"queueTimeout,omitempty"`
	ItemTimeout       string            `yaml:"itemTimeout,omitempty"`
	MaxConcurrentRuns int               `yaml:"maxConcurrentRuns,omitempty"`
	FetchRetry        *FetchRetryConfig `yaml:"fetchRetry,omitempty"`
}

// FetchRetryConfig is the connector retry policy
type FetchRetryConfig struct {
	MaxAttempts  int    `yaml:"maxAttempts,omitempty"`
	InitialDelay string `yaml:"initialDelay,omitempty"`
	MaxDelay     string `yaml:"maxDelay,omitempty"`
}

// CORSConfig lists the dashboard origins allowed to call the API
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// SupplierConfig declares a supplier, its connector and the profile seeded on
// first start. Profiles already present in the store are left untouched.
type SupplierConfig struct {
	ID            string                   `yaml:"id"`
	Enabled       *bool                    `yaml:"enabled,omitempty"`
	RemoveMissing bool                     `yaml:"removeMissing,omitempty"`
	Schedule      inventory.Schedule       `yaml:"schedule"`
	Policy        inventory.ConflictPolicy `yaml:"policy,omitempty"`
	Connector     ConnectorConfig          `yaml:"connector"`
}

// ConnectorConfig configures how a supplier snapshot is fetched
type ConnectorConfig struct {
	API  *APIConnectorConfig  `yaml:"api,omitempty"`
	File *FileConnectorConfig `yaml:"file,omitempty"`
}

// APIConnectorConfig fetches a JSON snapshot over HTTP
type APIConnectorConfig struct {
	// Endpoint returns the full snapshot
	Endpoint string `yaml:"endpoint"`

	// ItemEndpoint returns one item; "{itemId}" is substituted. Optional.
	ItemEndpoint string `yaml:"itemEndpoint,omitempty"`

	// Timeout per request, e.g. "30s"
	Timeout string `yaml:"timeout,omitempty"`

	// TokenFile holds a bearer token sent as Authorization header
	TokenFile string `yaml:"tokenFile,omitempty"`

	// OAuth2 obtains bearer tokens with the client credentials grant
	OAuth2 *OAuth2Config `yaml:"oauth2,omitempty"`

	// ItemsPath locates the item list inside a wrapped response, using
	// gjson path syntax such as "data.rooms". Empty means the whole body.
	ItemsPath string `yaml:"itemsPath,omitempty"`

	Headers map[string]string `yaml:"headers,omitempty"`
}

// OAuth2Config configures the client credentials grant against a supplier's
// token endpoint
type OAuth2Config struct {
	TokenURL string `yaml:"tokenUrl"`
	ClientID string `yaml:"clientId"`

	// ClientSecretFile contains only the secret; surrounding whitespace is trimmed
	ClientSecretFile string   `yaml:"clientSecretFile"`
	Scopes           []string `yaml:"scopes,omitempty"`
}

// GetClientSecret reads the client secret from ClientSecretFile
func (o *OAuth2Config) GetClientSecret() (string, error) {
	data, err := os.ReadFile(filepath.Clean(o.ClientSecretFile))
	if err != nil {
		return "", fmt.Errorf("failed to read oauth2 client secret from file %s: %w", o.ClientSecretFile, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// FileConnectorConfig reads a snapshot from disk on every fetch
type FileConnectorConfig struct {
	Path string `yaml:"path"`

	// Format is json or yaml; inferred from the extension when empty
	Format string `yaml:"format,omitempty"`
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	User string `yaml:"user"`

	// PasswordFile contains only the password; surrounding whitespace is trimmed
	PasswordFile string `yaml:"passwordFile,omitempty"`

	Database string `yaml:"database"`

	// SSLMode is disable, require, verify-ca or verify-full. Defaults to require.
	SSLMode string `yaml:"sslMode,omitempty"`

	MaxOpenConns int32 `yaml:"maxOpenConns,omitempty"`
	MaxIdleConns int32 `yaml:"maxIdleConns,omitempty"`

	// ConnMaxLifetime is a duration such as "1h" or "30m"
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`
}

// GetPassword returns the database password, preferring PasswordFile over
// the INVSYNC_DATABASE_PASSWORD environment variable.
func (d *DatabaseConfig) GetPassword() (string, error) {
	return readSecret(d.PasswordFile, DatabasePasswordEnv, "database password")
}

// GetConnectionString builds a PostgreSQL URL with the password escaped
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User),
		url.QueryEscape(password),
		d.Host,
		d.Port,
		d.Database,
		sslMode,
	), nil
}

// GetPassword returns the Redis password, or "" when none is configured
func (r *RedisConfig) GetPassword() string {
	password, err := readSecret(r.PasswordFile, RedisPasswordEnv, "redis password")
	if err != nil {
		return ""
	}
	return password
}

func readSecret(file, env, what string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(filepath.Clean(file))
		if err != nil {
			return "", fmt.Errorf("failed to read %s from file %s: %w", what, file, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if v := os.Getenv(env); v != "" {
		return v, nil
	}

	return "", fmt.Errorf("no %s configured: set passwordFile or %s environment variable", what, env)
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes and validates a YAML configuration document
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// GetTenant returns the tenant, using "default" if not specified
func (c *Config) GetTenant() string {
	if c.Tenant == "" {
		return defaultTenant
	}
	return c.Tenant
}

// GetStorageType returns the configured or inferred storage backend
func (c *Config) GetStorageType() StorageType {
	if c.Storage.Type != "" {
		return c.Storage.Type
	}
	if c.Database != nil {
		return StorageTypeDatabase
	}
	return StorageTypeMemory
}

// GetDataDir returns the directory of the file storage snapshot
func (c *Config) GetDataDir() string {
	if c.Storage.DataDir == "" {
		return defaultDataDir
	}
	return c.Storage.DataDir
}

// GetLockType returns the configured lock, defaulting to local
func (c *Config) GetLockType() LockType {
	if c.Lock.Type == "" {
		return LockTypeLocal
	}
	return c.Lock.Type
}

// GetTickInterval returns the scheduler tick period
func (s *SyncConfig) GetTickInterval() time.Duration {
	return durationOr(s.TickInterval, defaultTickInterval)
}

// GetRunTimeout bounds the connector fetch of one run
func (s *SyncConfig) GetRunTimeout() time.Duration {
	return durationOr(s.RunTimeout, defaultRunTimeout)
}

// GetQueueTimeout bounds how long a run waits for a processing slot
func (s *SyncConfig) GetQueueTimeout() time.Duration {
	return durationOr(s.QueueTimeout, defaultQueueTimeout)
}

// GetItemTimeout bounds each per-item store write
func (s *SyncConfig) GetItemTimeout() time.Duration {
	return durationOr(s.ItemTimeout, defaultItemTimeout)
}

// GetMaxConcurrentRuns caps how many runs process at once
func (s *SyncConfig) GetMaxConcurrentRuns() int {
	if s.MaxConcurrentRuns <= 0 {
		return defaultMaxConcurrentRuns
	}
	return s.MaxConcurrentRuns
}

// GetFetchRetry returns the connector retry policy with defaults applied
func (s *SyncConfig) GetFetchRetry() (attempts int, initial, maxDelay time.Duration) {
	attempts = defaultFetchAttempts
	initial = defaultFetchInitialDelay
	maxDelay = defaultFetchMaxDelay
	if s.FetchRetry == nil {
		return attempts, initial, maxDelay
	}
	if s.FetchRetry.MaxAttempts > 0 {
		attempts = s.FetchRetry.MaxAttempts
	}
	return attempts,
		durationOr(s.FetchRetry.InitialDelay, initial),
		durationOr(s.FetchRetry.MaxDelay, maxDelay)
}

// durationOr parses value; invalid values were rejected by validate
func durationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// IsEnabled reports the seeded enabled flag, defaulting to true
func (s *SupplierConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Profile builds the profile seeded for this supplier
func (s *SupplierConfig) Profile() *inventory.Profile {
	return &inventory.Profile{
		SupplierID:    s.ID,
		Enabled:       s.IsEnabled(),
		Schedule:      s.Schedule.Clone(),
		Policy:        s.Policy.Clone(),
		RemoveMissing: s.RemoveMissing,
	}
}

// GetType returns the connector type inferred from the populated section
func (c *ConnectorConfig) GetType() string {
	if c.API != nil {
		return ConnectorTypeAPI
	}
	if c.File != nil {
		return ConnectorTypeFile
	}
	return ""
}

// GetFormat returns the snapshot format, inferring it from the file extension
func (f *FileConnectorConfig) GetFormat() string {
	if f.Format != "" {
		return f.Format
	}
	switch strings.ToLower(filepath.Ext(f.Path)) {
	case ".yaml", ".yml":
		return SnapshotFormatYAML
	default:
		return SnapshotFormatJSON
	}
}
