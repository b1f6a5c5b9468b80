package app

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/voyagedesk/inventory-sync/internal/api"
	"github.com/voyagedesk/inventory-sync/internal/app/storage"
	"github.com/voyagedesk/inventory-sync/internal/config"
	"github.com/voyagedesk/inventory-sync/internal/connector"
	"github.com/voyagedesk/inventory-sync/internal/lock"
	"github.com/voyagedesk/inventory-sync/internal/logger"
	"github.com/voyagedesk/inventory-sync/internal/resolver"
	"github.com/voyagedesk/inventory-sync/internal/retry"
	"github.com/voyagedesk/inventory-sync/internal/service"
	pkgsync "github.com/voyagedesk/inventory-sync/internal/sync"
	"github.com/voyagedesk/inventory-sync/internal/sync/scheduler"
	"github.com/voyagedesk/inventory-sync/internal/telemetry"
)

const (
	defaultHTTPAddress    = ":8080"
	defaultRequestTimeout = 10 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 15 * time.Second
	defaultIdleTimeout    = 60 * time.Second

	syncTracerName  = "github.com/voyagedesk/inventory-sync/sync"
	storeTracerName = "github.com/voyagedesk/inventory-sync/store"
)

// SyncAppOptions is a function that configures the sync app builder
type SyncAppOptions func(*syncAppConfig) error

// syncAppConfig collects the builder inputs. Component overrides exist
// mainly for tests; production wiring derives everything from config.
type syncAppConfig struct {
	config *config.Config

	// Optional component overrides
	storageFactory storage.Factory
	connectors     connector.Provider
	locker         lock.Locker
	telemetry      *telemetry.Telemetry

	// HTTP server options
	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration
}

func baseConfig(opts ...SyncAppOptions) (*syncAppConfig, error) {
	cfg := &syncAppConfig{
		address:        defaultHTTPAddress,
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return cfg, nil
}

// NewSyncApp wires every component of the engine from configuration
func NewSyncApp(ctx context.Context, opts ...SyncAppOptions) (*SyncApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	// Resources are released in reverse order if wiring fails midway
	var cleanups []func()
	cleanupNeeded := true
	defer func() {
		if cleanupNeeded {
			for i := len(cleanups) - 1; i >= 0; i-- {
				cleanups[i]()
			}
		}
	}()

	if cfg.telemetry == nil {
		cfg.telemetry, err = telemetry.New(ctx, cfg.config.Telemetry)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		tel := cfg.telemetry
		cleanups = append(cleanups, func() { _ = tel.Shutdown(context.Background()) })
	}

	if cfg.storageFactory == nil {
		cfg.storageFactory, err = storage.NewStorageFactory(ctx, cfg.config, cfg.telemetry.Tracer(storeTracerName))
		if err != nil {
			return nil, fmt.Errorf("failed to create storage factory: %w", err)
		}
	}
	cleanups = append(cleanups, cfg.storageFactory.Cleanup)

	closeLocker := func() error { return nil }
	if cfg.locker == nil {
		cfg.locker, closeLocker, err = buildLocker(ctx, cfg.config)
		if err != nil {
			return nil, fmt.Errorf("failed to build supplier lock: %w", err)
		}
		cleanups = append(cleanups, func() { _ = closeLocker() })
	}

	components, err := buildSyncComponents(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build sync components: %w", err)
	}

	httpServer, err := buildHTTPServer(cfg, components.SyncService)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	appCtx, cancel := context.WithCancel(ctx)
	cleanupNeeded = false

	return &SyncApp{
		config:         cfg.config,
		components:     components,
		httpServer:     httpServer,
		storageFactory: cfg.storageFactory,
		closeLocker:    closeLocker,
		ctx:            appCtx,
		cancelFunc:     cancel,
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the HTTP server address
func WithAddress(addr string) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, found := strings.Cut(addr, ":")
		if !found || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares replaces the default HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithRequestTimeout bounds request handling in the default middleware chain
func WithRequestTimeout(d time.Duration) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		if d <= 0 {
			return fmt.Errorf("request timeout must be positive")
		}
		cfg.requestTimeout = d
		if cfg.writeTimeout <= d {
			cfg.writeTimeout = d + 5*time.Second
		}
		return nil
	}
}

// WithStorageFactory allows injecting a custom storage factory (for testing)
func WithStorageFactory(f storage.Factory) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.storageFactory = f
		return nil
	}
}

// WithConnectors allows injecting supplier connectors (for testing)
func WithConnectors(p connector.Provider) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.connectors = p
		return nil
	}
}

// WithLocker allows injecting the supplier lock (for testing)
func WithLocker(l lock.Locker) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.locker = l
		return nil
	}
}

// WithTelemetry allows injecting preconfigured telemetry providers
func WithTelemetry(t *telemetry.Telemetry) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.telemetry = t
		return nil
	}
}

// buildSyncComponents builds the store, orchestrator, scheduler and service
func buildSyncComponents(ctx context.Context, b *syncAppConfig) (*AppComponents, error) {
	logger.Info("Initializing sync components")

	s, err := b.storageFactory.CreateStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	seeded, err := seedProfiles(ctx, s, b.config.Suppliers)
	if err != nil {
		return nil, err
	}
	if seeded > 0 {
		logger.Infof("Seeded %d supplier profile(s) from configuration", seeded)
	}

	if b.connectors == nil {
		b.connectors, err = connector.NewRegistryFromConfig(b.config.Suppliers)
		if err != nil {
			return nil, fmt.Errorf("failed to build connectors: %w", err)
		}
	}

	tenant := b.config.GetTenant()
	tracer := b.telemetry.Tracer(syncTracerName)

	syncMetrics, err := telemetry.NewSyncMetrics(b.telemetry.MeterProvider(), tenant)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync metrics: %w", err)
	}

	errorManager := retry.New(s, retry.WithTracer(tracer))
	conflictResolver := resolver.New(s, resolver.WithTracer(tracer))

	attempts, initialDelay, maxDelay := b.config.Sync.GetFetchRetry()
	orchestrator := pkgsync.New(s, b.connectors, b.locker, conflictResolver, errorManager,
		pkgsync.WithTenant(tenant),
		pkgsync.WithRunTimeout(b.config.Sync.GetRunTimeout()),
		pkgsync.WithQueueTimeout(b.config.Sync.GetQueueTimeout()),
		pkgsync.WithItemTimeout(b.config.Sync.GetItemTimeout()),
		pkgsync.WithMaxConcurrentRuns(b.config.Sync.GetMaxConcurrentRuns()),
		pkgsync.WithFetchRetry(pkgsync.FetchRetry{
			MaxAttempts:  attempts,
			InitialDelay: initialDelay,
			MaxDelay:     maxDelay,
		}),
		pkgsync.WithMetrics(syncMetrics),
		pkgsync.WithTracer(tracer),
	)
	errorManager.SetExecutor(orchestrator)

	sched := scheduler.New(s, orchestrator,
		scheduler.WithTickInterval(b.config.Sync.GetTickInterval()),
	)

	svc, err := service.New(service.Dependencies{
		Store:     s,
		Runs:      orchestrator,
		Scheduler: sched,
		Resolver:  conflictResolver,
		Errors:    errorManager,
		Tracer:    b.telemetry.Tracer(service.ServiceTracerName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sync service: %w", err)
	}

	logger.Info("Sync components initialized successfully")
	return &AppComponents{
		Store:        s,
		Orchestrator: orchestrator,
		Scheduler:    sched,
		Errors:       errorManager,
		SyncService:  svc,
		Telemetry:    b.telemetry,
	}, nil
}

// buildHTTPServer builds the HTTP server with router and middleware
func buildHTTPServer(b *syncAppConfig, svc service.SyncService) (*http.Server, error) {
	logger.Info("Initializing HTTP server")

	middlewares := b.middlewares
	if middlewares == nil {
		middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
		}
		if b.config.CORS != nil && len(b.config.CORS.AllowedOrigins) > 0 {
			middlewares = append(middlewares, cors.Handler(cors.Options{
				AllowedOrigins: b.config.CORS.AllowedOrigins,
				AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
				AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
				MaxAge:         300,
			}))
			logger.Infof("CORS enabled for %d origin(s)", len(b.config.CORS.AllowedOrigins))
		}
		middlewares = append(middlewares, api.LoggingMiddleware)
	}

	// Metrics and tracing go first so they observe every request
	metricsMiddleware, err := telemetry.MetricsMiddleware(b.telemetry.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics middleware: %w", err)
	}
	observability := []func(http.Handler) http.Handler{
		telemetry.TracingMiddleware(b.telemetry.TracerProvider()),
		metricsMiddleware,
	}
	middlewares = append(observability, middlewares...)

	serverOpts := []api.ServerOption{api.WithMiddlewares(middlewares...)}
	if h := b.telemetry.MetricsHandler(); h != nil {
		serverOpts = append(serverOpts, api.WithMetricsHandler(h))
	}
	router := api.NewServer(svc, serverOpts...)

	server := &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}

	logger.Infow("HTTP server configured", "address", b.address)
	return server, nil
}
