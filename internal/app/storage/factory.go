// Package storage selects and builds the persistence backend of the sync
// engine from configuration.
package storage

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/voyagedesk/inventory-sync/internal/config"
	"github.com/voyagedesk/inventory-sync/internal/store"
)

// Factory creates the store and owns the resources behind it.
type Factory interface {
	// CreateStore returns the store. Repeated calls return the same instance.
	CreateStore(ctx context.Context) (store.Store, error)

	// Cleanup releases any resources held by this factory.
	// For database factories, this closes the connection pool.
	Cleanup()
}

// NewStorageFactory creates the factory matching the configured storage type.
// tracer may be nil.
func NewStorageFactory(ctx context.Context, cfg *config.Config, tracer trace.Tracer) (Factory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	switch cfg.GetStorageType() {
	case config.StorageTypeDatabase:
		return NewDatabaseFactory(ctx, cfg, WithTracer(tracer))
	case config.StorageTypeFile:
		return NewFileFactory(cfg.GetDataDir())
	case config.StorageTypeMemory:
		return NewMemoryFactory(), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.GetStorageType())
	}
}
