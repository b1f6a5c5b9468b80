package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/voyagedesk/inventory-sync/internal/logger"
	"github.com/voyagedesk/inventory-sync/internal/store"
	"github.com/voyagedesk/inventory-sync/internal/store/memory"
)

const (
	// SnapshotFileName is the state file kept in the data directory
	SnapshotFileName = "inventory-sync.json"

	// LockFileName guards the data directory against a second process
	LockFileName = "inventory-sync.lock"
)

// MemoryFactory creates an in-process store, optionally persisted to a
// snapshot file so state survives restarts.
type MemoryFactory struct {
	snapshotPath string
	dirLock      *flock.Flock
	store        *memory.Store
}

var _ Factory = (*MemoryFactory)(nil)

// NewMemoryFactory creates a factory for a volatile in-memory store
func NewMemoryFactory() *MemoryFactory {
	logger.Info("Creating in-memory storage factory")
	return &MemoryFactory{}
}

// NewFileFactory creates a factory whose store snapshots its state to
// dataDir, creating the directory when missing.
func NewFileFactory(dataDir string) (*MemoryFactory, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}

	path := filepath.Join(dataDir, SnapshotFileName)
	logger.Infow("Creating file-based storage factory", "snapshot", path)
	return &MemoryFactory{
		snapshotPath: path,
		dirLock:      flock.New(filepath.Join(dataDir, LockFileName)),
	}, nil
}

// CreateStore implements Factory
func (f *MemoryFactory) CreateStore(_ context.Context) (store.Store, error) {
	if f.store != nil {
		return f.store, nil
	}

	var opts []memory.Option
	if f.snapshotPath != "" {
		// two writers would overwrite each other's snapshot
		locked, err := f.dirLock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("failed to lock data directory: %w", err)
		}
		if !locked {
			return nil, fmt.Errorf("data directory %s is in use by another process", filepath.Dir(f.snapshotPath))
		}
		opts = append(opts, memory.WithSnapshotFile(f.snapshotPath))
	}
	s, err := memory.New(opts...)
	if err != nil {
		f.unlock()
		return nil, fmt.Errorf("failed to open memory store: %w", err)
	}
	f.store = s
	return s, nil
}

// Cleanup implements Factory
func (f *MemoryFactory) Cleanup() {
	if f.store == nil {
		return
	}
	if err := f.store.Close(); err != nil {
		logger.Warnf("Failed to close memory store: %v", err)
	}
	f.store = nil
	f.unlock()
}

func (f *MemoryFactory) unlock() {
	if f.dirLock == nil {
		return
	}
	if err := f.dirLock.Unlock(); err != nil {
		logger.Warnf("Failed to unlock data directory: %v", err)
	}
}
