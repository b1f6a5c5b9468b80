// Package store defines the persistence contracts of the synchronization
// engine. Implementations live in the memory and postgres subpackages.
package store

import (
	"context"

	"github.com/voyagedesk/inventory-sync/internal/inventory"
)

// InventoryStore is the tenant's authoritative copy of supplier inventory
type InventoryStore interface {
	// GetItem returns inventory.ErrNotFound when the item does not exist
	GetItem(ctx context.Context, supplierID, itemID string) (*inventory.Item, error)
	ListItems(ctx context.Context, supplierID string) ([]*inventory.Item, error)
	// PutItem inserts or replaces the item wholesale
	PutItem(ctx context.Context, item *inventory.Item) error
	DeleteItem(ctx context.Context, supplierID, itemID string) error
}

// ProfileStore persists supplier sync profiles
type ProfileStore interface {
	ListProfiles(ctx context.Context) ([]*inventory.Profile, error)
	GetProfile(ctx context.Context, supplierID string) (*inventory.Profile, error)
	UpsertProfile(ctx context.Context, profile *inventory.Profile) error
}

// RunStore persists sync runs
type RunStore interface {
	CreateRun(ctx context.Context, run *inventory.SyncRun) error
	UpdateRun(ctx context.Context, run *inventory.SyncRun) error
	GetRun(ctx context.Context, runID string) (*inventory.SyncRun, error)
	// LatestRun returns the most recently started run of the supplier
	LatestRun(ctx context.Context, supplierID string) (*inventory.SyncRun, error)
	// ListActiveRuns returns runs still queued or running
	ListActiveRuns(ctx context.Context) ([]*inventory.SyncRun, error)
}

// ConflictStore persists detected conflicts
type ConflictStore interface {
	CreateConflict(ctx context.Context, conflict *inventory.SyncConflict) error
	GetConflict(ctx context.Context, conflictID string) (*inventory.SyncConflict, error)
	ListConflicts(ctx context.Context, filter inventory.ConflictFilter) ([]*inventory.SyncConflict, error)
	// UpdateConflictAtomically serializes updates of one conflict row. The
	// function receives a copy; returning an error discards the change.
	// Item writes made with the context passed to fn are part of the same
	// update where the backend supports transactions.
	UpdateConflictAtomically(
		ctx context.Context, conflictID string, fn func(context.Context, *inventory.SyncConflict) error,
	) (*inventory.SyncConflict, error)
}

// ErrorStore persists operational failures
type ErrorStore interface {
	CreateError(ctx context.Context, syncErr *inventory.SyncError) error
	GetError(ctx context.Context, errorID string) (*inventory.SyncError, error)
	ListErrors(ctx context.Context, filter inventory.ErrorFilter) ([]*inventory.SyncError, error)
	// UpdateErrorAtomically serializes updates of one error row. The
	// function receives a copy; returning an error discards the change.
	UpdateErrorAtomically(
		ctx context.Context, errorID string, fn func(*inventory.SyncError) error,
	) (*inventory.SyncError, error)
	// DeleteResolvedErrors removes resolved rows of one supplier, or of all
	// suppliers when supplierID is empty, and returns how many were removed
	DeleteResolvedErrors(ctx context.Context, supplierID string) (int, error)
}

// HistoryStore is the append-only ledger of finished runs
type HistoryStore interface {
	AppendHistory(ctx context.Context, entry *inventory.HistoryEntry) error
	QueryHistory(ctx context.Context, query inventory.HistoryQuery) (*inventory.HistoryPage, error)
}

// Store groups every persistence contract behind one backend
type Store interface {
	InventoryStore
	ProfileStore
	RunStore
	ConflictStore
	ErrorStore
	HistoryStore

	// Ping reports whether the backend is reachable
	Ping(ctx context.Context) error
	Close() error
}
