// Package memory implements the store contracts in process memory, with an
// optional JSON snapshot on disk so state survives restarts.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/voyagedesk/inventory-sync/internal/inventory"
	"github.com/voyagedesk/inventory-sync/internal/logger"
	"github.com/voyagedesk/inventory-sync/internal/store"
)

// Store keeps all engine state in maps guarded by a single RWMutex.
// Rows updated through the *Atomically methods are additionally
// serialized by a per-row mutex so callbacks may use the store.
type Store struct {
	mu        sync.RWMutex
	items     map[string]map[string]*inventory.Item
	profiles  map[string]*inventory.Profile
	runs      map[string]*inventory.SyncRun
	conflicts map[string]*inventory.SyncConflict
	errors    map[string]*inventory.SyncError
	history   []*inventory.HistoryEntry

	rowLocksMu sync.Mutex
	rowLocks   map[string]*rowLock

	persistence *snapshotFile
}

var _ store.Store = (*Store)(nil)

// Option configures the memory store
type Option func(*Store)

// WithSnapshotFile persists the whole state to path after every change
// and loads it on construction
func WithSnapshotFile(path string) Option {
	return func(s *Store) {
		s.persistence = &snapshotFile{path: path}
	}
}

// New creates an empty memory store
func New(opts ...Option) (*Store, error) {
	s := &Store{
		items:     make(map[string]map[string]*inventory.Item),
		profiles:  make(map[string]*inventory.Profile),
		runs:      make(map[string]*inventory.SyncRun),
		conflicts: make(map[string]*inventory.SyncConflict),
		errors:    make(map[string]*inventory.SyncError),
		rowLocks:  make(map[string]*rowLock),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.persistence != nil {
		snap, err := s.persistence.load()
		if err != nil {
			return nil, err
		}
		s.restore(snap)
		logger.Infof("Loaded inventory sync state from %s", s.persistence.path)
	}
	return s, nil
}

// persistLocked writes the snapshot; callers hold s.mu
func (s *Store) persistLocked() error {
	if s.persistence == nil {
		return nil
	}
	return s.persistence.save(s.snapshotLocked())
}

// rowLock is a per-row mutex shared by its current waiters
type rowLock struct {
	mu   sync.Mutex
	refs int
}

// lockRow locks one row and returns its unlock function. The entry is
// dropped once its last waiter unlocks.
func (s *Store) lockRow(key string) func() {
	s.rowLocksMu.Lock()
	l, ok := s.rowLocks[key]
	if !ok {
		l = &rowLock{}
		s.rowLocks[key] = l
	}
	l.refs++
	s.rowLocksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.rowLocksMu.Lock()
		defer s.rowLocksMu.Unlock()
		l.refs--
		if l.refs == 0 {
			delete(s.rowLocks, key)
		}
	}
}

// Ping always succeeds
func (*Store) Ping(context.Context) error { return nil }

// Close flushes the snapshot if one is configured
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

// GetItem implements store.InventoryStore
func (s *Store) GetItem(_ context.Context, supplierID, itemID string) (*inventory.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[supplierID][itemID]
	if !ok {
		return nil, fmt.Errorf("item %s/%s: %w", supplierID, itemID, inventory.ErrNotFound)
	}
	return cloneItem(item), nil
}

// ListItems implements store.InventoryStore; items are sorted by id
func (s *Store) ListItems(_ context.Context, supplierID string) ([]*inventory.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*inventory.Item, 0, len(s.items[supplierID]))
	for _, item := range s.items[supplierID] {
		out = append(out, cloneItem(item))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PutItem implements store.InventoryStore
func (s *Store) PutItem(ctx context.Context, item *inventory.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if item == nil || item.SupplierID == "" || item.ID == "" {
		return fmt.Errorf("item requires supplier id and id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bySupplier, ok := s.items[item.SupplierID]
	if !ok {
		bySupplier = make(map[string]*inventory.Item)
		s.items[item.SupplierID] = bySupplier
	}
	cp := cloneItem(item)
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now().UTC()
	}
	bySupplier[item.ID] = cp
	return s.persistLocked()
}

// DeleteItem implements store.InventoryStore
func (s *Store) DeleteItem(ctx context.Context, supplierID, itemID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[supplierID][itemID]; !ok {
		return fmt.Errorf("item %s/%s: %w", supplierID, itemID, inventory.ErrNotFound)
	}
	delete(s.items[supplierID], itemID)
	return s.persistLocked()
}

// ListProfiles implements store.ProfileStore; profiles are sorted by supplier
func (s *Store) ListProfiles(context.Context) ([]*inventory.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*inventory.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SupplierID < out[j].SupplierID })
	return out, nil
}

// GetProfile implements store.ProfileStore
func (s *Store) GetProfile(_ context.Context, supplierID string) (*inventory.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[supplierID]
	if !ok {
		return nil, fmt.Errorf("supplier %s: %w", supplierID, inventory.ErrNotFound)
	}
	return p.Clone(), nil
}

// UpsertProfile implements store.ProfileStore
func (s *Store) UpsertProfile(_ context.Context, profile *inventory.Profile) error {
	if profile == nil || profile.SupplierID == "" {
		return fmt.Errorf("profile requires a supplier id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := profile.Clone()
	now := time.Now().UTC()
	if existing, ok := s.profiles[profile.SupplierID]; ok {
		cp.CreatedAt = existing.CreatedAt
	} else if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.profiles[profile.SupplierID] = cp
	return s.persistLocked()
}

// CreateRun implements store.RunStore
func (s *Store) CreateRun(_ context.Context, run *inventory.SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; ok {
		return fmt.Errorf("run %s already exists", run.ID)
	}
	if run.Status.IsActive() {
		for _, existing := range s.runs {
			if existing.SupplierID == run.SupplierID && existing.Status.IsActive() {
				return fmt.Errorf("supplier %s: %w", run.SupplierID, inventory.ErrAlreadyRunning)
			}
		}
	}
	s.runs[run.ID] = run.Clone()
	return s.persistLocked()
}

// UpdateRun implements store.RunStore
func (s *Store) UpdateRun(_ context.Context, run *inventory.SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; !ok {
		return fmt.Errorf("run %s: %w", run.ID, inventory.ErrNotFound)
	}
	s.runs[run.ID] = run.Clone()
	return s.persistLocked()
}

// GetRun implements store.RunStore
func (s *Store) GetRun(_ context.Context, runID string) (*inventory.SyncRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", runID, inventory.ErrNotFound)
	}
	return run.Clone(), nil
}

// LatestRun implements store.RunStore
func (s *Store) LatestRun(_ context.Context, supplierID string) (*inventory.SyncRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *inventory.SyncRun
	for _, run := range s.runs {
		if run.SupplierID != supplierID {
			continue
		}
		if latest == nil || run.StartedAt.After(latest.StartedAt) {
			latest = run
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("no runs for supplier %s: %w", supplierID, inventory.ErrNotFound)
	}
	return latest.Clone(), nil
}

// ListActiveRuns implements store.RunStore
func (s *Store) ListActiveRuns(context.Context) ([]*inventory.SyncRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*inventory.SyncRun
	for _, run := range s.runs {
		if run.Status.IsActive() {
			out = append(out, run.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

// CreateConflict implements store.ConflictStore
func (s *Store) CreateConflict(_ context.Context, conflict *inventory.SyncConflict) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conflicts[conflict.ID]; ok {
		return fmt.Errorf("conflict %s already exists", conflict.ID)
	}
	s.conflicts[conflict.ID] = conflict.Clone()
	return s.persistLocked()
}

// GetConflict implements store.ConflictStore
func (s *Store) GetConflict(_ context.Context, conflictID string) (*inventory.SyncConflict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conflicts[conflictID]
	if !ok {
		return nil, fmt.Errorf("conflict %s: %w", conflictID, inventory.ErrNotFound)
	}
	return c.Clone(), nil
}

// ListConflicts implements store.ConflictStore; oldest first
func (s *Store) ListConflicts(_ context.Context, filter inventory.ConflictFilter) ([]*inventory.SyncConflict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*inventory.SyncConflict, 0)
	for _, c := range s.conflicts {
		if filter.SupplierID != "" && c.SupplierID != filter.SupplierID {
			continue
		}
		if filter.RunID != "" && c.RunID != filter.RunID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateConflictAtomically implements store.ConflictStore
func (s *Store) UpdateConflictAtomically(
	ctx context.Context, conflictID string, fn func(context.Context, *inventory.SyncConflict) error,
) (*inventory.SyncConflict, error) {
	defer s.lockRow("conflict/" + conflictID)()

	current, err := s.GetConflict(ctx, conflictID)
	if err != nil {
		return nil, err
	}
	if err := fn(ctx, current); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflicts[conflictID] = current.Clone()
	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	return current, nil
}

// CreateError implements store.ErrorStore
func (s *Store) CreateError(_ context.Context, syncErr *inventory.SyncError) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.errors[syncErr.ID]; ok {
		return fmt.Errorf("error %s already exists", syncErr.ID)
	}
	s.errors[syncErr.ID] = syncErr.Clone()
	return s.persistLocked()
}

// GetError implements store.ErrorStore
func (s *Store) GetError(_ context.Context, errorID string) (*inventory.SyncError, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.errors[errorID]
	if !ok {
		return nil, fmt.Errorf("error %s: %w", errorID, inventory.ErrNotFound)
	}
	return e.Clone(), nil
}

// ListErrors implements store.ErrorStore; most recent first
func (s *Store) ListErrors(_ context.Context, filter inventory.ErrorFilter) ([]*inventory.SyncError, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*inventory.SyncError, 0)
	for _, e := range s.errors {
		if filter.SupplierID != "" && e.SupplierID != filter.SupplierID {
			continue
		}
		if filter.RunID != "" && e.RunID != filter.RunID {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// UpdateErrorAtomically implements store.ErrorStore
func (s *Store) UpdateErrorAtomically(
	ctx context.Context, errorID string, fn func(*inventory.SyncError) error,
) (*inventory.SyncError, error) {
	defer s.lockRow("error/" + errorID)()

	current, err := s.GetError(ctx, errorID)
	if err != nil {
		return nil, err
	}
	if err := fn(current); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.errors[errorID]; !ok {
		return nil, fmt.Errorf("error %s: %w", errorID, inventory.ErrNotFound)
	}
	s.errors[errorID] = current.Clone()
	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	return current, nil
}

// DeleteResolvedErrors implements store.ErrorStore
func (s *Store) DeleteResolvedErrors(_ context.Context, supplierID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.errors {
		if e.Status != inventory.ErrorStatusResolved {
			continue
		}
		if supplierID != "" && e.SupplierID != supplierID {
			continue
		}
		delete(s.errors, id)
		removed++
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, s.persistLocked()
}

// AppendHistory implements store.HistoryStore
func (s *Store) AppendHistory(_ context.Context, entry *inventory.HistoryEntry) error {
	if err := store.ValidateHistoryEntry(entry); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.ContainsFunc(s.history, func(h *inventory.HistoryEntry) bool { return h.ID == entry.ID }) {
		return fmt.Errorf("run %s already appended to history", entry.ID)
	}
	s.history = append(s.history, cloneEntry(entry))
	return s.persistLocked()
}

// QueryHistory implements store.HistoryStore
func (s *Store) QueryHistory(_ context.Context, query inventory.HistoryQuery) (*inventory.HistoryPage, error) {
	query.Normalize()

	s.mu.RLock()
	matched := make([]*inventory.HistoryEntry, 0)
	for _, h := range s.history {
		if query.SupplierID != "" && h.SupplierID != query.SupplierID {
			continue
		}
		if query.From != nil && h.StartedAt.Before(*query.From) {
			continue
		}
		if query.To != nil && h.StartedAt.After(*query.To) {
			continue
		}
		matched = append(matched, cloneEntry(h))
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].StartedAt.After(matched[j].StartedAt)
	})

	total := len(matched)
	start := max(min(query.Offset(), total), 0)
	end := min(start+query.PageSize, total)

	return &inventory.HistoryPage{
		Entries:    matched[start:end],
		Pagination: inventory.NewPagination(query.Page, query.PageSize, total),
	}, nil
}

func cloneItem(item *inventory.Item) *inventory.Item {
	cp := *item
	cp.Fields = item.Fields.Clone()
	return &cp
}

func cloneEntry(entry *inventory.HistoryEntry) *inventory.HistoryEntry {
	cp := *entry
	if run := entry.SyncRun.Clone(); run != nil {
		cp.SyncRun = *run
	}
	return &cp
}
