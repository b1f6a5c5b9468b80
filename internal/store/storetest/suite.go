// Package storetest holds a conformance suite shared by every store backend.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagedesk/inventory-sync/internal/inventory"
	"github.com/voyagedesk/inventory-sync/internal/store"
)

// Factory returns a fresh, empty store for one subtest
type Factory func(t *testing.T) store.Store

// Run executes the conformance suite against the backend
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("items", func(t *testing.T) { testItems(t, newStore(t)) })
	t.Run("profiles", func(t *testing.T) { testProfiles(t, newStore(t)) })
	t.Run("runs", func(t *testing.T) { testRuns(t, newStore(t)) })
	t.Run("conflicts", func(t *testing.T) { testConflicts(t, newStore(t)) })
	t.Run("conflict update is serialized", func(t *testing.T) { testConflictSerialization(t, newStore(t)) })
	t.Run("errors", func(t *testing.T) { testErrors(t, newStore(t)) })
	t.Run("history", func(t *testing.T) { testHistory(t, newStore(t)) })
}

func testItems(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.GetItem(ctx, "acme", "room-1")
	require.ErrorIs(t, err, inventory.ErrNotFound)

	item := &inventory.Item{
		SupplierID: "acme",
		ID:         "room-1",
		Fields:     inventory.Fields{"price": 120.0, "availability": 4.0, "board": "half"},
	}
	require.NoError(t, s.PutItem(ctx, item))
	require.NoError(t, s.PutItem(ctx, &inventory.Item{
		SupplierID: "acme", ID: "room-0", Fields: inventory.Fields{"price": 80.0, "availability": true},
	}))
	require.NoError(t, s.PutItem(ctx, &inventory.Item{
		SupplierID: "globex", ID: "room-1", Fields: inventory.Fields{"price": 1.0, "availability": 1.0},
	}))

	got, err := s.GetItem(ctx, "acme", "room-1")
	require.NoError(t, err)
	assert.Equal(t, item.Fields, got.Fields)
	assert.False(t, got.UpdatedAt.IsZero())

	// the store keeps its own copy
	item.Fields["price"] = 1.0
	got, err = s.GetItem(ctx, "acme", "room-1")
	require.NoError(t, err)
	assert.Equal(t, 120.0, got.Fields["price"])

	items, err := s.ListItems(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "room-0", items[0].ID)

	// replace wholesale
	require.NoError(t, s.PutItem(ctx, &inventory.Item{
		SupplierID: "acme", ID: "room-1", Fields: inventory.Fields{"price": 99.0, "availability": 0.0},
	}))
	got, err = s.GetItem(ctx, "acme", "room-1")
	require.NoError(t, err)
	assert.Equal(t, inventory.Fields{"price": 99.0, "availability": 0.0}, got.Fields)

	require.NoError(t, s.DeleteItem(ctx, "acme", "room-1"))
	require.ErrorIs(t, s.DeleteItem(ctx, "acme", "room-1"), inventory.ErrNotFound)
	_, err = s.GetItem(ctx, "globex", "room-1")
	require.NoError(t, err)
}

func testProfiles(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.GetProfile(ctx, "acme")
	require.ErrorIs(t, err, inventory.ErrNotFound)

	profile := &inventory.Profile{
		SupplierID: "acme",
		Enabled:    true,
		Schedule: inventory.Schedule{
			Frequency:       inventory.FrequencyDaily,
			SyncTimes:       []string{"09:00", "18:30"},
			ExcludeWeekends: true,
			Timezone:        "Europe/Rome",
		},
		Policy: inventory.ConflictPolicy{
			PriceTolerance: 0.5,
			AutoResolve:    map[inventory.ConflictType]inventory.Resolution{inventory.ConflictAvailabilityMismatch: inventory.ResolutionUseRemote},
		},
	}
	require.NoError(t, s.UpsertProfile(ctx, profile))
	require.NoError(t, s.UpsertProfile(ctx, &inventory.Profile{SupplierID: "aaa", Schedule: inventory.Schedule{Frequency: inventory.FrequencyHourly}}))

	got, err := s.GetProfile(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, profile.Schedule, got.Schedule)
	assert.Equal(t, profile.Policy, got.Policy)
	assert.True(t, got.Enabled)
	assert.Nil(t, got.LastTriggeredAt)

	triggered := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	got.LastTriggeredAt = &triggered
	got.Enabled = false
	require.NoError(t, s.UpsertProfile(ctx, got))

	got, err = s.GetProfile(ctx, "acme")
	require.NoError(t, err)
	require.NotNil(t, got.LastTriggeredAt)
	assert.True(t, triggered.Equal(*got.LastTriggeredAt))
	assert.False(t, got.Enabled)

	all, err := s.ListProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "aaa", all[0].SupplierID)
}

func newRun(supplier string, startedAt time.Time, status inventory.RunStatus) *inventory.SyncRun {
	return &inventory.SyncRun{
		ID:         uuid.NewString(),
		SupplierID: supplier,
		Status:     status,
		Trigger:    inventory.TriggerManual,
		StartedAt:  startedAt,
	}
}

func testRuns(t *testing.T, s store.Store) {
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	_, err := s.LatestRun(ctx, "acme")
	require.ErrorIs(t, err, inventory.ErrNotFound)

	older := newRun("acme", base, inventory.RunStatusCompleted)
	newer := newRun("acme", base.Add(time.Hour), inventory.RunStatusQueued)
	other := newRun("globex", base.Add(2*time.Hour), inventory.RunStatusRunning)
	for _, r := range []*inventory.SyncRun{older, newer, other} {
		require.NoError(t, s.CreateRun(ctx, r))
	}

	// at most one queued or running run per supplier
	require.ErrorIs(t, s.CreateRun(ctx, newRun("acme", base.Add(3*time.Hour), inventory.RunStatusQueued)),
		inventory.ErrAlreadyRunning)

	latest, err := s.LatestRun(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)

	active, err := s.ListActiveRuns(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, newer.ID, active[0].ID)

	newer.Status = inventory.RunStatusPartial
	newer.ItemsTotal = 3
	newer.ItemsProcessed = 3
	newer.Counts = inventory.Counts{Added: 1, Updated: 1}
	finished := base.Add(90 * time.Minute)
	newer.FinishedAt = &finished
	newer.RecomputeProgress()
	require.NoError(t, s.UpdateRun(ctx, newer))

	got, err := s.GetRun(ctx, newer.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.RunStatusPartial, got.Status)
	assert.Equal(t, inventory.Counts{Added: 1, Updated: 1}, got.Counts)
	assert.Equal(t, 100, got.ProgressPercent)
	require.NotNil(t, got.FinishedAt)

	_, err = s.GetRun(ctx, "missing")
	require.ErrorIs(t, err, inventory.ErrNotFound)
	require.ErrorIs(t, s.UpdateRun(ctx, newRun("acme", base, inventory.RunStatusFailed)), inventory.ErrNotFound)
}

func newConflict(supplier, runID string, createdAt time.Time) *inventory.SyncConflict {
	return &inventory.SyncConflict{
		ID:            uuid.NewString(),
		RunID:         runID,
		SupplierID:    supplier,
		ItemID:        "room-1",
		ConflictType:  inventory.ConflictPriceMismatch,
		LocalVersion:  inventory.Fields{"price": 100.0, "availability": 2.0},
		RemoteVersion: inventory.Fields{"price": 110.0, "availability": 2.0},
		Status:        inventory.ConflictStatusPending,
		CreatedAt:     createdAt,
	}
}

func testConflicts(t *testing.T, s store.Store) {
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	runID := uuid.NewString()

	first := newConflict("acme", runID, base)
	second := newConflict("acme", runID, base.Add(time.Second))
	foreign := newConflict("globex", uuid.NewString(), base)
	for _, c := range []*inventory.SyncConflict{first, second, foreign} {
		require.NoError(t, s.CreateConflict(ctx, c))
	}

	got, err := s.GetConflict(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.RemoteVersion, got.RemoteVersion)
	assert.Nil(t, got.Resolution)

	updated, err := s.UpdateConflictAtomically(ctx, first.ID, func(_ context.Context, c *inventory.SyncConflict) error {
		r := inventory.ResolutionUseRemote
		now := base.Add(time.Minute)
		c.Status = inventory.ConflictStatusResolved
		c.Resolution = &r
		c.ResolvedBy = "ops"
		c.ResolvedAt = &now
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, inventory.ConflictStatusResolved, updated.Status)

	sentinel := errors.New("abort")
	_, err = s.UpdateConflictAtomically(ctx, second.ID, func(_ context.Context, c *inventory.SyncConflict) error {
		c.Status = inventory.ConflictStatusSkipped
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	pending, err := s.ListConflicts(ctx, inventory.ConflictFilter{SupplierID: "acme", Status: inventory.ConflictStatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	byRun, err := s.ListConflicts(ctx, inventory.ConflictFilter{RunID: runID})
	require.NoError(t, err)
	require.Len(t, byRun, 2)
	assert.Equal(t, first.ID, byRun[0].ID)
	require.NotNil(t, byRun[0].Resolution)
	assert.Equal(t, inventory.ResolutionUseRemote, *byRun[0].Resolution)
	assert.Equal(t, "ops", byRun[0].ResolvedBy)

	_, err = s.UpdateConflictAtomically(ctx, "missing", func(context.Context, *inventory.SyncConflict) error { return nil })
	require.ErrorIs(t, err, inventory.ErrNotFound)
}

func testConflictSerialization(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := newConflict("acme", uuid.NewString(), time.Now().UTC())
	require.NoError(t, s.CreateConflict(ctx, c))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpdateConflictAtomically(ctx, c.ID, func(_ context.Context, current *inventory.SyncConflict) error {
				if current.Status != inventory.ConflictStatusPending {
					return inventory.ErrAlreadyResolved
				}
				current.Status = inventory.ConflictStatusResolved
				return nil
			})
			if err == nil {
				wins.Add(1)
			} else {
				assert.ErrorIs(t, err, inventory.ErrAlreadyResolved)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func newSyncError(supplier string, status inventory.ErrorStatus, ts time.Time) *inventory.SyncError {
	return &inventory.SyncError{
		ID:         uuid.NewString(),
		RunID:      uuid.NewString(),
		SupplierID: supplier,
		ItemID:     "room-1",
		Severity:   inventory.SeverityError,
		ErrorType:  inventory.ErrorTypeWriteFailed,
		Message:    "write failed",
		Operation:  inventory.OperationApplyItem,
		Payload:    inventory.Fields{"price": 10.0, "availability": 1.0},
		Status:     status,
		Timestamp:  ts,
	}
}

func testErrors(t *testing.T, s store.Store) {
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	acmeResolved := newSyncError("acme", inventory.ErrorStatusResolved, base)
	acmeFailed := newSyncError("acme", inventory.ErrorStatusFailed, base.Add(time.Minute))
	acmeRetrying := newSyncError("acme", inventory.ErrorStatusRetrying, base.Add(2*time.Minute))
	globexResolved := newSyncError("globex", inventory.ErrorStatusResolved, base)
	for _, e := range []*inventory.SyncError{acmeResolved, acmeFailed, acmeRetrying, globexResolved} {
		require.NoError(t, s.CreateError(ctx, e))
	}

	got, err := s.GetError(ctx, acmeFailed.ID)
	require.NoError(t, err)
	assert.Equal(t, acmeFailed.Payload, got.Payload)

	listed, err := s.ListErrors(ctx, inventory.ErrorFilter{SupplierID: "acme"})
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, acmeRetrying.ID, listed[0].ID, "most recent first")

	updated, err := s.UpdateErrorAtomically(ctx, acmeFailed.ID, func(e *inventory.SyncError) error {
		e.RetryCount++
		e.Message = "still failing"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.RetryCount)

	removed, err := s.DeleteResolvedErrors(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = s.GetError(ctx, acmeResolved.ID)
	require.ErrorIs(t, err, inventory.ErrNotFound)
	for _, id := range []string{acmeFailed.ID, acmeRetrying.ID, globexResolved.ID} {
		_, err = s.GetError(ctx, id)
		require.NoError(t, err, id)
	}

	removed, err = s.DeleteResolvedErrors(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func testHistory(t *testing.T, s store.Store) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	running := &inventory.HistoryEntry{SyncRun: *newRun("acme", base, inventory.RunStatusRunning)}
	require.ErrorIs(t, s.AppendHistory(ctx, running), inventory.ErrInvalidState)

	for i := range 5 {
		run := newRun("acme", base.Add(time.Duration(i)*24*time.Hour), inventory.RunStatusCompleted)
		finished := run.StartedAt.Add(time.Minute)
		run.FinishedAt = &finished
		run.Message = fmt.Sprintf("run %d", i)
		require.NoError(t, s.AppendHistory(ctx, &inventory.HistoryEntry{SyncRun: *run, ConflictCount: i}))
	}
	other := newRun("globex", base, inventory.RunStatusFailed)
	finished := base.Add(time.Minute)
	other.FinishedAt = &finished
	require.NoError(t, s.AppendHistory(ctx, &inventory.HistoryEntry{SyncRun: *other, ErrorCount: 1}))

	page, err := s.QueryHistory(ctx, inventory.HistoryQuery{SupplierID: "acme", Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, "run 4", page.Entries[0].Message)
	assert.Equal(t, 4, page.Entries[0].ConflictCount)
	assert.Equal(t, 5, page.Pagination.TotalItems)
	assert.Equal(t, 3, page.Pagination.TotalPages)
	assert.True(t, page.Pagination.HasNext)

	last, err := s.QueryHistory(ctx, inventory.HistoryQuery{SupplierID: "acme", Page: 3, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, last.Entries, 1)
	assert.Equal(t, "run 0", last.Entries[0].Message)

	from := base.Add(24 * time.Hour)
	to := base.Add(3 * 24 * time.Hour)
	ranged, err := s.QueryHistory(ctx, inventory.HistoryQuery{SupplierID: "acme", From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, ranged.Entries, 3)
	assert.Equal(t, "run 3", ranged.Entries[0].Message)

	all, err := s.QueryHistory(ctx, inventory.HistoryQuery{})
	require.NoError(t, err)
	assert.Equal(t, 6, all.Pagination.TotalItems)

	beyond, err := s.QueryHistory(ctx, inventory.HistoryQuery{Page: math.MaxInt, PageSize: inventory.MaxPageSize})
	require.NoError(t, err)
	assert.Empty(t, beyond.Entries)
	assert.Equal(t, 6, beyond.Pagination.TotalItems)
	assert.False(t, beyond.Pagination.HasNext)
}
