package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/voyagedesk/inventory-sync/database"
	"github.com/voyagedesk/inventory-sync/internal/inventory"
	"github.com/voyagedesk/inventory-sync/internal/store"
	"github.com/voyagedesk/inventory-sync/internal/store/storetest"
)

func TestPostgresStoreConformance(t *testing.T) {
	t.Parallel()

	pool, _ := database.SetupTestDB(t)

	storetest.Run(t, func(t *testing.T) store.Store {
		t.Helper()
		ctx := context.Background()
		_, err := pool.Exec(ctx, `TRUNCATE supplier_profiles, inventory_items, sync_runs,
			sync_conflicts, sync_errors, sync_history`)
		require.NoError(t, err)
		return New(pool)
	})
}

func TestActiveRunUniqueness(t *testing.T) {
	t.Parallel()

	pool, _ := database.SetupTestDB(t)
	s := New(pool)
	ctx := context.Background()

	first := &inventory.SyncRun{
		ID: uuid.NewString(), SupplierID: "acme", Status: inventory.RunStatusQueued,
		Trigger: inventory.TriggerManual, StartedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateRun(ctx, first))

	second := *first
	second.ID = uuid.NewString()
	require.ErrorIs(t, s.CreateRun(ctx, &second), inventory.ErrAlreadyRunning)

	now := time.Now().UTC()
	first.Status = inventory.RunStatusCompleted
	first.FinishedAt = &now
	require.NoError(t, s.UpdateRun(ctx, first))
	require.NoError(t, s.CreateRun(ctx, &second))
}

func TestConflictUpdateRollsBackItemWrite(t *testing.T) {
	t.Parallel()

	pool, _ := database.SetupTestDB(t)
	s := New(pool)
	ctx := context.Background()

	conflict := &inventory.SyncConflict{
		ID: uuid.NewString(), RunID: uuid.NewString(), SupplierID: "acme", ItemID: "room-1",
		ConflictType:  inventory.ConflictPriceMismatch,
		LocalVersion:  inventory.Fields{"price": 100.0},
		RemoteVersion: inventory.Fields{"price": 150.0},
		Status:        inventory.ConflictStatusPending,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, s.CreateConflict(ctx, conflict))

	sentinel := errors.New("commit refused")
	_, err := s.UpdateConflictAtomically(ctx, conflict.ID, func(txCtx context.Context, c *inventory.SyncConflict) error {
		if err := s.PutItem(txCtx, &inventory.Item{SupplierID: "acme", ID: "room-1", Fields: c.RemoteVersion}); err != nil {
			return err
		}
		c.Status = inventory.ConflictStatusResolved
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	_, err = s.GetItem(ctx, "acme", "room-1")
	require.ErrorIs(t, err, inventory.ErrNotFound, "the item write belongs to the aborted transaction")

	got, err := s.GetConflict(ctx, conflict.ID)
	require.NoError(t, err)
	require.Equal(t, inventory.ConflictStatusPending, got.Status)

	_, err = s.UpdateConflictAtomically(ctx, conflict.ID, func(txCtx context.Context, c *inventory.SyncConflict) error {
		c.Status = inventory.ConflictStatusResolved
		return s.PutItem(txCtx, &inventory.Item{SupplierID: "acme", ID: "room-1", Fields: c.RemoteVersion})
	})
	require.NoError(t, err)

	item, err := s.GetItem(ctx, "acme", "room-1")
	require.NoError(t, err)
	require.Equal(t, 150.0, item.Fields["price"])
}
