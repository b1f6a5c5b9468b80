package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagedesk/inventory-sync/internal/inventory"
	"github.com/voyagedesk/inventory-sync/internal/store"
	"github.com/voyagedesk/inventory-sync/internal/store/storetest"
)

func TestMemoryStoreConformance(t *testing.T) {
	t.Parallel()

	storetest.Run(t, func(t *testing.T) store.Store {
		t.Helper()
		s, err := New()
		require.NoError(t, err)
		return s
	})
}

func TestFileBackedStoreConformance(t *testing.T) {
	t.Parallel()

	storetest.Run(t, func(t *testing.T) store.Store {
		t.Helper()
		s, err := New(WithSnapshotFile(filepath.Join(t.TempDir(), "state.json")))
		require.NoError(t, err)
		return s
	})
}

func TestSnapshotSurvivesRestart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	s, err := New(WithSnapshotFile(path))
	require.NoError(t, err)

	require.NoError(t, s.PutItem(ctx, &inventory.Item{
		SupplierID: "acme", ID: "room-1", Fields: inventory.Fields{"price": 10.0, "availability": 2.0},
	}))
	require.NoError(t, s.UpsertProfile(ctx, &inventory.Profile{
		SupplierID: "acme", Enabled: true, Schedule: inventory.Schedule{Frequency: inventory.FrequencyHourly},
	}))
	require.NoError(t, s.CreateRun(ctx, &inventory.SyncRun{ID: "run-1", SupplierID: "acme", Status: inventory.RunStatusRunning}))
	require.NoError(t, s.Close())

	reopened, err := New(WithSnapshotFile(path))
	require.NoError(t, err)

	item, err := reopened.GetItem(ctx, "acme", "room-1")
	require.NoError(t, err)
	assert.Equal(t, 10.0, item.Fields["price"])

	profile, err := reopened.GetProfile(ctx, "acme")
	require.NoError(t, err)
	assert.True(t, profile.Enabled)

	active, err := reopened.ListActiveRuns(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "run-1", active[0].ID)
}

func TestCorruptSnapshotFails(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	f := &snapshotFile{path: path}
	require.NoError(t, f.save(&snapshot{}))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := New(WithSnapshotFile(path))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal state file")
}

func TestRowLocksAreReleased(t *testing.T) {
	t.Parallel()

	s, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		c := &inventory.SyncConflict{
			ID:         fmt.Sprintf("conflict-%d", i%4),
			SupplierID: "acme",
			ItemID:     "room-1",
			Status:     inventory.ConflictStatusPending,
			CreatedAt:  time.Now().UTC(),
		}
		if i < 4 {
			require.NoError(t, s.CreateConflict(ctx, c))
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpdateConflictAtomically(ctx, c.ID, func(_ context.Context, current *inventory.SyncConflict) error {
				current.ResolvedBy = "ops"
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	_, err = s.UpdateErrorAtomically(ctx, "missing", func(*inventory.SyncError) error { return nil })
	require.ErrorIs(t, err, inventory.ErrNotFound)

	s.rowLocksMu.Lock()
	defer s.rowLocksMu.Unlock()
	assert.Empty(t, s.rowLocks)
}
