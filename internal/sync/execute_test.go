package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/voyagedesk/inventory-sync/internal/connector"
	"github.com/voyagedesk/inventory-sync/internal/connector/mocks"
	"github.com/voyagedesk/inventory-sync/internal/inventory"
)

// itemConnector supports single item lookups
type itemConnector struct {
	*mocks.MockConnector
	*mocks.MockItemFetcher
}

func (f *fixture) recordError(t *testing.T, syncErr *inventory.SyncError) *inventory.SyncError {
	t.Helper()
	rec, err := f.retries.Record(context.Background(), syncErr)
	require.NoError(t, err)
	return rec
}

func TestRetryApplyItemFromPayload(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, nil)
	rec := f.recordError(t, &inventory.SyncError{
		RunID:      "run-1",
		SupplierID: supplier,
		ItemID:     "room-1",
		ErrorType:  inventory.ErrorTypeWriteTimeout,
		Operation:  inventory.OperationApplyItem,
		Payload:    item("room-1", 99, 3).Fields,
	})

	final, err := f.retries.Retry(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.ErrorStatusResolved, final.Status)
	assert.Equal(t, 1, final.RetryCount)

	got, err := f.store.GetItem(context.Background(), supplier, "room-1")
	require.NoError(t, err)
	assert.Equal(t, 99.0, got.Fields["price"])
}

func TestRetryApplyItemRefetches(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, nil)
	fetcher := mocks.NewMockItemFetcher(f.ctrl)
	f.registry.Register(supplier, &itemConnector{MockConnector: f.conn, MockItemFetcher: fetcher})

	fresh := item("room-1", 105, 4)
	fetcher.EXPECT().FetchItem(gomock.Any(), supplier, "room-1").Return(&fresh, nil)

	rec := f.recordError(t, &inventory.SyncError{
		SupplierID: supplier,
		ItemID:     "room-1",
		Operation:  inventory.OperationApplyItem,
		Payload:    item("room-1", 99, 3).Fields,
	})

	final, err := f.retries.Retry(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.ErrorStatusResolved, final.Status)

	got, err := f.store.GetItem(context.Background(), supplier, "room-1")
	require.NoError(t, err)
	assert.Equal(t, 105.0, got.Fields["price"])
}

func TestRetryApplyItemBecomesConflict(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, nil)
	f.putLocal(t, "room-1", item("room-1", 100, 2).Fields)
	rec := f.recordError(t, &inventory.SyncError{
		RunID:      "run-1",
		SupplierID: supplier,
		ItemID:     "room-1",
		Operation:  inventory.OperationApplyItem,
		Payload:    item("room-1", 140, 2).Fields,
	})

	final, err := f.retries.Retry(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.ErrorStatusResolved, final.Status)

	conflicts, err := f.store.ListConflicts(context.Background(), inventory.ConflictFilter{RunID: "run-1"})
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, inventory.ConflictPriceMismatch, conflicts[0].ConflictType)

	got, err := f.store.GetItem(context.Background(), supplier, "room-1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.Fields["price"], "local copy must wait for review")
}

func TestRetryDeleteItem(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, nil)
	f.putLocal(t, "room-1", item("room-1", 100, 2).Fields)

	for range 2 {
		rec := f.recordError(t, &inventory.SyncError{
			SupplierID: supplier,
			ItemID:     "room-1",
			Operation:  inventory.OperationDeleteItem,
		})
		final, err := f.retries.Retry(context.Background(), rec.ID)
		require.NoError(t, err)
		assert.Equal(t, inventory.ErrorStatusResolved, final.Status, "deleting a missing item is a success")
	}

	_, err := f.store.GetItem(context.Background(), supplier, "room-1")
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestRetryAutoResolve(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, nil)
	f.putLocal(t, "room-1", item("room-1", 100, 2).Fields)
	require.NoError(t, f.store.CreateConflict(context.Background(), &inventory.SyncConflict{
		ID:            "c-1",
		SupplierID:    supplier,
		ItemID:        "room-1",
		ConflictType:  inventory.ConflictPriceMismatch,
		LocalVersion:  item("room-1", 100, 2).Fields,
		RemoteVersion: item("room-1", 120, 2).Fields,
		Status:        inventory.ConflictStatusPending,
	}))

	rec := f.recordError(t, &inventory.SyncError{
		SupplierID: supplier,
		ItemID:     "room-1",
		ErrorType:  inventory.ErrorTypeAutoResolve,
		Operation:  inventory.OperationAutoResolve,
		Payload:    autoResolvePayload("c-1", inventory.ResolutionUseRemote),
	})

	final, err := f.retries.Retry(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.ErrorStatusResolved, final.Status)

	got, err := f.store.GetItem(context.Background(), supplier, "room-1")
	require.NoError(t, err)
	assert.Equal(t, 120.0, got.Fields["price"])
}

func TestRetryFetchFailsAgain(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, nil)
	f.conn.EXPECT().Fetch(gomock.Any(), supplier).Return(nil, connector.ErrAuthFailed).Times(2)

	rec := f.recordError(t, &inventory.SyncError{
		SupplierID: supplier,
		Severity:   inventory.SeverityCritical,
		ErrorType:  inventory.ErrorTypeAuthFailed,
		Message:    "first failure",
		Operation:  inventory.OperationFetch,
	})

	for attempt := 1; attempt <= 2; attempt++ {
		final, err := f.retries.Retry(context.Background(), rec.ID)
		require.NoError(t, err)
		assert.Equal(t, inventory.ErrorStatusFailed, final.Status)
		assert.Equal(t, attempt, final.RetryCount)
		assert.Contains(t, final.Message, connector.ErrAuthFailed.Error())
	}
}

func TestExecuteRefusedWhileRunInFlight(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, nil)
	release, err := f.locker.TryLock(context.Background(), supplier)
	require.NoError(t, err)
	defer release()

	err = f.orch.Execute(context.Background(), &inventory.SyncError{
		SupplierID: supplier,
		ItemID:     "room-1",
		Operation:  inventory.OperationDeleteItem,
	})
	assert.ErrorIs(t, err, inventory.ErrAlreadyRunning)

	err = f.orch.Execute(context.Background(), &inventory.SyncError{SupplierID: "ghost", Operation: "rewind"})
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}
