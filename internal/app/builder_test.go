package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagedesk/inventory-sync/internal/app/storage"
	"github.com/voyagedesk/inventory-sync/internal/config"
	"github.com/voyagedesk/inventory-sync/internal/inventory"
	"github.com/voyagedesk/inventory-sync/internal/lock"
	"github.com/voyagedesk/inventory-sync/internal/store/memory"
)

func TestWithAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{name: "port only", addr: ":8080"},
		{name: "localhost", addr: "localhost:9090"},
		{name: "ipv4", addr: "127.0.0.1:0"},
		{name: "empty", addr: "", wantErr: true},
		{name: "missing port", addr: "127.0.0.1:", wantErr: true},
		{name: "no colon", addr: "8080", wantErr: true},
		{name: "bad host", addr: "not-an-ip:8080", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &syncAppConfig{}
			err := WithAddress(tt.addr)(cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.addr, cfg.address)
		})
	}
}

func TestNewSyncAppRequiresConfig(t *testing.T) {
	t.Parallel()

	_, err := NewSyncApp(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config cannot be nil")
}

// writeSnapshot writes a file connector snapshot and returns its path
func writeSnapshot(t *testing.T, items ...map[string]any) string {
	t.Helper()
	data, err := json.Marshal(items)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func testConfig(t *testing.T, snapshot string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`
tenant: voyagedesk
sync:
  tickInterval: 1h
  fetchRetry:
    maxAttempts: 1
suppliers:
  - id: acme
    removeMissing: true
    schedule:
      frequency: hourly
    connector:
      file:
        path: ` + snapshot + `
`))
	require.NoError(t, err)
	return cfg
}

func TestNewSyncAppRunsEndToEnd(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	snapshot := writeSnapshot(t,
		map[string]any{"id": "room-1", "price": 120.0, "availability": 3},
		map[string]any{"id": "room-2", "price": 80.0, "availability": 0},
	)

	app, err := NewSyncApp(ctx,
		WithConfig(testConfig(t, snapshot)),
		WithAddress("127.0.0.1:0"),
		WithStorageFactory(storage.NewMemoryFactory()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Stop(5 * time.Second) })

	components := app.Components()
	profile, err := components.Store.GetProfile(ctx, "acme")
	require.NoError(t, err)
	assert.True(t, profile.Enabled)
	assert.True(t, profile.RemoveMissing)

	handler := app.GetHTTPServer().Handler
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/inventory-sync/trigger",
		strings.NewReader(`{"supplierId":"acme"}`)))
	require.Equal(t, http.StatusAccepted, rr.Code)

	var triggered struct {
		RunID string `json:"runId"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &triggered))

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	run, err := components.Orchestrator.Wait(waitCtx, triggered.RunID)
	require.NoError(t, err)
	assert.Equal(t, inventory.RunStatusCompleted, run.Status)
	assert.Equal(t, "voyagedesk", run.Tenant)
	assert.Equal(t, 2, run.Counts.Added)

	items, err := components.Store.ListItems(ctx, "acme")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/inventory-sync/history?supplierId=acme", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var page inventory.HistoryPage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	require.Len(t, page.Entries, 1)
	assert.Equal(t, triggered.RunID, page.Entries[0].ID)
}

func TestNewSyncAppWithInjectedLocker(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	locker := lock.NewLocal()
	release, err := locker.TryLock(ctx, "acme")
	require.NoError(t, err)
	defer release()

	app, err := NewSyncApp(ctx,
		WithConfig(testConfig(t, writeSnapshot(t))),
		WithStorageFactory(storage.NewMemoryFactory()),
		WithLocker(locker),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Stop(5 * time.Second) })

	_, err = app.Components().SyncService.TriggerSync(ctx, "acme")
	assert.ErrorIs(t, err, inventory.ErrAlreadyRunning)
}

func TestSeedProfilesKeepsExisting(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s, err := memory.New()
	require.NoError(t, err)
	require.NoError(t, s.UpsertProfile(ctx, &inventory.Profile{
		SupplierID: "acme",
		Enabled:    false,
		Schedule:   inventory.Schedule{Frequency: inventory.FrequencyDaily, SyncTimes: []string{"04:00"}},
	}))

	seeded, err := seedProfiles(ctx, s, []config.SupplierConfig{
		{ID: "acme", Schedule: inventory.Schedule{Frequency: inventory.FrequencyHourly}},
		{ID: "globex", Schedule: inventory.Schedule{Frequency: inventory.FrequencyRealtime}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, seeded)

	acme, err := s.GetProfile(ctx, "acme")
	require.NoError(t, err)
	assert.False(t, acme.Enabled)
	assert.Equal(t, inventory.FrequencyDaily, acme.Schedule.Frequency)

	globex, err := s.GetProfile(ctx, "globex")
	require.NoError(t, err)
	assert.True(t, globex.Enabled)
	assert.Equal(t, inventory.FrequencyRealtime, globex.Schedule.Frequency)
}

func TestBuildLocker(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	locker, closeFn, err := buildLocker(ctx, &config.Config{})
	require.NoError(t, err)
	assert.IsType(t, &lock.Local{}, locker)
	assert.NoError(t, closeFn())

	_, _, err = buildLocker(ctx, &config.Config{Lock: config.LockConfig{
		Type:  config.LockTypeRedis,
		Redis: &config.RedisConfig{Address: "127.0.0.1:1"},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to reach redis")
}
