package v1_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	v1 "github.com/voyagedesk/inventory-sync/internal/api/v1"
	"github.com/voyagedesk/inventory-sync/internal/inventory"
	"github.com/voyagedesk/inventory-sync/internal/service"
	"github.com/voyagedesk/inventory-sync/internal/service/mocks"
	pkgsync "github.com/voyagedesk/inventory-sync/internal/sync"
)

func newRouter(t *testing.T) (*mocks.MockSyncService, http.Handler) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockSvc := mocks.NewMockSyncService(ctrl)
	return mockSvc, v1.Router(mockSvc)
}

func serve(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestTrigger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		setupMock  func(*mocks.MockSyncService)
		wantStatus int
		wantBody   string
	}{
		{
			name: "queued",
			body: `{"supplierId":"acme"}`,
			setupMock: func(m *mocks.MockSyncService) {
				m.EXPECT().TriggerSync(gomock.Any(), "acme").Return(&inventory.SyncRun{
					ID:         "run-1",
					SupplierID: "acme",
					Status:     inventory.RunStatusQueued,
				}, nil)
			},
			wantStatus: http.StatusAccepted,
			wantBody:   `{"runId":"run-1","status":"queued"}`,
		},
		{
			name: "already running",
			body: `{"supplierId":"acme"}`,
			setupMock: func(m *mocks.MockSyncService) {
				m.EXPECT().TriggerSync(gomock.Any(), "acme").
					Return(nil, fmt.Errorf("supplier acme: %w", inventory.ErrAlreadyRunning))
			},
			wantStatus: http.StatusConflict,
		},
		{
			name: "unknown supplier",
			body: `{"supplierId":"initech"}`,
			setupMock: func(m *mocks.MockSyncService) {
				m.EXPECT().TriggerSync(gomock.Any(), "initech").
					Return(nil, fmt.Errorf("supplier initech: %w", inventory.ErrNotFound))
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "disabled supplier",
			body: `{"supplierId":"acme"}`,
			setupMock: func(m *mocks.MockSyncService) {
				m.EXPECT().TriggerSync(gomock.Any(), "acme").Return(nil, inventory.ErrSupplierDisabled)
			},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "malformed body",
			body:       `{"supplier":`,
			setupMock:  func(*mocks.MockSyncService) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mockSvc, router := newRouter(t)
			tt.setupMock(mockSvc)

			rr := serve(router, http.MethodPost, "/trigger", tt.body)
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rr.Body.String())
			}
		})
	}
}

func TestGetStatus(t *testing.T) {
	t.Parallel()
	mockSvc, router := newRouter(t)

	mockSvc.EXPECT().GetStatus(gomock.Any(), "acme").Return([]*pkgsync.SupplierStatus{
		{SupplierID: "acme", Enabled: true, IsSyncing: true, Progress: 25},
	}, nil)

	rr := serve(router, http.MethodGet, "/status?supplierId=acme", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp v1.StatusResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Suppliers, 1)
	assert.True(t, resp.Suppliers[0].IsSyncing)
	assert.Equal(t, 25, resp.Suppliers[0].Progress)
}

func TestGetRun(t *testing.T) {
	t.Parallel()
	mockSvc, router := newRouter(t)

	mockSvc.EXPECT().GetRun(gomock.Any(), "run-1").
		Return(&inventory.SyncRun{ID: "run-1", Status: inventory.RunStatusPartial}, nil)
	mockSvc.EXPECT().GetRun(gomock.Any(), "run-2").
		Return(nil, fmt.Errorf("run run-2: %w", inventory.ErrNotFound))

	rr := serve(router, http.MethodGet, "/runs/run-1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"partial"`)

	rr = serve(router, http.MethodGet, "/runs/run-2", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetHistory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		query      string
		wantCall   bool
		wantOpts   service.HistoryOptions
		wantStatus int
	}{
		{
			name:       "defaults",
			wantCall:   true,
			wantStatus: http.StatusOK,
		},
		{
			name:     "all filters",
			query:    "?supplierId=acme&page=2&pageSize=10&from=2026-10-01T00:00:00Z&to=2026-10-18T00:00:00Z",
			wantCall: true,
			wantOpts: service.HistoryOptions{
				SupplierID: "acme",
				Page:       2,
				PageSize:   10,
				From:       ptrTime(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)),
				To:         ptrTime(time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)),
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "page far beyond the last",
			query:      "?page=9223372036854775807",
			wantCall:   true,
			wantOpts:   service.HistoryOptions{Page: math.MaxInt},
			wantStatus: http.StatusOK,
		},
		{name: "non numeric page", query: "?page=two", wantStatus: http.StatusBadRequest},
		{name: "bad from", query: "?from=yesterday", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mockSvc, router := newRouter(t)

			if tt.wantCall {
				mockSvc.EXPECT().GetHistory(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, opts ...service.Option[service.HistoryOptions]) (*inventory.HistoryPage, error) {
						got := service.HistoryOptions{}
						for _, opt := range opts {
							require.NoError(t, opt(&got))
						}
						assert.Equal(t, tt.wantOpts, got)
						return &inventory.HistoryPage{
							Entries:    []*inventory.HistoryEntry{},
							Pagination: inventory.NewPagination(1, inventory.DefaultPageSize, 0),
						}, nil
					})
			}

			rr := serve(router, http.MethodGet, "/history"+tt.query, "")
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestGetHistoryInvalidRange(t *testing.T) {
	t.Parallel()
	mockSvc, router := newRouter(t)

	mockSvc.EXPECT().GetHistory(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("%w: from must not be after to", service.ErrInvalidRequest))

	rr := serve(router, http.MethodGet, "/history?from=2026-10-18T00:00:00Z&to=2026-10-01T00:00:00Z", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "from must not be after to")
}

func TestListConflicts(t *testing.T) {
	t.Parallel()
	mockSvc, router := newRouter(t)

	mockSvc.EXPECT().ListConflicts(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, opts ...service.Option[service.ConflictListOptions]) ([]*inventory.SyncConflict, error) {
			got := service.ConflictListOptions{}
			for _, opt := range opts {
				if err := opt(&got); err != nil {
					return nil, err
				}
			}
			if got.AnyStatus {
				return []*inventory.SyncConflict{{ID: "c1"}, {ID: "c2"}}, nil
			}
			return []*inventory.SyncConflict{{ID: "c1"}}, nil
		}).Times(3)

	rr := serve(router, http.MethodGet, "/conflicts?supplierId=acme", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp v1.ConflictListResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)

	rr = serve(router, http.MethodGet, "/conflicts?status=all", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)

	rr = serve(router, http.MethodGet, "/conflicts?status=open", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestResolveConflict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		setupMock  func(*mocks.MockSyncService)
		wantStatus int
	}{
		{
			name: "merge with value",
			body: `{"resolution":"merge","value":{"price":110},"resolvedBy":"ops"}`,
			setupMock: func(m *mocks.MockSyncService) {
				m.EXPECT().ResolveConflict(gomock.Any(), "c1", service.ResolveRequest{
					Resolution: inventory.ResolutionMerge,
					Value:      inventory.Fields{"price": 110.0},
					ResolvedBy: "ops",
				}).Return(&inventory.SyncConflict{ID: "c1", Status: inventory.ConflictStatusResolved}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "already resolved",
			body: `{"resolution":"keep_local"}`,
			setupMock: func(m *mocks.MockSyncService) {
				m.EXPECT().ResolveConflict(gomock.Any(), "c1", gomock.Any()).
					Return(nil, fmt.Errorf("conflict c1 is resolved: %w", inventory.ErrAlreadyResolved))
			},
			wantStatus: http.StatusConflict,
		},
		{
			name: "unknown conflict",
			body: `{"resolution":"skip"}`,
			setupMock: func(m *mocks.MockSyncService) {
				m.EXPECT().ResolveConflict(gomock.Any(), "c1", gomock.Any()).
					Return(nil, fmt.Errorf("conflict c1: %w", inventory.ErrNotFound))
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "invalid resolution",
			body: `{"resolution":"overwrite"}`,
			setupMock: func(m *mocks.MockSyncService) {
				m.EXPECT().ResolveConflict(gomock.Any(), "c1", gomock.Any()).
					Return(nil, inventory.ErrInvalidResolution)
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown field",
			body:       `{"resolution":"skip","force":true}`,
			setupMock:  func(*mocks.MockSyncService) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mockSvc, router := newRouter(t)
			tt.setupMock(mockSvc)

			rr := serve(router, http.MethodPost, "/conflicts/c1/resolve", tt.body)
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestSchedule(t *testing.T) {
	t.Parallel()
	mockSvc, router := newRouter(t)

	schedule := inventory.Schedule{
		Frequency:       inventory.FrequencyDaily,
		SyncTimes:       []string{"06:00"},
		ExcludeWeekends: true,
		Timezone:        "Europe/Berlin",
	}
	mockSvc.EXPECT().UpdateSchedule(gomock.Any(), "acme", schedule).
		Return(&service.ScheduleView{SupplierID: "acme", Enabled: true, Schedule: schedule}, nil)
	mockSvc.EXPECT().UpdateSchedule(gomock.Any(), "acme", gomock.Any()).
		Return(nil, fmt.Errorf("%w: customInterval must be between 5 and 1440", inventory.ErrInvalidSchedule))
	mockSvc.EXPECT().GetSchedules(gomock.Any(), "acme").
		Return([]*service.ScheduleView{{SupplierID: "acme", Schedule: schedule}}, nil)
	mockSvc.EXPECT().GetSchedules(gomock.Any(), "").
		Return([]*service.ScheduleView{{SupplierID: "acme"}, {SupplierID: "globex"}}, nil)

	rr := serve(router, http.MethodPut, "/schedule",
		`{"supplierId":"acme","frequency":"daily","syncTimes":["06:00"],"excludeWeekends":true,"timezone":"Europe/Berlin"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = serve(router, http.MethodPut, "/schedule", `{"supplierId":"acme","frequency":"custom","customInterval":1}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(router, http.MethodGet, "/schedule?supplierId=acme", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var view service.ScheduleView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	assert.Equal(t, []string{"06:00"}, view.Schedule.SyncTimes)

	rr = serve(router, http.MethodGet, "/schedule", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var views []service.ScheduleView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &views))
	assert.Len(t, views, 2)
}

func TestErrors(t *testing.T) {
	t.Parallel()
	mockSvc, router := newRouter(t)

	mockSvc.EXPECT().ListErrors(gomock.Any(), gomock.Any()).
		Return([]*inventory.SyncError{{ID: "e1", Status: inventory.ErrorStatusFailed}}, nil)
	mockSvc.EXPECT().RetryError(gomock.Any(), "e1").
		Return(&inventory.SyncError{ID: "e1", Status: inventory.ErrorStatusResolved, RetryCount: 1}, nil)
	mockSvc.EXPECT().RetryError(gomock.Any(), "e1").
		Return(nil, fmt.Errorf("error e1 is resolved: %w", inventory.ErrInvalidState))
	mockSvc.EXPECT().ClearResolvedErrors(gomock.Any(), "acme").Return(3, nil)
	mockSvc.EXPECT().ClearResolvedErrors(gomock.Any(), "").Return(0, errors.New("connection refused"))

	rr := serve(router, http.MethodGet, "/errors?supplierId=acme&status=failed", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list v1.ErrorListResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)

	rr = serve(router, http.MethodPost, "/errors/e1/retry", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"resolved"`)

	rr = serve(router, http.MethodPost, "/errors/e1/retry", "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = serve(router, http.MethodDelete, "/errors/resolved?supplierId=acme", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"deleted":3}`, rr.Body.String())

	rr = serve(router, http.MethodDelete, "/errors/resolved", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Failed to clear resolved errors"}`, rr.Body.String())
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
