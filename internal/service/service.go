// Package service provides the business logic behind the inventory sync API
package service

import (
	"context"
	"errors"
	"time"

	"github.com/voyagedesk/inventory-sync/internal/inventory"
	pkgsync "github.com/voyagedesk/inventory-sync/internal/sync"
)

// ErrInvalidRequest is returned when request parameters fail validation
var ErrInvalidRequest = errors.New("invalid request")

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=service.go SyncService

// SyncService defines the operations exposed to operators
type SyncService interface {
	// CheckReadiness reports whether the backing store is reachable
	CheckReadiness(ctx context.Context) error

	// GetStatus returns the status of one supplier, or of every supplier
	// when supplierID is empty
	GetStatus(ctx context.Context, supplierID string) ([]*pkgsync.SupplierStatus, error)

	// TriggerSync starts a manual run
	TriggerSync(ctx context.Context, supplierID string) (*inventory.SyncRun, error)

	// GetRun returns a run by id
	GetRun(ctx context.Context, runID string) (*inventory.SyncRun, error)

	// GetHistory returns a page of finished runs, most recent first
	GetHistory(ctx context.Context, opts ...Option[HistoryOptions]) (*inventory.HistoryPage, error)

	// ListConflicts returns conflicts; pending ones unless a status is given
	ListConflicts(ctx context.Context, opts ...Option[ConflictListOptions]) ([]*inventory.SyncConflict, error)

	// ResolveConflict applies a resolution to a pending conflict
	ResolveConflict(ctx context.Context, conflictID string, req ResolveRequest) (*inventory.SyncConflict, error)

	// GetSchedules returns the schedule of one supplier, or of every supplier
	// when supplierID is empty
	GetSchedules(ctx context.Context, supplierID string) ([]*ScheduleView, error)

	// UpdateSchedule validates and replaces a supplier's schedule
	UpdateSchedule(ctx context.Context, supplierID string, schedule inventory.Schedule) (*ScheduleView, error)

	// ListErrors returns recorded sync errors
	ListErrors(ctx context.Context, opts ...Option[ErrorListOptions]) ([]*inventory.SyncError, error)

	// RetryError replays the failed operation of an error
	RetryError(ctx context.Context, errorID string) (*inventory.SyncError, error)

	// ClearResolvedErrors deletes resolved errors of a supplier, or of all
	// suppliers when supplierID is empty
	ClearResolvedErrors(ctx context.Context, supplierID string) (int, error)
}

// ResolveRequest carries an operator's conflict decision
type ResolveRequest struct {
	Resolution inventory.Resolution
	// Value replaces the merged value when resolution is merge
	Value      inventory.Fields
	ResolvedBy string
}

// ScheduleView is the schedule of one supplier as shown to operators
type ScheduleView struct {
	SupplierID      string             `json:"supplierId"`
	Enabled         bool               `json:"enabled"`
	Schedule        inventory.Schedule `json:"schedule"`
	LastTriggeredAt *time.Time         `json:"lastTriggeredAt,omitempty"`
}

// NewScheduleView projects a profile onto its schedule
func NewScheduleView(p *inventory.Profile) *ScheduleView {
	return &ScheduleView{
		SupplierID:      p.SupplierID,
		Enabled:         p.Enabled,
		Schedule:        p.Schedule.Clone(),
		LastTriggeredAt: p.LastTriggeredAt,
	}
}
