package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/voyagedesk/inventory-sync/internal/inventory"
	"github.com/voyagedesk/inventory-sync/internal/otel"
	"github.com/voyagedesk/inventory-sync/internal/store"
	pkgsync "github.com/voyagedesk/inventory-sync/internal/sync"
)

// ServiceTracerName is the tracer of the service layer
const ServiceTracerName = "github.com/voyagedesk/inventory-sync/service"

// RunTracker reports live run status
type RunTracker interface {
	Status(ctx context.Context, supplierID string) (*pkgsync.SupplierStatus, error)
	StatusAll(ctx context.Context) ([]*pkgsync.SupplierStatus, error)
}

// Scheduler triggers manual runs and owns schedule updates
type Scheduler interface {
	TriggerManual(ctx context.Context, supplierID string) (*inventory.SyncRun, error)
	UpdateSchedule(ctx context.Context, supplierID string, schedule inventory.Schedule) (*inventory.Profile, error)
}

// ErrorManager owns the SyncError lifecycle
type ErrorManager interface {
	List(ctx context.Context, filter inventory.ErrorFilter) ([]*inventory.SyncError, error)
	Retry(ctx context.Context, errorID string) (*inventory.SyncError, error)
	ClearResolved(ctx context.Context, supplierID string) (int, error)
}

// Dependencies wires the service
type Dependencies struct {
	Store     store.Store
	Runs      RunTracker
	Scheduler Scheduler
	Resolver  pkgsync.ConflictResolver
	Errors    ErrorManager

	// Tracer is optional; nil disables tracing
	Tracer trace.Tracer
}

type syncService struct {
	store     store.Store
	runs      RunTracker
	scheduler Scheduler
	resolver  pkgsync.ConflictResolver
	errors    ErrorManager
	tracer    trace.Tracer
}

var _ SyncService = (*syncService)(nil)

// New creates the SyncService
func New(deps Dependencies) (SyncService, error) {
	switch {
	case deps.Store == nil:
		return nil, fmt.Errorf("store is required")
	case deps.Runs == nil:
		return nil, fmt.Errorf("run tracker is required")
	case deps.Scheduler == nil:
		return nil, fmt.Errorf("scheduler is required")
	case deps.Resolver == nil:
		return nil, fmt.Errorf("conflict resolver is required")
	case deps.Errors == nil:
		return nil, fmt.Errorf("error manager is required")
	}

	return &syncService{
		store:     deps.Store,
		runs:      deps.Runs,
		scheduler: deps.Scheduler,
		resolver:  deps.Resolver,
		errors:    deps.Errors,
		tracer:    deps.Tracer,
	}, nil
}

// CheckReadiness implements SyncService
func (s *syncService) CheckReadiness(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("store not reachable: %w", err)
	}
	return nil
}

// GetStatus implements SyncService
func (s *syncService) GetStatus(ctx context.Context, supplierID string) ([]*pkgsync.SupplierStatus, error) {
	if supplierID == "" {
		return s.runs.StatusAll(ctx)
	}
	st, err := s.runs.Status(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	return []*pkgsync.SupplierStatus{st}, nil
}

// TriggerSync implements SyncService
func (s *syncService) TriggerSync(ctx context.Context, supplierID string) (*inventory.SyncRun, error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "service.TriggerSync",
		trace.WithAttributes(otel.AttrSupplierID.String(supplierID)))
	defer span.End()

	if supplierID == "" {
		err := fmt.Errorf("%w: supplierId is required", ErrInvalidRequest)
		otel.RecordError(span, err)
		return nil, err
	}
	run, err := s.scheduler.TriggerManual(ctx, supplierID)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(otel.AttrRunID.String(run.ID))
	return run, nil
}

// GetRun implements SyncService
func (s *syncService) GetRun(ctx context.Context, runID string) (*inventory.SyncRun, error) {
	return s.store.GetRun(ctx, runID)
}

// GetHistory implements SyncService
func (s *syncService) GetHistory(ctx context.Context, opts ...Option[HistoryOptions]) (*inventory.HistoryPage, error) {
	o, err := apply(opts)
	if err != nil {
		return nil, err
	}
	if o.From != nil && o.To != nil && o.From.After(*o.To) {
		return nil, fmt.Errorf("%w: from must not be after to", ErrInvalidRequest)
	}

	ctx, span := otel.StartSpan(ctx, s.tracer, "service.GetHistory",
		trace.WithAttributes(otel.AttrSupplierID.String(o.SupplierID)))
	defer span.End()

	page, err := s.store.QueryHistory(ctx, inventory.HistoryQuery{
		SupplierID: o.SupplierID,
		From:       o.From,
		To:         o.To,
		Page:       o.Page,
		PageSize:   o.PageSize,
	})
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(otel.AttrResultCount.Int(len(page.Entries)))
	return page, nil
}

// ListConflicts implements SyncService
func (s *syncService) ListConflicts(
	ctx context.Context, opts ...Option[ConflictListOptions],
) ([]*inventory.SyncConflict, error) {
	o, err := apply(opts)
	if err != nil {
		return nil, err
	}
	filter := inventory.ConflictFilter{SupplierID: o.SupplierID, RunID: o.RunID, Status: o.Status}
	if filter.Status == "" && !o.AnyStatus {
		filter.Status = inventory.ConflictStatusPending
	}
	return s.store.ListConflicts(ctx, filter)
}

// ResolveConflict implements SyncService
func (s *syncService) ResolveConflict(
	ctx context.Context, conflictID string, req ResolveRequest,
) (*inventory.SyncConflict, error) {
	if req.Value != nil && req.Resolution != inventory.ResolutionMerge {
		return nil, fmt.Errorf("%w: value is only accepted with the merge resolution", ErrInvalidRequest)
	}
	return s.resolver.Resolve(ctx, conflictID, req.Resolution, req.Value, req.ResolvedBy)
}

// GetSchedules implements SyncService
func (s *syncService) GetSchedules(ctx context.Context, supplierID string) ([]*ScheduleView, error) {
	if supplierID != "" {
		p, err := s.store.GetProfile(ctx, supplierID)
		if err != nil {
			return nil, err
		}
		return []*ScheduleView{NewScheduleView(p)}, nil
	}

	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*ScheduleView, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, NewScheduleView(p))
	}
	return out, nil
}

// UpdateSchedule implements SyncService
func (s *syncService) UpdateSchedule(
	ctx context.Context, supplierID string, schedule inventory.Schedule,
) (*ScheduleView, error) {
	if supplierID == "" {
		return nil, fmt.Errorf("%w: supplierId is required", ErrInvalidRequest)
	}
	p, err := s.scheduler.UpdateSchedule(ctx, supplierID, schedule)
	if err != nil {
		return nil, err
	}
	return NewScheduleView(p), nil
}

// ListErrors implements SyncService
func (s *syncService) ListErrors(ctx context.Context, opts ...Option[ErrorListOptions]) ([]*inventory.SyncError, error) {
	o, err := apply(opts)
	if err != nil {
		return nil, err
	}
	return s.errors.List(ctx, inventory.ErrorFilter{SupplierID: o.SupplierID, RunID: o.RunID, Status: o.Status})
}

// RetryError implements SyncService
func (s *syncService) RetryError(ctx context.Context, errorID string) (*inventory.SyncError, error) {
	return s.errors.Retry(ctx, errorID)
}

// ClearResolvedErrors implements SyncService
func (s *syncService) ClearResolvedErrors(ctx context.Context, supplierID string) (int, error) {
	return s.errors.ClearResolved(ctx, supplierID)
}
