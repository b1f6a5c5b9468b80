// Package retry records operational failures of sync runs and replays them
// on operator request.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/voyagedesk/inventory-sync/internal/inventory"
	"github.com/voyagedesk/inventory-sync/internal/logger"
	"github.com/voyagedesk/inventory-sync/internal/otel"
	"github.com/voyagedesk/inventory-sync/internal/store"
)

// Executor replays the operation a SyncError describes
type Executor interface {
	Execute(ctx context.Context, syncErr *inventory.SyncError) error
}

// ExecutorFunc adapts a function to Executor
type ExecutorFunc func(ctx context.Context, syncErr *inventory.SyncError) error

// Execute implements Executor
func (f ExecutorFunc) Execute(ctx context.Context, syncErr *inventory.SyncError) error {
	return f(ctx, syncErr)
}

// Manager owns the SyncError lifecycle: failed → retrying → resolved | failed
type Manager struct {
	store    store.ErrorStore
	executor Executor
	tracer   trace.Tracer
	now      func() time.Time
}

// Option configures the Manager
type Option func(*Manager)

// WithExecutor sets the replay hook
func WithExecutor(e Executor) Option {
	return func(m *Manager) {
		m.executor = e
	}
}

// WithTracer enables tracing
func WithTracer(tracer trace.Tracer) Option {
	return func(m *Manager) {
		m.tracer = tracer
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// New creates a Manager
func New(s store.ErrorStore, opts ...Option) *Manager {
	m := &Manager{
		store: s,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetExecutor installs the replay hook. The orchestrator both records errors
// and executes retries, so it is attached after construction during wiring
// and before any call to Retry.
func (m *Manager) SetExecutor(e Executor) {
	m.executor = e
}

// Record stores a new failure with status failed and retryCount 0
func (m *Manager) Record(ctx context.Context, syncErr *inventory.SyncError) (*inventory.SyncError, error) {
	rec := syncErr.Clone()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Severity == "" {
		rec.Severity = inventory.SeverityError
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = m.now()
	}
	rec.Status = inventory.ErrorStatusFailed
	rec.RetryCount = 0
	rec.ResolvedAt = nil

	if err := m.store.CreateError(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to record sync error: %w", err)
	}

	logger.Warnf("Supplier '%s': %s %s error during %s: %s",
		rec.SupplierID, rec.Severity, rec.ErrorType, rec.Operation, rec.Message)
	return rec, nil
}

// Retry replays a failed operation. Only failed errors can be retried;
// anything else yields inventory.ErrInvalidState. retryCount grows by one
// per call. The returned record carries the outcome: resolved on success,
// failed with the new message otherwise.
func (m *Manager) Retry(ctx context.Context, errorID string) (*inventory.SyncError, error) {
	ctx, span := otel.StartSpan(ctx, m.tracer, "retry.Retry",
		trace.WithAttributes(otel.AttrErrorID.String(errorID)))
	defer span.End()

	if m.executor == nil {
		return nil, errors.New("no retry executor configured")
	}

	claimed, err := m.store.UpdateErrorAtomically(ctx, errorID, func(e *inventory.SyncError) error {
		if e.Status != inventory.ErrorStatusFailed {
			return fmt.Errorf("error %s is %s: %w", e.ID, e.Status, inventory.ErrInvalidState)
		}
		e.Status = inventory.ErrorStatusRetrying
		e.RetryCount++
		return nil
	})
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(otel.AttrSupplierID.String(claimed.SupplierID))

	execErr := m.executor.Execute(ctx, claimed.Clone())

	// finish even if the request context was cancelled mid-replay
	finishCtx := context.WithoutCancel(ctx)
	final, err := m.store.UpdateErrorAtomically(finishCtx, errorID, func(e *inventory.SyncError) error {
		if execErr != nil {
			e.Status = inventory.ErrorStatusFailed
			e.Message = execErr.Error()
			return nil
		}
		now := m.now()
		e.Status = inventory.ErrorStatusResolved
		e.ResolvedAt = &now
		return nil
	})
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to record retry outcome: %w", err)
	}

	if execErr != nil {
		otel.RecordError(span, execErr)
		logger.Warnf("Supplier '%s': retry %d of error %s failed: %v",
			final.SupplierID, final.RetryCount, final.ID, execErr)
	} else {
		logger.Infof("Supplier '%s': error %s resolved after %d retries",
			final.SupplierID, final.ID, final.RetryCount)
	}
	return final, nil
}

// ClearResolved deletes resolved errors of one supplier, or all when
// supplierID is empty. Failed and retrying rows are never deleted.
func (m *Manager) ClearResolved(ctx context.Context, supplierID string) (int, error) {
	n, err := m.store.DeleteResolvedErrors(ctx, supplierID)
	if err != nil {
		return 0, err
	}
	logger.Infof("Cleared %d resolved sync errors (supplier filter: %q)", n, supplierID)
	return n, nil
}

// List returns errors matching the filter, most recent first
func (m *Manager) List(ctx context.Context, filter inventory.ErrorFilter) ([]*inventory.SyncError, error) {
	return m.store.ListErrors(ctx, filter)
}

// Get returns one error
func (m *Manager) Get(ctx context.Context, errorID string) (*inventory.SyncError, error) {
	return m.store.GetError(ctx, errorID)
}
