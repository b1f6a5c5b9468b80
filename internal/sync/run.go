package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/voyagedesk/inventory-sync/internal/connector"
	"github.com/voyagedesk/inventory-sync/internal/detector"
	"github.com/voyagedesk/inventory-sync/internal/inventory"
	"github.com/voyagedesk/inventory-sync/internal/lock"
	"github.com/voyagedesk/inventory-sync/internal/logger"
	"github.com/voyagedesk/inventory-sync/internal/otel"
	"github.com/voyagedesk/inventory-sync/internal/resolver"
)

// runState is everything the run goroutine carries until finalization
type runState struct {
	run     *inventory.SyncRun
	profile *inventory.Profile
	conn    connector.Connector
	release lock.Release

	// local is the supplier inventory keyed by item id, kept current as the
	// run writes through
	local map[string]*inventory.Item

	// failure is set when the run cannot complete; it makes the run failed
	failure string
}

func (st *runState) fail(format string, args ...any) {
	if st.failure == "" {
		st.failure = fmt.Sprintf(format, args...)
	}
}

// execute is the run goroutine
func (o *Orchestrator) execute(ctx context.Context, st *runState, active *activeRun) {
	started := o.now()
	supplierID := st.run.SupplierID

	ctx, span := otel.StartSpan(ctx, o.tracer, "sync.Run",
		trace.WithAttributes(
			otel.AttrTenant.String(o.tenant),
			otel.AttrSupplierID.String(supplierID),
			otel.AttrRunID.String(st.run.ID),
			otel.AttrTrigger.String(string(st.run.Trigger)),
		),
	)

	// Set up finalization in a defer so the run always reaches a terminal
	// status and the lock is always released, even after a panic.
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Supplier '%s': run %s panicked: %v", supplierID, st.run.ID, r)
			st.fail("unexpected failure: %v", r)
		}
		o.finalize(ctx, st, started)
		span.End()
		active.cancel()
		o.forget(st.run.ID)
		close(active.done)
		o.wg.Done()
	}()

	queueCtx, cancelQueue := context.WithTimeout(ctx, o.queueTimeout)
	err := o.slots.Acquire(queueCtx, 1)
	cancelQueue()
	if err != nil {
		if ctx.Err() == nil {
			st.fail("run waited more than %s for a processing slot", o.queueTimeout)
		} else {
			st.fail("run cancelled while queued: %v", ctx.Err())
		}
		return
	}
	defer o.slots.Release(1)

	o.process(ctx, st)
}

// process runs the fetch, classify and apply phases
func (o *Orchestrator) process(ctx context.Context, st *runState) {
	run := st.run
	run.Status = inventory.RunStatusRunning
	o.saveProgress(ctx, st)
	logger.Infof("Supplier '%s': run %s started", run.SupplierID, run.ID)

	ctx, cancel := context.WithTimeout(ctx, o.runTimeout)
	defer cancel()

	remote, err := o.fetch(ctx, st.conn, run.SupplierID)
	if err != nil {
		o.recordFetchFailure(ctx, st, err)
		return
	}
	run.ItemsTotal = len(remote)
	o.saveProgress(ctx, st)

	items, err := o.store.ListItems(ctx, run.SupplierID)
	if err != nil {
		st.fail("failed to load local inventory: %v", err)
		return
	}
	st.local = make(map[string]*inventory.Item, len(items))
	for _, item := range items {
		st.local[item.ID] = item
	}

	duplicates := detector.MarkDuplicates(remote)
	for i, item := range remote {
		if err := ctx.Err(); err != nil {
			st.fail("run aborted after %d of %d items: %v", run.ItemsProcessed, run.ItemsTotal, err)
			return
		}

		res := detector.Classify(detector.Input{
			Local:     st.local[item.ID],
			Remote:    item,
			Duplicate: duplicates[i],
		}, st.profile.Policy)

		o.applyItem(ctx, st, item, res)
		run.ItemsProcessed++
		o.saveProgress(ctx, st)
	}

	if st.profile.RemoveMissing {
		o.removeMissing(ctx, st, remote)
	}
}

// applyItem acts on one classification. Failures become SyncErrors.
func (o *Orchestrator) applyItem(ctx context.Context, st *runState, item inventory.RemoteItem, res detector.Result) {
	run := st.run

	switch res.Action {
	case detector.ActionNoop:
		return

	case detector.ActionAdd, detector.ActionUpdate:
		if err := o.writeItem(ctx, run.SupplierID, item); err != nil {
			o.recordItemFailure(ctx, st, item, inventory.OperationApplyItem, err)
			return
		}
		if res.Action == detector.ActionAdd {
			run.Counts.Added++
		} else {
			run.Counts.Updated++
		}
		st.local[item.ID] = &inventory.Item{SupplierID: run.SupplierID, ID: item.ID, Fields: item.Fields.Clone()}

	case detector.ActionInvalid:
		o.record(ctx, &inventory.SyncError{
			RunID:      run.ID,
			SupplierID: run.SupplierID,
			ItemID:     item.ID,
			Severity:   inventory.SeverityWarning,
			ErrorType:  inventory.ErrorTypeMalformedItem,
			Message:    res.Reason,
			Operation:  inventory.OperationApplyItem,
			Payload:    item.Fields.Clone(),
		})

	case detector.ActionConflict:
		o.recordConflict(ctx, st, item, res)
	}
}

// recordConflict persists a pending conflict and applies the profile's
// automatic resolution for its type, if any
func (o *Orchestrator) recordConflict(ctx context.Context, st *runState, item inventory.RemoteItem, res detector.Result) {
	run := st.run
	local := st.local[item.ID]

	conflict := &inventory.SyncConflict{
		ID:            uuid.NewString(),
		RunID:         run.ID,
		SupplierID:    run.SupplierID,
		ItemID:        item.ID,
		ConflictType:  res.ConflictType,
		RemoteVersion: item.Fields.Clone(),
		Status:        inventory.ConflictStatusPending,
		CreatedAt:     o.now().UTC(),
	}
	if local != nil {
		conflict.LocalVersion = local.Fields.Clone()
	}

	if err := o.store.CreateConflict(ctx, conflict); err != nil {
		o.recordItemFailure(ctx, st, item, inventory.OperationApplyItem, err)
		return
	}
	o.metrics.RecordConflict(ctx, run.SupplierID, res.ConflictType)
	logger.Debugf("Supplier '%s': item %s conflicts (%s): %s", run.SupplierID, item.ID, res.ConflictType, res.Reason)

	resolution, ok := st.profile.Policy.AutoResolve[res.ConflictType]
	if !ok {
		return
	}

	resolved, err := o.resolver.Resolve(ctx, conflict.ID, resolution, nil, resolver.AutoResolvedBy)
	if err != nil {
		o.record(ctx, &inventory.SyncError{
			RunID:      run.ID,
			SupplierID: run.SupplierID,
			ItemID:     item.ID,
			Severity:   inventory.SeverityError,
			ErrorType:  inventory.ErrorTypeAutoResolve,
			Message:    err.Error(),
			Operation:  inventory.OperationAutoResolve,
			Payload:    autoResolvePayload(conflict.ID, resolution),
		})
		return
	}

	if value, writes := resolver.Value(resolved, resolution, nil); writes {
		if local == nil {
			run.Counts.Added++
		} else {
			run.Counts.Updated++
		}
		st.local[item.ID] = &inventory.Item{SupplierID: run.SupplierID, ID: item.ID, Fields: value}
	}
}

// removeMissing deletes local items absent from the snapshot
func (o *Orchestrator) removeMissing(ctx context.Context, st *runState, remote []inventory.RemoteItem) {
	run := st.run
	for _, id := range detector.MissingLocally(st.local, remote) {
		if ctx.Err() != nil {
			st.fail("run aborted while removing missing items: %v", ctx.Err())
			return
		}

		itemCtx, cancel := context.WithTimeout(ctx, o.itemTimeout)
		err := o.store.DeleteItem(itemCtx, run.SupplierID, id)
		timedOut := errors.Is(itemCtx.Err(), context.DeadlineExceeded)
		cancel()

		switch {
		case err == nil:
			run.Counts.Deleted++
			delete(st.local, id)
		case errors.Is(err, inventory.ErrNotFound):
			delete(st.local, id)
		default:
			if timedOut {
				err = fmt.Errorf("%w: %w", err, context.DeadlineExceeded)
			}
			o.recordItemFailure(ctx, st, inventory.RemoteItem{ID: id}, inventory.OperationDeleteItem, err)
		}
	}
	o.saveProgress(ctx, st)
}

// writeItem writes a remote item through under the item timeout
func (o *Orchestrator) writeItem(ctx context.Context, supplierID string, item inventory.RemoteItem) error {
	itemCtx, cancel := context.WithTimeout(ctx, o.itemTimeout)
	defer cancel()

	err := o.store.PutItem(itemCtx, &inventory.Item{
		SupplierID: supplierID,
		ID:         item.ID,
		Fields:     item.Fields.Clone(),
		UpdatedAt:  o.now().UTC(),
	})
	if err != nil && errors.Is(itemCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", err, context.DeadlineExceeded)
	}
	return err
}

func (o *Orchestrator) recordFetchFailure(ctx context.Context, st *runState, err error) {
	run := st.run
	errorType := connector.Classify(err)
	st.fail("fetch failed (%s): %v", errorType, err)
	logger.Errorf("Supplier '%s': run %s fetch failed: %v", run.SupplierID, run.ID, err)

	o.record(ctx, &inventory.SyncError{
		RunID:      run.ID,
		SupplierID: run.SupplierID,
		Severity:   inventory.SeverityCritical,
		ErrorType:  errorType,
		Message:    err.Error(),
		Operation:  inventory.OperationFetch,
	})
}

func (o *Orchestrator) recordItemFailure(
	ctx context.Context, st *runState, item inventory.RemoteItem, op inventory.Operation, err error,
) {
	errorType := inventory.ErrorTypeWriteFailed
	if errors.Is(err, context.DeadlineExceeded) {
		errorType = inventory.ErrorTypeWriteTimeout
	}
	logger.Warnf("Supplier '%s': item %s %s failed: %v", st.run.SupplierID, item.ID, op, err)

	o.record(ctx, &inventory.SyncError{
		RunID:      st.run.ID,
		SupplierID: st.run.SupplierID,
		ItemID:     item.ID,
		Severity:   inventory.SeverityError,
		ErrorType:  errorType,
		Message:    err.Error(),
		Operation:  op,
		Payload:    item.Fields.Clone(),
	})
}

// record persists a SyncError. The write outlives run cancellation so a
// cancelled run still leaves its failures behind.
func (o *Orchestrator) record(ctx context.Context, syncErr *inventory.SyncError) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	if _, err := o.recorder.Record(ctx, syncErr); err != nil {
		logger.Errorf("Supplier '%s': failed to record %s error: %v", syncErr.SupplierID, syncErr.ErrorType, err)
		return
	}
	o.metrics.RecordError(ctx, syncErr.SupplierID, syncErr.ErrorType, syncErr.Severity)
}

// saveProgress persists the run counters. Failures are logged; the run goes on.
func (o *Orchestrator) saveProgress(ctx context.Context, st *runState) {
	st.run.RecomputeProgress()
	if err := o.store.UpdateRun(context.WithoutCancel(ctx), st.run); err != nil {
		logger.Warnf("Supplier '%s': failed to persist progress of run %s: %v", st.run.SupplierID, st.run.ID, err)
	}
}

// finalize moves the run to its terminal status, appends it to the history
// ledger, releases the supplier lock and records metrics
func (o *Orchestrator) finalize(ctx context.Context, st *runState, started time.Time) {
	defer st.release()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	run := st.run
	switch {
	case st.failure != "":
		run.Status = inventory.RunStatusFailed
		run.Message = st.failure
	default:
		partial, reason, err := o.needsReview(ctx, run.ID)
		if err != nil {
			// pending work is unknown, so the run cannot be reported clean
			logger.Errorf("Supplier '%s': failed to inspect run %s: %v", run.SupplierID, run.ID, err)
			partial = true
			reason = fmt.Sprintf("failed to check for pending conflicts and errors: %v", err)
		}
		if partial {
			run.Status = inventory.RunStatusPartial
			run.Message = reason
		} else {
			run.Status = inventory.RunStatusCompleted
			run.Message = ""
		}
	}

	finished := o.now().UTC()
	run.FinishedAt = &finished
	run.RecomputeProgress()

	if err := o.store.UpdateRun(ctx, run); err != nil {
		logger.Errorf("Supplier '%s': failed to persist final state of run %s: %v", run.SupplierID, run.ID, err)
	}

	entry, err := o.historyEntry(ctx, run)
	if err == nil {
		err = o.store.AppendHistory(ctx, entry)
	}
	if err != nil {
		logger.Errorf("Supplier '%s': failed to append run %s to history: %v", run.SupplierID, run.ID, err)
	}

	duration := finished.Sub(started)
	o.metrics.RecordRun(ctx, run, duration)

	logger.Infof("Supplier '%s': run %s %s in %s (added=%d updated=%d deleted=%d processed=%d/%d)",
		run.SupplierID, run.ID, run.Status, duration.Round(time.Millisecond),
		run.Counts.Added, run.Counts.Updated, run.Counts.Deleted, run.ItemsProcessed, run.ItemsTotal)
}

// needsReview reports whether the run left pending conflicts or unresolved
// errors behind
func (o *Orchestrator) needsReview(ctx context.Context, runID string) (bool, string, error) {
	pending, err := o.store.ListConflicts(ctx, inventory.ConflictFilter{RunID: runID, Status: inventory.ConflictStatusPending})
	if err != nil {
		return false, "", err
	}
	syncErrs, err := o.store.ListErrors(ctx, inventory.ErrorFilter{RunID: runID})
	if err != nil {
		return false, "", err
	}
	unresolved := 0
	for _, e := range syncErrs {
		if e.Status != inventory.ErrorStatusResolved {
			unresolved++
		}
	}
	if len(pending) == 0 && unresolved == 0 {
		return false, "", nil
	}
	return true, fmt.Sprintf("%d pending conflict(s), %d unresolved error(s)", len(pending), unresolved), nil
}

func autoResolvePayload(conflictID string, resolution inventory.Resolution) inventory.Fields {
	return inventory.Fields{
		payloadConflictID: conflictID,
		payloadResolution: string(resolution),
	}
}
