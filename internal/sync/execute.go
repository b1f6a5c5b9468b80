package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/voyagedesk/inventory-sync/internal/connector"
	"github.com/voyagedesk/inventory-sync/internal/detector"
	"github.com/voyagedesk/inventory-sync/internal/inventory"
	"github.com/voyagedesk/inventory-sync/internal/logger"
	"github.com/voyagedesk/inventory-sync/internal/otel"
	"github.com/voyagedesk/inventory-sync/internal/resolver"
)

// Payload keys of auto_resolve errors
const (
	payloadConflictID = "conflictId"
	payloadResolution = "resolution"
)

// Execute replays the operation a SyncError describes, outside of any run
// and under the supplier lock. It implements retry.Executor.
func (o *Orchestrator) Execute(ctx context.Context, syncErr *inventory.SyncError) (err error) {
	ctx, span := otel.StartSpan(ctx, o.tracer, "sync.Execute",
		trace.WithAttributes(
			otel.AttrSupplierID.String(syncErr.SupplierID),
			otel.AttrErrorID.String(syncErr.ID),
		),
	)
	defer func() {
		otel.RecordError(span, err)
		span.End()
	}()

	release, err := o.locker.TryLock(ctx, syncErr.SupplierID)
	if err != nil {
		return fmt.Errorf("supplier %s: %w", syncErr.SupplierID, err)
	}
	defer release()

	profile, err := o.store.GetProfile(ctx, syncErr.SupplierID)
	if err != nil {
		return fmt.Errorf("supplier %s: %w", syncErr.SupplierID, err)
	}

	switch syncErr.Operation {
	case inventory.OperationFetch:
		conn, err := o.connectors.Connector(syncErr.SupplierID)
		if err != nil {
			return err
		}
		_, err = o.fetch(ctx, conn, syncErr.SupplierID)
		return err

	case inventory.OperationApplyItem:
		return o.replayApply(ctx, profile, syncErr)

	case inventory.OperationDeleteItem:
		err := o.store.DeleteItem(ctx, syncErr.SupplierID, syncErr.ItemID)
		if errors.Is(err, inventory.ErrNotFound) {
			return nil
		}
		return err

	case inventory.OperationAutoResolve:
		return o.replayAutoResolve(ctx, syncErr)

	default:
		return fmt.Errorf("operation %q cannot be replayed: %w", syncErr.Operation, inventory.ErrInvalidState)
	}
}

// replayApply re-fetches the item when the connector supports single item
// lookups, falling back to the stored payload, and classifies it against the
// current local copy. A clean item is written through; a conflicting one is
// handed over to conflict review.
func (o *Orchestrator) replayApply(ctx context.Context, profile *inventory.Profile, syncErr *inventory.SyncError) error {
	remote := inventory.RemoteItem{ID: syncErr.ItemID, Fields: syncErr.Payload.Clone()}

	if conn, err := o.connectors.Connector(syncErr.SupplierID); err == nil {
		if fetcher, ok := conn.(connector.ItemFetcher); ok {
			fresh, err := fetcher.FetchItem(ctx, syncErr.SupplierID, syncErr.ItemID)
			if err != nil {
				return fmt.Errorf("failed to re-fetch item %s: %w", syncErr.ItemID, err)
			}
			remote = *fresh
		}
	}
	if remote.Fields == nil {
		return fmt.Errorf("item %s has no payload to replay: %w", syncErr.ItemID, inventory.ErrInvalidState)
	}

	local, err := o.store.GetItem(ctx, syncErr.SupplierID, syncErr.ItemID)
	switch {
	case errors.Is(err, inventory.ErrNotFound):
		local = nil
	case err != nil:
		return err
	}

	res := detector.Classify(detector.Input{Local: local, Remote: remote}, profile.Policy)
	switch res.Action {
	case detector.ActionNoop:
		return nil
	case detector.ActionAdd, detector.ActionUpdate:
		return o.writeItem(ctx, syncErr.SupplierID, remote)
	case detector.ActionInvalid:
		return fmt.Errorf("item %s is malformed: %s", syncErr.ItemID, res.Reason)
	}

	conflict := &inventory.SyncConflict{
		ID:            uuid.NewString(),
		RunID:         syncErr.RunID,
		SupplierID:    syncErr.SupplierID,
		ItemID:        syncErr.ItemID,
		ConflictType:  res.ConflictType,
		LocalVersion:  local.Fields.Clone(),
		RemoteVersion: remote.Fields.Clone(),
		Status:        inventory.ConflictStatusPending,
		CreatedAt:     o.now().UTC(),
	}
	if err := o.store.CreateConflict(ctx, conflict); err != nil {
		return fmt.Errorf("failed to record conflict for item %s: %w", syncErr.ItemID, err)
	}
	o.metrics.RecordConflict(ctx, syncErr.SupplierID, res.ConflictType)
	logger.Infof("Supplier '%s': replayed item %s now conflicts (%s), conflict %s awaits review",
		syncErr.SupplierID, syncErr.ItemID, res.ConflictType, conflict.ID)
	return nil
}

func (o *Orchestrator) replayAutoResolve(ctx context.Context, syncErr *inventory.SyncError) error {
	conflictID, _ := syncErr.Payload[payloadConflictID].(string)
	resolution, _ := syncErr.Payload[payloadResolution].(string)
	if conflictID == "" || resolution == "" {
		return fmt.Errorf("auto resolution payload is incomplete: %w", inventory.ErrInvalidState)
	}

	_, err := o.resolver.Resolve(ctx, conflictID, inventory.Resolution(resolution), nil, resolver.AutoResolvedBy)
	if errors.Is(err, inventory.ErrAlreadyResolved) {
		return nil
	}
	return err
}
