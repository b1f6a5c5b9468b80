// Package resolver applies an operator's or a policy's decision to a
// pending conflict.
package resolver

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/voyagedesk/inventory-sync/internal/inventory"
	"github.com/voyagedesk/inventory-sync/internal/logger"
	"github.com/voyagedesk/inventory-sync/internal/otel"
	"github.com/voyagedesk/inventory-sync/internal/store"
)

// AutoResolvedBy is recorded on conflicts resolved by a supplier policy
const AutoResolvedBy = "auto"

// Store is the persistence the resolver needs
type Store interface {
	store.InventoryStore
	store.ConflictStore
}

// Resolver resolves conflicts. Resolution of one conflict is serialized by
// the store, so concurrent calls for the same id have exactly one winner.
type Resolver struct {
	store  Store
	tracer trace.Tracer
	now    func() time.Time
}

// Option configures the Resolver
type Option func(*Resolver)

// WithTracer enables tracing
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Resolver) {
		r.tracer = tracer
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// New creates a Resolver
func New(s Store, opts ...Option) *Resolver {
	r := &Resolver{
		store: s,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve applies resolution to a pending conflict.
//
//   - keep_local leaves the item untouched
//   - use_remote replaces the item with the remote version
//   - merge writes override when given, otherwise {...local, ...remote}
//   - skip marks the conflict skipped without writing
//
// It returns inventory.ErrNotFound, inventory.ErrAlreadyResolved or
// inventory.ErrInvalidResolution. When the item write fails the conflict
// stays pending.
func (r *Resolver) Resolve(
	ctx context.Context,
	conflictID string,
	resolution inventory.Resolution,
	override inventory.Fields,
	resolvedBy string,
) (*inventory.SyncConflict, error) {
	ctx, span := otel.StartSpan(ctx, r.tracer, "resolver.Resolve",
		trace.WithAttributes(
			otel.AttrConflictID.String(conflictID),
			otel.AttrResolution.String(string(resolution)),
		))
	defer span.End()

	if !resolution.Valid() {
		err := fmt.Errorf("%w: %q", inventory.ErrInvalidResolution, resolution)
		otel.RecordError(span, err)
		return nil, err
	}

	resolved, err := r.store.UpdateConflictAtomically(ctx, conflictID, func(txCtx context.Context, c *inventory.SyncConflict) error {
		if c.Status != inventory.ConflictStatusPending {
			return fmt.Errorf("conflict %s is %s: %w", c.ID, c.Status, inventory.ErrAlreadyResolved)
		}

		value, write := Value(c, resolution, override)
		if write {
			item := &inventory.Item{
				SupplierID: c.SupplierID,
				ID:         c.ItemID,
				Fields:     value,
				UpdatedAt:  r.now(),
			}
			if err := r.store.PutItem(txCtx, item); err != nil {
				return fmt.Errorf("failed to apply %s to item %s: %w", resolution, c.ItemID, err)
			}
		}

		now := r.now()
		res := resolution
		c.Resolution = &res
		c.ResolvedValue = value
		c.ResolvedBy = resolvedBy
		c.ResolvedAt = &now
		c.Status = inventory.ConflictStatusResolved
		if resolution == inventory.ResolutionSkip {
			c.Status = inventory.ConflictStatusSkipped
		}
		return nil
	})
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(otel.AttrSupplierID.String(resolved.SupplierID))
	logger.Infof("Supplier '%s': conflict %s on item %s resolved with %s by %s",
		resolved.SupplierID, resolved.ID, resolved.ItemID, resolution, displayName(resolvedBy))
	return resolved, nil
}

// Value computes the item value a resolution produces and whether it must
// be written to the inventory store.
func Value(c *inventory.SyncConflict, resolution inventory.Resolution, override inventory.Fields) (inventory.Fields, bool) {
	switch resolution {
	case inventory.ResolutionUseRemote:
		return c.RemoteVersion.Clone(), true
	case inventory.ResolutionMerge:
		if override != nil {
			return override.Clone(), true
		}
		return c.LocalVersion.Merge(c.RemoteVersion), true
	case inventory.ResolutionKeepLocal:
		return c.LocalVersion.Clone(), false
	default:
		return nil, false
	}
}

func displayName(resolvedBy string) string {
	if resolvedBy == "" {
		return "unknown operator"
	}
	return resolvedBy
}
