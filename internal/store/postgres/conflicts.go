package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/voyagedesk/inventory-sync/internal/inventory"
	"github.com/voyagedesk/inventory-sync/internal/otel"
)

const conflictColumns = `id, run_id, supplier_id, item_id, conflict_type, local_version, remote_version,
	status, resolution, resolved_value, resolved_by, resolved_at, created_at`

// CreateConflict implements store.ConflictStore
func (s *Store) CreateConflict(ctx context.Context, c *inventory.SyncConflict) error {
	ctx, span := otel.StartSpan(ctx, s.tracer, "postgres.CreateConflict")
	defer span.End()

	args, err := conflictArgs(c)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO sync_conflicts (`+conflictColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		args...); err != nil {
		otel.RecordError(span, err)
		return fmt.Errorf("failed to create conflict: %w", err)
	}
	return nil
}

// GetConflict implements store.ConflictStore
func (s *Store) GetConflict(ctx context.Context, conflictID string) (*inventory.SyncConflict, error) {
	return getConflict(ctx, s.pool, conflictID, false)
}

func getConflict(ctx context.Context, exec executor, conflictID string, forUpdate bool) (*inventory.SyncConflict, error) {
	query := `SELECT ` + conflictColumns + ` FROM sync_conflicts WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	c, err := scanConflict(exec.QueryRow(ctx, query, conflictID))
	if err != nil {
		return nil, notFound(err, "conflict "+conflictID)
	}
	return c, nil
}

// ListConflicts implements store.ConflictStore
func (s *Store) ListConflicts(ctx context.Context, filter inventory.ConflictFilter) ([]*inventory.SyncConflict, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.SupplierID != "" {
		add("supplier_id = $%d", filter.SupplierID)
	}
	if filter.RunID != "" {
		add("run_id = $%d", filter.RunID)
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}

	query := `SELECT ` + conflictColumns + ` FROM sync_conflicts`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conflicts: %w", err)
	}
	defer rows.Close()

	out := make([]*inventory.SyncConflict, 0)
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateConflictAtomically implements store.ConflictStore with a row lock.
// Item writes fn makes with its context join the same transaction.
func (s *Store) UpdateConflictAtomically(
	ctx context.Context, conflictID string, fn func(context.Context, *inventory.SyncConflict) error,
) (*inventory.SyncConflict, error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "postgres.UpdateConflictAtomically")
	defer span.End()

	var updated *inventory.SyncConflict
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		current, err := getConflict(ctx, tx, conflictID, true)
		if err != nil {
			return err
		}
		if err := fn(withTxContext(ctx, tx), current); err != nil {
			return err
		}
		args, err := conflictArgs(current)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE sync_conflicts SET
			     run_id = $2, supplier_id = $3, item_id = $4, conflict_type = $5, local_version = $6,
			     remote_version = $7, status = $8, resolution = $9, resolved_value = $10,
			     resolved_by = $11, resolved_at = $12, created_at = $13
			 WHERE id = $1`,
			args...); err != nil {
			return fmt.Errorf("failed to update conflict %s: %w", conflictID, err)
		}
		updated = current
		return nil
	})
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	return updated, nil
}

func conflictArgs(c *inventory.SyncConflict) ([]any, error) {
	local, err := marshalFields(c.LocalVersion)
	if err != nil {
		return nil, err
	}
	remote, err := marshalFields(c.RemoteVersion)
	if err != nil {
		return nil, err
	}
	resolved, err := marshalFields(c.ResolvedValue)
	if err != nil {
		return nil, err
	}
	var resolution *string
	if c.Resolution != nil {
		r := string(*c.Resolution)
		resolution = &r
	}
	return []any{
		c.ID, c.RunID, c.SupplierID, c.ItemID, string(c.ConflictType), local, remote,
		string(c.Status), resolution, resolved, c.ResolvedBy, c.ResolvedAt, c.CreatedAt,
	}, nil
}

func scanConflict(row pgx.Row) (*inventory.SyncConflict, error) {
	var (
		c                         inventory.SyncConflict
		conflictType, status      string
		resolution                *string
		local, remote, resolvedTo []byte
	)
	if err := row.Scan(&c.ID, &c.RunID, &c.SupplierID, &c.ItemID, &conflictType, &local, &remote,
		&status, &resolution, &resolvedTo, &c.ResolvedBy, &c.ResolvedAt, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.ConflictType = inventory.ConflictType(conflictType)
	c.Status = inventory.ConflictStatus(status)
	if resolution != nil {
		r := inventory.Resolution(*resolution)
		c.Resolution = &r
	}
	var err error
	if c.LocalVersion, err = unmarshalFields(local); err != nil {
		return nil, err
	}
	if c.RemoteVersion, err = unmarshalFields(remote); err != nil {
		return nil, err
	}
	if c.ResolvedValue, err = unmarshalFields(resolvedTo); err != nil {
		return nil, err
	}
	return &c, nil
}
