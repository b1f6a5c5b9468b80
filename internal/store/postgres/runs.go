package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/voyagedesk/inventory-sync/internal/inventory"
	"github.com/voyagedesk/inventory-sync/internal/otel"
)

const runColumns = `id, supplier_id, tenant, status, trigger, started_at, finished_at,
	items_total, items_processed, added, updated, deleted, progress_percent, message`

// CreateRun implements store.RunStore. The partial unique index on active
// runs turns a second queued run for the same supplier into ErrAlreadyRunning.
func (s *Store) CreateRun(ctx context.Context, run *inventory.SyncRun) error {
	ctx, span := otel.StartSpan(ctx, s.tracer, "postgres.CreateRun")
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO sync_runs (`+runColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		runArgs(run)...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == activeRunConstraint {
			return fmt.Errorf("supplier %s: %w", run.SupplierID, inventory.ErrAlreadyRunning)
		}
		otel.RecordError(span, err)
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// UpdateRun implements store.RunStore
func (s *Store) UpdateRun(ctx context.Context, run *inventory.SyncRun) error {
	ctx, span := otel.StartSpan(ctx, s.tracer, "postgres.UpdateRun")
	defer span.End()

	tag, err := s.pool.Exec(ctx,
		`UPDATE sync_runs SET
		     supplier_id = $2, tenant = $3, status = $4, trigger = $5, started_at = $6, finished_at = $7,
		     items_total = $8, items_processed = $9, added = $10, updated = $11, deleted = $12,
		     progress_percent = $13, message = $14
		 WHERE id = $1`,
		runArgs(run)...)
	if err != nil {
		otel.RecordError(span, err)
		return fmt.Errorf("failed to update run %s: %w", run.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run %s: %w", run.ID, inventory.ErrNotFound)
	}
	return nil
}

// GetRun implements store.RunStore
func (s *Store) GetRun(ctx context.Context, runID string) (*inventory.SyncRun, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM sync_runs WHERE id = $1`, runID)
	run, err := scanRun(row)
	if err != nil {
		return nil, notFound(err, "run "+runID)
	}
	return run, nil
}

// LatestRun implements store.RunStore
func (s *Store) LatestRun(ctx context.Context, supplierID string) (*inventory.SyncRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+runColumns+` FROM sync_runs WHERE supplier_id = $1 ORDER BY started_at DESC LIMIT 1`,
		supplierID)
	run, err := scanRun(row)
	if err != nil {
		return nil, notFound(err, "no runs for supplier "+supplierID)
	}
	return run, nil
}

// ListActiveRuns implements store.RunStore
func (s *Store) ListActiveRuns(ctx context.Context) ([]*inventory.SyncRun, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+runColumns+` FROM sync_runs WHERE status IN ('queued', 'running') ORDER BY started_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active runs: %w", err)
	}
	defer rows.Close()

	var out []*inventory.SyncRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func runArgs(run *inventory.SyncRun) []any {
	return []any{
		run.ID, run.SupplierID, run.Tenant, string(run.Status), string(run.Trigger), run.StartedAt, run.FinishedAt,
		run.ItemsTotal, run.ItemsProcessed, run.Counts.Added, run.Counts.Updated, run.Counts.Deleted,
		run.ProgressPercent, run.Message,
	}
}

func scanRun(row pgx.Row) (*inventory.SyncRun, error) {
	var (
		run             inventory.SyncRun
		status, trigger string
	)
	if err := row.Scan(&run.ID, &run.SupplierID, &run.Tenant, &status, &trigger, &run.StartedAt, &run.FinishedAt,
		&run.ItemsTotal, &run.ItemsProcessed, &run.Counts.Added, &run.Counts.Updated, &run.Counts.Deleted,
		&run.ProgressPercent, &run.Message); err != nil {
		return nil, err
	}
	run.Status = inventory.RunStatus(status)
	run.Trigger = inventory.Trigger(trigger)
	return &run, nil
}
