package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/voyagedesk/inventory-sync/internal/inventory"
	"github.com/voyagedesk/inventory-sync/internal/otel"
)

const errorColumns = `id, run_id, supplier_id, item_id, severity, error_type, message, operation,
	payload, status, retry_count, occurred_at, resolved_at`

// CreateError implements store.ErrorStore
func (s *Store) CreateError(ctx context.Context, e *inventory.SyncError) error {
	args, err := errorArgs(e)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO sync_errors (`+errorColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		args...); err != nil {
		return fmt.Errorf("failed to create sync error: %w", err)
	}
	return nil
}

// GetError implements store.ErrorStore
func (s *Store) GetError(ctx context.Context, errorID string) (*inventory.SyncError, error) {
	return getError(ctx, s.pool, errorID, false)
}

func getError(ctx context.Context, exec executor, errorID string, forUpdate bool) (*inventory.SyncError, error) {
	query := `SELECT ` + errorColumns + ` FROM sync_errors WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	e, err := scanError(exec.QueryRow(ctx, query, errorID))
	if err != nil {
		return nil, notFound(err, "error "+errorID)
	}
	return e, nil
}

// ListErrors implements store.ErrorStore
func (s *Store) ListErrors(ctx context.Context, filter inventory.ErrorFilter) ([]*inventory.SyncError, error) {
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

	query := `SELECT ` + errorColumns + ` FROM sync_errors`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY occurred_at DESC, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync errors: %w", err)
	}
	defer rows.Close()

	out := make([]*inventory.SyncError, 0)
	for rows.Next() {
		e, err := scanError(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpdateErrorAtomically implements store.ErrorStore with a row lock
func (s *Store) UpdateErrorAtomically(
	ctx context.Context, errorID string, fn func(*inventory.SyncError) error,
) (*inventory.SyncError, error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "postgres.UpdateErrorAtomically")
	defer span.End()

	var updated *inventory.SyncError
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		current, err := getError(ctx, tx, errorID, true)
		if err != nil {
			return err
		}
		if err := fn(current); err != nil {
			return err
		}
		args, err := errorArgs(current)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE sync_errors SET
			     run_id = $2, supplier_id = $3, item_id = $4, severity = $5, error_type = $6, message = $7,
			     operation = $8, payload = $9, status = $10, retry_count = $11, occurred_at = $12, resolved_at = $13
			 WHERE id = $1`,
			args...); err != nil {
			return fmt.Errorf("failed to update sync error %s: %w", errorID, err)
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

// DeleteResolvedErrors implements store.ErrorStore
func (s *Store) DeleteResolvedErrors(ctx context.Context, supplierID string) (int, error) {
	query := `DELETE FROM sync_errors WHERE status = 'resolved'`
	var args []any
	if supplierID != "" {
		query += ` AND supplier_id = $1`
		args = append(args, supplierID)
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to clear resolved errors: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func errorArgs(e *inventory.SyncError) ([]any, error) {
	payload, err := marshalFields(e.Payload)
	if err != nil {
		return nil, err
	}
	return []any{
		e.ID, e.RunID, e.SupplierID, e.ItemID, string(e.Severity), e.ErrorType, e.Message, string(e.Operation),
		payload, string(e.Status), e.RetryCount, e.Timestamp, e.ResolvedAt,
	}, nil
}

func scanError(row pgx.Row) (*inventory.SyncError, error) {
	var (
		e                           inventory.SyncError
		severity, operation, status string
		payload                     []byte
	)
	if err := row.Scan(&e.ID, &e.RunID, &e.SupplierID, &e.ItemID, &severity, &e.ErrorType, &e.Message, &operation,
		&payload, &status, &e.RetryCount, &e.Timestamp, &e.ResolvedAt); err != nil {
		return nil, err
	}
	e.Severity = inventory.Severity(severity)
	e.Operation = inventory.Operation(operation)
	e.Status = inventory.ErrorStatus(status)
	p, err := unmarshalFields(payload)
	if err != nil {
		return nil, err
	}
	e.Payload = p
	return &e, nil
}
