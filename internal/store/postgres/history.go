package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/voyagedesk/inventory-sync/internal/inventory"
	"github.com/voyagedesk/inventory-sync/internal/otel"
	"github.com/voyagedesk/inventory-sync/internal/store"
)

const historyColumns = `run_id, supplier_id, tenant, status, trigger, started_at, finished_at,
	items_total, items_processed, added, updated, deleted, progress_percent, message,
	conflict_count, pending_conflict_count, error_count`

// AppendHistory implements store.HistoryStore
func (s *Store) AppendHistory(ctx context.Context, entry *inventory.HistoryEntry) error {
	if err := store.ValidateHistoryEntry(entry); err != nil {
		return err
	}

	ctx, span := otel.StartSpan(ctx, s.tracer, "postgres.AppendHistory")
	defer span.End()

	args := append(runArgs(&entry.SyncRun), entry.ConflictCount, entry.PendingConflictCount, entry.ErrorCount)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sync_history (`+historyColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("run %s already appended to history", entry.ID)
		}
		otel.RecordError(span, err)
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// QueryHistory implements store.HistoryStore
func (s *Store) QueryHistory(ctx context.Context, query inventory.HistoryQuery) (*inventory.HistoryPage, error) {
	query.Normalize()

	ctx, span := otel.StartSpan(ctx, s.tracer, "postgres.QueryHistory")
	defer span.End()

	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if query.SupplierID != "" {
		add("supplier_id = $%d", query.SupplierID)
	}
	if query.From != nil {
		add("started_at >= $%d", *query.From)
	}
	if query.To != nil {
		add("started_at <= $%d", *query.To)
	}
	filter := ""
	if len(where) > 0 {
		filter = ` WHERE ` + strings.Join(where, " AND ")
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM sync_history`+filter, args...).Scan(&total); err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to count history: %w", err)
	}

	pageArgs := append(args, query.PageSize, query.Offset())
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM sync_history%s ORDER BY started_at DESC, run_id LIMIT $%d OFFSET $%d`,
			historyColumns, filter, len(args)+1, len(args)+2),
		pageArgs...)
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := make([]*inventory.HistoryEntry, 0, query.PageSize)
	for rows.Next() {
		entry, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &inventory.HistoryPage{
		Entries:    entries,
		Pagination: inventory.NewPagination(query.Page, query.PageSize, total),
	}, nil
}

func scanHistory(row pgx.Row) (*inventory.HistoryEntry, error) {
	var (
		e               inventory.HistoryEntry
		status, trigger string
	)
	if err := row.Scan(&e.ID, &e.SupplierID, &e.Tenant, &status, &trigger, &e.StartedAt, &e.FinishedAt,
		&e.ItemsTotal, &e.ItemsProcessed, &e.Counts.Added, &e.Counts.Updated, &e.Counts.Deleted,
		&e.ProgressPercent, &e.Message, &e.ConflictCount, &e.PendingConflictCount, &e.ErrorCount); err != nil {
		return nil, err
	}
	e.Status = inventory.RunStatus(status)
	e.Trigger = inventory.Trigger(trigger)
	return &e, nil
}
