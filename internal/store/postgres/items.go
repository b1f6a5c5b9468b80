package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/voyagedesk/inventory-sync/internal/inventory"
	"github.com/voyagedesk/inventory-sync/internal/otel"
)

// GetItem implements store.InventoryStore
func (s *Store) GetItem(ctx context.Context, supplierID, itemID string) (*inventory.Item, error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "postgres.GetItem")
	defer span.End()

	row := s.conn(ctx).QueryRow(ctx,
		`SELECT supplier_id, item_id, fields, updated_at
		   FROM inventory_items
		  WHERE supplier_id = $1 AND item_id = $2`,
		supplierID, itemID)
	item, err := scanItem(row)
	if err != nil {
		err = notFound(err, fmt.Sprintf("item %s/%s", supplierID, itemID))
		otel.RecordError(span, err)
		return nil, err
	}
	return item, nil
}

// ListItems implements store.InventoryStore
func (s *Store) ListItems(ctx context.Context, supplierID string) ([]*inventory.Item, error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "postgres.ListItems")
	defer span.End()

	rows, err := s.conn(ctx).Query(ctx,
		`SELECT supplier_id, item_id, fields, updated_at
		   FROM inventory_items
		  WHERE supplier_id = $1
		  ORDER BY item_id`,
		supplierID)
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var out []*inventory.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	span.SetAttributes(otel.AttrResultCount.Int(len(out)))
	return out, rows.Err()
}

// PutItem implements store.InventoryStore
func (s *Store) PutItem(ctx context.Context, item *inventory.Item) error {
	ctx, span := otel.StartSpan(ctx, s.tracer, "postgres.PutItem")
	defer span.End()

	fields, err := marshalFields(item.Fields)
	if err != nil {
		return err
	}
	if fields == nil {
		fields = []byte("{}")
	}
	updatedAt := item.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err = s.conn(ctx).Exec(ctx,
		`INSERT INTO inventory_items (supplier_id, item_id, fields, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (supplier_id, item_id)
		 DO UPDATE SET fields = EXCLUDED.fields, updated_at = EXCLUDED.updated_at`,
		item.SupplierID, item.ID, fields, updatedAt)
	if err != nil {
		otel.RecordError(span, err)
		return fmt.Errorf("failed to write item %s/%s: %w", item.SupplierID, item.ID, err)
	}
	return nil
}

// DeleteItem implements store.InventoryStore
func (s *Store) DeleteItem(ctx context.Context, supplierID, itemID string) error {
	ctx, span := otel.StartSpan(ctx, s.tracer, "postgres.DeleteItem")
	defer span.End()

	tag, err := s.conn(ctx).Exec(ctx,
		`DELETE FROM inventory_items WHERE supplier_id = $1 AND item_id = $2`,
		supplierID, itemID)
	if err != nil {
		otel.RecordError(span, err)
		return fmt.Errorf("failed to delete item %s/%s: %w", supplierID, itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("item %s/%s: %w", supplierID, itemID, inventory.ErrNotFound)
	}
	return nil
}

func scanItem(row pgx.Row) (*inventory.Item, error) {
	var (
		item   inventory.Item
		fields []byte
	)
	if err := row.Scan(&item.SupplierID, &item.ID, &fields, &item.UpdatedAt); err != nil {
		return nil, err
	}
	f, err := unmarshalFields(fields)
	if err != nil {
		return nil, err
	}
	item.Fields = f
	return &item, nil
}
