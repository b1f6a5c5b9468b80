package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/voyagedesk/inventory-sync/internal/inventory"
	"github.com/voyagedesk/inventory-sync/internal/otel"
)

const profileColumns = `supplier_id, enabled, schedule, policy, remove_missing, last_triggered_at, created_at, updated_at`

// ListProfiles implements store.ProfileStore
func (s *Store) ListProfiles(ctx context.Context) ([]*inventory.Profile, error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "postgres.ListProfiles")
	defer span.End()

	rows, err := s.pool.Query(ctx, `SELECT `+profileColumns+` FROM supplier_profiles ORDER BY supplier_id`)
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var out []*inventory.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetProfile implements store.ProfileStore
func (s *Store) GetProfile(ctx context.Context, supplierID string) (*inventory.Profile, error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "postgres.GetProfile")
	defer span.End()

	row := s.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM supplier_profiles WHERE supplier_id = $1`, supplierID)
	p, err := scanProfile(row)
	if err != nil {
		return nil, notFound(err, "supplier "+supplierID)
	}
	return p, nil
}

// UpsertProfile implements store.ProfileStore
func (s *Store) UpsertProfile(ctx context.Context, profile *inventory.Profile) error {
	ctx, span := otel.StartSpan(ctx, s.tracer, "postgres.UpsertProfile")
	defer span.End()

	schedule, err := json.Marshal(profile.Schedule)
	if err != nil {
		return fmt.Errorf("failed to encode schedule: %w", err)
	}
	policy, err := json.Marshal(profile.Policy)
	if err != nil {
		return fmt.Errorf("failed to encode policy: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO supplier_profiles (supplier_id, enabled, schedule, policy, remove_missing, last_triggered_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (supplier_id) DO UPDATE SET
		     enabled = EXCLUDED.enabled,
		     schedule = EXCLUDED.schedule,
		     policy = EXCLUDED.policy,
		     remove_missing = EXCLUDED.remove_missing,
		     last_triggered_at = EXCLUDED.last_triggered_at,
		     updated_at = now()`,
		profile.SupplierID, profile.Enabled, schedule, policy, profile.RemoveMissing, profile.LastTriggeredAt)
	if err != nil {
		otel.RecordError(span, err)
		return fmt.Errorf("failed to upsert profile %s: %w", profile.SupplierID, err)
	}
	return nil
}

func scanProfile(row pgx.Row) (*inventory.Profile, error) {
	var (
		p                inventory.Profile
		schedule, policy []byte
	)
	if err := row.Scan(&p.SupplierID, &p.Enabled, &schedule, &policy, &p.RemoveMissing,
		&p.LastTriggeredAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(schedule, &p.Schedule); err != nil {
		return nil, fmt.Errorf("failed to decode schedule of %s: %w", p.SupplierID, err)
	}
	if len(policy) > 0 {
		if err := json.Unmarshal(policy, &p.Policy); err != nil {
			return nil, fmt.Errorf("failed to decode policy of %s: %w", p.SupplierID, err)
		}
	}
	return &p, nil
}
