package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/voyagedesk/inventory-sync/internal/config"
	"github.com/voyagedesk/inventory-sync/internal/inventory"
	"github.com/voyagedesk/inventory-sync/internal/logger"
	"github.com/voyagedesk/inventory-sync/internal/store"
)

// seedProfiles stores the profile of every configured supplier that has none
// yet. Existing profiles keep their operator edits, including schedules.
func seedProfiles(ctx context.Context, profiles store.ProfileStore, suppliers []config.SupplierConfig) (int, error) {
	seeded := 0
	for i := range suppliers {
		s := &suppliers[i]

		_, err := profiles.GetProfile(ctx, s.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, inventory.ErrNotFound) {
			return seeded, fmt.Errorf("failed to look up profile of supplier %s: %w", s.ID, err)
		}

		if err := profiles.UpsertProfile(ctx, s.Profile()); err != nil {
			return seeded, fmt.Errorf("failed to seed profile of supplier %s: %w", s.ID, err)
		}
		logger.Infof("Supplier '%s': seeded profile (%s schedule)", s.ID, s.Schedule.Frequency)
		seeded++
	}
	return seeded, nil
}
