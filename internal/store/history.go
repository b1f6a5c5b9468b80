package store

import (
	"fmt"

	"github.com/voyagedesk/inventory-sync/internal/inventory"
)

// ValidateHistoryEntry rejects entries that are not a finished run
func ValidateHistoryEntry(entry *inventory.HistoryEntry) error {
	if entry == nil {
		return fmt.Errorf("history entry cannot be nil")
	}
	if entry.ID == "" {
		return fmt.Errorf("history entry requires a run id")
	}
	if !entry.Status.IsTerminal() {
		return fmt.Errorf("%w: run %s has non-terminal status %s", inventory.ErrInvalidState, entry.ID, entry.Status)
	}
	if entry.FinishedAt == nil {
		return fmt.Errorf("%w: run %s has no finish time", inventory.ErrInvalidState, entry.ID)
	}
	return nil
}
