package connector

import (
	"context"
	"errors"

	"github.com/voyagedesk/inventory-sync/internal/inventory"
)

// Classify maps a fetch failure to the SyncError type recorded for it
func Classify(err error) string {
	switch {
	case errors.Is(err, ErrAuthFailed):
		return inventory.ErrorTypeAuthFailed
	case errors.Is(err, ErrMalformedSnapshot):
		return inventory.ErrorTypeMalformed
	case errors.Is(err, context.DeadlineExceeded):
		return inventory.ErrorTypeFetchTimeout
	case errors.Is(err, ErrUnreachable):
		return inventory.ErrorTypeUnreachable
	default:
		return inventory.ErrorTypeFetchFailed
	}
}

// IsPermanent reports whether retrying the fetch cannot help
func IsPermanent(err error) bool {
	return errors.Is(err, ErrAuthFailed) ||
		errors.Is(err, ErrMalformedSnapshot) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, inventory.ErrNotFound)
}
