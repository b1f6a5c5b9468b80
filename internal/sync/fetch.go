package sync

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/voyagedesk/inventory-sync/internal/connector"
	"github.com/voyagedesk/inventory-sync/internal/inventory"
	"github.com/voyagedesk/inventory-sync/internal/logger"
)

// fetch retrieves the supplier snapshot, retrying transient connector
// failures with exponential backoff. Authentication and malformed snapshot
// errors are not retried.
func (o *Orchestrator) fetch(
	ctx context.Context, conn connector.Connector, supplierID string,
) ([]inventory.RemoteItem, error) {
	attempt := 0
	operation := func() ([]inventory.RemoteItem, error) {
		attempt++
		items, err := conn.Fetch(ctx, supplierID)
		if err != nil && connector.IsPermanent(err) {
			return nil, backoff.Permanent(err)
		}
		return items, err
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(o.newBackOff()),
		backoff.WithMaxTries(uint(max(1, o.fetchRetry.MaxAttempts))),
		backoff.WithMaxElapsedTime(o.runTimeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warnf("Supplier '%s': fetch attempt %d failed, retrying in %s: %v",
				supplierID, attempt, next.Round(time.Millisecond), err)
		}),
	)
}

func (o *Orchestrator) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if o.fetchRetry.InitialDelay > 0 {
		b.InitialInterval = o.fetchRetry.InitialDelay
	}
	if o.fetchRetry.MaxDelay > 0 {
		b.MaxInterval = o.fetchRetry.MaxDelay
	}
	return b
}
