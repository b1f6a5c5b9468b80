package connector

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/voyagedesk/inventory-sync/internal/inventory"
)

//go:generate mockgen -destination=mocks/mock_connector.go -package=mocks -source=types.go Connector,ItemFetcher,Provider

var (
	// ErrUnreachable means the supplier endpoint could not be reached or answered with a server error
	ErrUnreachable = errors.New("supplier unreachable")

	// ErrAuthFailed means the supplier rejected our credentials
	ErrAuthFailed = errors.New("supplier authentication failed")

	// ErrMalformedSnapshot means the snapshot could not be decoded
	ErrMalformedSnapshot = errors.New("malformed supplier snapshot")
)

// Connector fetches the current inventory snapshot of a supplier.
// Implementations must return promptly once ctx is cancelled.
type Connector interface {
	Fetch(ctx context.Context, supplierID string) ([]inventory.RemoteItem, error)
}

// ItemFetcher is implemented by connectors able to fetch one item.
// A missing item yields inventory.ErrNotFound.
type ItemFetcher interface {
	FetchItem(ctx context.Context, supplierID, itemID string) (*inventory.RemoteItem, error)
}

// Provider looks up the connector of a supplier
type Provider interface {
	Connector(supplierID string) (Connector, error)
}

// Registry is the in-process Provider
type Registry struct {
	mu         sync.RWMutex
	connectors map[string]Connector
}

var _ Provider = (*Registry)(nil)

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{connectors: make(map[string]Connector)}
}

// Register binds a connector to a supplier, replacing any previous one
func (r *Registry) Register(supplierID string, c Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[supplierID] = c
}

// Connector implements Provider
func (r *Registry) Connector(supplierID string) (Connector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.connectors[supplierID]
	if !ok {
		return nil, fmt.Errorf("connector for supplier %s: %w", supplierID, inventory.ErrNotFound)
	}
	return c, nil
}
