package connector

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/voyagedesk/inventory-sync/internal/inventory"
)

// FileConnector reads a snapshot from the local filesystem on every fetch
type FileConnector struct {
	path   string
	format string
}

var (
	_ Connector   = (*FileConnector)(nil)
	_ ItemFetcher = (*FileConnector)(nil)
)

// NewFileConnector creates a file connector for a json or yaml snapshot
func NewFileConnector(path, format string) *FileConnector {
	return &FileConnector{path: path, format: format}
}

// Fetch implements Connector
func (c *FileConnector) Fetch(ctx context.Context, _ string) ([]inventory.RemoteItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetch abandoned: %w", err)
	}

	//nolint:gosec // path comes from operator configuration
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: snapshot file not found: %s", ErrUnreachable, c.path)
		}
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrUnreachable, c.path, err)
	}
	return ParseSnapshot(data, c.format)
}

// FetchItem implements ItemFetcher
func (c *FileConnector) FetchItem(ctx context.Context, supplierID, itemID string) (*inventory.RemoteItem, error) {
	items, err := c.Fetch(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	return findItem(items, supplierID, itemID)
}
