package connector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/voyagedesk/inventory-sync/internal/httpclient"
	"github.com/voyagedesk/inventory-sync/internal/inventory"
	"github.com/voyagedesk/inventory-sync/internal/logger"
)

// itemIDPlaceholder is substituted in item endpoints
const itemIDPlaceholder = "{itemId}"

// APIConnector fetches JSON snapshots over HTTP
type APIConnector struct {
	client       httpclient.Client
	endpoint     string
	itemEndpoint string
	itemsPath    string
}

// APIOption configures an APIConnector
type APIOption func(*APIConnector)

// WithItemsPath extracts the item list from a wrapped snapshot response.
// path uses gjson syntax, e.g. "data.rooms".
func WithItemsPath(path string) APIOption {
	return func(c *APIConnector) {
		c.itemsPath = path
	}
}

var (
	_ Connector   = (*APIConnector)(nil)
	_ ItemFetcher = (*APIConnector)(nil)
)

// NewAPIConnector creates an HTTP connector. itemEndpoint may be empty.
func NewAPIConnector(client httpclient.Client, endpoint, itemEndpoint string, opts ...APIOption) *APIConnector {
	c := &APIConnector{
		client:       client,
		endpoint:     endpoint,
		itemEndpoint: itemEndpoint,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch implements Connector
func (c *APIConnector) Fetch(ctx context.Context, supplierID string) ([]inventory.RemoteItem, error) {
	logger.Debugf("Supplier '%s': fetching snapshot from %s", supplierID, c.endpoint)

	data, err := c.client.Get(ctx, c.endpoint)
	if err != nil {
		return nil, classifyHTTP(ctx, err)
	}

	if c.itemsPath != "" {
		if !gjson.ValidBytes(data) {
			return nil, fmt.Errorf("%w: response is not valid JSON", ErrMalformedSnapshot)
		}
		result := gjson.GetBytes(data, c.itemsPath)
		if !result.Exists() {
			return nil, fmt.Errorf("%w: no value at path %q", ErrMalformedSnapshot, c.itemsPath)
		}
		data = []byte(result.Raw)
	}
	return ParseSnapshot(data, "")
}

// FetchItem implements ItemFetcher. Without an item endpoint the full
// snapshot is fetched and searched.
func (c *APIConnector) FetchItem(ctx context.Context, supplierID, itemID string) (*inventory.RemoteItem, error) {
	if c.itemEndpoint == "" {
		items, err := c.Fetch(ctx, supplierID)
		if err != nil {
			return nil, err
		}
		return findItem(items, supplierID, itemID)
	}

	target := strings.ReplaceAll(c.itemEndpoint, itemIDPlaceholder, url.PathEscape(itemID))
	data, err := c.client.Get(ctx, target)
	if err != nil {
		if httpclient.StatusCode(err) == http.StatusNotFound {
			return nil, fmt.Errorf("item %s/%s: %w", supplierID, itemID, inventory.ErrNotFound)
		}
		return nil, classifyHTTP(ctx, err)
	}
	return parseItem(data)
}

// classifyHTTP turns transport and status failures into connector errors
func classifyHTTP(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("fetch abandoned: %w", ctxErr)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}

	// token endpoint rejected the client credentials
	var tokenErr *oauth2.RetrieveError
	if errors.As(err, &tokenErr) && tokenErr.Response != nil && tokenErr.Response.StatusCode < 500 {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	switch code := httpclient.StatusCode(err); {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	case code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500:
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	case code == 0:
		// transport failure, no response at all
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	default:
		return fmt.Errorf("unexpected supplier response: %w", err)
	}
}

func findItem(items []inventory.RemoteItem, supplierID, itemID string) (*inventory.RemoteItem, error) {
	for i := range items {
		if items[i].ID == itemID {
			item := items[i]
			return &item, nil
		}
	}
	return nil, fmt.Errorf("item %s/%s: %w", supplierID, itemID, inventory.ErrNotFound)
}
