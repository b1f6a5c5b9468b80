package connector

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/voyagedesk/inventory-sync/internal/config"
	"github.com/voyagedesk/inventory-sync/internal/httpclient"
	"github.com/voyagedesk/inventory-sync/internal/logger"
)

// New creates the connector described by cfg
func New(cfg *config.ConnectorConfig) (Connector, error) {
	if cfg == nil {
		return nil, fmt.Errorf("connector configuration cannot be nil")
	}

	switch cfg.GetType() {
	case config.ConnectorTypeAPI:
		return newAPIFromConfig(cfg.API)
	case config.ConnectorTypeFile:
		return NewFileConnector(cfg.File.Path, cfg.File.GetFormat()), nil
	default:
		return nil, fmt.Errorf("unsupported connector type: %q", cfg.GetType())
	}
}

// NewRegistryFromConfig builds a connector for every configured supplier
func NewRegistryFromConfig(suppliers []config.SupplierConfig) (*Registry, error) {
	registry := NewRegistry()
	for i := range suppliers {
		s := &suppliers[i]
		c, err := New(&s.Connector)
		if err != nil {
			return nil, fmt.Errorf("supplier %s: %w", s.ID, err)
		}
		registry.Register(s.ID, c)
		logger.Infof("Supplier '%s': %s connector configured", s.ID, s.Connector.GetType())
	}
	return registry, nil
}

func newAPIFromConfig(cfg *config.APIConnectorConfig) (*APIConnector, error) {
	var timeout time.Duration
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid api timeout: %w", err)
		}
		timeout = d
	}

	var opts []httpclient.Option
	for k, v := range cfg.Headers {
		opts = append(opts, httpclient.WithHeader(k, v))
	}
	if cfg.TokenFile != "" {
		token, err := os.ReadFile(filepath.Clean(cfg.TokenFile))
		if err != nil {
			return nil, fmt.Errorf("failed to read token file %s: %w", cfg.TokenFile, err)
		}
		opts = append(opts, httpclient.WithHeader("Authorization", "Bearer "+strings.TrimSpace(string(token))))
	}
	if cfg.OAuth2 != nil {
		transport, err := newOAuth2Transport(cfg.OAuth2)
		if err != nil {
			return nil, err
		}
		opts = append(opts, httpclient.WithTransport(transport))
	}

	var apiOpts []APIOption
	if cfg.ItemsPath != "" {
		apiOpts = append(apiOpts, WithItemsPath(cfg.ItemsPath))
	}

	return NewAPIConnector(httpclient.NewDefaultClient(timeout, opts...), cfg.Endpoint, cfg.ItemEndpoint, apiOpts...), nil
}

// newOAuth2Transport authorizes requests with tokens from the client
// credentials grant. Tokens are cached and refreshed before expiry.
func newOAuth2Transport(cfg *config.OAuth2Config) (http.RoundTripper, error) {
	secret, err := cfg.GetClientSecret()
	if err != nil {
		return nil, err
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: secret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	return &oauth2.Transport{
		Source: cc.TokenSource(context.Background()),
		Base:   http.DefaultTransport,
	}, nil
}
