package connector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagedesk/inventory-sync/internal/config"
	"github.com/voyagedesk/inventory-sync/internal/httpclient"
	"github.com/voyagedesk/inventory-sync/internal/inventory"
)

func newTestServer(handler http.Handler) *httptest.Server {
	server := httptest.NewServer(handler)
	server.Config.SetKeepAlivesEnabled(false)
	return server
}

func TestAPIConnectorFetch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		wantErr  error
		wantType string
	}{
		{name: "ok", status: http.StatusOK, body: `[{"id":"a","price":1,"availability":1}]`},
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: ErrAuthFailed, wantType: inventory.ErrorTypeAuthFailed},
		{name: "forbidden", status: http.StatusForbidden, wantErr: ErrAuthFailed, wantType: inventory.ErrorTypeAuthFailed},
		{name: "server error", status: http.StatusBadGateway, wantErr: ErrUnreachable, wantType: inventory.ErrorTypeUnreachable},
		{name: "throttled", status: http.StatusTooManyRequests, wantErr: ErrUnreachable, wantType: inventory.ErrorTypeUnreachable},
		{name: "garbage", status: http.StatusOK, body: `<html>`, wantErr: ErrMalformedSnapshot, wantType: inventory.ErrorTypeMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewAPIConnector(httpclient.NewDefaultClient(5*time.Second), server.URL, "")
			items, err := c.Fetch(context.Background(), "acme")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.wantType, Classify(err))
				return
			}
			require.NoError(t, err)
			require.Len(t, items, 1)
			assert.Equal(t, "a", items[0].ID)
		})
	}
}

func TestAPIConnectorUnreachableHost(t *testing.T) {
	t.Parallel()

	c := NewAPIConnector(httpclient.NewDefaultClient(time.Second), "http://127.0.0.1:1/feed", "")
	_, err := c.Fetch(context.Background(), "acme")
	require.ErrorIs(t, err, ErrUnreachable)
	assert.False(t, IsPermanent(err))
}

func TestAPIConnectorHonoursCancellation(t *testing.T) {
	t.Parallel()

	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewAPIConnector(httpclient.NewDefaultClient(30*time.Second), server.URL, "")
	_, err := c.Fetch(ctx, "acme")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, inventory.ErrorTypeFetchTimeout, Classify(err))
}

func TestAPIConnectorFetchItem(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/items/room-1", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"room-1","price":99,"availability":2}`))
	})
	mux.HandleFunc("/items/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	server := newTestServer(mux)
	defer server.Close()

	c := NewAPIConnector(httpclient.NewDefaultClient(5*time.Second), server.URL+"/all", server.URL+"/items/{itemId}")

	item, err := c.FetchItem(context.Background(), "acme", "room-1")
	require.NoError(t, err)
	assert.Equal(t, 99.0, item.Fields["price"])

	_, err = c.FetchItem(context.Background(), "acme", "room-2")
	require.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestFileConnector(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "acme.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"a","price":1,"availability":1},{"id":"b","price":2,"availability":0}]`), 0600))

	c := NewFileConnector(path, config.SnapshotFormatJSON)
	items, err := c.Fetch(context.Background(), "acme")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	item, err := c.FetchItem(context.Background(), "acme", "b")
	require.NoError(t, err)
	assert.Equal(t, 2.0, item.Fields["price"])

	_, err = c.FetchItem(context.Background(), "acme", "zzz")
	require.ErrorIs(t, err, inventory.ErrNotFound)

	missing := NewFileConnector(filepath.Join(dir, "none.json"), config.SnapshotFormatJSON)
	_, err = missing.Fetch(context.Background(), "acme")
	require.ErrorIs(t, err, ErrUnreachable)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Fetch(ctx, "acme")
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, IsPermanent(err))
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err       error
		want      string
		permanent bool
	}{
		{err: fmt.Errorf("x: %w", ErrAuthFailed), want: inventory.ErrorTypeAuthFailed, permanent: true},
		{err: fmt.Errorf("x: %w", ErrMalformedSnapshot), want: inventory.ErrorTypeMalformed, permanent: true},
		{err: fmt.Errorf("x: %w", ErrUnreachable), want: inventory.ErrorTypeUnreachable},
		{err: fmt.Errorf("x: %w", context.DeadlineExceeded), want: inventory.ErrorTypeFetchTimeout},
		{err: errors.New("boom"), want: inventory.ErrorTypeFetchFailed},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Classify(tt.err))
			assert.Equal(t, tt.permanent, IsPermanent(tt.err))
		})
	}
}

func TestNewRegistryFromConfig(t *testing.T) {
	t.Parallel()

	registry, err := NewRegistryFromConfig([]config.SupplierConfig{
		{ID: "acme", Connector: config.ConnectorConfig{File: &config.FileConnectorConfig{Path: "acme.yaml"}}},
		{ID: "globex", Connector: config.ConnectorConfig{API: &config.APIConnectorConfig{Endpoint: "http://globex.test"}}},
	})
	require.NoError(t, err)

	c, err := registry.Connector("acme")
	require.NoError(t, err)
	assert.IsType(t, &FileConnector{}, c)

	c, err = registry.Connector("globex")
	require.NoError(t, err)
	assert.IsType(t, &APIConnector{}, c)

	_, err = registry.Connector("initech")
	require.ErrorIs(t, err, inventory.ErrNotFound)

	_, err = New(&config.ConnectorConfig{})
	require.ErrorContains(t, err, "unsupported connector type")
}

func TestAPIConnectorItemsPath(t *testing.T) {
	t.Parallel()

	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"meta":{"page":1},"data":{"rooms":[{"id":"r1","price":90,"availability":2},{"id":"r2","price":70,"availability":0}]}}`))
	}))
	defer server.Close()

	client := httpclient.NewDefaultClient(5 * time.Second)

	items, err := NewAPIConnector(client, server.URL, "", WithItemsPath("data.rooms")).Fetch(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "r1", items[0].ID)
	assert.Equal(t, "r2", items[1].ID)

	_, err = NewAPIConnector(client, server.URL, "", WithItemsPath("data.suites")).Fetch(context.Background(), "acme")
	require.ErrorIs(t, err, ErrMalformedSnapshot)
}

func writeSecret(t *testing.T, secret string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "client-secret")
	require.NoError(t, os.WriteFile(path, []byte(secret+"\n"), 0600))
	return path
}

func TestAPIConnectorOAuth2ClientCredentials(t *testing.T) {
	t.Parallel()

	tokenServer := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		id, secret, ok := r.BasicAuth()
		if !ok || id != "inventory-sync" || secret != "s3cr3t" || r.Form.Get("grant_type") != "client_credentials" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-123","token_type":"bearer","expires_in":3600}`))
	}))
	defer tokenServer.Close()

	apiServer := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[{"id":"a","price":1,"availability":1}]`))
	}))
	defer apiServer.Close()

	newConnector := func(secret string) Connector {
		c, err := New(&config.ConnectorConfig{API: &config.APIConnectorConfig{
			Endpoint: apiServer.URL,
			OAuth2: &config.OAuth2Config{
				TokenURL:         tokenServer.URL,
				ClientID:         "inventory-sync",
				ClientSecretFile: writeSecret(t, secret),
			},
		}})
		require.NoError(t, err)
		return c
	}

	items, err := newConnector("s3cr3t").Fetch(context.Background(), "acme")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = newConnector("wrong").Fetch(context.Background(), "acme")
	require.ErrorIs(t, err, ErrAuthFailed)
	assert.Equal(t, inventory.ErrorTypeAuthFailed, Classify(err))
}

func TestNewAPIConnectorMissingClientSecret(t *testing.T) {
	t.Parallel()

	_, err := New(&config.ConnectorConfig{API: &config.APIConnectorConfig{
		Endpoint: "http://acme.test",
		OAuth2: &config.OAuth2Config{
			TokenURL:         "http://acme.test/token",
			ClientID:         "inventory-sync",
			ClientSecretFile: filepath.Join(t.TempDir(), "missing"),
		},
	}})
	require.ErrorContains(t, err, "oauth2 client secret")
}
