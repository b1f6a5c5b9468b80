package httpclient_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagedesk/inventory-sync/internal/httpclient"
)

func newTestServer(handler http.Handler) *httptest.Server {
	server := httptest.NewServer(handler)
	server.Config.SetKeepAlivesEnabled(false)
	return server
}

func TestGetSendsHeaders(t *testing.T) {
	t.Parallel()

	var received http.Header
	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received = r.Header.Clone()
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := httpclient.NewDefaultClient(5*time.Second, httpclient.WithHeader("Authorization", "Bearer s3cret"))
	body, err := client.Get(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), body)
	assert.Equal(t, httpclient.UserAgent, received.Get("User-Agent"))
	assert.Equal(t, "application/json", received.Get("Accept"))
	assert.Equal(t, "Bearer s3cret", received.Get("Authorization"))
}

func TestGetStatusErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
	}{
		{name: "unauthorized", status: http.StatusUnauthorized},
		{name: "forbidden", status: http.StatusForbidden},
		{name: "not found", status: http.StatusNotFound},
		{name: "bad gateway", status: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			_, err := httpclient.NewDefaultClient(5*time.Second).Get(context.Background(), server.URL)

			require.Error(t, err)
			assert.Equal(t, tt.status, httpclient.StatusCode(err))
			assert.Contains(t, err.Error(), fmt.Sprintf("HTTP %d", tt.status))
		})
	}
}

func TestGetTransportErrors(t *testing.T) {
	t.Parallel()

	client := httpclient.NewDefaultClient(time.Second)

	_, err := client.Get(context.Background(), "://bad")
	require.ErrorContains(t, err, "failed to create request")

	_, err = client.Get(context.Background(), "http://127.0.0.1:1")
	require.ErrorContains(t, err, "failed to execute request")
	assert.Zero(t, httpclient.StatusCode(err))
}

func TestGetHonoursContext(t *testing.T) {
	t.Parallel()

	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := httpclient.NewDefaultClient(30*time.Second).Get(ctx, server.URL)
	require.Error(t, err)
}

func TestGetRejectsOversizedBody(t *testing.T) {
	t.Parallel()

	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", httpclient.MaxResponseSize+1))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := httpclient.NewDefaultClient(5*time.Second).Get(context.Background(), server.URL)
	require.ErrorContains(t, err, "exceeds maximum")
}

func TestHTTPErrorMessage(t *testing.T) {
	t.Parallel()

	err := httpclient.NewHTTPError(503, "http://supplier.test/feed", "503 Service Unavailable")
	assert.Equal(t, "HTTP 503 for URL http://supplier.test/feed: 503 Service Unavailable", err.Error())
	assert.Equal(t, 503, httpclient.StatusCode(fmt.Errorf("wrapped: %w", err)))
}
