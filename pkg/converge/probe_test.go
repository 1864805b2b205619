package converge

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPProber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/.instance-id/abc123" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	p := NewHTTPProber()
	ours, err := p.IsOurs(context.Background(), host, port, "abc123")
	require.NoError(t, err)
	assert.True(t, ours)

	ours, err = p.IsOurs(context.Background(), host, port, "someone-else")
	require.NoError(t, err)
	assert.False(t, ours)
}

func TestProbeURL(t *testing.T) {
	assert.Equal(t, "http://app.example.com:8080/.instance-id/abc", ProbeURL("app.example.com", 8080, "abc"))
}

func TestHostsOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts")
	require.NoError(t, os.WriteFile(path, []byte("127.0.0.1 localhost\n203.0.113.5\tapp.example.com\n"), 0o644))

	ok, err := hostsOverride(path, "203.0.113.5", "app.example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hostsOverride(path, "203.0.113.5", "app.example.co")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = hostsOverride(path, "203.0.113.50", "app.example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = hostsOverride(filepath.Join(t.TempDir(), "missing"), "203.0.113.5", "app.example.com")
	assert.Error(t, err)
}
