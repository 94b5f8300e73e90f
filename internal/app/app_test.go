package app

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macropulse/internal/config"
	v1 "macropulse/pkg/contracts/api/v1"
)

func newTestApp(t *testing.T) *Application {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Logging.Level = "error"

	a, err := New(cfg)
	require.NoError(t, err)
	return a
}

func TestApplication_HealthRoute(t *testing.T) {
	a := newTestApp(t)
	server := httptest.NewServer(a.Handler())
	t.Cleanup(server.Close)

	resp, err := server.Client().Get(server.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var health v1.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
}

func TestApplication_CatalogRoute(t *testing.T) {
	a := newTestApp(t)
	server := httptest.NewServer(a.Handler())
	t.Cleanup(server.Close)

	resp, err := server.Client().Get(server.URL + "/api/series")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var catalog v1.CatalogResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&catalog))
	require.NotEmpty(t, catalog.Series)
	assert.Equal(t, "FEDFUNDS", catalog.Series[0].SourceID)
}

func TestApplication_MetricsRoute(t *testing.T) {
	a := newTestApp(t)
	server := httptest.NewServer(a.Handler())
	t.Cleanup(server.Close)

	resp, err := server.Client().Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}

func TestApplication_RequestIDHeader(t *testing.T) {
	a := newTestApp(t)
	server := httptest.NewServer(a.Handler())
	t.Cleanup(server.Close)

	resp, err := server.Client().Get(server.URL + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
