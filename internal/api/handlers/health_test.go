package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/queryshield/a2sproxy/internal/api/handlers"
	"github.com/queryshield/a2sproxy/internal/api/models"
	"github.com/queryshield/a2sproxy/internal/config"
	"github.com/queryshield/a2sproxy/internal/fleet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emptyManager(t *testing.T) *fleet.Manager {
	t.Helper()
	m, err := fleet.New(&config.FleetConfig{}, testLogger(), nil)
	require.NoError(t, err)
	return m
}

func TestHealth(t *testing.T) {
	h := handlers.New(emptyManager(t), testLogger())
	r := setupTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.StatusResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
}

func TestStats(t *testing.T) {
	h := handlers.New(emptyManager(t), testLogger())
	r := setupTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.ServerStatsResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Uptime)
	assert.Greater(t, resp.GoRoutines, 0)
}

func TestList_Empty(t *testing.T) {
	h := handlers.New(emptyManager(t), testLogger())
	r := setupTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/servers", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.ServerListResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Empty(t, resp.Servers)
}

func TestHistory_UnknownServer(t *testing.T) {
	h := handlers.New(emptyManager(t), testLogger())
	r := setupTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/servers/nope/history", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRefresh_UnknownServer(t *testing.T) {
	h := handlers.New(emptyManager(t), testLogger())
	r := setupTestRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/servers/nope/refresh", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
