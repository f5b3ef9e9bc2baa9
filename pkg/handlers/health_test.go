package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/appforge-io/appforge-engine/pkg/config"
)

func TestHealthReturnsOK(t *testing.T) {
	h := NewHealthHandler(&config.Config{}, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestPingReportsVersionAndEnvironment(t *testing.T) {
	cfg := &config.Config{Version: "1.2.3", Env: "local"}
	h := NewHealthHandler(cfg, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	h.Ping(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response PingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, "1.2.3", response.Version)
	assert.Equal(t, "appforge-engine", response.Service)
	assert.Equal(t, "local", response.Environment)
}
