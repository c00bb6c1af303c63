package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/moto-fleet/internal/config"
	"github.com/ukydev/moto-fleet/internal/models"
	"github.com/ukydev/moto-fleet/internal/notify"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:              "0",
		StoreBackend:      config.BackendMemory,
		StorageQuotaBytes: 1 << 20,
		WeeklyTarget:      650,
		NotificationLimit: 100,
		AdminPasscode:     "9999",
		JWTSecret:         "test-secret",
		DefaultFleetID:    "main",
		DefaultFleetName:  "Main Fleet",
	}
}

func TestNewNotifier_WithoutBroker(t *testing.T) {
	n, cleanup, err := newNotifier(testConfig())
	require.NoError(t, err)
	defer cleanup()
	assert.IsType(t, notify.NopNotifier{}, n)
}

func TestNewServer_UnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.StoreBackend = "sqlite"

	_, _, err := newServer(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewServer_ServesDefaultFleet(t *testing.T) {
	srv, cleanup, err := newServer(context.Background(), testConfig())
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, ":0", srv.Addr)

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	body, _ := json.Marshal(models.SessionRequest{Mode: models.ModeAdmin, FleetID: "main", Passcode: "9999"})
	w = httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest("POST", "/api/session", bytes.NewBuffer(body)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var session models.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))

	req := httptest.NewRequest("GET", "/api/fleets", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	w = httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id":"main","name":"Main Fleet"}]`, w.Body.String())
}

func TestNewServer_RejectsDefaultPasscodeWhenOverridden(t *testing.T) {
	srv, cleanup, err := newServer(context.Background(), testConfig())
	require.NoError(t, err)
	defer cleanup()

	body, _ := json.Marshal(models.SessionRequest{Mode: models.ModeAdmin, FleetID: "main", Passcode: config.DefaultAdminPasscode})
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest("POST", "/api/session", bytes.NewBuffer(body)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
