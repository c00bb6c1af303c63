package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/moto-fleet/internal/auth"
	"github.com/ukydev/moto-fleet/internal/config"
	"github.com/ukydev/moto-fleet/internal/db"
	"github.com/ukydev/moto-fleet/internal/models"
)

func newAuthService(t *testing.T) *auth.Service {
	t.Helper()
	authService, err := auth.NewService(&config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour}, db.NewMemoryStore(0))
	require.NoError(t, err)
	return authService
}

func tokenFor(t *testing.T, authService *auth.Service, mode models.Mode, fleetID string) string {
	t.Helper()
	resp, err := authService.OpenSession(context.Background(), models.SessionRequest{
		Mode: mode, FleetID: fleetID, Passcode: config.DefaultAdminPasscode,
	})
	require.NoError(t, err)
	return resp.Token
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	authService := newAuthService(t)
	middleware := NewAuthMiddleware(authService)

	// Test successful authentication
	t.Run("valid token", func(t *testing.T) {
		token := tokenFor(t, authService, models.ModeDriver, "main")

		req := httptest.NewRequest("GET", "/api/fleets/main/payments", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
			claims, ok := GetSessionFromContext(r.Context())
			assert.True(t, ok)
			assert.Equal(t, models.ModeDriver, claims.Mode)
			assert.Equal(t, "main", claims.FleetID)
		})

		middleware.Authenticate(handler).ServeHTTP(w, req)
		assert.True(t, handlerCalled)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	// Test missing authorization header
	t.Run("missing authorization header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/fleets", nil)
		w := httptest.NewRecorder()

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
		})

		middleware.Authenticate(handler).ServeHTTP(w, req)
		assert.False(t, handlerCalled)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	// Test invalid token
	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/fleets", nil)
		req.Header.Set("Authorization", "Bearer invalid-token")
		w := httptest.NewRecorder()

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
		})

		middleware.Authenticate(handler).ServeHTTP(w, req)
		assert.False(t, handlerCalled)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid token")
	})

	// Test admin token after locking
	t.Run("locked admin", func(t *testing.T) {
		token := tokenFor(t, authService, models.ModeAdmin, "main")
		require.NoError(t, authService.Lock(context.Background()))

		req := httptest.NewRequest("GET", "/api/fleets", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		middleware.Authenticate(http.NotFoundHandler()).ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "locked")
	})

	// Test non-bearer header
	t.Run("non-bearer header", func(t *testing.T) {
		token := tokenFor(t, authService, models.ModeDriver, "main")
		req := httptest.NewRequest("GET", "/api/fleets", nil)
		req.Header.Set("Authorization", "Token "+token)
		w := httptest.NewRecorder()

		middleware.Authenticate(http.NotFoundHandler()).ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Bearer token required")
	})

	// Test skip auth paths
	t.Run("skip auth path", func(t *testing.T) {
		tests := []struct {
			method string
			path   string
			skip   bool
		}{
			{"POST", "/api/session", true},
			{"GET", "/health", true},
			{"DELETE", "/api/session", false},
			{"GET", "/api/sessions", false},
			{"GET", "/healthz", false},
		}
		for _, tt := range tests {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()

			handlerCalled := false
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
			})

			middleware.Authenticate(handler).ServeHTTP(w, req)
			assert.Equal(t, tt.skip, handlerCalled, tt.method+" "+tt.path)
			if !tt.skip {
				assert.Equal(t, http.StatusUnauthorized, w.Code, tt.method+" "+tt.path)
			}
		}
	})
}

func TestAuthMiddleware_RequireView(t *testing.T) {
	authService := newAuthService(t)
	middleware := NewAuthMiddleware(authService)

	tests := []struct {
		name     string
		mode     models.Mode
		view     models.View
		expected int
	}{
		{"admin opens settings", models.ModeAdmin, models.ViewSettings, http.StatusOK},
		{"driver opens payments", models.ModeDriver, models.ViewPayments, http.StatusOK},
		{"driver blocked from drivers", models.ModeDriver, models.ViewDrivers, http.StatusForbidden},
		{"mechanic opens maintenance", models.ModeMechanic, models.ViewMaintenance, http.StatusOK},
		{"mechanic blocked from payments", models.ModeMechanic, models.ViewPayments, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/fleets/main/x", nil)
			req.Header.Set("Authorization", "Bearer "+tokenFor(t, authService, tt.mode, "main"))
			w := httptest.NewRecorder()

			handlerCalled := false
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
			})

			middleware.Authenticate(middleware.RequireView(tt.view)(handler)).ServeHTTP(w, req)
			assert.Equal(t, tt.expected, w.Code)
			assert.Equal(t, tt.expected == http.StatusOK, handlerCalled)
		})
	}

	t.Run("no session in context", func(t *testing.T) {
		w := httptest.NewRecorder()
		middleware.RequireView(models.ViewFleet)(http.NotFoundHandler()).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthMiddleware_RequireFleet(t *testing.T) {
	authService := newAuthService(t)
	middleware := NewAuthMiddleware(authService)

	r := chi.NewRouter()
	r.Use(middleware.Authenticate)
	r.With(middleware.RequireFleet).Get("/api/fleets/{fleetID}/bikes", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name     string
		mode     models.Mode
		fleet    string
		expected int
	}{
		{"mechanic in own fleet", models.ModeMechanic, "main", http.StatusNoContent},
		{"mechanic in other fleet", models.ModeMechanic, "south", http.StatusForbidden},
		{"admin in other fleet", models.ModeAdmin, "south", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/fleets/"+tt.fleet+"/bikes", nil)
			req.Header.Set("Authorization", "Bearer "+tokenFor(t, authService, tt.mode, "main"))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.expected, w.Code)
		})
	}

	t.Run("driver token without fleet", func(t *testing.T) {
		token, err := authService.GenerateToken(models.Claims{Mode: models.ModeDriver})
		require.NoError(t, err)
		for _, fleet := range []string{"main", "south"} {
			req := httptest.NewRequest("GET", "/api/fleets/"+fleet+"/bikes", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusForbidden, w.Code, fleet)
		}
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	middleware := NewRateLimitMiddleware()

	t.Run("rate limit not exceeded", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/session", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		w := httptest.NewRecorder()

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
		})

		rateLimitHandler := middleware.RateLimit(5, time.Minute)(handler)
		rateLimitHandler.ServeHTTP(w, req)
		assert.True(t, handlerCalled)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rate limit exceeded", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/session", nil)
		req.RemoteAddr = "192.168.1.2:12345"
		w := httptest.NewRecorder()

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
		})

		rateLimitHandler := middleware.RateLimit(1, time.Minute)(handler)

		// First request should succeed
		rateLimitHandler.ServeHTTP(w, req)
		assert.True(t, handlerCalled)
		assert.Equal(t, http.StatusOK, w.Code)

		// Second request should be rate limited
		w = httptest.NewRecorder()
		handlerCalled = false
		rateLimitHandler.ServeHTTP(w, req)
		assert.False(t, handlerCalled)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})

	t.Run("forwarded address", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/session", nil)
		req.Header.Set("X-Forwarded-For", "10.0.0.9, 172.16.0.1")
		assert.Equal(t, "10.0.0.9", getClientIP(req))
	})
}

func TestGetSessionFromContext(t *testing.T) {
	claims := &models.Claims{
		Mode:    models.ModeMechanic,
		FleetID: "main",
	}

	ctx := context.WithValue(context.Background(), SessionContextKey, claims)

	retrievedClaims, ok := GetSessionFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, claims.Mode, retrievedClaims.Mode)
	assert.Equal(t, claims.FleetID, retrievedClaims.FleetID)

	// Test with no session in context
	emptyCtx := context.Background()
	_, ok = GetSessionFromContext(emptyCtx)
	assert.False(t, ok)
}
