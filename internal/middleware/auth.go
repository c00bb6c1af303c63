package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ukydev/moto-fleet/internal/auth"
	"github.com/ukydev/moto-fleet/internal/models"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	SessionContextKey contextKey = "session"
)

// FleetParam is the route parameter naming the tenant.
const FleetParam = "fleetID"

// SessionValidator turns a bearer token into session claims and reports
// whether admin mode is still unlocked.
type SessionValidator interface {
	ExtractTokenFromHeader(authHeader string) (string, error)
	ValidateToken(tokenString string) (*models.Claims, error)
	AdminUnlocked(ctx context.Context) (bool, error)
}

// AuthMiddleware provides JWT authentication middleware
type AuthMiddleware struct {
	authService SessionValidator
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(authService SessionValidator) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
	}
}

// Authenticate validates JWT tokens and adds the session to the context
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip authentication for certain endpoints
		if shouldSkipAuth(r) {
			next.ServeHTTP(w, r)
			return
		}

		// Extract token from Authorization header
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		token, err := m.authService.ExtractTokenFromHeader(authHeader)
		if err != nil {
			http.Error(w, "Bearer token required", http.StatusUnauthorized)
			return
		}

		// Validate token
		claims, err := m.authService.ValidateToken(token)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				http.Error(w, "Session expired", http.StatusUnauthorized)
				return
			}
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		// Admin tokens stop working once the console is locked
		if claims.Mode == models.ModeAdmin {
			unlocked, err := m.authService.AdminUnlocked(r.Context())
			if err != nil {
				http.Error(w, "Failed to read admin state", http.StatusInternalServerError)
				return
			}
			if !unlocked {
				http.Error(w, "Admin mode is locked", http.StatusUnauthorized)
				return
			}
		}

		ctx := context.WithValue(r.Context(), SessionContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireView checks that the session's mode may open the view
func (m *AuthMiddleware) RequireView(view models.View) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetSessionFromContext(r.Context())
			if !ok {
				http.Error(w, "Session not found", http.StatusUnauthorized)
				return
			}

			if !claims.Mode.CanView(view) {
				http.Error(w, "Insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireFleet keeps driver and mechanic sessions inside the fleet they were
// opened for. Admin sessions may switch fleets. A non-admin session without a
// fleet reaches none.
func (m *AuthMiddleware) RequireFleet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := GetSessionFromContext(r.Context())
		if !ok {
			http.Error(w, "Session not found", http.StatusUnauthorized)
			return
		}

		fleetID := chi.URLParam(r, FleetParam)
		if claims.Mode != models.ModeAdmin && claims.FleetID != fleetID {
			http.Error(w, "Session is bound to another fleet", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GetSessionFromContext extracts session claims from request context
func GetSessionFromContext(ctx context.Context) (*models.Claims, bool) {
	claims, ok := ctx.Value(SessionContextKey).(*models.Claims)
	return claims, ok
}

// shouldSkipAuth determines if authentication should be skipped for a request.
// Only opening a session and the health check are public.
func shouldSkipAuth(r *http.Request) bool {
	switch r.URL.Path {
	case "/api/session":
		return r.Method == http.MethodPost
	case "/health":
		return true
	}
	return false
}

// RateLimitMiddleware provides basic rate limiting
type RateLimitMiddleware struct {
	requests map[string][]int64 // IP -> timestamps
	mu       sync.RWMutex       // Mutex for thread-safe access
}

// NewRateLimitMiddleware creates a new rate limiting middleware
func NewRateLimitMiddleware() *RateLimitMiddleware {
	return &RateLimitMiddleware{
		requests: make(map[string][]int64),
	}
}

// RateLimit applies rate limiting based on IP address. It guards the passcode
// prompt against guessing.
func (m *RateLimitMiddleware) RateLimit(maxRequests int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := getClientIP(r)

			now := time.Now().UnixNano()
			windowStart := now - window.Nanoseconds()

			m.mu.Lock()

			if timestamps, exists := m.requests[clientIP]; exists {
				var validTimestamps []int64
				for _, ts := range timestamps {
					if ts >= windowStart {
						validTimestamps = append(validTimestamps, ts)
					}
				}
				m.requests[clientIP] = validTimestamps
			}

			if len(m.requests[clientIP]) >= maxRequests {
				m.mu.Unlock()
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			m.requests[clientIP] = append(m.requests[clientIP], now)
			m.mu.Unlock()

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	// Check for forwarded headers first
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	// Fall back to remote address
	ip := r.RemoteAddr
	if colonIndex := strings.LastIndex(ip, ":"); colonIndex != -1 {
		ip = ip[:colonIndex]
	}
	return ip
}
