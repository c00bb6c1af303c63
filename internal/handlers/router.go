package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/moto-fleet/internal/middleware"
)

// Session attempts allowed per client inside sessionWindow.
const (
	sessionAttempts = 10
	sessionWindow   = time.Minute
)

// Router wires every API route.
type Router struct {
	Sessions  *SessionHandler
	Fleets    *FleetHandler
	Auth      *middleware.AuthMiddleware
	RateLimit *middleware.RateLimitMiddleware
}

// Handler builds the chi router.
func (rt Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(RequestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/health", Health)

	r.Route("/api", func(r chi.Router) {
		r.With(rt.RateLimit.RateLimit(sessionAttempts, sessionWindow)).Post("/session", rt.Sessions.Open)

		r.Group(func(r chi.Router) {
			r.Use(rt.Auth.Authenticate)
			r.Delete("/session", rt.Sessions.Close)
			rt.Fleets.Routes(r, rt.Auth)
		})
	})
	return r
}

// Health reports that the server is up
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RequestLogger logs one line per request through logrus.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.WithFields(log.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start).String(),
				"request_id": chimw.GetReqID(r.Context()),
			}).Info("Request handled")
		}()
		next.ServeHTTP(ww, r)
	})
}
