package handlers

import (
	"context"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/moto-fleet/internal/models"
)

// SessionService opens and locks console sessions.
type SessionService interface {
	OpenSession(ctx context.Context, req models.SessionRequest) (*models.SessionResponse, error)
	Lock(ctx context.Context) error
}

// FleetRegistry looks up registered tenants.
type FleetRegistry interface {
	Get(ctx context.Context, id string) (models.FleetInfo, error)
}

// SessionHandler handles mode switching requests
type SessionHandler struct {
	sessions SessionService
	fleets   FleetRegistry
}

// NewSessionHandler creates a new session handler. Sessions naming a fleet
// are only opened for fleets in the registry.
func NewSessionHandler(sessions SessionService, fleets FleetRegistry) *SessionHandler {
	return &SessionHandler{sessions: sessions, fleets: fleets}
}

// Open switches the console into a mode and returns a session token
func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req models.SessionRequest
	if !readJSON(w, r, &req) {
		return
	}

	if !models.IsValidMode(req.Mode) {
		http.Error(w, "Invalid mode", http.StatusBadRequest)
		return
	}

	if req.FleetID != "" {
		if _, err := h.fleets.Get(r.Context(), req.FleetID); err != nil {
			writeError(w, err)
			return
		}
	}

	resp, err := h.sessions.OpenSession(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	log.WithFields(log.Fields{"mode": resp.Mode, "fleet": resp.FleetID}).Info("Session opened")
	writeJSON(w, http.StatusOK, resp)
}

// Close locks admin mode again
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Lock(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
