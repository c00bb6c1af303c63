package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/moto-fleet/internal/auth"
	"github.com/ukydev/moto-fleet/internal/db"
	"github.com/ukydev/moto-fleet/internal/exchange"
	"github.com/ukydev/moto-fleet/internal/state"
	"github.com/ukydev/moto-fleet/internal/validators"
)

// maxBodyBytes bounds request bodies; backups are the largest payloads.
const maxBodyBytes = 10 << 20

// readJSON decodes the request body into v, writing a 400 on failure.
func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return false
	}
	defer r.Body.Close()

	if err := json.Unmarshal(body, v); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("Failed to write response")
	}
}

type validationResponse struct {
	Error  string                      `json:"error"`
	Fields validators.ValidationErrors `json:"fields"`
}

// writeError maps domain errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	var verrs validators.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusBadRequest, validationResponse{Error: "validation failed", Fields: verrs})
	case errors.Is(err, state.ErrNotFound), errors.Is(err, state.ErrUnknownFleet):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, state.ErrFleetExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, state.ErrInvalidInput), errors.Is(err, exchange.ErrSchemaMismatch), errors.Is(err, auth.ErrInvalidMode),
		errors.Is(err, auth.ErrFleetRequired):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, auth.ErrInvalidPasscode):
		http.Error(w, "Invalid passcode", http.StatusUnauthorized)
	case errors.Is(err, db.ErrQuotaExceeded):
		http.Error(w, "Storage is full", http.StatusInsufficientStorage)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "Request cancelled", http.StatusServiceUnavailable)
	default:
		log.WithError(err).Error("Request failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
