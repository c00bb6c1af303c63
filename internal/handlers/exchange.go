package handlers

import (
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/moto-fleet/internal/exchange"
)

// Export streams the fleet backup as a download
func (h *FleetHandler) Export(w http.ResponseWriter, r *http.Request) {
	f, ok := h.fleet(w, r)
	if !ok {
		return
	}
	now := f.Now()
	env := exchange.Export(f.Info(), f.Snapshot(), now)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exchange.FileName(f.Info(), now)+`"`)
	if err := exchange.Encode(w, env); err != nil {
		log.WithError(err).Error("Failed to write backup")
	}
}

// Import replaces every record of the fleet with an uploaded backup. The
// request must carry confirm=true since nothing of the current data survives.
func (h *FleetHandler) Import(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		http.Error(w, "Import overwrites all fleet data; repeat with confirm=true", http.StatusPreconditionRequired)
		return
	}
	f, ok := h.fleet(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	env, err := exchange.Decode(r.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := exchange.Import(r.Context(), f, env); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f.Snapshot())
}

type syncResponse struct {
	Added exchange.Counts `json:"added"`
	Total int             `json:"total"`
}

// Sync merges an uploaded backup into the fleet by record id
func (h *FleetHandler) Sync(w http.ResponseWriter, r *http.Request) {
	f, ok := h.fleet(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	env, err := exchange.Decode(r.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	counts, err := exchange.Sync(r.Context(), f, env)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, syncResponse{Added: counts, Total: counts.Total()})
}
