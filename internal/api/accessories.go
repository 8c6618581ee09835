package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/accessory"
	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/hub"
)

// handleListAccessories returns every persisted accessory ordered by
// entity id. ?capability= filters by capability.
func (s *Server) handleListAccessories(w http.ResponseWriter, r *http.Request) {
	records := s.bridge.Accessories()

	if c := r.URL.Query().Get("capability"); c != "" {
		filtered := make([]*accessory.Record, 0, len(records))
		for _, rec := range records {
			if rec.Context.Device.Capability == hub.Capability(c) {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"accessories": records,
		"count":       len(records),
	})
}

// handleGetAccessory returns one accessory by UUID.
func (s *Server) handleGetAccessory(w http.ResponseWriter, r *http.Request) {
	uuid := chi.URLParam(r, "uuid")
	rec, ok := s.bridge.Accessory(uuid)
	if !ok {
		writeNotFound(w, "accessory not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleDeleteAccessory unregisters an accessory from the host.
func (s *Server) handleDeleteAccessory(w http.ResponseWriter, r *http.Request) {
	uuid := chi.URLParam(r, "uuid")
	err := s.bridge.RemoveAccessory(r.Context(), uuid)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, accessory.ErrAccessoryNotFound):
		writeNotFound(w, "accessory not found")
	default:
		s.logger.Error("removing accessory", "uuid", uuid, "error", err)
		writeInternalError(w, "failed to remove accessory")
	}
}
