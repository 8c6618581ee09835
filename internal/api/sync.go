package api

import (
	"net/http"
	"strconv"
)

// History page bounds.
const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// handleTriggerSync queues a manual cycle. 409 means the request was
// merged into a cycle that is already queued.
func (s *Server) handleTriggerSync(w http.ResponseWriter, _ *http.Request) {
	if !s.bridge.TriggerSync() {
		writeError(w, http.StatusConflict, ErrCodeConflict, "a sync cycle is already queued")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "queued"})
}

// handleLastSync returns the result of the most recent cycle.
func (s *Server) handleLastSync(w http.ResponseWriter, _ *http.Request) {
	last, ok := s.bridge.LastCycle()
	if !ok {
		writeNotFound(w, "no sync cycle has run yet")
		return
	}
	writeJSON(w, http.StatusOK, last)
}

// handleSyncHistory returns past cycles, newest first.
func (s *Server) handleSyncHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	history, err := s.bridge.History(r.Context(), limit)
	if err != nil {
		s.logger.Error("reading sync history", "error", err)
		writeInternalError(w, "failed to read sync history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cycles": history,
		"count":  len(history),
	})
}
