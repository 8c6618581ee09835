package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/controller"
)

// commandSource marks commands that came in over the REST API.
const commandSource = "api"

// levelRequest is the body of the dim and colour temperature routes.
type levelRequest struct {
	Level *float64 `json:"level"`
}

func (s *Server) handleEntityOn(w http.ResponseWriter, r *http.Request) {
	s.runCommand(w, r, controller.CommandOn, nil)
}

func (s *Server) handleEntityOff(w http.ResponseWriter, r *http.Request) {
	s.runCommand(w, r, controller.CommandOff, nil)
}

func (s *Server) handleEntityDim(w http.ResponseWriter, r *http.Request) {
	s.runLevelCommand(w, r, controller.CommandDim)
}

func (s *Server) handleEntityColorTemperature(w http.ResponseWriter, r *http.Request) {
	s.runLevelCommand(w, r, controller.CommandColorTemperature)
}

// handleRunScene runs a scene. Scenes are only known when show_scenes is set.
func (s *Server) handleRunScene(w http.ResponseWriter, r *http.Request) {
	s.runCommand(w, r, controller.CommandRun, nil)
}

func (s *Server) runLevelCommand(w http.ResponseWriter, r *http.Request, command string) {
	var req levelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Level == nil {
		writeBadRequest(w, "level is required")
		return
	}
	s.runCommand(w, r, command, map[string]any{"level": *req.Level})
}

// runCommand sends one command to the controller of the {id} entity.
func (s *Server) runCommand(w http.ResponseWriter, r *http.Request, command string, params map[string]any) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "entity id must be a number")
		return
	}

	requestID, _ := r.Context().Value(ctxKeyRequestID).(string) //nolint:errcheck // empty id is fine
	cmd := controller.CommandMessage{
		ID:         requestID,
		Command:    command,
		Parameters: params,
		Source:     commandSource,
	}

	if err = s.bridge.Command(r.Context(), id, cmd); err != nil {
		status, code, message, expected := commandFailure(err)
		if !expected {
			s.logger.Error("entity command failed", "entity_id", id, "command", command, "error", err)
		}
		writeError(w, status, code, message)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"entity_id": id,
		"command":   command,
		"status":    "accepted",
	})
}
