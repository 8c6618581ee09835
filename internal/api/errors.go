package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/controller"
	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/hub"
	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/platform"
)

// Error is the body of every non-2xx response.
type Error struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// Error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"
	ErrCodeUnavailable  = "unavailable"
	ErrCodeHub          = "hub_error"
)

// writeJSON writes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // client may be gone
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes an Error body. The request id is taken from the
// response header set by requestIDMiddleware.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: w.Header().Get(requestIDHeader),
	})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// commandFailure maps an error from Bridge.Command to a response. ok is
// false for errors that are not the caller's fault and should be logged.
func commandFailure(err error) (status int, code, message string, ok bool) {
	switch {
	case platform.IsNotFound(err):
		return http.StatusNotFound, ErrCodeNotFound, "entity not found", true
	case errors.Is(err, controller.ErrInvalidParameters), errors.Is(err, controller.ErrInvalidCommand):
		return http.StatusUnprocessableEntity, ErrCodeValidation, err.Error(), true
	case errors.Is(err, hub.ErrNotLoggedIn):
		return http.StatusServiceUnavailable, ErrCodeUnavailable, "hub session not established", true
	default:
		return http.StatusBadGateway, ErrCodeHub, "hub command failed", false
	}
}
