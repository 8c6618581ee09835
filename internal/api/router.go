package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/metrics", s.handleMetrics)
			if s.prometheus != nil {
				r.Method(http.MethodGet, "/metrics/prometheus", s.prometheus)
			}
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			r.Route("/accessories", func(r chi.Router) {
				r.Get("/", s.handleListAccessories)
				r.Get("/{uuid}", s.handleGetAccessory)
				r.Delete("/{uuid}", s.handleDeleteAccessory)
			})

			r.Route("/entities/{id}", func(r chi.Router) {
				r.Post("/on", s.handleEntityOn)
				r.Post("/off", s.handleEntityOff)
				r.Put("/dim", s.handleEntityDim)
				r.Put("/color-temperature", s.handleEntityColorTemperature)
			})

			r.Post("/scenes/{id}/run", s.handleRunScene)

			r.Route("/sync", func(r chi.Router) {
				r.Post("/", s.handleTriggerSync)
				r.Get("/last", s.handleLastSync)
				r.Get("/history", s.handleSyncHistory)
			})
		})

		// WebSocket (auth via ticket, validated in handler)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"version": s.version,
		"syncing": s.bridge.Syncing(),
	}
	if last, ok := s.bridge.LastCycle(); ok {
		resp["last_sync"] = last.StartedAt
		resp["last_sync_ok"] = last.Error == ""
	}
	writeJSON(w, http.StatusOK, resp)
}
