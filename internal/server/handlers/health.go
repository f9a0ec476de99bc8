package handlers

import (
	"net/http"

	"github.com/agentstation/reconify/internal/server/response"
)

// HandleHealth serves GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{"status": "healthy"})
}

// HandleReady serves GET /ready. Readiness exercises the storage layer so a
// wedged database surfaces here rather than on the first real request.
func (h *Handlers) HandleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := h.client.Panels(r.Context()); err != nil {
		response.ServiceUnavailable(w, "storage not ready")
		return
	}
	response.OK(w, map[string]string{"status": "ready"})
}
