package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/agentstation/reconify/internal/server/response"
	"github.com/agentstation/reconify/pkg/recon"
)

// createPanelRequest is the body of POST /panels.
type createPanelRequest struct {
	Name         string   `json:"name"`
	PanelHeaders []string `json:"panel_headers"`
}

// setMappingRequest is the body of POST /panels/{name}/mapping.
type setMappingRequest struct {
	SOTType    string `json:"sot_type"`
	SOTField   string `json:"sot_field"`
	PanelField string `json:"panel_field"`
}

// HandleListPanels serves GET /panels.
func (h *Handlers) HandleListPanels(w http.ResponseWriter, r *http.Request) {
	panels, err := h.client.Panels(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, panels)
}

// HandleCreatePanel serves POST /panels.
func (h *Handlers) HandleCreatePanel(w http.ResponseWriter, r *http.Request) {
	var req createPanelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body", err.Error())
		return
	}
	cfg, err := h.client.CreatePanel(r.Context(), req.Name, req.PanelHeaders)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, cfg)
}

// HandleGetPanel serves GET /panels/{name}.
func (h *Handlers) HandleGetPanel(w http.ResponseWriter, r *http.Request, name string) {
	cfg, err := h.client.Panel(r.Context(), name)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, cfg)
}

// HandleDeletePanel serves DELETE /panels/{name}.
func (h *Handlers) HandleDeletePanel(w http.ResponseWriter, r *http.Request, name string) {
	if err := h.client.DeletePanel(r.Context(), name); err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, map[string]string{"deleted": name})
}

// HandleGetPanelHeaders serves GET /panels/{name}/headers.
func (h *Handlers) HandleGetPanelHeaders(w http.ResponseWriter, r *http.Request, name string) {
	headers, err := h.client.PanelHeaders(r.Context(), name)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, headers)
}

// HandleSetMapping serves POST /panels/{name}/mapping.
func (h *Handlers) HandleSetMapping(w http.ResponseWriter, r *http.Request, name string) {
	var req setMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body", err.Error())
		return
	}
	cfg, err := h.client.SetMapping(r.Context(), name, recon.SOTType(req.SOTType), req.SOTField, req.PanelField)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, cfg)
}

// HandleClearMapping serves DELETE /panels/{name}/mapping/{sot}.
func (h *Handlers) HandleClearMapping(w http.ResponseWriter, r *http.Request, name, sot string) {
	cfg, err := h.client.ClearMapping(r.Context(), name, recon.SOTType(sot))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, cfg)
}
