package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/agentstation/reconify/internal/server/response"
)

type reconcileRequest struct {
	PerformedBy string `json:"performed_by"`
}

// HandleUploadPanelDocument serves POST /panels/{name}/upload.
func (h *Handlers) HandleUploadPanelDocument(w http.ResponseWriter, r *http.Request, panel string) {
	u, err := readUpload(r)
	if err != nil {
		response.BadRequest(w, "invalid upload", err.Error())
		return
	}
	rec, err := h.client.UploadPanelDocument(r.Context(), panel, u.FileName, u.UploadedBy, u.Data)
	if err != nil {
		// A parse failure still produces an upload record; return it
		// alongside the error so callers can surface both.
		if rec != nil {
			response.JSON(w, http.StatusBadRequest, response.Response{
				Data:  rec,
				Error: &response.Error{Code: "BAD_REQUEST", Message: err.Error()},
			})
			return
		}
		response.FromError(w, err)
		return
	}
	response.OK(w, rec)
}

// HandleCategorize serves POST /panels/{name}/categorize.
func (h *Handlers) HandleCategorize(w http.ResponseWriter, r *http.Request, panel string) {
	state, err := h.client.Categorize(r.Context(), panel)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, state)
}

// HandleReconcile serves POST /panels/{name}/reconcile.
func (h *Handlers) HandleReconcile(w http.ResponseWriter, r *http.Request, panel string) {
	var req reconcileRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid request body", err.Error())
			return
		}
	}
	if req.PerformedBy == "" {
		req.PerformedBy = r.Header.Get("X-Uploaded-By")
	}
	run, err := h.client.Reconcile(r.Context(), panel, req.PerformedBy)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, run)
}

// HandleRecategorize serves POST /panels/{name}/recategorize.
func (h *Handlers) HandleRecategorize(w http.ResponseWriter, r *http.Request, panel string) {
	u, err := readUpload(r)
	if err != nil {
		response.BadRequest(w, "invalid upload", err.Error())
		return
	}
	res, err := h.client.Recategorize(r.Context(), panel, u.FileName, u.UploadedBy, u.Data)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, res)
}

// HandleComplete serves POST /panels/{name}/complete.
func (h *Handlers) HandleComplete(w http.ResponseWriter, r *http.Request, panel string) {
	run, err := h.client.Complete(r.Context(), panel)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, run)
}

// HandlePanelState serves GET /panels/{name}/state.
func (h *Handlers) HandlePanelState(w http.ResponseWriter, r *http.Request, panel string) {
	state, err := h.client.PanelState(r.Context(), panel)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, state)
}

// HandleRunHistory serves GET /panels/{name}/runs.
func (h *Handlers) HandleRunHistory(w http.ResponseWriter, r *http.Request, panel string) {
	rs, err := h.client.RunHistory(r.Context(), panel)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, rs)
}
