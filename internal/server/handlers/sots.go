package handlers

import (
	"net/http"

	"github.com/agentstation/reconify/internal/server/response"
	"github.com/agentstation/reconify/pkg/errors"
	"github.com/agentstation/reconify/pkg/recon"
)

// sotSummary is the list entry for GET /sots.
type sotSummary struct {
	Type     string `json:"type"`
	Version  int64  `json:"version,omitempty"`
	RowCount int    `json:"row_count"`
}

// HandleListSOTs serves GET /sots.
func (h *Handlers) HandleListSOTs(w http.ResponseWriter, r *http.Request) {
	types, err := h.client.SOTs(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}
	out := make([]sotSummary, 0, len(types))
	for _, t := range types {
		count, err := h.client.SOTRowCount(r.Context(), t)
		if err != nil {
			response.FromError(w, err)
			return
		}
		out = append(out, sotSummary{Type: t.String(), RowCount: count})
	}
	response.OK(w, out)
}

// HandleUploadSOT serves POST /sots/{type}/upload.
func (h *Handlers) HandleUploadSOT(w http.ResponseWriter, r *http.Request, sotType string) {
	u, err := readUpload(r)
	if err != nil {
		response.BadRequest(w, "invalid upload", err.Error())
		return
	}
	snap, err := h.client.UploadSOT(r.Context(), recon.SOTType(sotType), u.FileName, u.UploadedBy, u.Data)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, sotSummary{Type: snap.Type.String(), Version: snap.Version, RowCount: snap.RowCount()})
}

// HandleGetSOTFields serves GET /sots/{type}/fields. A SOT that has never
// been uploaded yields an empty list rather than an error; the mapping UI
// probes fields before the first upload.
func (h *Handlers) HandleGetSOTFields(w http.ResponseWriter, r *http.Request, sotType string) {
	fields, err := h.client.SOTFields(r.Context(), recon.SOTType(sotType))
	if err != nil {
		if errors.IsNotFound(err) {
			response.OK(w, []string{})
			return
		}
		response.FromError(w, err)
		return
	}
	response.OK(w, fields)
}

// HandleGetSOTRowCount serves GET /sots/{type}/rows.
func (h *Handlers) HandleGetSOTRowCount(w http.ResponseWriter, r *http.Request, sotType string) {
	count, err := h.client.SOTRowCount(r.Context(), recon.SOTType(sotType))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, map[string]int{"row_count": count})
}
