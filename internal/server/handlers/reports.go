package handlers

import (
	"net/http"

	"github.com/agentstation/reconify/internal/server/response"
	"github.com/agentstation/reconify/pkg/ingest"
	"github.com/agentstation/reconify/pkg/recon"
)

// summaryDetail pairs a run with its full result set.
type summaryDetail struct {
	Run     *recon.ReconciliationRun `json:"run"`
	Results []*recon.UserMatchResult `json:"results"`
}

// HandleSummaries serves GET /reports/summaries.
func (h *Handlers) HandleSummaries(w http.ResponseWriter, r *http.Request) {
	rs, err := h.client.Summaries(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, rs)
}

// HandleSummaryDetail serves GET /reports/summaries/{reconID}.
func (h *Handlers) HandleSummaryDetail(w http.ResponseWriter, r *http.Request, reconID string) {
	run, results, err := h.client.SummaryDetail(r.Context(), reconID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, summaryDetail{Run: run, Results: results})
}

// HandleUserWiseSummary serves GET /reports/users.
func (h *Handlers) HandleUserWiseSummary(w http.ResponseWriter, r *http.Request) {
	results, err := h.client.UserWiseSummary(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, results)
}

// HandleUploadHistory serves GET /uploads. The kind and identifier query
// parameters narrow the history to one upload stream.
func (h *Handlers) HandleUploadHistory(w http.ResponseWriter, r *http.Request) {
	f := ingest.Filter{
		Kind:       recon.UploadKind(r.URL.Query().Get("kind")),
		Identifier: r.URL.Query().Get("identifier"),
	}
	recs, err := h.client.UploadHistory(r.Context(), f)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, recs)
}
