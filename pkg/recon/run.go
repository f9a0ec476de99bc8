package recon

import (
	"fmt"
	"time"

	"github.com/agentstation/utc"
	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a panel's reconciliation workflow.
type RunStatus string

// Workflow states. The happy path is uploaded -> ready_to_recon ->
// recon_finished -> recategorized -> completed; failed is reachable from any
// non-terminal state and is retryable by re-invoking the failed step.
const (
	RunStatusUploaded      RunStatus = "uploaded"
	RunStatusReadyToRecon  RunStatus = "ready_to_recon"
	RunStatusReconFinished RunStatus = "recon_finished"
	RunStatusRecategorized RunStatus = "recategorized"
	RunStatusCompleted     RunStatus = "completed"
	RunStatusFailed        RunStatus = "failed"
)

// String returns the persisted form of the status.
func (s RunStatus) String() string {
	return string(s)
}

// Display returns the user-visible label for the status.
func (s RunStatus) Display() string {
	switch s {
	case RunStatusReconFinished:
		return "Recon Finished"
	case RunStatusReadyToRecon:
		return "Ready To Recon"
	case RunStatusRecategorized:
		return "Recategorized"
	case RunStatusCompleted:
		return "Completed"
	case RunStatusUploaded:
		return "Uploaded"
	case RunStatusFailed:
		return "Failed"
	default:
		return string(s)
	}
}

// Terminal reports whether no further transitions are permitted.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted
}

// Summary aggregates one matching pass over a panel's rows.
type Summary struct {
	PanelName       string `json:"panel_name" yaml:"panel_name"`
	TotalPanelUsers int    `json:"total_panel_users" yaml:"total_panel_users"`
	InternalUsers   int    `json:"internal_users" yaml:"internal_users"`
	ServiceUsers    int    `json:"service_users" yaml:"service_users"`
	ThirdPartyUsers int    `json:"thirdparty_users" yaml:"thirdparty_users"`
	HRUsers         int    `json:"hr_users" yaml:"hr_users"`
	OtherUsers      int    `json:"other_users" yaml:"other_users"` // service + thirdparty + hr
	FoundActive     int    `json:"found_active" yaml:"found_active"`
	FoundInactive   int    `json:"found_inactive" yaml:"found_inactive"`
	NotFound        int    `json:"not_found" yaml:"not_found"`
	Matched         int    `json:"matched" yaml:"matched"` // total - not_found
}

// ReconciliationRun is one execution of the workflow for a panel within a
// recon month. The record is mutated in place as the run advances; it is
// only removed when its panel is deleted.
type ReconciliationRun struct {
	ReconID     string    `json:"recon_id" yaml:"recon_id"`
	PanelName   string    `json:"panel_name" yaml:"panel_name"`
	ReconMonth  string    `json:"recon_month" yaml:"recon_month"`
	Status      RunStatus `json:"status" yaml:"status"`
	Summary     Summary   `json:"summary" yaml:"summary"`
	PerformedBy string    `json:"performed_by" yaml:"performed_by"`
	StartedAt   utc.Time  `json:"started_at" yaml:"started_at"`
	EndedAt     *utc.Time `json:"ended_at,omitempty" yaml:"ended_at,omitempty"`
	Error       string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// UserMatchResult is the classification of one panel user within one run.
// InitialStatus is written once by the matcher; FinalStatus starts equal to
// it and is only changed by recategorization.
type UserMatchResult struct {
	Identity      string    `json:"identity" yaml:"identity"`
	PanelName     string    `json:"panel_name" yaml:"panel_name"`
	ReconID       string    `json:"recon_id" yaml:"recon_id"`
	ReconMonth    string    `json:"recon_month" yaml:"recon_month"`
	Category      Category  `json:"category" yaml:"category"`
	SubStatus     SubStatus `json:"sub_status" yaml:"sub_status"`
	InitialStatus string    `json:"initial_status" yaml:"initial_status"`
	FinalStatus   string    `json:"final_status" yaml:"final_status"`
}

// StatusLabel renders a category and sub-status as a single persisted
// status string, e.g. "internal/active" or "not_found".
func StatusLabel(c Category, s SubStatus) string {
	if c == CategoryNotFound {
		return string(c)
	}
	return string(c) + "/" + string(s)
}

// NewReconID returns a fresh reconciliation identifier in the RCN_ form
// used across the upload history and summary views.
func NewReconID() string {
	id := uuid.New()
	return fmt.Sprintf("RCN_%x", id[:4])
}

// MonthOf buckets a point in time into its recon month, e.g. "Sep'26".
func MonthOf(t time.Time) string {
	return t.Format("Jan'06")
}
