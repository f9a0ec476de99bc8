// Package runs drives the reconciliation workflow for each panel: upload,
// categorize, reconcile, recategorize, complete. Steps for one panel are
// serialized; a failed step records its cause and is retried by invoking
// the same step again.
package runs

import (
	"context"

	"github.com/agentstation/reconify/pkg/recon"
)

// PanelState is the persisted workflow position of one panel. Resume holds
// the last successfully reached status, so a failed step can be retried
// from where the workflow actually stood rather than from the failure.
type PanelState struct {
	PanelName     string          `json:"panel_name"`
	Status        recon.RunStatus `json:"status"`
	Resume        recon.RunStatus `json:"resume"`
	DocID         string          `json:"doc_id"`
	ReconID       string          `json:"recon_id,omitempty"`
	InternalUsers int             `json:"internal_users"`
	OtherUsers    int             `json:"other_users"`
	Error         string          `json:"error,omitempty"`
}

// Effective is the status preconditions are checked against: the last
// successfully reached status when the panel is sitting in failed.
func (s *PanelState) Effective() recon.RunStatus {
	if s.Status == recon.RunStatusFailed {
		return s.Resume
	}
	return s.Status
}

// advance moves the state to a successfully reached status.
func (s *PanelState) advance(status recon.RunStatus) {
	s.Status = status
	s.Resume = status
	s.Error = ""
}

// RunFilter narrows run queries. Zero values match everything.
type RunFilter struct {
	PanelName string
}

// Store persists workflow state, run records, and per-user match results.
// Load methods return errors.ErrNotFound when the entity does not exist.
type Store interface {
	LoadState(ctx context.Context, panelName string) (*PanelState, error)
	SaveState(ctx context.Context, state *PanelState) error

	SaveRun(ctx context.Context, run *recon.ReconciliationRun) error
	LoadRun(ctx context.Context, reconID string) (*recon.ReconciliationRun, error)
	// RunForMonth returns the panel's run for a recon month, if any.
	RunForMonth(ctx context.Context, panelName, reconMonth string) (*recon.ReconciliationRun, error)
	ListRuns(ctx context.Context, f RunFilter) ([]*recon.ReconciliationRun, error)

	// SaveResults replaces the full result set for a recon id.
	SaveResults(ctx context.Context, reconID string, results []*recon.UserMatchResult) error
	LoadResults(ctx context.Context, reconID string) ([]*recon.UserMatchResult, error)
	ListResults(ctx context.Context) ([]*recon.UserMatchResult, error)

	// DeleteForPanel removes the panel's state, runs, and results.
	DeleteForPanel(ctx context.Context, panelName string) error
}
