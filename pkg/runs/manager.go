package runs

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/agentstation/utc"

	"github.com/agentstation/reconify/pkg/errors"
	"github.com/agentstation/reconify/pkg/ingest"
	"github.com/agentstation/reconify/pkg/logging"
	"github.com/agentstation/reconify/pkg/matcher"
	"github.com/agentstation/reconify/pkg/panels"
	"github.com/agentstation/reconify/pkg/recon"
	"github.com/agentstation/reconify/pkg/sotstore"
)

// Column candidates probed, in order, when reading a recategorization file.
var (
	recatIdentityColumns = []string{"email", "user_email", "domain", "id", "user_id", "employee_id"}
	recatStatusColumns   = []string{"type", "user_type", "status", "category", "final_status", "classification"}
)

// RecategorizeResult reports what a recategorization pass touched. Skipped
// counts identities in the correction file with no matching result row;
// those are reported, not treated as errors.
type RecategorizeResult struct {
	ReconID string `json:"recon_id"`
	Updated int    `json:"updated"`
	Skipped int    `json:"skipped"`
}

// Manager owns the reconciliation workflow. All steps for a given panel
// are serialized through a per-panel mutex so a mapping change or
// re-upload is never observed mid-match.
type Manager struct {
	panels   *panels.ConfigStore
	registry *sotstore.Registry
	tracker  *ingest.Tracker
	parser   ingest.Parser
	engine   *matcher.Engine
	store    Store
	now      func() utc.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager wires the workflow over its collaborators.
func NewManager(panelStore *panels.ConfigStore, registry *sotstore.Registry, tracker *ingest.Tracker, parser ingest.Parser, engine *matcher.Engine, store Store) *Manager {
	return &Manager{
		panels:   panelStore,
		registry: registry,
		tracker:  tracker,
		parser:   parser,
		engine:   engine,
		store:    store,
		now:      utc.Now,
		locks:    make(map[string]*sync.Mutex),
	}
}

// lock returns the panel's step mutex, creating it on first use.
func (m *Manager) lock(panelName string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[panelName]
	if !ok {
		l = &sync.Mutex{}
		m.locks[panelName] = l
	}
	return l
}

// Upload parses a panel document and installs it as the panel's current
// row set, replacing any prior upload. The attempt is always recorded in
// the upload history; a parse failure leaves the row set untouched.
func (m *Manager) Upload(ctx context.Context, panelName, fileName, uploadedBy string, data []byte) (*recon.UploadRecord, error) {
	l := m.lock(panelName)
	l.Lock()
	defer l.Unlock()
	ctx = logging.WithOperation(logging.WithPanel(ctx, panelName), "upload")

	if _, err := m.panels.Get(ctx, panelName); err != nil {
		return nil, err
	}

	state, err := m.loadState(ctx, panelName)
	if err != nil {
		return nil, err
	}

	res, perr := m.parser.Parse(data)
	if perr != nil {
		rec, rerr := m.tracker.RecordFailure(ctx, recon.UploadKindPanel, panelName, fileName, uploadedBy, perr)
		if rerr != nil {
			return nil, rerr
		}
		m.fail(ctx, state, perr)
		return rec, perr
	}

	if err := m.panels.SaveData(ctx, panelName, res.Document); err != nil {
		m.fail(ctx, state, err)
		return nil, err
	}
	if _, err := m.panels.SetHeaders(ctx, panelName, res.Document.Columns); err != nil {
		m.fail(ctx, state, err)
		return nil, err
	}

	rec, err := m.tracker.RecordSuccess(ctx, recon.UploadKindPanel, panelName, fileName, uploadedBy, len(res.Document.Rows))
	if err != nil {
		m.fail(ctx, state, err)
		return nil, err
	}

	state.DocID = rec.DocID
	state.advance(recon.RunStatusUploaded)
	if err := m.store.SaveState(ctx, state); err != nil {
		return nil, errors.WrapPersistence("save", "panel state", err)
	}

	logging.Ctx(ctx).Info().
		Str("file", fileName).
		Int("rows", rec.TotalRows).
		Msg("Panel document uploaded")
	return rec, nil
}

// Categorize computes the panel's internal-vs-other split without
// persisting per-user results and advances the panel to ready_to_recon.
// Re-invoking while already ready_to_recon is a no-op success.
func (m *Manager) Categorize(ctx context.Context, panelName string) (*PanelState, error) {
	l := m.lock(panelName)
	l.Lock()
	defer l.Unlock()
	ctx = logging.WithOperation(logging.WithPanel(ctx, panelName), "categorize")

	if _, err := m.panels.Get(ctx, panelName); err != nil {
		return nil, err
	}

	state, err := m.loadState(ctx, panelName)
	if err != nil {
		return nil, err
	}
	switch state.Effective() {
	case recon.RunStatusReadyToRecon:
		return state, nil
	case recon.RunStatusUploaded:
	default:
		return nil, errors.NewPreconditionError(panelName, "categorize",
			state.Effective().String(), recon.RunStatusUploaded.String())
	}

	in, err := m.bindPass(ctx, panelName, "", "")
	if err != nil {
		m.fail(ctx, state, err)
		return nil, err
	}
	_, summary := m.engine.Match(*in)

	state.InternalUsers = summary.InternalUsers
	state.OtherUsers = summary.OtherUsers
	state.advance(recon.RunStatusReadyToRecon)
	if err := m.store.SaveState(ctx, state); err != nil {
		return nil, errors.WrapPersistence("save", "panel state", err)
	}

	logging.Ctx(ctx).Info().
		Int("internal", state.InternalUsers).
		Int("other", state.OtherUsers).
		Msg("Panel categorized")
	return state, nil
}

// Reconcile runs a full matching pass over the panel's current rows and
// persists per-user results plus the run summary. Reconciling the same
// panel again within the same recon month replaces that run's results
// under the same recon id rather than creating a duplicate run.
func (m *Manager) Reconcile(ctx context.Context, panelName, performedBy string) (*recon.ReconciliationRun, error) {
	l := m.lock(panelName)
	l.Lock()
	defer l.Unlock()
	ctx = logging.WithOperation(logging.WithPanel(ctx, panelName), "reconcile")

	if _, err := m.panels.Get(ctx, panelName); err != nil {
		return nil, err
	}

	state, err := m.loadState(ctx, panelName)
	if err != nil {
		return nil, err
	}
	switch state.Effective() {
	case recon.RunStatusReadyToRecon, recon.RunStatusReconFinished:
	default:
		return nil, errors.NewPreconditionError(panelName, "reconcile",
			state.Effective().String(), recon.RunStatusReadyToRecon.String())
	}

	started := m.now()
	month := recon.MonthOf(started.Time)

	reconID := ""
	if prev, err := m.store.RunForMonth(ctx, panelName, month); err == nil {
		reconID = prev.ReconID
	} else if !errors.IsNotFound(err) {
		return nil, errors.WrapPersistence("load", "run", err)
	}
	if reconID == "" {
		reconID = recon.NewReconID()
	}
	ctx = logging.WithReconID(ctx, reconID)

	in, err := m.bindPass(ctx, panelName, reconID, month)
	if err != nil {
		m.fail(ctx, state, err)
		return nil, err
	}
	results, summary := m.engine.Match(*in)

	run := &recon.ReconciliationRun{
		ReconID:     reconID,
		PanelName:   panelName,
		ReconMonth:  month,
		Status:      recon.RunStatusReconFinished,
		Summary:     summary,
		PerformedBy: performedBy,
		StartedAt:   started,
	}

	// Results land before the run record and the state advance; a failure
	// at any point leaves the panel in failed with no run visible as
	// finished against partial results.
	if err := m.store.SaveResults(ctx, reconID, results); err != nil {
		m.fail(ctx, state, err)
		return nil, errors.WrapPersistence("save", "match results", err)
	}
	if err := m.store.SaveRun(ctx, run); err != nil {
		m.fail(ctx, state, err)
		return nil, errors.WrapPersistence("save", "run", err)
	}

	state.ReconID = reconID
	state.advance(recon.RunStatusReconFinished)
	if err := m.store.SaveState(ctx, state); err != nil {
		return nil, errors.WrapPersistence("save", "panel state", err)
	}

	logging.Ctx(ctx).Info().
		Str("recon_month", month).
		Int("matched", summary.Matched).
		Int("not_found", summary.NotFound).
		Msg("Reconciliation finished")
	return run, nil
}

// Recategorize applies a manually corrected file to the panel's current
// run, overwriting final_status on results matched by identity. Initial
// statuses are never touched. Identities in the file with no matching
// result are counted and reported, not treated as errors.
func (m *Manager) Recategorize(ctx context.Context, panelName, fileName, uploadedBy string, data []byte) (*RecategorizeResult, error) {
	l := m.lock(panelName)
	l.Lock()
	defer l.Unlock()
	ctx = logging.WithOperation(logging.WithPanel(ctx, panelName), "recategorize")

	if _, err := m.panels.Get(ctx, panelName); err != nil {
		return nil, err
	}

	state, err := m.loadState(ctx, panelName)
	if err != nil {
		return nil, err
	}
	if state.Effective() != recon.RunStatusReconFinished {
		return nil, errors.NewPreconditionError(panelName, "recategorize",
			state.Effective().String(), recon.RunStatusReconFinished.String())
	}
	ctx = logging.WithReconID(ctx, state.ReconID)

	res, perr := m.parser.Parse(data)
	if perr != nil {
		if _, rerr := m.tracker.RecordFailure(ctx, recon.UploadKindPanel, panelName, fileName, uploadedBy, perr); rerr != nil {
			return nil, rerr
		}
		m.fail(ctx, state, perr)
		return nil, perr
	}

	identityCol, err := pickColumn(res.Document.Columns, recatIdentityColumns, "identity")
	if err != nil {
		return nil, err
	}
	statusCol, err := pickColumn(res.Document.Columns, recatStatusColumns, "status")
	if err != nil {
		return nil, err
	}

	corrections := make(map[string]string, len(res.Document.Rows))
	for _, row := range res.Document.Rows {
		identity := strings.ToLower(strings.TrimSpace(row.Get(identityCol)))
		status := strings.TrimSpace(row.Get(statusCol))
		if identity != "" && status != "" {
			corrections[identity] = status
		}
	}

	results, err := m.store.LoadResults(ctx, state.ReconID)
	if err != nil {
		return nil, errors.WrapPersistence("load", "match results", err)
	}

	updated := 0
	matched := make(map[string]struct{}, len(corrections))
	for _, r := range results {
		key := strings.ToLower(r.Identity)
		status, ok := corrections[key]
		if !ok {
			continue
		}
		r.FinalStatus = status
		updated++
		matched[key] = struct{}{}
	}
	skipped := len(corrections) - len(matched)

	if err := m.store.SaveResults(ctx, state.ReconID, results); err != nil {
		m.fail(ctx, state, err)
		return nil, errors.WrapPersistence("save", "match results", err)
	}

	run, err := m.store.LoadRun(ctx, state.ReconID)
	if err != nil {
		return nil, errors.WrapPersistence("load", "run", err)
	}
	run.Status = recon.RunStatusRecategorized
	if err := m.store.SaveRun(ctx, run); err != nil {
		m.fail(ctx, state, err)
		return nil, errors.WrapPersistence("save", "run", err)
	}

	state.advance(recon.RunStatusRecategorized)
	if err := m.store.SaveState(ctx, state); err != nil {
		return nil, errors.WrapPersistence("save", "panel state", err)
	}

	logging.Ctx(ctx).Info().
		Int("updated", updated).
		Int("skipped", skipped).
		Msg("Recategorization applied")
	return &RecategorizeResult{ReconID: state.ReconID, Updated: updated, Skipped: skipped}, nil
}

// Complete marks the panel's current run completed. Terminal: no further
// step is permitted for the run.
func (m *Manager) Complete(ctx context.Context, panelName string) (*recon.ReconciliationRun, error) {
	l := m.lock(panelName)
	l.Lock()
	defer l.Unlock()
	ctx = logging.WithOperation(logging.WithPanel(ctx, panelName), "complete")

	if _, err := m.panels.Get(ctx, panelName); err != nil {
		return nil, err
	}

	state, err := m.loadState(ctx, panelName)
	if err != nil {
		return nil, err
	}
	if state.Effective() != recon.RunStatusRecategorized {
		return nil, errors.NewPreconditionError(panelName, "complete",
			state.Effective().String(), recon.RunStatusRecategorized.String())
	}
	ctx = logging.WithReconID(ctx, state.ReconID)

	run, err := m.store.LoadRun(ctx, state.ReconID)
	if err != nil {
		return nil, errors.WrapPersistence("load", "run", err)
	}
	ended := m.now()
	run.Status = recon.RunStatusCompleted
	run.EndedAt = &ended
	if err := m.store.SaveRun(ctx, run); err != nil {
		m.fail(ctx, state, err)
		return nil, errors.WrapPersistence("save", "run", err)
	}

	state.advance(recon.RunStatusCompleted)
	if err := m.store.SaveState(ctx, state); err != nil {
		return nil, errors.WrapPersistence("save", "panel state", err)
	}

	logging.Ctx(ctx).Info().Msg("Reconciliation completed")
	return run, nil
}

// State returns the panel's current workflow position.
func (m *Manager) State(ctx context.Context, panelName string) (*PanelState, error) {
	return m.loadState(ctx, panelName)
}

// History returns the panel's runs, newest first. An empty panel name
// returns runs across all panels.
func (m *Manager) History(ctx context.Context, panelName string) ([]*recon.ReconciliationRun, error) {
	rs, err := m.store.ListRuns(ctx, RunFilter{PanelName: panelName})
	if err != nil {
		return nil, errors.WrapPersistence("list", "runs", err)
	}
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].StartedAt.Time.After(rs[j].StartedAt.Time)
	})
	return rs, nil
}

// Summaries returns the summary of every run, newest first.
func (m *Manager) Summaries(ctx context.Context) ([]*recon.ReconciliationRun, error) {
	return m.History(ctx, "")
}

// SummaryDetail returns one run with its full result set.
func (m *Manager) SummaryDetail(ctx context.Context, reconID string) (*recon.ReconciliationRun, []*recon.UserMatchResult, error) {
	run, err := m.store.LoadRun(ctx, reconID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil, errors.NewNotFoundError("run", reconID)
		}
		return nil, nil, errors.WrapPersistence("load", "run", err)
	}
	results, err := m.store.LoadResults(ctx, reconID)
	if err != nil {
		return nil, nil, errors.WrapPersistence("load", "match results", err)
	}
	return run, results, nil
}

// UserWiseSummary returns every match result across all panels and runs,
// sorted by identity then panel.
func (m *Manager) UserWiseSummary(ctx context.Context) ([]*recon.UserMatchResult, error) {
	results, err := m.store.ListResults(ctx)
	if err != nil {
		return nil, errors.WrapPersistence("list", "match results", err)
	}
	sort.Slice(results, func(i, j int) bool {
		li, lj := strings.ToLower(results[i].Identity), strings.ToLower(results[j].Identity)
		if li != lj {
			return li < lj
		}
		return results[i].PanelName < results[j].PanelName
	})
	return results, nil
}

// DeleteForPanel removes the panel's workflow state, runs, and results as
// part of the panel delete cascade.
func (m *Manager) DeleteForPanel(ctx context.Context, panelName string) error {
	l := m.lock(panelName)
	l.Lock()
	defer l.Unlock()
	if err := m.store.DeleteForPanel(ctx, panelName); err != nil {
		return errors.WrapPersistence("delete", "runs", err)
	}
	return nil
}

// bindPass reads everything a matching pass needs up front: the panel's
// mapping, its current rows, and one snapshot per mapped SOT. The pass
// then runs without further I/O.
func (m *Manager) bindPass(ctx context.Context, panelName, reconID, month string) (*matcher.Input, error) {
	cfg, err := m.panels.Get(ctx, panelName)
	if err != nil {
		return nil, err
	}
	doc, err := m.panels.Data(ctx, panelName)
	if err != nil {
		return nil, err
	}

	snapshots := make(map[recon.SOTType]*sotstore.Snapshot, len(cfg.KeyMapping))
	for sot := range cfg.KeyMapping {
		snap, err := m.registry.Snapshot(ctx, sot)
		if err != nil {
			return nil, err
		}
		if snap != nil {
			snapshots[sot] = snap
		}
	}

	return &matcher.Input{
		PanelName:  panelName,
		ReconID:    reconID,
		ReconMonth: month,
		Mapping:    cfg.KeyMapping,
		Rows:       doc.Rows,
		Snapshots:  snapshots,
	}, nil
}

// loadState fetches the panel's state, starting a fresh one for panels
// that have never uploaded.
func (m *Manager) loadState(ctx context.Context, panelName string) (*PanelState, error) {
	state, err := m.store.LoadState(ctx, panelName)
	if err != nil {
		if errors.IsNotFound(err) {
			return &PanelState{PanelName: panelName}, nil
		}
		return nil, errors.WrapPersistence("load", "panel state", err)
	}
	return state, nil
}

// fail parks the panel in failed with the step's cause, keeping Resume at
// the last successfully reached status so the step can be retried. The
// state write is best effort; the original cause is what the caller sees.
func (m *Manager) fail(ctx context.Context, state *PanelState, cause error) {
	state.Status = recon.RunStatusFailed
	state.Error = cause.Error()
	if err := m.store.SaveState(ctx, state); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to persist failure state")
	}
}

// pickColumn returns the first candidate present in the parsed columns.
func pickColumn(columns, candidates []string, role string) (string, error) {
	present := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		present[c] = struct{}{}
	}
	for _, cand := range candidates {
		if _, ok := present[cand]; ok {
			return cand, nil
		}
	}
	return "", errors.NewValidationError(role+"_column", columns,
		"no "+role+" column found; expected one of: "+strings.Join(candidates, ", "))
}
