package runs

import (
	"context"
	"sync"

	"github.com/agentstation/reconify/pkg/errors"
	"github.com/agentstation/reconify/pkg/recon"
)

// MemoryStore is an in-memory Store for tests and ephemeral setups.
type MemoryStore struct {
	mu      sync.RWMutex
	states  map[string]*PanelState
	runs    map[string]*recon.ReconciliationRun
	runList []string // recon ids in creation order
	results map[string][]*recon.UserMatchResult
}

// NewMemoryStore creates an empty in-memory runs store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states:  make(map[string]*PanelState),
		runs:    make(map[string]*recon.ReconciliationRun),
		results: make(map[string][]*recon.UserMatchResult),
	}
}

// LoadState returns the panel's workflow state.
func (m *MemoryStore) LoadState(_ context.Context, panelName string) (*PanelState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[panelName]
	if !ok {
		return nil, errors.ErrNotFound
	}
	cp := *state
	return &cp, nil
}

// SaveState stores the panel's workflow state.
func (m *MemoryStore) SaveState(_ context.Context, state *PanelState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *state
	m.states[state.PanelName] = &cp
	return nil
}

// SaveRun stores a run record, replacing any prior record for the same id.
func (m *MemoryStore) SaveRun(_ context.Context, run *recon.ReconciliationRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[run.ReconID]; !ok {
		m.runList = append(m.runList, run.ReconID)
	}
	cp := *run
	m.runs[run.ReconID] = &cp
	return nil
}

// LoadRun returns a run by recon id.
func (m *MemoryStore) LoadRun(_ context.Context, reconID string) (*recon.ReconciliationRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[reconID]
	if !ok {
		return nil, errors.ErrNotFound
	}
	cp := *run
	return &cp, nil
}

// RunForMonth returns the panel's run for a recon month.
func (m *MemoryStore) RunForMonth(_ context.Context, panelName, reconMonth string) (*recon.ReconciliationRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, run := range m.runs {
		if run.PanelName == panelName && run.ReconMonth == reconMonth {
			cp := *run
			return &cp, nil
		}
	}
	return nil, errors.ErrNotFound
}

// ListRuns returns runs matching the filter in creation order.
func (m *MemoryStore) ListRuns(_ context.Context, f RunFilter) ([]*recon.ReconciliationRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*recon.ReconciliationRun, 0, len(m.runList))
	for _, id := range m.runList {
		run := m.runs[id]
		if f.PanelName != "" && run.PanelName != f.PanelName {
			continue
		}
		cp := *run
		out = append(out, &cp)
	}
	return out, nil
}

// SaveResults replaces the full result set for a recon id.
func (m *MemoryStore) SaveResults(_ context.Context, reconID string, results []*recon.UserMatchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]*recon.UserMatchResult, len(results))
	for i, r := range results {
		c := *r
		cp[i] = &c
	}
	m.results[reconID] = cp
	return nil
}

// LoadResults returns the result set for a recon id.
func (m *MemoryStore) LoadResults(_ context.Context, reconID string) ([]*recon.UserMatchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyResults(m.results[reconID]), nil
}

// ListResults returns every result across all runs, in run creation order.
func (m *MemoryStore) ListResults(_ context.Context) ([]*recon.UserMatchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*recon.UserMatchResult
	for _, id := range m.runList {
		out = append(out, copyResults(m.results[id])...)
	}
	return out, nil
}

// DeleteForPanel removes the panel's state, runs, and results.
func (m *MemoryStore) DeleteForPanel(_ context.Context, panelName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, panelName)
	kept := m.runList[:0]
	for _, id := range m.runList {
		if run, ok := m.runs[id]; ok && run.PanelName == panelName {
			delete(m.runs, id)
			delete(m.results, id)
			continue
		}
		kept = append(kept, id)
	}
	m.runList = kept
	return nil
}

func copyResults(results []*recon.UserMatchResult) []*recon.UserMatchResult {
	out := make([]*recon.UserMatchResult, len(results))
	for i, r := range results {
		cp := *r
		out[i] = &cp
	}
	return out
}
