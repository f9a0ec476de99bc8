package panels

import (
	"context"
	"sort"
	"sync"

	"github.com/agentstation/reconify/pkg/errors"
	"github.com/agentstation/reconify/pkg/recon"
)

// MemoryStore is an in-memory Store for tests and ephemeral setups.
type MemoryStore struct {
	mu      sync.RWMutex
	configs map[string]*recon.PanelConfig
	data    map[string]*recon.Document
}

// NewMemoryStore creates an empty in-memory panel store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		configs: make(map[string]*recon.PanelConfig),
		data:    make(map[string]*recon.Document),
	}
}

// Load returns the panel config by name.
func (m *MemoryStore) Load(_ context.Context, name string) (*recon.PanelConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.configs[name]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return cfg.Copy(), nil
}

// Save stores the panel config, replacing any existing one.
func (m *MemoryStore) Save(_ context.Context, cfg *recon.PanelConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs[cfg.Name] = cfg.Copy()
	return nil
}

// Delete removes the panel config.
func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.configs[name]; !ok {
		return errors.ErrNotFound
	}
	delete(m.configs, name)
	return nil
}

// List returns all panel configs sorted by name.
func (m *MemoryStore) List(_ context.Context) ([]*recon.PanelConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*recon.PanelConfig, 0, len(m.configs))
	for _, cfg := range m.configs {
		out = append(out, cfg.Copy())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// SaveData replaces the panel's current row set.
func (m *MemoryStore) SaveData(_ context.Context, name string, doc *recon.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[name] = doc
	return nil
}

// LoadData returns the panel's current row set.
func (m *MemoryStore) LoadData(_ context.Context, name string) (*recon.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.data[name]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return doc, nil
}

// DeleteData removes the panel's current row set.
func (m *MemoryStore) DeleteData(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, name)
	return nil
}
