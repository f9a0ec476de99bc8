package sotstore

import (
	"context"
	"sort"
	"sync"

	"github.com/agentstation/reconify/pkg/errors"
	"github.com/agentstation/reconify/pkg/recon"
)

// MemoryStore is an in-memory Store implementation. It is the default for
// tests and ephemeral use; production deployments use the sqlite store.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[recon.SOTType]*Snapshot
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[recon.SOTType]*Snapshot)}
}

// Save stores a snapshot, replacing any previous version.
func (m *MemoryStore) Save(_ context.Context, snap *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[snap.Type] = snap
	return nil
}

// Load returns the current snapshot for a SOT type.
func (m *MemoryStore) Load(_ context.Context, t recon.SOTType) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snaps[t]
	if !ok {
		return nil, errors.NewNotFoundError("sot", t.String())
	}
	return snap, nil
}

// List returns the registered SOT types in lexical order.
func (m *MemoryStore) List(_ context.Context) ([]recon.SOTType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	types := make([]recon.SOTType, 0, len(m.snaps))
	for t := range m.snaps {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types, nil
}

// Delete removes a SOT's snapshot.
func (m *MemoryStore) Delete(_ context.Context, t recon.SOTType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, t)
	return nil
}
