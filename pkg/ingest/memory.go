package ingest

import (
	"context"
	"sync"

	"github.com/agentstation/reconify/pkg/recon"
)

// MemoryLog is an in-memory upload log for tests and ephemeral setups.
type MemoryLog struct {
	mu      sync.RWMutex
	records []*recon.UploadRecord
}

// NewMemoryLog creates an empty in-memory upload log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Append adds a record to the log.
func (m *MemoryLog) Append(_ context.Context, rec *recon.UploadRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.records = append(m.records, &cp)
	return nil
}

// List returns all records in append order.
func (m *MemoryLog) List(_ context.Context) ([]*recon.UploadRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*recon.UploadRecord, len(m.records))
	for i, rec := range m.records {
		cp := *rec
		out[i] = &cp
	}
	return out, nil
}

// DeleteForPanel removes all panel-kind records for the given panel.
func (m *MemoryLog) DeleteForPanel(_ context.Context, panelName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.records[:0]
	for _, rec := range m.records {
		if rec.Kind == recon.UploadKindPanel && rec.Identifier == panelName {
			continue
		}
		kept = append(kept, rec)
	}
	m.records = kept
	return nil
}
