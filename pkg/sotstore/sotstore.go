// Package sotstore holds the registered sources of truth. Each upload
// replaces a SOT's schema and rows wholesale as a new immutable snapshot;
// matching passes bind to one snapshot for their duration, so a concurrent
// re-upload never mutates data mid-match.
package sotstore

import (
	"context"

	"github.com/agentstation/utc"

	"github.com/agentstation/reconify/pkg/errors"
	"github.com/agentstation/reconify/pkg/logging"
	"github.com/agentstation/reconify/pkg/recon"
)

// Snapshot is one immutable version of a SOT's data. A new snapshot
// supersedes the previous one entirely; columns are never merged across
// uploads.
type Snapshot struct {
	Type       recon.SOTType `json:"type"`
	Version    int64         `json:"version"`
	Columns    []string      `json:"columns"`
	Rows       []recon.Row   `json:"rows"`
	UploadedAt utc.Time      `json:"uploaded_at"`
}

// RowCount returns the number of rows in the snapshot.
func (s *Snapshot) RowCount() int {
	if s == nil {
		return 0
	}
	return len(s.Rows)
}

// HasColumn reports whether the snapshot's schema includes the column.
func (s *Snapshot) HasColumn(column string) bool {
	if s == nil {
		return false
	}
	for _, c := range s.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// Lookup builds an exact-match index from the given column's stringified
// values to rows. Rows with an empty value for the column are excluded:
// empty keys never match. When several rows share a key the first wins.
func (s *Snapshot) Lookup(column string) map[string]recon.Row {
	index := make(map[string]recon.Row, len(s.Rows))
	for _, row := range s.Rows {
		key := row.Get(column)
		if key == "" {
			continue
		}
		if _, ok := index[key]; !ok {
			index[key] = row
		}
	}
	return index
}

// Store persists SOT snapshots. Load returns errors.ErrNotFound for a SOT
// that has never been uploaded.
type Store interface {
	Save(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context, t recon.SOTType) (*Snapshot, error)
	List(ctx context.Context) ([]recon.SOTType, error)
	Delete(ctx context.Context, t recon.SOTType) error
}

// Registry validates and versions SOT uploads on top of a Store.
type Registry struct {
	store Store
	now   func() utc.Time
}

// NewRegistry creates a registry backed by the given store.
func NewRegistry(store Store) *Registry {
	return &Registry{store: store, now: utc.Now}
}

// RegisterUpload replaces the stored schema and row set for a SOT type.
// Column names are normalized (trimmed, lower-cased) before validation.
// It fails with a validation error when rows are empty or columns contain
// duplicates.
func (r *Registry) RegisterUpload(ctx context.Context, t recon.SOTType, columns []string, rows []recon.Row) (*Snapshot, error) {
	if len(rows) == 0 {
		return nil, errors.NewValidationError("rows", nil, "SOT upload contains no data rows")
	}
	if len(columns) == 0 {
		return nil, errors.NewValidationError("columns", nil, "SOT upload contains no columns")
	}

	normalized := make([]string, len(columns))
	seen := make(map[string]bool, len(columns))
	for i, c := range columns {
		n := recon.NormalizeHeader(c)
		if n == "" {
			return nil, errors.NewValidationError("columns", c, "blank column name")
		}
		if seen[n] {
			return nil, errors.NewValidationError("columns", n, "duplicate column name")
		}
		seen[n] = true
		normalized[i] = n
	}

	var version int64 = 1
	prev, err := r.store.Load(ctx, t)
	switch {
	case err == nil:
		version = prev.Version + 1
	case errors.IsNotFound(err):
		// First upload for this SOT.
	default:
		return nil, errors.WrapPersistence("load", "sot snapshot", err)
	}

	snap := &Snapshot{
		Type:       t,
		Version:    version,
		Columns:    normalized,
		Rows:       rows,
		UploadedAt: r.now(),
	}
	if err := r.store.Save(ctx, snap); err != nil {
		return nil, errors.WrapPersistence("save", "sot snapshot", err)
	}

	logging.Ctx(ctx).Info().
		Str("sot", t.String()).
		Int64("version", version).
		Int("rows", len(rows)).
		Msg("Registered SOT upload")
	return snap, nil
}

// Fields returns the current column list for a SOT, or a not-found error if
// the SOT has never been uploaded.
func (r *Registry) Fields(ctx context.Context, t recon.SOTType) ([]string, error) {
	snap, err := r.store.Load(ctx, t)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NewNotFoundError("sot", t.String())
		}
		return nil, errors.WrapPersistence("load", "sot snapshot", err)
	}
	return append([]string(nil), snap.Columns...), nil
}

// RowCount returns the current row count for a SOT, 0 when never uploaded.
func (r *Registry) RowCount(ctx context.Context, t recon.SOTType) (int, error) {
	snap, err := r.store.Load(ctx, t)
	if err != nil {
		if errors.IsNotFound(err) {
			return 0, nil
		}
		return 0, errors.WrapPersistence("load", "sot snapshot", err)
	}
	return snap.RowCount(), nil
}

// Snapshot returns the current snapshot for a SOT, or nil without error when
// the SOT has never been uploaded. Partial configuration is expected during
// setup; a mapped-but-missing SOT simply produces no matches.
func (r *Registry) Snapshot(ctx context.Context, t recon.SOTType) (*Snapshot, error) {
	snap, err := r.store.Load(ctx, t)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.WrapPersistence("load", "sot snapshot", err)
	}
	return snap, nil
}

// List returns the SOT types that have at least one registered upload.
func (r *Registry) List(ctx context.Context) ([]recon.SOTType, error) {
	types, err := r.store.List(ctx)
	if err != nil {
		return nil, errors.WrapPersistence("list", "sot snapshots", err)
	}
	return types, nil
}
