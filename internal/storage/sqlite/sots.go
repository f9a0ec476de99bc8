package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/reconify/pkg/errors"
	"github.com/agentstation/reconify/pkg/recon"
	"github.com/agentstation/reconify/pkg/sotstore"
)

// SOTStore implements sotstore.Store over SQLite. One row per SOT type:
// each upload replaces the stored snapshot wholesale.
type SOTStore struct {
	db *sql.DB
}

// Save stores a snapshot, replacing any prior version for the SOT type.
func (s *SOTStore) Save(ctx context.Context, snap *sotstore.Snapshot) error {
	columnsJSON, err := json.Marshal(snap.Columns)
	if err != nil {
		return err
	}
	rowsJSON, err := json.Marshal(snap.Rows)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO sot_snapshots(sot_type, version, columns_json, rows_json, uploaded_at)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(sot_type) DO UPDATE SET version=excluded.version, columns_json=excluded.columns_json, rows_json=excluded.rows_json, uploaded_at=excluded.uploaded_at`,
		snap.Type.String(), snap.Version, string(columnsJSON), string(rowsJSON), snap.UploadedAt.Time)
	return err
}

// Load returns the current snapshot for a SOT type.
func (s *SOTStore) Load(ctx context.Context, t recon.SOTType) (*sotstore.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT sot_type, version, columns_json, rows_json, uploaded_at FROM sot_snapshots WHERE sot_type=?`,
		t.String())
	var snap sotstore.Snapshot
	var sotType, columnsJSON, rowsJSON string
	var uploadedAt time.Time
	switch err := row.Scan(&sotType, &snap.Version, &columnsJSON, &rowsJSON, &uploadedAt); err {
	case nil:
	case sql.ErrNoRows:
		return nil, errors.ErrNotFound
	default:
		return nil, err
	}
	snap.Type = recon.SOTType(sotType)
	snap.UploadedAt = utc.Time{Time: uploadedAt.UTC()}
	if err := json.Unmarshal([]byte(columnsJSON), &snap.Columns); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(rowsJSON), &snap.Rows); err != nil {
		return nil, err
	}
	return &snap, nil
}

// List returns the SOT types with a stored snapshot, sorted.
func (s *SOTStore) List(ctx context.Context) ([]recon.SOTType, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT sot_type FROM sot_snapshots ORDER BY sot_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var types []recon.SOTType
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		types = append(types, recon.SOTType(t))
	}
	return types, rows.Err()
}

// Delete removes the snapshot for a SOT type.
func (s *SOTStore) Delete(ctx context.Context, t recon.SOTType) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sot_snapshots WHERE sot_type=?`, t.String())
	return err
}
