package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/agentstation/reconify/pkg/errors"
	"github.com/agentstation/reconify/pkg/recon"
)

// PanelStore implements panels.Store over SQLite.
type PanelStore struct {
	db *sql.DB
}

// Load returns the panel config by name.
func (s *PanelStore) Load(ctx context.Context, name string) (*recon.PanelConfig, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, key_mapping_json, headers_json FROM panels WHERE name=?`, name)
	cfg, err := scanPanel(row.Scan)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	return cfg, err
}

// Save stores the panel config, replacing any existing one.
func (s *PanelStore) Save(ctx context.Context, cfg *recon.PanelConfig) error {
	mappingJSON, err := json.Marshal(cfg.KeyMapping)
	if err != nil {
		return err
	}
	headersJSON, err := json.Marshal(cfg.PanelHeaders)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO panels(name, key_mapping_json, headers_json)
		VALUES(?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET key_mapping_json=excluded.key_mapping_json, headers_json=excluded.headers_json`,
		cfg.Name, string(mappingJSON), string(headersJSON))
	return err
}

// Delete removes the panel config.
func (s *PanelStore) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM panels WHERE name=?`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// List returns all panel configs sorted by name.
func (s *PanelStore) List(ctx context.Context) ([]*recon.PanelConfig, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, key_mapping_json, headers_json FROM panels ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cfgs []*recon.PanelConfig
	for rows.Next() {
		cfg, err := scanPanel(rows.Scan)
		if err != nil {
			return nil, err
		}
		cfgs = append(cfgs, cfg)
	}
	return cfgs, rows.Err()
}

// SaveData replaces the panel's current row set.
func (s *PanelStore) SaveData(ctx context.Context, name string, doc *recon.Document) error {
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO panel_rows(panel_name, doc_json)
		VALUES(?, ?)
		ON CONFLICT(panel_name) DO UPDATE SET doc_json=excluded.doc_json`,
		name, string(docJSON))
	return err
}

// LoadData returns the panel's current row set.
func (s *PanelStore) LoadData(ctx context.Context, name string) (*recon.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT doc_json FROM panel_rows WHERE panel_name=?`, name)
	var docJSON string
	switch err := row.Scan(&docJSON); err {
	case nil:
	case sql.ErrNoRows:
		return nil, errors.ErrNotFound
	default:
		return nil, err
	}
	var doc recon.Document
	if err := json.Unmarshal([]byte(docJSON), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DeleteData removes the panel's current row set.
func (s *PanelStore) DeleteData(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM panel_rows WHERE panel_name=?`, name)
	return err
}

func scanPanel(scan func(...any) error) (*recon.PanelConfig, error) {
	var cfg recon.PanelConfig
	var mappingJSON, headersJSON string
	if err := scan(&cfg.Name, &mappingJSON, &headersJSON); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(mappingJSON), &cfg.KeyMapping); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(headersJSON), &cfg.PanelHeaders); err != nil {
		return nil, err
	}
	return &cfg, nil
}
