// Package sqlite persists panels, SOT snapshots, upload history, and
// reconciliation runs in a single SQLite database. Each concern is exposed
// as its own accessor implementing the corresponding store interface from
// the panels, sotstore, ingest, and runs packages.
package sqlite

import (
	"database/sql"

	_ "modernc.org/sqlite"

	"github.com/agentstation/reconify/pkg/errors"
)

// Store owns the database handle and hands out per-concern accessors.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.WrapPersistence("open", "database", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errors.WrapPersistence("migrate", "database", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Panels returns the panel config and row-data store.
func (s *Store) Panels() *PanelStore { return &PanelStore{db: s.db} }

// SOTs returns the SOT snapshot store.
func (s *Store) SOTs() *SOTStore { return &SOTStore{db: s.db} }

// Uploads returns the upload audit log.
func (s *Store) Uploads() *UploadLog { return &UploadLog{db: s.db} }

// Runs returns the workflow state and run store.
func (s *Store) Runs() *RunStore { return &RunStore{db: s.db} }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS panels (
			name TEXT PRIMARY KEY,
			key_mapping_json TEXT NOT NULL,
			headers_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS panel_rows (
			panel_name TEXT PRIMARY KEY,
			doc_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sot_snapshots (
			sot_type TEXT PRIMARY KEY,
			version INTEGER NOT NULL,
			columns_json TEXT NOT NULL,
			rows_json TEXT NOT NULL,
			uploaded_at TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS upload_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id TEXT NOT NULL UNIQUE,
			kind TEXT NOT NULL,
			identifier TEXT NOT NULL,
			file_name TEXT,
			uploaded_by TEXT,
			uploaded_at TIMESTAMP NOT NULL,
			total_rows INTEGER NOT NULL,
			status TEXT NOT NULL,
			error TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS panel_states (
			panel_name TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			resume TEXT NOT NULL,
			doc_id TEXT,
			recon_id TEXT,
			internal_users INTEGER NOT NULL DEFAULT 0,
			other_users INTEGER NOT NULL DEFAULT 0,
			error TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			recon_id TEXT PRIMARY KEY,
			panel_name TEXT NOT NULL,
			recon_month TEXT NOT NULL,
			status TEXT NOT NULL,
			summary_json TEXT NOT NULL,
			performed_by TEXT,
			started_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP,
			error TEXT
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_runs_panel_month ON runs(panel_name, recon_month);`,
		`CREATE TABLE IF NOT EXISTS user_match_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			recon_id TEXT NOT NULL,
			identity TEXT,
			panel_name TEXT NOT NULL,
			recon_month TEXT NOT NULL,
			category TEXT NOT NULL,
			sub_status TEXT NOT NULL,
			initial_status TEXT NOT NULL,
			final_status TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_results_recon ON user_match_results(recon_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
