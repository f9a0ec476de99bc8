package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/reconify/pkg/errors"
	"github.com/agentstation/reconify/pkg/recon"
	"github.com/agentstation/reconify/pkg/runs"
)

// RunStore implements runs.Store over SQLite.
type RunStore struct {
	db *sql.DB
}

// LoadState returns the panel's workflow state.
func (s *RunStore) LoadState(ctx context.Context, panelName string) (*runs.PanelState, error) {
	row := s.db.QueryRowContext(ctx, `SELECT panel_name, status, resume, doc_id, recon_id, internal_users, other_users, error
		FROM panel_states WHERE panel_name=?`, panelName)
	var state runs.PanelState
	var status, resume string
	var docID, reconID, errMsg sql.NullString
	switch err := row.Scan(&state.PanelName, &status, &resume, &docID, &reconID,
		&state.InternalUsers, &state.OtherUsers, &errMsg); err {
	case nil:
	case sql.ErrNoRows:
		return nil, errors.ErrNotFound
	default:
		return nil, err
	}
	state.Status = recon.RunStatus(status)
	state.Resume = recon.RunStatus(resume)
	state.DocID = docID.String
	state.ReconID = reconID.String
	state.Error = errMsg.String
	return &state, nil
}

// SaveState stores the panel's workflow state.
func (s *RunStore) SaveState(ctx context.Context, state *runs.PanelState) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO panel_states(panel_name, status, resume, doc_id, recon_id, internal_users, other_users, error)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(panel_name) DO UPDATE SET status=excluded.status, resume=excluded.resume, doc_id=excluded.doc_id,
			recon_id=excluded.recon_id, internal_users=excluded.internal_users, other_users=excluded.other_users, error=excluded.error`,
		state.PanelName, state.Status.String(), state.Resume.String(), state.DocID, state.ReconID,
		state.InternalUsers, state.OtherUsers, state.Error)
	return err
}

// SaveRun stores a run record, replacing any prior record for the same id.
func (s *RunStore) SaveRun(ctx context.Context, run *recon.ReconciliationRun) error {
	summaryJSON, err := json.Marshal(run.Summary)
	if err != nil {
		return err
	}
	var endedAt any
	if run.EndedAt != nil {
		endedAt = run.EndedAt.Time
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO runs(recon_id, panel_name, recon_month, status, summary_json, performed_by, started_at, ended_at, error)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(recon_id) DO UPDATE SET status=excluded.status, summary_json=excluded.summary_json,
			performed_by=excluded.performed_by, started_at=excluded.started_at, ended_at=excluded.ended_at, error=excluded.error`,
		run.ReconID, run.PanelName, run.ReconMonth, run.Status.String(), string(summaryJSON),
		run.PerformedBy, run.StartedAt.Time, endedAt, run.Error)
	return err
}

// LoadRun returns a run by recon id.
func (s *RunStore) LoadRun(ctx context.Context, reconID string) (*recon.ReconciliationRun, error) {
	row := s.db.QueryRowContext(ctx, `SELECT recon_id, panel_name, recon_month, status, summary_json, performed_by, started_at, ended_at, error
		FROM runs WHERE recon_id=?`, reconID)
	run, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	return run, err
}

// RunForMonth returns the panel's run for a recon month.
func (s *RunStore) RunForMonth(ctx context.Context, panelName, reconMonth string) (*recon.ReconciliationRun, error) {
	row := s.db.QueryRowContext(ctx, `SELECT recon_id, panel_name, recon_month, status, summary_json, performed_by, started_at, ended_at, error
		FROM runs WHERE panel_name=? AND recon_month=?`, panelName, reconMonth)
	run, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	return run, err
}

// ListRuns returns runs matching the filter in creation order.
func (s *RunStore) ListRuns(ctx context.Context, f runs.RunFilter) ([]*recon.ReconciliationRun, error) {
	query := `SELECT recon_id, panel_name, recon_month, status, summary_json, performed_by, started_at, ended_at, error FROM runs`
	var args []any
	if f.PanelName != "" {
		query += ` WHERE panel_name=?`
		args = append(args, f.PanelName)
	}
	query += ` ORDER BY started_at`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*recon.ReconciliationRun
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// SaveResults replaces the full result set for a recon id atomically.
func (s *RunStore) SaveResults(ctx context.Context, reconID string, results []*recon.UserMatchResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_match_results WHERE recon_id=?`, reconID); err != nil {
		return err
	}
	for _, r := range results {
		if _, err := tx.ExecContext(ctx, `INSERT INTO user_match_results(recon_id, identity, panel_name, recon_month, category, sub_status, initial_status, final_status)
			VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
			reconID, r.Identity, r.PanelName, r.ReconMonth, string(r.Category), string(r.SubStatus),
			r.InitialStatus, r.FinalStatus); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadResults returns the result set for a recon id.
func (s *RunStore) LoadResults(ctx context.Context, reconID string) ([]*recon.UserMatchResult, error) {
	return s.queryResults(ctx, `SELECT recon_id, identity, panel_name, recon_month, category, sub_status, initial_status, final_status
		FROM user_match_results WHERE recon_id=? ORDER BY id`, reconID)
}

// ListResults returns every result across all runs.
func (s *RunStore) ListResults(ctx context.Context) ([]*recon.UserMatchResult, error) {
	return s.queryResults(ctx, `SELECT recon_id, identity, panel_name, recon_month, category, sub_status, initial_status, final_status
		FROM user_match_results ORDER BY id`)
}

// DeleteForPanel removes the panel's state, runs, and results.
func (s *RunStore) DeleteForPanel(ctx context.Context, panelName string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_match_results WHERE panel_name=?`, panelName); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE panel_name=?`, panelName); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM panel_states WHERE panel_name=?`, panelName); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *RunStore) queryResults(ctx context.Context, query string, args ...any) ([]*recon.UserMatchResult, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*recon.UserMatchResult
	for rows.Next() {
		var r recon.UserMatchResult
		var category, subStatus string
		if err := rows.Scan(&r.ReconID, &r.Identity, &r.PanelName, &r.ReconMonth,
			&category, &subStatus, &r.InitialStatus, &r.FinalStatus); err != nil {
			return nil, err
		}
		r.Category = recon.Category(category)
		r.SubStatus = recon.SubStatus(subStatus)
		out = append(out, &r)
	}
	return out, rows.Err()
}

func scanRun(scan func(...any) error) (*recon.ReconciliationRun, error) {
	var run recon.ReconciliationRun
	var status, summaryJSON string
	var performedBy, errMsg sql.NullString
	var startedAt time.Time
	var endedAt sql.NullTime
	if err := scan(&run.ReconID, &run.PanelName, &run.ReconMonth, &status, &summaryJSON,
		&performedBy, &startedAt, &endedAt, &errMsg); err != nil {
		return nil, err
	}
	run.Status = recon.RunStatus(status)
	run.PerformedBy = performedBy.String
	run.Error = errMsg.String
	run.StartedAt = utc.Time{Time: startedAt.UTC()}
	if endedAt.Valid {
		t := utc.Time{Time: endedAt.Time.UTC()}
		run.EndedAt = &t
	}
	if err := json.Unmarshal([]byte(summaryJSON), &run.Summary); err != nil {
		return nil, err
	}
	return &run, nil
}
