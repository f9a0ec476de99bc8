package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/reconify/pkg/recon"
)

// UploadLog implements ingest.Log over SQLite. Records are append-only;
// the autoincrement id preserves insertion order for timestamp ties.
type UploadLog struct {
	db *sql.DB
}

// Append adds a record to the log.
func (l *UploadLog) Append(ctx context.Context, rec *recon.UploadRecord) error {
	_, err := l.db.ExecContext(ctx, `INSERT INTO upload_records(doc_id, kind, identifier, file_name, uploaded_by, uploaded_at, total_rows, status, error)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.DocID, string(rec.Kind), rec.Identifier, rec.FileName, rec.UploadedBy,
		rec.Timestamp.Time, rec.TotalRows, string(rec.Status), rec.Error)
	return err
}

// List returns all records in append order.
func (l *UploadLog) List(ctx context.Context) ([]*recon.UploadRecord, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT doc_id, kind, identifier, file_name, uploaded_by, uploaded_at, total_rows, status, error
		FROM upload_records ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var recs []*recon.UploadRecord
	for rows.Next() {
		var rec recon.UploadRecord
		var kind, status string
		var errMsg sql.NullString
		var ts time.Time
		if err := rows.Scan(&rec.DocID, &kind, &rec.Identifier, &rec.FileName, &rec.UploadedBy,
			&ts, &rec.TotalRows, &status, &errMsg); err != nil {
			return nil, err
		}
		rec.Kind = recon.UploadKind(kind)
		rec.Status = recon.UploadStatus(status)
		rec.Timestamp = utc.Time{Time: ts.UTC()}
		if errMsg.Valid {
			rec.Error = errMsg.String
		}
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

// DeleteForPanel removes the panel's upload records.
func (l *UploadLog) DeleteForPanel(ctx context.Context, panelName string) error {
	_, err := l.db.ExecContext(ctx, `DELETE FROM upload_records WHERE kind=? AND identifier=?`,
		string(recon.UploadKindPanel), panelName)
	return err
}
