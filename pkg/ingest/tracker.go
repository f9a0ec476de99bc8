// Package ingest parses uploaded panel and SOT documents and keeps the
// append-only upload audit log.
package ingest

import (
	"context"

	"github.com/agentstation/utc"

	"github.com/agentstation/reconify/pkg/errors"
	"github.com/agentstation/reconify/pkg/logging"
	"github.com/agentstation/reconify/pkg/recon"
)

// Log persists upload records. Records are immutable once appended; the
// only mutation is the cascade delete when a panel is removed.
type Log interface {
	Append(ctx context.Context, rec *recon.UploadRecord) error
	List(ctx context.Context) ([]*recon.UploadRecord, error)
	DeleteForPanel(ctx context.Context, panelName string) error
}

// Filter narrows History results. Zero values match everything.
type Filter struct {
	Kind       recon.UploadKind
	Identifier string // panel name or SOT type
}

func (f Filter) matches(rec *recon.UploadRecord) bool {
	if f.Kind != "" && rec.Kind != f.Kind {
		return false
	}
	if f.Identifier != "" && rec.Identifier != f.Identifier {
		return false
	}
	return true
}

// Tracker records every upload attempt, successful or not. Failed attempts
// stay in the history so the audit trail reflects what operators actually
// did, not just what worked.
type Tracker struct {
	log Log
	now func() utc.Time
}

// NewTracker creates a Tracker over the given upload log.
func NewTracker(log Log) *Tracker {
	return &Tracker{log: log, now: utc.Now}
}

// RecordSuccess appends a successful upload and returns its record, with a
// freshly assigned document ID.
func (t *Tracker) RecordSuccess(ctx context.Context, kind recon.UploadKind, identifier, fileName, uploadedBy string, totalRows int) (*recon.UploadRecord, error) {
	rec := &recon.UploadRecord{
		DocID:      recon.NewDocID(),
		Kind:       kind,
		Identifier: identifier,
		FileName:   fileName,
		UploadedBy: uploadedBy,
		Timestamp:  t.now(),
		TotalRows:  totalRows,
		Status:     recon.UploadStatusUploaded,
	}
	if err := t.log.Append(ctx, rec); err != nil {
		return nil, errors.WrapPersistence("append", "upload record", err)
	}
	logging.Ctx(ctx).Info().
		Str("doc_id", rec.DocID).
		Str("kind", string(kind)).
		Str("identifier", identifier).
		Int("rows", totalRows).
		Msg("Upload recorded")
	return rec, nil
}

// RecordFailure appends a failed upload attempt with its cause.
func (t *Tracker) RecordFailure(ctx context.Context, kind recon.UploadKind, identifier, fileName, uploadedBy string, cause error) (*recon.UploadRecord, error) {
	rec := &recon.UploadRecord{
		DocID:      recon.NewDocID(),
		Kind:       kind,
		Identifier: identifier,
		FileName:   fileName,
		UploadedBy: uploadedBy,
		Timestamp:  t.now(),
		Status:     recon.UploadStatusFailed,
	}
	if cause != nil {
		rec.Error = cause.Error()
	}
	if err := t.log.Append(ctx, rec); err != nil {
		return nil, errors.WrapPersistence("append", "upload record", err)
	}
	logging.Ctx(ctx).Warn().
		Str("doc_id", rec.DocID).
		Str("kind", string(kind)).
		Str("identifier", identifier).
		Err(cause).
		Msg("Failed upload recorded")
	return rec, nil
}

// History returns upload records matching the filter, newest first.
func (t *Tracker) History(ctx context.Context, f Filter) ([]*recon.UploadRecord, error) {
	recs, err := t.log.List(ctx)
	if err != nil {
		return nil, errors.WrapPersistence("list", "upload records", err)
	}
	out := make([]*recon.UploadRecord, 0, len(recs))
	for _, rec := range recs {
		if f.matches(rec) {
			out = append(out, rec)
		}
	}
	// List returns records in append order; reverse for newest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// DeleteForPanel removes the panel's upload records as part of the panel
// delete cascade. SOT records are never deleted.
func (t *Tracker) DeleteForPanel(ctx context.Context, panelName string) error {
	if err := t.log.DeleteForPanel(ctx, panelName); err != nil {
		return errors.WrapPersistence("delete", "upload records", err)
	}
	return nil
}
