package recon

import (
	"github.com/agentstation/utc"
	"github.com/google/uuid"
)

// UploadKind distinguishes panel document uploads from SOT uploads.
type UploadKind string

// Upload kinds.
const (
	UploadKindPanel UploadKind = "panel"
	UploadKindSOT   UploadKind = "sot"
)

// UploadStatus is the terminal state of a single upload attempt.
type UploadStatus string

// Upload statuses. Failed uploads stay in the history; the audit trail is
// append-only.
const (
	UploadStatusUploaded UploadStatus = "uploaded"
	UploadStatusFailed   UploadStatus = "failed"
)

// UploadRecord is one immutable entry in the ingestion log.
type UploadRecord struct {
	DocID      string       `json:"doc_id" yaml:"doc_id"`
	Kind       UploadKind   `json:"kind" yaml:"kind"`
	Identifier string       `json:"identifier" yaml:"identifier"` // panel name or SOT type
	FileName   string       `json:"file_name" yaml:"file_name"`
	UploadedBy string       `json:"uploaded_by" yaml:"uploaded_by"`
	Timestamp  utc.Time     `json:"timestamp" yaml:"timestamp"`
	TotalRows  int          `json:"total_rows" yaml:"total_rows"`
	Status     UploadStatus `json:"status" yaml:"status"`
	Error      string       `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewDocID returns a fresh document identifier.
func NewDocID() string {
	return uuid.NewString()
}
