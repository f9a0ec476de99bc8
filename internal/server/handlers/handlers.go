// Package handlers implements the HTTP handlers for the reconciliation API.
package handlers

import (
	"io"
	"mime"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/agentstation/reconify"
)

// maxUploadBytes caps document uploads at 64 MiB.
const maxUploadBytes = 64 << 20

// Handlers holds the dependencies shared by all HTTP handlers.
type Handlers struct {
	client reconify.Client
	logger *zerolog.Logger
}

// New creates a Handlers instance.
func New(client reconify.Client, logger *zerolog.Logger) *Handlers {
	return &Handlers{client: client, logger: logger}
}

// upload is one received document plus submitter metadata.
type upload struct {
	FileName   string
	UploadedBy string
	Data       []byte
}

// readUpload accepts either a multipart form with a "file" part or a raw
// request body. The submitter comes from the "uploaded_by" form value or
// the X-Uploaded-By header.
func readUpload(r *http.Request) (*upload, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	u := &upload{UploadedBy: r.Header.Get("X-Uploaded-By")}

	if ct == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, err
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, err
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			return nil, err
		}
		u.FileName = header.Filename
		u.Data = data
		if by := r.FormValue("uploaded_by"); by != "" {
			u.UploadedBy = by
		}
		return u, nil
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		return nil, err
	}
	u.FileName = r.URL.Query().Get("file_name")
	u.Data = data
	return u, nil
}
