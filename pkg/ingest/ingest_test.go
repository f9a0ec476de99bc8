package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/reconify/pkg/errors"
	"github.com/agentstation/reconify/pkg/recon"
)

func TestCSVParser(t *testing.T) {
	p := NewCSVParser()

	t.Run("basic document", func(t *testing.T) {
		res, err := p.Parse([]byte("Email , Role\na@corp.test,admin\nb@corp.test,viewer\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"email", "role"}, res.Document.Columns)
		require.Len(t, res.Document.Rows, 2)
		assert.Equal(t, "a@corp.test", res.Document.Rows[0].Get("email"))
		assert.Equal(t, "viewer", res.Document.Rows[1].Get("role"))
		assert.Equal(t, "utf-8", res.Encoding)
		assert.Empty(t, res.Warnings)
	})

	t.Run("short row padded", func(t *testing.T) {
		res, err := p.Parse([]byte("email,role\na@corp.test\n"))
		require.NoError(t, err)
		require.Len(t, res.Document.Rows, 1)
		assert.Equal(t, "", res.Document.Rows[0].Get("role"))
		require.Len(t, res.Warnings, 1)
		assert.Equal(t, 2, res.Warnings[0].Row)
	})

	t.Run("long row truncated", func(t *testing.T) {
		res, err := p.Parse([]byte("email\na@corp.test,extra\n"))
		require.NoError(t, err)
		require.Len(t, res.Document.Rows, 1)
		require.Len(t, res.Warnings, 1)
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := p.Parse(nil)
		require.Error(t, err)
		assert.True(t, errors.IsParseError(err))
	})

	t.Run("header only", func(t *testing.T) {
		_, err := p.Parse([]byte("email,role\n"))
		require.Error(t, err)
		assert.True(t, errors.IsParseError(err))
	})

	t.Run("duplicate header after normalization", func(t *testing.T) {
		_, err := p.Parse([]byte("Email, email \na@corp.test,b@corp.test\n"))
		require.Error(t, err)
		assert.True(t, errors.IsParseError(err))
	})

	t.Run("blank header", func(t *testing.T) {
		_, err := p.Parse([]byte("email,,role\na,b,c\n"))
		require.Error(t, err)
		assert.True(t, errors.IsParseError(err))
	})

	t.Run("cell values trimmed", func(t *testing.T) {
		res, err := p.Parse([]byte("email\n  a@corp.test \n"))
		require.NoError(t, err)
		assert.Equal(t, "a@corp.test", res.Document.Rows[0].Get("email"))
	})
}

func TestDecode(t *testing.T) {
	t.Run("utf-8 bom stripped", func(t *testing.T) {
		data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("email\na@corp.test\n")...)
		res, err := NewCSVParser().Parse(data)
		require.NoError(t, err)
		assert.Equal(t, []string{"email"}, res.Document.Columns)
	})

	t.Run("utf-16le", func(t *testing.T) {
		var data []byte
		data = append(data, 0xFF, 0xFE)
		for _, r := range "name\nRené\n" {
			data = append(data, byte(r), byte(r>>8))
		}
		res, err := NewCSVParser().Parse(data)
		require.NoError(t, err)
		assert.Equal(t, "utf-16le", res.Encoding)
		assert.Equal(t, "René", res.Document.Rows[0].Get("name"))
	})

	t.Run("windows-1252 fallback", func(t *testing.T) {
		// 0xE9 is é in Windows-1252 and invalid as standalone UTF-8.
		data := []byte("name\nRen\xe9\n")
		res, err := NewCSVParser().Parse(data)
		require.NoError(t, err)
		assert.Equal(t, "windows-1252", res.Encoding)
		assert.Equal(t, "René", res.Document.Rows[0].Get("name"))
	})
}

func TestTracker(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(NewMemoryLog())

	first, err := tracker.RecordSuccess(ctx, recon.UploadKindPanel, "github", "github_jan.csv", "alice", 120)
	require.NoError(t, err)
	assert.NotEmpty(t, first.DocID)
	assert.Equal(t, recon.UploadStatusUploaded, first.Status)

	_, err = tracker.RecordFailure(ctx, recon.UploadKindPanel, "github", "github_bad.csv", "alice",
		errors.NewParseError("csv", "github_bad.csv", "empty file: no header row", nil))
	require.NoError(t, err)

	_, err = tracker.RecordSuccess(ctx, recon.UploadKindSOT, "hr_data", "hr.csv", "bob", 300)
	require.NoError(t, err)

	t.Run("history newest first", func(t *testing.T) {
		recs, err := tracker.History(ctx, Filter{})
		require.NoError(t, err)
		require.Len(t, recs, 3)
		assert.Equal(t, "hr.csv", recs[0].FileName)
		assert.Equal(t, "github_jan.csv", recs[2].FileName)
	})

	t.Run("failed attempts stay in history", func(t *testing.T) {
		recs, err := tracker.History(ctx, Filter{Kind: recon.UploadKindPanel, Identifier: "github"})
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, recon.UploadStatusFailed, recs[0].Status)
		assert.Contains(t, recs[0].Error, "no header row")
	})

	t.Run("filter by kind", func(t *testing.T) {
		recs, err := tracker.History(ctx, Filter{Kind: recon.UploadKindSOT})
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "hr_data", recs[0].Identifier)
	})

	t.Run("panel cascade keeps sot records", func(t *testing.T) {
		require.NoError(t, tracker.DeleteForPanel(ctx, "github"))
		recs, err := tracker.History(ctx, Filter{})
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, recon.UploadKindSOT, recs[0].Kind)
	})
}
