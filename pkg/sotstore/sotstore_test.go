package sotstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/reconify/pkg/errors"
	"github.com/agentstation/reconify/pkg/recon"
)

func testRows() []recon.Row {
	return []recon.Row{
		{"emp_id": "E1", "status": "active"},
		{"emp_id": "E2", "status": "inactive"},
	}
}

func TestRegisterUploadReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMemoryStore())

	snap, err := reg.RegisterUpload(ctx, recon.SOTInternalUsers, []string{"emp_id", "status"}, testRows())
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Version)

	// Second upload with a different schema replaces, never merges.
	snap, err = reg.RegisterUpload(ctx, recon.SOTInternalUsers, []string{"email"}, []recon.Row{{"email": "a@x.com"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.Version)

	fields, err := reg.Fields(ctx, recon.SOTInternalUsers)
	require.NoError(t, err)
	assert.Equal(t, []string{"email"}, fields)

	count, err := reg.RowCount(ctx, recon.SOTInternalUsers)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRegisterUploadValidation(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMemoryStore())

	tests := []struct {
		name    string
		columns []string
		rows    []recon.Row
	}{
		{"empty rows", []string{"emp_id"}, nil},
		{"no columns", nil, testRows()},
		{"duplicate columns", []string{"emp_id", "emp_id"}, testRows()},
		{"duplicate after normalization", []string{"Emp_ID", " emp_id "}, testRows()},
		{"blank column", []string{"emp_id", "  "}, testRows()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.RegisterUpload(ctx, recon.SOTHRData, tt.columns, tt.rows)
			require.Error(t, err)
			assert.True(t, errors.IsValidationError(err))
		})
	}

	// Failed uploads must not register anything.
	_, err := reg.Fields(ctx, recon.SOTHRData)
	assert.True(t, errors.IsNotFound(err))
}

func TestHeaderNormalization(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMemoryStore())

	_, err := reg.RegisterUpload(ctx, recon.SOTHRData, []string{" Emp_ID ", "Employment Status"}, testRows())
	require.NoError(t, err)

	fields, err := reg.Fields(ctx, recon.SOTHRData)
	require.NoError(t, err)
	assert.Equal(t, []string{"emp_id", "employment status"}, fields)
}

func TestNeverUploaded(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMemoryStore())

	_, err := reg.Fields(ctx, recon.SOTServiceUsers)
	assert.True(t, errors.IsNotFound(err))

	count, err := reg.RowCount(ctx, recon.SOTServiceUsers)
	require.NoError(t, err)
	assert.Zero(t, count)

	// Snapshot of a missing SOT is nil, not an error: partial configuration
	// is expected during setup.
	snap, err := reg.Snapshot(ctx, recon.SOTServiceUsers)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestSnapshotLookup(t *testing.T) {
	snap := &Snapshot{
		Type:    recon.SOTInternalUsers,
		Columns: []string{"emp_id", "status"},
		Rows: []recon.Row{
			{"emp_id": "E1", "status": "active"},
			{"emp_id": "", "status": "active"},
			{"emp_id": "E1", "status": "inactive"}, // duplicate key, first wins
		},
	}

	index := snap.Lookup("emp_id")
	require.Len(t, index, 1)
	assert.Equal(t, "active", index["E1"].Get("status"))
}

func TestListRegistered(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMemoryStore())

	_, err := reg.RegisterUpload(ctx, recon.SOTThirdPartyUsers, []string{"domain"}, []recon.Row{{"domain": "x.com"}})
	require.NoError(t, err)
	_, err = reg.RegisterUpload(ctx, recon.SOTHRData, []string{"emp_id"}, testRows())
	require.NoError(t, err)

	types, err := reg.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []recon.SOTType{recon.SOTHRData, recon.SOTThirdPartyUsers}, types)
}
