package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/reconify/pkg/priority"
	"github.com/agentstation/reconify/pkg/recon"
	"github.com/agentstation/reconify/pkg/sotstore"
)

func snapshot(t recon.SOTType, columns []string, rows ...recon.Row) *sotstore.Snapshot {
	return &sotstore.Snapshot{Type: t, Version: 1, Columns: columns, Rows: rows}
}

func TestMatchInternalActive(t *testing.T) {
	engine := New(priority.Default())

	results, summary := engine.Match(Input{
		PanelName:  "P1",
		ReconID:    "RCN_0a1b2c3d",
		ReconMonth: "Sep'26",
		Mapping: recon.KeyMapping{
			recon.SOTInternalUsers: {SOTField: "emp_id", PanelField: "empid"},
		},
		Rows: []recon.Row{{"empid": "E1"}},
		Snapshots: map[recon.SOTType]*sotstore.Snapshot{
			recon.SOTInternalUsers: snapshot(recon.SOTInternalUsers,
				[]string{"emp_id", "status"},
				recon.Row{"emp_id": "E1", "status": "active"}),
		},
	})

	require.Len(t, results, 1)
	assert.Equal(t, "E1", results[0].Identity)
	assert.Equal(t, recon.CategoryInternal, results[0].Category)
	assert.Equal(t, "internal/active", results[0].InitialStatus)
	assert.Equal(t, results[0].InitialStatus, results[0].FinalStatus)

	assert.Equal(t, 1, summary.TotalPanelUsers)
	assert.Equal(t, 1, summary.InternalUsers)
	assert.Equal(t, 1, summary.FoundActive)
	assert.Equal(t, 0, summary.NotFound)
	assert.Equal(t, 1, summary.Matched)
}

func TestMatchInactive(t *testing.T) {
	engine := New(nil)

	_, summary := engine.Match(Input{
		PanelName: "P1",
		Mapping: recon.KeyMapping{
			recon.SOTInternalUsers: {SOTField: "emp_id", PanelField: "empid"},
		},
		Rows: []recon.Row{{"empid": "E1"}},
		Snapshots: map[recon.SOTType]*sotstore.Snapshot{
			recon.SOTInternalUsers: snapshot(recon.SOTInternalUsers,
				[]string{"emp_id", "status"},
				recon.Row{"emp_id": "E1", "status": "inactive"}),
		},
	})

	assert.Equal(t, 1, summary.FoundInactive)
	assert.Equal(t, 0, summary.FoundActive)
}

func TestMatchNotFound(t *testing.T) {
	engine := New(nil)

	results, summary := engine.Match(Input{
		PanelName: "P1",
		Mapping: recon.KeyMapping{
			recon.SOTInternalUsers: {SOTField: "emp_id", PanelField: "empid"},
		},
		Rows: []recon.Row{{"empid": "E9"}},
		Snapshots: map[recon.SOTType]*sotstore.Snapshot{
			recon.SOTInternalUsers: snapshot(recon.SOTInternalUsers,
				[]string{"emp_id"},
				recon.Row{"emp_id": "E1"}),
		},
	})

	require.Len(t, results, 1)
	assert.Equal(t, recon.CategoryNotFound, results[0].Category)
	assert.Equal(t, "not_found", results[0].InitialStatus)
	assert.Equal(t, 1, summary.NotFound)
	assert.Equal(t, 0, summary.Matched)
}

func TestMatchEmptyMapping(t *testing.T) {
	engine := New(nil)

	results, summary := engine.Match(Input{
		PanelName: "P1",
		Mapping:   recon.KeyMapping{},
		Rows:      []recon.Row{{"empid": "E1"}, {"empid": "E2"}, {"empid": "E3"}},
	})

	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, recon.CategoryNotFound, r.Category)
	}
	assert.Equal(t, 3, summary.NotFound)
	assert.Equal(t, 0, summary.Matched)
}

func TestMatchPriorityOrder(t *testing.T) {
	// The same user exists in both internal_users and hr_data; internal
	// outranks hr in the default order and must win.
	engine := New(priority.Default())

	results, summary := engine.Match(Input{
		PanelName: "P1",
		Mapping: recon.KeyMapping{
			recon.SOTInternalUsers: {SOTField: "email", PanelField: "email"},
			recon.SOTHRData:        {SOTField: "email", PanelField: "email"},
		},
		Rows: []recon.Row{{"email": "a@corp.test"}},
		Snapshots: map[recon.SOTType]*sotstore.Snapshot{
			recon.SOTInternalUsers: snapshot(recon.SOTInternalUsers,
				[]string{"email", "status"},
				recon.Row{"email": "a@corp.test", "status": "active"}),
			recon.SOTHRData: snapshot(recon.SOTHRData,
				[]string{"email", "employment_status"},
				recon.Row{"email": "a@corp.test", "employment_status": "inactive"}),
		},
	})

	require.Len(t, results, 1)
	assert.Equal(t, recon.CategoryInternal, results[0].Category)
	assert.Equal(t, 1, summary.InternalUsers)
	assert.Equal(t, 0, summary.HRUsers)

	t.Run("custom order flips the winner", func(t *testing.T) {
		flipped := New(priority.Order{recon.SOTHRData, recon.SOTInternalUsers})
		results, _ := flipped.Match(Input{
			PanelName: "P1",
			Mapping: recon.KeyMapping{
				recon.SOTInternalUsers: {SOTField: "email", PanelField: "email"},
				recon.SOTHRData:        {SOTField: "email", PanelField: "email"},
			},
			Rows: []recon.Row{{"email": "a@corp.test"}},
			Snapshots: map[recon.SOTType]*sotstore.Snapshot{
				recon.SOTInternalUsers: snapshot(recon.SOTInternalUsers,
					[]string{"email"}, recon.Row{"email": "a@corp.test"}),
				recon.SOTHRData: snapshot(recon.SOTHRData,
					[]string{"email", "employment_status"},
					recon.Row{"email": "a@corp.test", "employment_status": "active"}),
			},
		})
		require.Len(t, results, 1)
		assert.Equal(t, recon.CategoryHR, results[0].Category)
	})
}

func TestMatchCaseSensitive(t *testing.T) {
	engine := New(nil)

	_, summary := engine.Match(Input{
		PanelName: "P1",
		Mapping: recon.KeyMapping{
			recon.SOTInternalUsers: {SOTField: "email", PanelField: "email"},
		},
		Rows: []recon.Row{{"email": "A@corp.test"}},
		Snapshots: map[recon.SOTType]*sotstore.Snapshot{
			recon.SOTInternalUsers: snapshot(recon.SOTInternalUsers,
				[]string{"email"}, recon.Row{"email": "a@corp.test"}),
		},
	})

	assert.Equal(t, 1, summary.NotFound)
}

func TestMatchEmptyKeyValue(t *testing.T) {
	engine := New(nil)

	results, _ := engine.Match(Input{
		PanelName: "P1",
		Mapping: recon.KeyMapping{
			recon.SOTInternalUsers: {SOTField: "emp_id", PanelField: "empid"},
		},
		Rows: []recon.Row{{"empid": ""}},
		Snapshots: map[recon.SOTType]*sotstore.Snapshot{
			recon.SOTInternalUsers: snapshot(recon.SOTInternalUsers,
				[]string{"emp_id"}, recon.Row{"emp_id": ""}),
		},
	})

	require.Len(t, results, 1)
	assert.Equal(t, recon.CategoryNotFound, results[0].Category)
	assert.Empty(t, results[0].Identity)
}

func TestMatchMissingSnapshot(t *testing.T) {
	// Mapped SOT never uploaded: lookups return no match, not an error.
	engine := New(nil)

	_, summary := engine.Match(Input{
		PanelName: "P1",
		Mapping: recon.KeyMapping{
			recon.SOTInternalUsers: {SOTField: "emp_id", PanelField: "empid"},
		},
		Rows:      []recon.Row{{"empid": "E1"}},
		Snapshots: map[recon.SOTType]*sotstore.Snapshot{},
	})

	assert.Equal(t, 1, summary.NotFound)
}

func TestSubStatus(t *testing.T) {
	tests := []struct {
		name string
		row  recon.Row
		want recon.SubStatus
	}{
		{"active", recon.Row{"status": "active"}, recon.SubStatusActive},
		{"active mixed case", recon.Row{"status": " Active "}, recon.SubStatusActive},
		{"resigned counts as active", recon.Row{"employment_status": "Resigned"}, recon.SubStatusActive},
		{"inactive", recon.Row{"status": "inactive"}, recon.SubStatusInactive},
		{"unrecognized value", recon.Row{"status": "on_leave"}, recon.SubStatusUnknown},
		{"no status field", recon.Row{"emp_id": "E1"}, recon.SubStatusUnknown},
		{"falls through empty fields", recon.Row{"status": "", "user_type": "inactive"}, recon.SubStatusInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, subStatusOf(tt.row))
		})
	}
}

func TestMatchSummaryOtherUsers(t *testing.T) {
	engine := New(nil)

	_, summary := engine.Match(Input{
		PanelName: "P1",
		Mapping: recon.KeyMapping{
			recon.SOTInternalUsers:   {SOTField: "email", PanelField: "email"},
			recon.SOTServiceUsers:    {SOTField: "email", PanelField: "email"},
			recon.SOTThirdPartyUsers: {SOTField: "email", PanelField: "email"},
			recon.SOTHRData:          {SOTField: "email", PanelField: "email"},
		},
		Rows: []recon.Row{
			{"email": "int@corp.test"},
			{"email": "svc@corp.test"},
			{"email": "3p@corp.test"},
			{"email": "hr@corp.test"},
			{"email": "ghost@corp.test"},
		},
		Snapshots: map[recon.SOTType]*sotstore.Snapshot{
			recon.SOTInternalUsers: snapshot(recon.SOTInternalUsers,
				[]string{"email", "status"}, recon.Row{"email": "int@corp.test", "status": "active"}),
			recon.SOTServiceUsers: snapshot(recon.SOTServiceUsers,
				[]string{"email"}, recon.Row{"email": "svc@corp.test"}),
			recon.SOTThirdPartyUsers: snapshot(recon.SOTThirdPartyUsers,
				[]string{"email"}, recon.Row{"email": "3p@corp.test"}),
			recon.SOTHRData: snapshot(recon.SOTHRData,
				[]string{"email", "employment_status"}, recon.Row{"email": "hr@corp.test", "employment_status": "inactive"}),
		},
	})

	assert.Equal(t, 5, summary.TotalPanelUsers)
	assert.Equal(t, 1, summary.InternalUsers)
	assert.Equal(t, 1, summary.ServiceUsers)
	assert.Equal(t, 1, summary.ThirdPartyUsers)
	assert.Equal(t, 1, summary.HRUsers)
	assert.Equal(t, 3, summary.OtherUsers)
	assert.Equal(t, 1, summary.FoundActive)
	assert.Equal(t, 1, summary.FoundInactive)
	assert.Equal(t, 1, summary.NotFound)
	assert.Equal(t, 4, summary.Matched)
}
