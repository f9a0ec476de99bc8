package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/reconify/pkg/errors"
	"github.com/agentstation/reconify/pkg/ingest"
	"github.com/agentstation/reconify/pkg/matcher"
	"github.com/agentstation/reconify/pkg/panels"
	"github.com/agentstation/reconify/pkg/priority"
	"github.com/agentstation/reconify/pkg/recon"
	"github.com/agentstation/reconify/pkg/runs"
	"github.com/agentstation/reconify/pkg/sotstore"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "reconify.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPanelStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	ps := s.Panels()

	cfg := &recon.PanelConfig{
		Name: "github",
		KeyMapping: recon.KeyMapping{
			recon.SOTInternalUsers: {SOTField: "email", PanelField: "email"},
		},
		PanelHeaders: []string{"email", "role"},
	}
	require.NoError(t, ps.Save(ctx, cfg))

	got, err := ps.Load(ctx, "github")
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	t.Run("save replaces", func(t *testing.T) {
		cfg.PanelHeaders = []string{"email"}
		require.NoError(t, ps.Save(ctx, cfg))
		got, err := ps.Load(ctx, "github")
		require.NoError(t, err)
		assert.Equal(t, []string{"email"}, got.PanelHeaders)
	})

	t.Run("unknown panel", func(t *testing.T) {
		_, err := ps.Load(ctx, "ghost")
		assert.True(t, errors.Is(err, errors.ErrNotFound))
		assert.True(t, errors.Is(ps.Delete(ctx, "ghost"), errors.ErrNotFound))
	})

	t.Run("row data", func(t *testing.T) {
		doc := &recon.Document{Columns: []string{"email"}, Rows: []recon.Row{{"email": "a@corp.test"}}}
		require.NoError(t, ps.SaveData(ctx, "github", doc))
		got, err := ps.LoadData(ctx, "github")
		require.NoError(t, err)
		assert.Equal(t, doc, got)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, ps.Delete(ctx, "github"))
		_, err := ps.Load(ctx, "github")
		assert.True(t, errors.Is(err, errors.ErrNotFound))
	})
}

func TestSOTStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	registry := sotstore.NewRegistry(s.SOTs())

	snap, err := registry.RegisterUpload(ctx, recon.SOTHRData,
		[]string{"emp_id", "status"},
		[]recon.Row{{"emp_id": "E1", "status": "active"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Version)

	t.Run("versioning across uploads", func(t *testing.T) {
		snap, err := registry.RegisterUpload(ctx, recon.SOTHRData,
			[]string{"emp_id"},
			[]recon.Row{{"emp_id": "E2"}})
		require.NoError(t, err)
		assert.Equal(t, int64(2), snap.Version)

		fields, err := registry.Fields(ctx, recon.SOTHRData)
		require.NoError(t, err)
		assert.Equal(t, []string{"emp_id"}, fields)

		count, err := registry.RowCount(ctx, recon.SOTHRData)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("list", func(t *testing.T) {
		types, err := registry.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []recon.SOTType{recon.SOTHRData}, types)
	})
}

func TestUploadLogRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	tracker := ingest.NewTracker(s.Uploads())

	_, err := tracker.RecordSuccess(ctx, recon.UploadKindPanel, "github", "g.csv", "alice", 10)
	require.NoError(t, err)
	_, err = tracker.RecordFailure(ctx, recon.UploadKindPanel, "github", "bad.csv", "alice",
		errors.NewParseError("csv", "bad.csv", "no header", nil))
	require.NoError(t, err)
	_, err = tracker.RecordSuccess(ctx, recon.UploadKindSOT, "hr_data", "hr.csv", "bob", 5)
	require.NoError(t, err)

	recs, err := tracker.History(ctx, ingest.Filter{})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "hr.csv", recs[0].FileName, "newest first")

	require.NoError(t, tracker.DeleteForPanel(ctx, "github"))
	recs, err = tracker.History(ctx, ingest.Filter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, recon.UploadKindSOT, recs[0].Kind)
}

func TestWorkflowOverSQLite(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	registry := sotstore.NewRegistry(s.SOTs())
	panelStore := panels.New(s.Panels(), registry)
	tracker := ingest.NewTracker(s.Uploads())
	manager := runs.NewManager(panelStore, registry, tracker, ingest.NewCSVParser(),
		matcher.New(priority.Default()), s.Runs())

	_, err := registry.RegisterUpload(ctx, recon.SOTInternalUsers,
		[]string{"emp_id", "status"},
		[]recon.Row{{"emp_id": "E1", "status": "active"}})
	require.NoError(t, err)

	_, err = panelStore.Create(ctx, "P1", []string{"empid"})
	require.NoError(t, err)
	_, err = panelStore.SetMapping(ctx, "P1", recon.SOTInternalUsers, "emp_id", "empid")
	require.NoError(t, err)

	_, err = manager.Upload(ctx, "P1", "p1.csv", "alice", []byte("empid\nE1\nE9\n"))
	require.NoError(t, err)
	_, err = manager.Categorize(ctx, "P1")
	require.NoError(t, err)

	run, err := manager.Reconcile(ctx, "P1", "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, run.Summary.TotalPanelUsers)
	assert.Equal(t, 1, run.Summary.InternalUsers)
	assert.Equal(t, 1, run.Summary.NotFound)

	t.Run("reconcile same month reuses recon id", func(t *testing.T) {
		again, err := manager.Reconcile(ctx, "P1", "alice")
		require.NoError(t, err)
		assert.Equal(t, run.ReconID, again.ReconID)

		results, err := s.Runs().LoadResults(ctx, run.ReconID)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("recategorize and complete", func(t *testing.T) {
		res, err := manager.Recategorize(ctx, "P1", "fix.csv", "alice",
			[]byte("email,final_status\nE1,approved\n"))
		require.NoError(t, err)
		assert.Equal(t, 1, res.Updated)

		done, err := manager.Complete(ctx, "P1")
		require.NoError(t, err)
		assert.Equal(t, recon.RunStatusCompleted, done.Status)
		require.NotNil(t, done.EndedAt)
	})

	t.Run("state survives reopen", func(t *testing.T) {
		state, err := s.Runs().LoadState(ctx, "P1")
		require.NoError(t, err)
		assert.Equal(t, recon.RunStatusCompleted, state.Status)
		assert.Equal(t, run.ReconID, state.ReconID)
	})

	t.Run("delete cascade", func(t *testing.T) {
		require.NoError(t, manager.DeleteForPanel(ctx, "P1"))
		require.NoError(t, panelStore.Delete(ctx, "P1"))
		require.NoError(t, tracker.DeleteForPanel(ctx, "P1"))

		_, err := s.Runs().LoadRun(ctx, run.ReconID)
		assert.True(t, errors.Is(err, errors.ErrNotFound))
		results, err := s.Runs().ListResults(ctx)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}
