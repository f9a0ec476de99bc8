package reconify

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/reconify/pkg/errors"
	"github.com/agentstation/reconify/pkg/ingest"
	"github.com/agentstation/reconify/pkg/priority"
	"github.com/agentstation/reconify/pkg/recon"
)

func TestNewDefaults(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	defer c.Close()

	panels, err := c.Panels(context.Background())
	require.NoError(t, err)
	assert.Empty(t, panels)
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	c, err := New()
	require.NoError(t, err)
	defer c.Close()

	_, err = c.UploadSOT(ctx, recon.SOTInternalUsers, "internal.csv", "bob",
		[]byte("emp_id,status\nE1,active\n"))
	require.NoError(t, err)

	_, err = c.CreatePanel(ctx, "P1", []string{"empid"})
	require.NoError(t, err)
	_, err = c.SetMapping(ctx, "P1", recon.SOTInternalUsers, "emp_id", "empid")
	require.NoError(t, err)

	_, err = c.UploadPanelDocument(ctx, "P1", "p1.csv", "alice", []byte("empid\nE1\nE9\n"))
	require.NoError(t, err)
	_, err = c.Categorize(ctx, "P1")
	require.NoError(t, err)

	run, err := c.Reconcile(ctx, "P1", "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, run.Summary.TotalPanelUsers)
	assert.Equal(t, 1, run.Summary.InternalUsers)
	assert.Equal(t, 1, run.Summary.NotFound)

	res, err := c.Recategorize(ctx, "P1", "fix.csv", "alice",
		[]byte("email,final_status\nE1,approved\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	done, err := c.Complete(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, recon.RunStatusCompleted, done.Status)

	t.Run("reporting views", func(t *testing.T) {
		sums, err := c.Summaries(ctx)
		require.NoError(t, err)
		require.Len(t, sums, 1)

		_, results, err := c.SummaryDetail(ctx, run.ReconID)
		require.NoError(t, err)
		assert.Len(t, results, 2)

		users, err := c.UserWiseSummary(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "E1", users[0].Identity)

		uploads, err := c.UploadHistory(ctx, ingest.Filter{})
		require.NoError(t, err)
		assert.Len(t, uploads, 2)
	})

	t.Run("delete panel cascades", func(t *testing.T) {
		require.NoError(t, c.DeletePanel(ctx, "P1"))

		panels, err := c.Panels(ctx)
		require.NoError(t, err)
		assert.Empty(t, panels)

		_, err = c.Reconcile(ctx, "P1", "alice")
		assert.True(t, errors.IsNotFound(err))

		// SOT uploads survive the cascade.
		uploads, err := c.UploadHistory(ctx, ingest.Filter{Kind: recon.UploadKindSOT})
		require.NoError(t, err)
		assert.Len(t, uploads, 1)
	})
}

func TestWithDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reconify.db")

	c, err := New(WithDatabase(path))
	require.NoError(t, err)

	_, err = c.CreatePanel(ctx, "P1", []string{"email"})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	t.Run("state survives reopen", func(t *testing.T) {
		c, err := New(WithDatabase(path))
		require.NoError(t, err)
		defer c.Close()

		cfg, err := c.Panel(ctx, "P1")
		require.NoError(t, err)
		assert.Equal(t, []string{"email"}, cfg.PanelHeaders)
	})
}

func TestWithPriorityOrder(t *testing.T) {
	ctx := context.Background()
	c, err := New(WithPriorityOrder(priority.Order{recon.SOTHRData, recon.SOTInternalUsers}))
	require.NoError(t, err)
	defer c.Close()

	_, err = c.UploadSOT(ctx, recon.SOTHRData, "hr.csv", "bob",
		[]byte("email,employment_status\na@corp.test,active\n"))
	require.NoError(t, err)
	_, err = c.UploadSOT(ctx, recon.SOTInternalUsers, "internal.csv", "bob",
		[]byte("email,status\na@corp.test,active\n"))
	require.NoError(t, err)

	_, err = c.CreatePanel(ctx, "P1", []string{"email"})
	require.NoError(t, err)
	for _, sot := range []recon.SOTType{recon.SOTHRData, recon.SOTInternalUsers} {
		_, err = c.SetMapping(ctx, "P1", sot, "email", "email")
		require.NoError(t, err)
	}

	_, err = c.UploadPanelDocument(ctx, "P1", "p1.csv", "alice", []byte("email\na@corp.test\n"))
	require.NoError(t, err)
	_, err = c.Categorize(ctx, "P1")
	require.NoError(t, err)

	run, err := c.Reconcile(ctx, "P1", "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, run.Summary.HRUsers, "hr outranks internal in the configured order")
	assert.Equal(t, 0, run.Summary.InternalUsers)
}

func TestUploadSOTFailureRecorded(t *testing.T) {
	ctx := context.Background()
	c, err := New()
	require.NoError(t, err)
	defer c.Close()

	_, err = c.UploadSOT(ctx, recon.SOTHRData, "empty.csv", "bob", nil)
	require.Error(t, err)
	assert.True(t, errors.IsParseError(err))

	uploads, err := c.UploadHistory(ctx, ingest.Filter{Kind: recon.UploadKindSOT})
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Equal(t, recon.UploadStatusFailed, uploads[0].Status)
}
