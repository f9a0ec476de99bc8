package panels

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/reconify/pkg/errors"
	"github.com/agentstation/reconify/pkg/recon"
	"github.com/agentstation/reconify/pkg/sotstore"
)

func newTestStore(t *testing.T) (*ConfigStore, *sotstore.Registry) {
	t.Helper()
	registry := sotstore.NewRegistry(sotstore.NewMemoryStore())
	return New(NewMemoryStore(), registry), registry
}

func uploadHRData(t *testing.T, registry *sotstore.Registry) {
	t.Helper()
	_, err := registry.RegisterUpload(context.Background(), recon.SOTHRData,
		[]string{"emp_id", "email", "status"},
		[]recon.Row{{"emp_id": "E1", "email": "a@corp.test", "status": "active"}})
	require.NoError(t, err)
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	cfg, err := store.Create(ctx, "github", []string{"Login ", "Email", "Role"})
	require.NoError(t, err)
	assert.Equal(t, "github", cfg.Name)
	assert.Equal(t, []string{"login", "email", "role"}, cfg.PanelHeaders)
	assert.Empty(t, cfg.KeyMapping)

	t.Run("duplicate name rejected", func(t *testing.T) {
		_, err := store.Create(ctx, "github", []string{"login"})
		require.Error(t, err)
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("empty name rejected", func(t *testing.T) {
		_, err := store.Create(ctx, "", []string{"login"})
		require.Error(t, err)
		assert.True(t, errors.IsValidationError(err))
	})
}

func TestSetMapping(t *testing.T) {
	ctx := context.Background()
	store, registry := newTestStore(t)
	uploadHRData(t, registry)

	_, err := store.Create(ctx, "github", []string{"login", "email"})
	require.NoError(t, err)

	cfg, err := store.SetMapping(ctx, "github", recon.SOTHRData, "email", "email")
	require.NoError(t, err)
	assert.Equal(t, recon.FieldPair{SOTField: "email", PanelField: "email"}, cfg.KeyMapping[recon.SOTHRData])

	t.Run("replaces prior pair for same sot", func(t *testing.T) {
		cfg, err := store.SetMapping(ctx, "github", recon.SOTHRData, "emp_id", "login")
		require.NoError(t, err)
		require.Len(t, cfg.KeyMapping, 1)
		assert.Equal(t, recon.FieldPair{SOTField: "emp_id", PanelField: "login"}, cfg.KeyMapping[recon.SOTHRData])
	})

	t.Run("unknown sot field rejected", func(t *testing.T) {
		_, err := store.SetMapping(ctx, "github", recon.SOTHRData, "department", "email")
		require.Error(t, err)
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("unknown panel field rejected", func(t *testing.T) {
		_, err := store.SetMapping(ctx, "github", recon.SOTHRData, "email", "username")
		require.Error(t, err)
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("not yet uploaded sot is accepted", func(t *testing.T) {
		cfg, err := store.SetMapping(ctx, "github", recon.SOTServiceUsers, "user_email", "email")
		require.NoError(t, err)
		assert.Equal(t, recon.FieldPair{SOTField: "user_email", PanelField: "email"}, cfg.KeyMapping[recon.SOTServiceUsers])
	})

	t.Run("unknown panel rejected", func(t *testing.T) {
		_, err := store.SetMapping(ctx, "gitlab", recon.SOTHRData, "email", "email")
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("fields are normalized", func(t *testing.T) {
		cfg, err := store.SetMapping(ctx, "github", recon.SOTHRData, " Email ", " EMAIL")
		require.NoError(t, err)
		assert.Equal(t, recon.FieldPair{SOTField: "email", PanelField: "email"}, cfg.KeyMapping[recon.SOTHRData])
	})
}

func TestClearMapping(t *testing.T) {
	ctx := context.Background()
	store, registry := newTestStore(t)
	uploadHRData(t, registry)

	_, err := store.Create(ctx, "github", []string{"email"})
	require.NoError(t, err)
	_, err = store.SetMapping(ctx, "github", recon.SOTHRData, "email", "email")
	require.NoError(t, err)

	cfg, err := store.ClearMapping(ctx, "github", recon.SOTHRData)
	require.NoError(t, err)
	assert.Empty(t, cfg.KeyMapping)

	// Clearing an absent mapping is a no-op.
	_, err = store.ClearMapping(ctx, "github", recon.SOTHRData)
	require.NoError(t, err)
}

func TestSetHeaders(t *testing.T) {
	ctx := context.Background()
	store, registry := newTestStore(t)
	uploadHRData(t, registry)

	_, err := store.Create(ctx, "github", []string{"login", "email"})
	require.NoError(t, err)
	_, err = store.SetMapping(ctx, "github", recon.SOTHRData, "email", "email")
	require.NoError(t, err)

	t.Run("mapping survives when field remains", func(t *testing.T) {
		cfg, err := store.SetHeaders(ctx, "github", []string{"Email", "Team"})
		require.NoError(t, err)
		assert.Equal(t, []string{"email", "team"}, cfg.PanelHeaders)
		assert.Contains(t, cfg.KeyMapping, recon.SOTHRData)
	})

	t.Run("mapping dropped when field disappears", func(t *testing.T) {
		cfg, err := store.SetHeaders(ctx, "github", []string{"login", "role"})
		require.NoError(t, err)
		assert.NotContains(t, cfg.KeyMapping, recon.SOTHRData)
	})
}

func TestPanelData(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	_, err := store.Create(ctx, "github", []string{"login"})
	require.NoError(t, err)

	t.Run("no data yet", func(t *testing.T) {
		_, err := store.Data(ctx, "github")
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})

	doc := &recon.Document{
		Columns: []string{"login"},
		Rows:    []recon.Row{{"login": "octocat"}},
	}
	require.NoError(t, store.SaveData(ctx, "github", doc))

	got, err := store.Data(ctx, "github")
	require.NoError(t, err)
	assert.Equal(t, doc, got)

	t.Run("unknown panel", func(t *testing.T) {
		err := store.SaveData(ctx, "gitlab", doc)
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	_, err := store.Create(ctx, "github", []string{"login"})
	require.NoError(t, err)
	require.NoError(t, store.SaveData(ctx, "github", &recon.Document{
		Columns: []string{"login"},
		Rows:    []recon.Row{{"login": "octocat"}},
	}))

	require.NoError(t, store.Delete(ctx, "github"))

	_, err = store.Get(ctx, "github")
	assert.True(t, errors.IsNotFound(err))
	_, err = store.Data(ctx, "github")
	assert.True(t, errors.IsNotFound(err))

	t.Run("unknown panel", func(t *testing.T) {
		err := store.Delete(ctx, "github")
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestList(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	for _, name := range []string{"vpn", "github", "okta"} {
		_, err := store.Create(ctx, name, []string{"email"})
		require.NoError(t, err)
	}

	cfgs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, cfgs, 3)
	assert.Equal(t, "github", cfgs[0].Name)
	assert.Equal(t, "okta", cfgs[1].Name)
	assert.Equal(t, "vpn", cfgs[2].Name)
}
