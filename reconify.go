// Package reconify reconciles user access panels against sources of truth.
// It tracks panel configurations and SOT uploads, classifies every panel
// user by matching join keys across SOTs in priority order, and drives each
// panel's reconciliation workflow from upload through completion.
package reconify

import (
	"context"
	"sort"

	"github.com/agentstation/reconify/internal/storage/sqlite"
	"github.com/agentstation/reconify/pkg/errors"
	"github.com/agentstation/reconify/pkg/ingest"
	"github.com/agentstation/reconify/pkg/logging"
	"github.com/agentstation/reconify/pkg/matcher"
	"github.com/agentstation/reconify/pkg/panels"
	"github.com/agentstation/reconify/pkg/recon"
	"github.com/agentstation/reconify/pkg/runs"
	"github.com/agentstation/reconify/pkg/sotstore"
)

// Client is the stable entry point for all reconciliation operations,
// independent of transport.
type Client interface {
	// Panel configuration.
	CreatePanel(ctx context.Context, name string, headers []string) (*recon.PanelConfig, error)
	SetMapping(ctx context.Context, panel string, t recon.SOTType, sotField, panelField string) (*recon.PanelConfig, error)
	ClearMapping(ctx context.Context, panel string, t recon.SOTType) (*recon.PanelConfig, error)
	DeletePanel(ctx context.Context, panel string) error
	Panels(ctx context.Context) ([]*recon.PanelConfig, error)
	Panel(ctx context.Context, name string) (*recon.PanelConfig, error)
	PanelHeaders(ctx context.Context, panel string) ([]string, error)

	// Sources of truth.
	UploadSOT(ctx context.Context, t recon.SOTType, fileName, uploadedBy string, data []byte) (*sotstore.Snapshot, error)
	SOTs(ctx context.Context) ([]recon.SOTType, error)
	SOTFields(ctx context.Context, t recon.SOTType) ([]string, error)
	SOTRowCount(ctx context.Context, t recon.SOTType) (int, error)

	// Reconciliation workflow.
	UploadPanelDocument(ctx context.Context, panel, fileName, uploadedBy string, data []byte) (*recon.UploadRecord, error)
	Categorize(ctx context.Context, panel string) (*runs.PanelState, error)
	Reconcile(ctx context.Context, panel, performedBy string) (*recon.ReconciliationRun, error)
	Recategorize(ctx context.Context, panel, fileName, uploadedBy string, data []byte) (*runs.RecategorizeResult, error)
	Complete(ctx context.Context, panel string) (*recon.ReconciliationRun, error)
	PanelState(ctx context.Context, panel string) (*runs.PanelState, error)

	// History and reporting.
	UploadHistory(ctx context.Context, f ingest.Filter) ([]*recon.UploadRecord, error)
	RunHistory(ctx context.Context, panel string) ([]*recon.ReconciliationRun, error)
	Summaries(ctx context.Context) ([]*recon.ReconciliationRun, error)
	SummaryDetail(ctx context.Context, reconID string) (*recon.ReconciliationRun, []*recon.UserMatchResult, error)
	UserWiseSummary(ctx context.Context) ([]*recon.UserMatchResult, error)

	Close() error
}

// client is the internal implementation of the Client interface.
type client struct {
	config   *config
	registry *sotstore.Registry
	panels   *panels.ConfigStore
	tracker  *ingest.Tracker
	parser   ingest.Parser
	manager  *runs.Manager
	db       *sqlite.Store // nil when running on in-memory stores
}

// New creates a Client with the given options. Without WithDatabase the
// client runs entirely in memory.
func New(opts ...Option) (Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	c := &client{config: cfg, parser: cfg.parser}

	var (
		sotStore   sotstore.Store
		panelStore panels.Store
		uploadLog  ingest.Log
		runStore   runs.Store
	)
	if cfg.databasePath != "" {
		db, err := sqlite.Open(cfg.databasePath)
		if err != nil {
			return nil, err
		}
		c.db = db
		sotStore = db.SOTs()
		panelStore = db.Panels()
		uploadLog = db.Uploads()
		runStore = db.Runs()
	} else {
		sotStore = sotstore.NewMemoryStore()
		panelStore = panels.NewMemoryStore()
		uploadLog = ingest.NewMemoryLog()
		runStore = runs.NewMemoryStore()
	}

	c.registry = sotstore.NewRegistry(sotStore)
	c.panels = panels.New(panelStore, c.registry)
	c.tracker = ingest.NewTracker(uploadLog)
	c.manager = runs.NewManager(c.panels, c.registry, c.tracker, c.parser,
		matcher.New(cfg.order), runStore)
	return c, nil
}

// Close releases the underlying database, if any.
func (c *client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// CreatePanel adds a panel with an empty key mapping.
func (c *client) CreatePanel(ctx context.Context, name string, headers []string) (*recon.PanelConfig, error) {
	return c.panels.Create(ctx, name, headers)
}

// SetMapping sets the panel's join key for one SOT type.
func (c *client) SetMapping(ctx context.Context, panel string, t recon.SOTType, sotField, panelField string) (*recon.PanelConfig, error) {
	return c.panels.SetMapping(ctx, panel, t, sotField, panelField)
}

// ClearMapping removes the panel's join key for one SOT type.
func (c *client) ClearMapping(ctx context.Context, panel string, t recon.SOTType) (*recon.PanelConfig, error) {
	return c.panels.ClearMapping(ctx, panel, t)
}

// DeletePanel removes the panel and everything derived from it: its row
// data, upload records, workflow state, runs, and match results. SOT data
// is shared across panels and is never part of the cascade.
func (c *client) DeletePanel(ctx context.Context, panel string) error {
	if err := c.manager.DeleteForPanel(ctx, panel); err != nil {
		return err
	}
	if err := c.tracker.DeleteForPanel(ctx, panel); err != nil {
		return err
	}
	return c.panels.Delete(ctx, panel)
}

// Panels returns every panel configuration.
func (c *client) Panels(ctx context.Context) ([]*recon.PanelConfig, error) {
	return c.panels.List(ctx)
}

// Panel returns one panel configuration by name.
func (c *client) Panel(ctx context.Context, name string) (*recon.PanelConfig, error) {
	return c.panels.Get(ctx, name)
}

// PanelHeaders returns the panel's detected column headers.
func (c *client) PanelHeaders(ctx context.Context, panel string) ([]string, error) {
	return c.panels.Headers(ctx, panel)
}

// UploadSOT parses a SOT document and installs it as the SOT's current
// snapshot, replacing the prior one wholesale. The attempt is recorded in
// the upload history whether or not it succeeds.
func (c *client) UploadSOT(ctx context.Context, t recon.SOTType, fileName, uploadedBy string, data []byte) (*sotstore.Snapshot, error) {
	ctx = logging.WithSOT(ctx, t.String())
	res, perr := c.parser.Parse(data)
	if perr != nil {
		if _, err := c.tracker.RecordFailure(ctx, recon.UploadKindSOT, t.String(), fileName, uploadedBy, perr); err != nil {
			return nil, err
		}
		return nil, perr
	}

	snap, err := c.registry.RegisterUpload(ctx, t, res.Document.Columns, res.Document.Rows)
	if err != nil {
		if errors.IsValidationError(err) {
			if _, rerr := c.tracker.RecordFailure(ctx, recon.UploadKindSOT, t.String(), fileName, uploadedBy, err); rerr != nil {
				return nil, rerr
			}
		}
		return nil, err
	}

	if _, err := c.tracker.RecordSuccess(ctx, recon.UploadKindSOT, t.String(), fileName, uploadedBy, snap.RowCount()); err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().
		Int64("version", snap.Version).
		Int("rows", snap.RowCount()).
		Msg("SOT snapshot installed")
	return snap, nil
}

// SOTs lists the known SOT types: the built-in defaults merged with every
// type that has an upload or is referenced by a panel mapping.
func (c *client) SOTs(ctx context.Context) ([]recon.SOTType, error) {
	out := recon.DefaultSOTTypes()
	seen := make(map[recon.SOTType]bool, len(out))
	for _, t := range out {
		seen[t] = true
	}

	uploaded, err := c.registry.List(ctx)
	if err != nil {
		return nil, err
	}
	cfgs, err := c.panels.List(ctx)
	if err != nil {
		return nil, err
	}

	var extras []recon.SOTType
	for _, t := range uploaded {
		if !seen[t] {
			seen[t] = true
			extras = append(extras, t)
		}
	}
	for _, cfg := range cfgs {
		for t := range cfg.KeyMapping {
			if !seen[t] {
				seen[t] = true
				extras = append(extras, t)
			}
		}
	}
	sort.Slice(extras, func(i, j int) bool { return extras[i] < extras[j] })
	return append(out, extras...), nil
}

// SOTFields returns the SOT's current column set.
func (c *client) SOTFields(ctx context.Context, t recon.SOTType) ([]string, error) {
	return c.registry.Fields(ctx, t)
}

// SOTRowCount returns the row count of the SOT's current snapshot.
func (c *client) SOTRowCount(ctx context.Context, t recon.SOTType) (int, error) {
	return c.registry.RowCount(ctx, t)
}

// UploadPanelDocument parses a panel document and installs it as the
// panel's current row set, resetting the workflow to uploaded.
func (c *client) UploadPanelDocument(ctx context.Context, panel, fileName, uploadedBy string, data []byte) (*recon.UploadRecord, error) {
	return c.manager.Upload(ctx, panel, fileName, uploadedBy, data)
}

// Categorize computes the panel's internal-vs-other split.
func (c *client) Categorize(ctx context.Context, panel string) (*runs.PanelState, error) {
	return c.manager.Categorize(ctx, panel)
}

// Reconcile runs the matching pass and persists per-user results.
func (c *client) Reconcile(ctx context.Context, panel, performedBy string) (*recon.ReconciliationRun, error) {
	return c.manager.Reconcile(ctx, panel, performedBy)
}

// Recategorize applies a manually corrected file to the current run.
func (c *client) Recategorize(ctx context.Context, panel, fileName, uploadedBy string, data []byte) (*runs.RecategorizeResult, error) {
	return c.manager.Recategorize(ctx, panel, fileName, uploadedBy, data)
}

// Complete marks the panel's current run completed.
func (c *client) Complete(ctx context.Context, panel string) (*recon.ReconciliationRun, error) {
	return c.manager.Complete(ctx, panel)
}

// PanelState returns the panel's workflow position.
func (c *client) PanelState(ctx context.Context, panel string) (*runs.PanelState, error) {
	return c.manager.State(ctx, panel)
}

// UploadHistory returns upload records matching the filter, newest first.
func (c *client) UploadHistory(ctx context.Context, f ingest.Filter) ([]*recon.UploadRecord, error) {
	return c.tracker.History(ctx, f)
}

// RunHistory returns the panel's runs, newest first. An empty panel name
// returns runs across all panels.
func (c *client) RunHistory(ctx context.Context, panel string) ([]*recon.ReconciliationRun, error) {
	return c.manager.History(ctx, panel)
}

// Summaries returns every run's summary, newest first.
func (c *client) Summaries(ctx context.Context) ([]*recon.ReconciliationRun, error) {
	return c.manager.Summaries(ctx)
}

// SummaryDetail returns one run with its full result set.
func (c *client) SummaryDetail(ctx context.Context, reconID string) (*recon.ReconciliationRun, []*recon.UserMatchResult, error) {
	return c.manager.SummaryDetail(ctx, reconID)
}

// UserWiseSummary returns every match result across all panels and runs,
// sorted by identity then panel.
func (c *client) UserWiseSummary(ctx context.Context) ([]*recon.UserMatchResult, error) {
	return c.manager.UserWiseSummary(ctx)
}
