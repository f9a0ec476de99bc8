// Package panels manages panel configurations: the identity of each audited
// panel, its detected column headers, and the key mappings that join panel
// records to sources of truth.
package panels

import (
	"context"

	"github.com/agentstation/reconify/pkg/errors"
	"github.com/agentstation/reconify/pkg/logging"
	"github.com/agentstation/reconify/pkg/recon"
	"github.com/agentstation/reconify/pkg/sotstore"
)

// Store persists panel configurations and each panel's current row set.
// Load returns errors.ErrNotFound for unknown panels.
type Store interface {
	Load(ctx context.Context, name string) (*recon.PanelConfig, error)
	Save(ctx context.Context, cfg *recon.PanelConfig) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]*recon.PanelConfig, error)

	// Current row set from the panel's most recent successful upload.
	SaveData(ctx context.Context, name string, doc *recon.Document) error
	LoadData(ctx context.Context, name string) (*recon.Document, error)
	DeleteData(ctx context.Context, name string) error
}

// ConfigStore validates panel mutations on top of a Store. Mapping fields
// are checked against the panel's headers and, when the SOT has been
// uploaded, against the SOT's current schema.
type ConfigStore struct {
	store    Store
	registry *sotstore.Registry
}

// New creates a ConfigStore backed by the given store and SOT registry.
func New(store Store, registry *sotstore.Registry) *ConfigStore {
	return &ConfigStore{store: store, registry: registry}
}

// Create adds a panel with an empty key mapping. The name is the panel's
// immutable identity; creating a second panel with the same name fails.
func (c *ConfigStore) Create(ctx context.Context, name string, panelHeaders []string) (*recon.PanelConfig, error) {
	if name == "" {
		return nil, errors.NewValidationError("name", name, "panel name is required")
	}

	if _, err := c.store.Load(ctx, name); err == nil {
		return nil, errors.NewValidationError("name", name, "panel already exists")
	} else if !errors.IsNotFound(err) {
		return nil, errors.WrapPersistence("load", "panel", err)
	}

	cfg := &recon.PanelConfig{
		Name:         name,
		KeyMapping:   recon.KeyMapping{},
		PanelHeaders: normalizeHeaders(panelHeaders),
	}
	if err := c.store.Save(ctx, cfg); err != nil {
		return nil, errors.WrapPersistence("save", "panel", err)
	}

	logging.Ctx(ctx).Info().Str("panel", name).Msg("Panel created")
	return cfg.Copy(), nil
}

// SetMapping sets the join key for one SOT type, replacing any prior pair
// for that SOT. A panel holds at most one field pair per SOT type; that
// invariant is structural in recon.KeyMapping.
//
// panelField must be one of the panel's detected headers. sotField is
// validated against the SOT's current schema when the SOT has been
// uploaded; a mapping against a not-yet-uploaded SOT is accepted, since
// partial configuration is expected during setup.
func (c *ConfigStore) SetMapping(ctx context.Context, panelName string, t recon.SOTType, sotField, panelField string) (*recon.PanelConfig, error) {
	cfg, err := c.load(ctx, panelName)
	if err != nil {
		return nil, err
	}

	sotField = recon.NormalizeHeader(sotField)
	panelField = recon.NormalizeHeader(panelField)
	if sotField == "" || panelField == "" {
		return nil, errors.NewValidationError("mapping", nil, "both sot_field and panel_field are required")
	}

	if !contains(cfg.PanelHeaders, panelField) {
		return nil, errors.NewValidationError("panel_field", panelField, "field not present in panel headers")
	}

	snap, err := c.registry.Snapshot(ctx, t)
	if err != nil {
		return nil, err
	}
	if snap != nil && !snap.HasColumn(sotField) {
		return nil, errors.NewValidationError("sot_field", sotField, "field not present in SOT schema")
	}

	if cfg.KeyMapping == nil {
		cfg.KeyMapping = recon.KeyMapping{}
	}
	cfg.KeyMapping[t] = recon.FieldPair{SOTField: sotField, PanelField: panelField}

	if err := c.store.Save(ctx, cfg); err != nil {
		return nil, errors.WrapPersistence("save", "panel", err)
	}

	logging.Ctx(ctx).Info().
		Str("panel", panelName).
		Str("sot", t.String()).
		Str("sot_field", sotField).
		Str("panel_field", panelField).
		Msg("Panel mapping set")
	return cfg.Copy(), nil
}

// ClearMapping removes the join key for one SOT type. Clearing an absent
// mapping is a no-op success.
func (c *ConfigStore) ClearMapping(ctx context.Context, panelName string, t recon.SOTType) (*recon.PanelConfig, error) {
	cfg, err := c.load(ctx, panelName)
	if err != nil {
		return nil, err
	}
	delete(cfg.KeyMapping, t)
	if err := c.store.Save(ctx, cfg); err != nil {
		return nil, errors.WrapPersistence("save", "panel", err)
	}
	return cfg.Copy(), nil
}

// SetHeaders replaces the panel's detected headers after a re-upload.
// Mappings whose panel field disappeared from the new headers are dropped:
// a mapping must always point at a real column.
func (c *ConfigStore) SetHeaders(ctx context.Context, panelName string, headers []string) (*recon.PanelConfig, error) {
	cfg, err := c.load(ctx, panelName)
	if err != nil {
		return nil, err
	}

	cfg.PanelHeaders = normalizeHeaders(headers)
	for t, pair := range cfg.KeyMapping {
		if !contains(cfg.PanelHeaders, pair.PanelField) {
			logging.Ctx(ctx).Warn().
				Str("panel", panelName).
				Str("sot", t.String()).
				Str("panel_field", pair.PanelField).
				Msg("Dropping mapping: field missing from re-uploaded headers")
			delete(cfg.KeyMapping, t)
		}
	}

	if err := c.store.Save(ctx, cfg); err != nil {
		return nil, errors.WrapPersistence("save", "panel", err)
	}
	return cfg.Copy(), nil
}

// SaveData replaces the panel's current row set.
func (c *ConfigStore) SaveData(ctx context.Context, panelName string, doc *recon.Document) error {
	if _, err := c.load(ctx, panelName); err != nil {
		return err
	}
	if err := c.store.SaveData(ctx, panelName, doc); err != nil {
		return errors.WrapPersistence("save", "panel data", err)
	}
	return nil
}

// Data returns the panel's current row set from its most recent upload.
func (c *ConfigStore) Data(ctx context.Context, panelName string) (*recon.Document, error) {
	if _, err := c.load(ctx, panelName); err != nil {
		return nil, err
	}
	doc, err := c.store.LoadData(ctx, panelName)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NewNotFoundError("panel data", panelName)
		}
		return nil, errors.WrapPersistence("load", "panel data", err)
	}
	return doc, nil
}

// Get returns the panel configuration by name.
func (c *ConfigStore) Get(ctx context.Context, panelName string) (*recon.PanelConfig, error) {
	cfg, err := c.load(ctx, panelName)
	if err != nil {
		return nil, err
	}
	return cfg.Copy(), nil
}

// List returns every panel configuration.
func (c *ConfigStore) List(ctx context.Context) ([]*recon.PanelConfig, error) {
	cfgs, err := c.store.List(ctx)
	if err != nil {
		return nil, errors.WrapPersistence("list", "panels", err)
	}
	out := make([]*recon.PanelConfig, len(cfgs))
	for i, cfg := range cfgs {
		out[i] = cfg.Copy()
	}
	return out, nil
}

// Headers returns the panel's detected column headers.
func (c *ConfigStore) Headers(ctx context.Context, panelName string) ([]string, error) {
	cfg, err := c.load(ctx, panelName)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), cfg.PanelHeaders...), nil
}

// Delete removes the panel configuration and its row data. Cascading
// deletion of upload history and reconciliation runs is orchestrated by
// the client facade, which owns those stores.
func (c *ConfigStore) Delete(ctx context.Context, panelName string) error {
	if _, err := c.load(ctx, panelName); err != nil {
		return err
	}
	if err := c.store.DeleteData(ctx, panelName); err != nil && !errors.IsNotFound(err) {
		return errors.WrapPersistence("delete", "panel data", err)
	}
	if err := c.store.Delete(ctx, panelName); err != nil {
		return errors.WrapPersistence("delete", "panel", err)
	}
	logging.Ctx(ctx).Info().Str("panel", panelName).Msg("Panel deleted")
	return nil
}

// load fetches a panel config, mapping storage not-found onto the domain
// not-found error.
func (c *ConfigStore) load(ctx context.Context, name string) (*recon.PanelConfig, error) {
	cfg, err := c.store.Load(ctx, name)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NewNotFoundError("panel", name)
		}
		return nil, errors.WrapPersistence("load", "panel", err)
	}
	return cfg, nil
}

func normalizeHeaders(headers []string) []string {
	out := make([]string, 0, len(headers))
	for _, h := range headers {
		n := recon.NormalizeHeader(h)
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
