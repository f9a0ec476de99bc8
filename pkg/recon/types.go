// Package recon defines the core data model for panel reconciliation:
// sources of truth, panel configurations, upload records, reconciliation
// runs, and per-user match results. All other packages build on these types.
package recon

import (
	"strings"
)

// SOTType identifies a source-of-truth dataset.
type SOTType string

// Known SOT types. The set is extensible by configuration; these are the
// defaults every deployment starts with.
const (
	SOTHRData          SOTType = "hr_data"
	SOTServiceUsers    SOTType = "service_users"
	SOTInternalUsers   SOTType = "internal_users"
	SOTThirdPartyUsers SOTType = "thirdparty_users"
)

// DefaultSOTTypes returns the built-in SOT types in their canonical order.
func DefaultSOTTypes() []SOTType {
	return []SOTType{SOTHRData, SOTServiceUsers, SOTInternalUsers, SOTThirdPartyUsers}
}

// String returns the string representation of the SOT type.
func (t SOTType) String() string {
	return string(t)
}

// Category classifies the SOT a panel user matched against.
type Category string

// Match categories. CategoryNotFound marks users present on the panel but
// absent from every configured SOT.
const (
	CategoryInternal   Category = "internal"
	CategoryService    Category = "service"
	CategoryThirdParty Category = "thirdparty"
	CategoryHR         Category = "hr"
	CategoryNotFound   Category = "not_found"
)

// CategoryFor maps a SOT type to the category a match against it produces.
func CategoryFor(t SOTType) Category {
	switch t {
	case SOTInternalUsers:
		return CategoryInternal
	case SOTServiceUsers:
		return CategoryService
	case SOTThirdPartyUsers:
		return CategoryThirdParty
	default:
		return CategoryHR
	}
}

// SubStatus is the activity state read from a matched SOT row.
type SubStatus string

// Sub-statuses attached to a match.
const (
	SubStatusActive   SubStatus = "active"
	SubStatusInactive SubStatus = "inactive"
	SubStatusUnknown  SubStatus = "unknown"
)

// FieldPair is the join key binding one panel column to one SOT column.
type FieldPair struct {
	SOTField   string `json:"sot_field" yaml:"sot_field"`
	PanelField string `json:"panel_field" yaml:"panel_field"`
}

// KeyMapping holds at most one field pair per SOT type. The map shape makes
// the "one mapping per SOT" invariant structural: setting a pair for a SOT
// replaces any prior pair for that SOT.
type KeyMapping map[SOTType]FieldPair

// Copy returns a deep copy of the mapping.
func (m KeyMapping) Copy() KeyMapping {
	if m == nil {
		return nil
	}
	out := make(KeyMapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// PanelConfig describes one audited panel. Name is the immutable identity key.
type PanelConfig struct {
	Name         string     `json:"name" yaml:"name"`
	KeyMapping   KeyMapping `json:"key_mapping" yaml:"key_mapping"`
	PanelHeaders []string   `json:"panel_headers" yaml:"panel_headers"`
}

// Copy returns a deep copy of the panel config.
func (p *PanelConfig) Copy() *PanelConfig {
	out := &PanelConfig{
		Name:       p.Name,
		KeyMapping: p.KeyMapping.Copy(),
	}
	if p.PanelHeaders != nil {
		out.PanelHeaders = append([]string(nil), p.PanelHeaders...)
	}
	return out
}

// Row is one parsed record, keyed by normalized column name.
type Row map[string]string

// Get returns the value for a column, tolerating a nil row.
func (r Row) Get(column string) string {
	if r == nil {
		return ""
	}
	return r[column]
}

// Document is the parsed form of an uploaded tabular file.
type Document struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// NormalizeHeader canonicalizes a column name the way uploads are ingested:
// trimmed and lower-cased. Cell values are left untouched; only headers are
// normalized so mappings survive cosmetic header changes between uploads.
func NormalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
