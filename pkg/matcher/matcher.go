// Package matcher classifies panel rows against source-of-truth snapshots.
// A matching pass is pure in-memory computation: all rows and snapshots are
// bound before the pass begins, so a concurrent SOT re-upload never changes
// a pass already in flight.
package matcher

import (
	"strings"

	"github.com/agentstation/reconify/pkg/priority"
	"github.com/agentstation/reconify/pkg/recon"
	"github.com/agentstation/reconify/pkg/sotstore"
)

// subStatusFields are probed on a matched SOT row, in order, to derive the
// user's activity sub-status.
var subStatusFields = []string{"status", "employment_status", "user_type"}

// Engine classifies panel rows in a configured SOT priority order. A single
// user may coincidentally match multiple SOTs; the first match in priority
// order wins.
type Engine struct {
	order priority.Order
}

// New creates an Engine with the given SOT priority order.
func New(order priority.Order) *Engine {
	if len(order) == 0 {
		order = priority.Default()
	}
	return &Engine{order: order}
}

// Input is one matching pass, fully bound: the panel's current rows, its
// key mapping, and the SOT snapshots read at the start of the pass. A nil
// snapshot for a mapped SOT means that SOT was never uploaded; lookups
// against it return no match.
type Input struct {
	PanelName  string
	ReconID    string
	ReconMonth string
	Mapping    recon.KeyMapping
	Rows       []recon.Row
	Snapshots  map[recon.SOTType]*sotstore.Snapshot
}

// index is one SOT's prepared lookup: join-key value -> first SOT row.
type index struct {
	sot        recon.SOTType
	panelField string
	rows       map[string]recon.Row
}

// Match classifies every panel row and aggregates the summary. Rows whose
// join-key values are empty or match no configured SOT are classified
// not_found; that is a valid outcome, not an error.
func (e *Engine) Match(in Input) ([]*recon.UserMatchResult, recon.Summary) {
	indexes := e.buildIndexes(in)

	results := make([]*recon.UserMatchResult, 0, len(in.Rows))
	summary := recon.Summary{
		PanelName:       in.PanelName,
		TotalPanelUsers: len(in.Rows),
	}

	for _, row := range in.Rows {
		category, sub, identity := classify(indexes, row)

		status := recon.StatusLabel(category, sub)
		results = append(results, &recon.UserMatchResult{
			Identity:      identity,
			PanelName:     in.PanelName,
			ReconID:       in.ReconID,
			ReconMonth:    in.ReconMonth,
			Category:      category,
			SubStatus:     sub,
			InitialStatus: status,
			FinalStatus:   status,
		})

		switch category {
		case recon.CategoryNotFound:
			summary.NotFound++
			continue
		case recon.CategoryInternal:
			summary.InternalUsers++
		case recon.CategoryService:
			summary.ServiceUsers++
			summary.OtherUsers++
		case recon.CategoryThirdParty:
			summary.ThirdPartyUsers++
			summary.OtherUsers++
		case recon.CategoryHR:
			summary.HRUsers++
			summary.OtherUsers++
		}
		switch sub {
		case recon.SubStatusActive:
			summary.FoundActive++
		case recon.SubStatusInactive:
			summary.FoundInactive++
		}
	}

	summary.Matched = summary.TotalPanelUsers - summary.NotFound
	return results, summary
}

// buildIndexes prepares one lookup per mapped SOT, in priority order.
// Unmapped SOTs and never-uploaded SOTs are skipped.
func (e *Engine) buildIndexes(in Input) []index {
	indexes := make([]index, 0, len(in.Mapping))
	for _, sot := range e.order {
		pair, ok := in.Mapping[sot]
		if !ok {
			continue
		}
		snap := in.Snapshots[sot]
		if snap == nil {
			continue
		}
		indexes = append(indexes, index{
			sot:        sot,
			panelField: pair.PanelField,
			rows:       snap.Lookup(pair.SOTField),
		})
	}
	return indexes
}

// classify finds the first SOT (in priority order) holding the row's
// join-key value. The comparison is a case-sensitive exact match on the
// stringified value; empty keys never match.
func classify(indexes []index, row recon.Row) (recon.Category, recon.SubStatus, string) {
	identity := ""
	for _, idx := range indexes {
		key := row.Get(idx.panelField)
		if key == "" {
			continue
		}
		if identity == "" {
			identity = key
		}
		match, ok := idx.rows[key]
		if !ok {
			continue
		}
		return recon.CategoryFor(idx.sot), subStatusOf(match), key
	}
	return recon.CategoryNotFound, recon.SubStatusUnknown, identity
}

// subStatusOf reads the activity sub-status from a matched SOT row.
// "resigned" counts as active: a resigned employee is still a live HR
// record whose panel access is expected to be under review, not a ghost.
func subStatusOf(row recon.Row) recon.SubStatus {
	for _, field := range subStatusFields {
		v := strings.ToLower(strings.TrimSpace(row.Get(field)))
		if v == "" {
			continue
		}
		switch v {
		case "active", "resigned":
			return recon.SubStatusActive
		case "inactive":
			return recon.SubStatusInactive
		default:
			return recon.SubStatusUnknown
		}
	}
	return recon.SubStatusUnknown
}
