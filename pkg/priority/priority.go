// Package priority defines the SOT ordering policy used by the matching
// engine. A single user can coincidentally appear in more than one source of
// truth; the first match in priority order wins, so the order is a policy
// decision and lives in configuration rather than code.
package priority

import (
	"os"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/reconify/pkg/errors"
	"github.com/agentstation/reconify/pkg/recon"
)

// Order is the sequence in which SOTs are consulted during matching.
// Earlier entries win ties.
type Order []recon.SOTType

// Default returns the standard ordering: internal sources before service
// sources before third-party sources before the generic HR source.
func Default() Order {
	return Order{
		recon.SOTInternalUsers,
		recon.SOTServiceUsers,
		recon.SOTThirdPartyUsers,
		recon.SOTHRData,
	}
}

// policyFile is the on-disk shape of a priority policy.
type policyFile struct {
	Order []string `yaml:"order"`
}

// Load reads an ordering policy from a YAML file of the form:
//
//	order:
//	  - internal_users
//	  - service_users
//	  - thirdparty_users
//	  - hr_data
//
// Duplicate entries are rejected. SOT types absent from the file are
// appended in default order so a partial policy still covers every SOT.
func Load(path string) (Order, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	return Parse(data)
}

// Parse parses an ordering policy from YAML bytes.
func Parse(data []byte) (Order, error) {
	var pf policyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, errors.NewConfigError("priority", "invalid priority policy", err)
	}

	seen := make(map[recon.SOTType]bool, len(pf.Order))
	order := make(Order, 0, len(pf.Order))
	for _, s := range pf.Order {
		t := recon.SOTType(s)
		if seen[t] {
			return nil, errors.NewValidationError("order", s, "duplicate SOT type in priority policy")
		}
		seen[t] = true
		order = append(order, t)
	}

	// Backfill unmentioned defaults so every SOT has a position.
	for _, t := range Default() {
		if !seen[t] {
			order = append(order, t)
		}
	}
	return order, nil
}

// Contains reports whether the order includes the given SOT type.
func (o Order) Contains(t recon.SOTType) bool {
	for _, x := range o {
		if x == t {
			return true
		}
	}
	return false
}

// Position returns the rank of a SOT type in the order, or -1 when absent.
func (o Order) Position(t recon.SOTType) int {
	for i, x := range o {
		if x == t {
			return i
		}
	}
	return -1
}
