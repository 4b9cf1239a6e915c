package snapshot

import (
	"strings"

	"github.com/ministry-roster-api/internal/models"
	"github.com/ministry-roster-api/internal/textnorm"
)

type departmentOutcome int

const (
	departmentExact departmentOutcome = iota
	departmentCorrected
	departmentUnresolved
)

type departmentMatch struct {
	name       string
	outcome    departmentOutcome
	candidates []string
}

// departmentIndex holds the active sector names of one unit
type departmentIndex struct {
	names []string
	keys  []string
}

func newDepartmentIndex(sectors []models.CatalogRecord, unit string) departmentIndex {
	var idx departmentIndex
	seen := make(map[string]bool)
	for _, s := range sectors {
		if s.Unit != unit || !s.Active {
			continue
		}
		key := textnorm.Key(s.Name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		idx.names = append(idx.names, s.Name)
		idx.keys = append(idx.keys, key)
	}
	return idx
}

// resolve maps a raw department to a known sector name. An exact match (case
// and accent insensitive) wins; otherwise a single sector whose name contains
// the token is used. Zero or several containing sectors leave the raw value
// in place, upper-cased, and report the candidates. A unit without any active
// sector leaves every non-empty department unresolved.
func (d departmentIndex) resolve(raw string) departmentMatch {
	normalized := textnorm.Upper(raw)
	key := textnorm.Key(raw)
	if key == "" {
		return departmentMatch{name: normalized}
	}

	for i, k := range d.keys {
		if k == key {
			return departmentMatch{name: d.names[i]}
		}
	}

	var candidates []string
	for i, k := range d.keys {
		if strings.Contains(k, key) {
			candidates = append(candidates, d.names[i])
		}
	}
	if len(candidates) == 1 {
		return departmentMatch{name: candidates[0], outcome: departmentCorrected}
	}
	return departmentMatch{name: normalized, outcome: departmentUnresolved, candidates: candidates}
}
