// Package coverage computes ministry participation coverage per department
// and per group of one unit.
//
// The numerator of a scope is the number of distinct people among its
// active participation records and the active leaders attributed to it. The
// denominator comes from the active roster headcount of a department.
// Zero denominators are not errors:
//
//   - department scope with no active roster entries: 0%
//   - group scope with no inherited department base: 100%
//
// These two defaults differ on purpose and must not be unified.
package coverage

import (
	"math"
	"sort"

	"github.com/ministry-roster-api/internal/models"
	"github.com/ministry-roster-api/internal/textnorm"
)

// Snapshot is the read-only state a coverage computation runs on
type Snapshot struct {
	Unit           string
	Roster         []models.RosterEntry
	Participations []models.ParticipationRecord
	Leaders        []models.Leader
	Sectors        []models.CatalogRecord
	Groups         []models.CatalogRecord
}

// Aggregator answers coverage queries over one Snapshot. Records outside
// the snapshot's unit are ignored.
type Aggregator struct {
	unit      string
	roster    map[string]models.RosterEntry // person id -> active entry
	headcount map[string]int                // department key -> active entries
	deptNames map[string]string             // department key -> display name
	parts     []models.ParticipationRecord
	leaders   []models.Leader
	sectors   []models.CatalogRecord
	groups    []models.CatalogRecord
}

// New indexes s for repeated queries
func New(s Snapshot) *Aggregator {
	a := &Aggregator{
		unit:      s.Unit,
		roster:    make(map[string]models.RosterEntry),
		headcount: make(map[string]int),
		deptNames: make(map[string]string),
	}
	for _, r := range s.Roster {
		if r.Unit != s.Unit || !r.Active {
			continue
		}
		a.roster[r.ExternalID] = r
		key := textnorm.Key(r.DepartmentName)
		if key == "" {
			continue
		}
		a.headcount[key]++
		if _, ok := a.deptNames[key]; !ok {
			a.deptNames[key] = r.DepartmentName
		}
	}
	for _, p := range s.Participations {
		if p.Unit == s.Unit && p.Active {
			a.parts = append(a.parts, p)
		}
	}
	for _, l := range s.Leaders {
		if l.Unit == s.Unit && l.Active {
			a.leaders = append(a.leaders, l)
		}
	}
	for _, c := range s.Sectors {
		if c.Unit == s.Unit && c.Active {
			a.sectors = append(a.sectors, c)
		}
	}
	for _, c := range s.Groups {
		if c.Unit == s.Unit && c.Active {
			a.groups = append(a.groups, c)
		}
	}
	return a
}

// member is one distinct person counted in a scope
type member struct {
	personID   string
	name       string
	department string // department the person is counted under
}

// memberSet deduplicates people by person id, keeping the first source
type memberSet struct {
	order []member
	seen  map[string]bool
}

func newMemberSet() *memberSet {
	return &memberSet{seen: make(map[string]bool)}
}

func (m *memberSet) add(mb member) {
	if mb.personID == "" || m.seen[mb.personID] {
		return
	}
	m.seen[mb.personID] = true
	m.order = append(m.order, mb)
}

func (m *memberSet) len() int { return len(m.order) }

// recordedDepartment falls back to the roster when a record carries no label
func (a *Aggregator) recordedDepartment(personID, label string) string {
	if label != "" {
		return label
	}
	return a.roster[personID].DepartmentName
}

// Department computes the coverage of one department
func (a *Aggregator) Department(name string) models.CoverageRow {
	key := textnorm.Key(name)
	members := newMemberSet()

	for _, p := range a.parts {
		dept := a.recordedDepartment(p.PersonID, p.DepartmentName)
		if textnorm.Key(dept) == key {
			members.add(member{personID: p.PersonID, name: p.PersonName, department: name})
		}
	}
	for _, l := range a.leaders {
		dept := a.recordedDepartment(l.PersonID, l.DepartmentName)
		if textnorm.Key(dept) == key {
			members.add(member{personID: l.PersonID, name: l.FullName, department: name})
		}
	}

	row := models.CoverageRow{
		Mode:        models.CoverageDepartment,
		UnitCode:    a.catalogCode(a.sectors, key),
		Unit:        a.unit,
		Name:        name,
		Denominator: a.headcount[key],
		Numerator:   members.len(),
		HasBase:     true,
	}
	// Empty department: nobody to cover.
	row.CoveragePercent = percent(row.Numerator, row.Denominator, 0)
	row.InconsistentMembers = a.inconsistencies(members)
	return row
}

// Group computes the coverage of one group. The denominator is the
// headcount of the leader's department; a group without a leader counts
// its own participants as both numerator and denominator.
func (a *Aggregator) Group(name string) models.CoverageRow {
	key := textnorm.Key(name)
	members := newMemberSet()

	for _, p := range a.parts {
		if textnorm.Key(p.GroupName) == key {
			members.add(member{
				personID:   p.PersonID,
				name:       p.PersonName,
				department: a.recordedDepartment(p.PersonID, p.DepartmentName),
			})
		}
	}

	var leader *models.Leader
	for i, l := range a.leaders {
		if textnorm.Key(l.GroupName) != key {
			continue
		}
		if leader == nil {
			leader = &a.leaders[i]
		}
		// A leader always participates in their own group.
		members.add(member{
			personID:   l.PersonID,
			name:       l.FullName,
			department: a.recordedDepartment(l.PersonID, l.DepartmentName),
		})
	}

	row := models.CoverageRow{
		Mode:      models.CoverageGroup,
		UnitCode:  a.catalogCode(a.groups, key),
		Unit:      a.unit,
		Name:      name,
		Numerator: members.len(),
	}
	if leader != nil {
		base := a.recordedDepartment(leader.PersonID, leader.DepartmentName)
		row.BaseDepartment = base
		row.HasBase = base != ""
		row.Denominator = a.headcount[textnorm.Key(base)]
	} else {
		row.Denominator = row.Numerator
	}
	// No traceable department base: trivially fully covered.
	row.CoveragePercent = percent(row.Numerator, row.Denominator, 100)
	row.InconsistentMembers = a.inconsistencies(members)
	return row
}

// Departments computes coverage for every active sector of the unit and
// every roster department missing from the sector catalog, sorted by name.
func (a *Aggregator) Departments() []models.CoverageRow {
	names := make(map[string]string)
	for _, s := range a.sectors {
		if key := textnorm.Key(s.Name); key != "" {
			names[key] = s.Name
		}
	}
	for key, name := range a.deptNames {
		if _, ok := names[key]; !ok {
			names[key] = name
		}
	}
	return a.rows(names, a.Department)
}

// Groups computes coverage for every active group of the unit and every
// group that has an active leader, sorted by name.
func (a *Aggregator) Groups() []models.CoverageRow {
	names := make(map[string]string)
	for _, g := range a.groups {
		if key := textnorm.Key(g.Name); key != "" {
			names[key] = g.Name
		}
	}
	for _, l := range a.leaders {
		key := textnorm.Key(l.GroupName)
		if _, ok := names[key]; key != "" && !ok {
			names[key] = l.GroupName
		}
	}
	return a.rows(names, a.Group)
}

func (a *Aggregator) rows(names map[string]string, compute func(string) models.CoverageRow) []models.CoverageRow {
	keys := make([]string, 0, len(names))
	for key := range names {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([]models.CoverageRow, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, compute(names[key]))
	}
	return rows
}

// inconsistencies reports members missing from the active roster and
// members whose roster department differs from the one they are counted under
func (a *Aggregator) inconsistencies(members *memberSet) []models.InconsistentMember {
	out := make([]models.InconsistentMember, 0)
	for _, m := range members.order {
		entry, ok := a.roster[m.personID]
		switch {
		case !ok:
			out = append(out, models.InconsistentMember{
				PersonID:           m.personID,
				Name:               m.name,
				Reason:             models.ReasonNotInRoster,
				RecordedDepartment: m.department,
			})
		case m.department != "" && !textnorm.Equal(entry.DepartmentName, m.department):
			name := m.name
			if name == "" {
				name = entry.FullName
			}
			out = append(out, models.InconsistentMember{
				PersonID:           m.personID,
				Name:               name,
				Reason:             models.ReasonDivergentDepartment,
				RecordedDepartment: m.department,
				RosterDepartment:   entry.DepartmentName,
			})
		}
	}
	return out
}

func (a *Aggregator) catalogCode(records []models.CatalogRecord, key string) string {
	for _, r := range records {
		if textnorm.Key(r.Name) == key {
			return r.ID
		}
	}
	return ""
}

// percent returns numerator/denominator*100 rounded to one decimal, or
// whenZero when the denominator is 0
func percent(numerator, denominator int, whenZero float64) float64 {
	if denominator <= 0 {
		return whenZero
	}
	p := float64(numerator) / float64(denominator) * 100
	return math.Round(p*10) / 10
}
