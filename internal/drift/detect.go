// Package drift keeps the department label of participation records in line
// with the authoritative roster.
package drift

import (
	"sort"

	"github.com/ministry-roster-api/internal/models"
)

// Correction rewrites the department label of one participation record
type Correction struct {
	Unit      string `json:"unit"`
	GroupName string `json:"group_name"`
	PersonID  string `json:"person_id"`
	From      string `json:"from"`
	To        string `json:"to"`
}

// Mutation converts the correction into a field-level store update
func (c Correction) Mutation() models.Mutation {
	return models.Mutation{
		Kind:       models.MutationSetParticipationDepartment,
		Unit:       c.Unit,
		Key:        c.PersonID,
		GroupName:  c.GroupName,
		Department: c.To,
	}
}

// LeaderDrift is a leader whose directory department disagrees with the
// roster. The leader directory is read-only, so these are only reported.
type LeaderDrift struct {
	Unit      string `json:"unit"`
	GroupName string `json:"group_name"`
	PersonID  string `json:"person_id"`
	Recorded  string `json:"recorded"`
	Roster    string `json:"roster"`
}

type personKey struct {
	unit     string
	personID string
}

func indexRoster(roster []models.RosterEntry) map[personKey]models.RosterEntry {
	idx := make(map[personKey]models.RosterEntry, len(roster))
	for _, r := range roster {
		if r.Active {
			idx[personKey{r.Unit, r.ExternalID}] = r
		}
	}
	return idx
}

// Detect returns one correction per active participation record whose
// department label differs from the active roster entry of the same person
// in the same unit. People without a roster entry, or whose roster entry has
// no department, are left alone.
func Detect(roster []models.RosterEntry, participations []models.ParticipationRecord) []Correction {
	idx := indexRoster(roster)
	var corrections []Correction
	for _, p := range participations {
		if !p.Active {
			continue
		}
		entry, ok := idx[personKey{p.Unit, p.PersonID}]
		if !ok || entry.DepartmentName == "" || entry.DepartmentName == p.DepartmentName {
			continue
		}
		corrections = append(corrections, Correction{
			Unit:      p.Unit,
			GroupName: p.GroupName,
			PersonID:  p.PersonID,
			From:      p.DepartmentName,
			To:        entry.DepartmentName,
		})
	}
	sort.Slice(corrections, func(i, j int) bool {
		a, b := corrections[i], corrections[j]
		if a.Unit != b.Unit {
			return a.Unit < b.Unit
		}
		if a.GroupName != b.GroupName {
			return a.GroupName < b.GroupName
		}
		return a.PersonID < b.PersonID
	})
	return corrections
}

// DetectLeaders reports active leaders whose recorded department differs
// from their roster department
func DetectLeaders(roster []models.RosterEntry, leaders []models.Leader) []LeaderDrift {
	idx := indexRoster(roster)
	var drifts []LeaderDrift
	for _, l := range leaders {
		if !l.Active || l.DepartmentName == "" {
			continue
		}
		entry, ok := idx[personKey{l.Unit, l.PersonID}]
		if !ok || entry.DepartmentName == "" || entry.DepartmentName == l.DepartmentName {
			continue
		}
		drifts = append(drifts, LeaderDrift{
			Unit:      l.Unit,
			GroupName: l.GroupName,
			PersonID:  l.PersonID,
			Recorded:  l.DepartmentName,
			Roster:    entry.DepartmentName,
		})
	}
	return drifts
}
