// Package reconcile diffs a parsed snapshot against the stored records of
// one catalog and one unit. It never writes; the result is a report the
// operator reviews before anything is committed.
package reconcile

import (
	"sort"

	"github.com/ministry-roster-api/internal/models"
	"github.com/ministry-roster-api/internal/snapshot"
)

// Record is implemented by every reconcilable catalog row
type Record[T any] interface {
	Key() string
	Partition() string
	IsActive() bool
	Matches(other T) bool
	Describe() models.ChangeClassification
}

// Reconcile classifies every candidate against current and reports every
// active stored record of unit that the snapshot no longer lists.
//
// Records of other units are ignored on both sides. The report lists
// inactivated rows first, then everything else by name.
func Reconcile[T Record[T]](current []T, candidates []snapshot.Candidate[T], unit string) []models.ChangeClassification {
	existing := make(map[string]T, len(current))
	for _, rec := range current {
		if rec.Partition() != unit {
			continue
		}
		existing[rec.Key()] = rec
	}

	present := make(map[string]struct{}, len(candidates))
	report := make([]models.ChangeClassification, 0, len(candidates))

	for _, c := range candidates {
		if c.Record.Partition() != unit {
			continue
		}
		key := c.Record.Key()
		present[key] = struct{}{}

		row := c.Record.Describe()
		row.Line = c.Line
		row.Flags = c.Flags
		row.RawDepartment = c.RawDepartment
		row.DepartmentCandidates = c.DepartmentCandidates

		stored, ok := existing[key]
		switch {
		case !ok:
			row.Status = models.StatusNew
		case !stored.IsActive() || !stored.Matches(c.Record):
			row.Status = models.StatusUpdated
			before := stored.Describe()
			if before.Name != row.Name {
				row.PreviousName = before.Name
			}
			if before.Department != row.Department {
				row.PreviousDepartment = before.Department
			}
		default:
			row.Status = models.StatusUnchanged
		}
		report = append(report, row)
	}

	for key, rec := range existing {
		if !rec.IsActive() {
			continue
		}
		if _, ok := present[key]; ok {
			continue
		}
		row := rec.Describe()
		row.Status = models.StatusInactivated
		report = append(report, row)
	}

	Sort(report)
	return report
}

// Sort orders a report: inactivated first, then by name, then by id
func Sort(report []models.ChangeClassification) {
	sort.SliceStable(report, func(i, j int) bool {
		a, b := report[i], report[j]
		ai, bi := a.Status == models.StatusInactivated, b.Status == models.StatusInactivated
		if ai != bi {
			return ai
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
}

// Select returns the rows an operator confirmed for commit. Rows with a
// status that does not write are always dropped.
func Select(report []models.ChangeClassification, req models.CommitRequest) []models.ChangeClassification {
	statuses := make(map[models.ChangeStatus]bool)
	for _, s := range req.Statuses {
		statuses[s] = true
	}
	excluded := make(map[string]bool, len(req.ExcludeIDs))
	for _, id := range req.ExcludeIDs {
		excluded[id] = true
	}

	var selected []models.ChangeClassification
	for _, row := range report {
		if !row.Status.Writes() || excluded[row.ID] {
			continue
		}
		if len(statuses) > 0 && !statuses[row.Status] {
			continue
		}
		selected = append(selected, row)
	}
	return selected
}
