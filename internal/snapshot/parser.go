// Package snapshot turns operator-pasted roster and catalog text into
// candidate records for reconciliation.
//
// Input is one record per line with fields separated by ';' (or a tab when
// the line has no ';'). The first line is a header and is always dropped.
// Lines with fewer than two usable fields are skipped and reported, never
// fatal.
package snapshot

import (
	"fmt"
	"strings"

	"github.com/ministry-roster-api/internal/models"
	"github.com/ministry-roster-api/internal/textnorm"
)

// Column positions per catalog
const (
	rosterIDCol         = 0
	rosterNameCol       = 1
	rosterDepartmentCol = 2
	rosterUnitCol       = 3

	catalogIDCol   = 0
	catalogNameCol = 1
	catalogUnitCol = 2
)

// Candidate is a parsed record plus the line it came from
type Candidate[T any] struct {
	Record               T
	Line                 int
	Flags                []models.RowFlag
	RawDepartment        string
	DepartmentCandidates []string
}

// Result is the outcome of parsing one snapshot for one unit
type Result[T any] struct {
	Candidates []Candidate[T]
	IDs        map[string]struct{}
	Issues     []models.ParseIssue
	Skipped    int
	OtherUnit  int
	Duplicates int
}

// Summary folds the parse counters into a report summary
func (r *Result[T]) Summary(summary models.ReportSummary) models.ReportSummary {
	summary.SkippedLines = r.Skipped
	summary.SkippedOtherUnit = r.OtherUnit
	summary.Duplicates = r.Duplicates
	summary.ParseIssues = r.Issues
	return summary
}

func (r *Result[T]) addIssue(line int, raw, format string, args ...any) {
	r.Skipped++
	if len(r.Issues) < models.MaxReportedIssues {
		r.Issues = append(r.Issues, models.ParseIssue{
			Line:    line,
			Message: fmt.Sprintf(format, args...),
			Raw:     raw,
		})
	}
}

type row struct {
	line   int
	raw    string
	fields []string
}

func (r row) field(i int) string {
	if i < len(r.fields) {
		return r.fields[i]
	}
	return ""
}

func (r row) nonEmpty() int {
	n := 0
	for _, f := range r.fields {
		if f != "" {
			n++
		}
	}
	return n
}

// Parser parses snapshots using a unit vocabulary
type Parser struct {
	units *UnitResolver
}

// NewParser creates a parser that resolves unit fields with units
func NewParser(units *UnitResolver) *Parser {
	return &Parser{units: units}
}

// ParseRoster parses a workforce roster snapshot for unit. sectors is the
// sector catalog used to correct department names; only active sectors of
// unit are considered.
func (p *Parser) ParseRoster(text, unit string, sectors []models.CatalogRecord) (*Result[models.RosterEntry], error) {
	departments := newDepartmentIndex(sectors, unit)
	return collect(p, text, unit, rosterUnitCol, func(r row) (Candidate[models.RosterEntry], string) {
		id := r.field(rosterIDCol)
		name := textnorm.Upper(r.field(rosterNameCol))
		if id == "" || name == "" {
			return Candidate[models.RosterEntry]{}, "missing employee id or name"
		}
		c := Candidate[models.RosterEntry]{
			Record: models.RosterEntry{
				ExternalID: id,
				FullName:   name,
				Active:     true,
			},
			Line: r.line,
		}
		raw := r.field(rosterDepartmentCol)
		match := departments.resolve(raw)
		c.Record.DepartmentName = match.name
		switch match.outcome {
		case departmentCorrected:
			c.Flags = append(c.Flags, models.FlagDepartmentCorrected)
			c.RawDepartment = raw
		case departmentUnresolved:
			c.Flags = append(c.Flags, models.FlagDepartmentUnresolved)
			c.RawDepartment = raw
			c.DepartmentCandidates = match.candidates
		}
		return c, ""
	}, func(c *Candidate[models.RosterEntry], unit string) { c.Record.Unit = unit })
}

// ParseCatalog parses a sector or group catalog snapshot for unit
func (p *Parser) ParseCatalog(catalog models.Catalog, text, unit string) (*Result[models.CatalogRecord], error) {
	return collect(p, text, unit, catalogUnitCol, func(r row) (Candidate[models.CatalogRecord], string) {
		id := r.field(catalogIDCol)
		name := textnorm.Upper(r.field(catalogNameCol))
		if id == "" || name == "" {
			return Candidate[models.CatalogRecord]{}, "missing code or name"
		}
		return Candidate[models.CatalogRecord]{
			Record: models.CatalogRecord{
				Catalog: catalog,
				ID:      id,
				Name:    name,
				Active:  true,
			},
			Line: r.line,
		}, ""
	}, func(c *Candidate[models.CatalogRecord], unit string) { c.Record.Unit = unit })
}

// collect runs the shared row pipeline: split, build, resolve unit, keep
// only rows of the target unit, drop repeated ids (first occurrence wins).
func collect[T interface{ Key() string }](
	p *Parser,
	text, unit string,
	unitCol int,
	build func(row) (Candidate[T], string),
	setUnit func(*Candidate[T], string),
) (*Result[T], error) {
	result := &Result[T]{IDs: make(map[string]struct{})}
	valid := 0

	for _, r := range splitRows(text) {
		if r.nonEmpty() < 2 {
			result.addIssue(r.line, r.raw, "expected at least two non-empty fields")
			continue
		}
		c, problem := build(r)
		if problem != "" {
			result.addIssue(r.line, r.raw, "%s", problem)
			continue
		}
		valid++

		rowUnit := unit
		if code, ok := p.units.Resolve(r.field(unitCol)); ok {
			rowUnit = code
		}
		if rowUnit != unit {
			result.OtherUnit++
			continue
		}
		setUnit(&c, rowUnit)

		key := c.Record.Key()
		if _, seen := result.IDs[key]; seen {
			result.Duplicates++
			continue
		}
		result.IDs[key] = struct{}{}
		result.Candidates = append(result.Candidates, c)
	}

	if valid == 0 {
		return nil, &models.ValidationError{
			Message: "snapshot contains no valid rows",
			Issues:  result.Issues,
		}
	}
	if len(result.Candidates) == 0 {
		return nil, &models.ValidationError{
			Message: fmt.Sprintf("snapshot contains no rows for unit %s (%d rows belong to other units)", unit, result.OtherUnit),
			Issues:  result.Issues,
		}
	}
	return result, nil
}

// splitRows splits text into data rows, dropping the header line
func splitRows(text string) []row {
	text = strings.TrimPrefix(text, "\ufeff")
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	// Leading blank lines do not count as the header.
	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}

	var rows []row
	for i := start + 1; i < len(lines); i++ {
		raw := strings.TrimRight(lines[i], "\r")
		if strings.TrimSpace(raw) == "" {
			continue
		}
		rows = append(rows, row{line: i + 1, raw: raw, fields: splitFields(raw)})
	}
	return rows
}

func splitFields(line string) []string {
	sep := ";"
	if !strings.Contains(line, sep) {
		sep = "\t"
	}
	parts := strings.Split(line, sep)
	for i, part := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(part), `"`)
	}
	return parts
}
