package models

// CoverageMode selects how a coverage scope is resolved
type CoverageMode string

const (
	CoverageDepartment CoverageMode = "department"
	CoverageGroup      CoverageMode = "group"
)

// InconsistencyReason tags why a participant is reported as inconsistent
type InconsistencyReason string

const (
	ReasonNotInRoster         InconsistencyReason = "not_in_roster"
	ReasonDivergentDepartment InconsistencyReason = "divergent_department"
)

// InconsistentMember is a participant whose membership does not match the roster
type InconsistentMember struct {
	PersonID           string              `json:"person_id"`
	Name               string              `json:"name,omitempty"`
	Reason             InconsistencyReason `json:"reason"`
	RecordedDepartment string              `json:"recorded_department,omitempty"`
	RosterDepartment   string              `json:"roster_department,omitempty"`
}

// CoverageRow is the participation coverage of one department or group
type CoverageRow struct {
	Mode                CoverageMode         `json:"mode"`
	UnitCode            string               `json:"unit_code,omitempty"`
	Unit                string               `json:"unit"`
	Name                string               `json:"name"`
	Denominator         int                  `json:"denominator"`
	Numerator           int                  `json:"numerator"`
	CoveragePercent     float64              `json:"coverage_percent"`
	BaseDepartment      string               `json:"base_department,omitempty"`
	HasBase             bool                 `json:"has_base"`
	InconsistentMembers []InconsistentMember `json:"inconsistent_members"`
}
