package models

// ChangeStatus is the reconciliation outcome assigned to one record
type ChangeStatus string

const (
	StatusNew         ChangeStatus = "new"
	StatusUpdated     ChangeStatus = "updated"
	StatusInactivated ChangeStatus = "inactivated"
	StatusUnchanged   ChangeStatus = "unchanged"
)

// ValidStatuses defines the statuses an operator can confirm or filter on
var ValidStatuses = map[ChangeStatus]bool{
	StatusNew:         true,
	StatusUpdated:     true,
	StatusInactivated: true,
	StatusUnchanged:   true,
}

// Writes reports whether committing a row with this status touches the store
func (s ChangeStatus) Writes() bool {
	return s == StatusNew || s == StatusUpdated || s == StatusInactivated
}

// RowFlag marks a classified row for operator attention
type RowFlag string

const (
	// FlagDepartmentUnresolved: the department matched zero or several
	// sectors and the raw value was kept.
	FlagDepartmentUnresolved RowFlag = "department_unresolved"
	// FlagDepartmentCorrected: the department was replaced by the single
	// sector whose name contains it.
	FlagDepartmentCorrected RowFlag = "department_corrected"
)

// ChangeClassification is one row of a reconciliation report.
// Department fields are only set for roster rows.
type ChangeClassification struct {
	ID                   string       `json:"id"`
	Name                 string       `json:"name"`
	Unit                 string       `json:"unit"`
	Status               ChangeStatus `json:"status"`
	Department           string       `json:"department,omitempty"`
	PreviousName         string       `json:"previous_name,omitempty"`
	PreviousDepartment   string       `json:"previous_department,omitempty"`
	RawDepartment        string       `json:"raw_department,omitempty"`
	DepartmentCandidates []string     `json:"department_candidates,omitempty"`
	Flags                []RowFlag    `json:"flags,omitempty"`
	Line                 int          `json:"line,omitempty"`
}

// HasFlag reports whether the row carries the given flag
func (c ChangeClassification) HasFlag(flag RowFlag) bool {
	for _, f := range c.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// ParseIssue describes a snapshot line that was skipped
type ParseIssue struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
	Raw     string `json:"raw,omitempty"`
}

// ReportSummary aggregates a classification report
type ReportSummary struct {
	Total            int          `json:"total"`
	New              int          `json:"new"`
	Updated          int          `json:"updated"`
	Inactivated      int          `json:"inactivated"`
	Unchanged        int          `json:"unchanged"`
	Flagged          int          `json:"flagged"`
	SkippedLines     int          `json:"skipped_lines"`
	SkippedOtherUnit int          `json:"skipped_other_unit"`
	Duplicates       int          `json:"duplicates"`
	ParseIssues      []ParseIssue `json:"parse_issues,omitempty"`
}

// MaxReportedIssues caps the parse issues kept in a summary
const MaxReportedIssues = 100

// Summarize counts the rows of a report by status and flag
func Summarize(report []ChangeClassification) ReportSummary {
	summary := ReportSummary{Total: len(report)}
	for _, row := range report {
		switch row.Status {
		case StatusNew:
			summary.New++
		case StatusUpdated:
			summary.Updated++
		case StatusInactivated:
			summary.Inactivated++
		case StatusUnchanged:
			summary.Unchanged++
		}
		if row.HasFlag(FlagDepartmentUnresolved) {
			summary.Flagged++
		}
	}
	return summary
}

// Pending reports whether committing the summary would write anything
func (s ReportSummary) Pending() int {
	return s.New + s.Updated + s.Inactivated
}
