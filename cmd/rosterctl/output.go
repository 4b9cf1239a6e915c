package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/ministry-roster-api/internal/models"
)

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSummary(w io.Writer, s *models.ImportSession) {
	sum := s.Summary
	fmt.Fprintf(w, "session %s  catalog=%s unit=%s state=%s\n", s.ID, s.Catalog, s.Unit, s.State)
	fmt.Fprintf(w, "new=%d updated=%d inactivated=%d unchanged=%d flagged=%d\n",
		sum.New, sum.Updated, sum.Inactivated, sum.Unchanged, sum.Flagged)
	fmt.Fprintf(w, "skipped=%d other_unit=%d duplicates=%d\n",
		sum.SkippedLines, sum.SkippedOtherUnit, sum.Duplicates)
	for _, issue := range sum.ParseIssues {
		fmt.Fprintf(w, "  line %d: %s\n", issue.Line, issue.Message)
	}
}

func printReport(w io.Writer, rows []models.ChangeClassification) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tID\tNAME\tDEPARTMENT\tFLAGS")
	for _, r := range rows {
		if r.Status == models.StatusUnchanged {
			continue
		}
		flags := ""
		for i, f := range r.Flags {
			if i > 0 {
				flags += ","
			}
			flags += string(f)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Status, r.ID, r.Name, r.Department, flags)
	}
	return tw.Flush()
}

func printCoverage(w io.Writer, rows []models.CoverageRow) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tMEMBERS\tBASE\tCOVERAGE\tINCONSISTENT")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.1f%%\t%d\n",
			r.Name, r.Numerator, r.Denominator, r.CoveragePercent, len(r.InconsistentMembers))
	}
	return tw.Flush()
}
