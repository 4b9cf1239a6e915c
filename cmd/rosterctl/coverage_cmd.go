package main

import (
	"fmt"
	"os"

	"github.com/ministry-roster-api/internal/models"
	"github.com/spf13/cobra"
)

func newCoverageCmd() *cobra.Command {
	var (
		unit    string
		mode    string
		name    string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "coverage",
		Short: "Print participation coverage by department or group",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := connect(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			var rows []models.CoverageRow
			switch {
			case name != "":
				m := models.CoverageDepartment
				if mode == "groups" {
					m = models.CoverageGroup
				}
				row, err := e.services.Coverage.Scope(ctx, unit, m, name)
				if err != nil {
					return err
				}
				rows = []models.CoverageRow{*row}
			case mode == "departments":
				rows, err = e.services.Coverage.Departments(ctx, unit)
			case mode == "groups":
				rows, err = e.services.Coverage.Groups(ctx, unit)
			default:
				return fmt.Errorf("invalid --mode %q: use departments or groups", mode)
			}
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(rows)
			}
			return printCoverage(os.Stdout, rows)
		},
	}
	cmd.Flags().StringVar(&unit, "unit", "", "Unit code or keyword (default from DEFAULT_UNIT)")
	cmd.Flags().StringVar(&mode, "mode", "departments", "departments or groups")
	cmd.Flags().StringVar(&name, "name", "", "Single department or group")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON instead of a table")
	return cmd
}
