package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ministry-roster-api/internal/models"
	"github.com/spf13/cobra"
)

// snapshotFlags are shared by analyze and commit
type snapshotFlags struct {
	catalog string
	unit    string
	file    string
	jsonOut bool
}

func (f *snapshotFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.catalog, "catalog", string(models.CatalogRoster), "Catalog: roster, sectors or groups")
	cmd.Flags().StringVar(&f.unit, "unit", "", "Unit code or keyword (default from DEFAULT_UNIT)")
	cmd.Flags().StringVar(&f.file, "file", "-", "Snapshot file, - for stdin")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "Print JSON instead of a table")
}

func (f *snapshotFlags) request() (*models.AnalyzeRequest, error) {
	var r io.Reader = os.Stdin
	if f.file != "-" {
		file, err := os.Open(f.file)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		r = file
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return &models.AnalyzeRequest{
		Catalog: models.Catalog(f.catalog),
		Unit:    f.unit,
		Text:    string(data),
	}, nil
}

// analyze runs the preview and prints it
func analyze(ctx context.Context, e *env, f *snapshotFlags) (*models.ImportSession, error) {
	req, err := f.request()
	if err != nil {
		return nil, err
	}
	session, err := e.services.Import.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	page, err := e.services.Import.GetSession(ctx, session.ID, 1, maxRows, "")
	if err != nil {
		return nil, err
	}
	if f.jsonOut {
		return session, writeJSON(page)
	}
	printSummary(os.Stdout, session)
	return session, printReport(os.Stdout, page.Items)
}

// maxRows is the report page printed by the CLI
const maxRows = 500

func newAnalyzeCmd() *cobra.Command {
	var flags snapshotFlags

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Preview the changes a snapshot would apply",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			_, err = analyze(cmd.Context(), e, &flags)
			return err
		},
	}
	flags.register(cmd)
	return cmd
}
