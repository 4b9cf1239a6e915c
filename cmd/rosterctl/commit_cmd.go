package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ministry-roster-api/internal/models"
	"github.com/spf13/cobra"
)

func newCommitCmd() *cobra.Command {
	var (
		flags    snapshotFlags
		yes      bool
		statuses []string
		exclude  []string
	)

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Analyze a snapshot and write the confirmed changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := connect(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			session, err := analyze(ctx, e, &flags)
			if err != nil {
				return err
			}
			if session.Summary.Pending() == 0 {
				fmt.Fprintln(os.Stderr, "nothing to commit")
				return nil
			}
			if !yes {
				return fmt.Errorf("preview only: re-run with --yes to commit session %s", session.ID)
			}

			req := &models.CommitRequest{ExcludeIDs: exclude}
			for _, s := range statuses {
				req.Statuses = append(req.Statuses, models.ChangeStatus(s))
			}

			committed, err := e.services.Import.Commit(ctx, session.ID, req)
			var perr *models.PersistenceError
			if errors.As(err, &perr) {
				fmt.Fprintf(os.Stderr, "commit failed: %d of %d chunks committed\n",
					perr.ChunksCommitted, perr.TotalChunks)
			}
			if err != nil {
				return err
			}

			if flags.jsonOut {
				return writeJSON(committed)
			}
			fmt.Fprintf(os.Stdout, "committed %d rows in %d chunks\n", committed.Written, committed.TotalChunks)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&yes, "yes", false, "Write the previewed changes")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Only commit these statuses (new, updated, inactivated)")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Ids to leave untouched")
	return cmd
}
