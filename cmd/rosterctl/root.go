package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ministry-roster-api/internal/config"
	"github.com/ministry-roster-api/internal/database"
	"github.com/ministry-roster-api/internal/repository"
	"github.com/ministry-roster-api/internal/service"
	"github.com/ministry-roster-api/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "rosterctl",
		Short:         "Roster reconciliation and coverage tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newAnalyzeCmd())
	cmd.AddCommand(newCommitCmd())
	cmd.AddCommand(newCoverageCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newMigrateCmd())
	return cmd
}

// Execute runs the root command and exits non-zero on error
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// env is the wiring shared by every subcommand
type env struct {
	cfg      *config.Config
	db       *database.DB
	services *service.Services
	log      zerolog.Logger
}

func connect(ctx context.Context) (*env, error) {
	log := logger.New()
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if err := db.HealthCheck(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	repos := repository.New(db, cfg.Database.GetDSN())
	return &env{
		cfg:      cfg,
		db:       db,
		services: service.NewServices(repos, cfg, log),
		log:      log,
	}, nil
}

func (e *env) Close() error {
	return e.db.Close()
}
