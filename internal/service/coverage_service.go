package service

import (
	"context"
	"fmt"

	"github.com/ministry-roster-api/internal/coverage"
	"github.com/ministry-roster-api/internal/metrics"
	"github.com/ministry-roster-api/internal/models"
	"github.com/ministry-roster-api/internal/repository"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// coverageService is the concrete implementation of CoverageService
type coverageService struct {
	repos *repository.Repositories
	units *units
	log   zerolog.Logger
}

// newCoverageService creates a new CoverageService
func newCoverageService(repos *repository.Repositories, units *units, log zerolog.Logger) *coverageService {
	return &coverageService{
		repos: repos,
		units: units,
		log:   log.With().Str("service", "coverage").Logger(),
	}
}

// Departments returns coverage for every department of unit
func (s *coverageService) Departments(ctx context.Context, unit string) ([]models.CoverageRow, error) {
	agg, err := s.aggregator(ctx, unit)
	if err != nil {
		return nil, err
	}
	metrics.ObserveCoverage(string(models.CoverageDepartment))
	return agg.Departments(), nil
}

// Groups returns coverage for every ministry group of unit
func (s *coverageService) Groups(ctx context.Context, unit string) ([]models.CoverageRow, error) {
	agg, err := s.aggregator(ctx, unit)
	if err != nil {
		return nil, err
	}
	metrics.ObserveCoverage(string(models.CoverageGroup))
	return agg.Groups(), nil
}

// Scope returns coverage for one department or group
func (s *coverageService) Scope(ctx context.Context, unit string, mode models.CoverageMode, name string) (*models.CoverageRow, error) {
	if mode != models.CoverageDepartment && mode != models.CoverageGroup {
		return nil, &models.ValidationError{Message: fmt.Sprintf("unknown coverage mode %q", mode)}
	}
	if name == "" {
		return nil, &models.ValidationError{Message: "scope name is required"}
	}

	agg, err := s.aggregator(ctx, unit)
	if err != nil {
		return nil, err
	}
	metrics.ObserveCoverage(string(mode))

	var row models.CoverageRow
	if mode == models.CoverageDepartment {
		row = agg.Department(name)
	} else {
		row = agg.Group(name)
	}
	return &row, nil
}

// aggregator loads the four collections of unit concurrently
func (s *coverageService) aggregator(ctx context.Context, rawUnit string) (*coverage.Aggregator, error) {
	unit, err := s.units.code(rawUnit)
	if err != nil {
		return nil, err
	}

	snap := coverage.Snapshot{Unit: unit}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		roster, err := s.repos.Roster.ListActive(gctx, unit)
		snap.Roster = values(roster)
		return err
	})
	g.Go(func() error {
		parts, err := s.repos.Participation.ListActive(gctx, unit)
		snap.Participations = values(parts)
		return err
	})
	g.Go(func() error {
		leaders, err := s.repos.Leader.ListActive(gctx, unit)
		snap.Leaders = values(leaders)
		return err
	})
	g.Go(func() error {
		records, err := s.repos.Catalog.ListActive(gctx, unit, models.CatalogSectors, models.CatalogGroups)
		for _, r := range records {
			if r.Catalog == models.CatalogSectors {
				snap.Sectors = append(snap.Sectors, *r)
			} else {
				snap.Groups = append(snap.Groups, *r)
			}
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load coverage snapshot: %w", err)
	}

	s.log.Debug().
		Str("unit", unit).
		Int("roster", len(snap.Roster)).
		Int("participations", len(snap.Participations)).
		Int("leaders", len(snap.Leaders)).
		Msg("Coverage snapshot loaded")
	return coverage.New(snap), nil
}
