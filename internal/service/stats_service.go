package service

import (
	"context"

	"github.com/ministry-roster-api/internal/models"
	"github.com/ministry-roster-api/internal/repository"
)

// statsService is the concrete implementation of StatsService
type statsService struct {
	repos *repository.Repositories
}

func newStatsService(repos *repository.Repositories) *statsService {
	return &statsService{repos: repos}
}

// Counts returns the number of stored records per collection
func (s *statsService) Counts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, 4)

	n, err := s.repos.Roster.Count(ctx)
	if err != nil {
		return nil, err
	}
	counts[string(models.CatalogRoster)] = n

	for _, c := range []models.Catalog{models.CatalogSectors, models.CatalogGroups} {
		n, err := s.repos.Catalog.Count(ctx, c)
		if err != nil {
			return nil, err
		}
		counts[string(c)] = n
	}

	n, err = s.repos.Participation.Count(ctx)
	if err != nil {
		return nil, err
	}
	counts["participations"] = n

	return counts, nil
}

// Ping checks that the store is reachable
func (s *statsService) Ping(ctx context.Context) error {
	if s.repos.Ping == nil {
		return nil
	}
	return s.repos.Ping(ctx)
}
