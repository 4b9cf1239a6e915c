package service

import (
	"context"
	"fmt"

	"github.com/ministry-roster-api/internal/models"
	"github.com/ministry-roster-api/internal/repository"
	"github.com/ministry-roster-api/internal/textnorm"
	"github.com/rs/zerolog"
)

// participationService is the concrete implementation of ParticipationService
type participationService struct {
	repos *repository.Repositories
	units *units
	log   zerolog.Logger
}

// newParticipationService creates a new ParticipationService
func newParticipationService(repos *repository.Repositories, units *units, log zerolog.Logger) *participationService {
	return &participationService{
		repos: repos,
		units: units,
		log:   log.With().Str("service", "participation").Logger(),
	}
}

// Link adds a person to a group. Missing name and department are taken
// from the active roster entry of the person.
func (s *participationService) Link(ctx context.Context, p *models.ParticipationRecord) (*models.ParticipationRecord, error) {
	if p.PersonID == "" || p.GroupName == "" {
		return nil, &models.ValidationError{Message: "person_id and group_name are required"}
	}
	unit, err := s.units.code(p.Unit)
	if err != nil {
		return nil, err
	}

	rec := *p
	rec.Unit = unit
	rec.GroupName = textnorm.Upper(rec.GroupName)
	rec.PersonName = textnorm.Upper(rec.PersonName)
	rec.DepartmentName = textnorm.Upper(rec.DepartmentName)

	if rec.PersonName == "" || rec.DepartmentName == "" {
		entry, err := s.repos.Roster.GetByID(ctx, unit, rec.PersonID)
		if err != nil {
			return nil, fmt.Errorf("look up roster entry: %w", err)
		}
		if entry != nil && entry.Active {
			if rec.PersonName == "" {
				rec.PersonName = entry.FullName
			}
			if rec.DepartmentName == "" {
				rec.DepartmentName = entry.DepartmentName
			}
		}
	}

	if err := s.repos.Participation.Upsert(ctx, &rec); err != nil {
		return nil, err
	}
	rec.Active = true

	s.log.Info().
		Str("unit", unit).
		Str("group", rec.GroupName).
		Str("person_id", rec.PersonID).
		Str("department", rec.DepartmentName).
		Msg("Participation linked")
	return &rec, nil
}

// Unlink marks a participation inactive. It reports false when no active
// link existed.
func (s *participationService) Unlink(ctx context.Context, unit, groupName, personID string) (bool, error) {
	if personID == "" || groupName == "" {
		return false, &models.ValidationError{Message: "person_id and group_name are required"}
	}
	code, err := s.units.code(unit)
	if err != nil {
		return false, err
	}

	changed, err := s.repos.Participation.Deactivate(ctx, code, textnorm.Upper(groupName), personID)
	if err != nil {
		return false, err
	}
	if changed {
		s.log.Info().
			Str("unit", code).
			Str("group", groupName).
			Str("person_id", personID).
			Msg("Participation unlinked")
	}
	return changed, nil
}

// Leaders lists the active group leaders of unit
func (s *participationService) Leaders(ctx context.Context, unit string) ([]*models.Leader, error) {
	code, err := s.units.code(unit)
	if err != nil {
		return nil, err
	}
	return s.repos.Leader.ListActive(ctx, code)
}
