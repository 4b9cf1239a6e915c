package service

import (
	"context"
	"fmt"

	"github.com/ministry-roster-api/internal/batch"
	"github.com/ministry-roster-api/internal/config"
	"github.com/ministry-roster-api/internal/drift"
	"github.com/ministry-roster-api/internal/models"
	"github.com/ministry-roster-api/internal/repository"
	"github.com/ministry-roster-api/internal/snapshot"
	"github.com/rs/zerolog"
)

// ImportService defines the two-phase snapshot import: analyze, then commit
type ImportService interface {
	Analyze(ctx context.Context, req *models.AnalyzeRequest) (*models.ImportSession, error)
	GetSession(ctx context.Context, id string, page, pageSize int, status models.ChangeStatus) (*models.ReportPage, error)
	Commit(ctx context.Context, id string, req *models.CommitRequest) (*models.ImportSession, error)
}

// CoverageService defines participation coverage queries
type CoverageService interface {
	Departments(ctx context.Context, unit string) ([]models.CoverageRow, error)
	Groups(ctx context.Context, unit string) ([]models.CoverageRow, error)
	Scope(ctx context.Context, unit string, mode models.CoverageMode, name string) (*models.CoverageRow, error)
}

// ParticipationService defines group membership management
type ParticipationService interface {
	Link(ctx context.Context, p *models.ParticipationRecord) (*models.ParticipationRecord, error)
	Unlink(ctx context.Context, unit, groupName, personID string) (bool, error)
	Leaders(ctx context.Context, unit string) ([]*models.Leader, error)
}

// SyncService defines the background drift corrector
type SyncService interface {
	StartProcessor(ctx context.Context)
	StopProcessor()
	RunOnce(ctx context.Context) (drift.Pass, error)
}

// StatsService reports collection sizes and store health
type StatsService interface {
	Counts(ctx context.Context) (map[string]int, error)
	Ping(ctx context.Context) error
}

// Services holds all service interfaces
type Services struct {
	Import        ImportService
	Coverage      CoverageService
	Participation ParticipationService
	Sync          SyncService
	Stats         StatsService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger) *Services {
	units := newUnits(cfg)
	persister := batch.New(repos.Batch, cfg.Import.ChunkSize, log)

	return &Services{
		Import:        newImportService(repos, persister, units, cfg, log),
		Coverage:      newCoverageService(repos, units, log),
		Participation: newParticipationService(repos, units, log),
		Sync:          newSyncService(repos, persister, cfg, log),
		Stats:         newStatsService(repos),
	}
}

// units maps request unit values onto configured unit codes
type units struct {
	resolver *snapshot.UnitResolver
	fallback string
}

func newUnits(cfg *config.Config) *units {
	return &units{
		resolver: snapshot.NewUnitResolver(cfg.Units.Keywords),
		fallback: cfg.Units.Default,
	}
}

// code resolves raw to a unit code; empty raw selects the default unit
func (u *units) code(raw string) (string, error) {
	if raw == "" {
		if u.fallback == "" {
			return "", fmt.Errorf("%w: no unit given and no default configured", models.ErrUnknownUnit)
		}
		return u.fallback, nil
	}
	code, ok := u.resolver.Resolve(raw)
	if !ok {
		return "", fmt.Errorf("%w: %q", models.ErrUnknownUnit, raw)
	}
	return code, nil
}

// values copies repository results into a value slice
func values[T any](ptrs []*T) []T {
	out := make([]T, 0, len(ptrs))
	for _, p := range ptrs {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}
