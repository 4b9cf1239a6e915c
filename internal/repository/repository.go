package repository

import (
	"context"

	"github.com/ministry-roster-api/internal/database"
	"github.com/ministry-roster-api/internal/models"
)

// RosterRepository defines read access to the workforce roster.
// Writes go through BatchWriter only.
type RosterRepository interface {
	ListByUnit(ctx context.Context, unit string) ([]*models.RosterEntry, error)
	ListActive(ctx context.Context, unit string) ([]*models.RosterEntry, error)
	GetByID(ctx context.Context, unit, externalID string) (*models.RosterEntry, error)
	Count(ctx context.Context) (int, error)
}

// CatalogRepository defines read access to the sector and group catalogs
type CatalogRepository interface {
	ListByUnit(ctx context.Context, catalog models.Catalog, unit string) ([]*models.CatalogRecord, error)
	ListActive(ctx context.Context, unit string, catalogs ...models.Catalog) ([]*models.CatalogRecord, error)
	Count(ctx context.Context, catalog models.Catalog) (int, error)
}

// ParticipationRepository defines operations on group participation links
type ParticipationRepository interface {
	Upsert(ctx context.Context, p *models.ParticipationRecord) error
	Deactivate(ctx context.Context, unit, groupName, personID string) (bool, error)
	ListActive(ctx context.Context, unit string) ([]*models.ParticipationRecord, error)
	Count(ctx context.Context) (int, error)
}

// LeaderRepository defines read access to the leader directory
type LeaderRepository interface {
	ListActive(ctx context.Context, unit string) ([]*models.Leader, error)
}

// SessionRepository defines persistence for import sessions
type SessionRepository interface {
	Create(ctx context.Context, session *models.ImportSession) error
	Update(ctx context.Context, session *models.ImportSession) error
	GetByID(ctx context.Context, id string) (*models.ImportSession, error)
	MarkCommitting(ctx context.Context, id string) (bool, error)
}

// BatchWriter applies one chunk of mutations in a single transaction
type BatchWriter interface {
	ApplyBatch(ctx context.Context, mutations []models.Mutation) error
}

// Subscriber delivers change notifications for the live collections
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan models.ChangeEvent, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Roster        RosterRepository
	Catalog       CatalogRepository
	Participation ParticipationRepository
	Leader        LeaderRepository
	Session       SessionRepository
	Batch         BatchWriter
	Changes       Subscriber
	// Ping checks store connectivity; nil means always healthy
	Ping func(ctx context.Context) error
}

// New creates all repositories with the given database connection.
// dsn is used by the change listener, which needs its own connection.
func New(db *database.DB, dsn string) *Repositories {
	return &Repositories{
		Roster:        NewRosterRepo(db),
		Catalog:       NewCatalogRepo(db),
		Participation: NewParticipationRepo(db),
		Leader:        NewLeaderRepo(db),
		Session:       NewSessionRepo(db),
		Batch:         NewBatchRepo(db),
		Changes:       NewChangeListener(dsn, db.Logger()),
		Ping:          db.HealthCheck,
	}
}
