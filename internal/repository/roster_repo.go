package repository

import (
	"context"
	"database/sql"

	"github.com/ministry-roster-api/internal/database"
	"github.com/ministry-roster-api/internal/models"
)

const rosterColumns = `external_id, full_name, department_name, unit, active, updated_at`

// rosterRepo is the concrete implementation of RosterRepository
type rosterRepo struct {
	db *database.DB
}

// NewRosterRepo creates a new roster repository
func NewRosterRepo(db *database.DB) RosterRepository {
	return &rosterRepo{db: db}
}

// ListByUnit returns every entry of a unit, active or not
func (r *rosterRepo) ListByUnit(ctx context.Context, unit string) ([]*models.RosterEntry, error) {
	query := `SELECT ` + rosterColumns + ` FROM roster_entries WHERE unit = $1 ORDER BY external_id`
	return r.query(ctx, query, unit)
}

// ListActive returns the active entries of a unit, or of all units when unit is empty
func (r *rosterRepo) ListActive(ctx context.Context, unit string) ([]*models.RosterEntry, error) {
	if unit == "" {
		return r.query(ctx, `SELECT `+rosterColumns+` FROM roster_entries WHERE active = TRUE ORDER BY unit, external_id`)
	}
	query := `SELECT ` + rosterColumns + ` FROM roster_entries WHERE unit = $1 AND active = TRUE ORDER BY external_id`
	return r.query(ctx, query, unit)
}

// GetByID retrieves one entry by its business key
func (r *rosterRepo) GetByID(ctx context.Context, unit, externalID string) (*models.RosterEntry, error) {
	query := `SELECT ` + rosterColumns + ` FROM roster_entries WHERE unit = $1 AND external_id = $2`

	var e models.RosterEntry
	err := r.db.QueryRowContext(ctx, query, unit, externalID).Scan(
		&e.ExternalID, &e.FullName, &e.DepartmentName, &e.Unit, &e.Active, &e.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Count returns the total number of roster entries
func (r *rosterRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM roster_entries").Scan(&count)
	return count, err
}

func (r *rosterRepo) query(ctx context.Context, query string, args ...any) ([]*models.RosterEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.RosterEntry
	for rows.Next() {
		var e models.RosterEntry
		if err := rows.Scan(
			&e.ExternalID, &e.FullName, &e.DepartmentName, &e.Unit, &e.Active, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
