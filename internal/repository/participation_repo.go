package repository

import (
	"context"
	"time"

	"github.com/ministry-roster-api/internal/database"
	"github.com/ministry-roster-api/internal/models"
)

// participationRepo is the concrete implementation of ParticipationRepository
type participationRepo struct {
	db *database.DB
}

// NewParticipationRepo creates a new participation repository
func NewParticipationRepo(db *database.DB) ParticipationRepository {
	return &participationRepo{db: db}
}

// Upsert links a person to a group, reactivating an existing link
func (r *participationRepo) Upsert(ctx context.Context, p *models.ParticipationRecord) error {
	query := `
		INSERT INTO participations (unit, group_name, person_id, person_name, department_name, active, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6)
		ON CONFLICT (unit, group_name, person_id) DO UPDATE SET
			person_name = EXCLUDED.person_name,
			department_name = EXCLUDED.department_name,
			active = TRUE,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		p.Unit, p.GroupName, p.PersonID, p.PersonName, p.DepartmentName, time.Now(),
	)
	return err
}

// Deactivate removes a person from a group without deleting the record
func (r *participationRepo) Deactivate(ctx context.Context, unit, groupName, personID string) (bool, error) {
	query := `
		UPDATE participations SET active = FALSE, updated_at = $1
		WHERE unit = $2 AND group_name = $3 AND person_id = $4 AND active = TRUE
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), unit, groupName, personID)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// ListActive returns the active links of a unit, or of all units when unit is empty
func (r *participationRepo) ListActive(ctx context.Context, unit string) ([]*models.ParticipationRecord, error) {
	query := `
		SELECT person_id, person_name, unit, group_name, department_name, active, updated_at
		FROM participations
		WHERE active = TRUE AND ($1 = '' OR unit = $1)
		ORDER BY unit, group_name, person_id
	`
	rows, err := r.db.QueryContext(ctx, query, unit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.ParticipationRecord
	for rows.Next() {
		var p models.ParticipationRecord
		if err := rows.Scan(
			&p.PersonID, &p.PersonName, &p.Unit, &p.GroupName, &p.DepartmentName, &p.Active, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, &p)
	}
	return records, rows.Err()
}

// Count returns the total number of participation records
func (r *participationRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM participations").Scan(&count)
	return count, err
}
