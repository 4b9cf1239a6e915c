package repository

import (
	"context"

	"github.com/ministry-roster-api/internal/database"
	"github.com/ministry-roster-api/internal/models"
)

// leaderRepo is the concrete implementation of LeaderRepository
type leaderRepo struct {
	db *database.DB
}

// NewLeaderRepo creates a new leader repository
func NewLeaderRepo(db *database.DB) LeaderRepository {
	return &leaderRepo{db: db}
}

// ListActive returns the active leaders of a unit, or of all units when unit is empty
func (r *leaderRepo) ListActive(ctx context.Context, unit string) ([]*models.Leader, error) {
	query := `
		SELECT person_id, full_name, unit, group_name, department_name, active
		FROM leaders
		WHERE active = TRUE AND ($1 = '' OR unit = $1)
		ORDER BY unit, group_name
	`
	rows, err := r.db.QueryContext(ctx, query, unit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leaders []*models.Leader
	for rows.Next() {
		var l models.Leader
		if err := rows.Scan(&l.PersonID, &l.FullName, &l.Unit, &l.GroupName, &l.DepartmentName, &l.Active); err != nil {
			return nil, err
		}
		leaders = append(leaders, &l)
	}
	return leaders, rows.Err()
}
