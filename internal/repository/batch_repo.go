package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ministry-roster-api/internal/database"
	"github.com/ministry-roster-api/internal/models"
)

const (
	upsertRosterSQL = `
		INSERT INTO roster_entries (unit, external_id, full_name, department_name, active, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, $5)
		ON CONFLICT (unit, external_id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			department_name = EXCLUDED.department_name,
			active = TRUE,
			updated_at = EXCLUDED.updated_at
	`
	upsertCatalogSQL = `
		INSERT INTO catalog_records (catalog, unit, code, name, active, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, $5)
		ON CONFLICT (catalog, unit, code) DO UPDATE SET
			name = EXCLUDED.name,
			active = TRUE,
			updated_at = EXCLUDED.updated_at
	`
	deactivateRosterSQL = `
		UPDATE roster_entries SET active = FALSE, updated_at = $1
		WHERE unit = $2 AND external_id = $3
	`
	deactivateCatalogSQL = `
		UPDATE catalog_records SET active = FALSE, updated_at = $1
		WHERE catalog = $2 AND unit = $3 AND code = $4
	`
	setParticipationDepartmentSQL = `
		UPDATE participations SET department_name = $1, updated_at = $2
		WHERE unit = $3 AND group_name = $4 AND person_id = $5
	`
)

// batchRepo applies mutation chunks inside one transaction each
type batchRepo struct {
	db *database.DB
}

// NewBatchRepo creates a new batch writer
func NewBatchRepo(db *database.DB) BatchWriter {
	return &batchRepo{db: db}
}

// ApplyBatch runs every mutation in one transaction. Any failure rolls the
// whole chunk back.
func (r *batchRepo) ApplyBatch(ctx context.Context, mutations []models.Mutation) error {
	if len(mutations) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	for i, m := range mutations {
		var err error
		switch m.Kind {
		case models.MutationUpsertRoster:
			_, err = tx.ExecContext(ctx, upsertRosterSQL, m.Unit, m.Key, m.Name, m.Department, now)
		case models.MutationUpsertCatalog:
			_, err = tx.ExecContext(ctx, upsertCatalogSQL, string(m.Catalog), m.Unit, m.Key, m.Name, now)
		case models.MutationDeactivate:
			if m.Catalog == models.CatalogRoster {
				_, err = tx.ExecContext(ctx, deactivateRosterSQL, now, m.Unit, m.Key)
			} else {
				_, err = tx.ExecContext(ctx, deactivateCatalogSQL, now, string(m.Catalog), m.Unit, m.Key)
			}
		case models.MutationSetParticipationDepartment:
			_, err = tx.ExecContext(ctx, setParticipationDepartmentSQL, m.Department, now, m.Unit, m.GroupName, m.Key)
		default:
			err = fmt.Errorf("unknown mutation kind %q", m.Kind)
		}
		if err != nil {
			return fmt.Errorf("mutation %d (%s %s/%s): %w", i, m.Kind, m.Unit, m.Key, err)
		}
	}

	return tx.Commit()
}
