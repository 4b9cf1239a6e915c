package repository

import (
	"context"

	"github.com/lib/pq"
	"github.com/ministry-roster-api/internal/database"
	"github.com/ministry-roster-api/internal/models"
)

// catalogRepo is the concrete implementation of CatalogRepository
type catalogRepo struct {
	db *database.DB
}

// NewCatalogRepo creates a new catalog repository
func NewCatalogRepo(db *database.DB) CatalogRepository {
	return &catalogRepo{db: db}
}

// ListByUnit returns every record of one catalog and unit, active or not
func (r *catalogRepo) ListByUnit(ctx context.Context, catalog models.Catalog, unit string) ([]*models.CatalogRecord, error) {
	query := `
		SELECT catalog, code, name, unit, active, updated_at
		FROM catalog_records
		WHERE catalog = $1 AND unit = $2
		ORDER BY name, code
	`
	return r.query(ctx, query, string(catalog), unit)
}

// ListActive returns the active records of unit across the given catalogs
func (r *catalogRepo) ListActive(ctx context.Context, unit string, catalogs ...models.Catalog) ([]*models.CatalogRecord, error) {
	names := make([]string, len(catalogs))
	for i, c := range catalogs {
		names[i] = string(c)
	}
	query := `
		SELECT catalog, code, name, unit, active, updated_at
		FROM catalog_records
		WHERE unit = $1 AND active AND catalog = ANY($2)
		ORDER BY catalog, name, code
	`
	return r.query(ctx, query, unit, pq.Array(names))
}

func (r *catalogRepo) query(ctx context.Context, query string, args ...any) ([]*models.CatalogRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.CatalogRecord
	for rows.Next() {
		var c models.CatalogRecord
		var cat string
		if err := rows.Scan(&cat, &c.ID, &c.Name, &c.Unit, &c.Active, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.Catalog = models.Catalog(cat)
		records = append(records, &c)
	}
	return records, rows.Err()
}

// Count returns the number of records in a catalog
func (r *catalogRepo) Count(ctx context.Context, catalog models.Catalog) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM catalog_records WHERE catalog = $1", string(catalog)).Scan(&count)
	return count, err
}
