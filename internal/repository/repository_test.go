package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ministry-roster-api/internal/database"
	"github.com/ministry-roster-api/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return database.Wrap(db, zerolog.Nop()), mock
}

func TestBatchRepo_ApplyBatch_Commits(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBatchRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO roster_entries").
		WithArgs("HAB", "1001", "ANA", "UTI ADULTO", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE roster_entries SET active = FALSE").
		WithArgs(sqlmock.AnyArg(), "HAB", "1003").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE catalog_records SET active = FALSE").
		WithArgs(sqlmock.AnyArg(), "sectors", "HAB", "S9").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE participations SET department_name").
		WithArgs("UTI ADULTO", sqlmock.AnyArg(), "HAB", "PG A", "1001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ApplyBatch(context.Background(), []models.Mutation{
		{Kind: models.MutationUpsertRoster, Catalog: models.CatalogRoster, Unit: "HAB", Key: "1001", Name: "ANA", Department: "UTI ADULTO"},
		{Kind: models.MutationDeactivate, Catalog: models.CatalogRoster, Unit: "HAB", Key: "1003"},
		{Kind: models.MutationDeactivate, Catalog: models.CatalogSectors, Unit: "HAB", Key: "S9"},
		{Kind: models.MutationSetParticipationDepartment, Unit: "HAB", Key: "1001", GroupName: "PG A", Department: "UTI ADULTO"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepo_ApplyBatch_RollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBatchRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO catalog_records").
		WithArgs("groups", "HAB", "G1", "PG AMOR", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO catalog_records").
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := repo.ApplyBatch(context.Background(), []models.Mutation{
		{Kind: models.MutationUpsertCatalog, Catalog: models.CatalogGroups, Unit: "HAB", Key: "G1", Name: "PG AMOR"},
		{Kind: models.MutationUpsertCatalog, Catalog: models.CatalogGroups, Unit: "HAB", Key: "G2", Name: "PG FÉ"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutation 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepo_ApplyBatch_UnknownKind(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBatchRepo(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := repo.ApplyBatch(context.Background(), []models.Mutation{{Kind: "drop_table", Unit: "HAB", Key: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mutation kind")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRepo_ApplyBatch_Empty(t *testing.T) {
	db, mock := newMockDB(t)
	require.NoError(t, NewBatchRepo(db).ApplyBatch(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

const sessionID = "3f1c2a9e-8b7d-4c6e-9a1f-2d3e4b5c6a7d"

func TestSessionRepo_MarkCommitting(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"previewed session", 1, true},
		{"already committing", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewSessionRepo(db)

			mock.ExpectExec("UPDATE import_sessions SET state").
				WithArgs("committing", sqlmock.AnyArg(), sessionID, "preview_ready").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			ok, err := repo.MarkCommitting(context.Background(), sessionID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSessionRepo_MarkCommitting_RowsAffectedError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepo(db)

	mock.ExpectExec("UPDATE import_sessions SET state").
		WithArgs("committing", sqlmock.AnyArg(), sessionID, "preview_ready").
		WillReturnResult(sqlmock.NewErrorResult(errors.New("driver lost the result")))

	ok, err := repo.MarkCommitting(context.Background(), sessionID)
	assert.EqualError(t, err, "driver lost the result")
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepo_MalformedIDIsNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepo(db)
	ctx := context.Background()

	s, err := repo.GetByID(ctx, "not-a-uuid")
	require.NoError(t, err)
	assert.Nil(t, s)

	ok, err := repo.MarkCommitting(ctx, "not-a-uuid")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet(), "no statement reaches the database")
}

func TestSessionRepo_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepo(db)
	now := time.Now()

	columns := []string{"id", "catalog", "unit", "state", "summary", "report", "total_chunks",
		"chunks_committed", "written", "error", "created_at", "updated_at", "committed_at"}
	mock.ExpectQuery("FROM import_sessions WHERE id").
		WithArgs(sessionID).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			sessionID, "roster", "HAB", "failed",
			[]byte(`{"total":2,"new":1,"updated":1}`),
			[]byte(`[{"id":"1001","name":"ANA","unit":"HAB","status":"new"}]`),
			3, 1, 400, "apply chunk 2: timeout", now, now, nil,
		))

	s, err := repo.GetByID(context.Background(), sessionID)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, models.CatalogRoster, s.Catalog)
	assert.Equal(t, models.SessionFailed, s.State)
	assert.Equal(t, 2, s.Summary.Total)
	require.Len(t, s.Report, 1)
	assert.Equal(t, models.StatusNew, s.Report[0].Status)
	assert.Equal(t, 1, s.ChunksCommitted)
	assert.Equal(t, "apply chunk 2: timeout", s.Error)
	assert.Nil(t, s.CommittedAt)
}

func TestSessionRepo_GetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepo(db)

	mock.ExpectQuery("FROM import_sessions WHERE id").
		WithArgs("9b2e7c41-5d3a-4f8e-b6c0-1a2b3c4d5e6f").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	s, err := repo.GetByID(context.Background(), "9b2e7c41-5d3a-4f8e-b6c0-1a2b3c4d5e6f")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestCatalogRepo_ListActive(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCatalogRepo(db)
	now := time.Now()

	mock.ExpectQuery("FROM catalog_records").
		WithArgs("HAB", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"catalog", "code", "name", "unit", "active", "updated_at"}).
			AddRow("groups", "G1", "PG AMOR", "HAB", true, now).
			AddRow("sectors", "S1", "UTI ADULTO", "HAB", true, now))

	records, err := repo.ListActive(context.Background(), "HAB", models.CatalogSectors, models.CatalogGroups)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, models.CatalogGroups, records[0].Catalog)
	assert.Equal(t, "UTI ADULTO", records[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterRepo_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRosterRepo(db)

	mock.ExpectQuery("FROM roster_entries WHERE unit").
		WithArgs("HAB", "1001").
		WillReturnRows(sqlmock.NewRows([]string{"external_id", "full_name", "department_name", "unit", "active", "updated_at"}).
			AddRow("1001", "ANA", "UTI ADULTO", "HAB", true, time.Now()))

	e, err := repo.GetByID(context.Background(), "HAB", "1001")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "UTI ADULTO", e.DepartmentName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipationRepo_UpsertAndDeactivate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewParticipationRepo(db)

	mock.ExpectExec("INSERT INTO participations").
		WithArgs("HAB", "PG AMOR", "1001", "ANA", "UTI ADULTO", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE participations SET active = FALSE").
		WithArgs(sqlmock.AnyArg(), "HAB", "PG AMOR", "1001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE participations SET active = FALSE").
		WithArgs(sqlmock.AnyArg(), "HAB", "PG AMOR", "1001").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, &models.ParticipationRecord{
		Unit: "HAB", GroupName: "PG AMOR", PersonID: "1001", PersonName: "ANA", DepartmentName: "UTI ADULTO",
	}))

	changed, err := repo.Deactivate(ctx, "HAB", "PG AMOR", "1001")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.Deactivate(ctx, "HAB", "PG AMOR", "1001")
	require.NoError(t, err)
	assert.False(t, changed, "an inactive link is not deactivated twice")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipationRepo_Deactivate_RowsAffectedError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewParticipationRepo(db)

	mock.ExpectExec("UPDATE participations SET active = FALSE").
		WithArgs(sqlmock.AnyArg(), "HAB", "PG AMOR", "1001").
		WillReturnResult(sqlmock.NewErrorResult(errors.New("driver lost the result")))

	changed, err := repo.Deactivate(context.Background(), "HAB", "PG AMOR", "1001")
	assert.Error(t, err)
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
