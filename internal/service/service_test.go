package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ministry-roster-api/internal/config"
	"github.com/ministry-roster-api/internal/mocks"
	"github.com/ministry-roster-api/internal/models"
	"github.com/ministry-roster-api/internal/service"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig() *config.Config {
	return &config.Config{
		Import: config.ImportConfig{
			ChunkSize:        2,
			MaxSnapshotBytes: 1 << 20,
			PageSize:         50,
		},
		Sync: config.SyncConfig{
			Enabled:  true,
			Debounce: 10 * time.Millisecond,
		},
		Units: config.UnitsConfig{
			Default: "HAB",
			Keywords: []config.UnitKeywords{
				{Code: "HAB", Keywords: []string{"belem", "belém", "hab"}},
				{Code: "HABA", Keywords: []string{"barcarena", "haba"}},
			},
		},
	}
}

func newServices(t *testing.T) (*service.Services, *mocks.Store) {
	t.Helper()
	store := mocks.NewStore()
	return service.NewServices(store.Repositories(), testConfig(), zerolog.Nop()), store
}

func seedSectors(store *mocks.Store, unit string, names ...string) {
	for i, n := range names {
		store.SeedCatalog(models.CatalogRecord{
			Catalog: models.CatalogSectors, ID: fmt.Sprintf("S%02d", i+1), Name: n, Unit: unit, Active: true,
		})
	}
}

const scenarioA = "id;nome;setor;unidade\n" +
	"1001;Maria Silva;UTI Adulto;Belém\n" +
	"1002;João Souza;Emergência;Belém"

func seedScenarioA(store *mocks.Store) {
	seedSectors(store, "HAB", "UTI ADULTO", "EMERGÊNCIA", "ENFERMARIA")
	store.SeedRoster(
		models.RosterEntry{ExternalID: "1001", FullName: "MARIA SILVA", DepartmentName: "ENFERMARIA", Unit: "HAB", Active: true},
		models.RosterEntry{ExternalID: "1003", FullName: "ANA LIMA", DepartmentName: "ENFERMARIA", Unit: "HAB", Active: true},
		models.RosterEntry{ExternalID: "2001", FullName: "PAULO REIS", DepartmentName: "UTI", Unit: "HABA", Active: true},
	)
}

func TestImport_ScenarioA_AnalyzeThenCommit(t *testing.T) {
	svc, store := newServices(t)
	seedScenarioA(store)
	ctx := context.Background()

	session, err := svc.Import.Analyze(ctx, &models.AnalyzeRequest{
		Catalog: models.CatalogRoster, Unit: "Belém", Text: scenarioA,
	})
	require.NoError(t, err)
	assert.Equal(t, models.SessionPreviewReady, session.State)
	assert.Equal(t, "HAB", session.Unit)
	assert.Equal(t, 1, session.Summary.New)
	assert.Equal(t, 1, session.Summary.Updated)
	assert.Equal(t, 1, session.Summary.Inactivated)
	assert.Zero(t, store.BatchCalls, "analysis never writes")

	before, _ := store.Roster("HAB", "1001")
	assert.Equal(t, "ENFERMARIA", before.DepartmentName)

	committed, err := svc.Import.Commit(ctx, session.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.SessionDone, committed.State)
	assert.Equal(t, 3, committed.Written)
	assert.Equal(t, 2, committed.TotalChunks, "three writes in chunks of two")
	assert.Equal(t, 2, committed.ChunksCommitted)
	assert.NotNil(t, committed.CommittedAt)

	updated, _ := store.Roster("HAB", "1001")
	assert.Equal(t, "UTI ADULTO", updated.DepartmentName)
	created, ok := store.Roster("HAB", "1002")
	require.True(t, ok)
	assert.Equal(t, "JOÃO SOUZA", created.FullName)
	assert.True(t, created.Active)
	gone, _ := store.Roster("HAB", "1003")
	assert.False(t, gone.Active)
	assert.Equal(t, "ANA LIMA", gone.FullName, "inactivation keeps every other field")
	other, _ := store.Roster("HABA", "2001")
	assert.True(t, other.Active, "other units are never touched")
}

func TestImport_ReanalyzeAfterCommitIsIdempotent(t *testing.T) {
	svc, store := newServices(t)
	seedScenarioA(store)
	ctx := context.Background()
	req := &models.AnalyzeRequest{Catalog: models.CatalogRoster, Unit: "HAB", Text: scenarioA}

	first, err := svc.Import.Analyze(ctx, req)
	require.NoError(t, err)
	_, err = svc.Import.Commit(ctx, first.ID, nil)
	require.NoError(t, err)
	writes := store.Mutations

	second, err := svc.Import.Analyze(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Summary.Unchanged)
	assert.Zero(t, second.Summary.Pending())

	done, err := svc.Import.Commit(ctx, second.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.SessionDone, done.State)
	assert.Zero(t, done.Written)
	assert.Zero(t, done.TotalChunks)
	assert.Equal(t, writes, store.Mutations)
}

func TestImport_CommitTwiceIsRejected(t *testing.T) {
	svc, store := newServices(t)
	seedScenarioA(store)
	ctx := context.Background()

	session, err := svc.Import.Analyze(ctx, &models.AnalyzeRequest{Catalog: models.CatalogRoster, Text: scenarioA})
	require.NoError(t, err)
	_, err = svc.Import.Commit(ctx, session.ID, nil)
	require.NoError(t, err)
	writes := store.Mutations

	_, err = svc.Import.Commit(ctx, session.ID, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	assert.Equal(t, writes, store.Mutations)
}

func TestImport_UnknownSession(t *testing.T) {
	svc, _ := newServices(t)
	ctx := context.Background()

	_, err := svc.Import.GetSession(ctx, "missing", 1, 10, "")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)

	_, err = svc.Import.Commit(ctx, "missing", nil)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestImport_FailedChunkKeepsCommittedCount(t *testing.T) {
	svc, store := newServices(t)
	seedScenarioA(store)
	store.FailOnBatch = 2
	store.BatchError = errors.New("transaction aborted")
	ctx := context.Background()

	session, err := svc.Import.Analyze(ctx, &models.AnalyzeRequest{Catalog: models.CatalogRoster, Text: scenarioA})
	require.NoError(t, err)

	failed, err := svc.Import.Commit(ctx, session.ID, nil)
	require.Error(t, err)
	var perr *models.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, perr.ChunksCommitted)
	assert.Equal(t, 2, perr.TotalChunks)
	assert.ErrorIs(t, err, store.BatchError)

	require.NotNil(t, failed)
	assert.Equal(t, models.SessionFailed, failed.State)
	assert.Equal(t, 1, failed.ChunksCommitted)
	assert.Equal(t, 2, failed.Written)
	assert.NotEmpty(t, failed.Error)

	page, err := svc.Import.GetSession(ctx, session.ID, 1, 10, "")
	require.NoError(t, err)
	assert.Equal(t, models.SessionFailed, page.Session.State)
	assert.Equal(t, 1, page.Session.ChunksCommitted)

	_, err = svc.Import.Commit(ctx, session.ID, nil)
	assert.ErrorIs(t, err, models.ErrInvalidTransition, "a failed session needs a fresh analysis")
}

func TestImport_CommitSelection(t *testing.T) {
	svc, store := newServices(t)
	seedScenarioA(store)
	ctx := context.Background()

	session, err := svc.Import.Analyze(ctx, &models.AnalyzeRequest{Catalog: models.CatalogRoster, Text: scenarioA})
	require.NoError(t, err)

	done, err := svc.Import.Commit(ctx, session.ID, &models.CommitRequest{
		Statuses:   []models.ChangeStatus{models.StatusNew, models.StatusInactivated},
		ExcludeIDs: []string{"1003"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, done.Written)

	_, ok := store.Roster("HAB", "1002")
	assert.True(t, ok)
	kept, _ := store.Roster("HAB", "1003")
	assert.True(t, kept.Active, "excluded rows are not written")
	untouched, _ := store.Roster("HAB", "1001")
	assert.Equal(t, "ENFERMARIA", untouched.DepartmentName, "unselected statuses are not written")

	_, err = svc.Import.Commit(ctx, "whatever", &models.CommitRequest{Statuses: []models.ChangeStatus{"maybe"}})
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestImport_GetSessionPagination(t *testing.T) {
	svc, store := newServices(t)
	store.SeedCatalog(models.CatalogRecord{Catalog: models.CatalogGroups, ID: "G0", Name: "PG ANTIGO", Unit: "HAB", Active: true})
	ctx := context.Background()

	var b strings.Builder
	b.WriteString("codigo;nome\n")
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&b, "G%d;PG %d\n", i, i)
	}

	session, err := svc.Import.Analyze(ctx, &models.AnalyzeRequest{Catalog: models.CatalogGroups, Text: b.String()})
	require.NoError(t, err)
	assert.Equal(t, 6, session.Summary.Total)

	page, err := svc.Import.GetSession(ctx, session.ID, 3, 2, "")
	require.NoError(t, err)
	assert.Equal(t, 6, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 2)

	page, err = svc.Import.GetSession(ctx, session.ID, 1, 0, models.StatusNew)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 50, page.PageSize, "zero page size falls back to the configured one")
	for _, row := range page.Items {
		assert.Equal(t, models.StatusNew, row.Status)
	}

	page, err = svc.Import.GetSession(ctx, session.ID, 1, 10_000, models.StatusInactivated)
	require.NoError(t, err)
	assert.Equal(t, 500, page.PageSize)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "G0", page.Items[0].ID)

	page, err = svc.Import.GetSession(ctx, session.ID, 9, 2, "")
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	_, err = svc.Import.GetSession(ctx, session.ID, 1, 2, "bogus")
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestImport_AnalyzeRejectsBadInput(t *testing.T) {
	svc, _ := newServices(t)
	ctx := context.Background()

	var verr *models.ValidationError
	_, err := svc.Import.Analyze(ctx, &models.AnalyzeRequest{Catalog: "leaders", Text: "a;b\n1;x"})
	assert.ErrorAs(t, err, &verr)

	_, err = svc.Import.Analyze(ctx, &models.AnalyzeRequest{Catalog: models.CatalogSectors, Unit: "Manaus", Text: "a;b\n1;x"})
	assert.ErrorIs(t, err, models.ErrUnknownUnit)

	_, err = svc.Import.Analyze(ctx, &models.AnalyzeRequest{Catalog: models.CatalogSectors, Text: "codigo;nome\n"})
	assert.ErrorAs(t, err, &verr)
}

func TestCoverage_ScenarioB(t *testing.T) {
	svc, store := newServices(t)
	seedSectors(store, "HAB", "UTI ADULTO")
	for i := 1; i <= 10; i++ {
		store.SeedRoster(models.RosterEntry{
			ExternalID: fmt.Sprintf("%02d", i), FullName: fmt.Sprintf("P%02d", i),
			DepartmentName: "UTI ADULTO", Unit: "HAB", Active: true,
		})
	}
	for i := 1; i <= 6; i++ {
		store.SeedParticipations(models.ParticipationRecord{
			PersonID: fmt.Sprintf("%02d", i), Unit: "HAB", GroupName: "PG AMOR",
			DepartmentName: "UTI ADULTO", Active: true,
		})
	}
	store.SeedLeaders(
		models.Leader{PersonID: "07", Unit: "HAB", GroupName: "PG AMOR", DepartmentName: "UTI ADULTO", Active: true},
		models.Leader{PersonID: "01", Unit: "HAB", GroupName: "PG FÉ", DepartmentName: "UTI ADULTO", Active: true},
	)
	ctx := context.Background()

	row, err := svc.Coverage.Scope(ctx, "Belém", models.CoverageDepartment, "UTI Adulto")
	require.NoError(t, err)
	assert.Equal(t, 10, row.Denominator)
	assert.Equal(t, 7, row.Numerator)
	assert.Equal(t, 70.0, row.CoveragePercent)

	rows, err := svc.Coverage.Departments(ctx, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 70.0, rows[0].CoveragePercent)

	groups, err := svc.Coverage.Groups(ctx, "HAB")
	require.NoError(t, err)
	require.Len(t, groups, 2, "groups known only from the leader directory are listed too")
	assert.Equal(t, "PG AMOR", groups[0].Name)

	_, err = svc.Coverage.Scope(ctx, "HAB", "floor", "x")
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
	_, err = svc.Coverage.Scope(ctx, "HAB", models.CoverageGroup, "")
	assert.ErrorAs(t, err, &verr)
	_, err = svc.Coverage.Departments(ctx, "Manaus")
	assert.ErrorIs(t, err, models.ErrUnknownUnit)
}

func TestParticipation_LinkAndUnlink(t *testing.T) {
	svc, store := newServices(t)
	store.SeedRoster(models.RosterEntry{ExternalID: "1001", FullName: "MARIA SILVA", DepartmentName: "UTI ADULTO", Unit: "HAB", Active: true})
	ctx := context.Background()

	rec, err := svc.Participation.Link(ctx, &models.ParticipationRecord{PersonID: "1001", GroupName: "pg amor"})
	require.NoError(t, err)
	assert.Equal(t, "HAB", rec.Unit)
	assert.Equal(t, "PG AMOR", rec.GroupName)
	assert.Equal(t, "MARIA SILVA", rec.PersonName)
	assert.Equal(t, "UTI ADULTO", rec.DepartmentName, "department defaults to the roster")
	assert.True(t, rec.Active)

	stored, ok := store.Participation("HAB", "PG AMOR", "1001")
	require.True(t, ok)
	assert.True(t, stored.Active)

	explicit, err := svc.Participation.Link(ctx, &models.ParticipationRecord{
		PersonID: "9999", GroupName: "PG AMOR", PersonName: "visitante", DepartmentName: "capelania",
	})
	require.NoError(t, err)
	assert.Equal(t, "CAPELANIA", explicit.DepartmentName)

	_, err = svc.Participation.Link(ctx, &models.ParticipationRecord{GroupName: "PG AMOR"})
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)

	changed, err := svc.Participation.Unlink(ctx, "", "Pg Amor", "1001")
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = svc.Participation.Unlink(ctx, "", "PG AMOR", "1001")
	require.NoError(t, err)
	assert.False(t, changed)

	stored, _ = store.Participation("HAB", "PG AMOR", "1001")
	assert.False(t, stored.Active)
	assert.Equal(t, "UTI ADULTO", stored.DepartmentName, "unlinking keeps the record")
}

func TestParticipation_Leaders(t *testing.T) {
	svc, store := newServices(t)
	store.SeedLeaders(
		models.Leader{PersonID: "1", Unit: "HAB", GroupName: "PG A", Active: true},
		models.Leader{PersonID: "2", Unit: "HAB", GroupName: "PG B", Active: false},
		models.Leader{PersonID: "3", Unit: "HABA", GroupName: "PG C", Active: true},
	)

	leaders, err := svc.Participation.Leaders(context.Background(), "HAB")
	require.NoError(t, err)
	require.Len(t, leaders, 1)
	assert.Equal(t, "1", leaders[0].PersonID)
}

func TestStats(t *testing.T) {
	svc, store := newServices(t)
	seedScenarioA(store)
	store.SeedParticipations(models.ParticipationRecord{PersonID: "1001", Unit: "HAB", GroupName: "PG A", Active: true})

	counts, err := svc.Stats.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"roster": 3, "sectors": 3, "groups": 0, "participations": 1}, counts)
	assert.NoError(t, svc.Stats.Ping(context.Background()))
}

func seedDrift(store *mocks.Store) {
	store.SeedRoster(
		models.RosterEntry{ExternalID: "1001", FullName: "MARIA", DepartmentName: "UTI ADULTO", Unit: "HAB", Active: true},
		models.RosterEntry{ExternalID: "1002", FullName: "JOÃO", DepartmentName: "EMERGÊNCIA", Unit: "HAB", Active: true},
	)
	store.SeedParticipations(
		models.ParticipationRecord{PersonID: "1001", Unit: "HAB", GroupName: "PG A", DepartmentName: "ENFERMARIA", Active: true},
		models.ParticipationRecord{PersonID: "1002", Unit: "HAB", GroupName: "PG A", DepartmentName: "EMERGÊNCIA", Active: true},
	)
}

func TestSync_RunOnce(t *testing.T) {
	svc, store := newServices(t)
	seedDrift(store)
	ctx := context.Background()

	pass, err := svc.Sync.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pass.Corrections)
	assert.Equal(t, 1, pass.Written)

	p, _ := store.Participation("HAB", "PG A", "1001")
	assert.Equal(t, "UTI ADULTO", p.DepartmentName)

	pass, err = svc.Sync.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, pass.Corrections)
}

func TestSync_ProcessorFollowsChanges(t *testing.T) {
	svc, store := newServices(t)
	seedDrift(store)
	ctx := context.Background()

	svc.Sync.StartProcessor(ctx)
	svc.Sync.StartProcessor(ctx)
	defer svc.Sync.StopProcessor()

	assert.Eventually(t, func() bool {
		p, _ := store.Participation("HAB", "PG A", "1001")
		return p.DepartmentName == "UTI ADULTO"
	}, 2*time.Second, 10*time.Millisecond, "startup pass fixes existing drift")

	_, err := svc.Participation.Link(ctx, &models.ParticipationRecord{
		PersonID: "1002", GroupName: "PG B", DepartmentName: "UTI",
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		p, _ := store.Participation("HAB", "PG B", "1002")
		return p.DepartmentName == "EMERGÊNCIA"
	}, 2*time.Second, 10*time.Millisecond, "a change event triggers a pass")

	svc.Sync.StopProcessor()
	svc.Sync.StopProcessor()
}

func TestSync_ProcessorRestartsAfterSubscriptionEnds(t *testing.T) {
	svc, store := newServices(t)
	seedDrift(store)
	ctx := context.Background()

	svc.Sync.StartProcessor(ctx)
	defer svc.Sync.StopProcessor()
	require.Eventually(t, func() bool { return store.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	store.CloseSubscribers()

	require.Eventually(t, func() bool {
		svc.Sync.StartProcessor(ctx)
		return store.Subscribers() == 1
	}, 2*time.Second, 10*time.Millisecond, "processor starts again once the old one exited")

	_, err := svc.Participation.Link(ctx, &models.ParticipationRecord{
		PersonID: "1002", GroupName: "PG B", DepartmentName: "UTI",
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		p, _ := store.Participation("HAB", "PG B", "1002")
		return p.DepartmentName == "EMERGÊNCIA"
	}, 2*time.Second, 10*time.Millisecond, "the restarted processor follows changes")
}
