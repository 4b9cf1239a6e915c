package mocks

import (
	"context"
	"time"

	"github.com/ministry-roster-api/internal/drift"
	"github.com/ministry-roster-api/internal/models"
	"github.com/ministry-roster-api/internal/service"
)

// MockImportService is a mock implementation of ImportService
type MockImportService struct {
	AnalyzeFunc func(ctx context.Context, req *models.AnalyzeRequest) (*models.ImportSession, error)
	CommitFunc  func(ctx context.Context, id string, req *models.CommitRequest) (*models.ImportSession, error)
	Sessions    map[string]*models.ImportSession
	Analyzed    []*models.AnalyzeRequest
	Committed   []*models.CommitRequest
}

// Verify interface compliance
var _ service.ImportService = (*MockImportService)(nil)

func NewMockImportService() *MockImportService {
	return &MockImportService{
		Sessions: make(map[string]*models.ImportSession),
	}
}

func (m *MockImportService) Analyze(ctx context.Context, req *models.AnalyzeRequest) (*models.ImportSession, error) {
	m.Analyzed = append(m.Analyzed, req)
	if m.AnalyzeFunc != nil {
		session, err := m.AnalyzeFunc(ctx, req)
		if session != nil {
			m.Sessions[session.ID] = session
		}
		return session, err
	}
	session := &models.ImportSession{
		ID:        "test-session-id",
		Catalog:   req.Catalog,
		Unit:      req.Unit,
		State:     models.SessionPreviewReady,
		CreatedAt: time.Now(),
	}
	m.Sessions[session.ID] = session
	return session, nil
}

func (m *MockImportService) GetSession(ctx context.Context, id string, page, pageSize int, status models.ChangeStatus) (*models.ReportPage, error) {
	session, ok := m.Sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	items := make([]models.ChangeClassification, 0, len(session.Report))
	for _, row := range session.Report {
		if status == "" || row.Status == status {
			items = append(items, row)
		}
	}
	return &models.ReportPage{
		Session:    session,
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		Total:      len(items),
		TotalPages: 1,
	}, nil
}

func (m *MockImportService) Commit(ctx context.Context, id string, req *models.CommitRequest) (*models.ImportSession, error) {
	m.Committed = append(m.Committed, req)
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx, id, req)
	}
	session, ok := m.Sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	if session.State != models.SessionPreviewReady {
		return nil, models.ErrInvalidTransition
	}
	session.State = models.SessionDone
	return session, nil
}

// MockCoverageService is a mock implementation of CoverageService
type MockCoverageService struct {
	Rows  map[models.CoverageMode][]models.CoverageRow
	Err   error
	Units []string
}

// Verify interface compliance
var _ service.CoverageService = (*MockCoverageService)(nil)

func NewMockCoverageService() *MockCoverageService {
	return &MockCoverageService{
		Rows: make(map[models.CoverageMode][]models.CoverageRow),
	}
}

func (m *MockCoverageService) Departments(ctx context.Context, unit string) ([]models.CoverageRow, error) {
	m.Units = append(m.Units, unit)
	return m.Rows[models.CoverageDepartment], m.Err
}

func (m *MockCoverageService) Groups(ctx context.Context, unit string) ([]models.CoverageRow, error) {
	m.Units = append(m.Units, unit)
	return m.Rows[models.CoverageGroup], m.Err
}

func (m *MockCoverageService) Scope(ctx context.Context, unit string, mode models.CoverageMode, name string) (*models.CoverageRow, error) {
	m.Units = append(m.Units, unit)
	if m.Err != nil {
		return nil, m.Err
	}
	for _, row := range m.Rows[mode] {
		if row.Name == name {
			r := row
			return &r, nil
		}
	}
	return &models.CoverageRow{Mode: mode, Name: name}, nil
}

// MockParticipationService is a mock implementation of ParticipationService
type MockParticipationService struct {
	Linked      []*models.ParticipationRecord
	Unlinked    []string
	LeaderList  []*models.Leader
	UnlinkFound bool
	Err         error
}

// Verify interface compliance
var _ service.ParticipationService = (*MockParticipationService)(nil)

func NewMockParticipationService() *MockParticipationService {
	return &MockParticipationService{UnlinkFound: true}
}

func (m *MockParticipationService) Link(ctx context.Context, p *models.ParticipationRecord) (*models.ParticipationRecord, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	rec := *p
	rec.Active = true
	m.Linked = append(m.Linked, &rec)
	return &rec, nil
}

func (m *MockParticipationService) Unlink(ctx context.Context, unit, groupName, personID string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	m.Unlinked = append(m.Unlinked, unit+"|"+groupName+"|"+personID)
	return m.UnlinkFound, nil
}

func (m *MockParticipationService) Leaders(ctx context.Context, unit string) ([]*models.Leader, error) {
	return m.LeaderList, m.Err
}

// MockSyncService is a mock implementation of SyncService
type MockSyncService struct {
	Pass    drift.Pass
	Err     error
	Runs    int
	Started bool
}

// Verify interface compliance
var _ service.SyncService = (*MockSyncService)(nil)

func NewMockSyncService() *MockSyncService {
	return &MockSyncService{}
}

func (m *MockSyncService) StartProcessor(ctx context.Context) {
	m.Started = true
}

func (m *MockSyncService) StopProcessor() {
	m.Started = false
}

func (m *MockSyncService) RunOnce(ctx context.Context) (drift.Pass, error) {
	m.Runs++
	return m.Pass, m.Err
}

// MockStatsService is a mock implementation of StatsService
type MockStatsService struct {
	CountsByCollection map[string]int
	PingErr            error
}

// Verify interface compliance
var _ service.StatsService = (*MockStatsService)(nil)

func NewMockStatsService() *MockStatsService {
	return &MockStatsService{CountsByCollection: make(map[string]int)}
}

func (m *MockStatsService) Counts(ctx context.Context) (map[string]int, error) {
	return m.CountsByCollection, nil
}

func (m *MockStatsService) Ping(ctx context.Context) error {
	return m.PingErr
}
