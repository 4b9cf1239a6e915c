package mocks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ministry-roster-api/internal/models"
	"github.com/ministry-roster-api/internal/repository"
)

// Store is an in-memory document store shared by the mock repositories.
// Every ApplyBatch call is atomic: a chunk either applies fully or not at all.
type Store struct {
	mu             sync.Mutex
	roster         map[string]*models.RosterEntry         // unit|id
	catalogs       map[string]*models.CatalogRecord       // catalog|unit|code
	participations map[string]*models.ParticipationRecord // unit|group|person
	leaders        []*models.Leader
	sessions       map[string]*models.ImportSession
	subscribers    []chan models.ChangeEvent

	// BatchCalls counts ApplyBatch invocations, including failed ones
	BatchCalls int
	// Mutations counts mutations applied by successful chunks
	Mutations int
	// FailOnBatch makes the n-th ApplyBatch call (1-based) fail; 0 disables
	FailOnBatch int
	// BatchError is returned by the failing chunk
	BatchError error
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		roster:         make(map[string]*models.RosterEntry),
		catalogs:       make(map[string]*models.CatalogRecord),
		participations: make(map[string]*models.ParticipationRecord),
		sessions:       make(map[string]*models.ImportSession),
	}
}

// Repositories returns repository implementations backed by the store
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Roster:        &MockRosterRepository{s},
		Catalog:       &MockCatalogRepository{s},
		Participation: &MockParticipationRepository{s},
		Leader:        &MockLeaderRepository{s},
		Session:       &MockSessionRepository{s},
		Batch:         s,
		Changes:       s,
	}
}

func rosterKey(unit, id string) string {
	return unit + "|" + id
}

func catalogKey(c models.Catalog, unit, code string) string {
	return string(c) + "|" + unit + "|" + code
}

func participationKey(unit, group, person string) string {
	return unit + "|" + group + "|" + person
}

// SeedRoster stores entries as-is
func (s *Store) SeedRoster(entries ...models.RosterEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range entries {
		e := entries[i]
		s.roster[rosterKey(e.Unit, e.ExternalID)] = &e
	}
}

// SeedCatalog stores catalog records as-is
func (s *Store) SeedCatalog(records ...models.CatalogRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range records {
		r := records[i]
		s.catalogs[catalogKey(r.Catalog, r.Unit, r.ID)] = &r
	}
}

// SeedParticipations stores participation records as-is
func (s *Store) SeedParticipations(records ...models.ParticipationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range records {
		p := records[i]
		s.participations[participationKey(p.Unit, p.GroupName, p.PersonID)] = &p
	}
}

// SeedLeaders stores leaders as-is
func (s *Store) SeedLeaders(leaders ...models.Leader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range leaders {
		l := leaders[i]
		s.leaders = append(s.leaders, &l)
	}
}

// Roster returns a copy of one roster entry
func (s *Store) Roster(unit, id string) (models.RosterEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.roster[rosterKey(unit, id)]
	if !ok {
		return models.RosterEntry{}, false
	}
	return *e, true
}

// Catalog returns a copy of one catalog record
func (s *Store) Catalog(c models.Catalog, unit, code string) (models.CatalogRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.catalogs[catalogKey(c, unit, code)]
	if !ok {
		return models.CatalogRecord{}, false
	}
	return *r, true
}

// Participation returns a copy of one participation record
func (s *Store) Participation(unit, group, person string) (models.ParticipationRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participations[participationKey(unit, group, person)]
	if !ok {
		return models.ParticipationRecord{}, false
	}
	return *p, true
}

// ApplyBatch implements repository.BatchWriter
func (s *Store) ApplyBatch(ctx context.Context, mutations []models.Mutation) error {
	s.mu.Lock()
	s.BatchCalls++
	if s.FailOnBatch > 0 && s.BatchCalls == s.FailOnBatch {
		s.mu.Unlock()
		if s.BatchError != nil {
			return s.BatchError
		}
		return errors.New("mock batch failure")
	}

	// Validate first so a bad mutation leaves the chunk unapplied.
	for _, m := range mutations {
		switch m.Kind {
		case models.MutationUpsertRoster, models.MutationUpsertCatalog,
			models.MutationDeactivate, models.MutationSetParticipationDepartment:
		default:
			s.mu.Unlock()
			return fmt.Errorf("unknown mutation kind %q", m.Kind)
		}
	}

	now := time.Now()
	touched := make(map[models.Collection]bool)
	for _, m := range mutations {
		switch m.Kind {
		case models.MutationUpsertRoster:
			key := rosterKey(m.Unit, m.Key)
			e, ok := s.roster[key]
			if !ok {
				e = &models.RosterEntry{ExternalID: m.Key, Unit: m.Unit}
				s.roster[key] = e
			}
			e.FullName = m.Name
			e.DepartmentName = m.Department
			e.Active = true
			e.UpdatedAt = now
			touched[models.CollectionRoster] = true
		case models.MutationUpsertCatalog:
			key := catalogKey(m.Catalog, m.Unit, m.Key)
			r, ok := s.catalogs[key]
			if !ok {
				r = &models.CatalogRecord{Catalog: m.Catalog, ID: m.Key, Unit: m.Unit}
				s.catalogs[key] = r
			}
			r.Name = m.Name
			r.Active = true
			r.UpdatedAt = now
			touched[models.CollectionCatalog] = true
		case models.MutationDeactivate:
			if m.Catalog == models.CatalogRoster {
				if e, ok := s.roster[rosterKey(m.Unit, m.Key)]; ok {
					e.Active = false
					e.UpdatedAt = now
				}
				touched[models.CollectionRoster] = true
			} else {
				if r, ok := s.catalogs[catalogKey(m.Catalog, m.Unit, m.Key)]; ok {
					r.Active = false
					r.UpdatedAt = now
				}
				touched[models.CollectionCatalog] = true
			}
		case models.MutationSetParticipationDepartment:
			if p, ok := s.participations[participationKey(m.Unit, m.GroupName, m.Key)]; ok {
				p.DepartmentName = m.Department
				p.UpdatedAt = now
			}
			touched[models.CollectionParticipations] = true
		}
	}
	s.Mutations += len(mutations)
	for collection := range touched {
		s.notifyLocked(collection)
	}
	s.mu.Unlock()
	return nil
}

// Subscribe implements repository.Subscriber. Events that do not fit the
// channel buffer are dropped; a later event triggers the same work.
func (s *Store) Subscribe(ctx context.Context) (<-chan models.ChangeEvent, error) {
	ch := make(chan models.ChangeEvent, 16)
	s.mu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subscribers {
			if sub == ch {
				s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
				close(ch)
				break
			}
		}
	}()
	return ch, nil
}

// CloseSubscribers ends every open subscription, as a dropped listener would
func (s *Store) CloseSubscribers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = nil
}

// Subscribers returns the number of open subscriptions
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// Notify publishes a change event to every subscriber
func (s *Store) Notify(collection models.Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifyLocked(collection)
}

// notifyLocked sends without blocking; channels are only closed under s.mu
func (s *Store) notifyLocked(collection models.Collection) {
	ev := models.ChangeEvent{Collection: collection, ReceivedAt: time.Now()}
	for _, ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// MockRosterRepository is a mock implementation of RosterRepository
type MockRosterRepository struct{ s *Store }

var _ repository.RosterRepository = (*MockRosterRepository)(nil)

func (m *MockRosterRepository) ListByUnit(ctx context.Context, unit string) ([]*models.RosterEntry, error) {
	return m.list(func(e *models.RosterEntry) bool { return e.Unit == unit }), nil
}

func (m *MockRosterRepository) ListActive(ctx context.Context, unit string) ([]*models.RosterEntry, error) {
	return m.list(func(e *models.RosterEntry) bool {
		return e.Active && (unit == "" || e.Unit == unit)
	}), nil
}

func (m *MockRosterRepository) GetByID(ctx context.Context, unit, externalID string) (*models.RosterEntry, error) {
	e, ok := m.s.Roster(unit, externalID)
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *MockRosterRepository) Count(ctx context.Context) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return len(m.s.roster), nil
}

func (m *MockRosterRepository) list(keep func(*models.RosterEntry) bool) []*models.RosterEntry {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*models.RosterEntry
	for _, e := range m.s.roster {
		if keep(e) {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Unit != out[j].Unit {
			return out[i].Unit < out[j].Unit
		}
		return out[i].ExternalID < out[j].ExternalID
	})
	return out
}

// MockCatalogRepository is a mock implementation of CatalogRepository
type MockCatalogRepository struct{ s *Store }

var _ repository.CatalogRepository = (*MockCatalogRepository)(nil)

func (m *MockCatalogRepository) ListByUnit(ctx context.Context, catalog models.Catalog, unit string) ([]*models.CatalogRecord, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*models.CatalogRecord
	for _, r := range m.s.catalogs {
		if r.Catalog == catalog && r.Unit == unit {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockCatalogRepository) ListActive(ctx context.Context, unit string, catalogs ...models.Catalog) ([]*models.CatalogRecord, error) {
	var out []*models.CatalogRecord
	for _, c := range catalogs {
		records, _ := m.ListByUnit(ctx, c, unit)
		for _, r := range records {
			if r.Active {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (m *MockCatalogRepository) Count(ctx context.Context, catalog models.Catalog) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	n := 0
	for _, r := range m.s.catalogs {
		if r.Catalog == catalog {
			n++
		}
	}
	return n, nil
}

// MockParticipationRepository is a mock implementation of ParticipationRepository
type MockParticipationRepository struct{ s *Store }

var _ repository.ParticipationRepository = (*MockParticipationRepository)(nil)

func (m *MockParticipationRepository) Upsert(ctx context.Context, p *models.ParticipationRecord) error {
	cp := *p
	cp.Active = true
	cp.UpdatedAt = time.Now()
	m.s.SeedParticipations(cp)
	m.s.Notify(models.CollectionParticipations)
	return nil
}

func (m *MockParticipationRepository) Deactivate(ctx context.Context, unit, groupName, personID string) (bool, error) {
	m.s.mu.Lock()
	p, ok := m.s.participations[participationKey(unit, groupName, personID)]
	changed := ok && p.Active
	if changed {
		p.Active = false
		p.UpdatedAt = time.Now()
	}
	m.s.mu.Unlock()
	if changed {
		m.s.Notify(models.CollectionParticipations)
	}
	return changed, nil
}

func (m *MockParticipationRepository) ListActive(ctx context.Context, unit string) ([]*models.ParticipationRecord, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*models.ParticipationRecord
	for _, p := range m.s.participations {
		if p.Active && (unit == "" || p.Unit == unit) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return participationKey(out[i].Unit, out[i].GroupName, out[i].PersonID) <
			participationKey(out[j].Unit, out[j].GroupName, out[j].PersonID)
	})
	return out, nil
}

func (m *MockParticipationRepository) Count(ctx context.Context) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return len(m.s.participations), nil
}

// MockLeaderRepository is a mock implementation of LeaderRepository
type MockLeaderRepository struct{ s *Store }

var _ repository.LeaderRepository = (*MockLeaderRepository)(nil)

func (m *MockLeaderRepository) ListActive(ctx context.Context, unit string) ([]*models.Leader, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*models.Leader
	for _, l := range m.s.leaders {
		if l.Active && (unit == "" || l.Unit == unit) {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

// MockSessionRepository is a mock implementation of SessionRepository
type MockSessionRepository struct{ s *Store }

var _ repository.SessionRepository = (*MockSessionRepository)(nil)

func (m *MockSessionRepository) Create(ctx context.Context, session *models.ImportSession) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cp := *session
	m.s.sessions[session.ID] = &cp
	return nil
}

func (m *MockSessionRepository) Update(ctx context.Context, session *models.ImportSession) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	stored, ok := m.s.sessions[session.ID]
	if !ok {
		return models.ErrSessionNotFound
	}
	report := stored.Report
	cp := *session
	cp.Report = report
	m.s.sessions[session.ID] = &cp
	return nil
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id string) (*models.ImportSession, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	stored, ok := m.s.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *stored
	return &cp, nil
}

func (m *MockSessionRepository) MarkCommitting(ctx context.Context, id string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	stored, ok := m.s.sessions[id]
	if !ok || stored.State != models.SessionPreviewReady {
		return false, nil
	}
	stored.State = models.SessionCommitting
	return true, nil
}
