package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ministry-roster-api/internal/batch"
	"github.com/ministry-roster-api/internal/config"
	"github.com/ministry-roster-api/internal/metrics"
	"github.com/ministry-roster-api/internal/models"
	"github.com/ministry-roster-api/internal/reconcile"
	"github.com/ministry-roster-api/internal/repository"
	"github.com/ministry-roster-api/internal/snapshot"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// maxPageSize bounds a single report page
const maxPageSize = 500

// importService is the concrete implementation of ImportService
type importService struct {
	repos     *repository.Repositories
	persister *batch.Persister
	parser    *snapshot.Parser
	units     *units
	cfg       *config.Config
	log       zerolog.Logger
}

// newImportService creates a new ImportService
func newImportService(repos *repository.Repositories, persister *batch.Persister, units *units, cfg *config.Config, log zerolog.Logger) *importService {
	return &importService{
		repos:     repos,
		persister: persister,
		parser:    snapshot.NewParser(units.resolver),
		units:     units,
		cfg:       cfg,
		log:       log.With().Str("service", "import").Logger(),
	}
}

// Analyze parses a snapshot, classifies it against the stored catalog and
// stores the result as a session awaiting confirmation. Nothing is written
// to the catalog itself.
func (s *importService) Analyze(ctx context.Context, req *models.AnalyzeRequest) (*models.ImportSession, error) {
	if !models.ValidCatalogs[req.Catalog] {
		return nil, &models.ValidationError{Message: fmt.Sprintf("unknown catalog %q", req.Catalog)}
	}
	unit, err := s.units.code(req.Unit)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &models.ImportSession{
		ID:        uuid.New().String(),
		Catalog:   req.Catalog,
		Unit:      unit,
		State:     models.SessionIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := session.Transition(models.SessionAnalyzing); err != nil {
		return nil, err
	}

	var report []models.ChangeClassification
	var summary models.ReportSummary
	switch req.Catalog {
	case models.CatalogRoster:
		report, summary, err = s.analyzeRoster(ctx, req.Text, unit)
	default:
		report, summary, err = s.analyzeCatalog(ctx, req.Catalog, req.Text, unit)
	}
	if err != nil {
		return nil, err
	}

	session.Report = report
	session.Summary = summary
	if err := session.Transition(models.SessionPreviewReady); err != nil {
		return nil, err
	}
	if err := s.repos.Session.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	metrics.ObserveReport(session.Catalog, summary)
	s.log.Info().
		Str("session_id", session.ID).
		Str("catalog", string(session.Catalog)).
		Str("unit", unit).
		Int("new", summary.New).
		Int("updated", summary.Updated).
		Int("inactivated", summary.Inactivated).
		Int("unchanged", summary.Unchanged).
		Int("flagged", summary.Flagged).
		Int("skipped", summary.SkippedLines).
		Msg("Snapshot analyzed")

	return session, nil
}

func (s *importService) analyzeRoster(ctx context.Context, text, unit string) ([]models.ChangeClassification, models.ReportSummary, error) {
	var sectors []*models.CatalogRecord
	var current []*models.RosterEntry

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sectors, err = s.repos.Catalog.ListByUnit(gctx, models.CatalogSectors, unit)
		return err
	})
	g.Go(func() error {
		var err error
		current, err = s.repos.Roster.ListByUnit(gctx, unit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, models.ReportSummary{}, fmt.Errorf("load roster state: %w", err)
	}

	result, err := s.parser.ParseRoster(text, unit, values(sectors))
	if err != nil {
		return nil, models.ReportSummary{}, err
	}
	report := reconcile.Reconcile(values(current), result.Candidates, unit)
	return report, result.Summary(models.Summarize(report)), nil
}

func (s *importService) analyzeCatalog(ctx context.Context, catalog models.Catalog, text, unit string) ([]models.ChangeClassification, models.ReportSummary, error) {
	current, err := s.repos.Catalog.ListByUnit(ctx, catalog, unit)
	if err != nil {
		return nil, models.ReportSummary{}, fmt.Errorf("load %s state: %w", catalog, err)
	}

	result, err := s.parser.ParseCatalog(catalog, text, unit)
	if err != nil {
		return nil, models.ReportSummary{}, err
	}
	report := reconcile.Reconcile(values(current), result.Candidates, unit)
	return report, result.Summary(models.Summarize(report)), nil
}

// GetSession returns one page of a session report, optionally filtered by status
func (s *importService) GetSession(ctx context.Context, id string, page, pageSize int, status models.ChangeStatus) (*models.ReportPage, error) {
	if status != "" && !models.ValidStatuses[status] {
		return nil, &models.ValidationError{Message: fmt.Sprintf("unknown status %q", status)}
	}

	session, err := s.repos.Session.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, models.ErrSessionNotFound
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.cfg.Import.PageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	items := session.Report
	if status != "" {
		items = make([]models.ChangeClassification, 0)
		for _, row := range session.Report {
			if row.Status == status {
				items = append(items, row)
			}
		}
	}

	total := len(items)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return &models.ReportPage{
		Session:    session,
		Items:      items[start:end],
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// Commit writes the confirmed rows of a previewed session in chunks. A
// session can be committed once; a failed commit keeps the number of chunks
// that made it to the store.
func (s *importService) Commit(ctx context.Context, id string, req *models.CommitRequest) (*models.ImportSession, error) {
	if req == nil {
		req = &models.CommitRequest{}
	}
	for _, status := range req.Statuses {
		if !models.ValidStatuses[status] {
			return nil, &models.ValidationError{Message: fmt.Sprintf("unknown status %q", status)}
		}
	}

	session, err := s.repos.Session.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, models.ErrSessionNotFound
	}

	marked, err := s.repos.Session.MarkCommitting(ctx, id)
	if err != nil {
		return nil, err
	}
	if !marked {
		return nil, fmt.Errorf("%w: session %s is %s", models.ErrInvalidTransition, id, session.State)
	}
	session.State = models.SessionCommitting

	rows := reconcile.Select(session.Report, *req)
	persister := s.persister.WithObserver(func(chunk, size int, err error) {
		metrics.ObserveChunk(session.Catalog, size, err)
	})

	s.log.Info().
		Str("session_id", id).
		Str("catalog", string(session.Catalog)).
		Int("rows", len(rows)).
		Int("chunk_size", persister.ChunkSize()).
		Msg("Committing session")

	result, commitErr := persister.Commit(ctx, session.Catalog, rows)
	session.TotalChunks = result.TotalChunks
	session.ChunksCommitted = result.ChunksCommitted
	session.Written = result.Written

	if commitErr != nil {
		session.Error = commitErr.Error()
		if err := session.Transition(models.SessionFailed); err != nil {
			return nil, err
		}
	} else {
		committedAt := time.Now()
		session.CommittedAt = &committedAt
		if err := session.Transition(models.SessionDone); err != nil {
			return nil, err
		}
	}

	if err := s.repos.Session.Update(ctx, session); err != nil {
		s.log.Error().Err(err).Str("session_id", id).Msg("Failed to record commit outcome")
		if commitErr == nil {
			return nil, fmt.Errorf("record commit outcome: %w", err)
		}
	}

	if commitErr != nil {
		var perr *models.PersistenceError
		if errors.As(commitErr, &perr) {
			s.log.Error().Err(perr.Err).
				Str("session_id", id).
				Int("chunks_committed", perr.ChunksCommitted).
				Int("total_chunks", perr.TotalChunks).
				Msg("Commit failed")
		}
		return session, commitErr
	}

	s.log.Info().
		Str("session_id", id).
		Int("written", result.Written).
		Int("chunks", result.TotalChunks).
		Msg("Session committed")
	return session, nil
}
