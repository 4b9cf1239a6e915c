package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ministry-roster-api/internal/database"
	"github.com/ministry-roster-api/internal/models"
)

// sessionRepo is the concrete implementation of SessionRepository.
// Summary and report are stored as JSONB.
type sessionRepo struct {
	db *database.DB
}

// NewSessionRepo creates a new import session repository
func NewSessionRepo(db *database.DB) SessionRepository {
	return &sessionRepo{db: db}
}

// Create inserts a new session
func (r *sessionRepo) Create(ctx context.Context, s *models.ImportSession) error {
	summary, report, err := encodeSession(s)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO import_sessions (id, catalog, unit, state, summary, report, total_chunks,
			chunks_committed, written, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = r.db.ExecContext(ctx, query,
		s.ID, string(s.Catalog), s.Unit, string(s.State), summary, report, s.TotalChunks,
		s.ChunksCommitted, s.Written, nullString(s.Error), s.CreatedAt, s.UpdatedAt,
	)
	return err
}

// Update persists state and commit counters
func (r *sessionRepo) Update(ctx context.Context, s *models.ImportSession) error {
	query := `
		UPDATE import_sessions SET
			state = $1, total_chunks = $2, chunks_committed = $3, written = $4,
			error = $5, updated_at = $6, committed_at = $7
		WHERE id = $8
	`
	_, err := r.db.ExecContext(ctx, query,
		string(s.State), s.TotalChunks, s.ChunksCommitted, s.Written,
		nullString(s.Error), time.Now(), s.CommittedAt, s.ID,
	)
	return err
}

// GetByID retrieves a session with its report. Ids that are not UUIDs
// cannot exist and are reported as not found.
func (r *sessionRepo) GetByID(ctx context.Context, id string) (*models.ImportSession, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	query := `
		SELECT id, catalog, unit, state, summary, report, total_chunks, chunks_committed,
			written, error, created_at, updated_at, committed_at
		FROM import_sessions WHERE id = $1
	`

	var s models.ImportSession
	var catalog, state string
	var summary, report []byte
	var errMsg sql.NullString
	var committedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &catalog, &s.Unit, &state, &summary, &report, &s.TotalChunks,
		&s.ChunksCommitted, &s.Written, &errMsg, &s.CreatedAt, &s.UpdatedAt, &committedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.Catalog = models.Catalog(catalog)
	s.State = models.SessionState(state)
	s.Error = errMsg.String
	if committedAt.Valid {
		s.CommittedAt = &committedAt.Time
	}
	if err := json.Unmarshal(summary, &s.Summary); err != nil {
		return nil, fmt.Errorf("decode session summary: %w", err)
	}
	if err := json.Unmarshal(report, &s.Report); err != nil {
		return nil, fmt.Errorf("decode session report: %w", err)
	}

	return &s, nil
}

// MarkCommitting atomically moves a previewed session to committing.
// It returns false when the session is not in preview_ready, so two
// confirmations of the same preview cannot both write.
func (r *sessionRepo) MarkCommitting(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	query := `
		UPDATE import_sessions SET state = $1, updated_at = $2
		WHERE id = $3 AND state = $4
	`
	result, err := r.db.ExecContext(ctx, query,
		string(models.SessionCommitting), time.Now(), id, string(models.SessionPreviewReady),
	)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func encodeSession(s *models.ImportSession) ([]byte, []byte, error) {
	summary, err := json.Marshal(s.Summary)
	if err != nil {
		return nil, nil, fmt.Errorf("encode session summary: %w", err)
	}
	report := s.Report
	if report == nil {
		report = []models.ChangeClassification{}
	}
	encoded, err := json.Marshal(report)
	if err != nil {
		return nil, nil, fmt.Errorf("encode session report: %w", err)
	}
	return summary, encoded, nil
}

// helper to convert empty string to NULL
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
