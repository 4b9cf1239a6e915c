package models

import (
	"fmt"
	"time"
)

// SessionState is the position of an import session in the two-phase flow
type SessionState string

const (
	SessionIdle         SessionState = "idle"
	SessionAnalyzing    SessionState = "analyzing"
	SessionPreviewReady SessionState = "preview_ready"
	SessionCommitting   SessionState = "committing"
	SessionDone         SessionState = "done"
	SessionFailed       SessionState = "failed"
)

var sessionTransitions = map[SessionState][]SessionState{
	SessionIdle:         {SessionAnalyzing},
	SessionAnalyzing:    {SessionPreviewReady, SessionFailed},
	SessionPreviewReady: {SessionCommitting},
	SessionCommitting:   {SessionDone, SessionFailed},
}

// CanTransition reports whether from -> to is a legal move
func CanTransition(from, to SessionState) bool {
	for _, next := range sessionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ImportSession tracks one analyze/commit cycle for a catalog and unit.
// A failed commit keeps ChunksCommitted so the operator knows how much of
// the change set was applied before re-running the analysis.
type ImportSession struct {
	ID              string                 `json:"session_id" db:"id"`
	Catalog         Catalog                `json:"catalog" db:"catalog"`
	Unit            string                 `json:"unit" db:"unit"`
	State           SessionState           `json:"state" db:"state"`
	Summary         ReportSummary          `json:"summary" db:"summary"`
	Report          []ChangeClassification `json:"-" db:"report"`
	TotalChunks     int                    `json:"total_chunks" db:"total_chunks"`
	ChunksCommitted int                    `json:"chunks_committed" db:"chunks_committed"`
	Written         int                    `json:"written" db:"written"`
	Error           string                 `json:"error,omitempty" db:"error"`
	CreatedAt       time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at" db:"updated_at"`
	CommittedAt     *time.Time             `json:"committed_at,omitempty" db:"committed_at"`
}

// Transition moves the session to the next state or returns ErrInvalidTransition
func (s *ImportSession) Transition(to SessionState) error {
	if !CanTransition(s.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.State, to)
	}
	s.State = to
	s.UpdatedAt = time.Now()
	return nil
}

// AnalyzeRequest carries a raw snapshot for one catalog and unit
type AnalyzeRequest struct {
	Catalog Catalog `json:"catalog"`
	Unit    string  `json:"unit" form:"unit"`
	Text    string  `json:"text" form:"text"`
}

// CommitRequest is the operator confirmation of a previewed report.
// Empty Statuses means every status that writes.
type CommitRequest struct {
	Statuses   []ChangeStatus `json:"statuses,omitempty"`
	ExcludeIDs []string       `json:"exclude_ids,omitempty"`
}

// ReportPage is one page of a session report
type ReportPage struct {
	Session    *ImportSession         `json:"session"`
	Items      []ChangeClassification `json:"items"`
	Page       int                    `json:"page"`
	PageSize   int                    `json:"page_size"`
	Total      int                    `json:"total"`
	TotalPages int                    `json:"total_pages"`
}
