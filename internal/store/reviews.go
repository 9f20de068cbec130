package store

import (
	"database/sql"
	"fmt"
	"time"
)

// ReviewRun is a persisted record of one review run's outcome.
type ReviewRun struct {
	ID          string
	ProjectID   string
	PRNumber    int
	State       string
	IsFollowup  bool
	IsExternal  bool
	Result      string // JSON, empty when the run errored
	Error       string
	StartedAt   int64 // unix ms
	CompletedAt int64 // unix ms, 0 = not completed
}

// SaveReviewRun inserts or updates a review run record.
func (s *Store) SaveReviewRun(r *ReviewRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.StartedAt == 0 {
		r.StartedAt = time.Now().UnixMilli()
	}

	query := `
	INSERT OR REPLACE INTO review_runs (
		id, project_id, pr_number, state, is_followup, is_external,
		result, error, started_at, completed_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		r.ID, r.ProjectID, r.PRNumber, r.State,
		boolToInt(r.IsFollowup), boolToInt(r.IsExternal),
		sql.NullString{String: r.Result, Valid: r.Result != ""},
		sql.NullString{String: r.Error, Valid: r.Error != ""},
		r.StartedAt,
		sql.NullInt64{Int64: r.CompletedAt, Valid: r.CompletedAt != 0},
	)
	if err != nil {
		return fmt.Errorf("failed to save review run %s: %w", r.ID, err)
	}
	return nil
}

// LatestReviewRun returns the most recent run for a PR, or nil when none exists.
func (s *Store) LatestReviewRun(projectID string, prNumber int) (*ReviewRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
	SELECT id, project_id, pr_number, state, is_followup, is_external,
	       result, error, started_at, completed_at
	FROM review_runs
	WHERE project_id = ? AND pr_number = ?
	ORDER BY started_at DESC LIMIT 1`, projectID, prNumber)

	var r ReviewRun
	var followup, external int
	var result, errMsg sql.NullString
	var completed sql.NullInt64

	err := row.Scan(&r.ID, &r.ProjectID, &r.PRNumber, &r.State, &followup, &external,
		&result, &errMsg, &r.StartedAt, &completed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load review run: %w", err)
	}

	r.IsFollowup = followup != 0
	r.IsExternal = external != 0
	r.Result = result.String
	r.Error = errMsg.String
	r.CompletedAt = completed.Int64
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
