package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	ferrors "github.com/p-blackswan/flowcore/internal/errors"
)

// Feature is a persisted roadmap feature snapshot.
type Feature struct {
	ID             string
	State          string
	LinkedSpecID   string
	TaskOutcome    string
	PreviousStatus string
	CreatedAt      int64 // unix ms
	UpdatedAt      int64 // unix ms
}

// SaveFeature inserts or updates a feature snapshot.
func (s *Store) SaveFeature(f *Feature) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	if f.CreatedAt == 0 {
		f.CreatedAt = now
	}
	f.UpdatedAt = now

	query := `
	INSERT INTO features (id, state, linked_spec_id, task_outcome, previous_status, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		state = excluded.state,
		linked_spec_id = excluded.linked_spec_id,
		task_outcome = excluded.task_outcome,
		previous_status = excluded.previous_status,
		updated_at = excluded.updated_at
	`

	_, err := s.db.Exec(query,
		f.ID, f.State,
		sql.NullString{String: f.LinkedSpecID, Valid: f.LinkedSpecID != ""},
		sql.NullString{String: f.TaskOutcome, Valid: f.TaskOutcome != ""},
		sql.NullString{String: f.PreviousStatus, Valid: f.PreviousStatus != ""},
		f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save feature %s: %w", f.ID, err)
	}
	return nil
}

// GetFeature loads one feature by id.
func (s *Store) GetFeature(id string) (*Feature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
	SELECT id, state, linked_spec_id, task_outcome, previous_status, created_at, updated_at
	FROM features WHERE id = ?`, id)

	f, err := scanFeature(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ferrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load feature %s: %w", id, err)
	}
	return f, nil
}

// ListFeatures returns all features, newest first.
func (s *Store) ListFeatures() ([]*Feature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
	SELECT id, state, linked_spec_id, task_outcome, previous_status, created_at, updated_at
	FROM features ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list features: %w", err)
	}
	defer rows.Close()

	var features []*Feature
	for rows.Next() {
		f, err := scanFeature(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feature: %w", err)
		}
		features = append(features, f)
	}
	return features, rows.Err()
}

// DeleteFeature removes a feature snapshot.
func (s *Store) DeleteFeature(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM features WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete feature %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ferrors.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeature(r rowScanner) (*Feature, error) {
	var f Feature
	var linked, outcome, prev sql.NullString
	if err := r.Scan(&f.ID, &f.State, &linked, &outcome, &prev, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	f.LinkedSpecID = linked.String
	f.TaskOutcome = outcome.String
	f.PreviousStatus = prev.String
	return &f, nil
}
