package store

import "fmt"

func (s *Store) migrate() error {
	return s.migrateV1()
}

func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS features (
		id              TEXT PRIMARY KEY,
		state           TEXT NOT NULL DEFAULT 'under_review',
		linked_spec_id  TEXT,
		task_outcome    TEXT,
		previous_status TEXT,
		created_at      INTEGER NOT NULL,
		updated_at      INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_features_state ON features(state);

	CREATE TABLE IF NOT EXISTS review_runs (
		id           TEXT PRIMARY KEY,
		project_id   TEXT NOT NULL,
		pr_number    INTEGER NOT NULL,
		state        TEXT NOT NULL,
		is_followup  INTEGER NOT NULL DEFAULT 0,
		is_external  INTEGER NOT NULL DEFAULT 0,
		result       TEXT,
		error        TEXT,
		started_at   INTEGER NOT NULL,
		completed_at INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_review_runs_pr ON review_runs(project_id, pr_number, started_at);

	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR REPLACE INTO meta(key, value) VALUES ('schema_version', '1');
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute migration v1: %w", err)
	}

	return nil
}
