package store

import (
	"fmt"
	"strings"
)

// currentSchemaVersion is the latest schema version.
const currentSchemaVersion = 1

// Migrate runs forward migrations to bring the database schema up to date.
func (db *DB) Migrate() error {
	if _, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	version := 0
	row := db.conn.QueryRow("SELECT version FROM schema_version LIMIT 1")
	if err := row.Scan(&version); err != nil {
		// No rows means version 0 (fresh database).
		version = 0
	}

	if version < 1 {
		if err := db.migrateV1(); err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
	}

	return nil
}

func (db *DB) v1Statements() []string {
	if db.driver == DriverMySQL {
		return []string{
			`CREATE TABLE IF NOT EXISTS evaluations (
    id VARCHAR(26) PRIMARY KEY,
    session_id VARCHAR(128) NOT NULL,
    project_path VARCHAR(1024) NOT NULL DEFAULT '',
    generated_at VARCHAR(40) NOT NULL,
    overall DOUBLE NOT NULL,
    grade VARCHAR(2) NOT NULL,
    first_completed TINYINT(1) NOT NULL DEFAULT 0,
    prompts INT NOT NULL DEFAULT 0,
    total_lines INT NOT NULL DEFAULT 0,
    report LONGTEXT NOT NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE INDEX idx_evaluations_session ON evaluations(session_id)`,
			`CREATE INDEX idx_evaluations_generated ON evaluations(generated_at)`,
		}
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS evaluations (
			id              TEXT PRIMARY KEY,
			session_id      TEXT NOT NULL,
			project_path    TEXT NOT NULL DEFAULT '',
			generated_at    TEXT NOT NULL,
			overall         REAL NOT NULL,
			grade           TEXT NOT NULL,
			first_completed BOOLEAN NOT NULL DEFAULT false,
			prompts         INTEGER NOT NULL DEFAULT 0,
			total_lines     INTEGER NOT NULL DEFAULT 0,
			report          TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_evaluations_session ON evaluations(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_evaluations_generated ON evaluations(generated_at)`,
	}
}

// migrateV1 creates the evaluations table and its indexes.
func (db *DB) migrateV1() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range db.v1Statements() {
		if _, err := tx.Exec(stmt); err != nil {
			if isDuplicateKeyError(err) {
				continue
			}
			return fmt.Errorf("executing %q: %w", stmt[:40], err)
		}
	}

	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", currentSchemaVersion); err != nil {
		return err
	}

	return tx.Commit()
}

// isDuplicateKeyError matches MySQL's complaint about an index that already
// exists, which has no IF NOT EXISTS form.
func isDuplicateKeyError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Duplicate key name") || strings.Contains(msg, "1061")
}
