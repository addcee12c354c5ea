// Package store persists Laguz rows in SQLite: the marker catalog,
// measurements, marker notes, todos and the plan index. Plan search uses
// FTS5 when built with the sqlite_fts5 tag and LIKE otherwise.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS markers (
	id          TEXT PRIMARY KEY,
	position    INTEGER NOT NULL,
	name        TEXT NOT NULL,
	short_name  TEXT NOT NULL DEFAULT '',
	unit        TEXT NOT NULL DEFAULT '',
	min_ref     REAL NOT NULL,
	max_ref     REAL NOT NULL,
	display_min REAL NOT NULL DEFAULT 0,
	display_max REAL NOT NULL DEFAULT 0,
	category    TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS measurements (
	id         TEXT PRIMARY KEY,
	marker_id  TEXT NOT NULL,
	value      REAL NOT NULL,
	date       DATETIME NOT NULL,
	note       TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_measurements_marker_date ON measurements(marker_id, date DESC);

CREATE TABLE IF NOT EXISTS marker_notes (
	id         TEXT PRIMARY KEY,
	marker_id  TEXT NOT NULL,
	body       TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_marker_notes_marker ON marker_notes(marker_id, created_at DESC);

CREATE TABLE IF NOT EXISTS todos (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	done       INTEGER NOT NULL DEFAULT 0,
	due_date   DATETIME,
	plan_id    TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS todo_markers (
	todo_id   TEXT NOT NULL REFERENCES todos(id) ON DELETE CASCADE,
	marker_id TEXT NOT NULL,
	position  INTEGER NOT NULL,
	UNIQUE(todo_id, marker_id)
);

CREATE TABLE IF NOT EXISTS plans (
	path        TEXT PRIMARY KEY,
	title       TEXT NOT NULL DEFAULT '',
	body        TEXT NOT NULL DEFAULT '',
	checksum    TEXT NOT NULL DEFAULT '',
	start_date  DATETIME,
	target_date DATETIME,
	updated_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS plan_markers (
	plan_path TEXT NOT NULL REFERENCES plans(path) ON DELETE CASCADE,
	marker_id TEXT NOT NULL,
	position  INTEGER NOT NULL,
	UNIQUE(plan_path, marker_id)
);

CREATE INDEX IF NOT EXISTS idx_plan_markers_marker ON plan_markers(marker_id);

CREATE TABLE IF NOT EXISTS goals (
	id                 TEXT NOT NULL,
	plan_path          TEXT NOT NULL REFERENCES plans(path) ON DELETE CASCADE,
	position           INTEGER NOT NULL,
	marker_id          TEXT NOT NULL,
	direction          TEXT NOT NULL,
	target_value       REAL NOT NULL,
	target_value_upper REAL,
	PRIMARY KEY (plan_path, id)
);

CREATE INDEX IF NOT EXISTS idx_goals_plan ON goals(plan_path, position);
`

// DB wraps a sql.DB with Laguz-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Ping reports whether the database is reachable.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
