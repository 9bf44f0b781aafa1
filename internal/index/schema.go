// Package index provides SQLite-backed notebook indexing with optional FTS5
// full-text search over cell sources.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS notebooks (
	path       TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	kernel     TEXT NOT NULL DEFAULT '',
	language   TEXT NOT NULL DEFAULT '',
	checksum   TEXT NOT NULL DEFAULT '',
	cell_count INTEGER NOT NULL DEFAULT 0,
	code_cell_count INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS cells (
	notebook  TEXT NOT NULL,
	position  INTEGER NOT NULL,
	cell_type TEXT NOT NULL,
	source    TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (notebook, position)
);

CREATE INDEX IF NOT EXISTS idx_cells_notebook ON cells(notebook);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
