package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/laguz/internal/apperr"
)

// NotebookRow represents a row in the notebooks table.
type NotebookRow struct {
	Path          string
	Title         string
	Kernel        string
	Language      string
	Checksum      string
	CellCount     int
	CodeCellCount int
	UpdatedAt     time.Time
}

// CellRow represents a row in the cells table. Position is the cell's index
// within its notebook.
type CellRow struct {
	Notebook string
	Position int
	Type     string
	Source   string
}

// SearchResult represents one search hit: a cell whose source matched.
type SearchResult struct {
	Path     string
	Position int
	CellType string
	Snippet  string
}

// UpsertNotebook inserts or replaces a notebook, its cell rows and FTS
// entries within a transaction.
func (db *DB) UpsertNotebook(n NotebookRow, cells []CellRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO notebooks (path, title, kernel, language, checksum, cell_count, code_cell_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title           = excluded.title,
			kernel          = excluded.kernel,
			language        = excluded.language,
			checksum        = excluded.checksum,
			cell_count      = excluded.cell_count,
			code_cell_count = excluded.code_cell_count,
			updated_at      = excluded.updated_at
	`, n.Path, n.Title, n.Kernel, n.Language, n.Checksum, n.CellCount, n.CodeCellCount, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert notebook: %w", err)
	}

	// Replace cells: delete old then bulk insert.
	_, _ = tx.Exec(`DELETE FROM cells WHERE notebook = ?`, n.Path)
	if len(cells) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO cells (notebook, position, cell_type, source) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare cell insert: %w", err)
		}
		defer stmt.Close()
		for _, c := range cells {
			if _, err := stmt.Exec(n.Path, c.Position, c.Type, c.Source); err != nil {
				return fmt.Errorf("index: insert cell: %w", err)
			}
		}
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, n.Path, cells); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteNotebook removes a notebook, its cells and FTS entries.
func (db *DB) DeleteNotebook(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM cells WHERE notebook = ?`, path)
	_, _ = tx.Exec(`DELETE FROM notebooks WHERE path = ?`, path)

	return tx.Commit()
}

// GetNotebook returns the indexed row for one notebook.
func (db *DB) GetNotebook(path string) (*NotebookRow, error) {
	var n NotebookRow
	err := db.conn.QueryRow(`
		SELECT path, title, kernel, language, checksum, cell_count, code_cell_count, updated_at
		FROM notebooks WHERE path = ?
	`, path).Scan(&n.Path, &n.Title, &n.Kernel, &n.Language, &n.Checksum, &n.CellCount, &n.CodeCellCount, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: notebook %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get notebook: %w", err)
	}
	return &n, nil
}

// ListNotebooks returns a page of indexed notebooks ordered by path, plus
// the total count.
func (db *DB) ListNotebooks(limit, offset int) ([]NotebookRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM notebooks`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count notebooks: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT path, title, kernel, language, checksum, cell_count, code_cell_count, updated_at
		FROM notebooks ORDER BY path LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list notebooks: %w", err)
	}
	defer rows.Close()

	var out []NotebookRow
	for rows.Next() {
		var n NotebookRow
		if err := rows.Scan(&n.Path, &n.Title, &n.Kernel, &n.Language, &n.Checksum, &n.CellCount, &n.CodeCellCount, &n.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

// Cells returns the indexed cell rows of one notebook in position order.
func (db *DB) Cells(path string) ([]CellRow, error) {
	rows, err := db.conn.Query(`
		SELECT notebook, position, cell_type, source
		FROM cells WHERE notebook = ? ORDER BY position
	`, path)
	if err != nil {
		return nil, fmt.Errorf("index: cells: %w", err)
	}
	defer rows.Close()

	var out []CellRow
	for rows.Next() {
		var c CellRow
		if err := rows.Scan(&c.Notebook, &c.Position, &c.Type, &c.Source); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetChecksum returns the stored checksum for a notebook, or empty string if
// not indexed.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM notebooks WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums returns path -> checksum for every indexed notebook.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM notebooks`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
