//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS cells_fts USING fts5(
			notebook UNINDEXED,
			position UNINDEXED,
			cell_type UNINDEXED,
			source,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, path string, cells []CellRow) error {
	_, _ = tx.Exec(`DELETE FROM cells_fts WHERE notebook = ?`, path)
	if len(cells) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`INSERT INTO cells_fts (notebook, position, cell_type, source) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare fts insert: %w", err)
	}
	defer stmt.Close()
	for _, c := range cells {
		if _, err := stmt.Exec(path, c.Position, c.Type, c.Source); err != nil {
			return fmt.Errorf("index: upsert fts: %w", err)
		}
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM cells_fts WHERE notebook = ?`, path)
}

// Search performs an FTS5 full-text search over cell sources and returns
// matching cells with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT notebook,
		       position,
		       cell_type,
		       snippet(cells_fts, 3, '<b>', '</b>', '...', 64)
		FROM cells_fts
		WHERE cells_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Position, &r.CellType, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
