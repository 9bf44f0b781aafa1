//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; full-text search uses LIKE fallback on the
	// cells.source column.
	return nil
}

func ftsUpsert(_ *sql.Tx, _ string, _ []CellRow) error {
	// Sources are already stored in the cells table; nothing extra to do.
	return nil
}

func ftsDelete(_ *sql.Tx, _ string) {}

// Search performs a LIKE-based search over cell sources (fallback when FTS5
// is not compiled in).
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT notebook, position, cell_type, substr(source, 1, 200)
		FROM cells
		WHERE source LIKE ?
		ORDER BY notebook, position
		LIMIT ?
	`, like, limit)
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
