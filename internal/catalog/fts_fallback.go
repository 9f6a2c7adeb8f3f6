//go:build !sqlite_fts5

package catalog

import (
	"database/sql"
	"fmt"
)

// Without the sqlite_fts5 build tag search degrades to LIKE matching over
// the entries table; no shadow table is maintained.

func createFTS(conn *sql.DB) error {
	return nil
}

func ftsUpsert(tx *sql.Tx, path, title, body, tags string) error {
	return nil
}

func ftsDelete(tx *sql.Tx, path string) error {
	return nil
}

// Search matches query as a case-insensitive substring of title, body, or
// tags.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + query + "%"
	rows, err := db.conn.Query(
		`SELECT path, title, substr(body, 1, 160)
		 FROM entries
		 WHERE title LIKE ? OR body LIKE ? OR tags LIKE ?
		 ORDER BY path LIMIT ?`,
		pattern, pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("catalog: search: %w", err)
	}
	defer rows.Close()

	out := make([]SearchResult, 0)
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Title, &r.Snippet); err != nil {
			return nil, fmt.Errorf("catalog: scan search result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
