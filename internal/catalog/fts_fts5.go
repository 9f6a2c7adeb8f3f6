//go:build sqlite_fts5

package catalog

import (
	"database/sql"
	"fmt"
)

// createFTS builds the FTS5 shadow table the search queries run against.
func createFTS(conn *sql.DB) error {
	_, err := conn.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(path UNINDEXED, title, body, tags)`)
	return err
}

func ftsUpsert(tx *sql.Tx, path, title, body, tags string) error {
	if _, err := tx.Exec(`DELETE FROM entries_fts WHERE path = ?`, path); err != nil {
		return err
	}
	_, err := tx.Exec(`INSERT INTO entries_fts (path, title, body, tags) VALUES (?, ?, ?, ?)`, path, title, body, tags)
	return err
}

func ftsDelete(tx *sql.Tx, path string) error {
	_, err := tx.Exec(`DELETE FROM entries_fts WHERE path = ?`, path)
	return err
}

// Search runs an FTS5 match over titles, bodies, and tags, returning hits
// ranked by relevance with a highlighted snippet.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(
		`SELECT path, title, snippet(entries_fts, 2, '<b>', '</b>', '…', 12)
		 FROM entries_fts WHERE entries_fts MATCH ? ORDER BY rank LIMIT ?`,
		query, limit,
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
