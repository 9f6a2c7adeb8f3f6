package catalog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lorehold/biblioplex/internal/apperr"
	"github.com/lorehold/biblioplex/internal/models"
)

const entryColumns = "path, slug, title, type, college, era, canon, status, version, author, tags, checksum, updated_at"

// UpsertEntry writes one entry row, refreshes its search index, and
// replaces its outgoing references, all in one transaction.
func (db *DB) UpsertEntry(row EntryRow, body string, refs []models.Ref) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin: %w", err)
	}
	defer tx.Rollback()

	tags := row.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("catalog: marshal tags: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO entries (`+entryColumns+`, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			slug = excluded.slug,
			title = excluded.title,
			type = excluded.type,
			college = excluded.college,
			era = excluded.era,
			canon = excluded.canon,
			status = excluded.status,
			version = excluded.version,
			author = excluded.author,
			tags = excluded.tags,
			checksum = excluded.checksum,
			body = excluded.body,
			updated_at = excluded.updated_at`,
		row.Path, row.Slug, row.Title, row.Type, row.College, row.Era, row.Canon,
		row.Status, row.Version, row.Author, string(tagsJSON), row.Checksum, row.UpdatedAt, body,
	)
	if err != nil {
		return fmt.Errorf("catalog: upsert entry %s: %w", row.Path, err)
	}

	if err := ftsUpsert(tx, row.Path, row.Title, body, strings.Join(tags, " ")); err != nil {
		return fmt.Errorf("catalog: update search index for %s: %w", row.Path, err)
	}

	if _, err := tx.Exec(`DELETE FROM refs WHERE source = ?`, row.Path); err != nil {
		return fmt.Errorf("catalog: clear refs for %s: %w", row.Path, err)
	}
	for _, ref := range refs {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO refs (source, target, kind) VALUES (?, ?, ?)`,
			ref.Source, ref.Target, ref.Kind,
		); err != nil {
			return fmt.Errorf("catalog: insert ref %s -> %s: %w", ref.Source, ref.Target, err)
		}
	}

	return tx.Commit()
}

// DeleteEntry removes an entry row, its search index row, and its outgoing
// references.
func (db *DB) DeleteEntry(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM entries WHERE path = ?`, path); err != nil {
		return fmt.Errorf("catalog: delete entry %s: %w", path, err)
	}
	if err := ftsDelete(tx, path); err != nil {
		return fmt.Errorf("catalog: delete search row for %s: %w", path, err)
	}
	if _, err := tx.Exec(`DELETE FROM refs WHERE source = ?`, path); err != nil {
		return fmt.Errorf("catalog: delete refs for %s: %w", path, err)
	}
	return tx.Commit()
}

// GetEntry returns one row by path.
func (db *DB) GetEntry(path string) (*EntryRow, error) {
	var (
		row      EntryRow
		tagsJSON string
	)
	err := db.conn.QueryRow(`SELECT `+entryColumns+` FROM entries WHERE path = ?`, path).Scan(
		&row.Path, &row.Slug, &row.Title, &row.Type, &row.College, &row.Era, &row.Canon,
		&row.Status, &row.Version, &row.Author, &tagsJSON, &row.Checksum, &row.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get entry %s: %w", path, err)
	}
	row.Tags = decodeTags(tagsJSON)
	return &row, nil
}

// GetChecksum returns the stored checksum for path, or "" when the entry is
// not indexed.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM entries WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("catalog: get checksum %s: %w", path, err)
	}
	return cs, nil
}

// ListEntries returns one page of rows matching the filter plus the total
// match count.
func (db *DB) ListEntries(f ListFilter) ([]EntryRow, int, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, f.Type)
	}
	if f.College != "" {
		where = append(where, "college = ?")
		args = append(args, f.College)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.Tag != "" {
		// Tags are stored as a JSON array of strings.
		where = append(where, "tags LIKE ?")
		args = append(args, `%"`+f.Tag+`"%`)
	}
	if f.Canon != nil {
		where = append(where, "canon = ?")
		args = append(args, *f.Canon)
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM entries`+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("catalog: count entries: %w", err)
	}

	order := "path ASC"
	switch f.Sort {
	case "title":
		order = "title ASC, path ASC"
	case "updated":
		order = "updated_at DESC, path ASC"
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := db.conn.Query(
		`SELECT `+entryColumns+` FROM entries`+cond+` ORDER BY `+order+` LIMIT ? OFFSET ?`,
		append(args, limit, offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: list entries: %w", err)
	}
	defer rows.Close()

	out := make([]EntryRow, 0)
	for rows.Next() {
		var (
			row      EntryRow
			tagsJSON string
		)
		if err := rows.Scan(
			&row.Path, &row.Slug, &row.Title, &row.Type, &row.College, &row.Era, &row.Canon,
			&row.Status, &row.Version, &row.Author, &tagsJSON, &row.Checksum, &row.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("catalog: scan entry: %w", err)
		}
		row.Tags = decodeTags(tagsJSON)
		out = append(out, row)
	}
	return out, total, rows.Err()
}

// Graph returns every entry as a node and every stored reference as a link,
// both in deterministic order.
func (db *DB) Graph() ([]GraphNode, []GraphLink, error) {
	nodeRows, err := db.conn.Query(`SELECT path, title, type FROM entries ORDER BY path`)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: graph nodes: %w", err)
	}
	defer nodeRows.Close()

	nodes := make([]GraphNode, 0)
	for nodeRows.Next() {
		var n GraphNode
		if err := nodeRows.Scan(&n.ID, &n.Title, &n.Type); err != nil {
			return nil, nil, fmt.Errorf("catalog: scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := nodeRows.Err(); err != nil {
		return nil, nil, err
	}

	linkRows, err := db.conn.Query(`SELECT source, target, kind FROM refs ORDER BY source, target, kind`)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: graph links: %w", err)
	}
	defer linkRows.Close()

	links := make([]GraphLink, 0)
	for linkRows.Next() {
		var l GraphLink
		if err := linkRows.Scan(&l.Source, &l.Target, &l.Kind); err != nil {
			return nil, nil, fmt.Errorf("catalog: scan link: %w", err)
		}
		links = append(links, l)
	}
	return nodes, links, linkRows.Err()
}

// Backlinks returns the paths of entries that reference the entry at path
// through any identifier form it answers to: the path itself, the path
// without its extension, or its declared slug.
func (db *DB) Backlinks(path string) ([]string, error) {
	targets := []interface{}{path}
	if trimmed := strings.TrimSuffix(path, ".md"); trimmed != path {
		targets = append(targets, trimmed)
	}
	var slug string
	err := db.conn.QueryRow(`SELECT slug FROM entries WHERE path = ?`, path).Scan(&slug)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog: backlinks slug lookup %s: %w", path, err)
	}
	if slug != "" {
		targets = append(targets, slug)
	}

	placeholders := strings.Repeat(",?", len(targets)-1)
	rows, err := db.conn.Query(
		`SELECT DISTINCT source FROM refs WHERE target IN (?`+placeholders+`) ORDER BY source`,
		targets...,
	)
	if err != nil {
		return nil, fmt.Errorf("catalog: backlinks %s: %w", path, err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, fmt.Errorf("catalog: scan backlink: %w", err)
		}
		out = append(out, source)
	}
	return out, rows.Err()
}

// AllPaths returns the set of indexed entry paths.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM entries`)
	if err != nil {
		return nil, fmt.Errorf("catalog: all paths: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("catalog: scan path: %w", err)
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// AllChecksums returns every indexed path mapped to its stored checksum.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM entries`)
	if err != nil {
		return nil, fmt.Errorf("catalog: all checksums: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, fmt.Errorf("catalog: scan checksum: %w", err)
		}
		out[p] = cs
	}
	return out, rows.Err()
}

func decodeTags(tagsJSON string) []string {
	tags := []string{}
	if tagsJSON != "" {
		_ = json.Unmarshal([]byte(tagsJSON), &tags)
	}
	return tags
}
