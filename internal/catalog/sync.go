package catalog

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/lorehold/biblioplex/internal/checksum"
	"github.com/lorehold/biblioplex/internal/models"
	"github.com/lorehold/biblioplex/internal/parser"
	"github.com/lorehold/biblioplex/internal/schema"
	"github.com/lorehold/biblioplex/internal/storage"
)

// Sync reconciles the catalog with the vault on disk: new and changed files
// are re-indexed, vanished files are dropped. Files that fail to read or
// parse are logged and skipped; the catalog stays lenient and leaves
// strictness to the validator.
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return fmt.Errorf("catalog: sync list: %w", err)
	}

	seen := make(map[string]struct{}, len(metas))
	var indexed, removed int
	for _, m := range metas {
		seen[m.Path] = struct{}{}
		cs, err := db.GetChecksum(m.Path)
		if err != nil {
			return err
		}
		if cs == m.Checksum {
			continue
		}
		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", "path", m.Path, "error", err)
			continue
		}
		if err := IndexEntry(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", "path", m.Path, "error", err)
			continue
		}
		indexed++
	}

	paths, err := db.AllPaths()
	if err != nil {
		return err
	}
	for p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		if err := db.DeleteEntry(p); err != nil {
			logger.Warn("sync: remove failed", "path", p, "error", err)
			continue
		}
		removed++
	}

	logger.Info("catalog sync complete", "indexed", indexed, "removed", removed, "total", len(metas))
	return nil
}

// IndexEntry parses one file and writes its catalog row and references.
func IndexEntry(db *DB, path string, data []byte) error {
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}
	row, refs := rowFromResult(path, checksum.Sum(data), time.Now(), res)
	return db.UpsertEntry(row, res.Body, refs)
}

// rowFromResult projects a parse result onto a catalog row plus the entry's
// outgoing references. Frontmatter values with the wrong shape index as
// zero values; the validator reports them.
func rowFromResult(path, cs string, updated time.Time, res *parser.Result) (EntryRow, []models.Ref) {
	fm := res.Frontmatter
	row := EntryRow{
		Path:      path,
		Slug:      schema.String(fm, schema.FieldSlug),
		Title:     res.Title,
		Type:      schema.String(fm, schema.FieldType),
		College:   schema.String(fm, schema.FieldCollege),
		Era:       schema.String(fm, schema.FieldEra),
		Canon:     schema.Bool(fm, schema.FieldCanon),
		Status:    schema.String(fm, schema.FieldPlaytestStatus),
		Version:   schema.String(fm, schema.FieldVersion),
		Author:    schema.String(fm, schema.FieldAuthor),
		Tags:      res.Tags,
		Checksum:  cs,
		UpdatedAt: updated,
	}

	var refs []models.Ref
	for _, dep := range schema.Strings(fm, schema.FieldDependencies) {
		refs = append(refs, models.Ref{Source: path, Target: dep, Kind: models.RefFrontmatter})
	}
	for _, link := range res.Links {
		refs = append(refs, models.Ref{Source: path, Target: link, Kind: models.RefInline})
	}
	return row, refs
}
