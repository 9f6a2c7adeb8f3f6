// Package entryservice implements the application service shared by the
// HTTP API and the MCP server: entry CRUD backed by the vault filesystem,
// catalog queries, and on-demand validation reports.
package entryservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lorehold/biblioplex/internal/apperr"
	"github.com/lorehold/biblioplex/internal/catalog"
	"github.com/lorehold/biblioplex/internal/checksum"
	"github.com/lorehold/biblioplex/internal/parser"
	"github.com/lorehold/biblioplex/internal/storage"
	"github.com/lorehold/biblioplex/internal/validate"
)

// Service wires storage, the catalog, and the validator together. Writes go
// to disk first; the catalog row follows in the same call so API clients
// see their own writes without waiting for the watcher.
type Service struct {
	store  storage.Provider
	db     *catalog.DB
	runner *validate.Runner
}

// NewService returns a Service over the given backends.
func NewService(store storage.Provider, db *catalog.DB, runner *validate.Runner) *Service {
	return &Service{store: store, db: db, runner: runner}
}

// EntryDetail is the full representation of one entry.
type EntryDetail struct {
	Path        string                 `json:"path"`
	Title       string                 `json:"title"`
	Content     string                 `json:"content"`
	Checksum    string                 `json:"checksum"`
	Tags        []string               `json:"tags"`
	Frontmatter map[string]interface{} `json:"frontmatter,omitempty"`
	Backlinks   []string               `json:"backlinks"`
}

// EntryListItem is one row of a list response.
type EntryListItem = catalog.EntryRow

// GetEntry returns the entry at path. A file whose frontmatter no longer
// parses is still served with its raw content so it can be repaired.
func (s *Service) GetEntry(ctx context.Context, path string) (*EntryDetail, error) {
	data, err := s.store.Read(path)
	if err != nil {
		return nil, err
	}
	detail := &EntryDetail{
		Path:      path,
		Content:   string(data),
		Checksum:  checksum.Sum(data),
		Tags:      []string{},
		Backlinks: []string{},
	}
	if res, err := parser.Parse(data); err == nil {
		detail.Title = res.Title
		detail.Tags = nonNilSlice(res.Tags)
		detail.Frontmatter = res.Frontmatter
	}
	back, err := s.db.Backlinks(path)
	if err != nil {
		return nil, err
	}
	detail.Backlinks = nonNilSlice(back)
	return detail, nil
}

// CreateEntry writes a new entry. The path must be a new .md file and the
// content must at least parse; schema problems are the validator's job.
func (s *Service) CreateEntry(ctx context.Context, path, content string) (*EntryDetail, error) {
	if !strings.HasSuffix(path, ".md") {
		return nil, fmt.Errorf("%w: path must end in .md", apperr.ErrInvalidInput)
	}
	if _, err := parser.Parse([]byte(content)); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	if _, err := s.store.Read(path); err == nil {
		return nil, apperr.ErrAlreadyExists
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	if err := s.store.Write(path, []byte(content)); err != nil {
		return nil, err
	}
	if err := s.IndexFile(path, []byte(content)); err != nil {
		return nil, err
	}
	return s.GetEntry(ctx, path)
}

// UpdateEntry replaces an entry's content. A non-empty ifMatch must equal
// the current checksum or the update is rejected as a conflict.
func (s *Service) UpdateEntry(ctx context.Context, path, content, ifMatch string) (*EntryDetail, error) {
	data, err := s.store.Read(path)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && !checksum.Matches(data, ifMatch) {
		return nil, apperr.ErrConflict
	}
	if _, err := parser.Parse([]byte(content)); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	if err := s.store.Write(path, []byte(content)); err != nil {
		return nil, err
	}
	if err := s.IndexFile(path, []byte(content)); err != nil {
		return nil, err
	}
	return s.GetEntry(ctx, path)
}

// DeleteEntry removes an entry from disk and from the catalog.
func (s *Service) DeleteEntry(ctx context.Context, path string) error {
	if err := s.store.Delete(path); err != nil {
		return err
	}
	return s.db.DeleteEntry(path)
}

// ListEntries returns one page of catalog rows plus the total match count.
func (s *Service) ListEntries(ctx context.Context, f catalog.ListFilter) ([]EntryListItem, int, error) {
	rows, total, err := s.db.ListEntries(f)
	if err != nil {
		return nil, 0, err
	}
	return nonNilSlice(rows), total, nil
}

// Search runs a full-text query over the catalog.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]catalog.SearchResult, error) {
	results, err := s.db.Search(query, limit)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(results), nil
}

// Graph returns the reference graph.
func (s *Service) Graph(ctx context.Context) ([]catalog.GraphNode, []catalog.GraphLink, error) {
	nodes, links, err := s.db.Graph()
	if err != nil {
		return nil, nil, err
	}
	return nonNilSlice(nodes), nonNilSlice(links), nil
}

// Backlinks returns the paths referencing the entry at path.
func (s *Service) Backlinks(ctx context.Context, path string) ([]string, error) {
	back, err := s.db.Backlinks(path)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(back), nil
}

// Report runs a full validation pass over the vault.
func (s *Service) Report(ctx context.Context) (*validate.Report, error) {
	return s.runner.Run(ctx)
}

// IndexFile refreshes the catalog row for one file.
func (s *Service) IndexFile(path string, data []byte) error {
	return catalog.IndexEntry(s.db, path, data)
}

// nonNilSlice keeps JSON responses honest: empty means [], never null.
func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
