// Package catalog maintains the SQLite catalog of vault entries: frontmatter
// columns for filtering, full-text search over titles and bodies, and the
// reference graph built from dependencies and wikilinks.
package catalog

import (
	"time"

	"github.com/lorehold/biblioplex/internal/models"
)

// EntryRow is one catalog row, a projection of an entry's frontmatter plus
// bookkeeping columns.
type EntryRow struct {
	Path      string    `json:"path"`
	Slug      string    `json:"slug,omitempty"`
	Title     string    `json:"title"`
	Type      string    `json:"type,omitempty"`
	College   string    `json:"college,omitempty"`
	Era       string    `json:"era,omitempty"`
	Canon     bool      `json:"canon"`
	Status    string    `json:"status,omitempty"`
	Version   string    `json:"version,omitempty"`
	Author    string    `json:"author,omitempty"`
	Tags      []string  `json:"tags"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SearchResult is one full-text search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// GraphNode is one entry in the reference graph.
type GraphNode struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	Type  string `json:"type,omitempty"`
}

// GraphLink is one directed reference between entries. Kind distinguishes
// declared frontmatter dependencies from inline wikilinks.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Kind   string `json:"kind"`
}

// ListFilter narrows and pages ListEntries results.
type ListFilter struct {
	Type    string
	College string
	Status  string
	Tag     string
	Canon   *bool
	Limit   int
	Offset  int
	Sort    string
}

// EntryCatalog defines the catalog operations consumers depend on, keeping
// the concrete *DB swappable in tests.
type EntryCatalog interface {
	UpsertEntry(row EntryRow, body string, refs []models.Ref) error
	DeleteEntry(path string) error
	GetEntry(path string) (*EntryRow, error)
	GetChecksum(path string) (string, error)
	ListEntries(f ListFilter) ([]EntryRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Graph() ([]GraphNode, []GraphLink, error)
	Backlinks(path string) ([]string, error)
	AllPaths() (map[string]struct{}, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

var _ EntryCatalog = (*DB)(nil)
