// Package models defines the domain types for Biblioplex.
package models

import "time"

// Ref kinds. Frontmatter refs come from the dependencies list and are the
// hard edges the cycle checker walks; inline refs are body wikilinks.
const (
	RefFrontmatter = "frontmatter"
	RefInline      = "inline"
)

// Entry represents a parsed campaign content file in the vault.
type Entry struct {
	Path        string                 `json:"path"`
	Frontmatter map[string]interface{} `json:"frontmatter,omitempty"`
	Body        string                 `json:"body"`
	Title       string                 `json:"title,omitempty"`
	Links       []string               `json:"links,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
	Checksum    string                 `json:"checksum"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// EntryMeta is a lightweight representation returned by list operations.
type EntryMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ref is a directed edge between two entries.
type Ref struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Kind   string `json:"kind"` // RefFrontmatter or RefInline
}
