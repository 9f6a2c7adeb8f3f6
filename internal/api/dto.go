package api

import (
	"github.com/lorehold/biblioplex/internal/catalog"
	"github.com/lorehold/biblioplex/internal/entryservice"
)

// CreateEntryRequest is the body of POST /api/entries.
type CreateEntryRequest struct {
	Path    string `json:"path" example:"quests/the-heist.md"`
	Content string `json:"content" example:"---\ntitle: The Heist\n---\n\n# The Heist\n"`
}

// UpdateEntryRequest is the body of PUT /api/entries/{path}. Optimistic
// concurrency uses the If-Match header, not the body.
type UpdateEntryRequest struct {
	Content string `json:"content"`
}

// EntryListResponse is one page of catalog rows.
type EntryListResponse struct {
	Entries []entryservice.EntryListItem `json:"entries"`
	Total   int                          `json:"total"`
}

// SearchResponse wraps full-text search hits.
type SearchResponse struct {
	Results []catalog.SearchResult `json:"results"`
}

// GraphResponse is the reference graph in node-link form.
type GraphResponse struct {
	Nodes []catalog.GraphNode `json:"nodes"`
	Links []catalog.GraphLink `json:"links"`
}
