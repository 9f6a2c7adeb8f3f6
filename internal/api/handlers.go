// Package api exposes the vault over HTTP: entry CRUD, catalog queries,
// validation reports, and the SSE event stream.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lorehold/biblioplex/internal/apperr"
	"github.com/lorehold/biblioplex/internal/catalog"
	"github.com/lorehold/biblioplex/internal/entryservice"
)

// Handler carries the service the HTTP endpoints delegate to.
type Handler struct {
	svc *entryservice.Service
}

// NewHandler returns a Handler over svc.
func NewHandler(svc *entryservice.Service) *Handler {
	return &Handler{svc: svc}
}

// entryPath extracts the vault-relative path from a wildcard route.
func entryPath(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "*")
	path, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrInvalidPath, err)
	}
	if path == "" {
		return "", fmt.Errorf("%w: empty entry path", apperr.ErrInvalidPath)
	}
	return path, nil
}

// ListEntries returns one page of catalog rows.
//
//	@Summary	List entries
//	@Tags		entries
//	@Produce	json
//	@Param		type	query	string	false	"Entry type filter"
//	@Param		college	query	string	false	"College filter"
//	@Param		status	query	string	false	"Playtest status filter"
//	@Param		tag		query	string	false	"Tag filter"
//	@Param		canon	query	bool	false	"Canon filter"
//	@Param		limit	query	int		false	"Page size (default 50)"
//	@Param		offset	query	int		false	"Page offset"
//	@Param		sort	query	string	false	"Sort order: path, title, updated"
//	@Success	200		{object}	EntryListResponse
//	@Router		/api/entries [get]
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := catalog.ListFilter{
		Type:    q.Get("type"),
		College: q.Get("college"),
		Status:  q.Get("status"),
		Tag:     q.Get("tag"),
		Sort:    q.Get("sort"),
	}
	if raw := q.Get("canon"); raw != "" {
		canon, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, fmt.Errorf("%w: canon must be true or false", apperr.ErrInvalidInput))
			return
		}
		filter.Canon = &canon
	}
	if raw := q.Get("limit"); raw != "" {
		filter.Limit, _ = strconv.Atoi(raw)
	}
	if raw := q.Get("offset"); raw != "" {
		filter.Offset, _ = strconv.Atoi(raw)
	}

	entries, total, err := h.svc.ListEntries(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, EntryListResponse{Entries: entries, Total: total})
}

// CreateEntry writes a new entry file.
//
//	@Summary	Create an entry
//	@Tags		entries
//	@Accept		json
//	@Produce	json
//	@Param		request	body	CreateEntryRequest	true	"Entry to create"
//	@Success	201		{object}	entryservice.EntryDetail
//	@Router		/api/entries [post]
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err))
		return
	}
	detail, err := h.svc.CreateEntry(r.Context(), req.Path, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, detail)
}

// GetEntry returns one entry with its content and backlinks.
//
//	@Summary	Get an entry
//	@Tags		entries
//	@Produce	json
//	@Param		path	path	string	true	"Vault-relative entry path"
//	@Success	200		{object}	entryservice.EntryDetail
//	@Router		/api/entries/{path} [get]
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	path, err := entryPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	detail, err := h.svc.GetEntry(r.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// UpdateEntry replaces an entry's content, honoring If-Match.
//
//	@Summary	Update an entry
//	@Tags		entries
//	@Accept		json
//	@Produce	json
//	@Param		path	path	string	true	"Vault-relative entry path"
//	@Param		If-Match	header	string	false	"Checksum the update must apply to"
//	@Param		request	body	UpdateEntryRequest	true	"New content"
//	@Success	200		{object}	entryservice.EntryDetail
//	@Router		/api/entries/{path} [put]
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	path, err := entryPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err))
		return
	}
	detail, err := h.svc.UpdateEntry(r.Context(), path, req.Content, r.Header.Get("If-Match"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// DeleteEntry removes an entry.
//
//	@Summary	Delete an entry
//	@Tags		entries
//	@Param		path	path	string	true	"Vault-relative entry path"
//	@Success	204
//	@Router		/api/entries/{path} [delete]
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	path, err := entryPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.DeleteEntry(r.Context(), path); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search runs a full-text query.
//
//	@Summary	Search entries
//	@Tags		search
//	@Produce	json
//	@Param		q		query	string	true	"Query"
//	@Param		limit	query	int		false	"Max results (default 20)"
//	@Success	200		{object}	SearchResponse
//	@Router		/api/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, fmt.Errorf("%w: missing query parameter q", apperr.ErrInvalidInput))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), query, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Graph returns the reference graph.
//
//	@Summary	Reference graph
//	@Tags		graph
//	@Produce	json
//	@Success	200	{object}	GraphResponse
//	@Router		/api/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, links, err := h.svc.Graph(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GraphResponse{Nodes: nodes, Links: links})
}

// Report runs a validation pass and returns the full report.
//
//	@Summary	Validate the vault
//	@Tags		report
//	@Produce	json
//	@Success	200	{object}	validate.Report
//	@Router		/api/report [get]
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.Report(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
