// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Biblioplex tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lorehold/biblioplex/internal/apperr"
	"github.com/lorehold/biblioplex/internal/catalog"
	"github.com/lorehold/biblioplex/internal/entryservice"
	"github.com/lorehold/biblioplex/internal/storage"
	"github.com/lorehold/biblioplex/internal/validate"
)

// Server wraps the MCP server with Biblioplex tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *entryservice.Service
	store storage.Provider
}

// New creates a new MCP server with all Biblioplex tools registered.
func New(svc *entryservice.Service, store storage.Provider) *Server {
	s := &Server{svc: svc, store: store}

	s.mcp = server.NewMCPServer(
		"Biblioplex",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_entries",
		mcp.WithDescription("Full-text search through entry content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchEntries)

	s.mcp.AddTool(mcp.NewTool("read_entry",
		mcp.WithDescription("Read the full content of a campaign content entry."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the entry (e.g. quests/heist.md)")),
	), s.readEntry)

	s.mcp.AddTool(mcp.NewTool("create_entry",
		mcp.WithDescription("Create a new campaign content entry at the specified path. "+
			"Content MUST follow the canonical entry format (YAML frontmatter with the full "+
			"metadata schema, Markdown body with [[wikilinks]]). Read the contract first via "+
			"the get_entry_contract tool or the biblioplex://entry-format resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new entry (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content following the Biblioplex entry format contract")),
	), s.createEntry)

	s.mcp.AddTool(mcp.NewTool("update_entry",
		mcp.WithDescription("Replace the content of an existing campaign content entry. "+
			"Fails when the entry does not exist; use create_entry for new files."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the entry to update")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Full replacement content")),
	), s.updateEntry)

	s.mcp.AddTool(mcp.NewTool("delete_entry",
		mcp.WithDescription("Delete a campaign content entry."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the entry to delete")),
	), s.deleteEntry)

	s.mcp.AddTool(mcp.NewTool("get_entry_contract",
		mcp.WithDescription("Returns the canonical Biblioplex entry format contract. "+
			"Call this before creating or updating entries to ensure correct structure."),
	), s.getEntryContract)

	s.mcp.AddTool(mcp.NewTool("list_entries",
		mcp.WithDescription("List catalog entries, optionally filtered by type, college, or playtest status."),
		mcp.WithString("type", mcp.Description("Optional entry type filter (scene, quest, npc, ...)")),
		mcp.WithString("college", mcp.Description("Optional college filter")),
		mcp.WithString("status", mcp.Description("Optional playtest status filter")),
	), s.listEntries)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all entries that reference the specified entry via dependencies or wikilinks."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the entry to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("validate_vault",
		mcp.WithDescription("Run a full metadata validation pass over the vault and return the report. "+
			"Advisory findings (content warning hints, unresolved wikilinks) never fail the vault "+
			"unless strict is true."),
		mcp.WithBoolean("strict", mcp.Description("Count advisory findings as failures (default false)")),
	), s.validateVault)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Download an image or PDF from a URL (or decode a base64 data URI) and "+
			"store it in the vault's assets directory. Returns a Markdown image reference."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data: URI of the asset")),
		mcp.WithString("filename", mcp.Description("Optional filename override")),
	), s.uploadAsset)

	// Resource: entry format contract.
	s.mcp.AddResource(
		mcp.NewResource("biblioplex://entry-format", "Entry Format Contract",
			mcp.WithResourceDescription("Canonical Markdown entry format that all campaign content must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readEntryFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.GetEntry(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(detail.Content), nil
}

func (s *Server) createEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if _, err := s.svc.CreateEntry(ctx, path, content); err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return mcp.NewToolResultError(fmt.Sprintf("entry already exists: %s (use update_entry)", path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", path)), nil
}

func (s *Server) updateEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if _, err := s.svc.UpdateEntry(ctx, path, content, ""); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s", path)), nil
}

func (s *Server) deleteEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeleteEntry(ctx, path); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", path)), nil
}

func (s *Server) listEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := catalog.ListFilter{Limit: 200}
	if v, err := req.RequireString("type"); err == nil {
		filter.Type = v
	}
	if v, err := req.RequireString("college"); err == nil {
		filter.College = v
	}
	if v, err := req.RequireString("status"); err == nil {
		filter.Status = v
	}

	entries, _, err := s.svc.ListEntries(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var lines []string
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s\t%s\t%s", e.Path, e.Type, e.Title))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getEntryContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(EntryFormatContract), nil
}

func (s *Server) readEntryFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "biblioplex://entry-format",
			MIMEType: "text/markdown",
			Text:     EntryFormatContract,
		},
	}, nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

type validateResult struct {
	Clean  bool             `json:"clean"`
	Report *validate.Report `json:"report"`
}

func (s *Server) validateVault(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	strict := false
	if v, err := req.RequireBool("strict"); err == nil {
		strict = v
	}

	rep, err := s.svc.Report(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out, _ := json.MarshalIndent(validateResult{
		Clean:  rep.Clean(!strict),
		Report: rep,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
