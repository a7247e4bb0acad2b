// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Ansuz vault tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/storage"
)

// Server wraps the MCP server with Ansuz tools.
type Server struct {
	mcp   *server.MCPServer
	store storage.Provider
	ix    index.VaultIndex
}

// New creates a new MCP server with all Ansuz tools registered.
func New(store storage.Provider, ix index.VaultIndex) *Server {
	s := &Server{store: store, ix: ix}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("query_vault",
		mcp.WithDescription("Run a structured query against the vault index. "+
			"The query is a JSON object with conditions, sort keys, projection "+
			"fields, and a limit. Read the contract first via the "+
			"get_query_contract tool or the ansuz://query-format resource."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Query as a JSON object following the Ansuz query format contract")),
	), s.queryVault)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the full content of a Markdown document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. folder/doc.md)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("create_document",
		mcp.WithDescription("Create a new Markdown document at the specified path. "+
			"Content should carry YAML frontmatter and may use [[wikilinks]]."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new document (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content")),
	), s.createDocument)

	s.mcp.AddTool(mcp.NewTool("get_query_contract",
		mcp.WithDescription("Returns the canonical Ansuz query format contract. "+
			"Call this before using query_vault."),
	), s.getQueryContract)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List all documents or documents in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all documents that link to the specified document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the document to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("get_outgoing",
		mcp.WithDescription("List the outgoing links of the specified document, including unresolved targets."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the document to list links for")),
	), s.getOutgoing)

	// Resource: query format contract.
	s.mcp.AddResource(
		mcp.NewResource("ansuz://query-format", "Query Format Contract",
			mcp.WithResourceDescription("Canonical structured query format accepted by query_vault."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readQueryFormatResource,
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

func (s *Server) queryVault(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var q index.Query
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid query JSON: %v", err)), nil
	}
	results, err := s.ix.Execute(q)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) createDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if _, statErr := s.store.Stat(path); statErr == nil {
		return mcp.NewToolResultError(fmt.Sprintf("document already exists: %s", path)), nil
	}

	data := []byte(content)
	if err := s.store.Write(path, data); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	meta, err := s.store.Stat(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := index.IndexFile(s.ix, path, data, meta.Size, meta.UpdatedAt); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("created: %s", path)), nil
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = f
	}

	metas, err := s.store.List(folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, m := range metas {
		paths = append(paths, m.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) getQueryContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(QueryFormatContract), nil
}

func (s *Server) readQueryFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "ansuz://query-format",
			MIMEType: "text/markdown",
			Text:     QueryFormatContract,
		},
	}, nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl := s.ix.Backlinks(path)
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) getOutgoing(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	links := s.ix.Outgoing(path)
	if len(links) == 0 {
		return mcp.NewToolResultText("no outgoing links"), nil
	}
	lines := make([]string, len(links))
	for i, l := range links {
		if l.Resolved() {
			lines[i] = l.Target
		} else {
			lines[i] = l.Raw + " (unresolved)"
		}
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}
