// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Laguz tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/laguz/internal/notebook"
	"github.com/starford/laguz/internal/notebookservice"
	"github.com/starford/laguz/internal/storage"
)

// Server wraps the MCP server with Laguz tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *notebookservice.Service
	store storage.Provider
}

// New creates a new MCP server with all Laguz tools registered.
func New(svc *notebookservice.Service, store storage.Provider) *Server {
	s := &Server{svc: svc, store: store}

	s.mcp = server.NewMCPServer(
		"Laguz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_cells",
		mcp.WithDescription("Full-text search through notebook cell sources."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchCells)

	s.mcp.AddTool(mcp.NewTool("read_notebook",
		mcp.WithDescription("Read a notebook: title, kernel and every cell with its source."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the notebook (e.g. folder/analysis.ipynb)")),
	), s.readNotebook)

	s.mcp.AddTool(mcp.NewTool("create_notebook",
		mcp.WithDescription("Create a new empty notebook at the specified path. "+
			"The file is written in nbformat 4; read the laguz://notebook-format "+
			"resource or the get_notebook_contract tool for the exact schema."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new notebook (.ipynb is appended when missing)")),
		mcp.WithString("kernel", mcp.Description("Optional kernelspec name (e.g. python3)")),
	), s.createNotebook)

	s.mcp.AddTool(mcp.NewTool("add_cell",
		mcp.WithDescription("Insert a cell into an existing notebook."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the notebook")),
		mcp.WithString("source", mcp.Required(), mcp.Description("Cell source text")),
		mcp.WithString("cell_type", mcp.Description("code, markdown or raw (default code)")),
		mcp.WithNumber("position", mcp.Description("Insert position (default append at end)")),
	), s.addCell)

	s.mcp.AddTool(mcp.NewTool("clear_outputs",
		mcp.WithDescription("Clear the outputs of every code cell. Execution counts are preserved."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the notebook")),
	), s.clearOutputs)

	s.mcp.AddTool(mcp.NewTool("list_notebooks",
		mcp.WithDescription("List all notebooks in the workspace."),
	), s.listNotebooks)

	s.mcp.AddTool(mcp.NewTool("get_notebook_contract",
		mcp.WithDescription("Returns the canonical Laguz notebook format contract. "+
			"Call this before creating or updating notebooks to ensure correct structure."),
	), s.getNotebookContract)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Upload an image or data file into the workspace assets directory. "+
			"Accepts an http(s) URL or a base64 data URI and returns a markdownImage "+
			"field ready to paste into a markdown cell."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data: URI of the file")),
		mcp.WithString("filename", mcp.Description("Optional target filename (derived from the URL when omitted)")),
	), s.uploadAsset)

	// Resource: notebook format contract.
	s.mcp.AddResource(
		mcp.NewResource("laguz://notebook-format", "Notebook Format Contract",
			mcp.WithResourceDescription("Canonical nbformat 4 structure that all notebooks must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNotebookFormatResource,
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

func (s *Server) searchCells(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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

func (s *Server) readNotebook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.Get(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	out, _ := json.MarshalIndent(detail, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createNotebook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kernel := ""
	if v, kErr := req.RequireString("kernel"); kErr == nil {
		kernel = v
	}

	detail, err := s.svc.Create(ctx, path, kernel)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", detail.Path)), nil
}

func (s *Server) addCell(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cellType := "code"
	if v, tErr := req.RequireString("cell_type"); tErr == nil && v != "" {
		cellType = v
	}
	position := -1
	if v, pErr := req.RequireFloat("position"); pErr == nil {
		position = int(v)
	}

	var cell notebook.Cell
	switch cellType {
	case "code":
		cell = notebook.NewCodeCell(source)
	case "markdown":
		cell = notebook.NewMarkdownCell(source)
	case "raw":
		cell = notebook.NewRawCell(source)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown cell_type: %s (allowed: code, markdown, raw)", cellType)), nil
	}

	detail, err := s.svc.Edit(ctx, path, "", func(doc *notebook.Document) error {
		pos := position
		if pos < 0 {
			pos = doc.Len()
		}
		return doc.InsertCell(pos, cell)
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("added %s cell to %s (%d cells total)", cellType, path, len(detail.Cells))), nil
}

func (s *Server) clearOutputs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.ClearOutputs(ctx, path, ""); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("outputs cleared: %s", path)), nil
}

func (s *Server) listNotebooks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, _, err := s.svc.List(ctx, 500, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("no notebooks found"), nil
	}

	var lines []string
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("%s\t%s\t%d cells", it.Path, it.Title, it.CellCount))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getNotebookContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NotebookFormatContract), nil
}

func (s *Server) readNotebookFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "laguz://notebook-format",
			MIMEType: "text/markdown",
			Text:     NotebookFormatContract,
		},
	}, nil
}
