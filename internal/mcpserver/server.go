// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes cellcheck tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/cellcheck/internal/apperr"
	"github.com/starford/cellcheck/internal/checkbox"
	"github.com/starford/cellcheck/internal/index"
	"github.com/starford/cellcheck/internal/noteservice"
)

const contractURI = "cellcheck://note-format"

// Server wraps the MCP server with cellcheck tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"cellcheck",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through note titles, content and checkbox labels."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a Markdown note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new Markdown note at the specified path. "+
			"Checkbox tables MUST follow the note format contract; read it first via "+
			"the get_note_contract tool or the "+contractURI+" resource. "+
			"Checkboxes written without an identity are numbered when the note is created."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new note (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content following the note format contract")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the note format contract, including the table checkbox syntax. "+
			"Call this before creating or updating notes."),
	), s.getNoteContract)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes with their titles, optionally filtered by tag."),
		mcp.WithString("tag", mcp.Description("Optional tag filter")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of notes (default 50)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("list_checkboxes",
		mcp.WithDescription("List table checkboxes with identity, state and label. "+
			"With a path, lists that note and its progress; without, queries the whole vault."),
		mcp.WithString("path", mcp.Description("Optional note path")),
		mcp.WithBoolean("checked", mcp.Description("Optional state filter for vault-wide queries")),
		mcp.WithString("query", mcp.Description("Optional label text filter for vault-wide queries")),
	), s.listCheckboxes)

	s.mcp.AddTool(mcp.NewTool("toggle_checkbox",
		mcp.WithDescription("Check or uncheck one table checkbox by its identity. "+
			"Only the bracket character is rewritten; the rest of the note is untouched."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Note path")),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Checkbox identity, the number in {N}")),
		mcp.WithBoolean("checked", mcp.Required(), mcp.Description("Target state")),
	), s.toggleCheckbox)

	s.mcp.AddTool(mcp.NewTool("enumerate_note",
		mcp.WithDescription("Number the table checkboxes of a note 0, 1, 2... in document order."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Note path")),
		mcp.WithBoolean("dry_run", mcp.Description("Report the edits without writing")),
	), s.enumerateNote)

	s.mcp.AddTool(mcp.NewTool("render_note",
		mcp.WithDescription("Render a note to HTML with checkbox inputs bound to table cells."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Note path")),
	), s.renderNote)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Note Format Contract",
			mcp.WithResourceDescription("Markdown note format, including table checkbox syntax."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// toolError turns service errors into tool results the model can act on.
func toolError(path string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path))
	case errors.Is(err, apperr.ErrAlreadyExists):
		return mcp.NewToolResultError(fmt.Sprintf("note already exists: %s", path))
	case errors.Is(err, apperr.ErrStale):
		return mcp.NewToolResultError(fmt.Sprintf("checkbox not found in %s; list_checkboxes shows current identities", path))
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	return jsonResult(results)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, path)
	if err != nil {
		return toolError(path, err), nil
	}
	return mcp.NewToolResultText(note.Content), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !strings.HasSuffix(path, ".md") {
		return mcp.NewToolResultError("path must end with .md"), nil
	}

	if _, err := s.svc.CreateNote(ctx, path, []byte(content)); err != nil {
		return toolError(path, err), nil
	}
	res, err := s.svc.EnumerateNote(ctx, path, false)
	if err != nil {
		return toolError(path, err), nil
	}
	if res.Changed {
		return mcp.NewToolResultText(fmt.Sprintf("created: %s (%d checkbox identities assigned)", path, res.Edits)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", path)), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag := req.GetString("tag", "")
	limit := req.GetInt("limit", 50)

	items, _, err := s.svc.ListNotes(ctx, limit, 0, tag, "path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lines := make([]string, 0, len(items))
	for _, it := range items {
		if it.Title != "" {
			lines = append(lines, it.Path+"\t"+it.Title)
		} else {
			lines = append(lines, it.Path)
		}
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) listCheckboxes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path != "" {
		list, err := s.svc.Checkboxes(ctx, path)
		if err != nil {
			return toolError(path, err), nil
		}
		return jsonResult(list)
	}

	q := index.CheckboxQuery{Text: req.GetString("query", ""), Limit: 200}
	if args := req.GetArguments(); args != nil {
		if _, ok := args["checked"]; ok {
			checked := req.GetBool("checked", false)
			q.Checked = &checked
		}
	}
	boxes, err := s.svc.ListCheckboxes(ctx, q)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(boxes)
}

func (s *Server) toggleCheckbox(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	checked, err := req.RequireBool("checked")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	box, err := s.svc.ToggleCheckbox(ctx, path, checkbox.State{ID: id, Checked: checked})
	if err != nil {
		return toolError(path, err), nil
	}
	return jsonResult(box)
}

func (s *Server) enumerateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.EnumerateNote(ctx, path, req.GetBool("dry_run", false))
	if err != nil {
		return toolError(path, err), nil
	}
	return jsonResult(res)
}

func (s *Server) renderNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.svc.RenderNote(ctx, path)
	if err != nil {
		return toolError(path, err), nil
	}
	return mcp.NewToolResultText(out.HTML), nil
}

func (s *Server) getNoteContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
