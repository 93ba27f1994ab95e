// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the vault and its mutation engine for LLM integration
// via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ehwaz/internal/index"
	"github.com/starford/ehwaz/internal/mutate"
	"github.com/starford/ehwaz/internal/parser"
	"github.com/starford/ehwaz/internal/storage"
)

// indexDocument upserts a freshly written note so search and tag lookups
// see it before the watcher's next pass.
func indexDocument(db *index.DB, path string, data []byte) {
	res, err := parser.Parse(data)
	if err != nil {
		return
	}
	tags := res.Tags
	if tags == nil {
		tags = []string{}
	}
	_ = db.UpsertNote(index.NoteRow{
		Path:  path,
		Title: res.Title,
		Tags:  tags,
	}, res.Body, res.Links)
}

// Server wraps the MCP server with vault tools.
type Server struct {
	mcp   *server.MCPServer
	store storage.Provider
	db    *index.DB
	eng   *mutate.Engine
}

// New creates a new MCP server with all vault tools registered.
func New(store storage.Provider, db *index.DB, eng *mutate.Engine) *Server {
	s := &Server{store: store, db: db, eng: eng}

	s.mcp = server.NewMCPServer(
		"Ehwaz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through notes content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a Markdown note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new Markdown note at the specified path. "+
			"Content MUST follow the canonical note format (YAML frontmatter with title, "+
			"optional tags, Markdown body with [[wikilinks]]). Read the contract first via "+
			"the get_note_contract tool or the ehwaz://note-format resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new note (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content following the note format contract")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all notes or notes in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to the specified note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("move_note",
		mcp.WithDescription("Move or rename a note. Wikilinks pointing at the note are rewritten in every other note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Current relative path of the note")),
		mcp.WithString("new_path", mcp.Required(), mcp.Description("Destination relative path (must end with .md)")),
	), s.moveNote)

	s.mcp.AddTool(mcp.NewTool("move_folder",
		mcp.WithDescription("Move a whole folder of notes to a new location, preserving wikilinks. "+
			"On a mid-move failure the already-moved notes are moved back."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Current relative folder path")),
		mcp.WithString("new_path", mcp.Required(), mcp.Description("Destination relative folder path")),
	), s.moveFolder)

	s.mcp.AddTool(mcp.NewTool("add_tags",
		mcp.WithDescription("Add one or more tags to a note. Already-present tags are skipped."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the note")),
		mcp.WithString("tags", mcp.Required(), mcp.Description("Comma-separated tag names, without the leading #")),
		mcp.WithString("location", mcp.Description("Where to place tags: frontmatter, inline, or both (default)")),
	), s.addTags)

	s.mcp.AddTool(mcp.NewTool("remove_tags",
		mcp.WithDescription("Remove one or more tags from a note. Absent tags are skipped."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the note")),
		mcp.WithString("tags", mcp.Required(), mcp.Description("Comma-separated tag names, without the leading #")),
		mcp.WithString("location", mcp.Description("Which surface to remove from: frontmatter, inline, or both (default)")),
	), s.removeTags)

	s.mcp.AddTool(mcp.NewTool("rename_tag",
		mcp.WithDescription("Rename a tag across the whole vault, including hierarchical children (old/x becomes new/x)."),
		mcp.WithString("old_tag", mcp.Required(), mcp.Description("Current tag name")),
		mcp.WithString("new_tag", mcp.Required(), mcp.Description("New tag name")),
	), s.renameTag)

	// Resource: note format contract.
	s.mcp.AddResource(
		mcp.NewResource("ehwaz://note-format", "Note Format Contract",
			mcp.WithResourceDescription("Canonical Markdown note format that all notes must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the canonical note format contract. "+
			"Call this before creating or updating notes to ensure correct structure."),
	), s.getNoteContract)

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

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if s.store.Exists(path) {
		return mcp.NewToolResultError(fmt.Sprintf("note already exists: %s", path)), nil
	}
	if err := s.store.Write(path, []byte(content)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	indexDocument(s.db, path, []byte(content))
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", path)), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.db.Backlinks(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) moveNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newPath, err := req.RequireString("new_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.eng.MoveFile(path, newPath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("moved: %s -> %s", result.OldPath, result.NewPath)), nil
}

func (s *Server) moveFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newPath, err := req.RequireString("new_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.eng.MoveDirectory(path, newPath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("moved %d notes: %s -> %s", result.FilesMoved, result.OldPath, result.NewPath)), nil
}

func (s *Server) addTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.tagBatch(req, mutate.TagAdd)
}

func (s *Server) removeTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.tagBatch(req, mutate.TagRemove)
}

func (s *Server) tagBatch(req mcp.CallToolRequest, op mutate.TagOp) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	location := mutate.TagLocation("")
	if loc, locErr := req.RequireString("location"); locErr == nil {
		location = mutate.TagLocation(loc)
	}

	result, err := s.eng.ApplyTagBatch(path, op, strings.Split(raw, ","), location)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) renameTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	oldTag, err := req.RequireString("old_tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newTag, err := req.RequireString("new_tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.eng.RenameTag(oldTag, newTag)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getNoteContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "ehwaz://note-format",
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
