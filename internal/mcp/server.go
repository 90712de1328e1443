package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"notecards/internal/notes"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates an MCP server with tools for note operations
func NewServer(svc *notes.Service, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"Notecards",
		version,
		server.WithToolCapabilities(true),
	)

	// Tool: list_notes - Page through notes
	s.AddTool(
		mcp.NewTool("list_notes",
			mcp.WithDescription("List notes ordered by newest first. Use this to browse everything that was written down."),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of notes to return (default: 50, max: 200)"),
			),
			mcp.WithNumber("offset",
				mcp.Description("Number of notes to skip for pagination (default: 0)"),
			),
		),
		handleListNotes(svc),
	)

	// Tool: search_notes - Full-text search
	s.AddTool(
		mcp.NewTool("search_notes",
			mcp.WithDescription("Full-text search across notes with optional date filtering."),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Search query - searches note content"),
			),
			mcp.WithString("since",
				mcp.Description("Optional: Only return notes created after this date (ISO format: YYYY-MM-DD or RFC3339)"),
			),
			mcp.WithString("until",
				mcp.Description("Optional: Only return notes created before this date (ISO format: YYYY-MM-DD or RFC3339)"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of notes to return (default: 50, max: 200)"),
			),
		),
		handleSearchNotes(svc),
	)

	// Tool: get_recent_notes
	s.AddTool(
		mcp.NewTool("get_recent_notes",
			mcp.WithDescription("Get the most recent notes. Use this to see what's new."),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of notes to return (default: 20, max: 100)"),
			),
			mcp.WithString("since",
				mcp.Description("Optional: Only return notes created after this date (ISO format: YYYY-MM-DD or RFC3339)"),
			),
		),
		handleGetRecentNotes(svc),
	)

	// Tool: get_note - Get a specific note by ID
	s.AddTool(
		mcp.NewTool("get_note",
			mcp.WithDescription("Get a specific note by its ID."),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("The note ID (24-character hex string)"),
			),
		),
		handleGetNote(svc),
	)

	// Tool: create_note
	s.AddTool(
		mcp.NewTool("create_note",
			mcp.WithDescription("Create a new note. Content is markdown and must not be blank."),
			mcp.WithString("content",
				mcp.Required(),
				mcp.Description("Note content (markdown)"),
			),
		),
		handleCreateNote(svc),
	)

	return s
}

// NoteResult represents a note in tool responses
type NoteResult struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Age       string    `json:"age"`
}

func handleListNotes(svc *notes.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		noteList, err := svc.List(ctx, notes.ListQuery{
			Limit:  req.GetInt("limit", 50),
			Offset: req.GetInt("offset", 0),
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list notes: %v", err)), nil
		}
		return jsonResult(notesToResults(svc, noteList))
	}
}

func handleSearchNotes(svc *notes.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}

		q := notes.SearchQuery{
			Query: query,
			Limit: req.GetInt("limit", 50),
		}

		if since := req.GetString("since", ""); since != "" {
			t, err := notes.ParseDate(since)
			if err != nil {
				return mcp.NewToolResultError("invalid 'since' date format: expected YYYY-MM-DD or RFC3339"), nil
			}
			q.Since = &t
		}

		if until := req.GetString("until", ""); until != "" {
			t, err := notes.ParseDate(until)
			if err != nil {
				return mcp.NewToolResultError("invalid 'until' date format: expected YYYY-MM-DD or RFC3339"), nil
			}
			q.Until = &t
		}

		noteList, err := svc.Search(ctx, q)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to search notes: %v", err)), nil
		}
		return jsonResult(notesToResults(svc, noteList))
	}
}

func handleGetRecentNotes(svc *notes.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q := notes.SearchQuery{
			Limit: req.GetInt("limit", 20),
		}

		if since := req.GetString("since", ""); since != "" {
			t, err := notes.ParseDate(since)
			if err != nil {
				return mcp.NewToolResultError("invalid 'since' date format: expected YYYY-MM-DD or RFC3339"), nil
			}
			q.Since = &t
		}

		noteList, err := svc.GetRecent(ctx, q)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to get recent notes: %v", err)), nil
		}
		return jsonResult(notesToResults(svc, noteList))
	}
}

func handleGetNote(svc *notes.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}

		note, err := svc.GetByID(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to get note: %v", err)), nil
		}
		return jsonResult(noteToResult(svc, note))
	}
}

func handleCreateNote(svc *notes.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, err := req.RequireString("content")
		if err != nil {
			return mcp.NewToolResultError("content is required"), nil
		}

		note, err := svc.Create(ctx, notes.CreateNoteInput{Content: content})
		if errors.Is(err, notes.ErrContentRequired) {
			return mcp.NewToolResultError("content must not be blank"), nil
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create note: %v", err)), nil
		}
		return jsonResult(noteToResult(svc, note))
	}
}

// Helper functions

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func noteToResult(svc *notes.Service, note *notes.Note) NoteResult {
	return NoteResult{
		ID:        note.ID.Hex(),
		Content:   note.Content,
		CreatedAt: note.CreatedAt,
		Age:       svc.RelativeTime(note.CreatedAt),
	}
}

func notesToResults(svc *notes.Service, noteList []*notes.Note) []NoteResult {
	results := make([]NoteResult, len(noteList))
	for i, note := range noteList {
		results[i] = noteToResult(svc, note)
	}
	return results
}
