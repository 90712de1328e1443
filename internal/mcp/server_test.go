package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notecards/internal/notes"
)

func call(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestCreateAndGetNote(t *testing.T) {
	svc := notes.NewService(notes.NewMemStore())

	res := call(t, handleCreateNote(svc), map[string]any{"content": "from an agent"})
	require.False(t, res.IsError, text(t, res))
	var created NoteResult
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &created))
	assert.Equal(t, "from an agent", created.Content)
	assert.Equal(t, "agora", created.Age)

	res = call(t, handleGetNote(svc), map[string]any{"id": created.ID})
	require.False(t, res.IsError)
	var got NoteResult
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &got))
	assert.Equal(t, created.ID, got.ID)
}

func TestCreateNoteBlank(t *testing.T) {
	svc := notes.NewService(notes.NewMemStore())
	assert.True(t, call(t, handleCreateNote(svc), map[string]any{"content": "  "}).IsError)
	assert.True(t, call(t, handleCreateNote(svc), map[string]any{}).IsError)
}

func TestSearchAndListNotes(t *testing.T) {
	svc := notes.NewService(notes.NewMemStore())
	for _, c := range []string{"milk and eggs", "dentist tuesday"} {
		_, err := svc.Create(context.Background(), notes.CreateNoteInput{Content: c})
		require.NoError(t, err)
	}

	res := call(t, handleSearchNotes(svc), map[string]any{"query": "dentist"})
	require.False(t, res.IsError)
	var found []NoteResult
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &found))
	require.Len(t, found, 1)
	assert.Equal(t, "dentist tuesday", found[0].Content)

	res = call(t, handleSearchNotes(svc), map[string]any{"query": "x", "since": "last week"})
	assert.True(t, res.IsError)

	res = call(t, handleListNotes(svc), map[string]any{"limit": 1})
	require.False(t, res.IsError)
	var listed []NoteResult
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &listed))
	assert.Len(t, listed, 1)

	res = call(t, handleGetRecentNotes(svc), nil)
	require.False(t, res.IsError)
	var recent []NoteResult
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &recent))
	assert.Len(t, recent, 2)
}

func TestNewServer(t *testing.T) {
	assert.NotNil(t, NewServer(notes.NewService(notes.NewMemStore()), "test"))
}
