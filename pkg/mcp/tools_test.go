package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanegrid/agtrace/pkg/client"
	"github.com/lanegrid/agtrace/pkg/provider"
	"github.com/lanegrid/agtrace/pkg/provider/claude"
)

const fixture = `{"type":"user","session_id":"sess-1","cwd":"/work","timestamp":"2026-01-01T00:00:00Z","message":{"role":"user","content":"fix it"}}
{"type":"assistant","session_id":"sess-1","timestamp":"2026-01-01T00:00:01Z","message":{"role":"assistant","content":[{"type":"text","text":"fixed"}]}}
`

func newTestClient(t *testing.T) *client.Client {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "sess-1.jsonl"), []byte(fixture), 0o644))

	dbPath := filepath.Join(t.TempDir(), "index.db")
	reg := provider.NewRegistry(claude.New())
	c, err := client.Connect(dbPath, []string{root}, reg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	_, err = c.System.Reindex(context.Background(), false)
	require.NoError(t, err)
	return c
}

func callToolRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func TestListSessionsHandler(t *testing.T) {
	c := newTestClient(t)
	result, err := listSessionsHandler(c)(context.Background(), callToolRequest(nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)
}

func TestAnalyzeSessionHandlerUnknownSession(t *testing.T) {
	c := newTestClient(t)
	result, err := analyzeSessionHandler(c)(context.Background(), callToolRequest(map[string]any{"session_id": "does-not-exist"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestSearchEventsHandlerFindsMatch(t *testing.T) {
	c := newTestClient(t)
	result, err := searchEventsHandler(c)(context.Background(), callToolRequest(map[string]any{"query": "fixed"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
}
