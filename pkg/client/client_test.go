package client

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanegrid/agtrace/pkg/provider"
	"github.com/lanegrid/agtrace/pkg/provider/claude"
)

const fixture = `{"type":"user","session_id":"sess-1","cwd":"/work","timestamp":"2026-01-01T00:00:00Z","message":{"role":"user","content":"fix the bug"}}
{"type":"assistant","session_id":"sess-1","timestamp":"2026-01-01T00:00:01Z","message":{"role":"assistant","content":[{"type":"text","text":"fixed it"}]}}
`

func newTestClient(t *testing.T) (*Client, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "sess-1.jsonl"), []byte(fixture), 0o644))

	dbPath := filepath.Join(t.TempDir(), "index.db")
	reg := provider.NewRegistry(claude.New())
	c, err := Connect(dbPath, []string{root}, reg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, root
}

func TestReindexThenListSessions(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	stats, err := c.System.Reindex(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SessionsIndexed)
	assert.Equal(t, 0, stats.Failures)

	sessions, err := c.Sessions.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "claude", sessions[0].Provider)
}

func TestReindexThenGetSession(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	_, err := c.System.Reindex(ctx, false)
	require.NoError(t, err)

	sessions, err := c.Sessions.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	sess, err := c.Sessions.Get(ctx, sessions[0].ID)
	require.NoError(t, err)
	require.Len(t, sess.Turns, 1)
	msg, ok := sess.Turns[0].Steps[len(sess.Turns[0].Steps)-1].Message()
	require.True(t, ok)
	assert.Equal(t, "fixed it", msg)
}

func TestSearchEventsFindsMatch(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	_, err := c.System.Reindex(ctx, false)
	require.NoError(t, err)

	results, err := c.Sessions.SearchEvents(ctx, "fixed", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestReindexForceResetsIndex(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	_, err := c.System.Reindex(ctx, false)
	require.NoError(t, err)

	stats, err := c.System.Reindex(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SessionsIndexed)
}
