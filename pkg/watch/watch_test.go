package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanegrid/agtrace/pkg/provider"
	"github.com/lanegrid/agtrace/pkg/provider/claude"
)

const line1 = `{"type":"user","session_id":"sess-1","cwd":"/work","timestamp":"2026-01-01T00:00:00Z","message":{"role":"user","content":"hi"}}
`
const line2 = `{"type":"assistant","session_id":"sess-1","timestamp":"2026-01-01T00:00:01Z","message":{"role":"assistant","content":[{"type":"text","text":"hello"}]}}
`

func TestWatcherEmitsDeltaOnAppend(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "sess-1.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(line1), 0o644))

	reg := provider.NewRegistry(claude.New())
	w := New([]string{root}, reg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	select {
	case d := <-w.Events:
		assert.Equal(t, "sess-1", d.SessionID)
		assert.Len(t, d.Events, 1)
		assert.False(t, d.Rotated)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for initial delta")
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(line2)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	select {
	case d := <-w.Events:
		assert.Len(t, d.Events, 1)
		assert.Equal(t, "message", d.Events[0].Kind())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for appended delta")
	}
}

func TestWatcherDetectsRotation(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "sess-1.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(line1+line2), 0o644))

	reg := provider.NewRegistry(claude.New())
	w := New([]string{root}, reg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	select {
	case d := <-w.Events:
		assert.Len(t, d.Events, 2)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for initial delta")
	}

	// Simulate rotation: truncate and rewrite with only the first line.
	require.NoError(t, os.WriteFile(path, []byte(line1), 0o644))
	// Ensure mtime moves backward relative to what the watcher recorded is
	// not guaranteed on fast filesystems, so rely on size shrink instead.

	select {
	case d := <-w.Events:
		assert.True(t, d.Rotated)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for rotation delta")
	}
}
