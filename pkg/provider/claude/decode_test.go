package claude

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanegrid/agtrace/pkg/builder"
	"github.com/lanegrid/agtrace/pkg/event"
)

const fixture = `{"type":"user","session_id":"sess-1","cwd":"/work","timestamp":"2026-01-01T00:00:00Z","message":{"role":"user","content":"fix the bug"}}
{"type":"assistant","session_id":"sess-1","timestamp":"2026-01-01T00:00:01Z","message":{"role":"assistant","content":[{"type":"thinking","thinking":"let me look"},{"type":"tool_use","id":"toolu_1","name":"Read","input":{"file_path":"main.go"}}],"usage":{"input_tokens":100,"cache_creation_input_tokens":0,"cache_read_input_tokens":20,"output_tokens":15}}}
{"type":"user","session_id":"sess-1","timestamp":"2026-01-01T00:00:02Z","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"toolu_1","content":"package main\n","is_error":false}]}}
{"type":"assistant","session_id":"sess-1","timestamp":"2026-01-01T00:00:03Z","message":{"role":"assistant","content":[{"type":"text","text":"done"}],"usage":{"input_tokens":130,"cache_creation_input_tokens":0,"cache_read_input_tokens":20,"output_tokens":5}}}
`

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sess-1.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o644))
	return path
}

func TestProbesAcceptsClaudeTranscript(t *testing.T) {
	path := writeFixture(t)
	d := New()
	assert.True(t, d.Probes(path))
}

func TestScanHeader(t *testing.T) {
	path := writeFixture(t)
	d := New()
	h, err := d.ScanHeader(path)
	require.NoError(t, err)
	assert.Equal(t, "claude", h.Provider)
	assert.Equal(t, "sess-1", h.SessionID)
	assert.Equal(t, "/work", h.Project)
}

func TestParseProducesExpectedEventSequence(t *testing.T) {
	path := writeFixture(t)
	d := New()
	b := builder.New(builder.SessionID("claude", "sess-1"))

	events, err := d.Parse(path, b)
	require.NoError(t, err)
	require.Len(t, events, 7)

	assertKind := func(i int, kind string) {
		t.Helper()
		assert.Equal(t, kind, events[i].Kind(), "event %d", i)
	}
	assertKind(0, "user")
	assertKind(1, "reasoning")
	assertKind(2, "tool_call")
	assertKind(3, "token_usage")
	assertKind(4, "tool_result")
	assertKind(5, "message")
	assertKind(6, "token_usage")

	result := events[4].Payload.(event.ToolResultPayload)
	assert.Equal(t, "toolu_1", result.ProviderCallID)
	assert.False(t, result.IsError)

	call := events[2].Payload.(event.ToolCallPayload)
	assert.Equal(t, event.ToolKindRead, event.ClassifyKind(call.Args))
}

func TestParentChainWithinMainStream(t *testing.T) {
	path := writeFixture(t)
	d := New()
	b := builder.New(builder.SessionID("claude", "sess-1"))

	events, err := d.Parse(path, b)
	require.NoError(t, err)
	require.True(t, len(events) > 1)

	assert.Nil(t, events[0].ParentID)
	for i := 1; i < len(events); i++ {
		require.NotNil(t, events[i].ParentID, "event %d should chain to previous", i)
		assert.Equal(t, events[i-1].ID, *events[i].ParentID)
	}
}

func TestParseFromResumesAtOffset(t *testing.T) {
	path := writeFixture(t)
	d := New()
	b := builder.New(builder.SessionID("claude", "sess-1"))

	first, offset, err := d.ParseFrom(path, 0, b)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	more, _, err := d.ParseFrom(path, offset, b)
	require.NoError(t, err)
	assert.Empty(t, more, "no new lines appended, nothing new to parse")
}
