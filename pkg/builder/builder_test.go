package builder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanegrid/agtrace/pkg/event"
)

func TestSessionIDDeterministic(t *testing.T) {
	a := SessionID("claude", "session-123")
	b := SessionID("claude", "session-123")
	assert.Equal(t, a, b)

	c := SessionID("codex", "session-123")
	assert.NotEqual(t, a, c, "provider must be part of the derivation input")
}

func TestNextChainsParentWithinStream(t *testing.T) {
	b := New(SessionID("claude", "s1"))
	ts := time.Unix(0, 0)

	first := b.Next(event.MainStream, ts, event.UserPayload{Text: "hi"})
	assert.Nil(t, first.ParentID)

	second := b.Next(event.MainStream, ts.Add(time.Second), event.MessagePayload{Text: "hello"})
	require.NotNil(t, second.ParentID)
	assert.Equal(t, first.ID, *second.ParentID)
}

func TestNextDoesNotChainAcrossStreams(t *testing.T) {
	b := New(SessionID("claude", "s1"))
	ts := time.Unix(0, 0)

	main := b.Next(event.MainStream, ts, event.UserPayload{Text: "hi"})
	sub := b.Next(event.SubagentStream("task-1"), ts, event.UserPayload{Text: "sub"})

	assert.Nil(t, sub.ParentID)
	assert.NotEqual(t, main.Stream, sub.Stream)
}

func TestResolveCallRegistersOnlyToolCalls(t *testing.T) {
	b := New(SessionID("claude", "s1"))
	ts := time.Unix(0, 0)

	args := event.Classify("Read", map[string]any{"path": "a.go"}, "call-1")
	callEv := b.Next(event.MainStream, ts, event.ToolCallPayload{Args: args})

	id, ok := b.ResolveCall("call-1")
	require.True(t, ok)
	assert.Equal(t, callEv.ID, id)

	_, ok = b.ResolveCall("unknown")
	assert.False(t, ok)
}
