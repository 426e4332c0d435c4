package gemini

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanegrid/agtrace/pkg/builder"
	"github.com/lanegrid/agtrace/pkg/event"
)

const fixture = `{"sessionId":"sess-g1","project":"/work","role":"user","timestamp":"2026-01-01T00:00:00Z","text":"add a test"}
{"sessionId":"sess-g1","role":"model","timestamp":"2026-01-01T00:00:01Z","thoughts":[{"text":"I should check the file first"}],"toolCalls":[{"id":"tc-1","name":"Read","args":{"path":"a.go"},"result":{"output":"package a"}}],"text":"added the test","usageMetadata":{"promptTokenCount":80,"cachedContentTokenCount":10,"candidatesTokenCount":12,"thoughtsTokenCount":3}}
`

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sess-g1.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o644))
	return path
}

func TestGeminiScanHeader(t *testing.T) {
	path := writeFixture(t)
	h, err := New().ScanHeader(path)
	require.NoError(t, err)
	assert.Equal(t, "sess-g1", h.SessionID)
}

func TestGeminiUnfoldsTurnInOrder(t *testing.T) {
	path := writeFixture(t)
	d := New()
	b := builder.New(builder.SessionID("gemini", "sess-g1"))

	events, err := d.Parse(path, b)
	require.NoError(t, err)
	require.Len(t, events, 6)

	kinds := make([]string, len(events))
	for i, e := range events {
		kinds[i] = e.Kind()
	}
	assert.Equal(t, []string{"user", "reasoning", "tool_call", "tool_result", "message", "token_usage"}, kinds)
}

func TestGeminiSynthesizedTimestampsStrictlyIncrease(t *testing.T) {
	path := writeFixture(t)
	d := New()
	b := builder.New(builder.SessionID("gemini", "sess-g1"))

	events, err := d.Parse(path, b)
	require.NoError(t, err)

	for i := 1; i < len(events); i++ {
		assert.True(t, events[i].Timestamp.After(events[i-1].Timestamp), "event %d timestamp must strictly increase", i)
	}
}

func TestGeminiTokenBundleCarriesThoughtsAsReasoningOutput(t *testing.T) {
	path := writeFixture(t)
	d := New()
	b := builder.New(builder.SessionID("gemini", "sess-g1"))

	events, err := d.Parse(path, b)
	require.NoError(t, err)

	last := events[len(events)-1].Payload.(event.TokenUsagePayload)
	require.NotNil(t, last.Bundle.ReasoningOutput)
	assert.Equal(t, 3, *last.Bundle.ReasoningOutput)
	assert.Equal(t, 70, last.Bundle.FreshInput)
	assert.Equal(t, 10, last.Bundle.CacheRead)
}
