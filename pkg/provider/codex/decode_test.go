package codex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanegrid/agtrace/pkg/builder"
	"github.com/lanegrid/agtrace/pkg/event"
)

const fixture = `{"type":"session_meta","timestamp":"2026-01-01T00:00:00Z","payload":{"id":"sess-9","cwd":"/work","timestamp":"2026-01-01T00:00:00Z"}}
{"type":"response_item","timestamp":"2026-01-01T00:00:01Z","payload":{"type":"message","role":"user","content":[{"type":"text","text":"run tests"}]}}
{"type":"response_item","timestamp":"2026-01-01T00:00:02Z","payload":{"type":"function_call","call_id":"call-1","name":"Bash","arguments":"{\"command\":\"go test ./...\"}"}}
{"type":"token_count","timestamp":"2026-01-01T00:00:02Z","payload":{"input_tokens":50,"output_tokens":5,"total_tokens":55}}
{"type":"token_count","timestamp":"2026-01-01T00:00:02Z","payload":{"input_tokens":50,"output_tokens":5,"total_tokens":55}}
{"type":"response_item","timestamp":"2026-01-01T00:00:03Z","payload":{"type":"function_call_output","call_id":"call-1","output":"ok, exit code: 0"}}
{"type":"token_count","timestamp":"2026-01-01T00:00:04Z","payload":{"input_tokens":50,"output_tokens":5,"total_tokens":60}}
`

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sess-9.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o644))
	return path
}

func TestCodexScanHeader(t *testing.T) {
	path := writeFixture(t)
	h, err := New().ScanHeader(path)
	require.NoError(t, err)
	assert.Equal(t, "sess-9", h.SessionID)
	assert.Equal(t, "/work", h.Project)
}

func TestCodexDuplicateTokenCountSuppressed(t *testing.T) {
	path := writeFixture(t)
	d := New()
	b := builder.New(builder.SessionID("codex", "sess-9"))

	events, err := d.Parse(path, b)
	require.NoError(t, err)

	var tokenEvents int
	for _, e := range events {
		if e.Kind() == "token_usage" {
			tokenEvents++
		}
	}
	// Three token_count lines, second is an exact-triple duplicate of the
	// first and must be suppressed; the third differs (total: 60) and
	// must still emit.
	assert.Equal(t, 2, tokenEvents)
}

func TestCodexExitCodeExtraction(t *testing.T) {
	path := writeFixture(t)
	d := New()
	b := builder.New(builder.SessionID("codex", "sess-9"))

	events, err := d.Parse(path, b)
	require.NoError(t, err)

	var found bool
	for _, e := range events {
		if r, ok := e.Payload.(event.ToolResultPayload); ok {
			found = true
			require.NotNil(t, r.ExitCode)
			assert.Equal(t, 0, *r.ExitCode)
		}
	}
	assert.True(t, found, "expected a tool_result event")
}

const nonZeroExitFixture = `{"type":"session_meta","timestamp":"2026-01-01T00:00:00Z","payload":{"id":"sess-10","cwd":"/work","timestamp":"2026-01-01T00:00:00Z"}}
{"type":"response_item","timestamp":"2026-01-01T00:00:01Z","payload":{"type":"message","role":"user","content":[{"type":"text","text":"run a broken command"}]}}
{"type":"response_item","timestamp":"2026-01-01T00:00:02Z","payload":{"type":"function_call","call_id":"call-2","name":"shell","arguments":"{\"command\":\"bash -lc 'missing-binary'\"}"}}
{"type":"response_item","timestamp":"2026-01-01T00:00:03Z","payload":{"type":"function_call_output","call_id":"call-2","output":"Ran cmd\nExit code: 127\n"}}
`

// TestCodexIsErrorFromExitCodeNotText covers the case where the output text
// contains neither "error" nor "traceback" but the exit code is non-zero:
// is_error must still be true, derived purely from the exit code.
func TestCodexIsErrorFromExitCodeNotText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sess-10.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(nonZeroExitFixture), 0o644))

	d := New()
	b := builder.New(builder.SessionID("codex", "sess-10"))
	events, err := d.Parse(path, b)
	require.NoError(t, err)

	var found bool
	for _, e := range events {
		if r, ok := e.Payload.(event.ToolResultPayload); ok {
			found = true
			require.NotNil(t, r.ExitCode)
			assert.Equal(t, 127, *r.ExitCode)
			assert.True(t, r.IsError, "a non-zero exit code must mark the result as an error regardless of output text")
		}
	}
	assert.True(t, found, "expected a tool_result event")
}

const shellReadFixture = `{"type":"session_meta","timestamp":"2026-01-01T00:00:00Z","payload":{"id":"sess-11","cwd":"/work","timestamp":"2026-01-01T00:00:00Z"}}
{"type":"response_item","timestamp":"2026-01-01T00:00:01Z","payload":{"type":"message","role":"user","content":[{"type":"text","text":"show me that file"}]}}
{"type":"response_item","timestamp":"2026-01-01T00:00:02Z","payload":{"type":"function_call","call_id":"call-3","name":"shell","arguments":"{\"command\":\"sed -n '1,200p' packages/extension-inspector/main.go\"}"}}
{"type":"response_item","timestamp":"2026-01-01T00:00:03Z","payload":{"type":"function_call_output","call_id":"call-3","output":"package main\n"}}
{"type":"response_item","timestamp":"2026-01-01T00:00:04Z","payload":{"type":"function_call","call_id":"call-4","name":"shell","arguments":"{\"command\":\"sed -i 's/foo/bar/' packages/extension-inspector/main.go\"}"}}
{"type":"response_item","timestamp":"2026-01-01T00:00:05Z","payload":{"type":"function_call_output","call_id":"call-4","output":"ok"}}
`

// TestCodexFunctionCallReclassifiesShellReads covers scenario S3: a
// read-only sed invocation routed through Codex's shell tool must be
// reclassified as a file read, while the equivalent -i (in-place write)
// invocation must stay Execute.
func TestCodexFunctionCallReclassifiesShellReads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sess-11.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(shellReadFixture), 0o644))

	d := New()
	b := builder.New(builder.SessionID("codex", "sess-11"))
	events, err := d.Parse(path, b)
	require.NoError(t, err)

	var sawRead, sawExecute bool
	for _, e := range events {
		tc, ok := e.Payload.(event.ToolCallPayload)
		if !ok {
			continue
		}
		switch a := tc.Args.(type) {
		case event.FileReadArgs:
			sawRead = true
			assert.Contains(t, a.Path(), "main.go")
		case event.ExecuteArgs:
			sawExecute = true
		}
	}
	assert.True(t, sawRead, "read-only sed -n command must reclassify to FileRead")
	assert.True(t, sawExecute, "sed -i command must stay Execute")
}
