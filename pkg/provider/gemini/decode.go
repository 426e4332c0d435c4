// Package gemini decodes Gemini-style on-disk session logs: JSONL with one
// object per turn (a single JSON array file is not read), where each turn
// batches its own
// thoughts, tool calls and final text together, rather than emitting them
// as separate lines the way Claude and Codex do.
//
// Because a turn carries only one timestamp for everything that happened
// inside it, events are unfolded in declaration order (thoughts, then
// tool calls, then message) with synthesized sub-turn timestamps: the
// turn's own timestamp plus a strictly increasing nanosecond offset per
// event. This preserves ordering and parent-chain invariants without
// claiming a false precision the source data doesn't have.
package gemini

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/lanegrid/agtrace/pkg/builder"
	"github.com/lanegrid/agtrace/pkg/event"
	"github.com/lanegrid/agtrace/pkg/provider"
)

const providerName = "gemini"

// Decoder implements provider.Decoder for Gemini-style turn-batched logs.
type Decoder struct{}

// New returns a Gemini Decoder.
func New() *Decoder { return &Decoder{} }

func (d *Decoder) Name() string { return providerName }

func (d *Decoder) Probes(path string) bool {
	if !strings.HasSuffix(path, ".jsonl") {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	var probe turn
	if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &probe); err != nil {
		return false
	}
	return probe.Role != "" || len(probe.ToolCalls) > 0 || len(probe.Thoughts) > 0
}

func (d *Decoder) ScanHeader(path string) (provider.Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return provider.Header{}, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var t turn
		if err := json.Unmarshal([]byte(line), &t); err != nil {
			continue
		}
		if t.SessionID == "" {
			continue
		}
		return provider.Header{
			Provider:  providerName,
			SessionID: t.SessionID,
			Project:   t.Project,
			StartedAt: t.Timestamp,
		}, nil
	}
	return provider.Header{}, fmt.Errorf("gemini: no session id found in %s", path)
}

func (d *Decoder) Parse(path string, b *builder.Builder) ([]event.AgentEvent, error) {
	events, _, err := d.ParseFrom(path, 0, b)
	return events, err
}

func (d *Decoder) ParseFrom(path string, byteOffset int64, b *builder.Builder) ([]event.AgentEvent, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, byteOffset, err
	}
	defer f.Close()

	if byteOffset > 0 {
		if _, err := f.Seek(byteOffset, io.SeekStart); err != nil {
			return nil, byteOffset, err
		}
	}

	var events []event.AgentEvent
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	consumed := byteOffset
	for sc.Scan() {
		raw := sc.Text()
		consumed += int64(len(raw)) + 1
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		var t turn
		if err := json.Unmarshal([]byte(line), &t); err != nil {
			return events, consumed, fmt.Errorf("gemini: decode line: %w", err)
		}
		events = append(events, decodeTurn(t, b)...)
	}
	if err := sc.Err(); err != nil {
		return events, consumed, err
	}
	return events, consumed, nil
}

type turn struct {
	SessionID string       `json:"sessionId"`
	Project   string       `json:"project"`
	Role      string       `json:"role"`
	Timestamp time.Time    `json:"timestamp"`
	Thoughts  []thought    `json:"thoughts"`
	ToolCalls []toolCall   `json:"toolCalls"`
	Text      string       `json:"text"`
	Usage     *turnUsage   `json:"usageMetadata"`
}

type thought struct {
	Text string `json:"text"`
}

type toolCall struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Args   map[string]any `json:"args"`
	Result *toolResult    `json:"result"`
}

type toolResult struct {
	Output  string `json:"output"`
	IsError bool   `json:"isError"`
}

type turnUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CachedContentTokens  int `json:"cachedContentTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	ThoughtsTokenCount   int `json:"thoughtsTokenCount"`
}

// subTick is the synthesized per-event offset within one turn.
const subTick = time.Nanosecond

func decodeTurn(t turn, b *builder.Builder) []event.AgentEvent {
	var out []event.AgentEvent
	next := t.Timestamp
	tick := func() time.Time {
		ts := next
		next = next.Add(subTick)
		return ts
	}

	if t.Role == "user" && t.Text != "" {
		out = append(out, b.Next(event.MainStream, tick(), event.UserPayload{Text: t.Text}))
	}

	for _, th := range t.Thoughts {
		out = append(out, b.Next(event.MainStream, tick(), event.ReasoningPayload{Text: th.Text}))
	}

	for _, tc := range t.ToolCalls {
		classified := event.Classify(tc.Name, tc.Args, tc.ID)
		out = append(out, b.Next(event.MainStream, tick(), event.ToolCallPayload{Args: classified}))
		if tc.Result != nil {
			out = append(out, b.Next(event.MainStream, tick(), event.ToolResultPayload{
				ProviderCallID: tc.ID,
				Output:         tc.Result.Output,
				IsError:        tc.Result.IsError,
			}))
		}
	}

	if t.Role == "model" && t.Text != "" {
		out = append(out, b.Next(event.MainStream, tick(), event.MessagePayload{Text: t.Text}))
	}

	if t.Usage != nil {
		fresh := t.Usage.PromptTokenCount - t.Usage.CachedContentTokens
		if fresh < 0 {
			fresh = 0
		}
		bundle := event.NewTokenBundle(
			fresh,
			0,
			t.Usage.CachedContentTokens,
			t.Usage.CandidatesTokenCount,
		).WithReasoningOutput(t.Usage.ThoughtsTokenCount)
		out = append(out, b.Next(event.MainStream, tick(), event.TokenUsagePayload{Bundle: bundle}))
	}

	return out
}
