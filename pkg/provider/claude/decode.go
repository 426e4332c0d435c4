// Package claude decodes Claude Code's on-disk session transcripts: one
// turn-structured JSONL file per session, each line a complete user or
// assistant message whose content is an array of typed blocks (text,
// thinking, tool_use, tool_result).
package claude

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

const providerName = "claude"

// Decoder implements provider.Decoder for Claude Code transcripts.
type Decoder struct{}

// New returns a Claude Code Decoder.
func New() *Decoder { return &Decoder{} }

func (d *Decoder) Name() string { return providerName }

// Probes accepts .jsonl files whose first line parses as a turnRecord with
// a recognized "type" field. A cheap, single-line peek — never a full
// parse.
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
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &probe); err != nil {
		return false
	}
	switch probe.Type {
	case "user", "assistant", "summary":
		return true
	default:
		return false
	}
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
		var rec turnRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		if rec.SessionID == "" {
			continue
		}
		return provider.Header{
			Provider:  providerName,
			SessionID: rec.SessionID,
			Project:   rec.CWD,
			StartedAt: rec.Timestamp,
		}, nil
	}
	return provider.Header{}, fmt.Errorf("claude: no session header found in %s", path)
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

	var consumed int64 = byteOffset
	for sc.Scan() {
		raw := sc.Text()
		consumed += int64(len(raw)) + 1
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		var rec turnRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return events, consumed, fmt.Errorf("claude: decode line: %w", err)
		}
		events = append(events, decodeTurn(rec, b)...)
	}
	if err := sc.Err(); err != nil {
		return events, consumed, err
	}
	return events, consumed, nil
}

// turnRecord is one line of a Claude Code transcript.
type turnRecord struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	CWD       string          `json:"cwd"`
	Timestamp time.Time       `json:"timestamp"`
	Message   json.RawMessage `json:"message"`
}

type messageBody struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
	Usage   *usageBody      `json:"usage"`
}

type usageBody struct {
	InputTokens              int `json:"input_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	OutputTokens             int `json:"output_tokens"`
}

type contentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	Thinking  string          `json:"thinking"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
	IsError   bool            `json:"is_error"`
}

func decodeTurn(rec turnRecord, b *builder.Builder) []event.AgentEvent {
	if rec.Type != "user" && rec.Type != "assistant" {
		return nil
	}
	if len(rec.Message) == 0 {
		return nil
	}
	var msg messageBody
	if err := json.Unmarshal(rec.Message, &msg); err != nil {
		return nil
	}

	blocks, plain := parseContent(msg.Content)
	var out []event.AgentEvent

	if plain != "" {
		if rec.Type == "user" {
			out = append(out, b.Next(event.MainStream, rec.Timestamp, event.UserPayload{Text: plain}))
		} else {
			out = append(out, b.Next(event.MainStream, rec.Timestamp, event.MessagePayload{Text: plain}))
		}
	}

	for _, blk := range blocks {
		switch blk.Type {
		case "text":
			payload := messagePayloadFor(rec.Type, blk.Text)
			out = append(out, b.Next(event.MainStream, rec.Timestamp, payload))
		case "thinking":
			out = append(out, b.Next(event.MainStream, rec.Timestamp, event.ReasoningPayload{Text: blk.Thinking}))
		case "redacted_thinking":
			out = append(out, b.Next(event.MainStream, rec.Timestamp, event.ReasoningPayload{Redacted: true}))
		case "tool_use":
			var args map[string]any
			_ = json.Unmarshal(blk.Input, &args)
			classified := event.Classify(blk.Name, args, blk.ID)
			out = append(out, b.Next(event.MainStream, rec.Timestamp, event.ToolCallPayload{Args: classified}))
		case "tool_result":
			output, isErr := resultContent(blk)
			out = append(out, b.Next(event.MainStream, rec.Timestamp, event.ToolResultPayload{
				ProviderCallID: blk.ToolUseID,
				Output:         output,
				IsError:        isErr || blk.IsError,
				ExitCode:       extractExitCode(output),
			}))
		}
	}

	if msg.Usage != nil {
		bundle := event.NewTokenBundle(
			msg.Usage.InputTokens,
			msg.Usage.CacheCreationInputTokens,
			msg.Usage.CacheReadInputTokens,
			msg.Usage.OutputTokens,
		)
		out = append(out, b.Next(event.MainStream, rec.Timestamp, event.TokenUsagePayload{Bundle: bundle}))
	}

	return out
}

func messagePayloadFor(recType, text string) event.Payload {
	if recType == "user" {
		return event.UserPayload{Text: text}
	}
	return event.MessagePayload{Text: text}
}

// parseContent handles Claude's two message shapes: a bare string
// ("content": "hello") and a block array.
func parseContent(raw json.RawMessage) ([]contentBlock, string) {
	if len(raw) == 0 {
		return nil, ""
	}
	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return nil, plain
	}
	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		return blocks, ""
	}
	return nil, ""
}

func resultContent(blk contentBlock) (string, bool) {
	if len(blk.Content) == 0 {
		return "", blk.IsError
	}
	var plain string
	if err := json.Unmarshal(blk.Content, &plain); err == nil {
		return plain, blk.IsError
	}
	var blocks []contentBlock
	if err := json.Unmarshal(blk.Content, &blocks); err == nil {
		var sb strings.Builder
		for _, b := range blocks {
			sb.WriteString(b.Text)
		}
		return sb.String(), blk.IsError
	}
	return "", blk.IsError
}

func extractExitCode(output string) *int {
	idx := strings.LastIndex(output, "exit code: ")
	if idx < 0 {
		return nil
	}
	var code int
	if _, err := fmt.Sscanf(output[idx:], "exit code: %d", &code); err != nil {
		return nil
	}
	return &code
}
