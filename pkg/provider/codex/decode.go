// Package codex decodes Codex-style on-disk session logs: fine-grained
// JSONL where each line is a single small record — a response_item (one
// message part, one function call, or one function call's output), an
// event_msg (a side-channel notice), or a token_count snapshot — rather
// than Claude's one-line-per-turn shape.
package codex

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/lanegrid/agtrace/pkg/builder"
	"github.com/lanegrid/agtrace/pkg/event"
	"github.com/lanegrid/agtrace/pkg/provider"
)

const providerName = "codex"

// Decoder implements provider.Decoder for Codex-style session logs.
type Decoder struct{}

// New returns a Codex Decoder.
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
	var probe struct {
		Kind string `json:"type"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &probe); err != nil {
		return false
	}
	switch probe.Kind {
	case "response_item", "event_msg", "token_count", "session_meta":
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
		var rec struct {
			Kind    string `json:"type"`
			Payload struct {
				SessionID string    `json:"id"`
				CWD       string    `json:"cwd"`
				Timestamp time.Time `json:"timestamp"`
			} `json:"payload"`
		}
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		if rec.Kind != "session_meta" || rec.Payload.SessionID == "" {
			continue
		}
		return provider.Header{
			Provider:  providerName,
			SessionID: rec.Payload.SessionID,
			Project:   rec.Payload.CWD,
			StartedAt: rec.Payload.Timestamp,
		}, nil
	}
	return provider.Header{}, fmt.Errorf("codex: no session_meta record found in %s", path)
}

func (d *Decoder) Parse(path string, b *builder.Builder) ([]event.AgentEvent, error) {
	events, _, err := d.ParseFrom(path, 0, b)
	return events, err
}

// tokenTriple is the dedup key that suppresses Codex's habit of re-emitting an identical
// token_count record after an unrelated line; suppression compares the
// exact (input, output, total) triple, so a later record with a changed
// total but identical input/output still emits.
type tokenTriple struct{ input, output, total int }

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
	var lastTriple *tokenTriple
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
		var rec record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return events, consumed, fmt.Errorf("codex: decode line: %w", err)
		}
		ev, triple := decodeRecord(rec, b, lastTriple)
		if triple != nil {
			lastTriple = triple
		}
		if ev != nil {
			events = append(events, *ev)
		}
	}
	if err := sc.Err(); err != nil {
		return events, consumed, err
	}
	return events, consumed, nil
}

type record struct {
	Kind      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

type responseItemPayload struct {
	ItemType string          `json:"type"` // "message" | "function_call" | "function_call_output" | "reasoning"
	Role     string          `json:"role"`
	Content  []contentPart   `json:"content"`
	CallID   string          `json:"call_id"`
	Name     string          `json:"name"`
	Args     json.RawMessage `json:"arguments"`
	Output   string          `json:"output"`
	Summary  []contentPart   `json:"summary"`
}

type contentPart struct {
	Kind string `json:"type"`
	Text string `json:"text"`
}

type eventMsgPayload struct {
	Message string `json:"message"`
	Level   string `json:"level"`
}

type tokenCountPayload struct {
	Input  int `json:"input_tokens"`
	Output int `json:"output_tokens"`
	Total  int `json:"total_tokens"`
	Cache  struct {
		Creation int `json:"cached_creation_tokens"`
		Read     int `json:"cached_read_tokens"`
	} `json:"cache"`
}

func decodeRecord(rec record, b *builder.Builder, lastTriple *tokenTriple) (*event.AgentEvent, *tokenTriple) {
	switch rec.Kind {
	case "response_item":
		return decodeResponseItem(rec, b), nil
	case "event_msg":
		var p eventMsgPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return nil, nil
		}
		ev := b.Next(event.MainStream, rec.Timestamp, event.NotificationPayload{Message: p.Message, Level: p.Level})
		return &ev, nil
	case "token_count":
		var p tokenCountPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return nil, nil
		}
		triple := &tokenTriple{input: p.Input, output: p.Output, total: p.Total}
		if lastTriple != nil && *lastTriple == *triple {
			return nil, triple
		}
		fresh := p.Input - p.Cache.Read
		if fresh < 0 {
			fresh = 0
		}
		bundle := event.NewTokenBundle(fresh, p.Cache.Creation, p.Cache.Read, p.Output)
		ev := b.Next(event.MainStream, rec.Timestamp, event.TokenUsagePayload{Bundle: bundle})
		return &ev, triple
	default:
		return nil, nil
	}
}

func decodeResponseItem(rec record, b *builder.Builder) *event.AgentEvent {
	var p responseItemPayload
	if err := json.Unmarshal(rec.Payload, &p); err != nil {
		return nil
	}
	switch p.ItemType {
	case "message":
		text := joinText(p.Content)
		var payload event.Payload
		if p.Role == "user" {
			payload = event.UserPayload{Text: text}
		} else {
			payload = event.MessagePayload{Text: text}
		}
		ev := b.Next(event.MainStream, rec.Timestamp, payload)
		return &ev
	case "reasoning":
		ev := b.Next(event.MainStream, rec.Timestamp, event.ReasoningPayload{Text: joinText(p.Summary)})
		return &ev
	case "function_call":
		var args map[string]any
		_ = json.Unmarshal(p.Args, &args)
		classified := event.Classify(p.Name, args, p.CallID)
		if exec, ok := classified.(event.ExecuteArgs); ok {
			classified = event.ReclassifyShellCommand(exec)
		}
		ev := b.Next(event.MainStream, rec.Timestamp, event.ToolCallPayload{Args: classified})
		return &ev
	case "function_call_output":
		exitCode := extractExitCode(p.Output)
		ev := b.Next(event.MainStream, rec.Timestamp, event.ToolResultPayload{
			ProviderCallID: p.CallID,
			Output:         p.Output,
			IsError:        exitCode != nil && *exitCode != 0,
			ExitCode:       exitCode,
		})
		return &ev
	default:
		return nil
	}
}

func joinText(parts []contentPart) string {
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

var exitCodeRe = regexp.MustCompile(`(?i)exit code[:\s]*(-?\d+)`)

// extractExitCode pulls a process exit status out of free-form tool
// output using the same "exit code: N" convention Codex's shell tool
// reports in, since the structured record carries no dedicated field for
// it. A non-zero exit code is what marks a function_call_output as an
// error, not any text heuristic over the output itself.
func extractExitCode(output string) *int {
	m := exitCodeRe.FindStringSubmatch(output)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}
