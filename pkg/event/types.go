// Package event defines the normalized, provider-independent event model
// that every decoder (pkg/provider/claude, pkg/provider/codex,
// pkg/provider/gemini) produces and every downstream consumer (pkg/session,
// pkg/client, pkg/analysis, pkg/mcp) reads.
//
// An AgentEvent is the atomic unit of a trace: one user message, one
// reasoning chunk, one tool call, one tool result, one assistant message
// chunk, one token-usage snapshot, or one notification. Events never carry
// provider-specific shapes past the decoder boundary — everything upstream
// of pkg/provider sees only this package's types.
package event

import (
	"time"

	"github.com/google/uuid"
)

// StreamID identifies one linear sequence of events within a session. A
// session has exactly one main stream and zero or more subagent streams
// (spawned by a Task-style tool call). Parent chains (AgentEvent.ParentID)
// never cross a StreamID boundary.
type StreamID struct {
	// Kind is "main" for the top-level agent loop or "subagent" for a
	// spawned child stream.
	Kind string
	// Key disambiguates multiple subagent streams within one session; it
	// is empty for the main stream.
	Key string
}

// MainStream is the StreamID of every session's top-level event sequence.
var MainStream = StreamID{Kind: "main"}

// SubagentStream returns the StreamID for a subagent identified by key
// (typically the provider's spawned-task or tool-call id).
func SubagentStream(key string) StreamID {
	return StreamID{Kind: "subagent", Key: key}
}

// ToolKind buckets a tool call by the kind of effect it has, independent of
// which provider or which concrete tool name produced it.
type ToolKind string

const (
	ToolKindRead    ToolKind = "read"
	ToolKindWrite   ToolKind = "write"
	ToolKindExecute ToolKind = "execute"
	ToolKindSearch  ToolKind = "search"
	ToolKindPlan    ToolKind = "plan"
	ToolKindAsk     ToolKind = "ask"
	ToolKindOther   ToolKind = "other"
)

// ToolOrigin distinguishes a provider's own built-in tools from tools
// exposed through the Model Context Protocol.
type ToolOrigin string

const (
	ToolOriginSystem ToolOrigin = "system"
	ToolOriginMcp    ToolOrigin = "mcp"
)

// AgentEvent is one normalized occurrence in a trace.
type AgentEvent struct {
	ID        uuid.UUID
	ParentID  *uuid.UUID
	SessionID uuid.UUID
	Stream    StreamID
	Timestamp time.Time
	Payload   Payload
}

// Kind returns the payload's discriminator, mirroring the tagged-union
// "type" field a provider's own on-disk record would carry.
func (e AgentEvent) Kind() string {
	return e.Payload.eventKind()
}

// Payload is the sum type of everything an AgentEvent can carry. Only the
// types defined in this package implement it; the unexported marker method
// keeps the set closed so every switch over Payload stays exhaustive.
type Payload interface {
	eventKind() string
}

// UserPayload is a user-authored message (prompt, tool-approval reply, or
// slash command).
type UserPayload struct {
	Text string
}

func (UserPayload) eventKind() string { return "user" }

// ReasoningPayload is a chunk of the agent's internal reasoning / thinking
// trace, when the provider exposes it.
type ReasoningPayload struct {
	Text string
	// Redacted is true when the provider emitted a reasoning placeholder
	// (e.g. encrypted/redacted reasoning blocks) with no recoverable text.
	Redacted bool
}

func (ReasoningPayload) eventKind() string { return "reasoning" }

// ToolCallPayload is a single tool invocation, classified into exactly one
// of the ToolCallArgs variants (see toolcall.go) by Classify.
type ToolCallPayload struct {
	Args ToolCallArgs
}

func (ToolCallPayload) eventKind() string { return "tool_call" }

// Name returns the tool call's underlying name.
func (p ToolCallPayload) Name() string { return p.Args.Name() }

// ProviderCallID returns the provider's own call identifier, when the
// provider assigns one. It is used to correlate a later ToolResultPayload
// back to this call within a single file parse.
func (p ToolCallPayload) ProviderCallID() string { return p.Args.ProviderCallID() }

// ToolResultPayload carries the outcome of a previously emitted tool call.
type ToolResultPayload struct {
	// ProviderCallID correlates this result to the ToolCallPayload that
	// produced it: consumers match it against that call's ProviderCallID.
	ProviderCallID string
	Output         string
	IsError        bool
	// ExitCode is populated for Execute-kind calls when the provider
	// reports (or the output can be parsed for) a process exit status.
	ExitCode *int
}

func (ToolResultPayload) eventKind() string { return "tool_result" }

// MessagePayload is an assistant-authored message chunk (as opposed to
// reasoning or a tool call).
type MessagePayload struct {
	Text string
}

func (MessagePayload) eventKind() string { return "message" }

// TokenUsagePayload is a turn-snapshot (not cumulative) token accounting
// record. See TokenBundle for the field semantics.
type TokenUsagePayload struct {
	Bundle TokenBundle
}

func (TokenUsagePayload) eventKind() string { return "token_usage" }

// NotificationPayload is a provider-level side-channel notice (e.g. a
// permission prompt, a rate-limit warning) that is not itself part of the
// conversation.
type NotificationPayload struct {
	Message string
	Level   string // "info" | "warning" | "error"
}

func (NotificationPayload) eventKind() string { return "notification" }
