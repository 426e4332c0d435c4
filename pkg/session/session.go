// Package session assembles a flat, parent-chained sequence of
// event.AgentEvent values into the hierarchical view a human or an MCP
// client actually wants to read: a session is a sequence of turns (one per
// user message), each turn a sequence of steps (one unit of agent work —
// reasoning followed by however many tool calls it takes to finish a
// thought, ending at the next assistant message).
//
// Assemble is a pure function: the same event slice always produces the
// same Session, with no I/O and no hidden state; pkg/client's Sessions.Get
// calls it on every request. pkg/watch emits raw event deltas and does not
// call it.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/lanegrid/agtrace/pkg/event"
)

// StepStatus summarizes how a Step resolved.
type StepStatus string

const (
	StepDone       StepStatus = "done"
	StepFailed     StepStatus = "failed"
	StepInProgress StepStatus = "in_progress"
)

// Step is one unit of agent work within a Turn: some reasoning, zero or
// more tool calls and their results, ending at an assistant message or at
// the turn's end.
type Step struct {
	Events []event.AgentEvent
	Status StepStatus
}

// ToolCalls returns every tool_call payload in the step, in order.
func (s Step) ToolCalls() []event.ToolCallPayload {
	var out []event.ToolCallPayload
	for _, e := range s.Events {
		if tc, ok := e.Payload.(event.ToolCallPayload); ok {
			out = append(out, tc)
		}
	}
	return out
}

// Message returns the step's terminal assistant message text, if any.
func (s Step) Message() (string, bool) {
	for i := len(s.Events) - 1; i >= 0; i-- {
		if m, ok := s.Events[i].Payload.(event.MessagePayload); ok {
			return m.Text, true
		}
	}
	return "", false
}

// Turn is everything that happened in response to one user message: the
// prompt itself plus the steps the agent took to answer it.
type Turn struct {
	Index   int
	User    event.AgentEvent
	Steps   []Step
	// Tokens is the turn's snapshot token bundle: the last token_usage
	// event reported within the turn, never a sum across steps (per
	// event.TokenBundle's turn-snapshot semantics).
	Tokens   *event.TokenBundle
	StartsAt time.Time
	EndsAt   time.Time
}

// Session is the fully assembled, turn/step hierarchical view of one
// session's events.
type Session struct {
	ID    uuid.UUID
	Turns []Turn
}

// Assemble groups a session's flat, chronologically-ordered event slice
// into turns and steps. events must already be sorted by Timestamp (every
// provider.Decoder emits events in file order, which is chronological);
// Assemble does not re-sort.
func Assemble(sessionID uuid.UUID, events []event.AgentEvent) Session {
	sess := Session{ID: sessionID}

	var current *Turn
	flushTurn := func() {
		if current == nil {
			return
		}
		current.finalize()
		sess.Turns = append(sess.Turns, *current)
		current = nil
	}

	for _, e := range events {
		if u, ok := e.Payload.(event.UserPayload); ok {
			_ = u
			flushTurn()
			current = &Turn{
				Index:    len(sess.Turns),
				User:     e,
				StartsAt: e.Timestamp,
				EndsAt:   e.Timestamp,
			}
			continue
		}
		if current == nil {
			// An agent event with no preceding user message (e.g. a
			// session resumed mid-conversation). Synthesize an empty
			// turn so the event is never silently dropped.
			current = &Turn{Index: len(sess.Turns), StartsAt: e.Timestamp, EndsAt: e.Timestamp}
		}
		current.appendEvent(e)
	}
	flushTurn()

	return sess
}

func (t *Turn) appendEvent(e event.AgentEvent) {
	t.EndsAt = e.Timestamp

	if tu, ok := e.Payload.(event.TokenUsagePayload); ok {
		bundle := tu.Bundle
		t.Tokens = &bundle
		// The snapshot attaches to the step holding the most recent
		// generation event, not to a freshly opened placeholder step —
		// a token_usage record that trails a message belongs to that
		// message's step.
		t.attachToMostRecentStep(e)
		return
	}

	if tr, ok := e.Payload.(event.ToolResultPayload); ok && tr.ProviderCallID != "" {
		if t.callClosedInEarlierStep(tr.ProviderCallID) {
			t.openNewStepWith(e)
			return
		}
	}

	if len(t.Steps) == 0 {
		t.Steps = append(t.Steps, Step{})
	}
	idx := len(t.Steps) - 1
	t.Steps[idx].Events = append(t.Steps[idx].Events, e)

	if _, ok := e.Payload.(event.MessagePayload); ok {
		t.Steps[idx].Status = determineStatus(t.Steps[idx])
		t.Steps = append(t.Steps, Step{})
	}
}

// attachToMostRecentStep appends e to the last step that actually holds
// events, skipping over a trailing empty placeholder step left open by a
// preceding message.
func (t *Turn) attachToMostRecentStep(e event.AgentEvent) {
	if len(t.Steps) == 0 {
		t.Steps = append(t.Steps, Step{})
	}
	idx := len(t.Steps) - 1
	if len(t.Steps[idx].Events) == 0 && idx > 0 {
		idx--
	}
	t.Steps[idx].Events = append(t.Steps[idx].Events, e)
}

// callClosedInEarlierStep reports whether providerCallID's matching
// ToolCall lives in a step other than the currently open one that has
// already been assigned a status (i.e. it closed at a message boundary
// before the result arrived).
func (t *Turn) callClosedInEarlierStep(providerCallID string) bool {
	for i := 0; i < len(t.Steps)-1; i++ {
		if t.Steps[i].Status == "" {
			continue
		}
		for _, e := range t.Steps[i].Events {
			if tc, ok := e.Payload.(event.ToolCallPayload); ok && tc.ProviderCallID() == providerCallID {
				return true
			}
		}
	}
	return false
}

// openNewStepWith starts a fresh step for a tool result whose call closed
// in an earlier step, reusing the current trailing placeholder step if one
// is already open rather than inserting an extra empty one.
func (t *Turn) openNewStepWith(e event.AgentEvent) {
	if n := len(t.Steps); n > 0 && len(t.Steps[n-1].Events) == 0 {
		t.Steps[n-1].Events = append(t.Steps[n-1].Events, e)
		return
	}
	t.Steps = append(t.Steps, Step{Events: []event.AgentEvent{e}})
}

// finalize computes and assigns a status for every step that was still
// open (had no trailing message) when its turn ended — the common case
// for the turn's final step.
func (t *Turn) finalize() {
	for i := range t.Steps {
		if len(t.Steps[i].Events) == 0 {
			continue
		}
		if t.Steps[i].Status == "" {
			t.Steps[i].Status = determineStatus(t.Steps[i])
		}
	}
	// Drop the trailing placeholder step appendEvent always leaves open.
	if n := len(t.Steps); n > 0 && len(t.Steps[n-1].Events) == 0 {
		t.Steps = t.Steps[:n-1]
	}
}

// determineStatus implements the step status algorithm: a step that
// produced an error result is Failed; a step with a tool call still
// missing its result is InProgress; a step whose tool calls all resolved,
// or that ended in a message, is Done; a step that is reasoning with
// neither tool calls nor a message is InProgress (still "thinking"); any
// other shape (e.g. notifications only) defaults to Done.
func determineStatus(s Step) StepStatus {
	resolved := make(map[string]bool)
	var hasToolCall, hasMessage, hasReasoning, hasError bool

	for _, e := range s.Events {
		switch p := e.Payload.(type) {
		case event.ToolCallPayload:
			hasToolCall = true
			if cid := p.ProviderCallID(); cid != "" {
				if _, ok := resolved[cid]; !ok {
					resolved[cid] = false
				}
			}
		case event.ToolResultPayload:
			if p.IsError {
				hasError = true
			}
			if p.ProviderCallID != "" {
				resolved[p.ProviderCallID] = true
			}
		case event.MessagePayload:
			hasMessage = true
		case event.ReasoningPayload:
			hasReasoning = true
		}
	}

	if hasError {
		return StepFailed
	}
	for _, done := range resolved {
		if !done {
			return StepInProgress
		}
	}
	if hasToolCall {
		return StepDone
	}
	if hasMessage {
		return StepDone
	}
	if hasReasoning {
		return StepInProgress
	}
	return StepDone
}
