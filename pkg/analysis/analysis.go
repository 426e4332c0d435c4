// Package analysis runs a small set of heuristic pattern detectors over an
// assembled session, surfacing behaviors worth a human's attention (the
// agent repeating a failing call, apologizing instead of fixing something,
// reaching for another tool without ever pausing to think, running away
// with tool calls between user turns, or flip-flopping on a lint fix)
// without claiming to diagnose *why* any of them happened.
package analysis

import (
	"fmt"
	"strings"

	"github.com/lanegrid/agtrace/pkg/event"
	"github.com/lanegrid/agtrace/pkg/session"
)

// Severity is how serious a single Warning is.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Pattern names the detector that produced a Warning.
type Pattern string

const (
	PatternLoop             Pattern = "loop"
	PatternExcessiveApology Pattern = "excessive_apology"
	PatternLazyTool         Pattern = "lazy_tool"
	PatternZombieChain      Pattern = "zombie_chain"
	PatternLintPingPong     Pattern = "lint_ping_pong"
)

// Warning is one detector finding, anchored to the turn it occurred in.
type Warning struct {
	Pattern   Pattern
	Severity  Severity
	TurnIndex int
	// Count is the detector's own occurrence count backing its trigger
	// condition (e.g. the failing-call run length at which the loop
	// detector fired, or the number of tool calls in a zombie chain). Not every detector fills
	// it in; zero means the detector doesn't count occurrences.
	Count   int
	Message string
}

// Report is the full result of running every detector over a session:
// every warning found, plus a 0-100 health score.
type Report struct {
	Warnings []Warning
	Score    int
}

// Analyze runs every detector over sess and reduces their findings into a
// Report. The score starts at 100 and loses 5 points per warning, floored
// at 0 — a deliberately blunt signal meant to flag a session worth a
// closer look, not to rank sessions against each other precisely.
func Analyze(sess session.Session) Report {
	var warnings []Warning
	warnings = append(warnings, detectLoop(sess)...)
	warnings = append(warnings, detectExcessiveApology(sess)...)
	warnings = append(warnings, detectLazyTool(sess)...)
	warnings = append(warnings, detectZombieChain(sess)...)
	warnings = append(warnings, detectLintPingPong(sess)...)

	score := 100 - 5*len(warnings)
	if score < 0 {
		score = 0
	}
	return Report{Warnings: warnings, Score: score}
}

// flattenEvents concatenates a turn's step events into one chronological
// slice, since a single logical run of tool calls is often split across
// several Step values by message and closed-step boundaries.
func flattenEvents(t session.Turn) []event.AgentEvent {
	var flat []event.AgentEvent
	for _, st := range t.Steps {
		flat = append(flat, st.Events...)
	}
	return flat
}

// primaryPathArg returns the file path a file-shaped tool call's arguments
// name, if any — the "primary path argument" consecutive failing calls are
// compared on.
func primaryPathArg(args event.ToolCallArgs) (string, bool) {
	switch a := args.(type) {
	case event.FileReadArgs:
		return a.Path(), a.Path() != ""
	case event.FileEditArgs:
		return a.Path(), a.Path() != ""
	case event.FileWriteArgs:
		return a.Path(), a.Path() != ""
	default:
		return "", false
	}
}

// resultFor scans forward from a tool call's index for the ToolResultPayload
// resolving it, returning whether one was found and whether it was an error.
func resultFor(flat []event.AgentEvent, fromIdx int, callID string) (found, isError bool) {
	for j := fromIdx; j < len(flat); j++ {
		if tr, ok := flat[j].Payload.(event.ToolResultPayload); ok && tr.ProviderCallID == callID {
			return true, tr.IsError
		}
	}
	return false, false
}

// detectLoop flags two or more consecutive failing calls to the same tool
// against the same primary path argument — a stuck agent retrying the same
// broken approach against the same file rather than changing course.
func detectLoop(sess session.Session) []Warning {
	var warnings []Warning
	for _, t := range sess.Turns {
		flat := flattenEvents(t)
		var lastKey string
		run := 0

		for i, e := range flat {
			tr, ok := e.Payload.(event.ToolResultPayload)
			if !ok {
				continue
			}
			args, ok := findCallArgs(flat, i, tr.ProviderCallID)
			if !ok {
				continue
			}
			if !tr.IsError {
				lastKey, run = "", 0
				continue
			}
			path, ok := primaryPathArg(args)
			if !ok {
				lastKey, run = "", 0
				continue
			}
			key := args.Name() + "|" + path
			if key == lastKey {
				run++
			} else {
				lastKey, run = key, 1
			}
			if run == 2 {
				warnings = append(warnings, Warning{
					Pattern: PatternLoop, Severity: SeverityWarning, TurnIndex: t.Index, Count: run,
					Message: fmt.Sprintf("%d consecutive failing %s calls against %s", run, args.Name(), path),
				})
			}
		}
	}
	return warnings
}

// findCallArgs locates the ToolCallPayload that a result at or before idx
// resolves, searching backward since a call always precedes its result.
func findCallArgs(flat []event.AgentEvent, idx int, callID string) (event.ToolCallArgs, bool) {
	for j := idx; j >= 0; j-- {
		if tc, ok := flat[j].Payload.(event.ToolCallPayload); ok && tc.ProviderCallID() == callID {
			return tc.Args, true
		}
	}
	return nil, false
}

var apologyPhrases = []string{"i apologize", "my mistake", "sorry", "i was wrong"}

// detectExcessiveApology flags a turn whose assistant messages contain
// apology language more than three times, which tends to correlate with the
// agent acknowledging a mistake repeatedly instead of just fixing it.
func detectExcessiveApology(sess session.Session) []Warning {
	var warnings []Warning
	for _, t := range sess.Turns {
		count := 0
		for _, e := range flattenEvents(t) {
			m, ok := e.Payload.(event.MessagePayload)
			if !ok {
				continue
			}
			lower := strings.ToLower(m.Text)
			for _, phrase := range apologyPhrases {
				if strings.Contains(lower, phrase) {
					count++
					break
				}
			}
		}
		if count > 3 {
			warnings = append(warnings, Warning{
				Pattern: PatternExcessiveApology, Severity: SeverityInfo, TurnIndex: t.Index, Count: count,
				Message: "assistant apologized more than 3 times in one turn",
			})
		}
	}
	return warnings
}

// detectLazyTool flags turns with more than two cases of a failed tool
// result being followed, within 5 events and with no intervening
// reasoning event, by another tool call — the agent reaching straight for
// another attempt instead of pausing to think about why the last one
// failed.
func detectLazyTool(sess session.Session) []Warning {
	var warnings []Warning
	for _, t := range sess.Turns {
		flat := flattenEvents(t)
		cases := 0
		for i, e := range flat {
			tr, ok := e.Payload.(event.ToolResultPayload)
			if !ok || !tr.IsError {
				continue
			}
			end := i + 5
			if end > len(flat)-1 {
				end = len(flat) - 1
			}
			for j := i + 1; j <= end; j++ {
				if _, ok := flat[j].Payload.(event.ReasoningPayload); ok {
					break
				}
				if _, ok := flat[j].Payload.(event.ToolCallPayload); ok {
					cases++
					break
				}
			}
		}
		if cases > 2 {
			warnings = append(warnings, Warning{
				Pattern: PatternLazyTool, Severity: SeverityInfo, TurnIndex: t.Index, Count: cases,
				Message: "failed tool result followed by another tool call with no intervening reasoning, repeatedly",
			})
		}
	}
	return warnings
}

// detectZombieChain flags a turn with more than 20 tool calls between two
// user messages — a chain that has run away from the user rather than
// checking back in.
func detectZombieChain(sess session.Session) []Warning {
	var warnings []Warning
	for _, t := range sess.Turns {
		count := 0
		for _, st := range t.Steps {
			count += len(st.ToolCalls())
		}
		if count > 20 {
			warnings = append(warnings, Warning{
				Pattern: PatternZombieChain, Severity: SeverityWarning, TurnIndex: t.Index, Count: count,
				Message: "more than 20 tool calls in one turn without a user message",
			})
		}
	}
	return warnings
}

// lintKeywords identifies tool calls that look like a lint/format/check
// command, by a cheap substring check against the command text.
var lintKeywords = []string{"lint", "eslint", "golangci", "rubocop", "flake8", "prettier", "tsc", "mypy"}

func looksLikeLint(command string) bool {
	lower := strings.ToLower(command)
	for _, kw := range lintKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func isEditOrWrite(args event.ToolCallArgs) bool {
	switch args.(type) {
	case event.FileEditArgs, event.FileWriteArgs:
		return true
	default:
		return false
	}
}

// detectLintPingPong flags a turn with more than three edit/write calls
// each followed, within a 10-event window, by a lint/check call whose
// result failed — the agent fixing one thing, breaking the lint pass, and
// looping rather than reading the full error list up front.
func detectLintPingPong(sess session.Session) []Warning {
	var warnings []Warning
	for _, t := range sess.Turns {
		flat := flattenEvents(t)
		cycles := 0
		for i, e := range flat {
			tc, ok := e.Payload.(event.ToolCallPayload)
			if !ok || !isEditOrWrite(tc.Args) {
				continue
			}
			end := i + 10
			if end > len(flat)-1 {
				end = len(flat) - 1
			}
			for j := i + 1; j <= end; j++ {
				tc2, ok := flat[j].Payload.(event.ToolCallPayload)
				if !ok {
					continue
				}
				exec, ok := tc2.Args.(event.ExecuteArgs)
				if !ok || !looksLikeLint(exec.Command()) {
					continue
				}
				if found, isError := resultFor(flat, j+1, tc2.Args.ProviderCallID()); found && isError {
					cycles++
				}
				break
			}
		}
		if cycles > 3 {
			warnings = append(warnings, Warning{
				Pattern: PatternLintPingPong, Severity: SeverityWarning, TurnIndex: t.Index, Count: cycles,
				Message: "interleaved edit/write -> failing lint/check cycles within a 10-event window",
			})
		}
	}
	return warnings
}
