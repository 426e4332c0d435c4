package session

import "github.com/lanegrid/agtrace/pkg/event"

// Metrics is a session-wide rollup used by session summaries and the
// analyze_session MCP tool.
type Metrics struct {
	TurnCount      int
	StepCount      int
	ToolCallCount  int
	FailedStepCount int
	TotalInputTokens  int
	TotalOutputTokens int
}

// Summarize computes Metrics over an assembled Session. Token totals sum
// each turn's snapshot bundle (never double counted, since a turn's
// bundle is itself already a snapshot, not a running total).
func Summarize(s Session) Metrics {
	var m Metrics
	m.TurnCount = len(s.Turns)

	for _, t := range s.Turns {
		m.StepCount += len(t.Steps)
		for _, st := range t.Steps {
			m.ToolCallCount += len(st.ToolCalls())
			if st.Status == StepFailed {
				m.FailedStepCount++
			}
		}
		if t.Tokens != nil {
			m.TotalInputTokens += t.Tokens.InputTotal()
			m.TotalOutputTokens += t.Tokens.OutputTotal()
		}
	}
	return m
}

// ToolKindCounts tallies tool calls across the whole session by ToolKind.
// The MCP handlers do not include it in their responses.
func ToolKindCounts(s Session) map[event.ToolKind]int {
	counts := make(map[event.ToolKind]int)
	for _, t := range s.Turns {
		for _, st := range t.Steps {
			for _, tc := range st.ToolCalls() {
				counts[event.ClassifyKind(tc.Args)]++
			}
		}
	}
	return counts
}
