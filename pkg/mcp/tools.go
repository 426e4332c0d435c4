package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lanegrid/agtrace/pkg/analysis"
	"github.com/lanegrid/agtrace/pkg/client"
	"github.com/lanegrid/agtrace/pkg/event"
	"github.com/lanegrid/agtrace/pkg/session"
)

// maxToolResultBytes caps how much text a single tool result may contain.
// A session's full turn/step tree can be enormous; truncating here keeps
// a runaway analyze_session or get_turns call from blowing out an agent's
// own context window.
const maxToolResultBytes = 32 * 1024

func registerTools(s *server.MCPServer, c *client.Client) {
	s.AddTool(
		mcp.NewTool("list_sessions",
			mcp.WithDescription("List indexed agent sessions, optionally filtered to one project."),
			mcp.WithString("project_id", mcp.Description("Restrict the listing to this project id (optional)")),
		),
		listSessionsHandler(c),
	)

	s.AddTool(
		mcp.NewTool("get_project_info",
			mcp.WithDescription("Get details and session count for one project."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("The project id")),
		),
		getProjectInfoHandler(c),
	)

	s.AddTool(
		mcp.NewTool("analyze_session",
			mcp.WithDescription("Run pattern detectors over a session and return a health report."),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("The session id to analyze")),
		),
		analyzeSessionHandler(c),
	)

	s.AddTool(
		mcp.NewTool("search_events",
			mcp.WithDescription("Search event text across every indexed session for a substring."),
			mcp.WithString("query", mcp.Required(), mcp.Description("Substring to search for")),
			mcp.WithNumber("limit", mcp.Description("Maximum results to return (default 50)")),
		),
		searchEventsHandler(c),
	)

	s.AddTool(
		mcp.NewTool("list_turns",
			mcp.WithDescription("List the turns of a session with a one-line summary each."),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("The session id")),
		),
		listTurnsHandler(c),
	)

	s.AddTool(
		mcp.NewTool("get_turns",
			mcp.WithDescription("Get the fully expanded steps and events for a range of a session's turns."),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("The session id")),
			mcp.WithNumber("start", mcp.Description("First turn index to include (default 0)")),
			mcp.WithNumber("end", mcp.Description("Last turn index to include, inclusive (default: last turn)")),
		),
		getTurnsHandler(c),
	)
}

func listSessionsHandler(c *client.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projectID := req.GetString("project_id", "")
		sessions, err := c.Sessions.List(ctx, projectID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list_sessions: %v", err)), nil
		}
		return jsonResult(sessions)
	}
}

func getProjectInfoHandler(c *client.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projectID, err := req.RequireString("project_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		sessions, err := c.Sessions.List(ctx, projectID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("get_project_info: %v", err)), nil
		}
		info := struct {
			ProjectID    string `json:"project_id"`
			SessionCount int    `json:"session_count"`
		}{ProjectID: projectID, SessionCount: len(sessions)}
		return jsonResult(info)
	}
}

func analyzeSessionHandler(c *client.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := req.RequireString("session_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		sess, err := c.Sessions.Get(ctx, sessionID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("analyze_session: unknown session %q: %v", sessionID, err)), nil
		}
		report := analysis.Analyze(sess)
		metrics := session.Summarize(sess)
		out := struct {
			Report  analysis.Report  `json:"report"`
			Metrics session.Metrics `json:"metrics"`
		}{Report: report, Metrics: metrics}
		return jsonResult(out)
	}
}

func searchEventsHandler(c *client.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		limit := int(req.GetFloat("limit", 50))
		results, err := c.Sessions.SearchEvents(ctx, query, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search_events: %v", err)), nil
		}
		return jsonResult(results)
	}
}

// turnSummary is the one-line-per-turn shape list_turns returns, cheap
// enough to list an entire session without pulling in every event.
type turnSummary struct {
	Index      int    `json:"index"`
	UserText   string `json:"user_text"`
	StepCount  int    `json:"step_count"`
	StepStatus string `json:"final_step_status"`
}

func listTurnsHandler(c *client.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := req.RequireString("session_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		sess, err := c.Sessions.Get(ctx, sessionID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list_turns: unknown session %q: %v", sessionID, err)), nil
		}

		summaries := make([]turnSummary, len(sess.Turns))
		for i, t := range sess.Turns {
			userText := ""
			if u, ok := t.User.Payload.(event.UserPayload); ok {
				userText = u.Text
			}
			status := ""
			if len(t.Steps) > 0 {
				status = string(t.Steps[len(t.Steps)-1].Status)
			}
			summaries[i] = turnSummary{Index: t.Index, UserText: userText, StepCount: len(t.Steps), StepStatus: status}
		}
		return jsonResult(summaries)
	}
}

func getTurnsHandler(c *client.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := req.RequireString("session_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		sess, err := c.Sessions.Get(ctx, sessionID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("get_turns: unknown session %q: %v", sessionID, err)), nil
		}

		start := int(req.GetFloat("start", 0))
		end := int(req.GetFloat("end", float64(len(sess.Turns)-1)))
		if start < 0 {
			start = 0
		}
		if end >= len(sess.Turns) {
			end = len(sess.Turns) - 1
		}
		if start > end || len(sess.Turns) == 0 {
			return mcp.NewToolResultError("get_turns: empty or invalid turn range"), nil
		}

		return jsonResult(sess.Turns[start : end+1])
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	if len(b) > maxToolResultBytes {
		b = append(b[:maxToolResultBytes], []byte("\n...[truncated]")...)
	}
	return mcp.NewToolResultText(string(b)), nil
}
