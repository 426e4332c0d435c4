// Package client is agtrace's SDK entry point: the query façade every
// downstream consumer (the MCP tool handlers in pkg/mcp, the thin
// cmd/agtrace CLI) is built against, so neither needs its own copy of the
// discovery/assembly/index wiring.
package client

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lanegrid/agtrace/pkg/builder"
	"github.com/lanegrid/agtrace/pkg/discovery"
	"github.com/lanegrid/agtrace/pkg/event"
	"github.com/lanegrid/agtrace/pkg/index"
	"github.com/lanegrid/agtrace/pkg/provider"
	"github.com/lanegrid/agtrace/pkg/session"
	"github.com/lanegrid/agtrace/pkg/watch"
)

// Client bundles the index store, the provider registry, and the set of
// log roots a workspace has configured, presenting them through
// sub-façades (Sessions, System) grouped by concern the way the teacher's
// CLI groups subcommands.
type Client struct {
	store *index.Store
	reg   *provider.Registry
	roots []string
	log   *zap.Logger

	Sessions *Sessions
	System   *System
}

// Connect opens (or reuses) the index database at dbPath and returns a
// Client ready to query it. roots and reg are only stored on the Client;
// Connect does not scan roots (System.Reindex does).
func Connect(dbPath string, roots []string, reg *provider.Registry, log *zap.Logger) (*Client, error) {
	store, err := index.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("client: connect: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	c := &Client{store: store, reg: reg, roots: roots, log: log}
	c.Sessions = &Sessions{c: c}
	c.System = &System{c: c}
	return c, nil
}

// Close releases the underlying index database handle.
func (c *Client) Close() error {
	return c.store.Close()
}

// Sessions is the façade over session listing, retrieval, search, and
// export.
type Sessions struct{ c *Client }

// SessionSummary is the listing-level view of a session: index metadata
// without the fully assembled turn/step tree.
type SessionSummary struct {
	ID        string
	ProjectID string
	Provider  string
	Title     string
	StartedAt time.Time
	UpdatedAt time.Time
	TurnCount int
}

// List returns every indexed session, optionally filtered to one project,
// most recently updated first.
func (s *Sessions) List(ctx context.Context, projectID string) ([]SessionSummary, error) {
	recs, err := s.c.store.ListSessions(ctx, projectID)
	if err != nil {
		return nil, err
	}
	out := make([]SessionSummary, len(recs))
	for i, r := range recs {
		out[i] = SessionSummary{
			ID: r.ID, ProjectID: r.ProjectID, Provider: r.Provider, Title: r.Title,
			StartedAt: r.StartedAt, UpdatedAt: r.UpdatedAt, TurnCount: r.TurnCount,
		}
	}
	return out, nil
}

// Get fully assembles one session by id: every log file recorded against
// it is re-parsed and merged into the turn/step hierarchy pkg/session
// builds.
func (s *Sessions) Get(ctx context.Context, id string) (session.Session, error) {
	rec, err := s.c.store.GetSession(ctx, id)
	if err != nil {
		return session.Session{}, fmt.Errorf("client: get session %s: %w", id, err)
	}
	logFiles, err := s.c.store.ListLogFiles(ctx, id)
	if err != nil {
		return session.Session{}, err
	}

	dec, ok := s.c.reg.Get(rec.Provider)
	if !ok {
		return session.Session{}, provider.ErrUnknownProvider{Name: rec.Provider}
	}

	sid := builder.SessionID(rec.Provider, id)
	b := builder.New(sid)

	var events []event.AgentEvent
	for _, lf := range logFiles {
		evs, err := dec.Parse(lf.Path, b)
		if err != nil {
			return session.Session{}, fmt.Errorf("client: parse %s: %w", lf.Path, err)
		}
		events = append(events, evs...)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	return session.Assemble(sid, events), nil
}

// SearchResult is one event matched by SearchEvents, with enough session
// context to locate it.
type SearchResult struct {
	SessionID string
	Event     event.AgentEvent
}

// SearchEvents scans every matching session's assembled events for a
// payload whose text contains query (case-insensitive substring match), up
// to limit results. limit <= 0 means unlimited.
func (s *Sessions) SearchEvents(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	summaries, err := s.List(ctx, "")
	if err != nil {
		return nil, err
	}

	var out []SearchResult
	for _, sum := range summaries {
		sess, err := s.Get(ctx, sum.ID)
		if err != nil {
			s.c.log.Warn("search_events: skipping unreadable session", zap.String("session_id", sum.ID), zap.Error(err))
			continue
		}
		for _, t := range sess.Turns {
			var turnEvents []event.AgentEvent
			if t.User.Payload != nil {
				turnEvents = append(turnEvents, t.User)
			}
			for _, st := range t.Steps {
				turnEvents = append(turnEvents, st.Events...)
			}
			for _, e := range turnEvents {
				if eventMatches(e, query) {
					out = append(out, SearchResult{SessionID: sum.ID, Event: e})
					if limit > 0 && len(out) >= limit {
						return out, nil
					}
				}
			}
		}
	}
	return out, nil
}

func eventMatches(e event.AgentEvent, query string) bool {
	text := payloadText(e.Payload)
	return text != "" && containsFold(text, query)
}

func payloadText(p event.Payload) string {
	switch v := p.(type) {
	case event.UserPayload:
		return v.Text
	case event.MessagePayload:
		return v.Text
	case event.ReasoningPayload:
		return v.Text
	case event.ToolCallPayload:
		return event.SummarizeArgs(v.Args)
	case event.ToolResultPayload:
		return v.Output
	case event.NotificationPayload:
		return v.Message
	default:
		return ""
	}
}

// Export serializes one assembled session as JSONL, one event per line.
func (s *Sessions) Export(ctx context.Context, id string) ([]byte, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var events []event.AgentEvent
	for _, t := range sess.Turns {
		if t.User.Payload != nil {
			events = append(events, t.User)
		}
		for _, st := range t.Steps {
			events = append(events, st.Events...)
		}
	}
	return event.SerializeEvents(events)
}

func containsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
