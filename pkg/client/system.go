package client

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/lanegrid/agtrace/pkg/builder"
	"github.com/lanegrid/agtrace/pkg/discovery"
	"github.com/lanegrid/agtrace/pkg/event"
	"github.com/lanegrid/agtrace/pkg/index"
	"github.com/lanegrid/agtrace/pkg/watch"
)

// System is the façade over maintenance operations: reindexing the
// configured log roots and running the live watch service.
type System struct{ c *Client }

// ReindexStats reports what one Reindex call found.
type ReindexStats struct {
	FilesScanned    int
	SessionsIndexed int
	Failures        int
}

// Reindex walks every configured root, upserting a project/session/
// log_file row for each discovered session. When force is true the index
// is dropped and rebuilt from scratch first (the operator's escape hatch
// for a corrupted index, distinct from the automatic schema-version
// rebuild in pkg/index).
func (sys *System) Reindex(ctx context.Context, force bool) (ReindexStats, error) {
	var stats ReindexStats

	if force {
		if err := sys.c.store.Reset(); err != nil {
			return stats, fmt.Errorf("client: reindex: %w", err)
		}
	}

	for _, root := range sys.c.roots {
		res, err := discovery.Scan(root, sys.c.reg)
		if err != nil {
			return stats, fmt.Errorf("client: reindex scan %s: %w", root, err)
		}
		stats.FilesScanned += len(res.Found) + len(res.Failures)
		stats.Failures += len(res.Failures)

		for _, found := range res.Found {
			if err := sys.indexFound(ctx, found); err != nil {
				sys.c.log.Warn("reindex: failed to index session", zap.String("path", found.Path), zap.Error(err))
				stats.Failures++
				continue
			}
			stats.SessionsIndexed++
		}
	}
	return stats, nil
}

func (sys *System) indexFound(ctx context.Context, found discovery.Found) error {
	now := time.Now().UTC()
	projectID := builder.SessionID("project", found.Header.Project).String()
	sessionID := builder.SessionID(found.Header.Provider, found.Header.SessionID).String()

	if err := sys.c.store.UpsertProject(ctx, index.ProjectRecord{
		ID: projectID, Path: found.Header.Project, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		return err
	}

	b := builder.New(builder.SessionID(found.Header.Provider, found.Header.SessionID))
	events, err := found.Decoder.Parse(found.Path, b)
	if err != nil {
		return err
	}

	if err := sys.c.store.UpsertSession(ctx, index.SessionRecord{
		ID: sessionID, ProjectID: projectID, Provider: found.Header.Provider,
		StartedAt: found.Header.StartedAt, UpdatedAt: now, TurnCount: countUserTurns(events),
	}); err != nil {
		return err
	}

	info, err := os.Stat(found.Path)
	if err != nil {
		return err
	}
	return sys.c.store.UpsertLogFile(ctx, index.LogFileRecord{
		Path: found.Path, SessionID: sessionID, Provider: found.Header.Provider,
		ByteOffset: info.Size(), EventCount: len(events), ModTime: info.ModTime(),
	})
}

func countUserTurns(events []event.AgentEvent) int {
	var n int
	for _, e := range events {
		if _, ok := e.Payload.(event.UserPayload); ok {
			n++
		}
	}
	return n
}

// WatchService starts a live watch.Watcher over the client's configured
// roots and returns it so the caller can read deltas and errors from its
// channels; the watcher runs until ctx is canceled.
func (sys *System) WatchService(ctx context.Context) *watch.Watcher {
	w := watch.New(sys.c.roots, sys.c.reg, sys.c.log)
	go w.Run(ctx)
	return w
}
