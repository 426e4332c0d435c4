// Package index provides the relational index store: a small SQLite
// database recording which projects and sessions exist and which on-disk
// log files belong to them, so pkg/client can answer "list sessions" and
// "what changed since last scan" without re-walking the filesystem or
// re-parsing every log file on every query.
//
// The index is a cache over the log files, never their source of truth —
// pkg/client's System.Reindex can always rebuild it from scratch by
// rescanning configured provider roots with pkg/discovery.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// schemaVersion is bumped whenever the table definitions below change
// shape. Store.Open compares it against the database's own
// PRAGMA user_version and performs a destructive rebuild on mismatch,
// since the index is disposable (see package doc).
const schemaVersion = 1

// Store is a handle to one SQLite-backed index database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// ensures its schema is current.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open %s: %w", path, err)
	}
	// The mattn/go-sqlite3 driver is not safe for concurrent writers on
	// a single *sql.DB beyond one open connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	var current int
	if err := s.db.QueryRow(`PRAGMA user_version`).Scan(&current); err != nil {
		return fmt.Errorf("index: read schema version: %w", err)
	}
	if current == schemaVersion {
		return nil
	}
	return s.rebuildSchema()
}

// rebuildSchema drops and recreates every table. It is destructive by
// design: the index is a cache, and a version mismatch means the code
// reading it no longer agrees with what's on disk, so the only safe move
// is to recompute it from the log files on the next scan.
func (s *Store) rebuildSchema() error {
	stmts := []string{
		`DROP TABLE IF EXISTS log_files`,
		`DROP TABLE IF EXISTS sessions`,
		`DROP TABLE IF EXISTS projects`,
		`CREATE TABLE projects (
			id         TEXT PRIMARY KEY,
			path       TEXT NOT NULL UNIQUE,
			name       TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE sessions (
			id         TEXT PRIMARY KEY,
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			provider   TEXT NOT NULL,
			title      TEXT,
			started_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			turn_count INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX idx_sessions_project ON sessions(project_id)`,
		`CREATE TABLE log_files (
			path         TEXT PRIMARY KEY,
			session_id   TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			provider     TEXT NOT NULL,
			byte_offset  INTEGER NOT NULL DEFAULT 0,
			event_count  INTEGER NOT NULL DEFAULT 0,
			mod_time     TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX idx_log_files_session ON log_files(session_id)`,
		fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion),
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("index: rebuild schema: %w", err)
		}
	}
	return nil
}

// Reset forces the destructive rebuild regardless of schema version,
// backing the reindex --force operation.
func (s *Store) Reset() error {
	return s.rebuildSchema()
}

// ProjectRecord is one row of the projects table.
type ProjectRecord struct {
	ID        string
	Path      string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionRecord is one row of the sessions table.
type SessionRecord struct {
	ID        string
	ProjectID string
	Provider  string
	Title     string
	StartedAt time.Time
	UpdatedAt time.Time
	TurnCount int
}

// LogFileRecord is one row of the log_files table: the size, event count
// and modification time a reindex recorded for one log file. pkg/watch
// keeps its own in-memory cursors and does not read it.
type LogFileRecord struct {
	Path       string
	SessionID  string
	Provider   string
	ByteOffset int64
	EventCount int
	ModTime    time.Time
}

// UpsertProject inserts or updates a project row, idempotently. An empty
// rec.Name never clobbers a previously stored name, via COALESCE — a
// rescan that only has a project's path can't blank out a name recorded
// by an earlier, richer scan. path and updated_at are always overwritten,
// and created_at keeps its first value.
func (s *Store) UpsertProject(ctx context.Context, rec ProjectRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, path, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path       = excluded.path,
			name       = COALESCE(NULLIF(excluded.name, ''), projects.name),
			updated_at = excluded.updated_at
	`, rec.ID, rec.Path, rec.Name, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert project %s: %w", rec.ID, err)
	}
	return nil
}

// UpsertSession inserts or updates a session row, idempotently.
func (s *Store) UpsertSession(ctx context.Context, rec SessionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, project_id, provider, title, started_at, updated_at, turn_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title      = COALESCE(NULLIF(excluded.title, ''), sessions.title),
			updated_at = excluded.updated_at,
			turn_count = excluded.turn_count
	`, rec.ID, rec.ProjectID, rec.Provider, rec.Title, rec.StartedAt, rec.UpdatedAt, rec.TurnCount)
	if err != nil {
		return fmt.Errorf("index: upsert session %s: %w", rec.ID, err)
	}
	return nil
}

// UpsertLogFile inserts or updates a log_files row, idempotently.
func (s *Store) UpsertLogFile(ctx context.Context, rec LogFileRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO log_files (path, session_id, provider, byte_offset, event_count, mod_time)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			byte_offset = excluded.byte_offset,
			event_count = excluded.event_count,
			mod_time    = excluded.mod_time
	`, rec.Path, rec.SessionID, rec.Provider, rec.ByteOffset, rec.EventCount, rec.ModTime)
	if err != nil {
		return fmt.Errorf("index: upsert log file %s: %w", rec.Path, err)
	}
	return nil
}

// ErrNotFound is returned by the Get* lookups when no row matches.
var ErrNotFound = fmt.Errorf("index: not found")

// GetProject looks a project up by id.
func (s *Store) GetProject(ctx context.Context, id string) (ProjectRecord, error) {
	var rec ProjectRecord
	row := s.db.QueryRowContext(ctx, `SELECT id, path, name, created_at, updated_at FROM projects WHERE id = ?`, id)
	if err := row.Scan(&rec.ID, &rec.Path, &rec.Name, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return rec, ErrNotFound
		}
		return rec, fmt.Errorf("index: get project %s: %w", id, err)
	}
	return rec, nil
}

// ListProjects returns every project, ordered by path.
func (s *Store) ListProjects(ctx context.Context) ([]ProjectRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, path, name, created_at, updated_at FROM projects ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("index: list projects: %w", err)
	}
	defer rows.Close()

	var out []ProjectRecord
	for rows.Next() {
		var rec ProjectRecord
		if err := rows.Scan(&rec.ID, &rec.Path, &rec.Name, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("index: scan project: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetSession looks a session up by id.
func (s *Store) GetSession(ctx context.Context, id string) (SessionRecord, error) {
	var rec SessionRecord
	row := s.db.QueryRowContext(ctx, `SELECT id, project_id, provider, title, started_at, updated_at, turn_count FROM sessions WHERE id = ?`, id)
	if err := row.Scan(&rec.ID, &rec.ProjectID, &rec.Provider, &rec.Title, &rec.StartedAt, &rec.UpdatedAt, &rec.TurnCount); err != nil {
		if err == sql.ErrNoRows {
			return rec, ErrNotFound
		}
		return rec, fmt.Errorf("index: get session %s: %w", id, err)
	}
	return rec, nil
}

// ListSessions returns every session belonging to projectID, most
// recently updated first. An empty projectID lists sessions across every
// project.
func (s *Store) ListSessions(ctx context.Context, projectID string) ([]SessionRecord, error) {
	query := `SELECT id, project_id, provider, title, started_at, updated_at, turn_count FROM sessions`
	args := []any{}
	if projectID != "" {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		if err := rows.Scan(&rec.ID, &rec.ProjectID, &rec.Provider, &rec.Title, &rec.StartedAt, &rec.UpdatedAt, &rec.TurnCount); err != nil {
			return nil, fmt.Errorf("index: scan session: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetLogFile looks a log_files row up by path.
func (s *Store) GetLogFile(ctx context.Context, path string) (LogFileRecord, error) {
	var rec LogFileRecord
	row := s.db.QueryRowContext(ctx, `SELECT path, session_id, provider, byte_offset, event_count, mod_time FROM log_files WHERE path = ?`, path)
	if err := row.Scan(&rec.Path, &rec.SessionID, &rec.Provider, &rec.ByteOffset, &rec.EventCount, &rec.ModTime); err != nil {
		if err == sql.ErrNoRows {
			return rec, ErrNotFound
		}
		return rec, fmt.Errorf("index: get log file %s: %w", path, err)
	}
	return rec, nil
}

// ListLogFiles returns every log_files row for sessionID.
func (s *Store) ListLogFiles(ctx context.Context, sessionID string) ([]LogFileRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, session_id, provider, byte_offset, event_count, mod_time FROM log_files WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("index: list log files: %w", err)
	}
	defer rows.Close()

	var out []LogFileRecord
	for rows.Next() {
		var rec LogFileRecord
		if err := rows.Scan(&rec.Path, &rec.SessionID, &rec.Provider, &rec.ByteOffset, &rec.EventCount, &rec.ModTime); err != nil {
			return nil, fmt.Errorf("index: scan log file: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
