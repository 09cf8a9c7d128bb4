// Package audit keeps an append-only SQLite record of every action the
// worker processed, applied or rejected.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Outcome is the result of applying one action.
type Outcome string

const (
	OutcomeApplied  Outcome = "applied"
	OutcomeRejected Outcome = "rejected"
)

// DefaultListLimit caps ListByWorld when the caller passes a non-positive limit.
const DefaultListLimit = 50

// Entry is one audit row.
type Entry struct {
	ID         int64     `json:"id"`
	RequestID  string    `json:"request_id"`
	WorldID    uuid.UUID `json:"world_id"`
	Action     string    `json:"action"`
	Outcome    Outcome   `json:"outcome"`
	Failure    string    `json:"failure,omitempty"` // rules.Kind when rejected
	Message    string    `json:"message,omitempty"`
	At         int64     `json:"at"` // engine clock, unix ms
	RecordedAt time.Time `json:"recorded_at"`
}

// Store is the SQLite-backed audit log.
type Store struct {
	db *sql.DB
}

// Open creates or opens the audit database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS actions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id TEXT NOT NULL,
			world_id TEXT NOT NULL,
			action TEXT NOT NULL,
			outcome TEXT NOT NULL,
			failure TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL DEFAULT '',
			at INTEGER NOT NULL,
			recorded_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS actions_world_idx ON actions(world_id, id);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends e and returns it with ID and RecordedAt filled in.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.WorldID == uuid.Nil {
		return e, fmt.Errorf("audit entry has no world id")
	}
	if e.Outcome != OutcomeApplied && e.Outcome != OutcomeRejected {
		return e, fmt.Errorf("unknown outcome %q", e.Outcome)
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO actions(request_id, world_id, action, outcome, failure, message, at, recorded_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RequestID, e.WorldID.String(), e.Action, string(e.Outcome), e.Failure, e.Message, e.At, e.RecordedAt.UnixMilli())
	if err != nil {
		return e, fmt.Errorf("insert audit entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return e, err
	}
	e.ID = id
	return e, nil
}

// ListByWorld returns the newest entries for worldID, newest first.
func (s *Store) ListByWorld(ctx context.Context, worldID uuid.UUID, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, request_id, world_id, action, outcome, failure, message, at, recorded_at
		 FROM actions WHERE world_id = ? ORDER BY id DESC LIMIT ?`,
		worldID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var (
			e          Entry
			world      string
			outcome    string
			recordedAt int64
		)
		if err := rows.Scan(&e.ID, &e.RequestID, &world, &e.Action, &outcome, &e.Failure, &e.Message, &e.At, &recordedAt); err != nil {
			return nil, err
		}
		if e.WorldID, err = uuid.Parse(world); err != nil {
			return nil, fmt.Errorf("audit row %d: %w", e.ID, err)
		}
		e.Outcome = Outcome(outcome)
		e.RecordedAt = time.UnixMilli(recordedAt).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountRejections groups worldID's rejected actions by failure kind.
func (s *Store) CountRejections(ctx context.Context, worldID uuid.UUID) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT failure, COUNT(*) FROM actions
		 WHERE world_id = ? AND outcome = ? GROUP BY failure`,
		worldID.String(), string(OutcomeRejected))
	if err != nil {
		return nil, fmt.Errorf("count rejections: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		out[kind] = n
	}
	return out, rows.Err()
}
