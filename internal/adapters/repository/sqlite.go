package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/tryout/internal/domain/event"
	"github.com/okian/tryout/internal/domain/evaluation"
	"github.com/okian/tryout/internal/domain/experiment"
	"github.com/okian/tryout/pkg/metrics"
)

// schemaV1 defines the initial database schema. The composite primary
// key on (session_id, seq) is the backstop for the no-overlap invariant;
// the keyed mutex in Append is what guarantees it under concurrency.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS session_logs (
	session_id TEXT PRIMARY KEY,
	next_seq   INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS session_events (
	session_id     TEXT NOT NULL,
	seq            INTEGER NOT NULL,
	event_type     TEXT NOT NULL,
	origin         TEXT NOT NULL,
	ts             INTEGER NOT NULL,
	data_json      TEXT NOT NULL DEFAULT '{}',
	file_path      TEXT NOT NULL DEFAULT '',
	question_index INTEGER NOT NULL DEFAULT 0,
	checkpoint     INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (session_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_events_session_type ON session_events(session_id, event_type);
CREATE INDEX IF NOT EXISTS idx_events_session_checkpoint ON session_events(session_id, checkpoint);

CREATE TABLE IF NOT EXISTS evaluations (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	result_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_evaluations_session ON evaluations(session_id, id);

CREATE TABLE IF NOT EXISTS experiment_assignments (
	session_id      TEXT PRIMARY KEY,
	assignment_json TEXT NOT NULL
);
`

// SQLiteStore implements Store on a single SQLite database.
type SQLiteStore struct {
	db *sql.DB

	// sessionLocks serializes appends per session so sequence ranges
	// are reserved by a single writer at a time. No cross-session
	// locks exist.
	sessionLocks sync.Map // session_id -> *sync.Mutex
}

// NewSQLiteStore opens (or creates) the database at path with WAL mode
// and runs the schema migration.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL allows concurrent reads but a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), schemaV1); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) lockSession(sessionID string) *sync.Mutex {
	mu, _ := s.sessionLocks.LoadOrStore(sessionID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Append reserves a contiguous sequence range and inserts the events in
// one transaction. The log row is created lazily on first append.
func (s *SQLiteStore) Append(ctx context.Context, sessionID string, events []event.SessionEvent) (SeqRange, error) {
	if len(events) == 0 {
		return SeqRange{First: 0, Last: -1}, nil
	}

	start := time.Now()
	defer func() {
		metrics.RecordAppendLatency(float64(time.Since(start).Milliseconds()))
	}()

	mu := s.lockSession(sessionID)
	mu.Lock()
	defer mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return SeqRange{}, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO session_logs (session_id, next_seq, created_at) VALUES (?, 0, ?)
		 ON CONFLICT(session_id) DO NOTHING`,
		sessionID, time.Now().UnixMilli(),
	); err != nil {
		return SeqRange{}, fmt.Errorf("get-or-create log: %w", err)
	}

	var next int64
	if err := tx.QueryRowContext(ctx,
		`SELECT next_seq FROM session_logs WHERE session_id = ?`, sessionID,
	).Scan(&next); err != nil {
		return SeqRange{}, fmt.Errorf("read next_seq: %w", err)
	}

	const insert = `INSERT INTO session_events
		(session_id, seq, event_type, origin, ts, data_json, file_path, question_index, checkpoint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for i := range events {
		e := &events[i]
		data := "{}"
		if len(e.Data) > 0 {
			data = string(e.Data)
		}
		checkpoint := 0
		if e.Checkpoint {
			checkpoint = 1
		}
		if _, err := tx.ExecContext(ctx, insert,
			sessionID, next+int64(i), e.Type, string(e.Origin),
			e.Timestamp.UnixMilli(), data, e.FilePath, e.QuestionIndex, checkpoint,
		); err != nil {
			return SeqRange{}, fmt.Errorf("insert event seq=%d: %w", next+int64(i), err)
		}
	}

	last := next + int64(len(events)) - 1
	if _, err := tx.ExecContext(ctx,
		`UPDATE session_logs SET next_seq = ? WHERE session_id = ?`,
		last+1, sessionID,
	); err != nil {
		return SeqRange{}, fmt.Errorf("advance next_seq: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return SeqRange{}, fmt.Errorf("commit append: %w", err)
	}

	metrics.RecordEventsAppended(len(events))
	return SeqRange{First: next, Last: last}, nil
}

// Query returns matching events ordered ascending by sequence number.
// Timestamps are never used for ordering.
func (s *SQLiteStore) Query(ctx context.Context, sessionID string, f Filter) ([]event.SessionEvent, error) {
	start := time.Now()
	defer func() {
		metrics.RecordQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	where, args := buildWhere(sessionID, f)
	q := `SELECT seq, event_type, origin, ts, data_json, file_path, question_index, checkpoint
		FROM session_events ` + where + ` ORDER BY seq ASC`
	if f.Limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []event.SessionEvent
	for rows.Next() {
		var (
			e          event.SessionEvent
			origin     string
			ts         int64
			data       string
			checkpoint int
		)
		if err := rows.Scan(&e.Seq, &e.Type, &origin, &ts, &data, &e.FilePath, &e.QuestionIndex, &checkpoint); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.SessionID = sessionID
		e.Origin = event.Origin(origin)
		e.Timestamp = time.UnixMilli(ts).UTC()
		e.Data = json.RawMessage(data)
		e.Checkpoint = checkpoint == 1
		out = append(out, e)
	}
	return out, rows.Err()
}

// Events implements evaluation.EventSource: the full ordered log.
func (s *SQLiteStore) Events(ctx context.Context, sessionID string) ([]event.SessionEvent, error) {
	return s.Query(ctx, sessionID, Filter{})
}

// Count returns the number of events matching f, ignoring pagination.
func (s *SQLiteStore) Count(ctx context.Context, sessionID string, f Filter) (int64, error) {
	f.Limit = 0
	f.Offset = 0
	where, args := buildWhere(sessionID, f)
	var n int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM session_events `+where, args...,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

func buildWhere(sessionID string, f Filter) (string, []any) {
	clauses := []string{"session_id = ?"}
	args := []any{sessionID}

	if !f.From.IsZero() {
		clauses = append(clauses, "ts >= ?")
		args = append(args, f.From.UnixMilli())
	}
	if !f.To.IsZero() {
		clauses = append(clauses, "ts <= ?")
		args = append(args, f.To.UnixMilli())
	}
	if len(f.Types) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.Types)), ",")
		clauses = append(clauses, "event_type IN ("+placeholders+")")
		for _, t := range f.Types {
			args = append(args, t)
		}
	}
	if f.CheckpointsOnly {
		clauses = append(clauses, "checkpoint = 1")
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

// SessionInfo returns metadata for one session log.
func (s *SQLiteStore) SessionInfo(ctx context.Context, sessionID string) (SessionInfo, error) {
	var (
		createdAt int64
		count     int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at, next_seq FROM session_logs WHERE session_id = ?`, sessionID,
	).Scan(&createdAt, &count)
	if err == sql.ErrNoRows {
		return SessionInfo{}, ErrNotFound
	}
	if err != nil {
		return SessionInfo{}, fmt.Errorf("read session log: %w", err)
	}
	return SessionInfo{
		SessionID:  sessionID,
		EventCount: count,
		CreatedAt:  time.UnixMilli(createdAt).UTC(),
	}, nil
}

// SessionCount returns the number of session logs tracked.
func (s *SQLiteStore) SessionCount(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM session_logs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

// DeleteSession tears down everything recorded for a session.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	mu := s.lockSession(sessionID)
	mu.Lock()
	defer mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin teardown: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	for _, stmt := range []string{
		`DELETE FROM session_events WHERE session_id = ?`,
		`DELETE FROM evaluations WHERE session_id = ?`,
		`DELETE FROM experiment_assignments WHERE session_id = ?`,
		`DELETE FROM session_logs WHERE session_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, sessionID); err != nil {
			return fmt.Errorf("teardown session: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit teardown: %w", err)
	}
	s.sessionLocks.Delete(sessionID)
	return nil
}

// SaveEvaluation persists one evaluation run as JSON, versioned by its
// time-ordered id.
func (s *SQLiteStore) SaveEvaluation(ctx context.Context, result *evaluation.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal evaluation: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO evaluations (id, session_id, created_at, result_json) VALUES (?, ?, ?, ?)`,
		result.ID, result.SessionID, result.CreatedAt.UnixMilli(), string(payload),
	); err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}
	return nil
}

// LatestEvaluation returns the most recent evaluation for a session.
// ULID ids sort lexically by creation time, so MAX(id) is the latest.
func (s *SQLiteStore) LatestEvaluation(ctx context.Context, sessionID string) (*evaluation.Result, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT result_json FROM evaluations WHERE session_id = ? ORDER BY id DESC LIMIT 1`,
		sessionID,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read evaluation: %w", err)
	}
	var result evaluation.Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("unmarshal evaluation: %w", err)
	}
	return &result, nil
}

// SaveAssignment persists a sticky experiment assignment.
func (s *SQLiteStore) SaveAssignment(ctx context.Context, a experiment.Assignment) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal assignment: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO experiment_assignments (session_id, assignment_json) VALUES (?, ?)
		 ON CONFLICT(session_id) DO NOTHING`,
		a.SessionID, string(payload),
	); err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

// LoadAssignment returns the persisted assignment for a session, if any.
func (s *SQLiteStore) LoadAssignment(ctx context.Context, sessionID string) (experiment.Assignment, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT assignment_json FROM experiment_assignments WHERE session_id = ?`, sessionID,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return experiment.Assignment{}, false, nil
	}
	if err != nil {
		return experiment.Assignment{}, false, fmt.Errorf("read assignment: %w", err)
	}
	var a experiment.Assignment
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return experiment.Assignment{}, false, fmt.Errorf("unmarshal assignment: %w", err)
	}
	return a, true, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
