// Package repository defines the session event log store: the
// append-only, per-session ordered record that is the single source of
// truth for everything that happened during a session.
package repository

import (
	"context"
	"time"

	"github.com/okian/tryout/internal/domain/event"
	"github.com/okian/tryout/internal/domain/evaluation"
	"github.com/okian/tryout/internal/domain/experiment"
)

// SeqRange is the contiguous block of sequence numbers assigned to one
// append call.
type SeqRange struct {
	First int64
	Last  int64
}

// Len returns the number of sequence numbers in the range.
func (r SeqRange) Len() int {
	if r.Last < r.First {
		return 0
	}
	return int(r.Last - r.First + 1)
}

// Filter narrows event queries. The zero value selects everything.
type Filter struct {
	From            time.Time
	To              time.Time
	Types           []string
	CheckpointsOnly bool
	Limit           int
	Offset          int
}

// SessionInfo describes one session log.
type SessionInfo struct {
	SessionID  string    `json:"session_id"`
	EventCount int64     `json:"event_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store provides access to the event log and evaluation results.
//
// Append must reserve a contiguous sequence range atomically: two
// concurrent appends to the same session never receive overlapping
// ranges. Events are immutable once appended; the only delete is bulk
// session teardown.
type Store interface {
	evaluation.EventSource
	experiment.AssignmentStore

	// Append assigns sequence numbers and appends events to the
	// session's log, creating the log lazily on first use.
	Append(ctx context.Context, sessionID string, events []event.SessionEvent) (SeqRange, error)

	// Query returns events matching f, always ascending by sequence.
	Query(ctx context.Context, sessionID string, f Filter) ([]event.SessionEvent, error)

	// Count returns the number of events matching f, ignoring
	// pagination.
	Count(ctx context.Context, sessionID string, f Filter) (int64, error)

	// SessionInfo returns metadata for one session log.
	// Returns ErrNotFound for unknown sessions.
	SessionInfo(ctx context.Context, sessionID string) (SessionInfo, error)

	// SessionCount returns the number of session logs tracked.
	SessionCount(ctx context.Context) (int64, error)

	// DeleteSession tears down a session's events, evaluations and
	// assignment in bulk.
	DeleteSession(ctx context.Context, sessionID string) error

	// SaveEvaluation persists one evaluation run. Results are
	// versioned by their time-ordered id, never merged.
	SaveEvaluation(ctx context.Context, result *evaluation.Result) error

	// LatestEvaluation returns the most recent evaluation for the
	// session, or ErrNotFound.
	LatestEvaluation(ctx context.Context, sessionID string) (*evaluation.Result, error)

	Close() error
}
