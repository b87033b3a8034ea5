// Package event defines the session event model: the atomic, immutable
// facts recorded during an assessment session.
package event

import (
	"encoding/json"
	"strings"
	"time"
)

// Origin identifies who caused an event.
type Origin string

// Known origins.
const (
	OriginUser   Origin = "USER"
	OriginAI     Origin = "AI"
	OriginSystem Origin = "SYSTEM"
)

// DefaultCategory is assumed when an event type carries no dot segment.
const DefaultCategory = "session"

// SessionEvent is one atomic fact about a session. Events are immutable
// once appended; corrections are modeled as new events.
type SessionEvent struct {
	SessionID string `json:"session_id"`

	// Seq is assigned by the log at append time and is the sole total
	// order over a session's events. Callers must leave it zero.
	Seq int64 `json:"seq"`

	// Type is a dotted category.action tag, e.g. "code.snapshot".
	Type string `json:"type"`

	Origin Origin `json:"origin"`

	// Timestamp is producer-asserted event time. It may lag or lead
	// server receipt time and must never be used for ordering.
	Timestamp time.Time `json:"timestamp"`

	// Data is the open payload, interpreted per Type. See payload.go.
	Data json.RawMessage `json:"data,omitempty"`

	FilePath      string `json:"file_path,omitempty"`
	QuestionIndex int    `json:"question_index,omitempty"`
	Checkpoint    bool   `json:"checkpoint"`
}

// Category returns the first dot segment of the event type, or
// DefaultCategory when the type has no dot.
func (e *SessionEvent) Category() string {
	if i := strings.IndexByte(e.Type, '.'); i > 0 {
		return e.Type[:i]
	}
	return DefaultCategory
}

// Canonical event types used by the extraction pipeline.
const (
	TypeKeystroke        = "keystroke"
	TypeCodeSnapshot     = "code.snapshot"
	TypeCodeWrite        = "code.write"
	TypeCodeEdit         = "code.edit"
	TypeFileCreated      = "file_created"
	TypeFileDeleted      = "file_deleted"
	TypeFileRenamed      = "file_renamed"
	TypeTerminalInput    = "terminal.input"
	TypeTerminalOutput   = "terminal.output"
	TypeTerminalCommand  = "terminal.command"
	TypeTestRun          = "test.run"
	TypeTestResult       = "test.result"
	TypeTestRunComplete  = "test.run_complete"
	TypeSessionMetrics   = "session.metrics"
	TypeMetricsUpdated   = "session.metrics_updated"
	TypeChatUserMessage  = "chat.user_message"
	TypeChatAssistantMsg = "chat.assistant_message"
	TypeAIInteraction    = "ai_interaction"
	TypeFocusChange      = "focus_change"
	TypeIdleStart        = "idle_start"
	TypeIdleEnd          = "idle_end"
	TypePaste            = "paste"
	TypeCopy             = "copy"
)

// aliases maps client-facing flat names to their canonical dotted forms.
// Types without an alias pass through unchanged.
var aliases = map[string]string{
	"code_snapshot":   TypeCodeSnapshot,
	"terminal_input":  TypeTerminalInput,
	"terminal_output": TypeTerminalOutput,
	"test_run":        TypeTestRun,
}

// accepted is the closed set of event types ingestion will admit,
// keyed by canonical form.
var accepted = map[string]struct{}{
	TypeKeystroke:        {},
	TypeCodeSnapshot:     {},
	TypeCodeWrite:        {},
	TypeCodeEdit:         {},
	TypeFileCreated:      {},
	TypeFileDeleted:      {},
	TypeFileRenamed:      {},
	TypeTerminalInput:    {},
	TypeTerminalOutput:   {},
	TypeTerminalCommand:  {},
	TypeTestRun:          {},
	TypeTestResult:       {},
	TypeTestRunComplete:  {},
	TypeSessionMetrics:   {},
	TypeMetricsUpdated:   {},
	TypeChatUserMessage:  {},
	TypeChatAssistantMsg: {},
	TypeAIInteraction:    {},
	TypeFocusChange:      {},
	TypeIdleStart:        {},
	TypeIdleEnd:          {},
	TypePaste:            {},
	TypeCopy:             {},
}

// Normalize maps a declared event type to its canonical form.
// Returns ErrUnknownType when the type is outside the closed set.
func Normalize(declared string) (string, error) {
	t := strings.TrimSpace(declared)
	if t == "" {
		return "", ErrUnknownType
	}
	if canonical, ok := aliases[t]; ok {
		return canonical, nil
	}
	if _, ok := accepted[t]; !ok {
		return "", ErrUnknownType
	}
	return t, nil
}

// Validate checks an event before it may enter the log. The sequence
// number must be unset; it is the log's to assign.
func (e *SessionEvent) Validate() error {
	canonical, err := Normalize(e.Type)
	if err != nil {
		return err
	}
	e.Type = canonical
	if e.Seq != 0 {
		return ErrSeqAssigned
	}
	switch e.Origin {
	case OriginUser, OriginAI, OriginSystem:
	case "":
		e.Origin = OriginUser
	default:
		return ErrUnknownOrigin
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if len(e.Data) > 0 && !json.Valid(e.Data) {
		return ErrMalformedPayload
	}
	return nil
}
