// Package extract replays a session's ordered event log into the typed,
// denormalized buckets consumed by the dimension analyzers.
package extract

import (
	"strconv"
	"time"

	"github.com/okian/tryout/internal/domain/event"
)

// CodeSnapshot is one full capture of the candidate's workspace.
type CodeSnapshot struct {
	Timestamp  time.Time
	Files      map[string]string
	QuestionID string
	Origin     event.Origin
}

// TestResult is one recorded test run outcome.
type TestResult struct {
	Timestamp  time.Time
	Passed     int
	Failed     int
	Total      int
	Output     string
	QuestionID string
}

// AIInteraction is one candidate/assistant turn. AssistantMessage stays
// empty when the turn was never answered.
type AIInteraction struct {
	Timestamp        time.Time
	CandidateMessage string
	AssistantMessage string
	ToolsUsed        []string
	QuestionID       string
	answered         bool
}

// Answered reports whether an assistant message was attached to the turn.
func (i *AIInteraction) Answered() bool { return i.answered }

// TerminalCommand is one command and, when paired, its output.
type TerminalCommand struct {
	Timestamp  time.Time
	Command    string
	Output     string
	ExitCode   int
	QuestionID string
	completed  bool
}

// Completed reports whether output was attached to the command.
func (c *TerminalCommand) Completed() bool { return c.completed }

// Metrics is the latest derived metrics value before evaluation time.
// It is overwritten, never appended.
type Metrics struct {
	AIDependencyScore float64
	Keystrokes        int
	IdleSeconds       int
	FocusChanges      int
	Present           bool
}

// SessionData holds the replayed buckets plus derived session facts.
type SessionData struct {
	SessionID        string
	CodeSnapshots    []CodeSnapshot
	TestResults      []TestResult
	AIInteractions   []AIInteraction
	TerminalCommands []TerminalCommand
	Metrics          Metrics

	// Duration spans the first to the last event timestamp.
	Duration time.Duration

	// EventCount is the total number of replayed events.
	EventCount int

	// Anomalies records non-fatal replay oddities, e.g. an assistant
	// message with no preceding user message.
	Anomalies []string
}

// Replay folds an ordered event sequence into buckets. Events must be
// sorted ascending by sequence number; timestamps are never used for
// ordering. Pairing of request/response style events is a two-phase
// reducer: a user message or terminal input opens a pending half-open
// record, and the next matching response closes the most recently
// opened one.
func Replay(sessionID string, events []event.SessionEvent) *SessionData {
	d := &SessionData{SessionID: sessionID, EventCount: len(events)}

	// Index of the pending half-open record per stream, -1 when none.
	pendingChat := -1
	pendingCmd := -1

	var first, last time.Time

	for i := range events {
		e := &events[i]
		if first.IsZero() || e.Timestamp.Before(first) {
			first = e.Timestamp
		}
		if e.Timestamp.After(last) {
			last = e.Timestamp
		}

		switch e.Type {
		case event.TypeCodeSnapshot:
			var p event.CodeSnapshotPayload
			if err := event.DecodePayload(e.Data, &p); err != nil {
				d.Anomalies = append(d.Anomalies, "undecodable code snapshot at seq "+itoa(e.Seq))
				continue
			}
			d.CodeSnapshots = append(d.CodeSnapshots, CodeSnapshot{
				Timestamp:  e.Timestamp,
				Files:      p.Files,
				QuestionID: p.QuestionID,
				Origin:     e.Origin,
			})

		case event.TypeTestResult, event.TypeTestRunComplete:
			var p event.TestResultPayload
			if err := event.DecodePayload(e.Data, &p); err != nil {
				d.Anomalies = append(d.Anomalies, "undecodable test result at seq "+itoa(e.Seq))
				continue
			}
			d.TestResults = append(d.TestResults, TestResult{
				Timestamp:  e.Timestamp,
				Passed:     p.Passed,
				Failed:     p.Failed,
				Total:      p.Total,
				Output:     p.Output,
				QuestionID: p.QuestionID,
			})

		case event.TypeChatUserMessage:
			var p event.ChatMessagePayload
			if err := event.DecodePayload(e.Data, &p); err != nil {
				d.Anomalies = append(d.Anomalies, "undecodable chat message at seq "+itoa(e.Seq))
				continue
			}
			d.AIInteractions = append(d.AIInteractions, AIInteraction{
				Timestamp:        e.Timestamp,
				CandidateMessage: p.Message,
				QuestionID:       p.QuestionID,
			})
			pendingChat = len(d.AIInteractions) - 1

		case event.TypeChatAssistantMsg:
			var p event.ChatMessagePayload
			if err := event.DecodePayload(e.Data, &p); err != nil {
				d.Anomalies = append(d.Anomalies, "undecodable assistant message at seq "+itoa(e.Seq))
				continue
			}
			if pendingChat < 0 {
				// No user message opened a turn; drop, not fatal.
				d.Anomalies = append(d.Anomalies, "orphan assistant message at seq "+itoa(e.Seq))
				continue
			}
			turn := &d.AIInteractions[pendingChat]
			turn.AssistantMessage = p.Message
			turn.ToolsUsed = p.ToolsUsed
			turn.answered = true
			pendingChat = -1

		case event.TypeTerminalInput, event.TypeTerminalCommand:
			var p event.TerminalInputPayload
			if err := event.DecodePayload(e.Data, &p); err != nil {
				d.Anomalies = append(d.Anomalies, "undecodable terminal input at seq "+itoa(e.Seq))
				continue
			}
			d.TerminalCommands = append(d.TerminalCommands, TerminalCommand{
				Timestamp: e.Timestamp,
				Command:   p.Command,
			})
			pendingCmd = len(d.TerminalCommands) - 1

		case event.TypeTerminalOutput:
			var p event.TerminalOutputPayload
			if err := event.DecodePayload(e.Data, &p); err != nil {
				d.Anomalies = append(d.Anomalies, "undecodable terminal output at seq "+itoa(e.Seq))
				continue
			}
			if pendingCmd < 0 {
				d.Anomalies = append(d.Anomalies, "orphan terminal output at seq "+itoa(e.Seq))
				continue
			}
			cmd := &d.TerminalCommands[pendingCmd]
			cmd.Output = p.Output
			cmd.ExitCode = p.ExitCode
			cmd.completed = true
			pendingCmd = -1

		case event.TypeSessionMetrics, event.TypeMetricsUpdated:
			var p event.SessionMetricsPayload
			if err := event.DecodePayload(e.Data, &p); err != nil {
				d.Anomalies = append(d.Anomalies, "undecodable session metrics at seq "+itoa(e.Seq))
				continue
			}
			// Last value wins; earlier metrics are discarded.
			d.Metrics = Metrics{
				AIDependencyScore: p.AIDependencyScore,
				Keystrokes:        p.Keystrokes,
				IdleSeconds:       p.IdleSeconds,
				FocusChanges:      p.FocusChanges,
				Present:           true,
			}
		}
	}

	if !first.IsZero() && last.After(first) {
		d.Duration = last.Sub(first)
	}
	return d
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
