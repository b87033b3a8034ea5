package event

import (
	"encoding/json"
	"fmt"
)

// Typed payloads for the known event types. The raw Data field stays the
// source of truth; these decoders give analyzers a concrete shape to work
// with. Unknown types keep their payload as an opaque bag.

// CodeSnapshotPayload carries the full file set at a point in time.
type CodeSnapshotPayload struct {
	Files      map[string]string `json:"files"`
	QuestionID string            `json:"questionId,omitempty"`

	// BlobRefs maps paths to content checksums when large file contents
	// were offloaded to the blob store instead of stored inline.
	BlobRefs map[string]string `json:"blobRefs,omitempty"`
}

// TestResultPayload carries the outcome of one test run.
type TestResultPayload struct {
	Passed     int    `json:"passed"`
	Failed     int    `json:"failed"`
	Total      int    `json:"total"`
	Output     string `json:"output,omitempty"`
	QuestionID string `json:"questionId,omitempty"`
}

// TerminalInputPayload carries a command typed into the terminal.
type TerminalInputPayload struct {
	Command string `json:"command"`
}

// TerminalOutputPayload carries the output of the preceding command.
type TerminalOutputPayload struct {
	Output   string `json:"output"`
	ExitCode int    `json:"exitCode"`
}

// ChatMessagePayload carries one side of an AI interaction.
type ChatMessagePayload struct {
	Message    string   `json:"message"`
	ToolsUsed  []string `json:"toolsUsed,omitempty"`
	QuestionID string   `json:"questionId,omitempty"`
}

// SessionMetricsPayload carries derived metrics pushed by the client or
// the agent. Only the latest value before evaluation time is retained.
type SessionMetricsPayload struct {
	AIDependencyScore float64 `json:"aiDependencyScore"`
	Keystrokes        int     `json:"keystrokes,omitempty"`
	IdleSeconds       int     `json:"idleSeconds,omitempty"`
	FocusChanges      int     `json:"focusChanges,omitempty"`
}

// DecodePayload unmarshals raw into dst, wrapping failures as
// ErrMalformedPayload so callers can reject whole batches uniformly.
func DecodePayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return nil
}
