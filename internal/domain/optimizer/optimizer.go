// Package optimizer filters event batches before they reach the log.
// It debounces high-frequency input and marks semantically important
// events as checkpoints for fast replay seeking.
package optimizer

import (
	"github.com/okian/tryout/internal/domain/event"
)

// Default debounce ratio: keep every Nth buffered high-frequency event.
const defaultKeepEvery = 10

// Optimizer reduces an ordered batch of candidate events into an ordered,
// possibly shorter batch. Order of retained events is preserved and
// checkpoint flags are only ever added, never removed.
type Optimizer struct {
	keepEvery     int
	highFrequency map[string]struct{}
	important     map[string]struct{}
}

// New creates an Optimizer with default policy: keystrokes are debounced
// at 1-in-10, and file mutations, test executions, AI interactions and
// snapshots become checkpoints.
func New(opts ...Option) *Optimizer {
	o := &Optimizer{
		keepEvery: defaultKeepEvery,
		highFrequency: map[string]struct{}{
			event.TypeKeystroke: {},
		},
		important: map[string]struct{}{
			event.TypeCodeSnapshot:     {},
			event.TypeCodeWrite:        {},
			event.TypeCodeEdit:         {},
			event.TypeFileCreated:      {},
			event.TypeFileDeleted:      {},
			event.TypeFileRenamed:      {},
			event.TypeTestRun:          {},
			event.TypeTestResult:       {},
			event.TypeTestRunComplete:  {},
			event.TypeChatUserMessage:  {},
			event.TypeChatAssistantMsg: {},
			event.TypeAIInteraction:    {},
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Optimize processes one batch. High-frequency events are buffered in
// encounter order; a non-high-frequency event (or end of batch) flushes
// the buffer keeping indices 0, N, 2N, ... Important events are marked
// as checkpoints even when the caller did not request it.
func (o *Optimizer) Optimize(events []event.SessionEvent) []event.SessionEvent {
	out := make([]event.SessionEvent, 0, len(events))
	var buffered []event.SessionEvent

	flush := func() {
		for i := 0; i < len(buffered); i += o.keepEvery {
			out = append(out, buffered[i])
		}
		buffered = buffered[:0]
	}

	for _, e := range events {
		if _, hf := o.highFrequency[e.Type]; hf {
			buffered = append(buffered, e)
			continue
		}
		flush()
		if _, imp := o.important[e.Type]; imp {
			e.Checkpoint = true
		}
		out = append(out, e)
	}
	flush()
	return out
}
