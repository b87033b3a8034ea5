// Package simulator generates synthetic assessment sessions and drives
// them through a running service over HTTP. Used for load testing and
// for exercising the evaluation pipeline end to end.
package simulator

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/okian/tryout/internal/adapters/sandbox"
	"github.com/okian/tryout/internal/domain/event"
)

// Archetype shapes the kind of candidate a generated session imitates.
type Archetype string

// Known archetypes.
const (
	ArchetypeStrong  Archetype = "strong"
	ArchetypeAverage Archetype = "average"
	ArchetypeWeak    Archetype = "weak"
)

// randomFloat returns a random float64 in [0, 1) using crypto/rand.
func randomFloat() float64 {
	const divisor = 1000000
	n, _ := rand.Int(rand.Reader, big.NewInt(divisor))
	return float64(n.Int64()) / float64(divisor)
}

// randomInt returns a random int in [0, n).
func randomInt(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// Session is one generated session script.
type Session struct {
	SessionID   string
	CandidateID string
	Archetype   Archetype
	Events      []event.SessionEvent
}

// Generate builds a synthetic session for the archetype. The session's
// code is written into a throwaway sandbox workspace and its terminal
// commands are executed there, so terminal.output events carry real
// output and exit codes. Events are in intended chronological order;
// sequence numbers are left for the log.
func Generate(ctx context.Context, archetype Archetype) (*Session, error) {
	s := &Session{
		SessionID:   uuid.New().String(),
		CandidateID: uuid.New().String(),
		Archetype:   archetype,
	}

	sb, err := sandbox.NewLocal(filepath.Join(os.TempDir(), "tryout-sim"))
	if err != nil {
		return nil, fmt.Errorf("create simulation workspace: %w", err)
	}
	defer sb.Destroy() //nolint:errcheck // throwaway workspace

	ts := time.Now().Add(-45 * time.Minute).UTC()
	add := func(typ string, origin event.Origin, payload any) {
		var data json.RawMessage
		if payload != nil {
			data, _ = json.Marshal(payload)
		}
		s.Events = append(s.Events, event.SessionEvent{
			Type:      typ,
			Origin:    origin,
			Timestamp: ts,
			Data:      data,
		})
		ts = ts.Add(time.Duration(2+randomInt(20)) * time.Second)
	}

	// Burst of keystrokes, then a snapshot, a few commands run in the
	// sandbox, a chat exchange and a test run. Repeated per iteration.
	iterations := 3
	passRate := 0.4
	switch archetype {
	case ArchetypeStrong:
		iterations = 4
		passRate = 0.95
	case ArchetypeAverage:
		iterations = 3
		passRate = 0.7
	case ArchetypeWeak:
		iterations = 2
		passRate = 0.3
	}

	for iter := 0; iter < iterations; iter++ {
		for i := 0; i < 30+randomInt(40); i++ {
			add(event.TypeKeystroke, event.OriginUser, nil)
		}

		source := syntheticSource(archetype, iter)
		if err := sb.WriteFile("solution.go", []byte(source)); err != nil {
			return nil, fmt.Errorf("write solution: %w", err)
		}
		add(event.TypeCodeSnapshot, event.OriginUser, event.CodeSnapshotPayload{
			Files: map[string]string{
				"solution.go": source,
			},
		})

		for _, cmd := range commandsFor(archetype, iter) {
			add(event.TypeTerminalInput, event.OriginUser, event.TerminalInputPayload{Command: cmd})
			result, err := sb.RunCommand(ctx, cmd)
			if err != nil {
				return nil, fmt.Errorf("run %q: %w", cmd, err)
			}
			add(event.TypeTerminalOutput, event.OriginSystem, event.TerminalOutputPayload{
				Output:   result.Output,
				ExitCode: result.ExitCode,
			})
		}

		add(event.TypeChatUserMessage, event.OriginUser, event.ChatMessagePayload{
			Message: promptFor(archetype, iter),
		})
		add(event.TypeChatAssistantMsg, event.OriginAI, event.ChatMessagePayload{
			Message: "Here is one way to approach that.",
		})

		total := 10
		passed := int(float64(total) * passRate * float64(iter+1) / float64(iterations))
		if passed > total {
			passed = total
		}
		add(event.TypeTestResult, event.OriginSystem, event.TestResultPayload{
			Passed: passed,
			Failed: total - passed,
			Total:  total,
		})
	}

	add(event.TypeSessionMetrics, event.OriginSystem, event.SessionMetricsPayload{
		AIDependencyScore: dependencyFor(archetype),
		Keystrokes:        len(s.Events),
	})

	return s, nil
}

func syntheticSource(archetype Archetype, iter int) string {
	base := "package main\n\nfunc solve(input []int) int {\n\tsum := 0\n\tfor _, v := range input {\n\t\tsum += v\n\t}\n\treturn sum\n}\n"
	if archetype == ArchetypeWeak {
		// Weak sessions produce little code and long lines.
		return fmt.Sprintf("package main\n\nfunc solve() int { return %d } // attempt %d\n", randomInt(100), iter)
	}
	return base
}

// commandsFor scripts the terminal behaviour per archetype. Commands
// must be portable shell so they run inside the sandbox everywhere:
// strong candidates inspect methodically, weak ones poke at files that
// do not exist and collect real non-zero exits.
func commandsFor(archetype Archetype, iter int) []string {
	switch archetype {
	case ArchetypeStrong:
		return []string{
			"grep -c func solution.go",
			"wc -l solution.go",
			"cat solution.go",
		}
	case ArchetypeAverage:
		return []string{
			"cat solution.go",
			"ls",
		}
	default:
		return []string{
			fmt.Sprintf("echo attempt-%d", iter),
			"cat notes.txt",
		}
	}
}

func promptFor(archetype Archetype, iter int) string {
	switch archetype {
	case ArchetypeStrong:
		return fmt.Sprintf("My reduce step fails on empty input at iteration %d. I expect zero but get a panic. What invariant am I missing?", iter)
	case ArchetypeAverage:
		return "How do I sum a slice of ints in Go?"
	default:
		return "fix my code"
	}
}

func dependencyFor(archetype Archetype) float64 {
	switch archetype {
	case ArchetypeStrong:
		return 0.2 + randomFloat()*0.2
	case ArchetypeAverage:
		return 0.4 + randomFloat()*0.2
	default:
		return 0.75 + randomFloat()*0.2
	}
}
