package analyzer

import (
	"context"
	"fmt"

	"github.com/okian/tryout/internal/domain/extract"
)

// ProblemSolving scores the candidate's approach from code iteration,
// test progression and the debugging signature of their terminal use.
type ProblemSolving struct{}

func (a *ProblemSolving) Name() string { return DimensionProblemSolving }

// Component weights for problem solving.
const (
	psTerminalWeight    = 0.4
	psProgressionWeight = 0.4
	psIterationWeight   = 0.2
)

func (a *ProblemSolving) Analyze(ctx context.Context, data *extract.SessionData) (Score, error) {
	commands := make([]string, len(data.TerminalCommands))
	for i, c := range data.TerminalCommands {
		commands[i] = c.Command
	}
	terminal := AnalyzeCommands(commands)

	progression := a.testProgression(data.TestResults)
	iteration := a.iterationScore(len(data.CodeSnapshots))

	var evidence []Evidence
	evidence = append(evidence, Evidence{
		Description: fmt.Sprintf("terminal debugging score %.0f across %d commands", terminal.Overall, len(commands)),
	})
	for cat, n := range terminal.Categories {
		if cat == CategorySystematicTesting && n > 0 {
			evidence = append(evidence, Evidence{
				Description: fmt.Sprintf("ran targeted tests %d times", n),
			})
		}
	}
	if progression > 50 {
		evidence = append(evidence, Evidence{Description: "test outcomes improved over the session"})
	}

	score := clamp(0, 100,
		psTerminalWeight*terminal.Overall+
			psProgressionWeight*progression+
			psIterationWeight*iteration)

	confidence := 0.3
	if len(data.TestResults) > 0 {
		confidence += 0.3
	}
	if len(data.TerminalCommands) > 0 {
		confidence += 0.3
	}

	return Score{
		Score:      score,
		Confidence: confidence,
		Evidence:   evidence,
		Breakdown: map[string]float64{
			"terminal":         terminal.Overall,
			"test_progression": progression,
			"iteration":        iteration,
			"systematic":       terminal.Systematic,
			"tool_proficiency": terminal.ToolProficiency,
			"efficiency":       terminal.Efficiency,
			"learning":         terminal.Learning,
		},
	}, nil
}

// testProgression rewards moving from failing to passing runs. With no
// runs at all it stays neutral; a single run scores by its pass rate.
func (a *ProblemSolving) testProgression(results []extract.TestResult) float64 {
	if len(results) == 0 {
		return 50
	}
	rate := func(r extract.TestResult) float64 {
		if r.Total == 0 {
			return 0
		}
		return float64(r.Passed) / float64(r.Total)
	}
	last := rate(results[len(results)-1])
	if len(results) == 1 {
		return last * 100
	}
	first := rate(results[0])
	improvement := last - first
	return clamp(0, 100, last*70+improvement*30+15)
}

// iterationScore rewards incremental snapshots over one monolithic dump.
func (a *ProblemSolving) iterationScore(snapshots int) float64 {
	switch {
	case snapshots == 0:
		return 30
	case snapshots == 1:
		return 50
	case snapshots <= 10:
		return 50 + float64(snapshots-1)*5
	default:
		return 95
	}
}
