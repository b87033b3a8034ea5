package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/tryout/internal/domain/extract"
)

// CodeQuality scores the candidate's code from the snapshot sequence and
// the test outcomes attached to it.
type CodeQuality struct{}

func (a *CodeQuality) Name() string { return DimensionCodeQuality }

// Scoring weights and thresholds for code quality.
const (
	cqTestWeight      = 0.6
	cqStructureWeight = 0.4

	cqNoTestsScore  = 20.0 // snapshots exist but nothing was ever tested
	cqLongLineLimit = 120
	cqHugeFileLines = 300
)

func (a *CodeQuality) Analyze(ctx context.Context, data *extract.SessionData) (Score, error) {
	if len(data.CodeSnapshots) == 0 {
		return Score{
			Score:      0,
			Confidence: 0.1,
			Evidence:   []Evidence{{Description: "no code snapshots recorded"}},
		}, nil
	}

	var evidence []Evidence

	// Test component: reward passing tests; the absence of any test run,
	// or a final run with everything failing, is a strong negative signal.
	testComponent := cqNoTestsScore
	if len(data.TestResults) > 0 {
		last := data.TestResults[len(data.TestResults)-1]
		if last.Total > 0 {
			passRate := float64(last.Passed) / float64(last.Total)
			testComponent = passRate * 100
			ts := last.Timestamp
			evidence = append(evidence, Evidence{
				Description: fmt.Sprintf("final test run: %d/%d passing", last.Passed, last.Total),
				Timestamp:   &ts,
			})
			if last.Passed == 0 {
				evidence = append(evidence, Evidence{Description: "all tests failing at session end"})
			}
		}
	} else {
		evidence = append(evidence, Evidence{Description: "code was never exercised by tests"})
	}

	structure := a.structureScore(data.CodeSnapshots[len(data.CodeSnapshots)-1], &evidence)

	score := clamp(0, 100, cqTestWeight*testComponent+cqStructureWeight*structure)

	confidence := 0.5
	if len(data.TestResults) > 0 {
		confidence = 0.9
	}

	return Score{
		Score:      score,
		Confidence: confidence,
		Evidence:   evidence,
		Breakdown: map[string]float64{
			"tests":     testComponent,
			"structure": structure,
		},
	}, nil
}

// structureScore derives cleanliness signals from the final snapshot:
// reasonable line lengths, no single giant file, non-trivial size.
func (a *CodeQuality) structureScore(snap extract.CodeSnapshot, evidence *[]Evidence) float64 {
	if len(snap.Files) == 0 {
		return 0
	}

	score := 100.0
	longLines := 0
	totalLines := 0
	for path, content := range snap.Files {
		lines := strings.Split(content, "\n")
		totalLines += len(lines)
		for _, l := range lines {
			if len(l) > cqLongLineLimit {
				longLines++
			}
		}
		if len(lines) > cqHugeFileLines {
			score -= 15
			*evidence = append(*evidence, Evidence{
				Description: fmt.Sprintf("oversized file %s (%d lines)", path, len(lines)),
			})
		}
	}

	if totalLines > 0 {
		longRatio := float64(longLines) / float64(totalLines)
		score -= longRatio * 50
	}
	if totalLines < 5 {
		score -= 30
		*evidence = append(*evidence, Evidence{Description: "final snapshot contains almost no code"})
	}

	return clamp(0, 100, score)
}
