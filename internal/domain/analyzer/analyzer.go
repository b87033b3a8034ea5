// Package analyzer scores a replayed session along the four assessment
// dimensions: code quality, problem solving, AI collaboration and
// communication. Analyzers are independent and side-effect free so the
// pipeline can run them concurrently.
package analyzer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/tryout/internal/domain/extract"
	"github.com/okian/tryout/pkg/logger"
	"github.com/okian/tryout/pkg/metrics"
)

// Dimension names. These are stable identifiers used in results,
// weight configuration and bias reporting.
const (
	DimensionCodeQuality     = "code_quality"
	DimensionProblemSolving  = "problem_solving"
	DimensionAICollaboration = "ai_collaboration"
	DimensionCommunication   = "communication"
)

// Evidence is one supporting observation behind a score.
type Evidence struct {
	Description string     `json:"description"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
}

// Score is the outcome of one dimension analysis.
type Score struct {
	Score      float64            `json:"score"`      // 0-100
	Confidence float64            `json:"confidence"` // 0.0-1.0
	Evidence   []Evidence         `json:"evidence"`
	Breakdown  map[string]float64 `json:"breakdown,omitempty"`
}

// Analyzer scores one dimension from the extracted session data.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, data *extract.SessionData) (Score, error)
}

// Default returns the standard set of four analyzers.
func Default() []Analyzer {
	return []Analyzer{
		&CodeQuality{},
		&ProblemSolving{},
		&AICollaboration{},
		&Communication{},
	}
}

// RunAll executes all analyzers concurrently and joins their results.
// A failing or panicking analyzer yields a zero-score, zero-confidence
// placeholder for its dimension; it never blocks the others.
func RunAll(ctx context.Context, data *extract.SessionData, analyzers []Analyzer) map[string]Score {
	results := make(map[string]Score, len(analyzers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, a := range analyzers {
		wg.Add(1)
		go func(a Analyzer) {
			defer wg.Done()
			score := runIsolated(ctx, a, data)
			mu.Lock()
			results[a.Name()] = score
			mu.Unlock()
		}(a)
	}
	wg.Wait()
	return results
}

// runIsolated converts analyzer errors and panics into placeholders.
func runIsolated(ctx context.Context, a Analyzer, data *extract.SessionData) (score Score) {
	defer func() {
		if r := recover(); r != nil {
			logger.Get().Error(ctx, "analyzer panicked",
				logger.String("analyzer", a.Name()),
				logger.Any("panic", r),
			)
			metrics.RecordAnalyzerFailure(a.Name())
			score = placeholder()
		}
	}()

	score, err := a.Analyze(ctx, data)
	if err != nil {
		logger.Get().Error(ctx, "analyzer failed",
			logger.String("analyzer", a.Name()),
			logger.Error(fmt.Errorf("analyze: %w", err)),
		)
		metrics.RecordAnalyzerFailure(a.Name())
		return placeholder()
	}
	return score
}

func placeholder() Score {
	return Score{Score: 0, Confidence: 0, Evidence: []Evidence{}}
}

// clamp bounds v to [lo, hi].
func clamp(lo, hi, v float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
