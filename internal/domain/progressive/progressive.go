// Package progressive tracks a latent skill estimate across the
// questions of a multi-question session and reports the growth trend.
package progressive

import (
	"fmt"
	"time"
)

// MinQuestions is the number of scored questions below which progressive
// scoring is skipped entirely. Its absence is not an error.
const MinQuestions = 2

// Question is one scored question of a session.
type Question struct {
	Index        int           `json:"index"`
	Score        float64       `json:"score"`      // 0-100
	Difficulty   int           `json:"difficulty"` // 1 (easy) .. 5 (hard)
	TimeSpent    time.Duration `json:"time_spent"`
	ExpectedTime time.Duration `json:"expected_time"`
}

// Result is the outcome of progressive scoring.
type Result struct {
	FinalScore      float64  `json:"final_score"`
	ExpertiseLevel  string   `json:"expertise_level"`
	ExpertiseGrowth float64  `json:"expertise_growth"`
	GrowthTrend     string   `json:"growth_trend"`
	PerQuestion     []Update `json:"per_question"`
}

// Update records the estimate after one question.
type Update struct {
	Index       int     `json:"index"`
	Performance float64 `json:"performance"`
	Estimate    float64 `json:"estimate"`
}

// Growth trends.
const (
	TrendImproving = "improving"
	TrendStable    = "stable"
	TrendDeclining = "declining"
)

// Estimation parameters.
const (
	initialEstimate = 50.0
	learningRate    = 0.5

	// Difficulty scales performance around 1.0: an easy question is
	// worth slightly less, a hard one slightly more.
	difficultyBase = 0.8
	difficultyStep = 0.1

	timeFactorFloor = 0.8
	timeFactorCeil  = 1.2

	trendDelta = 5.0
)

// Calculate runs the skill estimate over the questions in order.
// Returns nil when fewer than MinQuestions questions were scored.
func Calculate(questions []Question) *Result {
	if len(questions) < MinQuestions {
		return nil
	}

	estimate := initialEstimate
	var firstEstimate float64
	updates := make([]Update, 0, len(questions))

	for i, q := range questions {
		perf := performance(q)
		estimate += learningRate * (perf - estimate)
		if i == 0 {
			firstEstimate = estimate
		}
		updates = append(updates, Update{Index: q.Index, Performance: perf, Estimate: estimate})
	}

	growth := estimate - firstEstimate
	return &Result{
		FinalScore:      estimate,
		ExpertiseLevel:  expertiseLevel(estimate),
		ExpertiseGrowth: growth,
		GrowthTrend:     trend(growth),
		PerQuestion:     updates,
	}
}

// performance adjusts a raw question score by difficulty and pace.
func performance(q Question) float64 {
	difficulty := q.Difficulty
	if difficulty < 1 {
		difficulty = 1
	}
	if difficulty > 5 {
		difficulty = 5
	}
	weight := difficultyBase + difficultyStep*float64(difficulty)

	timeFactor := 1.0
	if q.TimeSpent > 0 && q.ExpectedTime > 0 {
		timeFactor = float64(q.ExpectedTime) / float64(q.TimeSpent)
		if timeFactor < timeFactorFloor {
			timeFactor = timeFactorFloor
		}
		if timeFactor > timeFactorCeil {
			timeFactor = timeFactorCeil
		}
	}

	perf := q.Score * weight * timeFactor
	if perf > 100 {
		perf = 100
	}
	if perf < 0 {
		perf = 0
	}
	return perf
}

func expertiseLevel(score float64) string {
	switch {
	case score < 40:
		return "beginner"
	case score < 55:
		return "junior"
	case score < 70:
		return "intermediate"
	case score < 85:
		return "advanced"
	default:
		return "expert"
	}
}

func trend(growth float64) string {
	switch {
	case growth > trendDelta:
		return TrendImproving
	case growth < -trendDelta:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// Describe renders a short human-readable summary of the result.
func (r *Result) Describe() string {
	return fmt.Sprintf("final skill estimate %.1f (%s), growth %+.1f (%s) over %d questions",
		r.FinalScore, r.ExpertiseLevel, r.ExpertiseGrowth, r.GrowthTrend, len(r.PerQuestion))
}
