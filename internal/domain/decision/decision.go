// Package decision turns an evaluation's scores, confidence and flags
// into a hiring recommendation with reasoning.
package decision

import (
	"fmt"

	"github.com/okian/tryout/internal/domain/analyzer"
)

// Outcome is the final hiring call.
type Outcome string

// Possible outcomes, strongest to weakest.
const (
	StrongHire   Outcome = "strong-hire"
	Hire         Outcome = "hire"
	NoHire       Outcome = "no-hire"
	StrongNoHire Outcome = "strong-no-hire"
)

// AIFactor describes how AI collaboration influenced the decision.
type AIFactor string

// AI influence values.
const (
	AIPositive AIFactor = "positive"
	AINegative AIFactor = "negative"
	AINeutral  AIFactor = "neutral"
)

// Recommendation is the synthesized hiring decision.
type Recommendation struct {
	Outcome   Outcome  `json:"outcome"`
	Reasoning []string `json:"reasoning"`
	AIFactor  AIFactor `json:"ai_factor"`
}

// Decision ladder thresholds, evaluated top to bottom, first match wins.
const (
	strongHireScore      = 85.0
	strongHireConfidence = 0.7
	hireScore            = 70.0
	hireConfidence       = 0.5
	noHireScore          = 50.0

	weakDimensionScore = 60.0

	aiPositiveScore = 80.0
	aiNegativeScore = 40.0
)

// Synthesize applies the decision ladder. When external is non-nil (a
// richer recommendation produced by the actionable-report stage) it
// takes precedence over the fallback ladder.
func Synthesize(overallScore, confidence float64, scores map[string]analyzer.Score, external *Recommendation) Recommendation {
	if external != nil {
		return *external
	}

	var rec Recommendation
	switch {
	case overallScore >= strongHireScore && confidence >= strongHireConfidence:
		rec.Outcome = StrongHire
		rec.Reasoning = append(rec.Reasoning,
			fmt.Sprintf("overall score %.1f >= %.0f with confidence %.2f >= %.1f", overallScore, strongHireScore, confidence, strongHireConfidence))
	case overallScore >= hireScore && confidence >= hireConfidence:
		rec.Outcome = Hire
		rec.Reasoning = append(rec.Reasoning,
			fmt.Sprintf("overall score %.1f >= %.0f with confidence %.2f >= %.1f", overallScore, hireScore, confidence, hireConfidence))
	case overallScore >= noHireScore:
		rec.Outcome = NoHire
		rec.Reasoning = append(rec.Reasoning,
			fmt.Sprintf("overall score %.1f below hiring bar", overallScore))
	default:
		rec.Outcome = StrongNoHire
		rec.Reasoning = append(rec.Reasoning,
			fmt.Sprintf("overall score %.1f far below hiring bar", overallScore))
	}

	for _, dim := range []string{
		analyzer.DimensionCodeQuality,
		analyzer.DimensionProblemSolving,
		analyzer.DimensionAICollaboration,
		analyzer.DimensionCommunication,
	} {
		if s, ok := scores[dim]; ok && s.Score < weakDimensionScore {
			rec.Reasoning = append(rec.Reasoning,
				fmt.Sprintf("%s scored %.1f, below %.0f", dim, s.Score, weakDimensionScore))
		}
	}

	ai := scores[analyzer.DimensionAICollaboration].Score
	switch {
	case ai >= aiPositiveScore:
		rec.AIFactor = AIPositive
	case ai < aiNegativeScore:
		rec.AIFactor = AINegative
	default:
		rec.AIFactor = AINeutral
	}

	return rec
}
