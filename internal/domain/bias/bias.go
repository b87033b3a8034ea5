// Package bias computes the overall confidence of an evaluation and
// flags statistical patterns that warrant human review before the score
// is trusted.
package bias

import (
	"fmt"
	"strings"

	"github.com/okian/tryout/internal/domain/analyzer"
	"github.com/okian/tryout/internal/domain/extract"
)

// Flag names appended to an evaluation when their check triggers.
const (
	FlagCodeVolumeBias     = "code_volume_bias"
	FlagLowConfidence      = "low_confidence_evaluation"
	FlagAIInconsistency    = "ai_usage_inconsistency"
	FlagPerfectScoreReview = "perfect_score_review_needed"
	FlagAIUsagePenalty     = "ai_usage_penalty"
)

// recommendations maps each flag to one human-readable action.
var recommendations = map[string]string{
	FlagCodeVolumeBias:     "Review code quality independent of volume",
	FlagLowConfidence:      "Gather more session data before acting on this evaluation",
	FlagAIInconsistency:    "Verify AI collaboration evidence; score conflicts with recorded usage",
	FlagPerfectScoreReview: "Manually review near-perfect results for anomalies",
	FlagAIUsagePenalty:     "Reconcile the AI dependency metric with the AI collaboration score",
}

// Default policy thresholds. All of them are configurable; the defaults
// mirror long-standing review policy rather than any derivation.
const (
	defaultMinCodeLines     = 20
	defaultVolumeBiasScore  = 80.0
	defaultLowConfidence    = 0.5
	defaultPerfectScore     = 98.0
	defaultHighDependency   = 0.8
	defaultLowAICollabScore = 50.0
	dataQualityComplete     = 0.8
	dataQualityPartial      = 0.4
	sampleSizeSaturation    = 100
)

// Engine evaluates confidence and bias over extracted data and scores.
type Engine struct {
	minCodeLines     int
	volumeBiasScore  float64
	lowConfidence    float64
	perfectScore     float64
	highDependency   float64
	lowAICollabScore float64
}

// NewEngine creates an Engine with default thresholds.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		minCodeLines:     defaultMinCodeLines,
		volumeBiasScore:  defaultVolumeBiasScore,
		lowConfidence:    defaultLowConfidence,
		perfectScore:     defaultPerfectScore,
		highDependency:   defaultHighDependency,
		lowAICollabScore: defaultLowAICollabScore,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Report is the outcome of the confidence and bias stage.
type Report struct {
	OverallConfidence float64
	Flags             []string
	Recommendations   []string
	FairnessReport    string
}

// Evaluate computes overall confidence and runs every bias check.
// Checks are independent; each appends its named flag when triggered.
func (e *Engine) Evaluate(data *extract.SessionData, scores map[string]analyzer.Score, overallScore float64) Report {
	consistency := meanConfidence(scores)

	dataQuality := dataQualityPartial
	if len(data.CodeSnapshots) > 0 && len(data.TestResults) > 0 {
		dataQuality = dataQualityComplete
	}

	sample := float64(data.EventCount)
	if sample > sampleSizeSaturation {
		sample = sampleSizeSaturation
	}
	sampleSize := sample / sampleSizeSaturation

	report := Report{
		OverallConfidence: (dataQuality + sampleSize + consistency) / 3,
	}

	codeQuality := scores[analyzer.DimensionCodeQuality]
	aiCollab := scores[analyzer.DimensionAICollaboration]

	if lines := lastSnapshotLines(data); len(data.CodeSnapshots) > 0 &&
		lines < e.minCodeLines && codeQuality.Score > e.volumeBiasScore {
		report.add(FlagCodeVolumeBias)
	}
	if consistency < e.lowConfidence {
		report.add(FlagLowConfidence)
	}
	if len(data.AIInteractions) == 0 && aiCollab.Score > 0 {
		report.add(FlagAIInconsistency)
	}
	if overallScore >= e.perfectScore {
		report.add(FlagPerfectScoreReview)
	}
	if data.Metrics.Present && data.Metrics.AIDependencyScore > e.highDependency &&
		aiCollab.Score < e.lowAICollabScore {
		report.add(FlagAIUsagePenalty)
	}

	report.FairnessReport = e.fairnessReport(&report)
	return report
}

func (r *Report) add(flag string) {
	r.Flags = append(r.Flags, flag)
	if rec, ok := recommendations[flag]; ok {
		r.Recommendations = append(r.Recommendations, rec)
	}
}

func (e *Engine) fairnessReport(r *Report) string {
	if len(r.Flags) == 0 {
		return "No bias patterns detected; scores may be taken at face value."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d bias pattern(s) detected: %s.", len(r.Flags), strings.Join(r.Flags, ", "))
	for _, rec := range r.Recommendations {
		b.WriteString(" " + rec + ".")
	}
	return b.String()
}

// meanConfidence averages the per-dimension confidences.
func meanConfidence(scores map[string]analyzer.Score) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range scores {
		sum += s.Confidence
	}
	return sum / float64(len(scores))
}

// lastSnapshotLines counts lines across all files of the final snapshot.
func lastSnapshotLines(data *extract.SessionData) int {
	if len(data.CodeSnapshots) == 0 {
		return 0
	}
	last := data.CodeSnapshots[len(data.CodeSnapshots)-1]
	lines := 0
	for _, content := range last.Files {
		lines += strings.Count(content, "\n") + 1
	}
	return lines
}
