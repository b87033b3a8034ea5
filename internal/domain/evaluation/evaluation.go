// Package evaluation orchestrates the comprehensive scoring pipeline:
// replay the event log, run the dimension analyzers concurrently, apply
// the confidence and bias engine, fold in progressive scoring, and
// synthesize a hiring recommendation.
package evaluation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/okian/tryout/internal/domain/analyzer"
	"github.com/okian/tryout/internal/domain/bias"
	"github.com/okian/tryout/internal/domain/decision"
	"github.com/okian/tryout/internal/domain/event"
	"github.com/okian/tryout/internal/domain/extract"
	"github.com/okian/tryout/internal/domain/progressive"
	"github.com/okian/tryout/pkg/logger"
	"github.com/okian/tryout/pkg/metrics"
)

// Request triggers one evaluation run.
type Request struct {
	SessionID   string                 `json:"session_id"`
	CandidateID string                 `json:"candidate_id"`
	Role        string                 `json:"role"`
	Seniority   string                 `json:"seniority"`
	Backend     string                 `json:"backend,omitempty"`
	Questions   []progressive.Question `json:"questions,omitempty"`
}

// Result is one comprehensive evaluation. Re-running an evaluation
// produces a new Result; results are superseded by creation time (the
// ULID id orders them), never merged.
type Result struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	CandidateID string    `json:"candidate_id"`
	Role        string    `json:"role"`
	Seniority   string    `json:"seniority"`
	Backend     string    `json:"backend,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	Dimensions map[string]analyzer.Score `json:"dimensions"`

	OverallScore      float64 `json:"overall_score"`
	OverallConfidence float64 `json:"overall_confidence"`

	BiasFlags      []string `json:"bias_flags"`
	FairnessReport string   `json:"fairness_report"`

	Progressive *progressive.Result `json:"progressive,omitempty"`

	ActionableReport     string                  `json:"actionable_report"`
	HiringRecommendation decision.Recommendation `json:"hiring_recommendation"`
}

// EventSource supplies a session's full ordered event log.
type EventSource interface {
	Events(ctx context.Context, sessionID string) ([]event.SessionEvent, error)
}

// ReportGenerator produces the actionable report. When it returns a
// non-nil recommendation, that recommendation takes precedence over the
// fallback decision ladder. Implementations may call out to external
// services; failures degrade to the built-in report.
type ReportGenerator interface {
	Generate(ctx context.Context, draft *Result) (string, *decision.Recommendation, error)
}

// Default dimension weights for the overall score.
var defaultWeights = map[string]float64{
	analyzer.DimensionCodeQuality:     0.30,
	analyzer.DimensionProblemSolving:  0.30,
	analyzer.DimensionAICollaboration: 0.25,
	analyzer.DimensionCommunication:   0.15,
}

// Pipeline runs evaluations. It is read-only over the event log, safe to
// cancel mid-flight, and repeatable.
type Pipeline struct {
	source    EventSource
	analyzers []analyzer.Analyzer
	biasEng   *bias.Engine
	weights   map[string]float64
	reporter  ReportGenerator
	logger    logger.Logger
}

// New constructs a Pipeline reading from source.
func New(source EventSource, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:    source,
		analyzers: analyzer.Default(),
		biasEng:   bias.NewEngine(),
		weights:   defaultWeights,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("evaluation")
	}
	return p
}

// Run executes the full pipeline for one session.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	defer func() {
		metrics.RecordEvaluationDuration(float64(time.Since(start).Milliseconds()))
	}()

	events, err := p.source.Events(ctx, req.SessionID)
	if err != nil {
		metrics.RecordEvaluationError()
		return nil, fmt.Errorf("load session events: %w", err)
	}

	data := extract.Replay(req.SessionID, events)
	for _, anomaly := range data.Anomalies {
		p.logger.Warn(ctx, "replay anomaly",
			logger.String("sessionID", req.SessionID),
			logger.String("anomaly", anomaly),
		)
	}

	// Fan-out/fan-in: four analyzers, no shared mutable state, a failed
	// analyzer yields a placeholder and never blocks the join.
	scores := analyzer.RunAll(ctx, data, p.analyzers)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("evaluation cancelled: %w", err)
	}

	overall := p.weightedOverall(scores)
	biasReport := p.biasEng.Evaluate(data, scores, overall)
	prog := progressive.Calculate(req.Questions)

	result := &Result{
		ID:                ulid.Make().String(),
		SessionID:         req.SessionID,
		CandidateID:       req.CandidateID,
		Role:              req.Role,
		Seniority:         req.Seniority,
		Backend:           req.Backend,
		CreatedAt:         time.Now().UTC(),
		Dimensions:        scores,
		OverallScore:      overall,
		OverallConfidence: biasReport.OverallConfidence,
		BiasFlags:         biasReport.Flags,
		FairnessReport:    biasReport.FairnessReport,
		Progressive:       prog,
	}

	report, external := p.actionableReport(ctx, result)
	result.ActionableReport = report
	result.HiringRecommendation = decision.Synthesize(overall, biasReport.OverallConfidence, scores, external)

	metrics.RecordEvaluationRun()
	p.logger.Info(ctx, "evaluation complete",
		logger.String("sessionID", req.SessionID),
		logger.String("evaluationID", result.ID),
		logger.Float64("overallScore", overall),
		logger.String("outcome", string(result.HiringRecommendation.Outcome)),
	)
	return result, nil
}

// weightedOverall combines dimension scores using the configured
// weights. Dimensions without a weight contribute nothing.
func (p *Pipeline) weightedOverall(scores map[string]analyzer.Score) float64 {
	total := 0.0
	weightSum := 0.0
	for dim, w := range p.weights {
		s, ok := scores[dim]
		if !ok {
			continue
		}
		total += s.Score * w
		weightSum += w
	}
	if weightSum == 0 {
		return 0
	}
	return total / weightSum
}

// actionableReport builds the report text. Errors from an external
// generator degrade to the built-in summary rather than failing the run.
func (p *Pipeline) actionableReport(ctx context.Context, r *Result) (string, *decision.Recommendation) {
	if p.reporter != nil {
		report, rec, err := p.reporter.Generate(ctx, r)
		if err == nil {
			return report, rec
		}
		p.logger.Warn(ctx, "external report generation failed; using built-in summary",
			logger.Error(err),
		)
	}
	return p.builtinReport(r), nil
}

func (p *Pipeline) builtinReport(r *Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Candidate %s scored %.1f overall (confidence %.2f).\n", r.CandidateID, r.OverallScore, r.OverallConfidence)
	for _, dim := range []string{
		analyzer.DimensionCodeQuality,
		analyzer.DimensionProblemSolving,
		analyzer.DimensionAICollaboration,
		analyzer.DimensionCommunication,
	} {
		s, ok := r.Dimensions[dim]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- %s: %.1f (confidence %.2f)\n", dim, s.Score, s.Confidence)
		for _, ev := range s.Evidence {
			fmt.Fprintf(&b, "    %s\n", ev.Description)
		}
	}
	if r.Progressive != nil {
		fmt.Fprintf(&b, "Progressive: %s\n", r.Progressive.Describe())
	}
	if len(r.BiasFlags) > 0 {
		fmt.Fprintf(&b, "Review flags: %s\n", strings.Join(r.BiasFlags, ", "))
	}
	return b.String()
}
