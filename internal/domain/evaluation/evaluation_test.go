package evaluation_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/okian/tryout/internal/domain/analyzer"
	"github.com/okian/tryout/internal/domain/decision"
	"github.com/okian/tryout/internal/domain/evaluation"
	"github.com/okian/tryout/internal/domain/event"
	"github.com/okian/tryout/internal/domain/extract"
	"github.com/okian/tryout/internal/domain/progressive"
	. "github.com/smartystreets/goconvey/convey"
)

// memSource serves a fixed event log.
type memSource struct {
	events []event.SessionEvent
	err    error
}

func (m *memSource) Events(ctx context.Context, sessionID string) ([]event.SessionEvent, error) {
	return m.events, m.err
}

type fixedAnalyzer struct {
	name  string
	score float64
	conf  float64
}

func (f fixedAnalyzer) Name() string { return f.name }
func (f fixedAnalyzer) Analyze(ctx context.Context, data *extract.SessionData) (analyzer.Score, error) {
	return analyzer.Score{Score: f.score, Confidence: f.conf}, nil
}

func mustJSON(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}

func sampleLog() []event.SessionEvent {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return []event.SessionEvent{
		{Seq: 0, Type: event.TypeCodeSnapshot, Timestamp: base,
			Data: mustJSON(event.CodeSnapshotPayload{Files: map[string]string{
				"main.go": "package main\n\nfunc main() {\n\tprintln(1)\n\tprintln(2)\n}\n",
			}})},
		{Seq: 1, Type: event.TypeTerminalInput, Timestamp: base.Add(time.Minute),
			Data: mustJSON(event.TerminalInputPayload{Command: "go test ./..."})},
		{Seq: 2, Type: event.TypeTerminalOutput, Timestamp: base.Add(2 * time.Minute),
			Data: mustJSON(event.TerminalOutputPayload{Output: "ok"})},
		{Seq: 3, Type: event.TypeChatUserMessage, Timestamp: base.Add(3 * time.Minute),
			Data: mustJSON(event.ChatMessagePayload{Message: "why does the loop skip the last element here?"})},
		{Seq: 4, Type: event.TypeChatAssistantMsg, Timestamp: base.Add(4 * time.Minute),
			Data: mustJSON(event.ChatMessagePayload{Message: "off by one in the bound"})},
		{Seq: 5, Type: event.TypeTestResult, Timestamp: base.Add(5 * time.Minute),
			Data: mustJSON(event.TestResultPayload{Passed: 9, Failed: 1, Total: 10})},
	}
}

func TestPipelineRun(t *testing.T) {
	Convey("Given a pipeline over a realistic session log", t, func() {
		p := evaluation.New(&memSource{events: sampleLog()})

		Convey("When an evaluation runs", func() {
			result, err := p.Run(context.Background(), evaluation.Request{
				SessionID:   "s-1",
				CandidateID: "c-1",
				Role:        "backend",
			})

			Convey("Then the result carries all four dimensions", func() {
				So(err, ShouldBeNil)
				So(result.ID, ShouldNotBeEmpty)
				So(len(result.Dimensions), ShouldEqual, 4)
				So(result.Dimensions, ShouldContainKey, analyzer.DimensionCodeQuality)
				So(result.Dimensions, ShouldContainKey, analyzer.DimensionProblemSolving)
				So(result.Dimensions, ShouldContainKey, analyzer.DimensionAICollaboration)
				So(result.Dimensions, ShouldContainKey, analyzer.DimensionCommunication)
			})

			Convey("Then overall score and confidence stay on their scales", func() {
				So(result.OverallScore, ShouldBeBetweenOrEqual, 0, 100)
				So(result.OverallConfidence, ShouldBeBetweenOrEqual, 0, 1)
			})

			Convey("Then a recommendation and report are synthesized", func() {
				So(result.HiringRecommendation.Outcome, ShouldNotBeEmpty)
				So(result.ActionableReport, ShouldNotBeEmpty)
			})

			Convey("Then progressive scoring is absent without questions", func() {
				So(result.Progressive, ShouldBeNil)
			})
		})

		Convey("When two runs evaluate the same log", func() {
			first, err1 := p.Run(context.Background(), evaluation.Request{SessionID: "s-1"})
			second, err2 := p.Run(context.Background(), evaluation.Request{SessionID: "s-1"})

			Convey("Then scores are repeatable and ids are fresh", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(second.OverallScore, ShouldEqual, first.OverallScore)
				So(second.ID, ShouldNotEqual, first.ID)
			})
		})
	})
}

func TestPipelineWeights(t *testing.T) {
	Convey("Given fixed analyzers and explicit weights", t, func() {
		p := evaluation.New(&memSource{},
			evaluation.WithAnalyzers([]analyzer.Analyzer{
				fixedAnalyzer{name: analyzer.DimensionCodeQuality, score: 100, conf: 1},
				fixedAnalyzer{name: analyzer.DimensionProblemSolving, score: 0, conf: 1},
			}),
			evaluation.WithWeights(map[string]float64{
				analyzer.DimensionCodeQuality:    0.75,
				analyzer.DimensionProblemSolving: 0.25,
			}),
		)

		result, err := p.Run(context.Background(), evaluation.Request{SessionID: "s-1"})

		Convey("Then the overall score is the normalized weighted sum", func() {
			So(err, ShouldBeNil)
			So(result.OverallScore, ShouldAlmostEqual, 75, 0.0001)
		})
	})
}

func TestPipelineProgressive(t *testing.T) {
	Convey("Given a request with multiple scored questions", t, func() {
		p := evaluation.New(&memSource{events: sampleLog()})

		result, err := p.Run(context.Background(), evaluation.Request{
			SessionID: "s-1",
			Questions: []progressive.Question{
				{Index: 0, Score: 50, Difficulty: 2},
				{Index: 1, Score: 80, Difficulty: 4},
			},
		})

		Convey("Then the progressive result is attached", func() {
			So(err, ShouldBeNil)
			So(result.Progressive, ShouldNotBeNil)
			So(len(result.Progressive.PerQuestion), ShouldEqual, 2)
		})
	})
}

func TestPipelineSourceError(t *testing.T) {
	Convey("Given an event source that fails", t, func() {
		p := evaluation.New(&memSource{err: errors.New("store offline")})

		_, err := p.Run(context.Background(), evaluation.Request{SessionID: "s-1"})

		Convey("Then the run fails with the wrapped cause", func() {
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "store offline")
		})
	})
}

type overridingReporter struct{}

func (overridingReporter) Generate(ctx context.Context, draft *evaluation.Result) (string, *decision.Recommendation, error) {
	return "external report", &decision.Recommendation{
		Outcome:  decision.Hire,
		AIFactor: decision.AINeutral,
	}, nil
}

type brokenReporter struct{}

func (brokenReporter) Generate(ctx context.Context, draft *evaluation.Result) (string, *decision.Recommendation, error) {
	return "", nil, errors.New("llm timeout")
}

func TestPipelineReportGenerator(t *testing.T) {
	Convey("Given an external report generator", t, func() {
		Convey("When it succeeds", func() {
			p := evaluation.New(&memSource{events: sampleLog()},
				evaluation.WithReportGenerator(overridingReporter{}))
			result, err := p.Run(context.Background(), evaluation.Request{SessionID: "s-1"})

			Convey("Then its report and recommendation take precedence", func() {
				So(err, ShouldBeNil)
				So(result.ActionableReport, ShouldEqual, "external report")
				So(result.HiringRecommendation.Outcome, ShouldEqual, decision.Hire)
			})
		})

		Convey("When it fails", func() {
			p := evaluation.New(&memSource{events: sampleLog()},
				evaluation.WithReportGenerator(brokenReporter{}))
			result, err := p.Run(context.Background(), evaluation.Request{SessionID: "s-1"})

			Convey("Then the run degrades to the built-in summary", func() {
				So(err, ShouldBeNil)
				So(result.ActionableReport, ShouldNotBeEmpty)
				So(result.ActionableReport, ShouldNotEqual, "external report")
			})
		})
	})
}
