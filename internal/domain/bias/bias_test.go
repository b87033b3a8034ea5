package bias_test

import (
	"testing"

	"github.com/okian/tryout/internal/domain/analyzer"
	"github.com/okian/tryout/internal/domain/bias"
	"github.com/okian/tryout/internal/domain/extract"
	. "github.com/smartystreets/goconvey/convey"
)

func richScores(conf float64) map[string]analyzer.Score {
	return map[string]analyzer.Score{
		analyzer.DimensionCodeQuality:     {Score: 75, Confidence: conf},
		analyzer.DimensionProblemSolving:  {Score: 70, Confidence: conf},
		analyzer.DimensionAICollaboration: {Score: 65, Confidence: conf},
		analyzer.DimensionCommunication:   {Score: 60, Confidence: conf},
	}
}

func fullData(events int) *extract.SessionData {
	return &extract.SessionData{
		EventCount: events,
		CodeSnapshots: []extract.CodeSnapshot{{
			Files: map[string]string{"main.go": "package main\nfunc main() {}\n" +
				"// 1\n// 2\n// 3\n// 4\n// 5\n// 6\n// 7\n// 8\n// 9\n// 10\n" +
				"// 11\n// 12\n// 13\n// 14\n// 15\n// 16\n// 17\n// 18\n// 19\n// 20\n"},
		}},
		TestResults:    []extract.TestResult{{Passed: 5, Total: 5}},
		AIInteractions: []extract.AIInteraction{{CandidateMessage: "help"}},
	}
}

func TestOverallConfidence(t *testing.T) {
	Convey("Given a session with complete data and a full sample", t, func() {
		e := bias.NewEngine()

		Convey("When confidence is computed over 100+ events", func() {
			report := e.Evaluate(fullData(150), richScores(0.9), 70)

			Convey("Then it averages data quality, sample size and consistency", func() {
				// (0.8 + 1.0 + 0.9) / 3
				So(report.OverallConfidence, ShouldAlmostEqual, 0.9, 0.0001)
			})
		})

		Convey("When the session has few events and partial data", func() {
			data := &extract.SessionData{EventCount: 10}
			report := e.Evaluate(data, richScores(0.6), 70)

			Convey("Then confidence drops accordingly", func() {
				// (0.4 + 0.1 + 0.6) / 3
				So(report.OverallConfidence, ShouldAlmostEqual, 0.3666, 0.001)
			})
		})
	})
}

func TestBiasFlags(t *testing.T) {
	Convey("Given the default bias engine", t, func() {
		e := bias.NewEngine()

		Convey("When a tiny snapshot earns a very high code quality score", func() {
			data := fullData(150)
			data.CodeSnapshots = []extract.CodeSnapshot{{
				Files: map[string]string{"main.go": "package main\nfunc main() {}\n"},
			}}
			scores := richScores(0.9)
			scores[analyzer.DimensionCodeQuality] = analyzer.Score{Score: 92, Confidence: 0.9}

			report := e.Evaluate(data, scores, 75)

			Convey("Then code volume bias is flagged with its recommendation", func() {
				So(report.Flags, ShouldContain, bias.FlagCodeVolumeBias)
				So(report.Recommendations, ShouldContain, "Review code quality independent of volume")
			})
		})

		Convey("When dimension confidences are uniformly low", func() {
			report := e.Evaluate(fullData(150), richScores(0.2), 70)

			So(report.Flags, ShouldContain, bias.FlagLowConfidence)
		})

		Convey("When AI collaboration scored without any recorded interaction", func() {
			data := fullData(150)
			data.AIInteractions = nil
			report := e.Evaluate(data, richScores(0.9), 70)

			So(report.Flags, ShouldContain, bias.FlagAIInconsistency)
		})

		Convey("When no interactions exist and the AI score is zero", func() {
			data := fullData(150)
			data.AIInteractions = nil
			scores := richScores(0.9)
			scores[analyzer.DimensionAICollaboration] = analyzer.Score{Score: 0, Confidence: 0.3}
			report := e.Evaluate(data, scores, 70)

			Convey("Then no inconsistency is reported", func() {
				So(report.Flags, ShouldNotContain, bias.FlagAIInconsistency)
			})
		})

		Convey("When the overall score is near perfect", func() {
			report := e.Evaluate(fullData(150), richScores(0.9), 99)

			So(report.Flags, ShouldContain, bias.FlagPerfectScoreReview)
		})

		Convey("When high dependency coexists with a low AI score", func() {
			data := fullData(150)
			data.Metrics = extract.Metrics{Present: true, AIDependencyScore: 0.95}
			scores := richScores(0.9)
			scores[analyzer.DimensionAICollaboration] = analyzer.Score{Score: 30, Confidence: 0.8}

			report := e.Evaluate(data, scores, 60)

			So(report.Flags, ShouldContain, bias.FlagAIUsagePenalty)
		})

		Convey("When nothing is suspicious", func() {
			report := e.Evaluate(fullData(150), richScores(0.9), 72)

			Convey("Then no flags are raised and the fairness report says so", func() {
				So(len(report.Flags), ShouldEqual, 0)
				So(report.FairnessReport, ShouldContainSubstring, "No bias patterns detected")
			})
		})
	})
}
