package decision_test

import (
	"strings"
	"testing"

	"github.com/okian/tryout/internal/domain/analyzer"
	"github.com/okian/tryout/internal/domain/decision"
	. "github.com/smartystreets/goconvey/convey"
)

func scores(ai float64) map[string]analyzer.Score {
	return map[string]analyzer.Score{
		analyzer.DimensionCodeQuality:     {Score: 88},
		analyzer.DimensionProblemSolving:  {Score: 86},
		analyzer.DimensionAICollaboration: {Score: ai},
		analyzer.DimensionCommunication:   {Score: 85},
	}
}

func TestDecisionLadder(t *testing.T) {
	Convey("Given the decision ladder", t, func() {
		Convey("When score and confidence clear the strong-hire bar", func() {
			rec := decision.Synthesize(90, 0.8, scores(85), nil)

			So(rec.Outcome, ShouldEqual, decision.StrongHire)
			So(rec.AIFactor, ShouldEqual, decision.AIPositive)
		})

		Convey("When a strong score lacks confidence", func() {
			rec := decision.Synthesize(90, 0.6, scores(85), nil)

			Convey("Then it degrades to plain hire", func() {
				So(rec.Outcome, ShouldEqual, decision.Hire)
			})
		})

		Convey("When the score sits between 50 and 70", func() {
			rec := decision.Synthesize(60, 0.9, scores(60), nil)

			So(rec.Outcome, ShouldEqual, decision.NoHire)
			So(rec.AIFactor, ShouldEqual, decision.AINeutral)
		})

		Convey("When the score is below 50", func() {
			rec := decision.Synthesize(35, 0.9, scores(20), nil)

			So(rec.Outcome, ShouldEqual, decision.StrongNoHire)
			So(rec.AIFactor, ShouldEqual, decision.AINegative)
		})

		Convey("When a hire score carries insufficient confidence", func() {
			rec := decision.Synthesize(75, 0.3, scores(60), nil)

			Convey("Then the ladder falls through to no-hire", func() {
				So(rec.Outcome, ShouldEqual, decision.NoHire)
			})
		})
	})
}

func TestWeakDimensionReasoning(t *testing.T) {
	Convey("Given one weak dimension among strong ones", t, func() {
		s := scores(85)
		s[analyzer.DimensionCommunication] = analyzer.Score{Score: 40}

		rec := decision.Synthesize(80, 0.8, s, nil)

		Convey("Then the weakness is called out in the reasoning", func() {
			found := false
			for _, r := range rec.Reasoning {
				if strings.Contains(r, "communication") {
					found = true
				}
			}
			So(found, ShouldBeTrue)
		})
	})
}

func TestExternalPrecedence(t *testing.T) {
	Convey("Given an externally produced recommendation", t, func() {
		external := &decision.Recommendation{
			Outcome:   decision.NoHire,
			Reasoning: []string{"external reviewer overrides"},
			AIFactor:  decision.AINeutral,
		}

		Convey("When the ladder would say strong-hire", func() {
			rec := decision.Synthesize(95, 0.9, scores(90), external)

			Convey("Then the external recommendation wins untouched", func() {
				So(rec.Outcome, ShouldEqual, decision.NoHire)
				So(rec.Reasoning, ShouldResemble, []string{"external reviewer overrides"})
			})
		})
	})
}
