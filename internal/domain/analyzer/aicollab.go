package analyzer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/tryout/internal/domain/extract"
)

// AICollaboration scores how effectively the candidate worked with the
// AI assistant: well-specified diverse prompts and a sensible interaction
// cadence score high; over-reliance and unused availability score low.
type AICollaboration struct{}

func (a *AICollaboration) Name() string { return DimensionAICollaboration }

// Component weights and cadence bounds for AI collaboration.
const (
	aiPromptWeight    = 0.35
	aiDiversityWeight = 0.25
	aiCadenceWeight   = 0.25
	aiAnsweredWeight  = 0.15

	aiPromptMinChars = 20
	aiPromptMaxChars = 600

	// One interaction every 1-10 minutes reads as healthy collaboration.
	aiHealthyMinInterval = time.Minute
	aiHealthyMaxInterval = 10 * time.Minute

	aiOverRelianceDependency = 0.8
	aiOverReliancePenalty    = 20
)

func (a *AICollaboration) Analyze(ctx context.Context, data *extract.SessionData) (Score, error) {
	turns := data.AIInteractions
	if len(turns) == 0 {
		// Zero recorded interactions must yield a zero score; anything
		// else is flagged downstream as ai_usage_inconsistency.
		return Score{
			Score:      0,
			Confidence: 0.3,
			Evidence:   []Evidence{{Description: "AI assistance was available but never used"}},
		}, nil
	}

	prompt := a.promptQuality(turns)
	diversity := a.promptDiversity(turns)
	cadence := a.cadence(len(turns), data.Duration)
	answered := a.answeredFraction(turns) * 100

	score := aiPromptWeight*prompt +
		aiDiversityWeight*diversity +
		aiCadenceWeight*cadence +
		aiAnsweredWeight*answered

	evidence := []Evidence{
		{Description: fmt.Sprintf("%d AI interactions over %s", len(turns), data.Duration.Round(time.Second))},
	}

	// An externally derived dependency metric above threshold reads as
	// over-reliance regardless of prompt quality.
	if data.Metrics.Present && data.Metrics.AIDependencyScore > aiOverRelianceDependency {
		score -= aiOverReliancePenalty
		evidence = append(evidence, Evidence{
			Description: fmt.Sprintf("high AI dependency metric %.2f", data.Metrics.AIDependencyScore),
		})
	}

	confidence := 0.6
	if len(turns) >= 3 {
		confidence = 0.85
	}

	return Score{
		Score:      clamp(0, 100, score),
		Confidence: confidence,
		Evidence:   evidence,
		Breakdown: map[string]float64{
			"prompt_quality": prompt,
			"diversity":      diversity,
			"cadence":        cadence,
			"answered":       answered,
		},
	}, nil
}

// promptQuality rewards prompts with enough context to be answerable and
// penalizes one-liners and walls of text.
func (a *AICollaboration) promptQuality(turns []extract.AIInteraction) float64 {
	total := 0.0
	for _, t := range turns {
		n := len(t.CandidateMessage)
		switch {
		case n >= aiPromptMinChars && n <= aiPromptMaxChars:
			total += 100
		case n < aiPromptMinChars:
			total += float64(n) / aiPromptMinChars * 100
		default:
			total += 60
		}
	}
	return total / float64(len(turns))
}

// promptDiversity measures vocabulary spread across all prompts; asking
// the same thing repeatedly scores low.
func (a *AICollaboration) promptDiversity(turns []extract.AIInteraction) float64 {
	seen := make(map[string]struct{})
	words := 0
	for _, t := range turns {
		for _, w := range strings.Fields(strings.ToLower(t.CandidateMessage)) {
			words++
			seen[w] = struct{}{}
		}
	}
	if words == 0 {
		return 0
	}
	return clamp(0, 100, float64(len(seen))/float64(words)*150)
}

// cadence scores the interaction rate against the session duration.
func (a *AICollaboration) cadence(turns int, duration time.Duration) float64 {
	if duration <= 0 {
		return 50
	}
	interval := duration / time.Duration(turns)
	switch {
	case interval < aiHealthyMinInterval:
		// More than one prompt a minute suggests leaning on the
		// assistant instead of thinking.
		return 30
	case interval <= aiHealthyMaxInterval:
		return 100
	default:
		return 60
	}
}

func (a *AICollaboration) answeredFraction(turns []extract.AIInteraction) float64 {
	answered := 0
	for i := range turns {
		if turns[i].Answered() {
			answered++
		}
	}
	return float64(answered) / float64(len(turns))
}
