package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/tryout/internal/domain/extract"
)

// Communication scores clarity and structure signals from the
// candidate's prompts and from comments in their code.
type Communication struct{}

func (a *Communication) Name() string { return DimensionCommunication }

const (
	commPromptWeight  = 0.6
	commCommentWeight = 0.4

	commGoodCommentRatio = 0.08
)

func (a *Communication) Analyze(ctx context.Context, data *extract.SessionData) (Score, error) {
	hasPrompts := len(data.AIInteractions) > 0
	hasCode := len(data.CodeSnapshots) > 0
	if !hasPrompts && !hasCode {
		return Score{
			Score:      0,
			Confidence: 0.1,
			Evidence:   []Evidence{{Description: "no prompts or code available to assess communication"}},
		}, nil
	}

	var evidence []Evidence
	promptScore := 0.0
	if hasPrompts {
		promptScore = a.promptClarity(data.AIInteractions)
		evidence = append(evidence, Evidence{
			Description: fmt.Sprintf("prompt clarity %.0f across %d messages", promptScore, len(data.AIInteractions)),
		})
	}

	commentScore := 0.0
	if hasCode {
		commentScore = a.commentScore(data.CodeSnapshots[len(data.CodeSnapshots)-1])
		evidence = append(evidence, Evidence{
			Description: fmt.Sprintf("code commentary score %.0f", commentScore),
		})
	}

	// When one signal is missing, the other carries the full weight.
	var score float64
	switch {
	case hasPrompts && hasCode:
		score = commPromptWeight*promptScore + commCommentWeight*commentScore
	case hasPrompts:
		score = promptScore
	default:
		score = commentScore
	}

	confidence := 0.4
	if hasPrompts && hasCode {
		confidence = 0.75
	}

	return Score{
		Score:      clamp(0, 100, score),
		Confidence: confidence,
		Evidence:   evidence,
		Breakdown: map[string]float64{
			"prompt_clarity": promptScore,
			"code_comments":  commentScore,
		},
	}, nil
}

// promptClarity rewards structured, specific requests: full sentences,
// concrete artifacts (errors, file names), and explicit questions.
func (a *Communication) promptClarity(turns []extract.AIInteraction) float64 {
	total := 0.0
	for _, t := range turns {
		msg := t.CandidateMessage
		s := 40.0
		words := len(strings.Fields(msg))
		if words >= 8 {
			s += 25
		}
		if strings.ContainsAny(msg, "?") {
			s += 10
		}
		lower := strings.ToLower(msg)
		for _, marker := range []string{"error", "expected", "instead", "because", "test", "fail", "line"} {
			if strings.Contains(lower, marker) {
				s += 5
			}
		}
		total += clamp(0, 100, s)
	}
	return total / float64(len(turns))
}

// commentScore measures the comment density of the final snapshot.
func (a *Communication) commentScore(snap extract.CodeSnapshot) float64 {
	totalLines := 0
	commentLines := 0
	for _, content := range snap.Files {
		for _, line := range strings.Split(content, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			totalLines++
			if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") ||
				strings.HasPrefix(trimmed, "/*") || strings.HasPrefix(trimmed, "*") {
				commentLines++
			}
		}
	}
	if totalLines == 0 {
		return 0
	}
	ratio := float64(commentLines) / float64(totalLines)
	return clamp(0, 100, ratio/commGoodCommentRatio*100)
}
