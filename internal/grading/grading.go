// Package grading holds the scoring arithmetic for exam submissions: the
// objective MCQ grader run at submission time and the helpers used when an
// examiner applies a manual scoring batch.
package grading

import (
	"strconv"

	"github.com/rsinha/examportal/internal/model"
)

// ObjectiveScore computes the auto-graded portion of a submission: one point
// for every MCQ question whose submitted answer equals the stored correct
// option. Subjective questions contribute nothing at this stage. Missing or
// malformed answers simply fail the comparison and score zero.
func ObjectiveScore(questions []model.Question, answers map[string]string) int {
	score := 0
	for _, q := range questions {
		if q.Type != model.QuestionMCQ {
			continue
		}
		if answer, ok := answers[q.ID]; ok && answer == q.CorrectOption {
			score++
		}
	}
	return score
}

// CoerceScores converts a raw score batch (as decoded from JSON) into numeric
// per-question scores. JSON numbers arrive as float64; numeric strings are
// accepted too. Entries that cannot be coerced are dropped silently, matching
// the tolerant batch semantics of manual scoring: one bad entry never aborts
// the batch.
func CoerceScores(raw map[string]any) map[string]float64 {
	scores := make(map[string]float64, len(raw))
	for questionID, v := range raw {
		switch n := v.(type) {
		case float64:
			scores[questionID] = n
		case int:
			scores[questionID] = float64(n)
		case string:
			f, err := strconv.ParseFloat(n, 64)
			if err != nil {
				continue
			}
			scores[questionID] = f
		}
	}
	return scores
}

// BatchDelta computes how much a manual batch changes the total score.
//
// In additive mode the delta is the plain sum of the batch: every accepted
// value is counted each time it is applied, so re-sending an identical batch
// doubles its contribution. In overwrite mode each entry contributes the
// difference against the previously stored value for that question, making
// repeated corrections idempotent.
func BatchDelta(mode model.ScoringMode, batch, previous map[string]float64) float64 {
	var delta float64
	for questionID, score := range batch {
		switch mode {
		case model.ScoringOverwrite:
			delta += score - previous[questionID]
		default:
			delta += score
		}
	}
	return delta
}
