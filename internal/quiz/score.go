// Package quiz implements quiz attempts, scoring, AI quiz generation and the
// validation boundary for generated content.
package quiz

import (
	"errors"
	"math"
)

// PassingScore is the percentage a challenge quiz must reach to complete a
// subtopic.
const PassingScore = 70

// Type distinguishes the quiz stages a learner goes through.
type Type string

const (
	TypePractice  Type = "practice"  // pre-authored ("db") quiz
	TypeChallenge Type = "challenge" // AI-generated ("ai") quiz
	TypeFinal     Type = "final"     // lesson-level final test
)

// ErrNoQuestions is returned when a quiz has nothing to score.
var ErrNoQuestions = errors.New("quiz has no questions")

// Score returns round(100*correct/total). A zero total is an error rather
// than a division by zero.
func Score(correct, total int) (int, error) {
	if total <= 0 {
		return 0, ErrNoQuestions
	}
	if correct < 0 {
		correct = 0
	}
	if correct > total {
		correct = total
	}
	return int(math.Round(100 * float64(correct) / float64(total))), nil
}

// Passed reports whether score meets PassingScore.
func Passed(score int) bool {
	return score >= PassingScore
}
