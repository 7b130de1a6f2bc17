package quiz

import "github.com/cryptoedu/tutor/internal/lesson"

// FallbackNotice is shown next to the backup question.
const FallbackNotice = "We couldn't load this quiz right now, so here is a backup question. You can retry later for the full quiz."

// FallbackQuestions returns the single built-in question used whenever quiz
// content cannot be loaded or generated.
func FallbackQuestions() []lesson.QuizQuestion {
	return []lesson.QuizQuestion{{
		Question: "What is a blockchain?",
		Options: []string{
			"A distributed ledger that records transactions across many computers",
			"A single bank's private database",
			"A type of cryptocurrency wallet",
			"A government-issued digital currency",
		},
		CorrectAnswer: 0,
		Explanation:   "A blockchain is a shared, append-only ledger replicated across a network of nodes, so no single party controls the record.",
	}}
}

// FallbackAttempt builds an attempt over FallbackQuestions with the notice set.
func FallbackAttempt(t Type) *Attempt {
	a, _ := NewAttempt(t, FallbackQuestions())
	a.Notice = FallbackNotice
	return a
}
