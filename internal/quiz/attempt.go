package quiz

import (
	"errors"
	"fmt"

	"github.com/cryptoedu/tutor/internal/lesson"
)

var (
	// ErrQuestionOutOfRange is returned for an answer to a question index the
	// attempt does not have.
	ErrQuestionOutOfRange = errors.New("question index out of range")
	// ErrOptionOutOfRange is returned for an option outside 0..3.
	ErrOptionOutOfRange = errors.New("option index out of range")
	// ErrAlreadySubmitted is returned when an attempt is answered or
	// submitted twice.
	ErrAlreadySubmitted = errors.New("attempt already submitted")
	// ErrUnanswered is returned when submitting with questions left open.
	ErrUnanswered = errors.New("not all questions answered")
)

// unanswered marks a question with no selection.
const unanswered = -1

// Attempt is one pass through a quiz. Every (re)entry into a quiz builds a new
// Attempt, so no selection state carries over between tries.
type Attempt struct {
	Type        Type
	Questions   []lesson.QuizQuestion
	Selected    []int
	Current     int
	Score       int
	Correct     int
	Submitted   bool
	Substituted bool   // practice content replaced by generated questions
	Notice      string // inline message shown when fallback content is used
}

// NewAttempt starts an attempt over questions. An empty set is rejected.
func NewAttempt(t Type, questions []lesson.QuizQuestion) (*Attempt, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	selected := make([]int, len(questions))
	for i := range selected {
		selected[i] = unanswered
	}
	return &Attempt{
		Type:      t,
		Questions: append([]lesson.QuizQuestion(nil), questions...),
		Selected:  selected,
	}, nil
}

// Answer records option for question and moves the cursor past it.
// Changing an answer before submission is allowed.
func (a *Attempt) Answer(question, option int) error {
	if a.Submitted {
		return ErrAlreadySubmitted
	}
	if question < 0 || question >= len(a.Questions) {
		return fmt.Errorf("%w: %d", ErrQuestionOutOfRange, question)
	}
	if option < 0 || option >= len(a.Questions[question].Options) {
		return fmt.Errorf("%w: %d", ErrOptionOutOfRange, option)
	}
	a.Selected[question] = option
	if question == a.Current && a.Current < len(a.Questions)-1 {
		a.Current++
	}
	return nil
}

// Answered returns how many questions have a selection.
func (a *Attempt) Answered() int {
	n := 0
	for _, s := range a.Selected {
		if s != unanswered {
			n++
		}
	}
	return n
}

// Complete reports whether every question has a selection.
func (a *Attempt) Complete() bool {
	return a.Answered() == len(a.Questions)
}

// Submit scores the attempt. All questions must be answered.
func (a *Attempt) Submit() (int, error) {
	if a.Submitted {
		return a.Score, ErrAlreadySubmitted
	}
	if !a.Complete() {
		return 0, fmt.Errorf("%w: %d of %d", ErrUnanswered, a.Answered(), len(a.Questions))
	}

	correct := 0
	for i, q := range a.Questions {
		if a.Selected[i] == q.CorrectAnswer {
			correct++
		}
	}
	score, err := Score(correct, len(a.Questions))
	if err != nil {
		return 0, err
	}
	a.Correct = correct
	a.Score = score
	a.Submitted = true
	return score, nil
}

// Passed reports whether a submitted attempt reached PassingScore.
func (a *Attempt) Passed() bool {
	return a.Submitted && Passed(a.Score)
}
