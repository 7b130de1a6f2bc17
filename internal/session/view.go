package session

import (
	"github.com/cryptoedu/tutor/internal/lesson"
	"github.com/cryptoedu/tutor/internal/navigator"
	"github.com/cryptoedu/tutor/internal/quiz"
)

// View is the client-facing projection of a session.
type View struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	LessonID    string            `json:"lesson_id"`
	LessonTitle string            `json:"lesson_title"`
	Mode        Mode              `json:"mode"`
	Topic       int               `json:"topic"`
	Subtopic    int               `json:"subtopic"`
	Current     *lesson.Subtopic  `json:"current,omitempty"`
	Quiz        *QuizView         `json:"quiz,omitempty"`
	Sidebar     navigator.Sidebar `json:"sidebar"`
}

// QuizView shows an attempt. Correct answers and explanations are only
// included once the attempt is submitted.
type QuizView struct {
	Type        quiz.Type      `json:"type"`
	Questions   []QuestionView `json:"questions"`
	Selected    []int          `json:"selected"`
	Current     int            `json:"current"`
	Submitted   bool           `json:"submitted"`
	Score       *int           `json:"score,omitempty"`
	Correct     *int           `json:"correct,omitempty"`
	Passed      *bool          `json:"passed,omitempty"`
	Substituted bool           `json:"substituted,omitempty"`
	Notice      string         `json:"notice,omitempty"`
}

// QuestionView is one question as shown to the learner.
type QuestionView struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer *int     `json:"correct_answer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

func (s *Session) view() View {
	v := View{
		ID:          s.id,
		UserID:      s.userID,
		LessonID:    s.lesson.ID,
		LessonTitle: s.lesson.Title,
		Mode:        s.mode,
		Topic:       s.topic,
		Subtopic:    s.sub,
		Sidebar:     navigator.Build(s.lesson, s.topic, s.sub),
	}
	if sub, ok := s.lesson.Subtopic(s.topic, s.sub); ok {
		cp := *sub
		v.Current = &cp
	}
	if s.attempt != nil {
		v.Quiz = quizView(s.attempt)
	}
	return v
}

func quizView(a *quiz.Attempt) *QuizView {
	qv := &QuizView{
		Type:        a.Type,
		Questions:   make([]QuestionView, len(a.Questions)),
		Selected:    append([]int(nil), a.Selected...),
		Current:     a.Current,
		Submitted:   a.Submitted,
		Substituted: a.Substituted,
		Notice:      a.Notice,
	}
	for i, q := range a.Questions {
		qv.Questions[i] = QuestionView{
			Question: q.Question,
			Options:  append([]string(nil), q.Options...),
		}
		if a.Submitted {
			answer := q.CorrectAnswer
			qv.Questions[i].CorrectAnswer = &answer
			qv.Questions[i].Explanation = q.Explanation
		}
	}
	if a.Submitted {
		score, correct, passed := a.Score, a.Correct, a.Passed()
		qv.Score, qv.Correct, qv.Passed = &score, &correct, &passed
	}
	return qv
}
