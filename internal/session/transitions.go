package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cryptoedu/tutor/internal/lesson"
	"github.com/cryptoedu/tutor/internal/navigator"
	"github.com/cryptoedu/tutor/internal/progress"
	"github.com/cryptoedu/tutor/internal/quiz"
)

// transition applies one accepted event. It runs with the session lock held
// and must leave the session untouched when it returns an error.
type transition func(s *Session, ctx context.Context, ev Event) error

// transitions is the complete table of accepted (mode, event) pairs. Any pair
// missing here is rejected with ErrInvalidTransition.
var transitions = map[Mode]map[EventKind]transition{
	ModeLearning: {
		EventFinishSubtopic: (*Session).finishSubtopic,
		EventOpenChat:       (*Session).openChat,
		EventSelectSubtopic: (*Session).selectSubtopic,
	},
	ModeChat: {
		EventRequestQuiz: (*Session).requestQuiz,
	},
	ModeQuiz: {
		EventAnswer:     (*Session).answer,
		EventSubmitQuiz: (*Session).submitQuiz,
	},
	ModeQuizResults: {
		EventContinue: (*Session).continueFromResults,
	},
	ModeFinalTest: {
		EventAnswer:          (*Session).answer,
		EventSubmitFinalTest: (*Session).submitFinalTest,
	},
	ModeFinalResults: {},
}

func lookup(m Mode, k EventKind) (transition, bool) {
	fn, ok := transitions[m][k]
	return fn, ok
}

func (s *Session) finishSubtopic(ctx context.Context, _ Event) error {
	subs := s.lesson.Topics[s.topic].Subtopics
	if s.sub < len(subs)-1 {
		s.markCompleted(ctx)
		s.sub++
		s.mode = ModeLearning
		return nil
	}
	s.mode = ModeChat
	return nil
}

func (s *Session) openChat(context.Context, Event) error {
	s.mode = ModeChat
	return nil
}

func (s *Session) selectSubtopic(_ context.Context, ev Event) error {
	if !navigator.IsSubtopicAvailable(s.lesson, ev.Topic, ev.Subtopic) {
		return fmt.Errorf("%w: subtopic (%d,%d) is locked", ErrInvalidTransition, ev.Topic, ev.Subtopic)
	}
	s.topic, s.sub = ev.Topic, ev.Subtopic
	s.mode = ModeLearning
	return nil
}

func (s *Session) requestQuiz(ctx context.Context, _ Event) error {
	sub := s.current()

	questions, err := s.content.PracticeQuiz(ctx, sub.ID)
	if err != nil && ctx.Err() == nil {
		slog.Warn("practice quiz unavailable", "session_id", s.id, "subtopic_id", sub.ID, "error", err)
	}

	var attempt *quiz.Attempt
	if len(questions) > 0 {
		attempt, err = quiz.NewAttempt(quiz.TypePractice, questions)
	}
	if attempt == nil || err != nil {
		attempt = s.generateAttempt(ctx, quiz.TypePractice, nil)
		attempt.Substituted = true
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if attempt.Notice == "" {
		s.practice = attempt.Questions
	} else {
		s.practice = nil
	}
	s.attempt = attempt
	s.mode = ModeQuiz
	return nil
}

func (s *Session) answer(_ context.Context, ev Event) error {
	if err := s.attempt.Answer(ev.Question, ev.Option); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAnswer, err)
	}
	return nil
}

func (s *Session) submitQuiz(ctx context.Context, _ Event) error {
	score, err := s.attempt.Submit()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIncompleteAnswers, err)
	}

	sub := s.current()
	update := progress.Update{UserID: s.userID, SubtopicID: sub.ID}
	switch s.attempt.Type {
	case quiz.TypeChallenge:
		sub.AIQuizScore = progress.Int(score)
		update.AIQuizScore = progress.Int(score)
		if quiz.Passed(score) {
			sub.Completed = true
			update.Completed = true
		}
	default:
		sub.DBQuizScore = progress.Int(score)
		update.DBQuizScore = progress.Int(score)
	}

	s.saveProgress(ctx, update)
	s.saveQuizResult(ctx, progress.QuizResult{
		UserID:     s.userID,
		SubtopicID: sub.ID,
		Score:      score,
		QuizType:   string(s.attempt.Type),
		Answers:    append([]int(nil), s.attempt.Selected...),
		Questions:  s.attempt.Questions,
	})

	s.mode = ModeQuizResults
	return nil
}

func (s *Session) continueFromResults(ctx context.Context, _ Event) error {
	if s.attempt.Type != quiz.TypeChallenge {
		attempt := s.generateAttempt(ctx, quiz.TypeChallenge, s.practice)
		if err := ctx.Err(); err != nil {
			return err
		}
		s.attempt = attempt
		s.mode = ModeQuiz
		return nil
	}

	if !s.attempt.Passed() {
		s.attempt = nil
		s.mode = ModeLearning
		return nil
	}

	if t, sub, ok := s.next(); ok {
		s.topic, s.sub = t, sub
		s.attempt = nil
		s.practice = nil
		s.mode = ModeLearning
		return nil
	}

	attempt := s.finalTestAttempt(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}
	s.attempt = attempt
	s.practice = nil
	s.mode = ModeFinalTest
	return nil
}

func (s *Session) submitFinalTest(ctx context.Context, _ Event) error {
	score, err := s.attempt.Submit()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIncompleteAnswers, err)
	}

	s.saveFinalTestResult(ctx, progress.FinalTestResult{
		UserID:   s.userID,
		LessonID: s.lesson.ID,
		Score:    score,
	})
	s.mode = ModeFinalResults
	return nil
}

// next returns the position after the current subtopic, moving to the first
// subtopic of the next topic when the current topic is exhausted.
func (s *Session) next() (topic, sub int, ok bool) {
	if _, ok := s.lesson.Subtopic(s.topic, s.sub+1); ok {
		return s.topic, s.sub + 1, true
	}
	for t := s.topic + 1; t < len(s.lesson.Topics); t++ {
		if _, ok := s.lesson.Subtopic(t, 0); ok {
			return t, 0, true
		}
	}
	return 0, 0, false
}

// generateAttempt asks the generator for a quiz on the current subtopic and
// falls back to the built-in question on any failure.
func (s *Session) generateAttempt(ctx context.Context, t quiz.Type, existing []lesson.QuizQuestion) *quiz.Attempt {
	if s.generator == nil {
		return quiz.FallbackAttempt(t)
	}

	sub := s.current()
	questions, err := s.generator.Generate(ctx, quiz.GenerateRequest{
		UserID:        s.userID,
		SubtopicTitle: sub.Title,
		Objective:     sub.Objective,
		KeyConcepts:   sub.KeyConcepts,
		Existing:      existing,
		Language:      s.lesson.Language,
	})
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("quiz generation failed, using fallback question",
				"session_id", s.id,
				"subtopic_id", sub.ID,
				"quiz_type", t,
				"error", err,
			)
		}
		return quiz.FallbackAttempt(t)
	}

	attempt, err := quiz.NewAttempt(t, questions)
	if err != nil {
		return quiz.FallbackAttempt(t)
	}
	return attempt
}

func (s *Session) finalTestAttempt(ctx context.Context) *quiz.Attempt {
	questions, err := s.content.FinalTest(ctx, s.lesson.ID)
	if err != nil && ctx.Err() == nil {
		slog.Warn("final test unavailable", "session_id", s.id, "lesson_id", s.lesson.ID, "error", err)
	}
	attempt, err := quiz.NewAttempt(quiz.TypeFinal, questions)
	if err != nil {
		return quiz.FallbackAttempt(quiz.TypeFinal)
	}
	return attempt
}

func (s *Session) markCompleted(ctx context.Context) {
	sub := s.current()
	sub.Completed = true
	s.saveProgress(ctx, progress.Update{UserID: s.userID, SubtopicID: sub.ID, Completed: true})
}
