// Package content serves lessons and quiz banks to learning sessions.
package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/cryptoedu/tutor/internal/lesson"
	"github.com/cryptoedu/tutor/internal/progress"
)

// ErrLessonNotFound is returned when no lesson has the requested ID.
var ErrLessonNotFound = errors.New("lesson not found")

// Service reads lessons from a Library and annotates them with a user's
// stored progress.
type Service struct {
	lib      *Library
	progress progress.Reader
}

// NewService creates a content service. A nil reader serves lessons without
// progress annotations.
func NewService(lib *Library, reader progress.Reader) *Service {
	return &Service{lib: lib, progress: reader}
}

// Lesson returns a private copy of the lesson annotated with userID's
// progress. The lesson and the progress are fetched concurrently. A progress
// read failure is logged and the lesson is returned unannotated.
func (s *Service) Lesson(ctx context.Context, lessonID, userID string) (*lesson.Lesson, error) {
	var (
		les     *lesson.Lesson
		records map[string]progress.Record
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l, ok := s.lib.Lesson(lessonID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrLessonNotFound, lessonID)
		}
		les = l
		return nil
	})
	if s.progress != nil && userID != "" {
		g.Go(func() error {
			recs, err := s.progress.Progress(gctx, userID)
			if err != nil {
				if ctx.Err() == nil {
					slog.Warn("progress read failed, serving unannotated lesson",
						"user_id", userID,
						"lesson_id", lessonID,
						"error", err,
					)
				}
				return nil
			}
			records = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	progress.Annotate(les, records)
	return les, nil
}

// PracticeQuiz returns the authored practice questions for a subtopic, which
// may be empty.
func (s *Service) PracticeQuiz(ctx context.Context, subtopicID string) ([]lesson.QuizQuestion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.lib.PracticeQuiz(subtopicID), nil
}

// FinalTest returns the authored final test for a lesson, which may be empty.
func (s *Service) FinalTest(ctx context.Context, lessonID string) ([]lesson.QuizQuestion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.lib.FinalTest(lessonID), nil
}

// Lessons lists the library.
func (s *Service) Lessons() []Summary {
	return s.lib.Lessons()
}
