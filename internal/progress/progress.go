// Package progress persists learner progress: per-subtopic completion and
// quiz scores, quiz attempt history and final test results.
package progress

import (
	"context"
	"errors"
	"time"

	"github.com/cryptoedu/tutor/internal/lesson"
)

// ErrInvalidUpdate is returned for writes missing their key.
var ErrInvalidUpdate = errors.New("invalid progress update")

// Record is the stored progress for one (user, subtopic) pair.
type Record struct {
	UserID      string    `json:"user_id"`
	SubtopicID  string    `json:"subtopic_id"`
	Completed   bool      `json:"completed"`
	DBQuizScore *int      `json:"db_quiz_score"`
	AIQuizScore *int      `json:"ai_quiz_score"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Update is an upsert keyed by (UserID, SubtopicID). Completed is sticky:
// once a record is completed a later false never clears it. Nil scores leave
// the stored value unchanged.
type Update struct {
	UserID      string
	SubtopicID  string
	Completed   bool
	DBQuizScore *int
	AIQuizScore *int
}

func (u Update) validate() error {
	if u.UserID == "" || u.SubtopicID == "" {
		return ErrInvalidUpdate
	}
	return nil
}

// QuizResult is one submitted quiz attempt.
type QuizResult struct {
	UserID     string                `json:"user_id"`
	SubtopicID string                `json:"subtopic_id"`
	Score      int                   `json:"score"`
	QuizType   string                `json:"quiz_type"`
	Answers    []int                 `json:"answers"`
	Questions  []lesson.QuizQuestion `json:"questions"`
	CreatedAt  time.Time             `json:"created_at"`
}

// FinalTestResult is one submitted final test.
type FinalTestResult struct {
	UserID    string    `json:"user_id"`
	LessonID  string    `json:"lesson_id"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// Sink receives progress writes. Implementations must upsert progress so
// repeated completion never duplicates a record.
type Sink interface {
	SaveProgress(ctx context.Context, u Update) error
	SaveQuizResult(ctx context.Context, r QuizResult) error
	SaveFinalTestResult(ctx context.Context, r FinalTestResult) error
}

// Reader reads a user's stored progress.
type Reader interface {
	Progress(ctx context.Context, userID string) (map[string]Record, error)
	FinalTestResults(ctx context.Context, userID, lessonID string) ([]FinalTestResult, error)
}

// Store is a full progress backend.
type Store interface {
	Sink
	Reader
}

// Annotate copies completion flags and scores from records onto l's
// subtopics. Subtopics without a record are left untouched.
func Annotate(l *lesson.Lesson, records map[string]Record) {
	if l == nil {
		return
	}
	for t := range l.Topics {
		for s := range l.Topics[t].Subtopics {
			sub := &l.Topics[t].Subtopics[s]
			rec, ok := records[sub.ID]
			if !ok {
				continue
			}
			sub.Completed = rec.Completed
			sub.DBQuizScore = rec.DBQuizScore
			sub.AIQuizScore = rec.AIQuizScore
		}
	}
}

// merge applies u onto rec with upsert semantics.
func merge(rec Record, u Update, now time.Time) Record {
	rec.UserID = u.UserID
	rec.SubtopicID = u.SubtopicID
	rec.Completed = rec.Completed || u.Completed
	if u.DBQuizScore != nil {
		v := *u.DBQuizScore
		rec.DBQuizScore = &v
	}
	if u.AIQuizScore != nil {
		v := *u.AIQuizScore
		rec.AIQuizScore = &v
	}
	rec.UpdatedAt = now
	return rec
}

// Int returns a pointer to v, for building Updates.
func Int(v int) *int {
	return &v
}
