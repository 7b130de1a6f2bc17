// Package navigator projects a lesson's completion state into sidebar
// availability and progress. Every function is pure and tolerates malformed
// lesson trees by returning safe defaults.
package navigator

import (
	"math"

	"github.com/cryptoedu/tutor/internal/lesson"
)

// IsTopicCompleted reports whether every subtopic under topic t is completed.
// A topic with no subtopics counts as completed so it cannot block the
// lesson. An out-of-range index is never completed.
func IsTopicCompleted(l *lesson.Lesson, t int) bool {
	if l == nil || t < 0 || t >= len(l.Topics) {
		return false
	}
	for _, s := range l.Topics[t].Subtopics {
		if !s.Completed {
			return false
		}
	}
	return true
}

// IsSubtopicAvailable reports whether (t, s) may be opened. Progression is
// strictly linear: the first subtopic of the lesson is always open, later
// subtopics need their predecessor completed, and the first subtopic of a
// topic needs the whole previous topic completed. Indexes that do not exist
// in l are never available.
func IsSubtopicAvailable(l *lesson.Lesson, t, s int) bool {
	if _, ok := l.Subtopic(t, s); !ok {
		return false
	}
	if t == 0 && s == 0 {
		return true
	}
	if s > 0 {
		prev, _ := l.Subtopic(t, s-1)
		return prev.Completed
	}
	return IsTopicCompleted(l, t-1)
}

// Counts returns the number of completed subtopics and the total.
func Counts(l *lesson.Lesson) (completed, total int) {
	if l == nil {
		return 0, 0
	}
	for _, t := range l.Topics {
		for _, s := range t.Subtopics {
			total++
			if s.Completed {
				completed++
			}
		}
	}
	return completed, total
}

// OverallProgress returns round(100*completed/total), or 0 for an empty
// lesson.
func OverallProgress(l *lesson.Lesson) int {
	completed, total := Counts(l)
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

// SubtopicView is one sidebar row.
type SubtopicView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Completed   bool   `json:"completed"`
	Available   bool   `json:"available"`
	Current     bool   `json:"current"`
	DBQuizScore *int   `json:"db_quiz_score,omitempty"`
	AIQuizScore *int   `json:"ai_quiz_score,omitempty"`
}

// TopicView groups sidebar rows under a topic heading.
type TopicView struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Completed bool           `json:"completed"`
	Subtopics []SubtopicView `json:"subtopics"`
}

// Sidebar is the full navigation projection for a session position.
type Sidebar struct {
	Topics   []TopicView `json:"topics"`
	Progress int         `json:"progress"`
}

// Build projects l at the current position (topic, sub).
func Build(l *lesson.Lesson, topic, sub int) Sidebar {
	sb := Sidebar{Topics: []TopicView{}, Progress: OverallProgress(l)}
	if l == nil {
		return sb
	}
	for ti, t := range l.Topics {
		tv := TopicView{
			ID:        t.ID,
			Title:     t.Title,
			Completed: IsTopicCompleted(l, ti),
			Subtopics: make([]SubtopicView, 0, len(t.Subtopics)),
		}
		for si, s := range t.Subtopics {
			tv.Subtopics = append(tv.Subtopics, SubtopicView{
				ID:          s.ID,
				Title:       s.Title,
				Completed:   s.Completed,
				Available:   IsSubtopicAvailable(l, ti, si),
				Current:     ti == topic && si == sub,
				DBQuizScore: s.DBQuizScore,
				AIQuizScore: s.AIQuizScore,
			})
		}
		sb.Topics = append(sb.Topics, tv)
	}
	return sb
}
