package content

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/cryptoedu/tutor/internal/lesson"
	"github.com/cryptoedu/tutor/internal/quiz"
)

const quizSuffix = ".quizzes.yaml"

// quizFile is the on-disk shape of a lesson's companion quiz file.
type quizFile struct {
	LessonID  string                           `yaml:"lesson_id"`
	Practice  map[string][]lesson.QuizQuestion `yaml:"practice"`
	FinalTest []lesson.QuizQuestion            `yaml:"final_test"`
}

// Summary is the listing view of a lesson.
type Summary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Level     string `json:"level"`
	Language  string `json:"language"`
	Topics    int    `json:"topics"`
	Subtopics int    `json:"subtopics"`
}

// Library loads and caches lessons and quiz banks from a directory tree.
// Lessons live in <name>.yaml; practice quizzes and the final test live in
// the companion <name>.quizzes.yaml.
type Library struct {
	rootDir  string
	lessons  map[string]*lesson.Lesson
	practice map[string][]lesson.QuizQuestion
	finals   map[string][]lesson.QuizQuestion
	mu       sync.RWMutex
}

// NewLibrary creates a library and loads all content under rootDir.
func NewLibrary(rootDir string) (*Library, error) {
	l := &Library{
		rootDir:  rootDir,
		lessons:  make(map[string]*lesson.Lesson),
		practice: make(map[string][]lesson.QuizQuestion),
		finals:   make(map[string][]lesson.QuizQuestion),
	}

	if info, err := os.Stat(rootDir); err != nil {
		return nil, fmt.Errorf("loading lessons: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("loading lessons: %s is not a directory", rootDir)
	}
	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading lessons: %w", err)
	}

	slog.Info("lesson library loaded",
		"lessons", len(l.lessons),
		"practice_quizzes", len(l.practice),
		"final_tests", len(l.finals),
	)
	return l, nil
}

// Lesson returns a private copy of the lesson with the given ID.
func (l *Library) Lesson(id string) (*lesson.Lesson, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	les, ok := l.lessons[id]
	if !ok {
		return nil, false
	}
	return les.Clone(), true
}

// PracticeQuiz returns the authored practice questions for a subtopic.
func (l *Library) PracticeQuiz(subtopicID string) []lesson.QuizQuestion {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]lesson.QuizQuestion(nil), l.practice[subtopicID]...)
}

// FinalTest returns the authored final test for a lesson.
func (l *Library) FinalTest(lessonID string) []lesson.QuizQuestion {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]lesson.QuizQuestion(nil), l.finals[lessonID]...)
}

// Lessons lists every loaded lesson ordered by ID.
func (l *Library) Lessons() []Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Summary, 0, len(l.lessons))
	for _, les := range l.lessons {
		s := Summary{
			ID:       les.ID,
			Title:    les.Title,
			Level:    les.Level,
			Language: les.Language,
			Topics:   len(les.Topics),
		}
		for _, t := range les.Topics {
			s.Subtopics += len(t.Subtopics)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (l *Library) loadAll() error {
	var quizPaths []string
	err := filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}

		switch {
		case strings.HasSuffix(path, quizSuffix):
			quizPaths = append(quizPaths, path)
		case strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml"):
			return l.loadLesson(path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Quiz files are applied after every lesson is known so questions can be
	// checked against the subtopics they claim.
	for _, path := range quizPaths {
		if err := l.loadQuizzes(path); err != nil {
			return err
		}
	}
	return nil
}

func (l *Library) loadLesson(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var les lesson.Lesson
	if err := yaml.Unmarshal(data, &les); err != nil {
		slog.Warn("skipping invalid lesson YAML", "path", path, "error", err)
		return nil
	}
	if les.ID == "" {
		return nil // Not a lesson file
	}
	if err := lesson.Validate(&les); err != nil {
		slog.Warn("skipping invalid lesson", "path", path, "error", err)
		return nil
	}
	lesson.Normalize(&les)

	l.mu.Lock()
	l.lessons[les.ID] = &les
	l.mu.Unlock()
	return nil
}

func (l *Library) loadQuizzes(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var qf quizFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		slog.Warn("skipping invalid quiz YAML", "path", path, "error", err)
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	les, ok := l.lessons[qf.LessonID]
	if !ok {
		slog.Warn("skipping quizzes for unknown lesson", "path", path, "lesson_id", qf.LessonID)
		return nil
	}

	for subID, qs := range qf.Practice {
		if _, _, ok := les.FindSubtopic(subID); !ok {
			slog.Warn("skipping practice quiz for unknown subtopic", "path", path, "subtopic_id", subID)
			continue
		}
		if err := quiz.ValidateQuestions(qs); err != nil {
			slog.Warn("skipping invalid practice quiz", "path", path, "subtopic_id", subID, "error", err)
			continue
		}
		l.practice[subID] = qs
	}

	if len(qf.FinalTest) > 0 {
		if err := quiz.ValidateQuestions(qf.FinalTest); err != nil {
			slog.Warn("skipping invalid final test", "path", path, "lesson_id", qf.LessonID, "error", err)
		} else {
			l.finals[qf.LessonID] = qf.FinalTest
		}
	}
	return nil
}
