package content_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cryptoedu/tutor/internal/content"
	"github.com/cryptoedu/tutor/internal/progress"
)

const lessonYAML = `
id: bitcoin-basics
title: "Bitcoin Basics"
level: beginner
language: es
topics:
  - id: mining
    title: "Mining"
    order: 2
    subtopics:
      - id: pow
        title: "Proof of Work"
        objective: "Explain how blocks are mined"
        key_concepts: [hash, nonce]
  - id: ledger
    title: "The Ledger"
    order: 1
    subtopics:
      - id: blocks
        title: "Blocks"
        objective: "Describe a block"
        resources:
          - id: r1
            type: video
            url: "https://example.com/blocks"
            title: "Blocks explained"
      - id: chain
        title: "Chaining"
`

const quizzesYAML = `
lesson_id: bitcoin-basics
practice:
  blocks:
    - question: "What does a block contain?"
      options: ["Transactions", "Emails", "Images", "Nothing"]
      correct_answer: 0
      explanation: "Blocks batch transactions."
  chain:
    - question: "Broken question"
      options: ["only one"]
      correct_answer: 0
      explanation: "x"
  ghost:
    - question: "Unknown subtopic"
      options: ["a", "b", "c", "d"]
      correct_answer: 1
      explanation: "x"
final_test:
  - question: "Who created Bitcoin?"
    options: ["Satoshi Nakamoto", "Vitalik Buterin", "Alan Turing", "Ada Lovelace"]
    correct_answer: 0
    explanation: "The whitepaper is signed by Satoshi Nakamoto."
`

func setupLibrary(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	lessonsDir := filepath.Join(dir, "lessons", "crypto")
	if err := os.MkdirAll(lessonsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(lessonsDir, "bitcoin-basics.yaml"), []byte(lessonYAML), 0o644)
	os.WriteFile(filepath.Join(lessonsDir, "bitcoin-basics.quizzes.yaml"), []byte(quizzesYAML), 0o644)
	return dir
}

func TestLibrary_LoadsAndNormalizes(t *testing.T) {
	lib, err := content.NewLibrary(setupLibrary(t))
	if err != nil {
		t.Fatalf("NewLibrary() error = %v", err)
	}

	les, ok := lib.Lesson("bitcoin-basics")
	if !ok {
		t.Fatal("Lesson(bitcoin-basics) not found")
	}
	if les.Topics[0].ID != "ledger" {
		t.Errorf("first topic = %q, want ledger (sorted by order)", les.Topics[0].ID)
	}
	if les.Language != "es" {
		t.Errorf("Language = %q, want es", les.Language)
	}

	list := lib.Lessons()
	if len(list) != 1 || list[0].Subtopics != 3 || list[0].Topics != 2 {
		t.Errorf("Lessons() = %+v", list)
	}
}

func TestLibrary_LessonIsACopy(t *testing.T) {
	lib, _ := content.NewLibrary(setupLibrary(t))

	a, _ := lib.Lesson("bitcoin-basics")
	a.Topics[0].Subtopics[0].Completed = true
	a.Topics[0].Subtopics[0].Title = "changed"

	b, _ := lib.Lesson("bitcoin-basics")
	if b.Topics[0].Subtopics[0].Completed || b.Topics[0].Subtopics[0].Title == "changed" {
		t.Error("mutating a returned lesson leaked into the library")
	}
}

func TestLibrary_Quizzes(t *testing.T) {
	lib, _ := content.NewLibrary(setupLibrary(t))

	if qs := lib.PracticeQuiz("blocks"); len(qs) != 1 {
		t.Errorf("PracticeQuiz(blocks) = %d questions, want 1", len(qs))
	}
	if qs := lib.PracticeQuiz("chain"); len(qs) != 0 {
		t.Errorf("PracticeQuiz(chain) = %d questions, want 0 (invalid quiz skipped)", len(qs))
	}
	if qs := lib.PracticeQuiz("ghost"); len(qs) != 0 {
		t.Errorf("PracticeQuiz(ghost) = %d questions, want 0 (unknown subtopic)", len(qs))
	}
	if qs := lib.FinalTest("bitcoin-basics"); len(qs) != 1 {
		t.Errorf("FinalTest() = %d questions, want 1", len(qs))
	}
}

func TestLibrary_SkipsInvalidLessons(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "empty-topic.yaml"), []byte(`
id: broken
title: "No subtopics"
topics:
  - id: t1
    order: 1
    subtopics: []
`), 0o644)
	os.WriteFile(filepath.Join(dir, "garbage.yaml"), []byte("id: [unterminated"), 0o644)
	os.WriteFile(filepath.Join(dir, "notes.yaml"), []byte("title: not a lesson"), 0o644)

	lib, err := content.NewLibrary(dir)
	if err != nil {
		t.Fatalf("NewLibrary() error = %v", err)
	}
	if n := len(lib.Lessons()); n != 0 {
		t.Errorf("Lessons() = %d, want 0", n)
	}
}

func TestLibrary_EmptyDir(t *testing.T) {
	lib, err := content.NewLibrary(t.TempDir())
	if err != nil {
		t.Fatalf("NewLibrary() error = %v", err)
	}
	if _, ok := lib.Lesson("anything"); ok {
		t.Error("empty library should not find lessons")
	}
}

func TestLibrary_MissingDir(t *testing.T) {
	if _, err := content.NewLibrary(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("NewLibrary() should fail for a missing directory")
	}
}

type failingReader struct{}

func (failingReader) Progress(context.Context, string) (map[string]progress.Record, error) {
	return nil, errors.New("db down")
}

func (failingReader) FinalTestResults(context.Context, string, string) ([]progress.FinalTestResult, error) {
	return nil, errors.New("db down")
}

func TestService_LessonAnnotatesProgress(t *testing.T) {
	ctx := context.Background()
	lib, _ := content.NewLibrary(setupLibrary(t))
	store := progress.NewMemoryStore()
	_ = store.SaveProgress(ctx, progress.Update{UserID: "u1", SubtopicID: "blocks", Completed: true, DBQuizScore: progress.Int(90)})

	svc := content.NewService(lib, store)
	les, err := svc.Lesson(ctx, "bitcoin-basics", "u1")
	if err != nil {
		t.Fatalf("Lesson() error = %v", err)
	}
	sub := les.Topics[0].Subtopics[0]
	if !sub.Completed || sub.DBQuizScore == nil || *sub.DBQuizScore != 90 {
		t.Errorf("blocks = %+v, want completed with score 90", sub)
	}

	other, _ := svc.Lesson(ctx, "bitcoin-basics", "u2")
	if other.Topics[0].Subtopics[0].Completed {
		t.Error("another user's lesson should not be annotated")
	}
}

func TestService_LessonNotFound(t *testing.T) {
	lib, _ := content.NewLibrary(setupLibrary(t))
	svc := content.NewService(lib, nil)

	_, err := svc.Lesson(context.Background(), "missing", "u1")
	if !errors.Is(err, content.ErrLessonNotFound) {
		t.Errorf("Lesson() error = %v, want ErrLessonNotFound", err)
	}
}

func TestService_ProgressFailureDegrades(t *testing.T) {
	lib, _ := content.NewLibrary(setupLibrary(t))
	svc := content.NewService(lib, failingReader{})

	les, err := svc.Lesson(context.Background(), "bitcoin-basics", "u1")
	if err != nil {
		t.Fatalf("Lesson() error = %v, want nil", err)
	}
	if les.Topics[0].Subtopics[0].Completed {
		t.Error("lesson should be unannotated")
	}
}

func TestService_CanceledContext(t *testing.T) {
	lib, _ := content.NewLibrary(setupLibrary(t))
	svc := content.NewService(lib, progress.NewMemoryStore())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Lesson(ctx, "bitcoin-basics", "u1"); !errors.Is(err, context.Canceled) {
		t.Errorf("Lesson() error = %v, want context.Canceled", err)
	}
	if _, err := svc.PracticeQuiz(ctx, "blocks"); !errors.Is(err, context.Canceled) {
		t.Errorf("PracticeQuiz() error = %v, want context.Canceled", err)
	}
	if _, err := svc.FinalTest(ctx, "bitcoin-basics"); !errors.Is(err, context.Canceled) {
		t.Errorf("FinalTest() error = %v, want context.Canceled", err)
	}
}
