package progress_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cryptoedu/tutor/internal/lesson"
	"github.com/cryptoedu/tutor/internal/progress"
)

func TestMemoryStore_UpsertIsSticky(t *testing.T) {
	ctx := context.Background()
	store := progress.NewMemoryStore()

	if err := store.SaveProgress(ctx, progress.Update{UserID: "u1", SubtopicID: "s1", Completed: true, DBQuizScore: progress.Int(80)}); err != nil {
		t.Fatalf("SaveProgress() error = %v", err)
	}
	if err := store.SaveProgress(ctx, progress.Update{UserID: "u1", SubtopicID: "s1", AIQuizScore: progress.Int(60)}); err != nil {
		t.Fatalf("SaveProgress() error = %v", err)
	}
	if err := store.SaveProgress(ctx, progress.Update{UserID: "u1", SubtopicID: "s1", Completed: true}); err != nil {
		t.Fatalf("SaveProgress() error = %v", err)
	}

	if store.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", store.Len())
	}
	recs, _ := store.Progress(ctx, "u1")
	rec := recs["s1"]
	if !rec.Completed {
		t.Error("completed flag was cleared")
	}
	if rec.DBQuizScore == nil || *rec.DBQuizScore != 80 {
		t.Errorf("DBQuizScore = %v, want 80", rec.DBQuizScore)
	}
	if rec.AIQuizScore == nil || *rec.AIQuizScore != 60 {
		t.Errorf("AIQuizScore = %v, want 60", rec.AIQuizScore)
	}
}

func TestMemoryStore_IsolatesUsers(t *testing.T) {
	ctx := context.Background()
	store := progress.NewMemoryStore()
	_ = store.SaveProgress(ctx, progress.Update{UserID: "u1", SubtopicID: "s1", Completed: true})
	_ = store.SaveProgress(ctx, progress.Update{UserID: "u2", SubtopicID: "s2"})

	recs, _ := store.Progress(ctx, "u1")
	if len(recs) != 1 || !recs["s1"].Completed {
		t.Errorf("Progress(u1) = %+v", recs)
	}
}

func TestMemoryStore_RejectsMissingKey(t *testing.T) {
	ctx := context.Background()
	store := progress.NewMemoryStore()

	tests := []struct {
		name string
		err  error
	}{
		{"progress", store.SaveProgress(ctx, progress.Update{UserID: "u1"})},
		{"quiz", store.SaveQuizResult(ctx, progress.QuizResult{SubtopicID: "s1"})},
		{"final", store.SaveFinalTestResult(ctx, progress.FinalTestResult{UserID: "u1"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, progress.ErrInvalidUpdate) {
				t.Errorf("error = %v, want ErrInvalidUpdate", tt.err)
			}
		})
	}
}

func TestMemoryStore_FinalTestResults(t *testing.T) {
	ctx := context.Background()
	store := progress.NewMemoryStore()
	_ = store.SaveFinalTestResult(ctx, progress.FinalTestResult{UserID: "u1", LessonID: "l1", Score: 50})
	_ = store.SaveFinalTestResult(ctx, progress.FinalTestResult{UserID: "u1", LessonID: "l1", Score: 90})
	_ = store.SaveFinalTestResult(ctx, progress.FinalTestResult{UserID: "u1", LessonID: "l2", Score: 10})

	got, _ := store.FinalTestResults(ctx, "u1", "l1")
	if len(got) != 2 || got[0].Score != 50 || got[1].Score != 90 {
		t.Errorf("FinalTestResults() = %+v", got)
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should default to now")
	}
}

func TestAnnotate(t *testing.T) {
	l := &lesson.Lesson{Topics: []lesson.Topic{{Subtopics: []lesson.Subtopic{{ID: "a"}, {ID: "b"}}}}}
	progress.Annotate(l, map[string]progress.Record{
		"a":     {Completed: true, AIQuizScore: progress.Int(90)},
		"other": {Completed: true},
	})

	a, b := l.Topics[0].Subtopics[0], l.Topics[0].Subtopics[1]
	if !a.Completed || a.AIQuizScore == nil || *a.AIQuizScore != 90 {
		t.Errorf("subtopic a = %+v", a)
	}
	if b.Completed {
		t.Error("subtopic b should stay incomplete")
	}
	progress.Annotate(nil, nil)
}

type failingSink struct {
	mu    sync.Mutex
	calls int
}

func (f *failingSink) SaveProgress(context.Context, progress.Update) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return errors.New("db down")
}

func (f *failingSink) SaveQuizResult(context.Context, progress.QuizResult) error {
	return errors.New("db down")
}

func (f *failingSink) SaveFinalTestResult(context.Context, progress.FinalTestResult) error {
	return errors.New("db down")
}

func TestAsyncSink_Forwards(t *testing.T) {
	store := progress.NewMemoryStore()
	sink := progress.NewAsyncSink(store, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 10; i++ {
		if err := sink.SaveProgress(ctx, progress.Update{UserID: "u1", SubtopicID: "s1", Completed: true}); err != nil {
			t.Fatalf("SaveProgress() error = %v", err)
		}
	}
	_ = sink.SaveQuizResult(ctx, progress.QuizResult{UserID: "u1", SubtopicID: "s1", Score: 100})
	sink.Wait()

	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}
	if n := len(store.QuizResults()); n != 1 {
		t.Errorf("quiz results = %d, want 1", n)
	}
}

func TestAsyncSink_SwallowsErrors(t *testing.T) {
	next := &failingSink{}
	sink := progress.NewAsyncSink(next, 0)

	if err := sink.SaveProgress(context.Background(), progress.Update{UserID: "u1", SubtopicID: "s1"}); err != nil {
		t.Errorf("SaveProgress() error = %v, want nil", err)
	}
	if err := sink.SaveFinalTestResult(context.Background(), progress.FinalTestResult{UserID: "u1", LessonID: "l1"}); err != nil {
		t.Errorf("SaveFinalTestResult() error = %v, want nil", err)
	}
	sink.Wait()

	if next.calls != 1 {
		t.Errorf("calls = %d, want 1", next.calls)
	}
}
