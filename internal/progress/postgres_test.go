package progress_test

import (
	"testing"

	"github.com/cryptoedu/tutor/internal/platform/database/databasetest"
	"github.com/cryptoedu/tutor/internal/progress"
)

func TestPostgresStore_Integration(t *testing.T) {
	db := databasetest.New(t)
	ctx := t.Context()

	store, err := progress.NewPostgresStore(db.Pool)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}

	updates := []progress.Update{
		{UserID: "u1", SubtopicID: "s1", Completed: true, DBQuizScore: progress.Int(70)},
		{UserID: "u1", SubtopicID: "s1", AIQuizScore: progress.Int(40)},
		{UserID: "u1", SubtopicID: "s1", Completed: true},
	}
	for _, u := range updates {
		if err := store.SaveProgress(ctx, u); err != nil {
			t.Fatalf("SaveProgress() error = %v", err)
		}
	}

	recs, err := store.Progress(ctx, "u1")
	if err != nil {
		t.Fatalf("Progress() error = %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("records = %d, want 1", len(recs))
	}
	rec := recs["s1"]
	if !rec.Completed || rec.DBQuizScore == nil || *rec.DBQuizScore != 70 || rec.AIQuizScore == nil || *rec.AIQuizScore != 40 {
		t.Errorf("record = %+v", rec)
	}

	if err := store.SaveQuizResult(ctx, progress.QuizResult{UserID: "u1", SubtopicID: "s1", Score: 40, QuizType: "challenge", Answers: []int{0, 1}}); err != nil {
		t.Fatalf("SaveQuizResult() error = %v", err)
	}
	if err := store.SaveFinalTestResult(ctx, progress.FinalTestResult{UserID: "u1", LessonID: "l1", Score: 88}); err != nil {
		t.Fatalf("SaveFinalTestResult() error = %v", err)
	}
	finals, err := store.FinalTestResults(ctx, "u1", "l1")
	if err != nil {
		t.Fatalf("FinalTestResults() error = %v", err)
	}
	if len(finals) != 1 || finals[0].Score != 88 {
		t.Errorf("finals = %+v", finals)
	}
}

func TestNewPostgresStore_NilPool(t *testing.T) {
	if _, err := progress.NewPostgresStore(nil); err == nil {
		t.Fatal("NewPostgresStore(nil) should fail")
	}
}
