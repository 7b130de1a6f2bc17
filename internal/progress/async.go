package progress

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultWriteTimeout = 5 * time.Second

// AsyncSink forwards writes to another Sink on background goroutines. Calls
// return immediately with a nil error; failures are logged and dropped. The
// caller's context is detached from cancellation so closing a session does
// not abort an in-flight write.
type AsyncSink struct {
	next    Sink
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewAsyncSink wraps next. A zero timeout uses five seconds per write.
func NewAsyncSink(next Sink, timeout time.Duration) *AsyncSink {
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	return &AsyncSink{next: next, timeout: timeout}
}

func (a *AsyncSink) SaveProgress(ctx context.Context, u Update) error {
	a.spawn(ctx, func(ctx context.Context) error {
		return a.next.SaveProgress(ctx, u)
	}, "op", "save_progress", "user_id", u.UserID, "subtopic_id", u.SubtopicID)
	return nil
}

func (a *AsyncSink) SaveQuizResult(ctx context.Context, r QuizResult) error {
	a.spawn(ctx, func(ctx context.Context) error {
		return a.next.SaveQuizResult(ctx, r)
	}, "op", "save_quiz_result", "user_id", r.UserID, "subtopic_id", r.SubtopicID)
	return nil
}

func (a *AsyncSink) SaveFinalTestResult(ctx context.Context, r FinalTestResult) error {
	a.spawn(ctx, func(ctx context.Context) error {
		return a.next.SaveFinalTestResult(ctx, r)
	}, "op", "save_final_test_result", "user_id", r.UserID, "lesson_id", r.LessonID)
	return nil
}

// Wait blocks until every write started so far has finished.
func (a *AsyncSink) Wait() {
	a.wg.Wait()
}

func (a *AsyncSink) spawn(parent context.Context, write func(context.Context) error, attrs ...any) {
	if parent == nil {
		parent = context.Background()
	}
	base := context.WithoutCancel(parent)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(base, a.timeout)
		defer cancel()

		if err := write(ctx); err != nil {
			slog.Error("progress write failed", append(attrs, "error", err)...)
		}
	}()
}
