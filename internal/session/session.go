// Package session runs the lesson-progression state machine. A Session moves
// a learner through learning, tutor chat, practice and challenge quizzes and
// the final test. All transitions go through Dispatch and the transition
// table; anything outside the table is rejected without touching state.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cryptoedu/tutor/internal/lesson"
	"github.com/cryptoedu/tutor/internal/progress"
	"github.com/cryptoedu/tutor/internal/quiz"
)

var (
	// ErrInvalidTransition is returned for an event the current mode does
	// not accept.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrIncompleteAnswers is returned when a quiz is submitted with open
	// questions.
	ErrIncompleteAnswers = errors.New("quiz has unanswered questions")
	// ErrInvalidAnswer is returned for an answer to a missing question or
	// option.
	ErrInvalidAnswer = errors.New("invalid answer")
	// ErrUnavailable is returned when the lesson cannot be loaded.
	ErrUnavailable = errors.New("lesson unavailable")
	// ErrSessionNotFound is returned for an unknown session ID.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionClosed is returned for events sent after Close.
	ErrSessionClosed = errors.New("session closed")
)

// ContentSource provides lessons and authored quizzes.
type ContentSource interface {
	Lesson(ctx context.Context, lessonID, userID string) (*lesson.Lesson, error)
	PracticeQuiz(ctx context.Context, subtopicID string) ([]lesson.QuizQuestion, error)
	FinalTest(ctx context.Context, lessonID string) ([]lesson.QuizQuestion, error)
}

// QuizGenerator produces validated challenge questions.
type QuizGenerator interface {
	Generate(ctx context.Context, req quiz.GenerateRequest) ([]lesson.QuizQuestion, error)
}

// Config holds session dependencies.
type Config struct {
	Content   ContentSource
	Generator QuizGenerator // optional; nil always uses the fallback question
	Progress  progress.Sink // optional
	Events    EventLogger   // optional
}

// Session is one learner's pass through a lesson. It is safe for concurrent
// use; events are applied one at a time. Reads (View, Mode, Chat) return the
// state published by the last completed transition and never wait on one in
// progress.
type Session struct {
	id        string
	userID    string
	content   ContentSource
	generator QuizGenerator
	sink      progress.Sink
	events    EventLogger

	ctx    context.Context
	cancel context.CancelFunc
	logs   sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	lesson   *lesson.Lesson
	mode     Mode
	topic    int
	sub      int
	attempt  *quiz.Attempt
	practice []lesson.QuizQuestion

	snapMu     sync.RWMutex
	snap       View
	snapChat   *ChatContext // set only in chat mode
	snapClosed bool

	lastActive atomic.Int64 // unix nanoseconds
}

// New loads the lesson annotated with userID's progress and starts a session
// in learning mode at the first subtopic. ctx bounds only the load; the
// session keeps its own context until Close.
func New(ctx context.Context, cfg Config, id, userID, lessonID string) (*Session, error) {
	if cfg.Content == nil {
		return nil, fmt.Errorf("content source is required")
	}

	les, err := cfg.Content.Lesson(ctx, lessonID, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err := lesson.Validate(les); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}

	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Session{
		id:        id,
		userID:    userID,
		content:   cfg.Content,
		generator: cfg.Generator,
		sink:      cfg.Progress,
		events:    events,
		ctx:       sctx,
		cancel:    cancel,
		lesson:    les,
		mode:      ModeLearning,
	}
	s.touch()
	s.publish()
	return s, nil
}

// ID returns the session ID.
func (s *Session) ID() string { return s.id }

// UserID returns the learner the session belongs to.
func (s *Session) UserID() string { return s.userID }

// Dispatch applies ev and returns the resulting view. Rejected events leave
// the session unchanged. Content requests made by the transition are
// abandoned when either ctx or the session is cancelled.
func (s *Session) Dispatch(ctx context.Context, ev Event) (View, error) {
	s.touch()
	defer s.touch()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return View{}, ErrSessionClosed
	}

	from := s.mode
	fn, ok := lookup(from, ev.Kind)
	if !ok {
		return s.view(), fmt.Errorf("%w: %s in %s mode", ErrInvalidTransition, ev.Kind, from)
	}

	opCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := fn(s, opCtx, ev); err != nil {
		return s.view(), err
	}

	if ev.Kind != EventAnswer {
		slog.Info("session transition",
			"session_id", s.id,
			"user_id", s.userID,
			"event", ev.Kind,
			"from", from,
			"to", s.mode,
		)
	}
	s.logTransition(ev, from)
	s.publish()
	return s.view(), nil
}

// View returns the projection published by the last completed transition.
// The result is shared between callers and must not be modified.
func (s *Session) View() View {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap
}

// Mode returns the current mode.
func (s *Session) Mode() Mode {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap.Mode
}

// LastActive returns when the session last received an event or was looked
// up.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

func (s *Session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

// publish copies the current state into the read snapshot. The caller holds
// s.mu.
func (s *Session) publish() {
	v := s.view()
	var chat *ChatContext
	if s.mode == ModeChat {
		c := s.chatContext()
		chat = &c
	}

	s.snapMu.Lock()
	s.snap = v
	s.snapChat = chat
	s.snapClosed = s.closed
	s.snapMu.Unlock()
}

// ChatContext describes the subtopic a tutor conversation is scoped to.
type ChatContext struct {
	UserID      string
	LessonTitle string
	SubtopicID  string
	Subtopic    string
	Objective   string
	KeyConcepts []string
	Language    string
}

// Chat returns the tutor context when the session is in chat mode.
func (s *Session) Chat() (ChatContext, bool) {
	s.touch()

	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	if s.snapClosed || s.snapChat == nil {
		return ChatContext{}, false
	}
	c := *s.snapChat
	c.KeyConcepts = append([]string(nil), c.KeyConcepts...)
	return c, true
}

func (s *Session) chatContext() ChatContext {
	sub := s.current()
	return ChatContext{
		UserID:      s.userID,
		LessonTitle: s.lesson.Title,
		SubtopicID:  sub.ID,
		Subtopic:    sub.Title,
		Objective:   sub.Objective,
		KeyConcepts: append([]string(nil), sub.KeyConcepts...),
		Language:    s.lesson.Language,
	}
}

// Close cancels in-flight content requests and waits for pending transition
// log writes. Close is idempotent.
func (s *Session) Close() {
	s.cancel()

	s.snapMu.Lock()
	s.snapClosed = true
	s.snapMu.Unlock()

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.logs.Wait()
}

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

func (s *Session) current() *lesson.Subtopic {
	sub, _ := s.lesson.Subtopic(s.topic, s.sub)
	return sub
}

func (s *Session) saveProgress(ctx context.Context, u progress.Update) {
	if s.sink == nil {
		return
	}
	if err := s.sink.SaveProgress(ctx, u); err != nil {
		slog.Warn("progress write failed", "session_id", s.id, "subtopic_id", u.SubtopicID, "error", err)
	}
}

func (s *Session) saveQuizResult(ctx context.Context, r progress.QuizResult) {
	if s.sink == nil {
		return
	}
	if err := s.sink.SaveQuizResult(ctx, r); err != nil {
		slog.Warn("quiz result write failed", "session_id", s.id, "subtopic_id", r.SubtopicID, "error", err)
	}
}

func (s *Session) saveFinalTestResult(ctx context.Context, r progress.FinalTestResult) {
	if s.sink == nil {
		return
	}
	if err := s.sink.SaveFinalTestResult(ctx, r); err != nil {
		slog.Warn("final test result write failed", "session_id", s.id, "lesson_id", r.LessonID, "error", err)
	}
}

func (s *Session) logTransition(ev Event, from Mode) {
	data := map[string]any{
		"topic":    s.topic,
		"subtopic": s.sub,
	}
	if ev.Kind == EventAnswer {
		data["question"] = ev.Question
		data["option"] = ev.Option
	}
	if s.attempt != nil && s.attempt.Submitted {
		data["score"] = s.attempt.Score
		data["quiz_type"] = string(s.attempt.Type)
	}
	event := TransitionEvent{
		SessionID: s.id,
		UserID:    s.userID,
		LessonID:  s.lesson.ID,
		EventType: string(ev.Kind),
		From:      from,
		To:        s.mode,
		Data:      data,
	}

	s.logs.Add(1)
	go func() {
		defer s.logs.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), eventLogTimeout)
		defer cancel()
		if err := s.events.LogEvent(ctx, event); err != nil {
			slog.Warn("session event log failed", "session_id", event.SessionID, "event", event.EventType, "error", err)
		}
	}()
}
