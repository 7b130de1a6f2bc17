package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const eventLogTimeout = 5 * time.Second

// TransitionEvent records one accepted transition for analytics.
type TransitionEvent struct {
	SessionID string
	UserID    string
	LessonID  string
	EventType string
	From      Mode
	To        Mode
	Data      map[string]any
	CreatedAt time.Time
}

// EventLogger persists transition events.
type EventLogger interface {
	LogEvent(ctx context.Context, event TransitionEvent) error
}

// NopEventLogger ignores all events.
type NopEventLogger struct{}

func (NopEventLogger) LogEvent(context.Context, TransitionEvent) error {
	return nil
}

// MemoryEventLogger stores events in memory for tests.
type MemoryEventLogger struct {
	mu     sync.Mutex
	events []TransitionEvent
}

func NewMemoryEventLogger() *MemoryEventLogger {
	return &MemoryEventLogger{events: []TransitionEvent{}}
}

func (l *MemoryEventLogger) LogEvent(_ context.Context, event TransitionEvent) error {
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()
	return nil
}

func (l *MemoryEventLogger) Events() []TransitionEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]TransitionEvent{}, l.events...)
}

// PostgresEventLogger inserts events into the session_events table.
type PostgresEventLogger struct {
	pool *pgxpool.Pool
}

func NewPostgresEventLogger(pool *pgxpool.Pool) *PostgresEventLogger {
	return &PostgresEventLogger{pool: pool}
}

func (l *PostgresEventLogger) LogEvent(ctx context.Context, event TransitionEvent) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("event logger pool is nil")
	}
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if event.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}

	payload := event.Data
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, eventLogTimeout)
	defer cancel()

	if _, err := l.pool.Exec(ctx,
		`INSERT INTO session_events (session_id, user_id, lesson_id, event_type, from_mode, to_mode, data, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8)`,
		event.SessionID,
		event.UserID,
		event.LessonID,
		event.EventType,
		string(event.From),
		string(event.To),
		string(data),
		createdAt,
	); err != nil {
		return fmt.Errorf("insert session event: %w", err)
	}

	slog.Debug("session event logged",
		"type", event.EventType,
		"session_id", event.SessionID,
		"user_id", event.UserID,
	)
	return nil
}
