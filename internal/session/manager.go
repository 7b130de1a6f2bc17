package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager keeps live sessions in memory. Sessions nobody closes are reclaimed
// by Sweep once they go idle.
type Manager struct {
	cfg      Config
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager that builds sessions from cfg.
func NewManager(cfg Config) *Manager {
	return &Manager{
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// Start opens a new session for userID on lessonID.
func (m *Manager) Start(ctx context.Context, userID, lessonID string) (*Session, error) {
	if userID == "" || lessonID == "" {
		return nil, fmt.Errorf("user_id and lesson_id are required")
	}

	s, err := New(ctx, m.cfg, uuid.NewString(), userID, lessonID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	slog.Info("session started", "session_id", s.ID(), "user_id", userID, "lesson_id", lessonID)
	return s, nil
}

// Get returns a live session and marks it active.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.touch()
	return s, nil
}

// Close closes and forgets a session.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.Close()
	slog.Info("session closed", "session_id", id)
	return nil
}

// CloseAll closes every live session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	if len(sessions) > 0 {
		slog.Info("sessions closed", "count", len(sessions))
	}
}

// Sweep closes and forgets every session with no activity since cutoff. It
// returns the number of sessions closed.
func (m *Manager) Sweep(cutoff time.Time) int {
	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.Close()
		slog.Info("idle session closed", "session_id", s.ID(), "user_id", s.UserID())
	}
	return len(idle)
}

// RunSweeper closes sessions idle for longer than idle until ctx is done. It
// blocks; run it on its own goroutine.
func (m *Manager) RunSweeper(ctx context.Context, idle time.Duration) {
	if idle <= 0 {
		return
	}
	ticker := time.NewTicker(max(idle/4, time.Second))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Sweep(now.Add(-idle))
		}
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
