// Package server exposes lessons, sessions, tutor chat and progress reports
// over HTTP.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/cryptoedu/tutor/internal/content"
	"github.com/cryptoedu/tutor/internal/lesson"
	"github.com/cryptoedu/tutor/internal/progress"
	"github.com/cryptoedu/tutor/internal/session"
	"github.com/cryptoedu/tutor/internal/tutor"
)

const readyTimeout = 2 * time.Second

// Catalog serves lessons annotated with a learner's progress.
type Catalog interface {
	Lessons() []content.Summary
	Lesson(ctx context.Context, lessonID, userID string) (*lesson.Lesson, error)
}

// ChatTutor answers learner messages in chat mode.
type ChatTutor interface {
	Greeting(scope tutor.Scope) string
	History(ctx context.Context, scope tutor.Scope) []tutor.StoredMessage
	Reply(ctx context.Context, scope tutor.Scope, text string) (string, error)
}

// HealthChecker is a dependency checked by /readyz.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Config holds the server's dependencies. Tutor and Checks are optional.
type Config struct {
	Content  Catalog
	Sessions *session.Manager
	Progress progress.Reader
	Tutor    ChatTutor
	Checks   map[string]HealthChecker
}

// Server routes HTTP requests to the session manager and its collaborators.
type Server struct {
	content  Catalog
	sessions *session.Manager
	progress progress.Reader
	tutor    ChatTutor
	checks   map[string]HealthChecker
}

// New creates a server.
func New(cfg Config) *Server {
	return &Server{
		content:  cfg.Content,
		sessions: cfg.Sessions,
		progress: cfg.Progress,
		tutor:    cfg.Tutor,
		checks:   cfg.Checks,
	}
}

// Handler returns the HTTP router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("GET /v1/lessons", s.handleListLessons)
	mux.HandleFunc("GET /v1/lessons/{id}", s.handleGetLesson)

	mux.HandleFunc("POST /v1/sessions", s.handleStartSession)
	mux.HandleFunc("GET /v1/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("POST /v1/sessions/{id}/events", s.handleSessionEvent)
	mux.HandleFunc("DELETE /v1/sessions/{id}", s.handleCloseSession)
	mux.HandleFunc("GET /v1/sessions/{id}/chat", s.handleChat)

	mux.HandleFunc("GET /v1/users/{user_id}/lessons/{lesson_id}/progress.xlsx", s.handleProgressReport)
	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	for name, c := range s.checks {
		if err := c.HealthCheck(ctx); err != nil {
			slog.Warn("readiness check failed", "dependency", name, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "dependency": name})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}
