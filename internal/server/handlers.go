package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/cryptoedu/tutor/internal/progress"
	"github.com/cryptoedu/tutor/internal/session"
)

const maxBodyBytes = 1 << 16

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type startSessionRequest struct {
	LessonID string `json:"lesson_id"`
	UserID   string `json:"user_id"`
}

func (s *Server) handleListLessons(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"lessons": s.content.Lessons()})
}

func (s *Server) handleGetLesson(w http.ResponseWriter, r *http.Request) {
	l, err := s.content.Lesson(r.Context(), r.PathValue("id"), r.URL.Query().Get("user_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.LessonID == "" || req.UserID == "" {
		writeError(w, r, fmt.Errorf("%w: lesson_id and user_id are required", errBadRequest))
		return
	}

	sess, err := s.sessions.Start(r.Context(), req.UserID, req.LessonID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.View())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleSessionEvent(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var ev session.Event
	if err := decodeJSON(w, r, &ev); err != nil {
		writeError(w, r, err)
		return
	}
	if ev.Kind == "" {
		writeError(w, r, fmt.Errorf("%w: event type is required", errBadRequest))
		return
	}

	view, err := sess.Dispatch(r.Context(), ev)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Close(r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProgressReport(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	lessonID := r.PathValue("lesson_id")

	l, err := s.content.Lesson(r.Context(), lessonID, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var finals []progress.FinalTestResult
	if s.progress != nil {
		finals, err = s.progress.FinalTestResults(r.Context(), userID, lessonID)
		if err != nil {
			writeError(w, r, fmt.Errorf("load final test results: %w", err))
			return
		}
	}

	var buf bytes.Buffer
	if err := progress.WriteReport(&buf, l, userID, finals); err != nil {
		writeError(w, r, err)
		return
	}

	filename := fmt.Sprintf("%s-%s-progress.xlsx", userID, lessonID)
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(filename)))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}
