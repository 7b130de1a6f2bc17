package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cryptoedu/tutor/internal/content"
	"github.com/cryptoedu/tutor/internal/session"
)

const retryMessage = "something went wrong, please retry"

var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, session.ErrInvalidAnswer),
		errors.Is(err, session.ErrIncompleteAnswers):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, content.ErrLessonNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidTransition),
		errors.Is(err, session.ErrSessionClosed):
		return http.StatusConflict
	case errors.Is(err, session.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err to the client. Unexpected errors are logged and
// replaced by a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch {
	case status == http.StatusServiceUnavailable:
		slog.Warn("request failed", "path", r.URL.Path, "error", err)
		msg = retryMessage
	case status >= http.StatusInternalServerError:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = retryMessage
	}
	writeJSON(w, status, errorResponse{Error: msg})
}
