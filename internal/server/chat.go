package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/cryptoedu/tutor/internal/session"
	"github.com/cryptoedu/tutor/internal/tutor"
)

// chatMessage is one frame on the chat socket in either direction.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// handleChat upgrades to a WebSocket and relays learner messages to the
// tutor. The socket is only accepted while the session is in chat mode and
// is closed once the session leaves that subtopic's chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if s.tutor == nil {
		writeError(w, r, session.ErrUnavailable)
		return
	}
	cc, ok := sess.Chat()
	if !ok {
		writeError(w, r, session.ErrInvalidTransition)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "session_id", sess.ID(), "error", err)
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		select {
		case <-sess.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	scope := scopeFor(cc)
	if err := s.sendOpening(ctx, conn, scope); err != nil {
		return
	}

	for {
		var in chatMessage
		if err := wsjson.Read(ctx, conn, &in); err != nil {
			logChatClose(sess.ID(), err)
			return
		}

		if current, ok := sess.Chat(); !ok || current.SubtopicID != cc.SubtopicID {
			conn.Close(websocket.StatusNormalClosure, "chat ended")
			return
		}

		reply, err := s.tutor.Reply(ctx, scope, in.Content)
		if errors.Is(err, tutor.ErrEmptyMessage) {
			continue
		}
		if err != nil {
			slog.Error("tutor reply failed", "session_id", sess.ID(), "error", err)
			reply = tutor.FallbackReply
		}
		if err := wsjson.Write(ctx, conn, chatMessage{Role: "assistant", Content: reply}); err != nil {
			logChatClose(sess.ID(), err)
			return
		}
	}
}

// sendOpening replays the active conversation, or greets the learner when
// there is none.
func (s *Server) sendOpening(ctx context.Context, conn *websocket.Conn, scope tutor.Scope) error {
	history := s.tutor.History(ctx, scope)
	if len(history) == 0 {
		return wsjson.Write(ctx, conn, chatMessage{Role: "assistant", Content: s.tutor.Greeting(scope)})
	}
	for _, m := range history {
		if err := wsjson.Write(ctx, conn, chatMessage{Role: m.Role, Content: m.Content}); err != nil {
			return err
		}
	}
	return nil
}

func scopeFor(cc session.ChatContext) tutor.Scope {
	return tutor.Scope{
		UserID:      cc.UserID,
		LessonTitle: cc.LessonTitle,
		SubtopicID:  cc.SubtopicID,
		Subtopic:    cc.Subtopic,
		Objective:   cc.Objective,
		KeyConcepts: cc.KeyConcepts,
		Language:    cc.Language,
	}
}

func logChatClose(sessionID string, err error) {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	slog.Warn("chat socket closed", "session_id", sessionID, "error", err)
}
