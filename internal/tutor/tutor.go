// Package tutor runs the chat-mode conversation a learner has with the AI
// tutor about the current subtopic.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cryptoedu/tutor/internal/ai"
)

const (
	defaultCompactThreshold      = 20
	defaultCompactTokenThreshold = 20000 // ~20k tokens triggers compaction
	defaultKeepRecent            = 6
	replyMaxTokens               = 1024
	summaryMaxTokens             = 256
)

// Fixed replies shown instead of model output.
const (
	FallbackReply = "Sorry, I'm having a technical problem right now. Please try again in a moment."
	BudgetReply   = "You've used today's tutor allowance. Your progress is saved, so keep going with the lesson and come back tomorrow for more chat."
)

// ErrEmptyMessage is returned for a blank learner message.
var ErrEmptyMessage = errors.New("message is empty")

// Completer is the slice of the AI router the tutor needs.
type Completer interface {
	Complete(ctx context.Context, req ai.CompletionRequest) (ai.CompletionResponse, error)
}

// Scope pins a conversation to a learner and subtopic.
type Scope struct {
	UserID      string
	LessonTitle string
	SubtopicID  string
	Subtopic    string
	Objective   string
	KeyConcepts []string
	Language    string
}

// Config holds dependencies for the tutor.
type Config struct {
	AI                    Completer
	Store                 ConversationStore
	Budget                ai.BudgetChecker // optional
	CompactThreshold      int              // messages before compaction triggers (default 20)
	CompactTokenThreshold int              // estimated tokens before compaction triggers (default 20000)
	KeepRecent            int              // recent messages to keep after compaction (default 6)
}

// Tutor answers learner messages with the current subtopic as context.
type Tutor struct {
	ai                    Completer
	store                 ConversationStore
	budget                ai.BudgetChecker
	compactThreshold      int
	compactTokenThreshold int
	keepRecent            int
}

// New creates a tutor.
func New(cfg Config) *Tutor {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	threshold := cfg.CompactThreshold
	if threshold == 0 {
		threshold = defaultCompactThreshold
	}
	tokenThreshold := cfg.CompactTokenThreshold
	if tokenThreshold == 0 {
		tokenThreshold = defaultCompactTokenThreshold
	}
	keepRecent := cfg.KeepRecent
	if keepRecent == 0 {
		keepRecent = defaultKeepRecent
	}
	return &Tutor{
		ai:                    cfg.AI,
		store:                 store,
		budget:                cfg.Budget,
		compactThreshold:      threshold,
		compactTokenThreshold: tokenThreshold,
		keepRecent:            keepRecent,
	}
}

// Greeting is the first message shown when a chat opens.
func (t *Tutor) Greeting(scope Scope) string {
	return fmt.Sprintf("Hi! Let's talk about %q. Ask me anything, or type /reset to start over.", scope.Subtopic)
}

// Reply records the learner's message and returns the tutor's answer. AI
// failures produce FallbackReply rather than an error.
func (t *Tutor) Reply(ctx context.Context, scope Scope, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}

	slog.Info("processing tutor message",
		"user_id", scope.UserID,
		"subtopic_id", scope.SubtopicID,
		"text_len", len(text),
	)

	if strings.HasPrefix(text, "/") {
		return t.handleCommand(ctx, scope, text)
	}

	if t.budget != nil {
		ok, err := t.budget.Check(ctx, scope.UserID)
		if err != nil {
			slog.Warn("budget check failed, allowing message", "user_id", scope.UserID, "error", err)
		} else if !ok {
			return BudgetReply, nil
		}
	}

	conv, err := t.getOrCreateConversation(ctx, scope)
	if err != nil {
		slog.Error("failed to get conversation", "error", err)
		return FallbackReply, nil
	}

	if err := t.store.AddMessage(ctx, conv.ID, StoredMessage{Role: "user", Content: text}); err != nil {
		slog.Error("failed to store user message", "error", err)
	}

	if fresh, err := t.store.GetConversation(ctx, conv.ID); err == nil {
		conv = fresh
	}

	t.maybeCompact(ctx, conv)

	messages := []ai.Message{{Role: "system", Content: buildSystemPrompt(scope)}}
	messages = append(messages, buildContextMessages(conv)...)

	if t.ai == nil {
		return FallbackReply, nil
	}
	resp, err := t.ai.Complete(ctx, ai.CompletionRequest{
		Messages:  messages,
		Task:      ai.TaskTutoring,
		MaxTokens: replyMaxTokens,
	})
	if err != nil {
		slog.Error("AI completion failed", "error", err)
		return FallbackReply, nil
	}

	if err := t.store.AddMessage(ctx, conv.ID, StoredMessage{
		Role:         "assistant",
		Content:      resp.Content,
		Model:        resp.Model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	}); err != nil {
		slog.Error("failed to store assistant message", "error", err)
	}
	t.recordUsage(ctx, scope.UserID, resp)

	return resp.Content, nil
}

// End closes the learner's active conversation for the subtopic, if any.
func (t *Tutor) End(ctx context.Context, scope Scope) error {
	conv, found := t.store.GetActiveConversation(ctx, scope.UserID, scope.SubtopicID)
	if !found {
		return nil
	}
	return t.store.EndConversation(ctx, conv.ID)
}

// History returns the active conversation's messages for the subtopic.
func (t *Tutor) History(ctx context.Context, scope Scope) []StoredMessage {
	conv, found := t.store.GetActiveConversation(ctx, scope.UserID, scope.SubtopicID)
	if !found {
		return nil
	}
	return conv.Messages
}

// buildContextMessages returns the conversation messages for the AI prompt.
// If a summary exists, it prepends it and only includes messages after the
// compaction point.
func buildContextMessages(conv *Conversation) []ai.Message {
	var messages []ai.Message

	recent := conv.Messages
	if conv.Summary != "" {
		messages = append(messages,
			ai.Message{Role: "user", Content: "Previous conversation summary:\n" + conv.Summary},
			ai.Message{Role: "assistant", Content: "Understood, I'll continue based on our previous conversation."},
		)
		recent = conv.Messages[conv.CompactedAt:]
	}
	for _, m := range recent {
		messages = append(messages, ai.Message{Role: m.Role, Content: m.Content})
	}
	return messages
}

// estimateTokens gives a rough token count for messages (1 token ≈ 4 chars).
func estimateTokens(messages []StoredMessage) int {
	total := 0
	for _, m := range messages {
		total += len(m.Content) / 4
	}
	return total
}

// maybeCompact summarises older messages once the uncompacted tail exceeds
// the message or token threshold.
func (t *Tutor) maybeCompact(ctx context.Context, conv *Conversation) {
	if t.ai == nil {
		return
	}
	uncompacted := conv.Messages[conv.CompactedAt:]
	if len(uncompacted) <= t.compactThreshold && estimateTokens(uncompacted) <= t.compactTokenThreshold {
		return
	}

	compactUpTo := len(conv.Messages) - t.keepRecent
	if compactUpTo <= conv.CompactedAt {
		return
	}

	resp, err := t.ai.Complete(ctx, ai.CompletionRequest{
		Messages: []ai.Message{
			{Role: "system", Content: summarySystemPrompt},
			{Role: "user", Content: buildSummaryInput(conv.Summary, conv.Messages[conv.CompactedAt:compactUpTo])},
		},
		Task:      ai.TaskSummary,
		MaxTokens: summaryMaxTokens,
	})
	if err != nil {
		slog.Warn("compaction failed, continuing without summary", "error", err)
		return
	}
	t.recordUsage(ctx, conv.UserID, resp)

	if err := t.store.SetSummary(ctx, conv.ID, resp.Content, compactUpTo); err != nil {
		slog.Warn("failed to save summary", "error", err)
		return
	}

	conv.Summary = resp.Content
	conv.CompactedAt = compactUpTo

	slog.Info("conversation compacted",
		"conversation_id", conv.ID,
		"compacted_messages", compactUpTo,
		"remaining_messages", len(conv.Messages)-compactUpTo,
	)
}

func (t *Tutor) recordUsage(ctx context.Context, userID string, resp ai.CompletionResponse) {
	if t.budget == nil {
		return
	}
	if err := t.budget.Record(ctx, userID, resp.InputTokens+resp.OutputTokens); err != nil {
		slog.Warn("failed to record token usage", "user_id", userID, "error", err)
	}
}

func (t *Tutor) getOrCreateConversation(ctx context.Context, scope Scope) (*Conversation, error) {
	if conv, found := t.store.GetActiveConversation(ctx, scope.UserID, scope.SubtopicID); found {
		return conv, nil
	}
	id, err := t.store.CreateConversation(ctx, Conversation{
		UserID:     scope.UserID,
		SubtopicID: scope.SubtopicID,
		State:      defaultState,
	})
	if err != nil {
		return nil, err
	}
	return t.store.GetConversation(ctx, id)
}

func (t *Tutor) handleCommand(ctx context.Context, scope Scope, text string) (string, error) {
	cmd := strings.Fields(text)[0]

	switch cmd {
	case "/reset":
		if err := t.End(ctx, scope); err != nil {
			slog.Error("failed to end conversation", "error", err)
		}
		return t.Greeting(scope), nil
	default:
		return fmt.Sprintf("Unknown command: %s\nType /reset to start the chat over.", cmd), nil
	}
}
