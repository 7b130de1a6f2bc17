// Package ai talks to chat-completion providers. A Router picks a provider
// per task and falls back along the registration order.
package ai

import "context"

// TaskType tags a request so the router can prefer a provider for it.
type TaskType int

const (
	TaskTutoring TaskType = iota
	TaskQuizGeneration
	TaskSummary
)

func (t TaskType) String() string {
	switch t {
	case TaskTutoring:
		return "tutoring"
	case TaskQuizGeneration:
		return "quiz_generation"
	case TaskSummary:
		return "summary"
	default:
		return "unknown"
	}
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the input to a completion. A zero Model uses the
// provider's default.
type CompletionRequest struct {
	Messages    []Message
	Model       string
	MaxTokens   int
	Temperature float64
	Task        TaskType
	// JSON asks providers that support it to constrain output to a JSON object.
	JSON bool
}

// CompletionResponse is a provider's answer and its token usage.
type CompletionResponse struct {
	Content      string
	Model        string
	InputTokens  int
	OutputTokens int
}

// TotalTokens is what a completion costs against a user's budget.
func (r CompletionResponse) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// Provider completes chat requests.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}
