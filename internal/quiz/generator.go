package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cryptoedu/tutor/internal/ai"
	"github.com/cryptoedu/tutor/internal/lesson"
)

const (
	defaultQuestionCount = 5
	defaultTimeout       = 45 * time.Second
	generatorMaxTokens   = 2048
)

// ErrBudgetExhausted is returned when the learner has no AI budget left.
var ErrBudgetExhausted = errors.New("ai budget exhausted")

// Completer is the slice of the AI router the generator needs.
type Completer interface {
	Complete(ctx context.Context, req ai.CompletionRequest) (ai.CompletionResponse, error)
}

// GenerateRequest describes the subtopic a challenge quiz is generated for.
type GenerateRequest struct {
	UserID        string
	SubtopicTitle string
	Objective     string
	KeyConcepts   []string
	Existing      []lesson.QuizQuestion
	Language      string
}

// GeneratorConfig holds dependencies for the quiz generator.
type GeneratorConfig struct {
	AI            Completer
	Budget        ai.BudgetChecker // optional
	QuestionCount int              // default 5
	Timeout       time.Duration    // default 45s
}

// Generator produces challenge quizzes with an LLM and validates them before
// they reach a session.
type Generator struct {
	ai            Completer
	budget        ai.BudgetChecker
	questionCount int
	timeout       time.Duration
}

// NewGenerator creates a quiz generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	count := cfg.QuestionCount
	if count <= 0 {
		count = defaultQuestionCount
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Generator{
		ai:            cfg.AI,
		budget:        cfg.Budget,
		questionCount: count,
		timeout:       timeout,
	}
}

// Generate asks the model for a fresh question set. The result is always
// schema-checked; a malformed payload yields ErrInvalidQuiz.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) ([]lesson.QuizQuestion, error) {
	if g.ai == nil {
		return nil, fmt.Errorf("quiz generator has no AI provider")
	}
	if req.SubtopicTitle == "" {
		return nil, fmt.Errorf("subtopic title is required")
	}

	if g.budget != nil && req.UserID != "" {
		ok, err := g.budget.Check(ctx, req.UserID)
		if err != nil {
			slog.Warn("budget check failed, allowing generation", "user_id", req.UserID, "error", err)
		} else if !ok {
			return nil, ErrBudgetExhausted
		}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.ai.Complete(ctx, ai.CompletionRequest{
		Messages: []ai.Message{
			{Role: "system", Content: generatorSystemPrompt},
			{Role: "user", Content: buildGeneratorPrompt(req, g.questionCount)},
		},
		Task:      ai.TaskQuizGeneration,
		MaxTokens: generatorMaxTokens,
		JSON:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("generate quiz: %w", err)
	}

	if g.budget != nil && req.UserID != "" {
		if err := g.budget.Record(ctx, req.UserID, resp.TotalTokens()); err != nil {
			slog.Warn("failed to record token usage", "user_id", req.UserID, "error", err)
		}
	}

	questions, err := ParseQuestions(resp.Content)
	if err != nil {
		slog.Warn("generated quiz rejected",
			"subtopic", req.SubtopicTitle,
			"model", resp.Model,
			"error", err,
		)
		return nil, err
	}

	slog.Debug("quiz generated",
		"subtopic", req.SubtopicTitle,
		"questions", len(questions),
		"model", resp.Model,
	)
	return questions, nil
}
