package tutor

import (
	"fmt"
	"strings"

	"github.com/cryptoedu/tutor/internal/lesson"
)

const summarySystemPrompt = `Summarize this tutoring conversation concisely. Capture:
- Concepts discussed
- What the learner understood or struggled with
- Any examples worked through
Keep the summary under 150 words. Write in the same language used in the conversation.`

func buildSystemPrompt(scope Scope) string {
	var b strings.Builder
	b.WriteString("You are a friendly and patient tutor for a cryptocurrency and blockchain course.\n\n")
	if scope.LessonTitle != "" {
		fmt.Fprintf(&b, "LESSON: %s\n", scope.LessonTitle)
	}
	fmt.Fprintf(&b, "SUBTOPIC: %s\n", scope.Subtopic)
	if scope.Objective != "" {
		fmt.Fprintf(&b, "OBJECTIVE: %s\n", scope.Objective)
	}
	if len(scope.KeyConcepts) > 0 {
		fmt.Fprintf(&b, "KEY CONCEPTS: %s\n", strings.Join(scope.KeyConcepts, ", "))
	}
	fmt.Fprintf(&b, "LANGUAGE: Respond in %s.\n", lesson.LanguageName(scope.Language))
	b.WriteString(`
TEACHING STYLE:
- Start with what the learner knows and build from there
- Use everyday analogies before technical terms
- Keep answers short; this is a chat, not a textbook
- If the learner is stuck, give a hint before the answer

RULES:
- Stay on the subtopic; steer unrelated questions back gently
- Never give financial or investment advice
- Check understanding before moving on
- The learner takes a quiz after this chat, so do not quiz them on its exact questions`)
	return b.String()
}

func buildSummaryInput(previous string, messages []StoredMessage) string {
	var b strings.Builder
	if previous != "" {
		b.WriteString("Previous summary:\n")
		b.WriteString(previous)
		b.WriteString("\n\nNew messages to incorporate:\n")
	}
	for _, m := range messages {
		role := "Learner"
		if m.Role == "assistant" {
			role = "Tutor"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, m.Content)
	}
	return b.String()
}
