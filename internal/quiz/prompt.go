package quiz

import (
	"fmt"
	"strings"

	"github.com/cryptoedu/tutor/internal/lesson"
)

const generatorSystemPrompt = `You write multiple-choice quiz questions for a cryptocurrency education course.

OUTPUT: a single JSON object, no prose, of the form
{"questions":[{"question":"...","options":["...","...","...","..."],"correct_answer":0,"explanation":"..."}]}

RULES:
- Exactly 4 options per question, one correct
- correct_answer is the 0-based index of the correct option
- Every question has a short explanation of why the answer is correct
- Test understanding, not trivia; vary which option index is correct
- Do not repeat or paraphrase any of the existing questions you are given`

func buildGeneratorPrompt(req GenerateRequest, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write %d challenge questions in %s.\n\n", count, lesson.LanguageName(req.Language))
	fmt.Fprintf(&b, "Subtopic: %s\n", req.SubtopicTitle)
	if req.Objective != "" {
		fmt.Fprintf(&b, "Learning objective: %s\n", req.Objective)
	}
	if len(req.KeyConcepts) > 0 {
		fmt.Fprintf(&b, "Key concepts: %s\n", strings.Join(req.KeyConcepts, ", "))
	}
	if len(req.Existing) > 0 {
		b.WriteString("\nExisting questions (do not repeat):\n")
		for _, q := range req.Existing {
			fmt.Fprintf(&b, "- %s\n", q.Question)
		}
	}
	return b.String()
}
