package quiz

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/cryptoedu/tutor/internal/lesson"
)

// ErrInvalidQuiz is returned when generated quiz content fails validation.
var ErrInvalidQuiz = errors.New("invalid quiz payload")

// questionSetSchema is the shape generated quizzes must have.
const questionSetSchema = `{
  "type": "object",
  "required": ["questions"],
  "properties": {
    "questions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["question", "options", "correct_answer", "explanation"],
        "properties": {
          "question": {"type": "string", "minLength": 1},
          "options": {
            "type": "array",
            "minItems": 4,
            "maxItems": 4,
            "items": {"type": "string", "minLength": 1}
          },
          "correct_answer": {"type": "integer", "minimum": 0, "maximum": 3},
          "explanation": {"type": "string", "minLength": 1}
        }
      }
    }
  }
}`

var (
	compiledOnce   sync.Once
	compiledSchema *gojsonschema.Schema
	compileErr     error
)

func questionSchema() (*gojsonschema.Schema, error) {
	compiledOnce.Do(func() {
		compiledSchema, compileErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(questionSetSchema))
	})
	return compiledSchema, compileErr
}

// ParseQuestions validates a raw model response against the question-set
// schema and decodes it. Markdown code fences and a bare top-level array are
// tolerated; anything else that does not match is rejected.
func ParseQuestions(raw string) ([]lesson.QuizQuestion, error) {
	payload := extractJSON(raw)
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrInvalidQuiz)
	}
	if payload[0] == '[' {
		payload = append(append([]byte(`{"questions":`), payload...), '}')
	}

	schema, err := questionSchema()
	if err != nil {
		return nil, fmt.Errorf("compile quiz schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuiz, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidQuiz, strings.Join(msgs, "; "))
	}

	var set struct {
		Questions []lesson.QuizQuestion `json:"questions"`
	}
	if err := json.Unmarshal(payload, &set); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuiz, err)
	}
	if err := ValidateQuestions(set.Questions); err != nil {
		return nil, err
	}
	return set.Questions, nil
}

// ValidateQuestions checks every question has four non-empty options, an
// answer index in 0..3 and an explanation.
func ValidateQuestions(qs []lesson.QuizQuestion) error {
	if len(qs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidQuiz, ErrNoQuestions)
	}
	for i, q := range qs {
		if err := ValidateQuestion(q); err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
	}
	return nil
}

// ValidateQuestion checks a single question.
func ValidateQuestion(q lesson.QuizQuestion) error {
	switch {
	case strings.TrimSpace(q.Question) == "":
		return fmt.Errorf("%w: question text is empty", ErrInvalidQuiz)
	case len(q.Options) != lesson.OptionCount:
		return fmt.Errorf("%w: want %d options, got %d", ErrInvalidQuiz, lesson.OptionCount, len(q.Options))
	case q.CorrectAnswer < 0 || q.CorrectAnswer >= lesson.OptionCount:
		return fmt.Errorf("%w: correct answer %d out of range", ErrInvalidQuiz, q.CorrectAnswer)
	case strings.TrimSpace(q.Explanation) == "":
		return fmt.Errorf("%w: explanation is empty", ErrInvalidQuiz)
	}
	for i, o := range q.Options {
		if strings.TrimSpace(o) == "" {
			return fmt.Errorf("%w: option %d is empty", ErrInvalidQuiz, i)
		}
	}
	return nil
}

// extractJSON strips code fences and surrounding prose from a model reply.
func extractJSON(raw string) []byte {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return nil
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return nil
	}
	return bytes.TrimSpace([]byte(s[start : end+1]))
}
