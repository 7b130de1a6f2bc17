package lesson

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ErrInvalidLesson marks a lesson tree that violates the aggregate invariants.
var ErrInvalidLesson = errors.New("invalid lesson")

// DefaultLanguage is used when a lesson carries no usable language tag.
var DefaultLanguage = language.English

// Validate checks the lesson invariants: at least one topic, every topic has
// at least one subtopic, topic order is unique, IDs are present and resource
// types are known.
func Validate(l *Lesson) error {
	if l == nil {
		return fmt.Errorf("%w: lesson is nil", ErrInvalidLesson)
	}
	if l.ID == "" {
		return fmt.Errorf("%w: lesson id is required", ErrInvalidLesson)
	}
	if len(l.Topics) == 0 {
		return fmt.Errorf("%w: lesson %s has no topics", ErrInvalidLesson, l.ID)
	}

	orders := make(map[int]string, len(l.Topics))
	subtopicIDs := make(map[string]bool)
	for _, t := range l.Topics {
		if t.ID == "" {
			return fmt.Errorf("%w: lesson %s has a topic without id", ErrInvalidLesson, l.ID)
		}
		if prev, dup := orders[t.Order]; dup {
			return fmt.Errorf("%w: topics %s and %s share order %d", ErrInvalidLesson, prev, t.ID, t.Order)
		}
		orders[t.Order] = t.ID
		if len(t.Subtopics) == 0 {
			return fmt.Errorf("%w: topic %s has no subtopics", ErrInvalidLesson, t.ID)
		}
		for _, s := range t.Subtopics {
			if s.ID == "" {
				return fmt.Errorf("%w: topic %s has a subtopic without id", ErrInvalidLesson, t.ID)
			}
			if subtopicIDs[s.ID] {
				return fmt.Errorf("%w: duplicate subtopic id %s", ErrInvalidLesson, s.ID)
			}
			subtopicIDs[s.ID] = true
			for _, r := range s.Resources {
				if !r.Type.Valid() {
					return fmt.Errorf("%w: subtopic %s resource %q has unknown type %q", ErrInvalidLesson, s.ID, r.ID, r.Type)
				}
			}
		}
	}
	return nil
}

// Normalize sorts topics by order and canonicalises the language tag.
func Normalize(l *Lesson) {
	if l == nil {
		return
	}
	sort.SliceStable(l.Topics, func(i, j int) bool {
		return l.Topics[i].Order < l.Topics[j].Order
	})
	l.Language = Tag(l.Language).String()
}

// Tag parses a BCP-47 language tag, falling back to DefaultLanguage.
func Tag(s string) language.Tag {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultLanguage
	}
	tag, err := language.Parse(s)
	if err != nil {
		return DefaultLanguage
	}
	return tag
}

// LanguageName returns the English name of a lesson language, e.g. "Spanish"
// for "es".
func LanguageName(s string) string {
	tag := Tag(s)
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return tag.String()
}
