package lesson_test

import (
	"errors"
	"testing"

	"github.com/cryptoedu/tutor/internal/lesson"
)

func sampleLesson() *lesson.Lesson {
	return &lesson.Lesson{
		ID:       "btc-101",
		Title:    "Bitcoin Basics",
		Language: "es-ES",
		Topics: []lesson.Topic{
			{ID: "t2", Order: 2, Subtopics: []lesson.Subtopic{{ID: "s3"}}},
			{ID: "t1", Order: 1, Subtopics: []lesson.Subtopic{
				{ID: "s1", KeyConcepts: []string{"ledger"}},
				{ID: "s2", Resources: []lesson.Resource{{ID: "r1", Type: lesson.ResourceVideo}}},
			}},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(l *lesson.Lesson)
		wantErr bool
	}{
		{"valid", func(*lesson.Lesson) {}, false},
		{"no topics", func(l *lesson.Lesson) { l.Topics = nil }, true},
		{"empty topic", func(l *lesson.Lesson) { l.Topics[0].Subtopics = nil }, true},
		{"duplicate order", func(l *lesson.Lesson) { l.Topics[0].Order = 1 }, true},
		{"missing id", func(l *lesson.Lesson) { l.ID = "" }, true},
		{"duplicate subtopic", func(l *lesson.Lesson) { l.Topics[0].Subtopics[0].ID = "s1" }, true},
		{"unknown resource type", func(l *lesson.Lesson) {
			l.Topics[1].Subtopics[1].Resources[0].Type = "podcast"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := sampleLesson()
			tt.mutate(l)
			err := lesson.Validate(l)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, lesson.ErrInvalidLesson) {
				t.Errorf("error should wrap ErrInvalidLesson, got %v", err)
			}
		})
	}
}

func TestValidate_Nil(t *testing.T) {
	if err := lesson.Validate(nil); !errors.Is(err, lesson.ErrInvalidLesson) {
		t.Errorf("Validate(nil) = %v, want ErrInvalidLesson", err)
	}
}

func TestNormalize_SortsTopicsAndLanguage(t *testing.T) {
	l := sampleLesson()
	lesson.Normalize(l)

	if l.Topics[0].ID != "t1" || l.Topics[1].ID != "t2" {
		t.Errorf("topics not sorted by order: %s, %s", l.Topics[0].ID, l.Topics[1].ID)
	}
	if l.Language != "es-ES" {
		t.Errorf("Language = %q, want es-ES", l.Language)
	}
}

func TestLanguageName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"es", "Spanish"},
		{"", "English"},
		{"not a tag!", "English"},
	}
	for _, tt := range tests {
		if got := lesson.LanguageName(tt.in); got != tt.want {
			t.Errorf("LanguageName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClone_IsDeep(t *testing.T) {
	l := sampleLesson()
	score := 50
	l.Topics[1].Subtopics[0].AIQuizScore = &score

	c := l.Clone()
	c.Topics[1].Subtopics[0].Completed = true
	c.Topics[1].Subtopics[0].KeyConcepts[0] = "changed"
	*c.Topics[1].Subtopics[0].AIQuizScore = 90

	orig := l.Topics[1].Subtopics[0]
	if orig.Completed || orig.KeyConcepts[0] != "ledger" || *orig.AIQuizScore != 50 {
		t.Errorf("Clone() shares state with original: %+v", orig)
	}
}

func TestSubtopicLookup(t *testing.T) {
	l := sampleLesson()

	if _, ok := l.Subtopic(5, 0); ok {
		t.Error("Subtopic(5,0) should be out of range")
	}
	if _, ok := (*lesson.Lesson)(nil).Subtopic(0, 0); ok {
		t.Error("Subtopic on nil lesson should be false")
	}
	s, ok := l.Subtopic(1, 1)
	if !ok || s.ID != "s2" {
		t.Errorf("Subtopic(1,1) = %v, %v", s, ok)
	}

	ti, si, ok := l.FindSubtopic("s3")
	if !ok || ti != 0 || si != 0 {
		t.Errorf("FindSubtopic(s3) = %d, %d, %v", ti, si, ok)
	}
}
