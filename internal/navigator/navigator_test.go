package navigator_test

import (
	"testing"

	"github.com/cryptoedu/tutor/internal/lesson"
	"github.com/cryptoedu/tutor/internal/navigator"
)

// twoByTwo builds a lesson with two topics of two subtopics each.
func twoByTwo() *lesson.Lesson {
	return &lesson.Lesson{
		ID: "l1",
		Topics: []lesson.Topic{
			{ID: "t1", Subtopics: []lesson.Subtopic{{ID: "a"}, {ID: "b"}}},
			{ID: "t2", Subtopics: []lesson.Subtopic{{ID: "c"}, {ID: "d"}}},
		},
	}
}

func complete(l *lesson.Lesson, t, s int) {
	l.Topics[t].Subtopics[s].Completed = true
}

func TestIsSubtopicAvailable_FirstAlwaysOpen(t *testing.T) {
	l := twoByTwo()
	if !navigator.IsSubtopicAvailable(l, 0, 0) {
		t.Error("IsSubtopicAvailable(0,0) = false on a fresh lesson")
	}
	complete(l, 1, 1)
	if !navigator.IsSubtopicAvailable(l, 0, 0) {
		t.Error("IsSubtopicAvailable(0,0) = false with unrelated progress")
	}
}

func TestIsSubtopicAvailable_MalformedLesson(t *testing.T) {
	tests := []struct {
		name string
		l    *lesson.Lesson
	}{
		{"nil lesson", nil},
		{"no topics", &lesson.Lesson{}},
		{"empty first topic", &lesson.Lesson{Topics: []lesson.Topic{{ID: "t1"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if navigator.IsSubtopicAvailable(tt.l, 0, 0) {
				t.Error("IsSubtopicAvailable(0,0) = true, want false")
			}
		})
	}
}

func TestIsSubtopicAvailable_Linear(t *testing.T) {
	l := twoByTwo()

	if navigator.IsSubtopicAvailable(l, 0, 1) {
		t.Error("(0,1) should be locked before (0,0) is completed")
	}
	if navigator.IsSubtopicAvailable(l, 1, 0) {
		t.Error("(1,0) should be locked before topic 0 is completed")
	}

	complete(l, 0, 0)
	if !navigator.IsSubtopicAvailable(l, 0, 1) {
		t.Error("(0,1) should open after (0,0) is completed")
	}
	if navigator.IsSubtopicAvailable(l, 1, 0) {
		t.Error("(1,0) should stay locked while (0,1) is open")
	}

	complete(l, 0, 1)
	if !navigator.IsSubtopicAvailable(l, 1, 0) {
		t.Error("(1,0) should open once topic 0 is completed")
	}
	if navigator.IsSubtopicAvailable(l, 1, 1) {
		t.Error("(1,1) should stay locked before (1,0) is completed")
	}
}

func TestIsSubtopicAvailable_OnlyImmediatePredecessorMatters(t *testing.T) {
	l := &lesson.Lesson{Topics: []lesson.Topic{{Subtopics: []lesson.Subtopic{{}, {}, {}}}}}
	complete(l, 0, 1)
	if !navigator.IsSubtopicAvailable(l, 0, 2) {
		t.Error("(0,2) depends only on (0,1)")
	}
}

func TestIsSubtopicAvailable_OutOfRange(t *testing.T) {
	l := twoByTwo()
	cases := [][2]int{{0, 5}, {5, 0}, {-1, 0}, {0, -1}, {2, 0}}
	for _, c := range cases {
		if navigator.IsSubtopicAvailable(l, c[0], c[1]) {
			t.Errorf("IsSubtopicAvailable(%d,%d) = true, want false", c[0], c[1])
		}
	}
	if navigator.IsSubtopicAvailable(nil, 0, 1) {
		t.Error("nil lesson should expose nothing beyond (0,0)")
	}
}

func TestIsTopicCompleted(t *testing.T) {
	l := twoByTwo()
	if navigator.IsTopicCompleted(l, 0) {
		t.Error("topic 0 should not be completed")
	}
	complete(l, 0, 0)
	if navigator.IsTopicCompleted(l, 0) {
		t.Error("topic 0 should not be completed with one subtopic left")
	}
	complete(l, 0, 1)
	if !navigator.IsTopicCompleted(l, 0) {
		t.Error("topic 0 should be completed")
	}
	if navigator.IsTopicCompleted(l, 7) || navigator.IsTopicCompleted(nil, 0) {
		t.Error("out-of-range and nil should not be completed")
	}
}

func TestIsTopicCompleted_EmptyTopicIsVacuouslyTrue(t *testing.T) {
	l := &lesson.Lesson{Topics: []lesson.Topic{{ID: "empty"}, {ID: "t2", Subtopics: []lesson.Subtopic{{ID: "x"}}}}}
	if !navigator.IsTopicCompleted(l, 0) {
		t.Error("empty topic should count as completed")
	}
	if !navigator.IsSubtopicAvailable(l, 1, 0) {
		t.Error("subtopic after an empty topic should be available")
	}
}

func TestOverallProgress(t *testing.T) {
	if got := navigator.OverallProgress(nil); got != 0 {
		t.Errorf("OverallProgress(nil) = %d, want 0", got)
	}
	if got := navigator.OverallProgress(&lesson.Lesson{Topics: []lesson.Topic{{}}}); got != 0 {
		t.Errorf("OverallProgress(empty) = %d, want 0", got)
	}

	l := &lesson.Lesson{Topics: []lesson.Topic{{Subtopics: make([]lesson.Subtopic, 3)}}}
	want := []int{33, 67, 100}
	prev := navigator.OverallProgress(l)
	if prev != 0 {
		t.Fatalf("initial progress = %d, want 0", prev)
	}
	for i := range l.Topics[0].Subtopics {
		complete(l, 0, i)
		got := navigator.OverallProgress(l)
		if got < prev {
			t.Errorf("progress decreased from %d to %d", prev, got)
		}
		if got != want[i] {
			t.Errorf("progress after %d = %d, want %d", i+1, got, want[i])
		}
		prev = got
	}
}

func TestBuild(t *testing.T) {
	l := twoByTwo()
	complete(l, 0, 0)
	score := 80
	l.Topics[0].Subtopics[0].AIQuizScore = &score

	sb := navigator.Build(l, 0, 1)
	if sb.Progress != 25 {
		t.Errorf("Progress = %d, want 25", sb.Progress)
	}
	if len(sb.Topics) != 2 {
		t.Fatalf("topics = %d, want 2", len(sb.Topics))
	}
	row := sb.Topics[0].Subtopics[1]
	if !row.Current || !row.Available || row.Completed {
		t.Errorf("row (0,1) = %+v", row)
	}
	if got := sb.Topics[0].Subtopics[0].AIQuizScore; got == nil || *got != 80 {
		t.Errorf("AIQuizScore = %v, want 80", got)
	}
	if sb.Topics[1].Subtopics[0].Available {
		t.Error("(1,0) should be locked")
	}

	empty := navigator.Build(nil, 0, 0)
	if empty.Progress != 0 || len(empty.Topics) != 0 {
		t.Errorf("Build(nil) = %+v", empty)
	}
}
