package session

// Mode is the session's current screen.
type Mode string

const (
	ModeLearning     Mode = "learning"
	ModeChat         Mode = "chat"
	ModeQuiz         Mode = "quiz"
	ModeQuizResults  Mode = "quiz-results"
	ModeFinalTest    Mode = "final-test"
	ModeFinalResults Mode = "final-results"
)

// Terminal reports whether no event is accepted in m.
func (m Mode) Terminal() bool {
	return m == ModeFinalResults
}

// EventKind names a learner action.
type EventKind string

const (
	EventFinishSubtopic  EventKind = "finish-subtopic"
	EventOpenChat        EventKind = "open-chat"
	EventSelectSubtopic  EventKind = "select-subtopic"
	EventRequestQuiz     EventKind = "request-quiz"
	EventAnswer          EventKind = "answer"
	EventSubmitQuiz      EventKind = "submit-quiz"
	EventContinue        EventKind = "continue"
	EventSubmitFinalTest EventKind = "submit-final-test"
)

// Event is a learner action dispatched to a session. Question and Option are
// read by EventAnswer; Topic and Subtopic by EventSelectSubtopic.
type Event struct {
	Kind     EventKind `json:"type"`
	Question int       `json:"question"`
	Option   int       `json:"option"`
	Topic    int       `json:"topic"`
	Subtopic int       `json:"subtopic"`
}
